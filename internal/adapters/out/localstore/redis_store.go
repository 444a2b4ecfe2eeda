// internal/adapters/out/localstore/redis_store.go
package localstore

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	cartdom "atelier/internal/domain/cart"
)

const guestCartKeyPrefix = "guestcart:"

// RedisStore implements cart.DeviceStore on Redis: one key per device holding
// the JSON item array. The key TTL enforces guest-cart expiry, refreshed on
// every save.
type RedisStore struct {
	Client *redis.Client
	TTL    time.Duration
	Log    logrus.FieldLogger
}

func NewRedisStore(client *redis.Client, log logrus.FieldLogger) *RedisStore {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RedisStore{
		Client: client,
		TTL:    cartdom.DefaultGuestCartTTL,
		Log:    log,
	}
}

func (s *RedisStore) key(deviceID string) (string, error) {
	did := strings.TrimSpace(deviceID)
	if did == "" {
		return "", errors.New("localstore: deviceID is empty")
	}
	return guestCartKeyPrefix + did, nil
}

func (s *RedisStore) Load(ctx context.Context, deviceID string) ([]cartdom.Item, error) {
	if s == nil || s.Client == nil {
		return nil, errors.New("localstore: redis client is nil")
	}
	key, err := s.key(deviceID)
	if err != nil {
		return nil, err
	}

	raw, err := s.Client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return []cartdom.Item{}, nil
		}
		return nil, errors.Wrap(err, "localstore: redis get failed")
	}

	var items []cartdom.Item
	if uerr := json.Unmarshal(raw, &items); uerr != nil {
		s.Log.WithError(uerr).WithField("deviceId", deviceID).
			Warn("localstore: corrupt record, treating as empty")
		return []cartdom.Item{}, nil
	}
	return cartdom.StripRowIDs(items), nil
}

func (s *RedisStore) Save(ctx context.Context, deviceID string, items []cartdom.Item) error {
	if s == nil || s.Client == nil {
		return errors.New("localstore: redis client is nil")
	}
	key, err := s.key(deviceID)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(cartdom.StripRowIDs(items))
	if err != nil {
		return errors.Wrap(err, "localstore: marshal failed")
	}

	ttl := s.TTL
	if ttl <= 0 {
		ttl = cartdom.DefaultGuestCartTTL
	}
	if err := s.Client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return errors.Wrap(err, "localstore: redis set failed")
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, deviceID string) error {
	if s == nil || s.Client == nil {
		return errors.New("localstore: redis client is nil")
	}
	key, err := s.key(deviceID)
	if err != nil {
		return err
	}
	if err := s.Client.Del(ctx, key).Err(); err != nil {
		return errors.Wrap(err, "localstore: redis del failed")
	}
	return nil
}
