// internal/adapters/out/localstore/file_store.go
package localstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	cartdom "atelier/internal/domain/cart"
)

// FileStore implements cart.DeviceStore on the local filesystem: one JSON
// record per device under Dir.
//
// Record shape:
// - envelope {updatedAt, items[]} so stale records can be expired at load
// - items never carry remote row ids
//
// Corrupt policy:
// - an unparseable record is treated as an empty cart and logged; the caller
//   never sees the failure
type FileStore struct {
	Dir string
	TTL time.Duration
	Log logrus.FieldLogger
}

type fileRecord struct {
	UpdatedAt time.Time     `json:"updatedAt"`
	Items     []cartdom.Item `json:"items"`
}

func NewFileStore(dir string, log logrus.FieldLogger) *FileStore {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &FileStore{
		Dir: strings.TrimSpace(dir),
		TTL: cartdom.DefaultGuestCartTTL,
		Log: log,
	}
}

func (s *FileStore) path(deviceID string) (string, error) {
	did := strings.TrimSpace(deviceID)
	if did == "" {
		return "", errors.New("localstore: deviceID is empty")
	}
	// device ids are uuids issued by the session middleware; reject anything
	// that could escape the directory
	if strings.ContainsAny(did, "/\\.") {
		return "", errors.New("localstore: deviceID contains path characters")
	}
	dir := strings.TrimSpace(s.Dir)
	if dir == "" {
		return "", errors.New("localstore: dir is not configured")
	}
	return filepath.Join(dir, did+".json"), nil
}

// Load returns the device record, or an empty slice when absent, expired or
// corrupt.
func (s *FileStore) Load(_ context.Context, deviceID string) ([]cartdom.Item, error) {
	p, err := s.path(deviceID)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return []cartdom.Item{}, nil
		}
		return nil, errors.Wrap(err, "localstore: read failed")
	}

	var rec fileRecord
	if uerr := json.Unmarshal(raw, &rec); uerr != nil {
		// corrupt record: treat as empty, never propagate
		s.Log.WithError(uerr).WithField("deviceId", deviceID).
			Warn("localstore: corrupt record, treating as empty")
		return []cartdom.Item{}, nil
	}

	if s.TTL > 0 && !rec.UpdatedAt.IsZero() && time.Since(rec.UpdatedAt) > s.TTL {
		return []cartdom.Item{}, nil
	}

	return cartdom.StripRowIDs(rec.Items), nil
}

// Save overwrites the record via temp file + rename, so a reader never sees a
// partially written payload.
func (s *FileStore) Save(_ context.Context, deviceID string, items []cartdom.Item) error {
	p, err := s.path(deviceID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.Wrap(err, "localstore: mkdir failed")
	}

	rec := fileRecord{
		UpdatedAt: time.Now().UTC(),
		Items:     cartdom.StripRowIDs(items),
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "localstore: marshal failed")
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".cart-*")
	if err != nil {
		return errors.Wrap(err, "localstore: temp file failed")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "localstore: write failed")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "localstore: close failed")
	}

	if err := os.Rename(tmpName, p); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "localstore: rename failed")
	}
	return nil
}

// Clear removes the record. Clearing an absent record succeeds.
func (s *FileStore) Clear(_ context.Context, deviceID string) error {
	p, err := s.path(deviceID)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "localstore: remove failed")
	}
	return nil
}
