// internal/application/usecase/store_manager.go
package usecase

import (
	"context"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	cartdom "atelier/internal/domain/cart"
	"atelier/internal/domain/session"
)

// StoreManager hands out one CartStore per device session. The store lives for
// the process lifetime of the session (constructed on first use, initial
// reload performed once); consumers receive it by reference.
type StoreManager struct {
	probe  session.Probe
	local  cartdom.DeviceStore
	remote cartdom.RemoteStore
	log    logrus.FieldLogger

	mu     sync.Mutex
	stores map[string]*CartStore
}

func NewStoreManager(
	probe session.Probe,
	local cartdom.DeviceStore,
	remote cartdom.RemoteStore,
	log logrus.FieldLogger,
) (*StoreManager, error) {
	if probe == nil || local == nil || remote == nil {
		return nil, ErrCartInvalidArgument
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &StoreManager{
		probe:  probe,
		local:  local,
		remote: remote,
		log:    log,
		stores: map[string]*CartStore{},
	}, nil
}

// StoreFor returns the cart store bound to deviceID, building and loading it
// on first use.
func (m *StoreManager) StoreFor(ctx context.Context, deviceID string) (*CartStore, error) {
	did := strings.TrimSpace(deviceID)
	if did == "" {
		return nil, ErrCartInvalidArgument
	}

	m.mu.Lock()
	if s, ok := m.stores[did]; ok {
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	migrator, err := NewMigrator(m.local, m.remote, m.log)
	if err != nil {
		return nil, err
	}
	s, err := NewCartStore(did, m.probe, m.local, m.remote, migrator, m.log)
	if err != nil {
		return nil, err
	}

	// load before publishing: once the store is in the map a concurrent
	// request can mutate it, and a mutation computed from the not-yet-loaded
	// empty list would overwrite the device record
	if err := s.Load(ctx); err != nil {
		m.log.WithError(err).WithField("deviceId", did).
			Warn("cart: initial reload failed, starting empty")
	}

	m.mu.Lock()
	if existing, ok := m.stores[did]; ok {
		// another request won the race; use its store
		m.mu.Unlock()
		return existing, nil
	}
	m.stores[did] = s
	m.mu.Unlock()
	return s, nil
}

// Teardown drops the store for deviceID (full sign-out).
func (m *StoreManager) Teardown(deviceID string) {
	did := strings.TrimSpace(deviceID)
	if did == "" {
		return
	}
	m.mu.Lock()
	delete(m.stores, did)
	m.mu.Unlock()
}
