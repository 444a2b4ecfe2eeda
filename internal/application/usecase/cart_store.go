// internal/application/usecase/cart_store.go
package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	cartdom "atelier/internal/domain/cart"
	"atelier/internal/domain/session"
)

var (
	ErrCartInvalidArgument = errors.New("cart_store: invalid argument")
)

// CartStore is the single source of truth for one shopper's cart.
//
// It owns the in-memory item list and derived aggregates, and delegates every
// persisted mutation to whichever backend is authoritative at call time: the
// device store while anonymous, the remote store while authenticated. The
// active backend is re-resolved through the session probe on every call, never
// cached, because the identity can change between calls and the store must not
// write to the wrong owner's cart.
//
// Reconciliation is reload-based: after a remote mutation the store reloads the
// full list from the remote adapter rather than patching optimistically, so
// server-side denormalization (price/name drift) is always reflected. Mutations
// are serialized per store with a mutex, so two rapid calls on the same cart
// cannot interleave their read-mutate-reload cycles.
type CartStore struct {
	deviceID string

	probe    session.Probe
	local    cartdom.DeviceStore
	remote   cartdom.RemoteStore
	migrator *Migrator
	log      logrus.FieldLogger

	mu      sync.Mutex
	items   []cartdom.Item
	loading bool

	// prevIdentity is the identity observed on the previous probe; a nil ->
	// non-nil change is the login event that triggers migration.
	prevIdentity *session.Identity
}

// NewCartStore builds a store for one device session. Call Load once after
// construction; IsLoading is true only during that initial reload.
func NewCartStore(
	deviceID string,
	probe session.Probe,
	local cartdom.DeviceStore,
	remote cartdom.RemoteStore,
	migrator *Migrator,
	log logrus.FieldLogger,
) (*CartStore, error) {
	did := strings.TrimSpace(deviceID)
	if did == "" || probe == nil || local == nil || remote == nil || migrator == nil {
		return nil, ErrCartInvalidArgument
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CartStore{
		deviceID: did,
		probe:    probe,
		local:    local,
		remote:   remote,
		migrator: migrator,
		log:      log.WithField("deviceId", did),
		items:    []cartdom.Item{},
	}, nil
}

// Load performs the initial mount reload from the authoritative backend.
func (s *CartStore) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loading = true
	defer func() { s.loading = false }()

	id := s.resolveIdentity(ctx)
	return s.reloadLocked(ctx, id)
}

// AddItem merges qty units of the configuration k into the cart.
func (s *CartStore) AddItem(ctx context.Context, k cartdom.Key, qty int) error {
	if qty == 0 {
		qty = 1
	}
	item, err := cartdom.NewItem(k, qty)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.resolveIdentity(ctx)
	if id != nil {
		if _, err := s.remote.Add(ctx, id.ID, item.Key, item.Qty); err != nil {
			s.log.WithError(err).Warn("cart: remote add failed")
			return err
		}
		return s.reloadLocked(ctx, id)
	}

	s.items = cartdom.MergeAdd(s.items, item)
	return s.persistLocalLocked(ctx)
}

// UpdateQuantity sets the quantity of the line matching k. qty <= 0 removes
// the line on both paths.
func (s *CartStore) UpdateQuantity(ctx context.Context, k cartdom.Key, qty int) error {
	if err := k.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.resolveIdentity(ctx)
	idx := cartdom.FindIndex(s.items, k)
	if idx < 0 && id != nil {
		// the in-memory view may be stale right after login; retry once
		// against a fresh remote reload
		if err := s.reloadLocked(ctx, id); err != nil {
			return err
		}
		idx = cartdom.FindIndex(s.items, k)
	}
	if idx < 0 {
		return cartdom.ErrNotFound
	}

	if id != nil {
		rowID := strings.TrimSpace(s.items[idx].RowID)
		if rowID == "" {
			// line predates the reload that assigns row ids (first mutation
			// right after login); refresh, then apply against the real row
			if err := s.reloadLocked(ctx, id); err != nil {
				return err
			}
			idx = cartdom.FindIndex(s.items, k)
			if idx < 0 {
				return cartdom.ErrNotFound
			}
			rowID = strings.TrimSpace(s.items[idx].RowID)
			if rowID == "" {
				return cartdom.ErrNotFound
			}
		}
		if _, err := s.remote.SetQuantity(ctx, id.ID, rowID, qty); err != nil {
			s.log.WithError(err).Warn("cart: remote set quantity failed")
			return err
		}
		return s.reloadLocked(ctx, id)
	}

	if qty <= 0 {
		s.items = cartdom.RemoveAt(s.items, idx)
	} else {
		s.items[idx].Qty = qty
	}
	return s.persistLocalLocked(ctx)
}

// RemoveItem removes the line matching k entirely.
func (s *CartStore) RemoveItem(ctx context.Context, k cartdom.Key) error {
	if err := k.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.resolveIdentity(ctx)
	idx := cartdom.FindIndex(s.items, k)

	if id != nil {
		rowID := ""
		if idx >= 0 {
			rowID = strings.TrimSpace(s.items[idx].RowID)
		}
		if rowID == "" {
			// absent or still carrying no row id (first mutation right after
			// login); refresh before deciding the line is gone
			if err := s.reloadLocked(ctx, id); err != nil {
				return err
			}
			if idx = cartdom.FindIndex(s.items, k); idx >= 0 {
				rowID = strings.TrimSpace(s.items[idx].RowID)
			}
		}
		if rowID != "" {
			if err := s.remote.Remove(ctx, id.ID, rowID); err != nil {
				s.log.WithError(err).Warn("cart: remote remove failed")
				return err
			}
		}
		// remote remove is idempotent; an absent line is not an error
		return s.reloadLocked(ctx, id)
	}

	if idx < 0 {
		return nil
	}
	s.items = cartdom.RemoveAt(s.items, idx)
	return s.persistLocalLocked(ctx)
}

// ClearCart empties the cart on the authoritative backend. Idempotent.
func (s *CartStore) ClearCart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.resolveIdentity(ctx)
	if id != nil {
		if err := s.remote.Clear(ctx, id.ID); err != nil {
			s.log.WithError(err).Warn("cart: remote clear failed")
			return err
		}
	} else {
		if err := s.local.Clear(ctx, s.deviceID); err != nil {
			s.log.WithError(err).Warn("cart: device clear failed")
			return err
		}
	}

	s.items = []cartdom.Item{}
	return nil
}

// SyncCart forces a full reload from the currently authoritative backend.
// Used after external events (tab refocus, checkout completion).
func (s *CartStore) SyncCart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.resolveIdentity(ctx)
	return s.reloadLocked(ctx, id)
}

// Items returns a copy of the current in-memory line list.
func (s *CartStore) Items() []cartdom.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cartdom.CloneItems(s.items)
}

// Summary recomputes the derived aggregates from the current item list.
func (s *CartStore) Summary() cartdom.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cartdom.Summarize(s.items)
}

// ItemCount is the sum of quantities across lines.
func (s *CartStore) ItemCount() int { return s.Summary().ItemCount }

// Total is the sum of unitPrice * quantity across lines.
func (s *CartStore) Total() int { return s.Summary().Total }

// IsLoading is true only during the initial mount reload.
func (s *CartStore) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// resolveIdentity probes the session and runs the one-time migration on a
// nil -> non-nil transition. Caller holds s.mu.
func (s *CartStore) resolveIdentity(ctx context.Context) *session.Identity {
	cur := s.probe.CurrentIdentity(ctx)

	if cur != nil && s.prevIdentity == nil {
		// login event: drain the device cart into the remote cart before the
		// triggering operation proceeds. Best effort, never blocks login.
		// Re-running after a later logout/login cycle is safe: the device
		// record was cleared, so migration degenerates to a no-op.
		if err := s.migrator.Migrate(ctx, s.deviceID, cur.ID); err != nil {
			s.log.WithError(err).WithField("ownerId", cur.ID).
				Warn("cart: migration failed")
		}
	}

	s.prevIdentity = cur
	return cur
}

// reloadLocked replaces the in-memory list from the authoritative backend.
func (s *CartStore) reloadLocked(ctx context.Context, id *session.Identity) error {
	if id != nil {
		items, err := s.remote.List(ctx, id.ID)
		if err != nil {
			s.log.WithError(err).Warn("cart: remote reload failed")
			return err
		}
		s.items = cartdom.CloneItems(items)
		return nil
	}

	items, err := s.local.Load(ctx, s.deviceID)
	if err != nil {
		s.log.WithError(err).Warn("cart: device reload failed")
		return err
	}
	s.items = cartdom.StripRowIDs(items)
	return nil
}

// persistLocalLocked writes the full in-memory list as the device record.
func (s *CartStore) persistLocalLocked(ctx context.Context) error {
	if err := s.local.Save(ctx, s.deviceID, cartdom.StripRowIDs(s.items)); err != nil {
		s.log.WithError(err).Warn("cart: device save failed")
		return err
	}
	return nil
}
