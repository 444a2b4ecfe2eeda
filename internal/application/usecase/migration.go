// internal/application/usecase/migration.go
package usecase

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	cartdom "atelier/internal/domain/cart"
)

// Migrator moves an anonymous device cart into a newly authenticated owner's
// remote cart, once per login transition, without loss or duplication.
//
// Merge policy: quantities sum on configuration conflict (remote Add is an
// upsert-by-configuration), prices are retaken from the remote catalog at
// merge time — local price snapshots are discarded as stale.
//
// Failure semantics: a failed Add for an individual item is logged and
// dropped; the loop continues and the device record is cleared regardless.
// This is a deliberate best-effort, never-block-login trade-off. There is no
// persisted retry queue.
type Migrator struct {
	local  cartdom.DeviceStore
	remote cartdom.RemoteStore
	log    logrus.FieldLogger
}

func NewMigrator(local cartdom.DeviceStore, remote cartdom.RemoteStore, log logrus.FieldLogger) (*Migrator, error) {
	if local == nil || remote == nil {
		return nil, ErrCartInvalidArgument
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Migrator{local: local, remote: remote, log: log}, nil
}

// Migrate drains deviceID's record into ownerID's remote cart and clears the
// device record. The caller is expected to trigger a full reload afterwards so
// the visible state reflects the merged cart.
func (m *Migrator) Migrate(ctx context.Context, deviceID, ownerID string) error {
	did := strings.TrimSpace(deviceID)
	oid := strings.TrimSpace(ownerID)
	if did == "" || oid == "" {
		return ErrCartInvalidArgument
	}

	log := m.log.WithFields(logrus.Fields{"deviceId": did, "ownerId": oid})

	items, err := m.local.Load(ctx, did)
	if err != nil {
		// treat an unreadable device cart as empty; login must not block
		log.WithError(err).Warn("migration: device cart unreadable, treating as empty")
		items = nil
	}

	if len(items) == 0 {
		// no-op safety clear, no remote calls needed
		if cerr := m.local.Clear(ctx, did); cerr != nil {
			log.WithError(cerr).Warn("migration: device clear failed")
		}
		return nil
	}

	moved := 0
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		if _, aerr := m.remote.Add(ctx, oid, it.Key, it.Qty); aerr != nil {
			log.WithError(aerr).WithField("itemKey", it.Key.String()).
				Warn("migration: item dropped")
			continue
		}
		moved++
	}

	// clear unconditionally: a device cart is never retried
	if cerr := m.local.Clear(ctx, did); cerr != nil {
		log.WithError(cerr).Warn("migration: device clear failed")
	}

	log.WithFields(logrus.Fields{"moved": moved, "total": len(items)}).
		Info("migration: device cart merged")
	return nil
}
