// internal/domain/cart/repository_port.go
package cart

import "context"

// DeviceStore is the persistence port for anonymous (device-scoped) carts.
//
// Storage recommendation:
// - one whole record per deviceID (JSON array of items)
// - writes replace the full record; there are no partial patches
// - records never contain remote row ids
//
// Not-found / corrupt policy:
// - Load returns an empty slice for an absent record
// - Load returns an empty slice (and logs) for an unparseable record; the
//   caller never sees a corrupt-state failure
type DeviceStore interface {
	Load(ctx context.Context, deviceID string) ([]Item, error)

	// Save overwrites the device record with the full item list.
	Save(ctx context.Context, deviceID string, items []Item) error

	// Clear removes the device record. Idempotent.
	Clear(ctx context.Context, deviceID string) error
}

// RemoteStore is the persistence port for authenticated carts.
//
// All operations are owner-scoped: the ownerID comes from the session probe,
// never from caller-controlled payloads. Every call may fail with a transport
// error; Add/SetQuantity additionally surface ErrNotFound / ErrInvalidItem.
type RemoteStore interface {
	// List returns every row owned by ownerID, denormalized with current
	// catalog name, image and price at query time.
	List(ctx context.Context, ownerID string) ([]Item, error)

	// Add upserts by configuration: an existing row for the same key has its
	// quantity incremented by qty, otherwise a new row is created.
	// Fails with ErrNotFound if the referenced catalog entity/variant does not
	// exist, ErrInvalidItem if qty < 1.
	Add(ctx context.Context, ownerID string, k Key, qty int) (Item, error)

	// SetQuantity updates a row's quantity. qty <= 0 is equivalent to Remove
	// (the returned Item is a zero-value tombstone in that case).
	// Fails with ErrNotFound if rowID is not in the owner's scope.
	SetQuantity(ctx context.Context, ownerID, rowID string, qty int) (Item, error)

	// Remove deletes a row. Removing an absent row succeeds silently.
	Remove(ctx context.Context, ownerID, rowID string) error

	// Clear removes every row for the owner. Idempotent.
	Clear(ctx context.Context, ownerID string) error
}
