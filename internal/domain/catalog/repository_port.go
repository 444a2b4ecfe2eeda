// internal/domain/catalog/repository_port.go
package catalog

import (
	"context"

	cartdom "atelier/internal/domain/cart"
)

// Reader resolves catalog references to current snapshots.
//
// Not-found policy: a reference that does not resolve returns (nil, nil);
// errors are reserved for transport failures. The remote cart adapter turns a
// nil snapshot on Add into cart.ErrNotFound.
type Reader interface {
	// Resolve returns the snapshot for a configuration key, with variant
	// overrides already applied for product keys carrying a VariantRef.
	Resolve(ctx context.Context, k cartdom.Key) (*Snapshot, error)

	// ResolveAll batch-resolves distinct keys. Missing entries are simply
	// absent from the result map (keyed by Key.String()).
	ResolveAll(ctx context.Context, keys []cartdom.Key) (map[string]Snapshot, error)
}
