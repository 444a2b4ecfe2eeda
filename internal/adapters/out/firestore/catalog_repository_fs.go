// internal/adapters/out/firestore/catalog_repository_fs.go
package firestore

import (
	"context"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"

	cartdom "atelier/internal/domain/cart"
	"atelier/internal/domain/catalog"
)

// ImageURLResolver turns a storage object path into a public URL.
// Absolute URLs pass through unchanged.
type ImageURLResolver interface {
	Resolve(objectPath string) string
}

// CatalogReaderFS implements catalog.Reader on Firestore.
//
// Collection design:
// - products/{productRef}:        name, imageRef, price
// - merch_items/{merchRef}:       name, imageRef, price
// - product_variants/{productRef__variantRef}: optional name/imageRef/price overrides
//
// Variant docs use the composite id so a whole configuration resolves in two
// point reads, no queries.
type CatalogReaderFS struct {
	Client *firestore.Client
	Images ImageURLResolver

	ProductsCol string
	MerchCol    string
	VariantsCol string
}

func NewCatalogReaderFS(client *firestore.Client, images ImageURLResolver) *CatalogReaderFS {
	return &CatalogReaderFS{
		Client:      client,
		Images:      images,
		ProductsCol: "products",
		MerchCol:    "merch_items",
		VariantsCol: "product_variants",
	}
}

type catalogDoc struct {
	Name     string `firestore:"name"`
	ImageRef string `firestore:"imageRef"`
	Price    int    `firestore:"price"`
}

func (d catalogDoc) snapshot() catalog.Snapshot {
	return catalog.Snapshot{
		Name:     strings.TrimSpace(d.Name),
		ImageRef: strings.TrimSpace(d.ImageRef),
		Price:    d.Price,
	}
}

func variantDocID(productRef, variantRef string) string {
	return strings.TrimSpace(productRef) + "__" + strings.TrimSpace(variantRef)
}

func (q *CatalogReaderFS) refFor(k cartdom.Key) *firestore.DocumentRef {
	if k.Family == cartdom.FamilyMerch {
		return q.Client.Collection(q.MerchCol).Doc(k.Ref())
	}
	return q.Client.Collection(q.ProductsCol).Doc(k.Ref())
}

func (q *CatalogReaderFS) variantRefFor(k cartdom.Key) *firestore.DocumentRef {
	if k.Family != cartdom.FamilyProduct || strings.TrimSpace(k.VariantRef) == "" {
		return nil
	}
	return q.Client.Collection(q.VariantsCol).Doc(variantDocID(k.ProductRef, k.VariantRef))
}

// Resolve returns the merged snapshot for k, or (nil, nil) if the base entity
// (or the requested variant) does not exist.
func (q *CatalogReaderFS) Resolve(ctx context.Context, k cartdom.Key) (*catalog.Snapshot, error) {
	if q == nil || q.Client == nil {
		return nil, errors.New("catalog_reader_fs: firestore client is nil")
	}
	if err := k.Validate(); err != nil {
		return nil, err
	}

	out, err := q.ResolveAll(ctx, []cartdom.Key{k})
	if err != nil {
		return nil, err
	}
	if snap, ok := out[k.String()]; ok {
		return &snap, nil
	}
	return nil, nil
}

// ResolveAll batch-resolves distinct keys with two GetAll round trips (base
// docs, then variant docs). Missing entries are absent from the result.
func (q *CatalogReaderFS) ResolveAll(ctx context.Context, keys []cartdom.Key) (map[string]catalog.Snapshot, error) {
	if q == nil || q.Client == nil {
		return nil, errors.New("catalog_reader_fs: firestore client is nil")
	}

	seen := map[string]struct{}{}
	distinct := make([]cartdom.Key, 0, len(keys))
	for _, k := range keys {
		if k.Validate() != nil {
			continue
		}
		ks := k.String()
		if _, ok := seen[ks]; ok {
			continue
		}
		seen[ks] = struct{}{}
		distinct = append(distinct, k)
	}
	if len(distinct) == 0 {
		return map[string]catalog.Snapshot{}, nil
	}

	baseRefs := make([]*firestore.DocumentRef, 0, len(distinct))
	for _, k := range distinct {
		baseRefs = append(baseRefs, q.refFor(k))
	}

	baseSnaps, err := q.Client.GetAll(ctx, baseRefs)
	if err != nil {
		return nil, errors.Wrap(err, "catalog_reader_fs: base fetch failed")
	}

	out := map[string]catalog.Snapshot{}
	variantRefs := []*firestore.DocumentRef{}
	variantKeys := []cartdom.Key{}

	for i, snap := range baseSnaps {
		k := distinct[i]
		if snap == nil || !snap.Exists() {
			continue
		}

		var d catalogDoc
		if derr := snap.DataTo(&d); derr != nil {
			continue
		}
		out[k.String()] = d.snapshot()

		if vref := q.variantRefFor(k); vref != nil {
			variantRefs = append(variantRefs, vref)
			variantKeys = append(variantKeys, k)
		}
	}

	if len(variantRefs) > 0 {
		variantSnaps, verr := q.Client.GetAll(ctx, variantRefs)
		if verr != nil {
			return nil, errors.Wrap(verr, "catalog_reader_fs: variant fetch failed")
		}
		for i, vsnap := range variantSnaps {
			k := variantKeys[i]
			base, ok := out[k.String()]
			if !ok {
				continue
			}
			if vsnap == nil || !vsnap.Exists() {
				// the requested variant does not exist: the configuration is
				// unresolvable, drop the base entry too
				delete(out, k.String())
				continue
			}
			var vd catalogDoc
			if derr := vsnap.DataTo(&vd); derr != nil {
				continue
			}
			ov := vd.snapshot()
			out[k.String()] = base.Merged(&ov)
		}
	}

	if q.Images != nil {
		for ks, snap := range out {
			snap.ImageRef = q.Images.Resolve(snap.ImageRef)
			out[ks] = snap
		}
	}
	return out, nil
}
