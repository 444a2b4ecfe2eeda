// internal/adapters/out/firestore/cart_repository_fs.go
package firestore

import (
	"context"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	cartdom "atelier/internal/domain/cart"
	"atelier/internal/domain/catalog"
)

// CartRepositoryFS implements cart.RemoteStore on Firestore.
//
// Collection design:
// - carts/{ownerId}/items/{rowId}
// - rowId: uuid, generated on first insert of a configuration
// - fields: itemFamily, productRef, merchRef, variantRef, qty, createdAt, updatedAt
//
// Unused refs are stored as empty strings so equality queries on the
// configuration work without composite indexes on missing fields.
//
// Denormalization happens at query time: List (and single-row reads) join the
// current catalog name/image/price through the catalog reader; the row docs
// never store presentation or price fields.
type CartRepositoryFS struct {
	Client  *firestore.Client
	Catalog catalog.Reader

	CartsCol string
	ItemsCol string
}

func NewCartRepositoryFS(client *firestore.Client, cat catalog.Reader) *CartRepositoryFS {
	return &CartRepositoryFS{
		Client:   client,
		Catalog:  cat,
		CartsCol: "carts",
		ItemsCol: "items",
	}
}

type cartRowDoc struct {
	Family     string    `firestore:"itemFamily"`
	ProductRef string    `firestore:"productRef"`
	MerchRef   string    `firestore:"merchRef"`
	VariantRef string    `firestore:"variantRef"`
	Qty        int       `firestore:"qty"`
	CreatedAt  time.Time `firestore:"createdAt"`
	UpdatedAt  time.Time `firestore:"updatedAt"`
}

func (d cartRowDoc) key() cartdom.Key {
	return cartdom.Key{
		Family:     cartdom.Family(strings.TrimSpace(d.Family)),
		ProductRef: strings.TrimSpace(d.ProductRef),
		MerchRef:   strings.TrimSpace(d.MerchRef),
		VariantRef: strings.TrimSpace(d.VariantRef),
	}
}

func docFromKey(k cartdom.Key, qty int, now time.Time) cartRowDoc {
	return cartRowDoc{
		Family:     string(k.Family),
		ProductRef: strings.TrimSpace(k.ProductRef),
		MerchRef:   strings.TrimSpace(k.MerchRef),
		VariantRef: strings.TrimSpace(k.VariantRef),
		Qty:        qty,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (r *CartRepositoryFS) items(ownerID string) *firestore.CollectionRef {
	return r.Client.Collection(r.CartsCol).Doc(ownerID).Collection(r.ItemsCol)
}

func (r *CartRepositoryFS) guard(ownerID string) (string, error) {
	if r == nil || r.Client == nil {
		return "", errors.New("cart_repository_fs: firestore client is nil")
	}
	oid := strings.TrimSpace(ownerID)
	if oid == "" {
		return "", errors.New("cart_repository_fs: ownerID is empty")
	}
	return oid, nil
}

// List returns every row for ownerID, denormalized with current catalog data.
// Rows whose catalog entity disappeared are kept with their stored key but
// zero price, so the shopper still sees (and can remove) the line.
func (r *CartRepositoryFS) List(ctx context.Context, ownerID string) ([]cartdom.Item, error) {
	oid, err := r.guard(ownerID)
	if err != nil {
		return nil, err
	}

	iter := r.items(oid).Documents(ctx)
	defer iter.Stop()

	type row struct {
		id  string
		doc cartRowDoc
	}
	rows := make([]row, 0, 8)

	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "cart_repository_fs: list failed")
		}

		var d cartRowDoc
		if derr := snap.DataTo(&d); derr != nil {
			// skip undecodable rows rather than failing the whole reload
			continue
		}
		if d.Qty <= 0 {
			continue
		}
		rows = append(rows, row{id: snap.Ref.ID, doc: d})
	}

	// deterministic order for the UI (oldest line first)
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].doc.CreatedAt.Equal(rows[j].doc.CreatedAt) {
			return rows[i].doc.CreatedAt.Before(rows[j].doc.CreatedAt)
		}
		return rows[i].id < rows[j].id
	})

	keys := make([]cartdom.Key, 0, len(rows))
	for _, rw := range rows {
		keys = append(keys, rw.doc.key())
	}

	var snaps map[string]catalog.Snapshot
	if r.Catalog != nil {
		snaps, err = r.Catalog.ResolveAll(ctx, keys)
		if err != nil {
			return nil, errors.Wrap(err, "cart_repository_fs: catalog resolve failed")
		}
	}

	out := make([]cartdom.Item, 0, len(rows))
	for _, rw := range rows {
		k := rw.doc.key()
		it := cartdom.Item{RowID: rw.id, Key: k, Qty: rw.doc.Qty}
		if snap, ok := snaps[k.String()]; ok {
			it.DisplayName = snap.Name
			it.DisplayImage = snap.ImageRef
			it.UnitPrice = snap.Price
		}
		out = append(out, it)
	}
	return out, nil
}

// Add upserts by configuration inside a transaction: the row for the same
// configuration accumulates qty, otherwise a new row is created.
func (r *CartRepositoryFS) Add(ctx context.Context, ownerID string, k cartdom.Key, qty int) (cartdom.Item, error) {
	oid, err := r.guard(ownerID)
	if err != nil {
		return cartdom.Item{}, err
	}
	if err := k.Validate(); err != nil {
		return cartdom.Item{}, err
	}
	if qty < 1 {
		return cartdom.Item{}, cartdom.ErrInvalidItem
	}

	// the referenced catalog entity must exist before any row is written
	var snap *catalog.Snapshot
	if r.Catalog != nil {
		snap, err = r.Catalog.Resolve(ctx, k)
		if err != nil {
			return cartdom.Item{}, errors.Wrap(err, "cart_repository_fs: catalog resolve failed")
		}
		if snap == nil {
			return cartdom.Item{}, cartdom.ErrNotFound
		}
	}

	now := time.Now().UTC()
	rowID := ""
	newQty := 0

	err = r.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		q := r.items(oid).
			Where("itemFamily", "==", string(k.Family)).
			Where("productRef", "==", strings.TrimSpace(k.ProductRef)).
			Where("merchRef", "==", strings.TrimSpace(k.MerchRef)).
			Where("variantRef", "==", strings.TrimSpace(k.VariantRef)).
			Limit(1)

		docs, err := tx.Documents(q).GetAll()
		if err != nil {
			return err
		}

		if len(docs) > 0 {
			var d cartRowDoc
			if derr := docs[0].DataTo(&d); derr != nil {
				return derr
			}
			rowID = docs[0].Ref.ID
			newQty = d.Qty + qty
			return tx.Update(docs[0].Ref, []firestore.Update{
				{Path: "qty", Value: newQty},
				{Path: "updatedAt", Value: now},
			})
		}

		rowID = uuid.NewString()
		newQty = qty
		return tx.Create(r.items(oid).Doc(rowID), docFromKey(k, qty, now))
	})
	if err != nil {
		return cartdom.Item{}, errors.Wrap(err, "cart_repository_fs: add failed")
	}

	out := cartdom.Item{RowID: rowID, Key: k, Qty: newQty}
	if snap != nil {
		out.DisplayName = snap.Name
		out.DisplayImage = snap.ImageRef
		out.UnitPrice = snap.Price
	}
	return out, nil
}

// SetQuantity updates a row's quantity; qty <= 0 deletes the row.
func (r *CartRepositoryFS) SetQuantity(ctx context.Context, ownerID, rowID string, qty int) (cartdom.Item, error) {
	oid, err := r.guard(ownerID)
	if err != nil {
		return cartdom.Item{}, err
	}
	rid := strings.TrimSpace(rowID)
	if rid == "" {
		return cartdom.Item{}, cartdom.ErrNotFound
	}

	if qty <= 0 {
		// equivalent to Remove; an absent row is not an error
		return cartdom.Item{}, r.Remove(ctx, oid, rid)
	}

	ref := r.items(oid).Doc(rid)

	snap, err := ref.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return cartdom.Item{}, cartdom.ErrNotFound
		}
		return cartdom.Item{}, errors.Wrap(err, "cart_repository_fs: get failed")
	}

	var d cartRowDoc
	if derr := snap.DataTo(&d); derr != nil {
		return cartdom.Item{}, errors.Wrap(derr, "cart_repository_fs: decode failed")
	}

	now := time.Now().UTC()
	if _, err := ref.Update(ctx, []firestore.Update{
		{Path: "qty", Value: qty},
		{Path: "updatedAt", Value: now},
	}); err != nil {
		return cartdom.Item{}, errors.Wrap(err, "cart_repository_fs: update failed")
	}

	out := cartdom.Item{RowID: rid, Key: d.key(), Qty: qty}
	if r.Catalog != nil {
		if cs, cerr := r.Catalog.Resolve(ctx, out.Key); cerr == nil && cs != nil {
			out.DisplayName = cs.Name
			out.DisplayImage = cs.ImageRef
			out.UnitPrice = cs.Price
		}
	}
	return out, nil
}

// Remove deletes a row. Deleting an absent row succeeds silently.
func (r *CartRepositoryFS) Remove(ctx context.Context, ownerID, rowID string) error {
	oid, err := r.guard(ownerID)
	if err != nil {
		return err
	}
	rid := strings.TrimSpace(rowID)
	if rid == "" {
		return nil
	}

	if _, err := r.items(oid).Doc(rid).Delete(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil
		}
		return errors.Wrap(err, "cart_repository_fs: delete failed")
	}
	return nil
}

// Clear removes every row for the owner. Idempotent.
func (r *CartRepositoryFS) Clear(ctx context.Context, ownerID string) error {
	oid, err := r.guard(ownerID)
	if err != nil {
		return err
	}

	iter := r.items(oid).Documents(ctx)
	defer iter.Stop()

	bw := r.Client.BulkWriter(ctx)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return errors.Wrap(err, "cart_repository_fs: clear scan failed")
		}
		if _, err := bw.Delete(snap.Ref); err != nil {
			return errors.Wrap(err, "cart_repository_fs: clear delete failed")
		}
	}
	bw.End()
	return nil
}
