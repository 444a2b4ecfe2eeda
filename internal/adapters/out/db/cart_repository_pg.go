// internal/adapters/out/db/cart_repository_pg.go
package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	cartdom "atelier/internal/domain/cart"
)

// CartRepositoryPG implements cart.RemoteStore on PostgreSQL.
//
// Schema:
//
//	CREATE TABLE cart_items (
//	  id          uuid PRIMARY KEY,
//	  owner_id    text NOT NULL,
//	  item_family text NOT NULL,
//	  product_ref text NOT NULL DEFAULT '',
//	  merch_ref   text NOT NULL DEFAULT '',
//	  variant_ref text NOT NULL DEFAULT '',
//	  qty         integer NOT NULL CHECK (qty > 0),
//	  created_at  timestamptz NOT NULL,
//	  updated_at  timestamptz NOT NULL,
//	  UNIQUE (owner_id, item_family, product_ref, merch_ref, variant_ref)
//	);
//
// The unique constraint makes Add an atomic upsert-by-configuration
// (INSERT ... ON CONFLICT DO UPDATE qty = qty + excluded.qty).
//
// Denormalization happens in SQL: List joins products / product_variants /
// merch_items so name, image and price always reflect the catalog at query
// time.
type CartRepositoryPG struct {
	DB *sql.DB
}

func NewCartRepositoryPG(db *sql.DB) *CartRepositoryPG {
	return &CartRepositoryPG{DB: db}
}

const listQuery = `
SELECT
  ci.id, ci.item_family, ci.product_ref, ci.merch_ref, ci.variant_ref, ci.qty,
  COALESCE(NULLIF(pv.name, ''), p.name, m.name, '')           AS display_name,
  COALESCE(NULLIF(pv.image_ref, ''), p.image_ref, m.image_ref, '') AS display_image,
  COALESCE(NULLIF(pv.price, 0), p.price, m.price, 0)          AS unit_price
FROM cart_items ci
LEFT JOIN products p
  ON ci.item_family = 'product' AND p.ref = ci.product_ref
LEFT JOIN product_variants pv
  ON ci.item_family = 'product' AND pv.product_ref = ci.product_ref AND pv.ref = ci.variant_ref
LEFT JOIN merch_items m
  ON ci.item_family = 'merch' AND m.ref = ci.merch_ref
WHERE ci.owner_id = $1
ORDER BY ci.created_at ASC, ci.id ASC`

func (r *CartRepositoryPG) guard(ownerID string) (string, error) {
	if r == nil || r.DB == nil {
		return "", errors.New("cart_repository_pg: db is nil")
	}
	oid := strings.TrimSpace(ownerID)
	if oid == "" {
		return "", errors.New("cart_repository_pg: ownerID is empty")
	}
	return oid, nil
}

func (r *CartRepositoryPG) List(ctx context.Context, ownerID string) ([]cartdom.Item, error) {
	oid, err := r.guard(ownerID)
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.QueryContext(ctx, listQuery, oid)
	if err != nil {
		return nil, errors.Wrap(err, "cart_repository_pg: list failed")
	}
	defer rows.Close()

	out := make([]cartdom.Item, 0, 8)
	for rows.Next() {
		var (
			it     cartdom.Item
			family string
		)
		if err := rows.Scan(
			&it.RowID, &family, &it.ProductRef, &it.MerchRef, &it.VariantRef, &it.Qty,
			&it.DisplayName, &it.DisplayImage, &it.UnitPrice,
		); err != nil {
			return nil, errors.Wrap(err, "cart_repository_pg: scan failed")
		}
		it.Family = cartdom.Family(family)
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "cart_repository_pg: rows failed")
	}
	return out, nil
}

func (r *CartRepositoryPG) Add(ctx context.Context, ownerID string, k cartdom.Key, qty int) (cartdom.Item, error) {
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

	exists, err := r.catalogExists(ctx, k)
	if err != nil {
		return cartdom.Item{}, err
	}
	if !exists {
		return cartdom.Item{}, cartdom.ErrNotFound
	}

	now := time.Now().UTC()
	const q = `
INSERT INTO cart_items (id, owner_id, item_family, product_ref, merch_ref, variant_ref, qty, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
ON CONFLICT (owner_id, item_family, product_ref, merch_ref, variant_ref)
DO UPDATE SET qty = cart_items.qty + EXCLUDED.qty, updated_at = EXCLUDED.updated_at
RETURNING id, qty`

	var (
		rowID  string
		newQty int
	)
	err = r.DB.QueryRowContext(ctx, q,
		uuid.NewString(), oid, string(k.Family),
		strings.TrimSpace(k.ProductRef), strings.TrimSpace(k.MerchRef), strings.TrimSpace(k.VariantRef),
		qty, now,
	).Scan(&rowID, &newQty)
	if err != nil {
		return cartdom.Item{}, errors.Wrap(err, "cart_repository_pg: upsert failed")
	}

	return cartdom.Item{RowID: rowID, Key: k, Qty: newQty}, nil
}

func (r *CartRepositoryPG) SetQuantity(ctx context.Context, ownerID, rowID string, qty int) (cartdom.Item, error) {
	oid, err := r.guard(ownerID)
	if err != nil {
		return cartdom.Item{}, err
	}
	rid := strings.TrimSpace(rowID)
	if rid == "" {
		return cartdom.Item{}, cartdom.ErrNotFound
	}

	if qty <= 0 {
		// equivalent to remove; tombstone result
		if err := r.Remove(ctx, oid, rid); err != nil {
			return cartdom.Item{}, err
		}
		return cartdom.Item{}, nil
	}

	const q = `
UPDATE cart_items
SET qty = $3, updated_at = $4
WHERE owner_id = $1 AND id = $2
RETURNING id, item_family, product_ref, merch_ref, variant_ref, qty`

	var (
		it     cartdom.Item
		family string
	)
	err = r.DB.QueryRowContext(ctx, q, oid, rid, qty, time.Now().UTC()).Scan(
		&it.RowID, &family, &it.ProductRef, &it.MerchRef, &it.VariantRef, &it.Qty,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// absent or owned by someone else: indistinguishable on purpose
			return cartdom.Item{}, cartdom.ErrNotFound
		}
		return cartdom.Item{}, errors.Wrap(err, "cart_repository_pg: update failed")
	}
	it.Family = cartdom.Family(family)
	return it, nil
}

func (r *CartRepositoryPG) Remove(ctx context.Context, ownerID, rowID string) error {
	oid, err := r.guard(ownerID)
	if err != nil {
		return err
	}
	rid := strings.TrimSpace(rowID)
	if rid == "" {
		return nil
	}

	// idempotent: zero rows affected is success
	_, err = r.DB.ExecContext(ctx,
		`DELETE FROM cart_items WHERE owner_id = $1 AND id = $2`, oid, rid)
	if err != nil {
		return errors.Wrap(err, "cart_repository_pg: delete failed")
	}
	return nil
}

func (r *CartRepositoryPG) Clear(ctx context.Context, ownerID string) error {
	oid, err := r.guard(ownerID)
	if err != nil {
		return err
	}

	_, err = r.DB.ExecContext(ctx,
		`DELETE FROM cart_items WHERE owner_id = $1`, oid)
	if err != nil {
		return errors.Wrap(err, "cart_repository_pg: clear failed")
	}
	return nil
}

func (r *CartRepositoryPG) catalogExists(ctx context.Context, k cartdom.Key) (bool, error) {
	var (
		q    string
		args []any
	)
	switch {
	case k.Family == cartdom.FamilyMerch:
		q = `SELECT EXISTS (SELECT 1 FROM merch_items WHERE ref = $1)`
		args = []any{k.Ref()}
	case strings.TrimSpace(k.VariantRef) != "":
		q = `SELECT EXISTS (SELECT 1 FROM product_variants WHERE product_ref = $1 AND ref = $2)`
		args = []any{k.Ref(), strings.TrimSpace(k.VariantRef)}
	default:
		q = `SELECT EXISTS (SELECT 1 FROM products WHERE ref = $1)`
		args = []any{k.Ref()}
	}

	var exists bool
	if err := r.DB.QueryRowContext(ctx, q, args...).Scan(&exists); err != nil {
		return false, errors.Wrap(err, "cart_repository_pg: catalog check failed")
	}
	return exists, nil
}
