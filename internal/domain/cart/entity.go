// internal/domain/cart/entity.go
package cart

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidItem = errors.New("cart: invalid item")
	ErrNotFound    = errors.New("cart: not found")
)

// DefaultGuestCartTTL is the inactivity window after which a device cart becomes
// eligible for deletion (Redis key TTL / file envelope check).
const DefaultGuestCartTTL = 7 * 24 * time.Hour

// Family discriminates the two catalog spaces a line item can reference.
type Family string

const (
	FamilyProduct Family = "product"
	FamilyMerch   Family = "merch"
)

// Key is the purchasable configuration of a line item.
// Exactly one of ProductRef/MerchRef is set, consistent with Family.
// VariantRef is optional and only meaningful for products.
// Two lines with equal keys represent the same configuration and must be merged.
type Key struct {
	Family     Family `json:"itemFamily" firestore:"itemFamily"`
	ProductRef string `json:"productRef,omitempty" firestore:"productRef,omitempty"`
	MerchRef   string `json:"merchRef,omitempty" firestore:"merchRef,omitempty"`
	VariantRef string `json:"variantRef,omitempty" firestore:"variantRef,omitempty"`
}

// Item represents one line of a cart.
//
// RowID is set only when the line is backed by the remote service (its row
// identifier); purely local lines never carry one. DisplayName, DisplayImage
// and UnitPrice are denormalized presentation snapshots refreshed from the
// catalog on every full reload; they are never the source of truth.
type Item struct {
	RowID string `json:"id,omitempty" firestore:"-"`

	Key

	DisplayName  string `json:"displayName" firestore:"displayName"`
	DisplayImage string `json:"displayImage" firestore:"displayImage"`

	// UnitPrice is in the store's base currency unit (e.g. yen).
	UnitPrice int `json:"unitPrice" firestore:"unitPrice"`

	Qty int `json:"quantity" firestore:"qty"`
}

// NewKey normalizes and validates a configuration key.
func NewKey(family Family, productRef, merchRef, variantRef string) (Key, error) {
	k := Key{
		Family:     family,
		ProductRef: strings.TrimSpace(productRef),
		MerchRef:   strings.TrimSpace(merchRef),
		VariantRef: strings.TrimSpace(variantRef),
	}
	if err := k.Validate(); err != nil {
		return Key{}, err
	}
	return k, nil
}

// NewItem builds a validated line item. qty must be >= 1.
func NewItem(k Key, qty int) (Item, error) {
	if err := k.Validate(); err != nil {
		return Item{}, err
	}
	if qty < 1 {
		return Item{}, ErrInvalidItem
	}
	return Item{Key: k, Qty: qty}, nil
}

// Validate enforces the family/reference invariants.
func (k Key) Validate() error {
	p := strings.TrimSpace(k.ProductRef)
	m := strings.TrimSpace(k.MerchRef)

	switch k.Family {
	case FamilyProduct:
		if p == "" || m != "" {
			return ErrInvalidItem
		}
	case FamilyMerch:
		if m == "" || p != "" {
			return ErrInvalidItem
		}
		// variants exist only for products
		if strings.TrimSpace(k.VariantRef) != "" {
			return ErrInvalidItem
		}
	default:
		return ErrInvalidItem
	}
	return nil
}

// Equal reports whether two keys identify the same configuration.
func (k Key) Equal(o Key) bool {
	return k.Family == o.Family &&
		strings.TrimSpace(k.ProductRef) == strings.TrimSpace(o.ProductRef) &&
		strings.TrimSpace(k.MerchRef) == strings.TrimSpace(o.MerchRef) &&
		strings.TrimSpace(k.VariantRef) == strings.TrimSpace(o.VariantRef)
}

// Ref returns the catalog reference for the key's family.
func (k Key) Ref() string {
	if k.Family == FamilyMerch {
		return strings.TrimSpace(k.MerchRef)
	}
	return strings.TrimSpace(k.ProductRef)
}

// String renders a deterministic composite key (used as map key / item key in
// persisted records).
func (k Key) String() string {
	return string(k.Family) + "__" + k.Ref() + "__" + strings.TrimSpace(k.VariantRef)
}

// Summary is the derived aggregate view of a cart. It is recomputed from the
// current item list on every read and never persisted.
type Summary struct {
	ItemCount int `json:"itemCount"`
	Total     int `json:"total"`
}

// Summarize computes count and total for a list of items.
func Summarize(items []Item) Summary {
	var s Summary
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		s.ItemCount += it.Qty
		s.Total += it.UnitPrice * it.Qty
	}
	return s
}

// MergeAdd upserts it into items by configuration key: an existing line for the
// same key accumulates quantity, otherwise the line is appended. The input
// slice is not mutated.
func MergeAdd(items []Item, it Item) []Item {
	out := CloneItems(items)
	idx := FindIndex(out, it.Key)
	if idx >= 0 {
		out[idx].Qty += it.Qty
		return out
	}
	return append(out, it)
}

// FindIndex returns the index of the line matching k, or -1.
func FindIndex(items []Item, k Key) int {
	for i := range items {
		if items[i].Key.Equal(k) {
			return i
		}
	}
	return -1
}

// RemoveAt drops the line at idx preserving order.
func RemoveAt(items []Item, idx int) []Item {
	if idx < 0 || idx >= len(items) {
		return items
	}
	return append(items[:idx:idx], items[idx+1:]...)
}

// CloneItems copies a slice of items, dropping empty lines.
func CloneItems(src []Item) []Item {
	out := make([]Item, 0, len(src))
	for _, it := range src {
		if it.Qty <= 0 {
			continue
		}
		out = append(out, it)
	}
	return out
}

// StripRowIDs returns a copy with remote row identifiers removed. Device
// records must never contain remote ids (and vice versa).
func StripRowIDs(src []Item) []Item {
	out := CloneItems(src)
	for i := range out {
		out[i].RowID = ""
	}
	return out
}
