// internal/domain/catalog/entity.go
package catalog

import "strings"

// Snapshot is the presentation/pricing view of one purchasable catalog entry
// at read time. It is joined onto cart rows during a full reload; cart rows
// never own these fields.
type Snapshot struct {
	Name string
	// ImageRef is a storage object path (resolved to a public URL by the
	// image resolver) or an absolute URL.
	ImageRef string
	// Price is in the store's base currency unit.
	Price int
}

// Merged applies a variant override (price / image) onto a product snapshot.
// Empty override fields keep the product values.
func (s Snapshot) Merged(v *Snapshot) Snapshot {
	if v == nil {
		return s
	}
	out := s
	if strings.TrimSpace(v.Name) != "" {
		out.Name = v.Name
	}
	if strings.TrimSpace(v.ImageRef) != "" {
		out.ImageRef = v.ImageRef
	}
	if v.Price > 0 {
		out.Price = v.Price
	}
	return out
}
