package domain

import "slices"

// Favorites is the set of favorite product ids, kept in insertion order.
type Favorites []string

// Contains reports whether productID is a favorite.
func (f Favorites) Contains(productID string) bool {
	return slices.Contains(f, productID)
}

// Add appends productID unless it is already present. The bool reports
// whether the set changed.
func (f Favorites) Add(productID string) (Favorites, bool) {
	if f.Contains(productID) {
		return f, false
	}
	return append(f, productID), true
}

// Remove filters productID out. Removing an absent id is not an error; the
// bool reports whether the set changed.
func (f Favorites) Remove(productID string) (Favorites, bool) {
	idx := slices.Index(f, productID)
	if idx < 0 {
		return f, false
	}
	return slices.Delete(f, idx, idx+1), true
}

// FavoriteLine is a favorite with its product resolved for display.
// Product is nil when the referenced product no longer exists.
type FavoriteLine struct {
	ProductID string          `json:"product_id"`
	Product   *ProductSummary `json:"product"`
}
