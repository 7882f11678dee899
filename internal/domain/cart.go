package domain

import (
	"slices"
	"time"
)

// CartItem is one line of an account's cart. (ProductID, Size, Color) is
// unique within a cart; a nil Size or Color is its own key, distinct from
// every label.
type CartItem struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Size      *string   `json:"size,omitempty"`
	Color     *string   `json:"color,omitempty"`
	AddedAt   time.Time `json:"added_at"`
}

// Matches reports whether the item has the given product, size and color.
func (i CartItem) Matches(productID string, size, color *string) bool {
	return i.ProductID == productID && sameLabel(i.Size, size) && sameLabel(i.Color, color)
}

func sameLabel(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// MaxLineQuantity caps the quantity of a single cart line.
const MaxLineQuantity = 1000

// Cart is the ordered list of line items. Order is insertion order.
type Cart []CartItem

// FindMatch returns the index of the item with the given triple, or -1.
func (c Cart) FindMatch(productID string, size, color *string) int {
	return slices.IndexFunc(c, func(i CartItem) bool {
		return i.Matches(productID, size, color)
	})
}

// FindItem returns the index of the item with the given id, or -1.
func (c Cart) FindItem(itemID string) int {
	return slices.IndexFunc(c, func(i CartItem) bool { return i.ID == itemID })
}

// Merge adds item to the cart. When an item with the same triple exists its
// quantity is increased and that item is returned; otherwise item is
// appended as is. The bool reports whether an existing item absorbed it.
func (c Cart) Merge(item CartItem) (Cart, CartItem, bool) {
	if idx := c.FindMatch(item.ProductID, item.Size, item.Color); idx >= 0 {
		c[idx].Quantity += item.Quantity
		return c, c[idx], true
	}
	return append(c, item), item, false
}

// RemoveItem drops the item with the given id. The bool is false when no
// such item exists, in which case the cart is returned unchanged.
func (c Cart) RemoveItem(itemID string) (Cart, bool) {
	idx := c.FindItem(itemID)
	if idx < 0 {
		return c, false
	}
	return slices.Delete(c, idx, idx+1), true
}

// TotalQuantity sums the quantities of all items.
func (c Cart) TotalQuantity() int {
	total := 0
	for _, i := range c {
		total += i.Quantity
	}
	return total
}

// ProductIDs returns the distinct product ids in cart order.
func (c Cart) ProductIDs() []string {
	seen := make(map[string]struct{}, len(c))
	ids := make([]string, 0, len(c))
	for _, i := range c {
		if _, ok := seen[i.ProductID]; ok {
			continue
		}
		seen[i.ProductID] = struct{}{}
		ids = append(ids, i.ProductID)
	}
	return ids
}

// CartLine is a cart item with its product resolved for display. Product
// is nil when the referenced product no longer exists.
type CartLine struct {
	CartItem
	Product *ProductSummary `json:"product"`
}

// CartView is the listing returned to the client.
type CartView struct {
	Items         []CartLine `json:"items"`
	TotalQuantity int        `json:"total_quantity"`
	Subtotal      int64      `json:"subtotal"`
	Currency      string     `json:"currency,omitempty"`
}
