package domain

import "time"

// CartItem references a product selected for purchase. PriceCents mirrors
// the live catalog price at last read; it is display data, not a snapshot.
type CartItem struct {
	ProductID  string    `json:"product_id"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"price_cents"`
	Unit       string    `json:"unit"`
	AddedAt    time.Time `json:"added_at"`
}

// Cart is an ordered set of items keyed by product id. Insertion order is
// preserved for display; membership is unique per product.
type Cart struct {
	Key       string     `json:"key"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func New(key string) *Cart {
	return &Cart{Key: key}
}

func (c *Cart) Contains(productID string) bool {
	for _, item := range c.Items {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}

// Add appends the item unless its product is already present. Re-adding
// is a no-op; the cart has no quantity field.
func (c *Cart) Add(item CartItem) bool {
	if c.Contains(item.ProductID) {
		return false
	}
	c.Items = append(c.Items, item)
	return true
}

// Remove drops the item for the given product id. Removing an absent
// product leaves the cart unchanged.
func (c *Cart) Remove(productID string) bool {
	for i, item := range c.Items {
		if item.ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return true
		}
	}
	return false
}

// TotalCents recomputes the sum of member prices on every call so it can
// never drift from membership.
func (c *Cart) TotalCents() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.PriceCents
	}
	return total
}

func (c *Cart) Size() int {
	return len(c.Items)
}

func (c *Cart) Empty() bool {
	return len(c.Items) == 0
}

func (c *Cart) ProductIDs() []string {
	ids := make([]string, len(c.Items))
	for i, item := range c.Items {
		ids[i] = item.ProductID
	}
	return ids
}
