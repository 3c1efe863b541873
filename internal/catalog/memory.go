package catalog

import (
	"context"
	"sync"
)

// MemoryCatalog backs tests and local development. Prices are mutable so
// snapshot behavior can be exercised against live price changes.
type MemoryCatalog struct {
	mu       sync.RWMutex
	products map[string]Product
}

func NewMemoryCatalog(products ...Product) *MemoryCatalog {
	c := &MemoryCatalog{products: make(map[string]Product, len(products))}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

func (c *MemoryCatalog) Get(_ context.Context, id string) (*Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	product, ok := c.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return &product, nil
}

func (c *MemoryCatalog) GetMany(_ context.Context, ids []string) (map[string]Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make(map[string]Product, len(ids))
	for _, id := range ids {
		if product, ok := c.products[id]; ok {
			result[id] = product
		}
	}
	return result, nil
}

// SetPrice changes a product's live price. Used by tests to prove order
// totals stay pinned to the snapshot taken at placement.
func (c *MemoryCatalog) SetPrice(id string, priceCents int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if product, ok := c.products[id]; ok {
		product.PriceCents = priceCents
		c.products[id] = product
	}
}
