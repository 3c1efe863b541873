// Package catalog exposes the read side of the product catalog. Product
// management lives in the admin back office; the checkout pipeline only
// needs current prices for cart display and order snapshots.
package catalog

import (
	"context"
	"errors"
)

// ErrProductNotFound is returned when a product id has no live product.
var ErrProductNotFound = errors.New("product not found")

// Product is a catalog entry as the storefront sells it today. PriceCents
// is the live price; orders snapshot it at placement time.
type Product struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Unit       string `json:"unit"`
}

// Products is the catalog lookup port.
type Products interface {
	Get(ctx context.Context, id string) (*Product, error)
	// GetMany returns products for the given ids, keyed by id. Missing
	// ids are absent from the result, not an error.
	GetMany(ctx context.Context, ids []string) (map[string]Product, error)
}
