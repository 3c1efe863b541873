package ports

import (
	"context"

	"github.com/shopworks/storefront/internal/cart/domain"
)

// Store persists carts keyed by actor identity. Carts are read-modify-
// written as a whole unit; Update must serialize concurrent mutations of
// the same key so rapid add/remove sequences cannot lose writes.
type Store interface {
	// Get returns the cart for the key, or a fresh empty cart if none is
	// stored yet.
	Get(ctx context.Context, key string) (*domain.Cart, error)

	// Update applies fn to the stored cart under the store's own
	// serialization and persists the result.
	Update(ctx context.Context, key string, fn func(cart *domain.Cart) error) (*domain.Cart, error)

	// Delete drops the cart. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
