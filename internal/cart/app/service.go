package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopworks/storefront/internal/cart/domain"
	"github.com/shopworks/storefront/internal/cart/ports"
	"github.com/shopworks/storefront/internal/catalog"
)

// Service implements cart operations on top of an injectable persistence
// backend. Constructed once per process and passed by reference; there is
// no package-level cart state.
type Service struct {
	store   ports.Store
	catalog catalog.Products
	logger  *slog.Logger
}

func NewService(store ports.Store, products catalog.Products, logger *slog.Logger) *Service {
	return &Service{store: store, catalog: products, logger: logger}
}

// Add puts the product into the actor's cart. Adding a product that is
// already a member changes nothing; the returned bool reports whether the
// cart actually grew.
func (s *Service) Add(ctx context.Context, cartKey, productID string) (*domain.Cart, bool, error) {
	product, err := s.catalog.Get(ctx, productID)
	if err != nil {
		return nil, false, err
	}

	added := false
	cart, err := s.store.Update(ctx, cartKey, func(cart *domain.Cart) error {
		added = cart.Add(domain.CartItem{
			ProductID:  product.ID,
			Name:       product.Name,
			PriceCents: product.PriceCents,
			Unit:       product.Unit,
			AddedAt:    time.Now().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("add to cart: %w", err)
	}

	return cart, added, nil
}

// Remove drops the product from the cart. Removing a non-member is a
// no-op, not an error.
func (s *Service) Remove(ctx context.Context, cartKey, productID string) (*domain.Cart, error) {
	cart, err := s.store.Update(ctx, cartKey, func(cart *domain.Cart) error {
		cart.Remove(productID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("remove from cart: %w", err)
	}
	return cart, nil
}

// Get returns the cart with member prices refreshed from the catalog, so
// totals always reflect what the buyer would pay right now. Products that
// left the catalog keep their last known price for display.
func (s *Service) Get(ctx context.Context, cartKey string) (*domain.Cart, error) {
	cart, err := s.store.Get(ctx, cartKey)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if cart.Empty() {
		return cart, nil
	}

	products, err := s.catalog.GetMany(ctx, cart.ProductIDs())
	if err != nil {
		return nil, fmt.Errorf("refresh cart prices: %w", err)
	}

	for i, item := range cart.Items {
		if product, ok := products[item.ProductID]; ok {
			cart.Items[i].Name = product.Name
			cart.Items[i].PriceCents = product.PriceCents
		}
	}

	return cart, nil
}

// Clear empties the actor's cart. Checkout calls this exactly once, after
// the order write has committed.
func (s *Service) Clear(ctx context.Context, cartKey string) error {
	if err := s.store.Delete(ctx, cartKey); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// MergeGuest folds a guest cart into the user's cart after login and
// discards the guest copy. User items keep their position; guest items
// append in their original order, duplicates dropped.
func (s *Service) MergeGuest(ctx context.Context, guestKey, userKey string) (*domain.Cart, error) {
	if guestKey == "" || guestKey == userKey {
		return s.Get(ctx, userKey)
	}

	guestCart, err := s.store.Get(ctx, guestKey)
	if err != nil {
		return nil, fmt.Errorf("load guest cart: %w", err)
	}

	merged, err := s.store.Update(ctx, userKey, func(cart *domain.Cart) error {
		for _, item := range guestCart.Items {
			cart.Add(item)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("merge guest cart: %w", err)
	}

	if err := s.store.Delete(ctx, guestKey); err != nil {
		// The merged cart is already durable; a dangling guest key only
		// wastes a TTL'd redis entry.
		s.logger.WarnContext(ctx, "failed to delete guest cart after merge",
			"guest_key", guestKey, "error", err)
	}

	return merged, nil
}
