package memory

import (
	"context"
	"sync"
	"time"

	"github.com/shopworks/storefront/internal/cart/domain"
)

// Store is an in-memory cart store for tests and local development. A
// single mutex serializes all read-modify-write cycles.
type Store struct {
	mu    sync.Mutex
	carts map[string]domain.Cart
}

func NewStore() *Store {
	return &Store{carts: make(map[string]domain.Cart)}
}

func (s *Store) Get(_ context.Context, key string) (*domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(key), nil
}

func (s *Store) Update(_ context.Context, key string, fn func(cart *domain.Cart) error) (*domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.snapshot(key)
	if err := fn(cart); err != nil {
		return nil, err
	}
	cart.UpdatedAt = time.Now().UTC()

	s.carts[key] = *cart
	return s.snapshot(key), nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, key)
	return nil
}

// snapshot returns a deep copy so callers cannot mutate stored state.
func (s *Store) snapshot(key string) *domain.Cart {
	stored, ok := s.carts[key]
	if !ok {
		return domain.New(key)
	}

	cart := stored
	cart.Items = make([]domain.CartItem, len(stored.Items))
	copy(cart.Items, stored.Items)
	return &cart
}
