package memory

import (
	"context"
	"sync"

	"github.com/shopworks/storefront/internal/checkout/ports"
)

// Store keeps submit responses in memory so a retried Idempotency-Key
// replays the original outcome. For tests and single-process setups.
type Store struct {
	mu    sync.RWMutex
	items map[string]ports.StoredResponse
}

func NewStore() *Store {
	return &Store{items: make(map[string]ports.StoredResponse)}
}

// Get returns the stored response for key, or nil when the key is new.
func (s *Store) Get(_ context.Context, key string) (*ports.StoredResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.items[key]
	if !ok {
		return nil, nil
	}
	cloned := stored
	cloned.Body = make([]byte, len(stored.Body))
	copy(cloned.Body, stored.Body)
	return &cloned, nil
}

// Save records the response for key. First writer wins; a concurrent
// duplicate overwrites with an identical payload, so last-write is fine.
func (s *Store) Save(_ context.Context, key string, response ports.StoredResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = response
	return nil
}
