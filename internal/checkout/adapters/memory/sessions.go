package memory

import (
	"context"
	"sync"

	"github.com/shopworks/storefront/internal/checkout/domain"
	"github.com/shopworks/storefront/internal/checkout/ports"
)

// SessionStore keeps checkout sessions in memory for tests and local
// development.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
	locks    map[string]bool
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]domain.Session),
		locks:    make(map[string]bool),
	}
}

func (s *SessionStore) Save(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = *session
	return nil
}

func (s *SessionStore) Get(_ context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, ports.ErrSessionNotFound
	}
	cloned := session
	return &cloned, nil
}

func (s *SessionStore) AcquireSubmitLock(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locks[id] {
		return ports.ErrSubmissionInFlight
	}
	s.locks[id] = true
	return nil
}

func (s *SessionStore) ReleaseSubmitLock(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, id)
	return nil
}
