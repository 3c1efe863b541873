package ports

import (
	"context"
	"errors"

	"github.com/shopworks/storefront/internal/checkout/domain"
)

var (
	// ErrSessionNotFound covers unknown and expired sessions alike; an
	// expired checkout starts over and re-fetches its token.
	ErrSessionNotFound = errors.New("checkout session not found")

	// ErrSubmissionInFlight means another submission holds the session's
	// submit lock. Double-clicks land here and are ignored.
	ErrSubmissionInFlight = errors.New("a submission is already in flight for this session")
)

// SessionStore persists checkout sessions and owns the per-session
// submit lock that keeps at most one submission in flight.
type SessionStore interface {
	Save(ctx context.Context, session *domain.Session) error
	Get(ctx context.Context, id string) (*domain.Session, error)

	// AcquireSubmitLock reserves the session for one submission attempt.
	AcquireSubmitLock(ctx context.Context, id string) error
	ReleaseSubmitLock(ctx context.Context, id string) error
}
