package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// State is a checkout session's position in the payment flow. The
// transition table makes illegal moves (submitting with no token,
// succeeding twice) unrepresentable.
type State string

const (
	StateIdle         State = "idle"
	StateTokenLoading State = "token_loading"
	StateReady        State = "ready"
	StateSubmitting   State = "submitting"
	StateSucceeded    State = "succeeded"
	StateFailed       State = "failed"
)

var ErrInvalidTransition = errors.New("invalid checkout state transition")

var transitions = map[State][]State{
	StateIdle:         {StateTokenLoading},
	StateTokenLoading: {StateReady, StateFailed},
	StateReady:        {StateSubmitting},
	StateSubmitting:   {StateSucceeded, StateFailed},
	StateFailed:       {StateTokenLoading, StateReady},
}

// Session is one buyer's pass through checkout. It lives server-side so
// reloads and the login detour cannot lose progress.
type Session struct {
	ID      string `json:"id"`
	BuyerID string `json:"buyer_id"`
	State   State  `json:"state"`

	// ClientToken authorizes the hosted payment fields. Empty until
	// token_loading completes.
	ClientToken string `json:"client_token,omitempty"`

	// Attempt counts submissions; results are applied only against the
	// attempt that produced them.
	Attempt int `json:"attempt"`

	// LastNonce remembers the previous submission's nonce so a stale
	// nonce fails loudly instead of being reused. The API layer maps
	// sessions to response DTOs, so this never leaves the service.
	LastNonce string `json:"last_nonce,omitempty"`

	// TransactionID is set the moment payment capture succeeds and is
	// never dropped, even if the order write then fails. It is the
	// de-duplication key for retries.
	TransactionID string `json:"transaction_id,omitempty"`

	OrderID       string    `json:"order_id,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func NewSession(buyerID string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		BuyerID:   buyerID,
		State:     StateIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo moves the session to next, or fails if the state machine
// has no such edge.
func (s *Session) TransitionTo(next State) error {
	for _, allowed := range transitions[s.State] {
		if allowed == next {
			s.State = next
			s.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.State, next)
}

// Fail moves to failed and records why. The failure reason is user-facing.
func (s *Session) Fail(reason string) error {
	if err := s.TransitionTo(StateFailed); err != nil {
		return err
	}
	s.FailureReason = reason
	return nil
}

// Terminal reports whether the session can make no further progress.
func (s *Session) Terminal() bool {
	return s.State == StateSucceeded
}
