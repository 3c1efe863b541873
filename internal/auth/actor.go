package auth

import (
	"context"
	"errors"
)

var (
	// ErrUnauthenticated signals that the current actor must log in before
	// the requested operation. Handlers translate it into a login redirect.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrForbidden signals that the actor is authenticated but lacks the
	// role the operation requires.
	ErrForbidden = errors.New("operation not permitted")
)

// Role distinguishes the kinds of actors the storefront recognizes.
type Role string

const (
	RoleAnonymous Role = "anonymous"
	RoleUser      Role = "user"
	RoleAdmin     Role = "admin"
)

// Actor identifies who is driving a request. Anonymous actors carry a
// guest session id so their cart survives until they log in.
type Actor struct {
	Role  Role
	ID    string
	Email string
}

// Anonymous builds a guest actor scoped to a browser session.
func Anonymous(sessionID string) Actor {
	return Actor{Role: RoleAnonymous, ID: sessionID}
}

// CartKey is the identity carts are stored under. Guests use their
// session id, authenticated actors their user id.
func (a Actor) CartKey() string {
	return a.ID
}

func (a Actor) Authenticated() bool {
	return a.Role == RoleUser || a.Role == RoleAdmin
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

type actorContextKey struct{}

// WithActor stores the actor in the request context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// CurrentActor returns the actor resolved by the middleware. A context
// without one is treated as an anonymous actor with no session.
func CurrentActor(ctx context.Context) Actor {
	if actor, ok := ctx.Value(actorContextKey{}).(Actor); ok {
		return actor
	}
	return Actor{Role: RoleAnonymous}
}

// RequireAuthenticated returns the current actor, or ErrUnauthenticated
// for guests. Checkout calls this before any payment work begins.
func RequireAuthenticated(ctx context.Context) (Actor, error) {
	actor := CurrentActor(ctx)
	if !actor.Authenticated() {
		return Actor{}, ErrUnauthenticated
	}
	return actor, nil
}

// RequireAdmin returns the current actor only if it holds the admin role.
func RequireAdmin(ctx context.Context) (Actor, error) {
	actor, err := RequireAuthenticated(ctx)
	if err != nil {
		return Actor{}, err
	}
	if !actor.IsAdmin() {
		return Actor{}, ErrForbidden
	}
	return actor, nil
}
