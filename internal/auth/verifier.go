package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v4"
)

// ErrInvalidToken covers expired, malformed, or badly signed tokens.
var ErrInvalidToken = errors.New("invalid auth token")

// Verifier validates bearer tokens issued by the external auth service.
// Token issuance and refresh live there; this side only reads identity.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

type claims struct {
	Email string `json:"email"`
	Admin bool   `json:"admin"`
	jwt.RegisteredClaims
}

// Verify parses a bearer token and returns the actor it identifies.
func (v *Verifier) Verify(token string) (Actor, error) {
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil {
		return Actor{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	tokenClaims, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid || tokenClaims.Subject == "" {
		return Actor{}, ErrInvalidToken
	}

	role := RoleUser
	if tokenClaims.Admin {
		role = RoleAdmin
	}

	return Actor{
		Role:  role,
		ID:    tokenClaims.Subject,
		Email: tokenClaims.Email,
	}, nil
}
