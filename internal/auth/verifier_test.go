package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func signTestToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestVerify(t *testing.T) {
	verifier := NewVerifier("secret")

	t.Run("user token", func(t *testing.T) {
		token := signTestToken(t, "secret", jwt.MapClaims{
			"sub":   "buyer-1",
			"email": "buyer@example.com",
			"exp":   time.Now().Add(time.Hour).Unix(),
		})

		actor, err := verifier.Verify(token)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if actor.Role != RoleUser {
			t.Fatalf("expected user role, got %s", actor.Role)
		}
		if actor.ID != "buyer-1" || actor.Email != "buyer@example.com" {
			t.Fatalf("unexpected actor: %+v", actor)
		}
	})

	t.Run("admin claim elevates role", func(t *testing.T) {
		token := signTestToken(t, "secret", jwt.MapClaims{
			"sub":   "admin-1",
			"admin": true,
			"exp":   time.Now().Add(time.Hour).Unix(),
		})

		actor, err := verifier.Verify(token)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !actor.IsAdmin() {
			t.Fatalf("expected admin, got %s", actor.Role)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		token := signTestToken(t, "other-secret", jwt.MapClaims{
			"sub": "buyer-1",
			"exp": time.Now().Add(time.Hour).Unix(),
		})

		if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		token := signTestToken(t, "secret", jwt.MapClaims{
			"sub": "buyer-1",
			"exp": time.Now().Add(-time.Minute).Unix(),
		})

		if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("missing subject", func(t *testing.T) {
		token := signTestToken(t, "secret", jwt.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		})

		if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := verifier.Verify("not-a-token"); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})
}
