package auth

import (
	"log/slog"
	"net/http"
	"strings"
)

// GuestSessionHeader carries the browser session id for anonymous carts.
const GuestSessionHeader = "X-Guest-Session"

// Middleware resolves the request's actor and stores it in the context.
// A bad bearer token downgrades to anonymous rather than failing the
// request; endpoints that need authentication enforce it themselves.
func Middleware(verifier *Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := Anonymous(r.Header.Get(GuestSessionHeader))

			if token := bearerToken(r); token != "" {
				verified, err := verifier.Verify(token)
				if err != nil {
					logger.WarnContext(r.Context(), "rejected auth token", "error", err)
				} else {
					actor = verified
				}
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
