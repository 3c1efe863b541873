// Package api wires the storefront's HTTP surface: cart, checkout, and
// order endpoints behind the shared actor-resolution middleware.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shopworks/storefront/internal/auth"
	cartapp "github.com/shopworks/storefront/internal/cart/app"
	checkoutapp "github.com/shopworks/storefront/internal/checkout/app"
	checkoutports "github.com/shopworks/storefront/internal/checkout/ports"
	ordersapp "github.com/shopworks/storefront/internal/orders/app"
)

type Dependencies struct {
	Carts       *cartapp.Service
	Checkout    *checkoutapp.Service
	Orders      *ordersapp.Service
	Idempotency checkoutports.IdempotencyStore
	Verifier    *auth.Verifier
	Logger      *slog.Logger

	// Metrics is optional; without it no request metrics are recorded.
	Metrics *Metrics

	// MetricsPath overrides where the metrics placeholder answers.
	// Defaults to /metrics.
	MetricsPath string

	// CheckReady probes the backing stores for the readiness endpoint.
	CheckReady func(ctx context.Context) error
}

func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(withRecovery(deps.Logger))
	r.Use(withLogging(deps.Logger))
	if deps.Metrics != nil {
		r.Use(withMetrics(deps.Metrics))
	}
	r.Use(auth.Middleware(deps.Verifier, deps.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if deps.CheckReady != nil {
			if err := deps.CheckReady(req.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "not ready",
					"error":  err.Error(),
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	metricsPath := deps.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	r.Get(metricsPath, func(w http.ResponseWriter, _ *http.Request) {
		// Metrics ship over OTLP; this endpoint exists for probes that
		// expect it to answer.
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("# metrics are exported via OTLP\n"))
	})

	NewCartHandler(deps.Carts).Register(r)
	NewCheckoutHandler(deps.Checkout, deps.Idempotency, deps.Logger).Register(r)
	NewOrdersHandler(deps.Orders).Register(r)

	return r
}
