package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shopworks/storefront/internal/auth"
	checkoutapp "github.com/shopworks/storefront/internal/checkout/app"
	"github.com/shopworks/storefront/internal/checkout/domain"
	"github.com/shopworks/storefront/internal/checkout/ports"
)

// CheckoutHandler exposes the checkout session lifecycle. Every endpoint
// requires an authenticated buyer; guests get the login hint instead.
type CheckoutHandler struct {
	checkout *checkoutapp.Service
	idem     ports.IdempotencyStore
	logger   *slog.Logger
}

func NewCheckoutHandler(checkout *checkoutapp.Service, idem ports.IdempotencyStore, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, idem: idem, logger: logger}
}

func (h *CheckoutHandler) Register(r chi.Router) {
	r.Post("/v1/checkout", h.begin)
	r.Get("/v1/checkout/{sessionID}", h.get)
	r.Post("/v1/checkout/{sessionID}/token", h.retryToken)
	r.Post("/v1/checkout/{sessionID}/submit", h.submit)
}

// sessionResponse is the wire view of a session. The last payment nonce
// stays server-side.
type sessionResponse struct {
	ID            string    `json:"id"`
	State         string    `json:"state"`
	ClientToken   string    `json:"client_token,omitempty"`
	Attempt       int       `json:"attempt"`
	OrderID       string    `json:"order_id,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func newSessionResponse(session *domain.Session) sessionResponse {
	return sessionResponse{
		ID:            session.ID,
		State:         string(session.State),
		ClientToken:   session.ClientToken,
		Attempt:       session.Attempt,
		OrderID:       session.OrderID,
		FailureReason: session.FailureReason,
		CreatedAt:     session.CreatedAt,
		UpdatedAt:     session.UpdatedAt,
	}
}

func (h *CheckoutHandler) begin(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequireAuthenticated(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	session, err := h.checkout.Begin(r.Context(), actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, newSessionResponse(session))
}

func (h *CheckoutHandler) get(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequireAuthenticated(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	session, err := h.checkout.Get(r.Context(), actor, chi.URLParam(r, "sessionID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newSessionResponse(session))
}

func (h *CheckoutHandler) retryToken(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequireAuthenticated(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	session, err := h.checkout.RetryToken(r.Context(), actor, chi.URLParam(r, "sessionID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newSessionResponse(session))
}

func (h *CheckoutHandler) submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, err := auth.RequireAuthenticated(ctx)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))

	if idemKey != "" {
		stored, err := h.idem.Get(ctx, idemKey)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if stored != nil {
			if stored.SessionID != sessionID {
				writeError(w, http.StatusUnprocessableEntity, "Idempotency-Key was used for a different checkout session")
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(stored.StatusCode)
			_, _ = w.Write(stored.Body)
			return
		}
	}

	var payload struct {
		PaymentNonce string `json:"payment_nonce"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	session, err := h.checkout.Submit(ctx, actor, sessionID, payload.PaymentNonce)
	if err != nil {
		// Failures are not replayable; the buyer retries with a fresh
		// nonce and the session carries the failure reason.
		writeDomainError(w, err)
		return
	}

	body, err := json.Marshal(newSessionResponse(session))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if idemKey != "" {
		stored := ports.StoredResponse{
			SessionID:  sessionID,
			StatusCode: http.StatusOK,
			Body:       body,
			OrderID:    session.OrderID,
		}
		if err := h.idem.Save(ctx, idemKey, stored); err != nil {
			// The response is still correct; only replay protection for
			// this key is lost. Transaction-id de-dup still holds.
			h.logger.ErrorContext(ctx, "failed to save idempotent response",
				"idempotency_key", idemKey, "session_id", sessionID, "error", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
