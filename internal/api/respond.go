package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopworks/storefront/internal/auth"
	"github.com/shopworks/storefront/internal/catalog"
	checkoutapp "github.com/shopworks/storefront/internal/checkout/app"
	checkoutdomain "github.com/shopworks/storefront/internal/checkout/domain"
	checkoutports "github.com/shopworks/storefront/internal/checkout/ports"
	ordersports "github.com/shopworks/storefront/internal/orders/ports"
	"github.com/shopworks/storefront/internal/payment"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

// writeDomainError maps service errors onto the API's status taxonomy.
// Unknown errors become an opaque 500; their detail belongs in logs, not
// in responses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"error": "authentication required",
			"login": "/login",
		})
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, http.StatusForbidden, "operation not permitted")
	case errors.Is(err, checkoutapp.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, "cart is empty")
	case errors.Is(err, checkoutapp.ErrMissingNonce):
		writeError(w, http.StatusBadRequest, "payment_nonce is required")
	case errors.Is(err, checkoutapp.ErrNoClientToken):
		writeError(w, http.StatusConflict, "no client token, retry the token fetch first")
	case errors.Is(err, checkoutports.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "checkout session not found")
	case errors.Is(err, checkoutports.ErrSubmissionInFlight):
		writeError(w, http.StatusConflict, "a submission is already in flight")
	case errors.Is(err, checkoutdomain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, catalog.ErrProductNotFound):
		writeError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, ordersports.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, payment.ErrCardDeclined):
		writeError(w, http.StatusPaymentRequired, "card declined")
	case errors.Is(err, payment.ErrInvalidNonce):
		writeError(w, http.StatusUnprocessableEntity, "payment nonce is invalid or expired")
	case errors.Is(err, payment.ErrNonceAlreadyUsed):
		writeError(w, http.StatusUnprocessableEntity, "payment nonce was already used, re-enter card details")
	case errors.Is(err, payment.ErrGatewayUnavailable):
		writeError(w, http.StatusBadGateway, "payment gateway unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
