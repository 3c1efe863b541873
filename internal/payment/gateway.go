// Package payment defines the boundary to the card payment gateway. Card
// numbers never cross this boundary: the browser tokenizes card input in
// gateway-hosted fields and only the resulting single-use nonce reaches
// the storefront.
package payment

import (
	"context"
	"errors"
)

var (
	// ErrGatewayUnavailable covers timeouts, transport failures, and an
	// open circuit. Callers surface a retry path, never a dead end.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrCardDeclined is a gateway-side rejection of the tokenized card.
	ErrCardDeclined = errors.New("card declined")

	// ErrInvalidNonce means the nonce is malformed or expired.
	ErrInvalidNonce = errors.New("payment nonce invalid")

	// ErrNonceAlreadyUsed means the nonce was spent by an earlier sale
	// attempt. A fresh nonce is required, reuse never succeeds silently.
	ErrNonceAlreadyUsed = errors.New("payment nonce already used")
)

// SaleRequest submits a tokenized payment for capture.
type SaleRequest struct {
	Nonce       string
	AmountCents int64
	OrderRef    string
}

// SaleResult is the gateway's record of a captured payment.
type SaleResult struct {
	TransactionID string
	Status        string
}

// Gateway is the payment provider port. ClientToken authorizes the
// browser to render the hosted card fields; Sale exchanges a nonce for a
// capture. Both are bounded network round-trips.
type Gateway interface {
	ClientToken(ctx context.Context) (string, error)
	Sale(ctx context.Context, req SaleRequest) (*SaleResult, error)
}
