package domain

import (
	"errors"
	"strings"
	"time"
)

// FulfillmentStatus tracks an order after placement. Checkout only ever
// creates orders as placed; later transitions belong to the back office.
type FulfillmentStatus string

const (
	FulfillmentPlaced    FulfillmentStatus = "placed"
	FulfillmentShipped   FulfillmentStatus = "shipped"
	FulfillmentDelivered FulfillmentStatus = "delivered"
	FulfillmentCanceled  FulfillmentStatus = "canceled"
)

func (s FulfillmentStatus) Valid() bool {
	switch s {
	case FulfillmentPlaced, FulfillmentShipped, FulfillmentDelivered, FulfillmentCanceled:
		return true
	default:
		return false
	}
}

// LineItem pins a product's identity and price at order creation. The
// snapshot is immutable no matter what the catalog does afterwards.
type LineItem struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Unit       string `json:"unit"`
}

// PaymentResult records the gateway's side of a captured payment. The
// transaction id doubles as the de-duplication key for retried
// submissions.
type PaymentResult struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

// Order is the durable record of a completed checkout.
type Order struct {
	ID          string            `json:"id"`
	BuyerID     string            `json:"buyer_id"`
	BuyerEmail  string            `json:"buyer_email"`
	Items       []LineItem        `json:"items"`
	TotalCents  int64             `json:"total_cents"`
	Payment     PaymentResult     `json:"payment"`
	Fulfillment FulfillmentStatus `json:"fulfillment"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Validate ensures the order adheres to business constraints, including
// the total-equals-sum-of-snapshots invariant.
func (o Order) Validate() error {
	if strings.TrimSpace(o.BuyerID) == "" {
		return errors.New("buyer_id is required")
	}
	if len(o.Items) == 0 {
		return errors.New("order must contain at least one item")
	}
	if strings.TrimSpace(o.Payment.TransactionID) == "" {
		return errors.New("payment transaction_id is required")
	}
	if o.TotalCents <= 0 {
		return errors.New("total_cents must be positive")
	}

	var sum int64
	for _, item := range o.Items {
		if item.PriceCents < 0 {
			return errors.New("line item price cannot be negative")
		}
		sum += item.PriceCents
	}
	if sum != o.TotalCents {
		return errors.New("total_cents must equal the sum of line item prices")
	}

	return nil
}
