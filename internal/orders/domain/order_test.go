package domain

import (
	"testing"
	"time"
)

func validOrder() Order {
	now := time.Now().UTC()
	return Order{
		ID:         "order-1",
		BuyerID:    "user-1",
		BuyerEmail: "buyer@example.com",
		Items: []LineItem{
			{ProductID: "p-1", Name: "MacBook Pro", PriceCents: 99900, Unit: "piece"},
			{ProductID: "p-2", Name: "Magic Mouse", PriceCents: 7900, Unit: "piece"},
		},
		TotalCents:  107800,
		Payment:     PaymentResult{TransactionID: "txn-1", Status: "captured"},
		Fulfillment: FulfillmentPlaced,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestOrderValidate(t *testing.T) {
	t.Run("accepts a consistent order", func(t *testing.T) {
		if err := validOrder().Validate(); err != nil {
			t.Errorf("expected valid order, got: %v", err)
		}
	})

	t.Run("rejects empty item list", func(t *testing.T) {
		order := validOrder()
		order.Items = nil
		if err := order.Validate(); err == nil {
			t.Error("expected error for empty items")
		}
	})

	t.Run("rejects total that disagrees with snapshots", func(t *testing.T) {
		order := validOrder()
		order.TotalCents = 99900
		if err := order.Validate(); err == nil {
			t.Error("expected error for mismatched total")
		}
	})

	t.Run("rejects missing transaction id", func(t *testing.T) {
		order := validOrder()
		order.Payment.TransactionID = ""
		if err := order.Validate(); err == nil {
			t.Error("expected error for missing transaction id")
		}
	})

	t.Run("rejects missing buyer", func(t *testing.T) {
		order := validOrder()
		order.BuyerID = "  "
		if err := order.Validate(); err == nil {
			t.Error("expected error for missing buyer")
		}
	})
}

func TestFulfillmentStatusValid(t *testing.T) {
	for _, status := range []FulfillmentStatus{FulfillmentPlaced, FulfillmentShipped, FulfillmentDelivered, FulfillmentCanceled} {
		if !status.Valid() {
			t.Errorf("expected %s to be valid", status)
		}
	}
	if FulfillmentStatus("refunded").Valid() {
		t.Error("expected unknown status to be invalid")
	}
}
