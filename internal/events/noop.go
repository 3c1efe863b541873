// Package events publishes order lifecycle events. Only a logging no-op
// publisher exists today; a broker-backed implementation slots in behind
// the same port once one is deployed.
package events

import (
	"context"
	"log/slog"

	"github.com/shopworks/storefront/internal/orders/domain"
)

// NoopPublisher logs events without sending them anywhere.
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher {
	return &NoopPublisher{}
}

func (n *NoopPublisher) PublishOrderPlaced(_ context.Context, orderID string) error {
	slog.Debug("event::order_placed", "order_id", orderID)
	return nil
}

func (n *NoopPublisher) PublishFulfillmentChanged(_ context.Context, orderID string, status domain.FulfillmentStatus) error {
	slog.Debug("event::fulfillment_changed", "order_id", orderID, "status", status)
	return nil
}
