package ports

import (
	"context"

	"github.com/shopworks/storefront/internal/orders/domain"
)

// EventBus defines the contract for publishing order lifecycle events.
type EventBus interface {
	PublishOrderPlaced(ctx context.Context, orderID string) error
	PublishFulfillmentChanged(ctx context.Context, orderID string, status domain.FulfillmentStatus) error
}
