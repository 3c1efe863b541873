package ports

import (
	"context"
	"errors"

	"github.com/shopworks/storefront/internal/orders/domain"
)

// OrderRepository exposes persistence operations required by the application layer.
type OrderRepository interface {
	// Create persists the order. If an order with the same payment
	// transaction id already exists, the stored order is returned with
	// created=false and no duplicate is written.
	Create(ctx context.Context, order domain.Order) (*domain.Order, bool, error)

	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// ListByBuyer returns the buyer's orders, newest first. An empty
	// buyer id lists all orders (admin view).
	ListByBuyer(ctx context.Context, buyerID string, filter ListFilter) ([]domain.Order, error)

	UpdateFulfillment(ctx context.Context, id string, status domain.FulfillmentStatus) error
}

// ListFilter narrows list queries by fulfillment status and pagination.
type ListFilter struct {
	Fulfillment *domain.FulfillmentStatus
	Page        int
	PageSize    int
}

// ErrNotFound is returned when the requested order does not exist.
var ErrNotFound = errors.New("order not found")
