package queries

import (
	"context"
	"errors"
	"strings"

	"github.com/shopworks/storefront/internal/orders/domain"
	"github.com/shopworks/storefront/internal/orders/ports"
)

// GetOrderQuery retrieves an order by id. BuyerID scopes the lookup: a
// non-empty value hides other buyers' orders behind not-found, the empty
// value is the admin view.
type GetOrderQuery struct {
	OrderID string
	BuyerID string
}

func (q GetOrderQuery) Validate() error {
	if strings.TrimSpace(q.OrderID) == "" {
		return errors.New("order_id is required")
	}
	return nil
}

// GetOrderQueryHandler executes GetOrderQuery and returns the order if found.
type GetOrderQueryHandler struct {
	repo ports.OrderRepository
}

func NewGetOrderQueryHandler(repo ports.OrderRepository) *GetOrderQueryHandler {
	return &GetOrderQueryHandler{repo: repo}
}

func (h *GetOrderQueryHandler) Handle(ctx context.Context, query GetOrderQuery) (*domain.Order, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	order, err := h.repo.GetByID(ctx, query.OrderID)
	if err != nil {
		return nil, err
	}

	if query.BuyerID != "" && order.BuyerID != query.BuyerID {
		return nil, ports.ErrNotFound
	}

	return order, nil
}
