package queries

import (
	"context"

	"github.com/shopworks/storefront/internal/orders/domain"
	"github.com/shopworks/storefront/internal/orders/ports"
)

// ListOrdersQuery lists a buyer's orders, or every order when BuyerID is
// empty (admin view).
type ListOrdersQuery struct {
	BuyerID string
	Filter  ports.ListFilter
}

type ListOrdersQueryHandler struct {
	repo ports.OrderRepository
}

func NewListOrdersQueryHandler(repo ports.OrderRepository) *ListOrdersQueryHandler {
	return &ListOrdersQueryHandler{repo: repo}
}

func (h *ListOrdersQueryHandler) Handle(ctx context.Context, query ListOrdersQuery) ([]domain.Order, error) {
	return h.repo.ListByBuyer(ctx, query.BuyerID, query.Filter)
}
