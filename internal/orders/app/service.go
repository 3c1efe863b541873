package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopworks/storefront/internal/catalog"
	"github.com/shopworks/storefront/internal/orders/app/commands"
	"github.com/shopworks/storefront/internal/orders/app/queries"
	"github.com/shopworks/storefront/internal/orders/domain"
	"github.com/shopworks/storefront/internal/orders/metrics"
	"github.com/shopworks/storefront/internal/orders/ports"
)

// Service bundles order use cases: placement for the checkout pipeline,
// reads for buyers, fulfillment updates for the back office.
type Service struct {
	repo              ports.OrderRepository
	events            ports.EventBus
	placeOrderHandler commands.CommandHandler
	getOrderHandler   *queries.GetOrderQueryHandler
	listOrdersHandler *queries.ListOrdersQueryHandler
}

// NewService wires required dependencies.
func NewService(
	repo ports.OrderRepository,
	products catalog.Products,
	events ports.EventBus,
	logger *slog.Logger,
	metrics *metrics.Metrics,
) *Service {
	coreHandler := commands.NewPlaceOrderCommandHandler(repo, products, events)

	return &Service{
		repo:              repo,
		events:            events,
		placeOrderHandler: commands.NewObservableCommandHandler(coreHandler, logger, metrics),
		getOrderHandler:   queries.NewGetOrderQueryHandler(repo),
		listOrdersHandler: queries.NewListOrdersQueryHandler(repo),
	}
}

// PlaceOrder persists an order for a captured payment. A transaction id
// seen before returns the original order instead of creating a second
// one.
func (s *Service) PlaceOrder(ctx context.Context, cmd commands.PlaceOrderCommand) (*commands.PlaceOrderResult, error) {
	return s.placeOrderHandler.Handle(ctx, cmd)
}

// GetOrder retrieves an order, scoped to the buyer unless buyerID is empty.
func (s *Service) GetOrder(ctx context.Context, orderID, buyerID string) (*domain.Order, error) {
	return s.getOrderHandler.Handle(ctx, queries.GetOrderQuery{OrderID: orderID, BuyerID: buyerID})
}

// ListOrders returns orders for a buyer, or all orders when buyerID is empty.
func (s *Service) ListOrders(ctx context.Context, buyerID string, filter ports.ListFilter) ([]domain.Order, error) {
	return s.listOrdersHandler.Handle(ctx, queries.ListOrdersQuery{BuyerID: buyerID, Filter: filter})
}

// UpdateFulfillment moves an order to a new fulfillment status. Only the
// back office calls this; checkout never mutates fulfillment.
func (s *Service) UpdateFulfillment(ctx context.Context, orderID string, status domain.FulfillmentStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("invalid fulfillment status %q", status)
	}

	if err := s.repo.UpdateFulfillment(ctx, orderID, status); err != nil {
		return nil, err
	}

	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := s.events.PublishFulfillmentChanged(ctx, orderID, status); err != nil {
		return order, fmt.Errorf("fulfillment updated but failed to publish event: %w", err)
	}

	return order, nil
}
