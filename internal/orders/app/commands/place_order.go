package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shopworks/storefront/internal/catalog"
	"github.com/shopworks/storefront/internal/orders/domain"
	"github.com/shopworks/storefront/internal/orders/ports"
)

type PlaceOrderCommand struct {
	BuyerID    string
	BuyerEmail string
	ProductIDs []string
	Payment    domain.PaymentResult
}

func (c PlaceOrderCommand) Validate() error {
	if strings.TrimSpace(c.BuyerID) == "" {
		return errors.New("buyer_id is required")
	}
	if len(c.ProductIDs) == 0 {
		return errors.New("order must contain at least one item")
	}
	if strings.TrimSpace(c.Payment.TransactionID) == "" {
		return errors.New("payment transaction_id is required")
	}
	return nil
}

// PlaceOrderResult carries the stored order plus whether this call
// actually created it. AlreadyPlaced means the same payment transaction
// was applied earlier and the prior order was returned instead.
type PlaceOrderResult struct {
	Order         *domain.Order
	AlreadyPlaced bool
}

type CommandHandler interface {
	Handle(ctx context.Context, cmd PlaceOrderCommand) (*PlaceOrderResult, error)
}

// PlaceOrderCommandHandler snapshots current catalog prices into line
// items and persists the order. Price changes after this point never
// touch the stored order.
type PlaceOrderCommandHandler struct {
	repo     ports.OrderRepository
	products catalog.Products
	events   ports.EventBus
}

func NewPlaceOrderCommandHandler(
	repo ports.OrderRepository,
	products catalog.Products,
	events ports.EventBus,
) *PlaceOrderCommandHandler {
	return &PlaceOrderCommandHandler{
		repo:     repo,
		products: products,
		events:   events,
	}
}

func (h *PlaceOrderCommandHandler) Handle(ctx context.Context, cmd PlaceOrderCommand) (*PlaceOrderResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	items, total, err := h.snapshotItems(ctx, cmd.ProductIDs)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	order := domain.Order{
		ID:          uuid.NewString(),
		BuyerID:     cmd.BuyerID,
		BuyerEmail:  cmd.BuyerEmail,
		Items:       items,
		TotalCents:  total,
		Payment:     cmd.Payment,
		Fulfillment: domain.FulfillmentPlaced,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := order.Validate(); err != nil {
		return nil, err
	}

	stored, created, err := h.repo.Create(ctx, order)
	if err != nil {
		return nil, err
	}

	if !created {
		return &PlaceOrderResult{Order: stored, AlreadyPlaced: true}, nil
	}

	if err := h.events.PublishOrderPlaced(ctx, stored.ID); err != nil {
		return &PlaceOrderResult{Order: stored}, fmt.Errorf("order saved but failed to publish event: %w", err)
	}

	return &PlaceOrderResult{Order: stored}, nil
}

func (h *PlaceOrderCommandHandler) snapshotItems(ctx context.Context, productIDs []string) ([]domain.LineItem, int64, error) {
	products, err := h.products.GetMany(ctx, productIDs)
	if err != nil {
		return nil, 0, fmt.Errorf("snapshot prices: %w", err)
	}

	items := make([]domain.LineItem, 0, len(productIDs))
	var total int64
	for _, id := range productIDs {
		product, ok := products[id]
		if !ok {
			return nil, 0, fmt.Errorf("%w: %s", catalog.ErrProductNotFound, id)
		}
		items = append(items, domain.LineItem{
			ProductID:  product.ID,
			Name:       product.Name,
			PriceCents: product.PriceCents,
			Unit:       product.Unit,
		})
		total += product.PriceCents
	}

	return items, total, nil
}
