package commands_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopworks/storefront/internal/catalog"
	"github.com/shopworks/storefront/internal/orders/app/commands"
	"github.com/shopworks/storefront/internal/orders/domain"
	"github.com/shopworks/storefront/internal/orders/ports"
)

type mockRepository struct {
	createFn func(ctx context.Context, order domain.Order) (*domain.Order, bool, error)
}

func (m *mockRepository) Create(ctx context.Context, order domain.Order) (*domain.Order, bool, error) {
	if m.createFn != nil {
		return m.createFn(ctx, order)
	}
	return &order, true, nil
}

func (m *mockRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return nil, ports.ErrNotFound
}

func (m *mockRepository) ListByBuyer(ctx context.Context, buyerID string, filter ports.ListFilter) ([]domain.Order, error) {
	return nil, nil
}

func (m *mockRepository) UpdateFulfillment(ctx context.Context, id string, status domain.FulfillmentStatus) error {
	return nil
}

type mockEventBus struct {
	publishOrderPlacedFn func(ctx context.Context, orderID string) error
}

func (m *mockEventBus) PublishOrderPlaced(ctx context.Context, orderID string) error {
	if m.publishOrderPlacedFn != nil {
		return m.publishOrderPlacedFn(ctx, orderID)
	}
	return nil
}

func (m *mockEventBus) PublishFulfillmentChanged(ctx context.Context, orderID string, status domain.FulfillmentStatus) error {
	return nil
}

func testProducts() *catalog.MemoryCatalog {
	return catalog.NewMemoryCatalog(
		catalog.Product{ID: "p-1", Name: "MacBook Pro", PriceCents: 99900, Unit: "piece"},
		catalog.Product{ID: "p-2", Name: "Magic Mouse", PriceCents: 7900, Unit: "piece"},
	)
}

func validCommand() commands.PlaceOrderCommand {
	return commands.PlaceOrderCommand{
		BuyerID:    "user-1",
		BuyerEmail: "buyer@example.com",
		ProductIDs: []string{"p-1"},
		Payment:    domain.PaymentResult{TransactionID: "txn-1", Status: "captured"},
	}
}

func TestPlaceOrder(t *testing.T) {
	t.Run("places order with snapshot prices and total", func(t *testing.T) {
		repo := &mockRepository{}
		handler := commands.NewPlaceOrderCommandHandler(repo, testProducts(), &mockEventBus{})

		cmd := validCommand()
		cmd.ProductIDs = []string{"p-1", "p-2"}

		result, err := handler.Handle(context.Background(), cmd)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		order := result.Order
		if order.TotalCents != 107800 {
			t.Errorf("expected total 107800, got %d", order.TotalCents)
		}
		if len(order.Items) != 2 {
			t.Fatalf("expected 2 line items, got %d", len(order.Items))
		}
		if order.Items[0].PriceCents != 99900 {
			t.Errorf("expected snapshot price 99900, got %d", order.Items[0].PriceCents)
		}
		if order.Fulfillment != domain.FulfillmentPlaced {
			t.Errorf("expected fulfillment %s, got %s", domain.FulfillmentPlaced, order.Fulfillment)
		}
		if order.ID == "" {
			t.Error("expected order ID to be generated")
		}
		if result.AlreadyPlaced {
			t.Error("expected a fresh order, not a deduplicated one")
		}
	})

	t.Run("snapshot survives a later catalog price change", func(t *testing.T) {
		products := testProducts()
		var stored *domain.Order
		repo := &mockRepository{
			createFn: func(_ context.Context, order domain.Order) (*domain.Order, bool, error) {
				stored = &order
				return &order, true, nil
			},
		}
		handler := commands.NewPlaceOrderCommandHandler(repo, products, &mockEventBus{})

		if _, err := handler.Handle(context.Background(), validCommand()); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		products.SetPrice("p-1", 109900)

		if stored.TotalCents != 99900 {
			t.Errorf("expected order total pinned at 99900, got %d", stored.TotalCents)
		}
		if stored.Items[0].PriceCents != 99900 {
			t.Errorf("expected line item pinned at 99900, got %d", stored.Items[0].PriceCents)
		}
	})

	t.Run("returns validation error when buyer is missing", func(t *testing.T) {
		handler := commands.NewPlaceOrderCommandHandler(&mockRepository{}, testProducts(), &mockEventBus{})

		cmd := validCommand()
		cmd.BuyerID = ""

		result, err := handler.Handle(context.Background(), cmd)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if err.Error() != "buyer_id is required" {
			t.Errorf("expected error %q, got %q", "buyer_id is required", err.Error())
		}
		if result != nil {
			t.Errorf("expected nil result, got %+v", result)
		}
	})

	t.Run("rejects empty item list", func(t *testing.T) {
		handler := commands.NewPlaceOrderCommandHandler(&mockRepository{}, testProducts(), &mockEventBus{})

		cmd := validCommand()
		cmd.ProductIDs = nil

		_, err := handler.Handle(context.Background(), cmd)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if err.Error() != "order must contain at least one item" {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("rejects missing payment transaction id", func(t *testing.T) {
		handler := commands.NewPlaceOrderCommandHandler(&mockRepository{}, testProducts(), &mockEventBus{})

		cmd := validCommand()
		cmd.Payment.TransactionID = ""

		_, err := handler.Handle(context.Background(), cmd)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
	})

	t.Run("rejects unknown product", func(t *testing.T) {
		handler := commands.NewPlaceOrderCommandHandler(&mockRepository{}, testProducts(), &mockEventBus{})

		cmd := validCommand()
		cmd.ProductIDs = []string{"p-404"}

		_, err := handler.Handle(context.Background(), cmd)
		if !errors.Is(err, catalog.ErrProductNotFound) {
			t.Errorf("expected product not found, got: %v", err)
		}
	})

	t.Run("same transaction id returns existing order", func(t *testing.T) {
		existing := &domain.Order{ID: "order-1", TotalCents: 99900}
		repo := &mockRepository{
			createFn: func(_ context.Context, _ domain.Order) (*domain.Order, bool, error) {
				return existing, false, nil
			},
		}
		published := 0
		events := &mockEventBus{
			publishOrderPlacedFn: func(_ context.Context, _ string) error {
				published++
				return nil
			},
		}
		handler := commands.NewPlaceOrderCommandHandler(repo, testProducts(), events)

		result, err := handler.Handle(context.Background(), validCommand())
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if !result.AlreadyPlaced {
			t.Error("expected AlreadyPlaced for a reused transaction id")
		}
		if result.Order.ID != "order-1" {
			t.Errorf("expected existing order, got %s", result.Order.ID)
		}
		if published != 0 {
			t.Errorf("expected no event for a deduplicated order, got %d", published)
		}
	})

	t.Run("returns error when repository fails", func(t *testing.T) {
		repoErr := errors.New("database connection failed")
		repo := &mockRepository{
			createFn: func(_ context.Context, _ domain.Order) (*domain.Order, bool, error) {
				return nil, false, repoErr
			},
		}
		handler := commands.NewPlaceOrderCommandHandler(repo, testProducts(), &mockEventBus{})

		_, err := handler.Handle(context.Background(), validCommand())
		if !errors.Is(err, repoErr) {
			t.Errorf("expected error to wrap repository error, got: %v", err)
		}
	})

	t.Run("returns order even when event publishing fails", func(t *testing.T) {
		eventErr := errors.New("broker unavailable")
		events := &mockEventBus{
			publishOrderPlacedFn: func(_ context.Context, _ string) error {
				return eventErr
			},
		}
		handler := commands.NewPlaceOrderCommandHandler(&mockRepository{}, testProducts(), events)

		result, err := handler.Handle(context.Background(), validCommand())
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !errors.Is(err, eventErr) {
			t.Errorf("expected error to wrap event error, got: %v", err)
		}
		if result == nil || result.Order == nil {
			t.Fatal("expected saved order to be returned alongside the error")
		}
	})
}
