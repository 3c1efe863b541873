//go:build integration

package postgres_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	testpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/shopworks/storefront/internal/database"
	"github.com/shopworks/storefront/internal/orders/adapters/postgres"
	"github.com/shopworks/storefront/internal/orders/domain"
	"github.com/shopworks/storefront/internal/orders/ports"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := testpostgres.Run(ctx,
		"postgres:16-alpine",
		testpostgres.WithDatabase("test"),
		testpostgres.WithUsername("test"),
		testpostgres.WithPassword("test"),
		testpostgres.BasicWaitStrategies(),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	migrationsPath := filepath.Join(findProjectRoot(t), "migrations")
	if _, err := database.RunMigrations(connStr, migrationsPath); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	pool, err := database.NewPool(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}

	t.Cleanup(pool.Close)

	return pool
}

func findProjectRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

func testOrder(id, transactionID string) domain.Order {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return domain.Order{
		ID:         id,
		BuyerID:    "user-1",
		BuyerEmail: "buyer@example.com",
		Items: []domain.LineItem{
			{ProductID: "p-1", Name: "MacBook Pro", PriceCents: 99900, Unit: "piece"},
		},
		TotalCents:  99900,
		Payment:     domain.PaymentResult{TransactionID: transactionID, Status: "captured"},
		Fulfillment: domain.FulfillmentPlaced,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestCreateAndGet(t *testing.T) {
	pool := setupTestDB(t)
	repo := postgres.NewRepository(pool, nil)
	ctx := context.Background()

	stored, created, err := repo.Create(ctx, testOrder("order-1", "txn-1"))
	if err != nil {
		t.Fatalf("failed to create order: %v", err)
	}
	if !created {
		t.Fatal("expected order to be created")
	}

	fetched, err := repo.GetByID(ctx, stored.ID)
	if err != nil {
		t.Fatalf("failed to get order: %v", err)
	}

	if fetched.TotalCents != 99900 {
		t.Errorf("expected total 99900, got %d", fetched.TotalCents)
	}
	if len(fetched.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(fetched.Items))
	}
	if fetched.Items[0].PriceCents != 99900 {
		t.Errorf("expected snapshot price 99900, got %d", fetched.Items[0].PriceCents)
	}
	if fetched.Payment.TransactionID != "txn-1" {
		t.Errorf("expected transaction txn-1, got %s", fetched.Payment.TransactionID)
	}
}

func TestCreateDeduplicatesByTransactionID(t *testing.T) {
	pool := setupTestDB(t)
	repo := postgres.NewRepository(pool, nil)
	ctx := context.Background()

	first, created, err := repo.Create(ctx, testOrder("order-1", "txn-dup"))
	if err != nil {
		t.Fatalf("failed to create first order: %v", err)
	}
	if !created {
		t.Fatal("expected first order to be created")
	}

	second, created, err := repo.Create(ctx, testOrder("order-2", "txn-dup"))
	if err != nil {
		t.Fatalf("failed to create second order: %v", err)
	}
	if created {
		t.Error("expected second create to be deduplicated")
	}
	if second.ID != first.ID {
		t.Errorf("expected existing order %s, got %s", first.ID, second.ID)
	}

	orders, err := repo.ListByBuyer(ctx, "user-1", ports.ListFilter{})
	if err != nil {
		t.Fatalf("failed to list orders: %v", err)
	}
	if len(orders) != 1 {
		t.Errorf("expected exactly one order, got %d", len(orders))
	}
}

func TestUpdateFulfillment(t *testing.T) {
	pool := setupTestDB(t)
	repo := postgres.NewRepository(pool, nil)
	ctx := context.Background()

	if _, _, err := repo.Create(ctx, testOrder("order-1", "txn-1")); err != nil {
		t.Fatalf("failed to create order: %v", err)
	}

	if err := repo.UpdateFulfillment(ctx, "order-1", domain.FulfillmentShipped); err != nil {
		t.Fatalf("failed to update fulfillment: %v", err)
	}

	order, err := repo.GetByID(ctx, "order-1")
	if err != nil {
		t.Fatalf("failed to get order: %v", err)
	}
	if order.Fulfillment != domain.FulfillmentShipped {
		t.Errorf("expected fulfillment shipped, got %s", order.Fulfillment)
	}

	if err := repo.UpdateFulfillment(ctx, "order-404", domain.FulfillmentShipped); err != ports.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
