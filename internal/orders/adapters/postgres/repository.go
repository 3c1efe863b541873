package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopworks/storefront/internal/database"
	"github.com/shopworks/storefront/internal/orders/domain"
	"github.com/shopworks/storefront/internal/orders/ports"
)

type Repository struct {
	pool    *pgxpool.Pool
	metrics *database.Metrics
}

// NewRepository wires the order store. metrics may be nil, in which case
// query observations are skipped.
func NewRepository(pool *pgxpool.Pool, metrics *database.Metrics) *Repository {
	return &Repository{pool: pool, metrics: metrics}
}

func (r *Repository) observe(ctx context.Context, operation string, start time.Time, err error) {
	if r.metrics == nil {
		return
	}
	r.metrics.RecordQuery(ctx, operation, time.Since(start).Seconds(), err)
}

// Create inserts the order and its line items in one transaction. The
// unique index on payment_transaction_id makes retried submissions land
// on the existing order instead of creating a duplicate.
func (r *Repository) Create(ctx context.Context, order domain.Order) (created *domain.Order, inserted bool, err error) {
	start := time.Now()
	defer func() { r.observe(ctx, "orders.create", start, err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	insertOrder := `
		INSERT INTO orders (id, buyer_id, buyer_email, total_cents, payment_transaction_id, payment_status, fulfillment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (payment_transaction_id) DO NOTHING
	`

	result, err := tx.Exec(ctx, insertOrder,
		order.ID,
		order.BuyerID,
		order.BuyerEmail,
		order.TotalCents,
		order.Payment.TransactionID,
		order.Payment.Status,
		order.Fulfillment,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert order: %w", err)
	}

	if result.RowsAffected() == 0 {
		existing, err := r.getByTransactionID(ctx, order.Payment.TransactionID)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	insertItem := `
		INSERT INTO order_items (order_id, position, product_id, name, price_cents, unit)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for i, item := range order.Items {
		if _, err := tx.Exec(ctx, insertItem, order.ID, i, item.ProductID, item.Name, item.PriceCents, item.Unit); err != nil {
			return nil, false, fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit order: %w", err)
	}

	return &order, true, nil
}

const orderColumns = `id, buyer_id, buyer_email, total_cents, payment_transaction_id, payment_status, fulfillment, created_at, updated_at`

func (r *Repository) GetByID(ctx context.Context, id string) (order *domain.Order, err error) {
	start := time.Now()
	defer func() { r.observe(ctx, "orders.get_by_id", start, err) }()

	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)

	order, err = r.scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *Repository) getByTransactionID(ctx context.Context, transactionID string) (*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE payment_transaction_id = $1`, orderColumns)

	order, err := r.scanOrder(r.pool.QueryRow(ctx, query, transactionID))
	if err != nil {
		return nil, err
	}

	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *Repository) ListByBuyer(ctx context.Context, buyerID string, filter ports.ListFilter) (result []domain.Order, err error) {
	start := time.Now()
	defer func() { r.observe(ctx, "orders.list_by_buyer", start, err) }()

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM orders
		WHERE ($1::text = '' OR buyer_id = $1)
		  AND ($2::text IS NULL OR fulfillment = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, orderColumns)

	var fulfillmentFilter *string
	if filter.Fulfillment != nil {
		s := string(*filter.Fulfillment)
		fulfillmentFilter = &s
	}

	rows, err := r.pool.Query(ctx, query, buyerID, fulfillmentFilter, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	for i := range orders {
		if err := r.loadItems(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}

	return orders, nil
}

func (r *Repository) UpdateFulfillment(ctx context.Context, id string, status domain.FulfillmentStatus) (err error) {
	start := time.Now()
	defer func() { r.observe(ctx, "orders.update_fulfillment", start, err) }()

	query := `
		UPDATE orders
		SET fulfillment = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := r.pool.Exec(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update fulfillment: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ports.ErrNotFound
	}

	return nil
}

func (r *Repository) scanOrder(row pgx.Row) (*domain.Order, error) {
	var order domain.Order
	err := row.Scan(
		&order.ID,
		&order.BuyerID,
		&order.BuyerEmail,
		&order.TotalCents,
		&order.Payment.TransactionID,
		&order.Payment.Status,
		&order.Fulfillment,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	return &order, nil
}

func (r *Repository) loadItems(ctx context.Context, order *domain.Order) error {
	query := `
		SELECT product_id, name, price_cents, unit
		FROM order_items
		WHERE order_id = $1
		ORDER BY position
	`

	rows, err := r.pool.Query(ctx, query, order.ID)
	if err != nil {
		return fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.PriceCents, &item.Unit); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate order items: %w", err)
	}

	return nil
}
