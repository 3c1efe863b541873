package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopworks/storefront/internal/orders/domain"
	"github.com/shopworks/storefront/internal/orders/ports"
)

// Repository provides an in-memory order store for local development and
// tests. De-duplication by payment transaction id matches the Postgres
// adapter's behavior.
type Repository struct {
	mu            sync.RWMutex
	orders        map[string]domain.Order
	byTransaction map[string]string
}

func NewRepository() *Repository {
	return &Repository{
		orders:        make(map[string]domain.Order),
		byTransaction: make(map[string]string),
	}
}

func (r *Repository) Create(_ context.Context, order domain.Order) (*domain.Order, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existingID, ok := r.byTransaction[order.Payment.TransactionID]; ok {
		existing := r.clone(r.orders[existingID])
		return &existing, false, nil
	}

	r.orders[order.ID] = order
	r.byTransaction[order.Payment.TransactionID] = order.ID

	stored := r.clone(order)
	return &stored, true, nil
}

func (r *Repository) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}

	cloned := r.clone(order)
	return &cloned, nil
}

func (r *Repository) ListByBuyer(_ context.Context, buyerID string, filter ports.ListFilter) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.Order
	for _, order := range r.orders {
		if buyerID != "" && order.BuyerID != buyerID {
			continue
		}
		if filter.Fulfillment != nil && order.Fulfillment != *filter.Fulfillment {
			continue
		}
		result = append(result, r.clone(order))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	start := (page - 1) * pageSize
	if start >= len(result) {
		return []domain.Order{}, nil
	}
	end := start + pageSize
	if end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

func (r *Repository) UpdateFulfillment(_ context.Context, id string, status domain.FulfillmentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return ports.ErrNotFound
	}

	order.Fulfillment = status
	order.UpdatedAt = time.Now().UTC()
	r.orders[id] = order
	return nil
}

func (r *Repository) clone(order domain.Order) domain.Order {
	cloned := order
	cloned.Items = make([]domain.LineItem, len(order.Items))
	copy(cloned.Items, order.Items)
	return cloned
}
