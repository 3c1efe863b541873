package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shopworks/storefront/internal/auth"
	ordersapp "github.com/shopworks/storefront/internal/orders/app"
	"github.com/shopworks/storefront/internal/orders/domain"
	"github.com/shopworks/storefront/internal/orders/ports"
)

// OrdersHandler exposes order reads for buyers and fulfillment updates
// for the back office. Orders are created by checkout, never over HTTP.
type OrdersHandler struct {
	orders *ordersapp.Service
}

func NewOrdersHandler(orders *ordersapp.Service) *OrdersHandler {
	return &OrdersHandler{orders: orders}
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Get("/v1/orders", h.list)
	r.Get("/v1/orders/{orderID}", h.get)
	r.Patch("/v1/orders/{orderID}/fulfillment", h.updateFulfillment)
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequireAuthenticated(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// Buyers see their own orders. Admins see everything, optionally
	// narrowed to one buyer.
	buyerID := actor.ID
	if actor.IsAdmin() {
		buyerID = r.URL.Query().Get("buyer_id")
	}

	filter := ports.ListFilter{}
	if statusParam := r.URL.Query().Get("fulfillment"); statusParam != "" {
		status := domain.FulfillmentStatus(statusParam)
		if !status.Valid() {
			writeError(w, http.StatusBadRequest, "unknown fulfillment status")
			return
		}
		filter.Fulfillment = &status
	}
	if pageParam := r.URL.Query().Get("page"); pageParam != "" {
		if page, err := strconv.Atoi(pageParam); err == nil {
			filter.Page = page
		}
	}
	if pageSizeParam := r.URL.Query().Get("page_size"); pageSizeParam != "" {
		if pageSize, err := strconv.Atoi(pageSizeParam); err == nil {
			filter.PageSize = pageSize
		}
	}

	orders, err := h.orders.ListOrders(r.Context(), buyerID, filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequireAuthenticated(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// An empty buyer id lifts the ownership scope for admins.
	buyerID := actor.ID
	if actor.IsAdmin() {
		buyerID = ""
	}

	order, err := h.orders.GetOrder(r.Context(), chi.URLParam(r, "orderID"), buyerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *OrdersHandler) updateFulfillment(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.RequireAdmin(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	status := domain.FulfillmentStatus(payload.Status)
	if !status.Valid() {
		writeError(w, http.StatusBadRequest, "unknown fulfillment status")
		return
	}

	order, err := h.orders.UpdateFulfillment(r.Context(), chi.URLParam(r, "orderID"), status)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}
