package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shopworks/storefront/internal/auth"
	cartapp "github.com/shopworks/storefront/internal/cart/app"
	cartdomain "github.com/shopworks/storefront/internal/cart/domain"
)

// CartHandler exposes cart endpoints. Guests and authenticated buyers use
// the same routes; the resolved actor picks the cart.
type CartHandler struct {
	carts *cartapp.Service
}

func NewCartHandler(carts *cartapp.Service) *CartHandler {
	return &CartHandler{carts: carts}
}

func (h *CartHandler) Register(r chi.Router) {
	r.Get("/v1/cart", h.get)
	r.Post("/v1/cart/items", h.addItem)
	r.Delete("/v1/cart/items/{productID}", h.removeItem)
	r.Post("/v1/cart/merge", h.merge)
}

type cartResponse struct {
	Items      []cartdomain.CartItem `json:"items"`
	TotalCents int64                 `json:"total_cents"`
}

func newCartResponse(cart *cartdomain.Cart) cartResponse {
	items := cart.Items
	if items == nil {
		items = []cartdomain.CartItem{}
	}
	return cartResponse{Items: items, TotalCents: cart.TotalCents()}
}

// cartKey resolves which cart the request targets. Guests without a
// session header have no cart to act on.
func cartKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	actor := auth.CurrentActor(r.Context())
	if actor.CartKey() == "" {
		writeError(w, http.StatusBadRequest, "guest session header required")
		return "", false
	}
	return actor.CartKey(), true
}

func (h *CartHandler) get(w http.ResponseWriter, r *http.Request) {
	key, ok := cartKey(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.Get(r.Context(), key)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newCartResponse(cart))
}

func (h *CartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	key, ok := cartKey(w, r)
	if !ok {
		return
	}

	var payload struct {
		ProductID string `json:"product_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.ProductID == "" {
		writeError(w, http.StatusBadRequest, "product_id is required")
		return
	}

	cart, added, err := h.carts.Add(r.Context(), key, payload.ProductID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	status := http.StatusCreated
	if !added {
		status = http.StatusOK
	}
	writeJSON(w, status, newCartResponse(cart))
}

func (h *CartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	key, ok := cartKey(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.Remove(r.Context(), key, chi.URLParam(r, "productID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newCartResponse(cart))
}

// merge folds the guest cart named by the session header into the
// authenticated buyer's cart. Clients call it right after login.
func (h *CartHandler) merge(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequireAuthenticated(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	guestKey := r.Header.Get(auth.GuestSessionHeader)
	cart, err := h.carts.MergeGuest(r.Context(), guestKey, actor.CartKey())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newCartResponse(cart))
}
