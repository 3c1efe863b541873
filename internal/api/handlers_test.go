package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/shopworks/storefront/internal/api"
	"github.com/shopworks/storefront/internal/auth"
	cartmemory "github.com/shopworks/storefront/internal/cart/adapters/memory"
	cartapp "github.com/shopworks/storefront/internal/cart/app"
	"github.com/shopworks/storefront/internal/catalog"
	checkoutmemory "github.com/shopworks/storefront/internal/checkout/adapters/memory"
	checkoutapp "github.com/shopworks/storefront/internal/checkout/app"
	checkoutmetrics "github.com/shopworks/storefront/internal/checkout/metrics"
	"github.com/shopworks/storefront/internal/events"
	idemmemory "github.com/shopworks/storefront/internal/idempotency/memory"
	ordersmemory "github.com/shopworks/storefront/internal/orders/adapters/memory"
	ordersapp "github.com/shopworks/storefront/internal/orders/app"
	ordersmetrics "github.com/shopworks/storefront/internal/orders/metrics"
	"github.com/shopworks/storefront/internal/payment"
	"github.com/shopworks/storefront/internal/payment/fake"
)

const testSecret = "handler-test-secret"

type env struct {
	server  *httptest.Server
	gateway *fake.Gateway
	catalog *catalog.MemoryCatalog
}

func newEnv(t *testing.T) *env {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	meter := noop.NewMeterProvider().Meter("test")

	cat := catalog.NewMemoryCatalog(
		catalog.Product{ID: "laptop", Name: "Laptop", PriceCents: 99900, Unit: "each"},
		catalog.Product{ID: "mouse", Name: "Wireless Mouse", PriceCents: 2500, Unit: "each"},
	)

	carts := cartapp.NewService(cartmemory.NewStore(), cat, logger)

	om, err := ordersmetrics.NewMetrics(meter)
	require.NoError(t, err)
	orders := ordersapp.NewService(ordersmemory.NewRepository(), cat, events.NewNoopPublisher(), logger, om)

	cm, err := checkoutmetrics.NewMetrics(meter)
	require.NoError(t, err)
	gateway := fake.NewGateway()
	checkout := checkoutapp.NewService(checkoutmemory.NewSessionStore(), carts, gateway, orders, logger, cm)

	router := api.NewRouter(api.Dependencies{
		Carts:       carts,
		Checkout:    checkout,
		Orders:      orders,
		Idempotency: idemmemory.NewStore(),
		Verifier:    auth.NewVerifier(testSecret),
		Logger:      logger,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &env{server: server, gateway: gateway, catalog: cat}
}

func (e *env) request(t *testing.T, method, path string, headers map[string]string, payload any) (*http.Response, map[string]any) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.server.URL+path, body)
	require.NoError(t, err)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func signToken(t *testing.T, subject, email string, admin bool) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   subject,
		"email": email,
		"admin": admin,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func guest(sessionID string) map[string]string {
	return map[string]string{auth.GuestSessionHeader: sessionID}
}

func TestCart_GuestFlow(t *testing.T) {
	e := newEnv(t)
	headers := guest("guest-abc")

	resp, body := e.request(t, http.MethodPost, "/v1/cart/items", headers, map[string]string{"product_id": "laptop"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, float64(99900), body["total_cents"])

	// Re-adding the same product is a no-op.
	resp, body = e.request(t, http.MethodPost, "/v1/cart/items", headers, map[string]string{"product_id": "laptop"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(99900), body["total_cents"])

	resp, body = e.request(t, http.MethodPost, "/v1/cart/items", headers, map[string]string{"product_id": "mouse"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, float64(102400), body["total_cents"])

	resp, body = e.request(t, http.MethodDelete, "/v1/cart/items/mouse", headers, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(99900), body["total_cents"])

	resp, body = e.request(t, http.MethodGet, "/v1/cart", headers, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["items"], 1)
}

func TestCart_RequiresGuestSessionOrAuth(t *testing.T) {
	e := newEnv(t)

	resp, _ := e.request(t, http.MethodGet, "/v1/cart", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCart_UnknownProduct(t *testing.T) {
	e := newEnv(t)

	resp, _ := e.request(t, http.MethodPost, "/v1/cart/items", guest("guest-abc"), map[string]string{"product_id": "toaster"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCart_MergeAfterLogin(t *testing.T) {
	e := newEnv(t)

	resp, _ := e.request(t, http.MethodPost, "/v1/cart/items", guest("guest-abc"), map[string]string{"product_id": "laptop"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	headers := bearer(signToken(t, "buyer-1", "buyer@example.com", false))
	headers[auth.GuestSessionHeader] = "guest-abc"

	resp, body := e.request(t, http.MethodPost, "/v1/cart/merge", headers, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(99900), body["total_cents"])

	resp, body = e.request(t, http.MethodGet, "/v1/cart", bearer(signToken(t, "buyer-1", "buyer@example.com", false)), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["items"], 1)
}

func TestCheckout_RequiresLogin(t *testing.T) {
	e := newEnv(t)

	resp, body := e.request(t, http.MethodPost, "/v1/checkout", guest("guest-abc"), nil)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "/login", body["login"])
}

func TestCheckout_EmptyCart(t *testing.T) {
	e := newEnv(t)

	resp, _ := e.request(t, http.MethodPost, "/v1/checkout", bearer(signToken(t, "buyer-1", "buyer@example.com", false)), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCheckout_HappyPath(t *testing.T) {
	e := newEnv(t)
	headers := bearer(signToken(t, "buyer-1", "buyer@example.com", false))

	resp, _ := e.request(t, http.MethodPost, "/v1/cart/items", headers, map[string]string{"product_id": "laptop"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, session := e.request(t, http.MethodPost, "/v1/checkout", headers, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "ready", session["state"])
	assert.NotEmpty(t, session["client_token"])
	sessionID := session["id"].(string)

	resp, submitted := e.request(t, http.MethodPost, "/v1/checkout/"+sessionID+"/submit", headers,
		map[string]string{"payment_nonce": e.gateway.IssueNonce()})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "succeeded", submitted["state"])
	orderID := submitted["order_id"].(string)
	require.NotEmpty(t, orderID)
	assert.Nil(t, submitted["last_nonce"])

	resp, orderBody := e.request(t, http.MethodGet, "/v1/orders/"+orderID, headers, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	order := orderBody["order"].(map[string]any)
	assert.Equal(t, float64(99900), order["total_cents"])
	assert.Equal(t, "placed", order["fulfillment"])

	resp, cart := e.request(t, http.MethodGet, "/v1/cart", headers, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, cart["items"])
}

func TestCheckout_CardDeclined(t *testing.T) {
	e := newEnv(t)
	headers := bearer(signToken(t, "buyer-1", "buyer@example.com", false))

	e.request(t, http.MethodPost, "/v1/cart/items", headers, map[string]string{"product_id": "laptop"})
	_, session := e.request(t, http.MethodPost, "/v1/checkout", headers, nil)
	sessionID := session["id"].(string)

	e.gateway.FailSalesWith(payment.ErrCardDeclined)

	resp, _ := e.request(t, http.MethodPost, "/v1/checkout/"+sessionID+"/submit", headers,
		map[string]string{"payment_nonce": e.gateway.IssueNonce()})
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

	resp, polled := e.request(t, http.MethodGet, "/v1/checkout/"+sessionID, headers, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "failed", polled["state"])
	assert.NotEmpty(t, polled["failure_reason"])

	// The cart survives the declined payment.
	resp, cart := e.request(t, http.MethodGet, "/v1/cart", headers, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, cart["items"], 1)
}

func TestCheckout_IdempotencyKeyReplay(t *testing.T) {
	e := newEnv(t)
	headers := bearer(signToken(t, "buyer-1", "buyer@example.com", false))

	e.request(t, http.MethodPost, "/v1/cart/items", headers, map[string]string{"product_id": "laptop"})
	_, session := e.request(t, http.MethodPost, "/v1/checkout", headers, nil)
	sessionID := session["id"].(string)

	submitHeaders := bearer(signToken(t, "buyer-1", "buyer@example.com", false))
	submitHeaders["Idempotency-Key"] = "key-123"

	resp, first := e.request(t, http.MethodPost, "/v1/checkout/"+sessionID+"/submit", submitHeaders,
		map[string]string{"payment_nonce": e.gateway.IssueNonce()})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The retry replays the stored response without touching the gateway.
	resp, replayed := e.request(t, http.MethodPost, "/v1/checkout/"+sessionID+"/submit", submitHeaders,
		map[string]string{"payment_nonce": e.gateway.IssueNonce()})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, first["order_id"], replayed["order_id"])
	assert.Equal(t, 1, e.gateway.SaleCount())
}

func TestCheckout_IdempotencyKeyScopedToSession(t *testing.T) {
	e := newEnv(t)
	headers := bearer(signToken(t, "buyer-1", "buyer@example.com", false))

	e.request(t, http.MethodPost, "/v1/cart/items", headers, map[string]string{"product_id": "laptop"})
	_, session := e.request(t, http.MethodPost, "/v1/checkout", headers, nil)
	sessionID := session["id"].(string)

	submitHeaders := bearer(signToken(t, "buyer-1", "buyer@example.com", false))
	submitHeaders["Idempotency-Key"] = "key-123"

	resp, _ := e.request(t, http.MethodPost, "/v1/checkout/"+sessionID+"/submit", submitHeaders,
		map[string]string{"payment_nonce": e.gateway.IssueNonce()})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// A second purchase reusing the old key against a new session is a
	// client bug, not a retry.
	e.request(t, http.MethodPost, "/v1/cart/items", headers, map[string]string{"product_id": "mouse"})
	_, second := e.request(t, http.MethodPost, "/v1/checkout", headers, nil)
	secondID := second["id"].(string)

	resp, _ = e.request(t, http.MethodPost, "/v1/checkout/"+secondID+"/submit", submitHeaders,
		map[string]string{"payment_nonce": e.gateway.IssueNonce()})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestOrders_BuyerScoping(t *testing.T) {
	e := newEnv(t)
	buyer := bearer(signToken(t, "buyer-1", "buyer@example.com", false))

	e.request(t, http.MethodPost, "/v1/cart/items", buyer, map[string]string{"product_id": "laptop"})
	_, session := e.request(t, http.MethodPost, "/v1/checkout", buyer, nil)
	_, submitted := e.request(t, http.MethodPost, "/v1/checkout/"+session["id"].(string)+"/submit", buyer,
		map[string]string{"payment_nonce": e.gateway.IssueNonce()})
	orderID := submitted["order_id"].(string)

	// Another buyer cannot see the order; an admin can.
	other := bearer(signToken(t, "buyer-2", "other@example.com", false))
	resp, _ := e.request(t, http.MethodGet, "/v1/orders/"+orderID, other, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	admin := bearer(signToken(t, "admin-1", "admin@example.com", true))
	resp, _ = e.request(t, http.MethodGet, "/v1/orders/"+orderID, admin, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, listed := e.request(t, http.MethodGet, "/v1/orders", buyer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, listed["orders"], 1)
}

func TestOrders_FulfillmentUpdateIsAdminOnly(t *testing.T) {
	e := newEnv(t)
	buyer := bearer(signToken(t, "buyer-1", "buyer@example.com", false))

	e.request(t, http.MethodPost, "/v1/cart/items", buyer, map[string]string{"product_id": "laptop"})
	_, session := e.request(t, http.MethodPost, "/v1/checkout", buyer, nil)
	_, submitted := e.request(t, http.MethodPost, "/v1/checkout/"+session["id"].(string)+"/submit", buyer,
		map[string]string{"payment_nonce": e.gateway.IssueNonce()})
	orderID := submitted["order_id"].(string)

	resp, _ := e.request(t, http.MethodPatch, "/v1/orders/"+orderID+"/fulfillment", buyer,
		map[string]string{"status": "shipped"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	admin := bearer(signToken(t, "admin-1", "admin@example.com", true))
	resp, body := e.request(t, http.MethodPatch, "/v1/orders/"+orderID+"/fulfillment", admin,
		map[string]string{"status": "shipped"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	order := body["order"].(map[string]any)
	assert.Equal(t, "shipped", order["fulfillment"])
}

func TestHealthEndpoints(t *testing.T) {
	e := newEnv(t)

	resp, body := e.request(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	resp, body = e.request(t, http.MethodGet, "/readyz", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ready", body["status"])
}

func TestMetricsPathConfigurable(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := api.NewRouter(api.Dependencies{
		Verifier:    auth.NewVerifier(testSecret),
		Logger:      logger,
		MetricsPath: "/internal/metrics",
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/internal/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	moved, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer moved.Body.Close()
	assert.Equal(t, http.StatusNotFound, moved.StatusCode)
}
