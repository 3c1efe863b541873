package httpgw_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopworks/storefront/internal/payment"
	"github.com/shopworks/storefront/internal/payment/httpgw"
)

func newClient(baseURL string) *httpgw.Client {
	return httpgw.NewClient(httpgw.Config{
		BaseURL:    baseURL,
		MerchantID: "merchant-1",
		APIKey:     "key-1",
		Timeout:    2 * time.Second,
	})
}

func TestClientToken(t *testing.T) {
	t.Run("returns token from gateway", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/client_token", r.URL.Path)
			assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
			_ = json.NewEncoder(w).Encode(map[string]string{"client_token": "tok-123"})
		}))
		defer srv.Close()

		token, err := newClient(srv.URL).ClientToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tok-123", token)
	})

	t.Run("maps server errors to gateway unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := newClient(srv.URL).ClientToken(context.Background())
		assert.ErrorIs(t, err, payment.ErrGatewayUnavailable)
	})

	t.Run("unreachable gateway is unavailable", func(t *testing.T) {
		client := newClient("http://127.0.0.1:1")

		_, err := client.ClientToken(context.Background())
		assert.ErrorIs(t, err, payment.ErrGatewayUnavailable)
	})
}

func TestSale(t *testing.T) {
	t.Run("returns transaction on capture", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "nonce-1", body["nonce"])
			assert.EqualValues(t, 99900, body["amount_cents"])

			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"transaction_id": "txn-1",
				"status":         "captured",
			})
		}))
		defer srv.Close()

		result, err := newClient(srv.URL).Sale(context.Background(), payment.SaleRequest{
			Nonce:       "nonce-1",
			AmountCents: 99900,
			OrderRef:    "chk-1",
		})
		require.NoError(t, err)
		assert.Equal(t, "txn-1", result.TransactionID)
		assert.Equal(t, "captured", result.Status)
	})

	t.Run("maps business rejections without tripping the breaker", func(t *testing.T) {
		cases := []struct {
			code string
			want error
		}{
			{"card_declined", payment.ErrCardDeclined},
			{"nonce_consumed", payment.ErrNonceAlreadyUsed},
			{"nonce_invalid", payment.ErrInvalidNonce},
			{"nonce_expired", payment.ErrInvalidNonce},
		}

		for _, tc := range cases {
			t.Run(tc.code, func(t *testing.T) {
				srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(http.StatusUnprocessableEntity)
					_ = json.NewEncoder(w).Encode(map[string]string{"error": tc.code})
				}))
				defer srv.Close()

				client := newClient(srv.URL)
				for i := 0; i < 10; i++ {
					_, err := client.Sale(context.Background(), payment.SaleRequest{Nonce: "n"})
					assert.ErrorIs(t, err, tc.want)
					assert.NotErrorIs(t, err, payment.ErrGatewayUnavailable)
				}
			})
		}
	})

	t.Run("circuit opens after consecutive transport failures", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		client := newClient(srv.URL)
		for i := 0; i < 6; i++ {
			_, err := client.Sale(context.Background(), payment.SaleRequest{Nonce: "n"})
			assert.ErrorIs(t, err, payment.ErrGatewayUnavailable)
		}

		// Circuit is now open; the server stops being consulted.
		srv.Close()
		_, err := client.Sale(context.Background(), payment.SaleRequest{Nonce: "n"})
		assert.ErrorIs(t, err, payment.ErrGatewayUnavailable)
	})
}
