// Package httpgw talks to the payment gateway's REST API. A circuit
// breaker sits in front of the transport so a struggling gateway fails
// fast as GatewayUnavailable instead of stacking up timeouts.
package httpgw

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/shopworks/storefront/internal/payment"
)

type Config struct {
	BaseURL    string
	MerchantID string
	APIKey     string
	Timeout    time.Duration
}

type Client struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*response]
}

type response struct {
	status int
	body   []byte
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
		Name:    "payment-gateway",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
	}
}

type clientTokenResponse struct {
	ClientToken string `json:"client_token"`
}

func (c *Client) ClientToken(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/v1/client_token", map[string]string{
		"merchant_id": c.cfg.MerchantID,
	})
	if err != nil {
		return "", err
	}
	if resp.status != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned %d", payment.ErrGatewayUnavailable, resp.status)
	}

	var payload clientTokenResponse
	if err := json.Unmarshal(resp.body, &payload); err != nil {
		return "", fmt.Errorf("decode client token: %w", err)
	}
	if payload.ClientToken == "" {
		return "", fmt.Errorf("%w: empty client token", payment.ErrGatewayUnavailable)
	}

	return payload.ClientToken, nil
}

type saleResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Error         string `json:"error"`
}

func (c *Client) Sale(ctx context.Context, req payment.SaleRequest) (*payment.SaleResult, error) {
	resp, err := c.do(ctx, http.MethodPost, "/v1/transactions", map[string]any{
		"merchant_id":  c.cfg.MerchantID,
		"nonce":        req.Nonce,
		"amount_cents": req.AmountCents,
		"order_ref":    req.OrderRef,
	})
	if err != nil {
		return nil, err
	}

	var payload saleResponse
	if err := json.Unmarshal(resp.body, &payload); err != nil {
		return nil, fmt.Errorf("decode sale response: %w", err)
	}

	// Business rejections come back as 422 with a machine-readable code.
	// They must not trip the breaker, so they are mapped here rather
	// than inside the breaker's execute.
	switch resp.status {
	case http.StatusOK, http.StatusCreated:
	case http.StatusUnprocessableEntity, http.StatusPaymentRequired:
		return nil, mapSaleError(payload.Error)
	default:
		return nil, fmt.Errorf("%w: sale endpoint returned %d", payment.ErrGatewayUnavailable, resp.status)
	}

	if payload.TransactionID == "" {
		return nil, fmt.Errorf("%w: sale response missing transaction id", payment.ErrGatewayUnavailable)
	}

	return &payment.SaleResult{
		TransactionID: payload.TransactionID,
		Status:        payload.Status,
	}, nil
}

func mapSaleError(code string) error {
	switch code {
	case "card_declined":
		return payment.ErrCardDeclined
	case "nonce_consumed":
		return payment.ErrNonceAlreadyUsed
	case "nonce_invalid", "nonce_expired":
		return payment.ErrInvalidNonce
	default:
		return fmt.Errorf("%w: gateway rejected sale (%s)", payment.ErrCardDeclined, code)
	}
}

// do executes a request through the breaker. Transport errors and 5xx
// responses count as failures; anything with a readable body passes
// through for the caller to interpret.
func (c *Client) do(ctx context.Context, method, path string, body any) (*response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal gateway request: %w", err)
	}

	resp, err := c.breaker.Execute(func() (*response, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("build gateway request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

		httpResp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("gateway request: %w", err)
		}
		defer httpResp.Body.Close()

		respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
		if err != nil {
			return nil, fmt.Errorf("read gateway response: %w", err)
		}

		if httpResp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("gateway returned %d", httpResp.StatusCode)
		}

		return &response{status: httpResp.StatusCode, body: respBody}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit open", payment.ErrGatewayUnavailable)
		}
		return nil, fmt.Errorf("%w: %w", payment.ErrGatewayUnavailable, err)
	}

	return resp, nil
}
