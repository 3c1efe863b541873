// Package fake is an in-process payment gateway for tests and local
// development. It issues tokens and nonces and enforces the gateway's
// single-use nonce rule, which checkout tests depend on.
package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/shopworks/storefront/internal/payment"
)

type Gateway struct {
	mu          sync.Mutex
	issued      map[string]bool
	spent       map[string]bool
	tokenErr    error
	saleErr     error
	saleCount   int
	tokenCount  int
	lastRequest payment.SaleRequest
}

func NewGateway() *Gateway {
	return &Gateway{
		issued: make(map[string]bool),
		spent:  make(map[string]bool),
	}
}

// FailTokensWith makes ClientToken return err until reset with nil.
func (g *Gateway) FailTokensWith(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tokenErr = err
}

// FailSalesWith makes Sale return err until reset with nil. The nonce is
// still consumed, matching real gateway behavior on declined cards.
func (g *Gateway) FailSalesWith(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.saleErr = err
}

func (g *Gateway) ClientToken(_ context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tokenCount++
	if g.tokenErr != nil {
		return "", g.tokenErr
	}
	return "client-token-" + uuid.NewString(), nil
}

// IssueNonce simulates the hosted card fields tokenizing card input.
func (g *Gateway) IssueNonce() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	nonce := "nonce-" + uuid.NewString()
	g.issued[nonce] = true
	return nonce
}

func (g *Gateway) Sale(_ context.Context, req payment.SaleRequest) (*payment.SaleResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.saleCount++
	g.lastRequest = req

	if !g.issued[req.Nonce] {
		return nil, payment.ErrInvalidNonce
	}
	if g.spent[req.Nonce] {
		return nil, payment.ErrNonceAlreadyUsed
	}
	g.spent[req.Nonce] = true

	if g.saleErr != nil {
		return nil, g.saleErr
	}

	return &payment.SaleResult{
		TransactionID: fmt.Sprintf("txn-%s", uuid.NewString()),
		Status:        "captured",
	}, nil
}

func (g *Gateway) SaleCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.saleCount
}

func (g *Gateway) TokenCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tokenCount
}

func (g *Gateway) LastRequest() payment.SaleRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastRequest
}
