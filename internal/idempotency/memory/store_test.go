package memory

import (
	"context"
	"testing"

	"github.com/shopworks/storefront/internal/checkout/ports"
)

func TestStore_GetUnknownKey(t *testing.T) {
	store := NewStore()

	resp, err := store.Get(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp != nil {
		t.Fatalf("expected nil for unknown key, got %+v", resp)
	}
}

func TestStore_SaveAndReplay(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	saved := ports.StoredResponse{
		SessionID:  "sess-1",
		StatusCode: 201,
		Body:       []byte(`{"order_id":"ord-1"}`),
		OrderID:    "ord-1",
	}
	if err := store.Save(ctx, "key-1", saved); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := store.Get(ctx, "key-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp == nil {
		t.Fatal("expected stored response")
	}
	if resp.SessionID != "sess-1" || resp.StatusCode != 201 || resp.OrderID != "ord-1" {
		t.Fatalf("stored response mismatch: %+v", resp)
	}

	// The replayed body is a copy; mutating it must not corrupt the store.
	resp.Body[0] = 'X'
	again, err := store.Get(ctx, "key-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(again.Body) != `{"order_id":"ord-1"}` {
		t.Fatalf("stored body mutated: %s", again.Body)
	}
}
