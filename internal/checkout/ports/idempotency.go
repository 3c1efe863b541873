package ports

import "context"

// StoredResponse contains the response data to replay for a reused key.
// SessionID scopes the key: a key presented against a different checkout
// session is a client bug, not a retry.
type StoredResponse struct {
	SessionID  string
	StatusCode int
	Body       []byte
	OrderID    string
}

// IdempotencyStore lets the submit endpoint replay its response when a
// client retries with the same Idempotency-Key.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*StoredResponse, error)
	Save(ctx context.Context, key string, response StoredResponse) error
}
