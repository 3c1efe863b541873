package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shopworks/storefront/internal/checkout/domain"
	"github.com/shopworks/storefront/internal/checkout/ports"
)

// Sessions expire with the client token's validity window; a buyer who
// wanders off re-enters checkout and fetches a fresh token.
const sessionTTL = 30 * time.Minute

// The submit lock outlives the slowest plausible gateway round-trip so a
// crashed submission cannot wedge the session forever.
const submitLockTTL = 2 * time.Minute

// SessionStore keeps checkout sessions in Redis. The submit lock is a
// SETNX key with a TTL, which bounds one submission in flight per
// session across all API replicas.
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func (s *SessionStore) Save(ctx context.Context, session *domain.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal checkout session: %w", err)
	}

	if err := s.client.Set(ctx, sessionKey(session.ID), payload, sessionTTL).Err(); err != nil {
		return fmt.Errorf("redis save session: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ports.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal checkout session: %w", err)
	}
	return &session, nil
}

func (s *SessionStore) AcquireSubmitLock(ctx context.Context, id string) error {
	acquired, err := s.client.SetNX(ctx, lockKey(id), 1, submitLockTTL).Result()
	if err != nil {
		return fmt.Errorf("redis acquire submit lock: %w", err)
	}
	if !acquired {
		return ports.ErrSubmissionInFlight
	}
	return nil
}

func (s *SessionStore) ReleaseSubmitLock(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, lockKey(id)).Err(); err != nil {
		return fmt.Errorf("redis release submit lock: %w", err)
	}
	return nil
}

func sessionKey(id string) string {
	return fmt.Sprintf("checkout:session:%s", id)
}

func lockKey(id string) string {
	return fmt.Sprintf("checkout:submit:%s", id)
}
