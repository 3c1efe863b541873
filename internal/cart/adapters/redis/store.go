package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shopworks/storefront/internal/cart/domain"
)

// Carts live long enough to survive reloads and the login detour, but not
// forever; the TTL refreshes on every write.
const cartTTL = 7 * 24 * time.Hour

const maxTxRetries = 5

// ErrConcurrentUpdate is returned when optimistic locking keeps failing.
var ErrConcurrentUpdate = errors.New("cart modified concurrently, retries exhausted")

// Store keeps carts in Redis as JSON blobs, one key per actor. Updates
// run under WATCH so concurrent mutations of the same cart retry instead
// of losing writes.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Get(ctx context.Context, key string) (*domain.Cart, error) {
	data, err := s.client.Get(ctx, cartKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.New(key), nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	return unmarshalCart(key, data)
}

func (s *Store) Update(ctx context.Context, key string, fn func(cart *domain.Cart) error) (*domain.Cart, error) {
	storageKey := cartKey(key)
	var updated *domain.Cart

	txn := func(tx *redis.Tx) error {
		cart := domain.New(key)

		data, err := tx.Get(ctx, storageKey).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("redis get cart: %w", err)
		}
		if err == nil {
			if cart, err = unmarshalCart(key, data); err != nil {
				return err
			}
		}

		if err := fn(cart); err != nil {
			return err
		}
		cart.UpdatedAt = time.Now().UTC()

		payload, err := json.Marshal(cart)
		if err != nil {
			return fmt.Errorf("marshal cart: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, storageKey, payload, cartTTL)
			return nil
		})
		if err != nil {
			return err
		}

		updated = cart
		return nil
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txn, storageKey)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}

	return nil, ErrConcurrentUpdate
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, cartKey(key)).Err(); err != nil {
		return fmt.Errorf("redis delete cart: %w", err)
	}
	return nil
}

func unmarshalCart(key string, data []byte) (*domain.Cart, error) {
	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}
	cart.Key = key
	return &cart, nil
}

func cartKey(key string) string {
	return fmt.Sprintf("cart:%s", key)
}
