package statestore

import (
	"context"
	"errors"
	"fmt"

	"garagem-shopify-layer/internal/domain"
	"garagem-shopify-layer/internal/ports"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "oauth_state:"

// RedisStateStore implements StateStore using Redis. SETNX gives the unique
// insert, GETDEL makes consumption atomic so two concurrent callbacks can
// never both succeed on the same nonce, and the key TTL expires abandoned
// installs.
type RedisStateStore struct {
	client *redis.Client
}

// NewRedisStateStore creates a Redis-backed OAuth state store.
func NewRedisStateStore(client *redis.Client) ports.StateStore {
	return &RedisStateStore{client: client}
}

// Create inserts a pending state with the standard TTL.
func (s *RedisStateStore) Create(ctx context.Context, state *domain.OAuthState) error {
	ok, err := s.client.SetNX(ctx, keyPrefix+state.State, state.Shop, domain.StateTTL).Result()
	if err != nil {
		return fmt.Errorf("failed to create oauth state: %w", err)
	}
	if !ok {
		return domain.ErrDuplicateState
	}
	return nil
}

// Consume atomically reads and deletes a state, returning the shop it was
// issued for.
func (s *RedisStateStore) Consume(ctx context.Context, state string) (string, error) {
	shop, err := s.client.GetDel(ctx, keyPrefix+state).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrStateNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to consume oauth state: %w", err)
	}
	return shop, nil
}
