package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/forecast/ingestion/internal/infrastructure/config"
)

// RedisResponseStore implements ResponseStore using Redis. Suitable for
// distributed deployments where multiple instances must agree on which
// batches were already processed.
type RedisResponseStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisResponseStore creates a Redis-backed response store
func NewRedisResponseStore(cfg config.RedisConfig) (*RedisResponseStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisResponseStore{
		client:    client,
		keyPrefix: "ingest:idempotency:",
	}, nil
}

// NewRedisResponseStoreWithClient creates a store with an existing Redis
// client. Useful for testing or when sharing a client across components.
func NewRedisResponseStoreWithClient(client *redis.Client, keyPrefix string) *RedisResponseStore {
	if keyPrefix == "" {
		keyPrefix = "ingest:idempotency:"
	}
	return &RedisResponseStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Get returns the stored response for key, if any
func (s *RedisResponseStore) Get(ctx context.Context, key string) (*CachedResponse, bool, error) {
	raw, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load cached response: %w", err)
	}

	var resp CachedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached response: %w", err)
	}
	return &resp, true, nil
}

// Put stores a response under key with a TTL
func (s *RedisResponseStore) Put(ctx context.Context, key string, resp *CachedResponse, ttl time.Duration) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode cached response: %w", err)
	}
	if err := s.client.Set(ctx, s.keyPrefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store cached response: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisResponseStore) Close() error {
	return s.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (s *RedisResponseStore) GetClient() *redis.Client {
	return s.client
}

var _ ResponseStore = (*RedisResponseStore)(nil)
