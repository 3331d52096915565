package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/forecast/ingestion/internal/infrastructure/config"
)

// ResponseStoreFactory creates response stores based on configuration
type ResponseStoreFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// ResponseStoreFactoryOption is a functional option for configuring the factory
type ResponseStoreFactoryOption func(*ResponseStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) ResponseStoreFactoryOption {
	return func(f *ResponseStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to an in-memory store
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) ResponseStoreFactoryOption {
	return func(f *ResponseStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewResponseStoreFactory creates a new factory
func NewResponseStoreFactory(cfg config.RedisConfig, opts ...ResponseStoreFactoryOption) *ResponseStoreFactory {
	f := &ResponseStoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateStore creates a response store for the configured backend. The redis
// backend falls back to in-memory when the server is unreachable, unless
// fallback is disabled.
func (f *ResponseStoreFactory) CreateStore(backend string) (ResponseStore, error) {
	switch backend {
	case "memory":
		return NewInMemoryResponseStore(), nil
	case "redis":
		store, err := NewRedisResponseStore(f.redisConfig)
		if err == nil {
			f.logger.Info("using Redis idempotency store")
			return store, nil
		}
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("Redis required for idempotency but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory idempotency store. "+
			"Duplicate batches may be reprocessed across instances.",
			zap.Error(err),
		)
		return NewInMemoryResponseStore(), nil
	default:
		return nil, fmt.Errorf("unknown idempotency backend %q", backend)
	}
}
