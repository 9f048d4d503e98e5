package cache

import (
	"fmt"

	"go.uber.org/zap"

	appdelivery "github.com/orderbridge/backend/internal/application/delivery"
	"github.com/orderbridge/backend/internal/infrastructure/config"
)

// TokenCacheFactory creates token caches based on configuration
type TokenCacheFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// TokenCacheFactoryOption is a functional option for configuring the factory
type TokenCacheFactoryOption func(*TokenCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) TokenCacheFactoryOption {
	return func(f *TokenCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to an in-memory cache when Redis is unavailable
// Default is true (allow fallback)
func WithInMemoryFallback(allow bool) TokenCacheFactoryOption {
	return func(f *TokenCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewTokenCacheFactory creates a new factory
func NewTokenCacheFactory(cfg config.RedisConfig, opts ...TokenCacheFactoryOption) *TokenCacheFactory {
	f := &TokenCacheFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisCache creates a Redis-backed token cache
func (f *TokenCacheFactory) CreateRedisCache() (appdelivery.TokenCache, error) {
	redisCfg := RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}

	cache, err := NewRedisTokenCache(redisCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis token cache: %w", err)
	}

	return cache, nil
}

// CreateInMemoryCache creates an in-memory token cache
// This is suitable for single-instance deployments and testing
// WARNING: In-memory caches do not share tokens across process instances,
// so each instance refreshes against the platform independently
func (f *TokenCacheFactory) CreateInMemoryCache() appdelivery.TokenCache {
	return NewInMemoryTokenCache()
}

// CreateCache creates a token cache based on whether Redis is available
// It tries Redis first, and falls back to in-memory if Redis is not available
// and AllowInMemoryFallback is true
func (f *TokenCacheFactory) CreateCache() (appdelivery.TokenCache, error) {
	cache, err := f.CreateRedisCache()
	if err == nil {
		f.logger.Info("using Redis token cache")
		return cache, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for token caching but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory token cache. "+
		"Each instance will refresh platform tokens independently.",
		zap.Error(err),
	)
	return f.CreateInMemoryCache(), nil
}
