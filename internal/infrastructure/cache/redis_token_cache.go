package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	appdelivery "github.com/orderbridge/backend/internal/application/delivery"
)

// RedisTokenCache caches platform access tokens in Redis so that multiple
// instances share refreshed tokens instead of each hitting the platform's
// auth endpoint. The configuration row in the database stays authoritative;
// any Redis fault is surfaced as a cache miss.
type RedisTokenCache struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisTokenCache creates a token cache backed by a new Redis client
func NewRedisTokenCache(cfg RedisConfig) (*RedisTokenCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisTokenCache{
		client:    client,
		keyPrefix: "delivery:token:",
	}, nil
}

// NewRedisTokenCacheWithClient creates a cache with an existing Redis client.
// This is useful for testing or when sharing a client across components
func NewRedisTokenCacheWithClient(client *redis.Client, keyPrefix string) *RedisTokenCache {
	if keyPrefix == "" {
		keyPrefix = "delivery:token:"
	}
	return &RedisTokenCache{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

type cachedTokenEntry struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Get returns the cached token for a configuration, or nil on a miss.
func (c *RedisTokenCache) Get(ctx context.Context, configID uuid.UUID) (*appdelivery.CachedToken, error) {
	raw, err := c.client.Get(ctx, c.keyPrefix+configID.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cached token: %w", err)
	}

	var entry cachedTokenEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		// A corrupt entry is a miss; it will be overwritten on the next Set.
		return nil, nil
	}

	return &appdelivery.CachedToken{
		AccessToken: entry.AccessToken,
		ExpiresAt:   entry.ExpiresAt,
	}, nil
}

// Set stores a token with a TTL matching its remaining lifetime.
func (c *RedisTokenCache) Set(ctx context.Context, configID uuid.UUID, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	raw, err := json.Marshal(cachedTokenEntry{AccessToken: token, ExpiresAt: expiresAt})
	if err != nil {
		return fmt.Errorf("failed to encode token entry: %w", err)
	}

	if err := c.client.Set(ctx, c.keyPrefix+configID.String(), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache token: %w", err)
	}
	return nil
}

// Delete drops the cached token, forcing the next read through to the database.
func (c *RedisTokenCache) Delete(ctx context.Context, configID uuid.UUID) error {
	if err := c.client.Del(ctx, c.keyPrefix+configID.String()).Err(); err != nil {
		return fmt.Errorf("failed to drop cached token: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisTokenCache) Close() error {
	return c.client.Close()
}

// Ensure RedisTokenCache implements TokenCache
var _ appdelivery.TokenCache = (*RedisTokenCache)(nil)
