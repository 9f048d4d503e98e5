package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orderbridge/backend/internal/domain/delivery"
)

const (
	// tokenValidityMargin is the minimum remaining validity a caller gets
	// back from EnsureValidToken.
	tokenValidityMargin = 2 * time.Minute

	// refreshWindow is how far ahead the batch refresh job looks.
	refreshWindow = 10 * time.Minute
)

// CachedToken is a token entry held in the cache layer.
type CachedToken struct {
	AccessToken string
	ExpiresAt   time.Time
}

// TokenCache is an optional read-through cache in front of the configuration
// row. The database row stays authoritative; cache faults are treated as
// misses.
type TokenCache interface {
	Get(ctx context.Context, configID uuid.UUID) (*CachedToken, error)
	Set(ctx context.Context, configID uuid.UUID, token string, expiresAt time.Time) error
	Delete(ctx context.Context, configID uuid.UUID) error
}

// TokenService manages the platform access token lifecycle. Callers never
// fail hard on a refresh failure: they get the stale configuration back and
// must treat a token that is still invalid as "skip this tick".
type TokenService struct {
	configs  delivery.PlatformConfigRepository
	registry delivery.AdapterRegistry
	cache    TokenCache
	logger   *zap.Logger
}

// NewTokenService creates a new TokenService. The cache may be nil.
func NewTokenService(
	configs delivery.PlatformConfigRepository,
	registry delivery.AdapterRegistry,
	cache TokenCache,
	logger *zap.Logger,
) *TokenService {
	return &TokenService{
		configs:  configs,
		registry: registry,
		cache:    cache,
		logger:   logger,
	}
}

// EnsureValidToken returns the configuration with a token valid for at least
// tokenValidityMargin. A token near expiry is refreshed synchronously; the
// new token is persisted with the error state reset. On refresh failure the
// error is recorded on the configuration and the stale configuration is
// returned without a hard error.
func (s *TokenService) EnsureValidToken(ctx context.Context, configID uuid.UUID) (*delivery.PlatformConfig, error) {
	cfg, err := s.configs.FindByID(ctx, configID)
	if err != nil {
		return nil, err
	}

	if cfg.TokenValidFor(tokenValidityMargin) {
		return cfg, nil
	}

	if cached := s.cachedToken(ctx, configID); cached != nil {
		cfg.AccessToken = cached.AccessToken
		cfg.TokenExpiresAt = &cached.ExpiresAt
		return cfg, nil
	}

	return s.refresh(ctx, cfg), nil
}

// RefreshExpiringTokens refreshes every enabled configuration whose token
// expires within the refresh window. Configurations are refreshed
// independently: one platform's auth failure does not block another's.
func (s *TokenService) RefreshExpiringTokens(ctx context.Context) error {
	configs, err := s.configs.FindTokenExpiringBefore(ctx, time.Now().Add(refreshWindow))
	if err != nil {
		return err
	}

	for i := range configs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		s.refresh(ctx, &configs[i])
	}
	return nil
}

// refresh performs one authentication attempt and persists the outcome.
// It always returns a usable configuration pointer, stale on failure.
func (s *TokenService) refresh(ctx context.Context, cfg *delivery.PlatformConfig) *delivery.PlatformConfig {
	adapter, err := s.registry.Adapter(cfg.Platform)
	if err != nil {
		s.recordFailure(ctx, cfg, err)
		return cfg
	}

	result, err := adapter.Authenticate(ctx, cfg)
	if err != nil {
		s.recordFailure(ctx, cfg, err)
		return cfg
	}

	if err := s.configs.UpdateToken(ctx, cfg.ID, result.AccessToken, result.ExpiresAt); err != nil {
		s.logger.Error("failed to persist refreshed token",
			zap.String("config_id", cfg.ID.String()),
			zap.String("platform", cfg.Platform.String()),
			zap.Error(err),
		)
		return cfg
	}

	cfg.AccessToken = result.AccessToken
	cfg.TokenExpiresAt = &result.ExpiresAt
	cfg.ErrorCount = 0
	cfg.LastError = ""
	cfg.LastErrorAt = nil

	s.cacheToken(ctx, cfg.ID, result)

	s.logger.Info("platform token refreshed",
		zap.String("config_id", cfg.ID.String()),
		zap.String("platform", cfg.Platform.String()),
		zap.Time("expires_at", result.ExpiresAt),
	)
	return cfg
}

func (s *TokenService) recordFailure(ctx context.Context, cfg *delivery.PlatformConfig, cause error) {
	s.logger.Warn("platform token refresh failed",
		zap.String("config_id", cfg.ID.String()),
		zap.String("platform", cfg.Platform.String()),
		zap.Error(cause),
	)
	if err := s.configs.RecordError(ctx, cfg.ID, cause.Error(), time.Now()); err != nil {
		s.logger.Error("failed to record token refresh error",
			zap.String("config_id", cfg.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *TokenService) cachedToken(ctx context.Context, configID uuid.UUID) *CachedToken {
	if s.cache == nil {
		return nil
	}
	cached, err := s.cache.Get(ctx, configID)
	if err != nil || cached == nil {
		return nil
	}
	if time.Now().Add(tokenValidityMargin).After(cached.ExpiresAt) {
		return nil
	}
	return cached
}

func (s *TokenService) cacheToken(ctx context.Context, configID uuid.UUID, result *delivery.AuthResult) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, configID, result.AccessToken, result.ExpiresAt); err != nil {
		s.logger.Debug("token cache write failed",
			zap.String("config_id", configID.String()),
			zap.Error(err),
		)
	}
}
