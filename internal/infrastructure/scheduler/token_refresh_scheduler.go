package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	appdelivery "github.com/orderbridge/backend/internal/application/delivery"
)

// TokenRefreshSchedulerConfig holds configuration for the token refresh scheduler
type TokenRefreshSchedulerConfig struct {
	// Enabled indicates if the scheduler is enabled
	Enabled bool
	// Interval is how often expiring tokens are checked
	Interval time.Duration
}

// DefaultTokenRefreshSchedulerConfig returns default configuration
func DefaultTokenRefreshSchedulerConfig() TokenRefreshSchedulerConfig {
	return TokenRefreshSchedulerConfig{
		Enabled:  true,
		Interval: 5 * time.Minute,
	}
}

// Validate validates the configuration
func (c *TokenRefreshSchedulerConfig) Validate() error {
	if c.Interval <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// TokenRefreshScheduler proactively refreshes platform tokens that are close
// to expiry, so request paths rarely pay the cost of a synchronous refresh.
type TokenRefreshScheduler struct {
	config TokenRefreshSchedulerConfig
	tokens *appdelivery.TokenService
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewTokenRefreshScheduler creates a new token refresh scheduler
func NewTokenRefreshScheduler(config TokenRefreshSchedulerConfig, tokens *appdelivery.TokenService, logger *zap.Logger) (*TokenRefreshScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &TokenRefreshScheduler{
		config: config,
		tokens: tokens,
		logger: logger,
	}, nil
}

// Start starts the scheduler
func (s *TokenRefreshScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("Token refresh scheduler started",
		zap.Duration("interval", s.config.Interval),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *TokenRefreshScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Token refresh scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Token refresh scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *TokenRefreshScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.tokens.RefreshExpiringTokens(ctx); err != nil {
				s.logger.Error("Token refresh pass failed", zap.Error(err))
			}
		}
	}
}
