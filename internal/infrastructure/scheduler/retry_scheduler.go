package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	appdelivery "github.com/orderbridge/backend/internal/application/delivery"
)

// RetrySchedulerConfig holds configuration for the retry scheduler
type RetrySchedulerConfig struct {
	// Enabled indicates if the scheduler is enabled
	Enabled bool
	// Interval is how often due retries are processed
	Interval time.Duration
	// BatchSize is the maximum number of entries replayed per pass
	BatchSize int
}

// DefaultRetrySchedulerConfig returns default configuration
func DefaultRetrySchedulerConfig() RetrySchedulerConfig {
	return RetrySchedulerConfig{
		Enabled:   true,
		Interval:  time.Minute,
		BatchSize: 20,
	}
}

// Validate validates the configuration
func (c *RetrySchedulerConfig) Validate() error {
	if c.Interval <= 0 {
		return ErrInvalidConfig
	}
	if c.BatchSize <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// RetryScheduler periodically replays failed outbound operations from the
// operation log.
type RetryScheduler struct {
	config  RetrySchedulerConfig
	retries *appdelivery.RetryService
	logger  *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewRetryScheduler creates a new retry scheduler
func NewRetryScheduler(config RetrySchedulerConfig, retries *appdelivery.RetryService, logger *zap.Logger) (*RetryScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &RetryScheduler{
		config:  config,
		retries: retries,
		logger:  logger,
	}, nil
}

// Start starts the scheduler
func (s *RetryScheduler) Start(ctx context.Context) error {
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

	s.logger.Info("Retry scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Int("batch_size", s.config.BatchSize),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *RetryScheduler) Stop(ctx context.Context) error {
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
		s.logger.Info("Retry scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Retry scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *RetryScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			processed, err := s.retries.ProcessDueRetries(ctx, s.config.BatchSize)
			if err != nil {
				s.logger.Error("Retry pass failed", zap.Error(err))
				continue
			}
			if processed > 0 {
				s.logger.Info("Replayed failed operations", zap.Int("count", processed))
			}
		}
	}
}
