package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	appdelivery "github.com/orderbridge/backend/internal/application/delivery"
	"github.com/orderbridge/backend/internal/domain/delivery"
)

// ---------------------------------------------------------------------------
// OrderPollSchedulerConfig
// ---------------------------------------------------------------------------

// OrderPollSchedulerConfig holds configuration for the order poll scheduler
type OrderPollSchedulerConfig struct {
	// Enabled indicates if the scheduler is enabled
	Enabled bool
	// TickInterval is how often due configurations are collected
	TickInterval time.Duration
	// MaxConcurrentPolls is the number of poll workers
	MaxConcurrentPolls int
	// PollTimeout is the maximum time a single configuration poll can run
	PollTimeout time.Duration
}

// DefaultOrderPollSchedulerConfig returns default configuration
func DefaultOrderPollSchedulerConfig() OrderPollSchedulerConfig {
	return OrderPollSchedulerConfig{
		Enabled:            true,
		TickInterval:       15 * time.Second,
		MaxConcurrentPolls: 4,
		PollTimeout:        30 * time.Second,
	}
}

// Validate validates the configuration
func (c *OrderPollSchedulerConfig) Validate() error {
	if c.TickInterval <= 0 {
		return ErrInvalidConfig
	}
	if c.MaxConcurrentPolls <= 0 {
		return ErrInvalidConfig
	}
	if c.PollTimeout <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// ---------------------------------------------------------------------------
// OrderPollScheduler
// ---------------------------------------------------------------------------

// OrderPollScheduler periodically pulls new orders from every enabled
// configuration of the pollable platforms. Each tick collects the
// configurations that are due and fans them out to a small worker pool, so
// one slow marketplace cannot starve the others.
//
// A configuration whose circuit breaker is open is skipped until a
// successful operation resets its error counter.
type OrderPollScheduler struct {
	config   OrderPollSchedulerConfig
	configs  delivery.PlatformConfigRepository
	registry delivery.AdapterRegistry
	tokens   *appdelivery.TokenService
	orders   *appdelivery.OrderService
	logs     *appdelivery.LogService
	logger   *zap.Logger

	jobs      chan *delivery.PlatformConfig
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewOrderPollScheduler creates a new order poll scheduler
func NewOrderPollScheduler(
	config OrderPollSchedulerConfig,
	configs delivery.PlatformConfigRepository,
	registry delivery.AdapterRegistry,
	tokens *appdelivery.TokenService,
	orders *appdelivery.OrderService,
	logs *appdelivery.LogService,
	logger *zap.Logger,
) (*OrderPollScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &OrderPollScheduler{
		config:   config,
		configs:  configs,
		registry: registry,
		tokens:   tokens,
		orders:   orders,
		logs:     logs,
		logger:   logger,
		jobs:     make(chan *delivery.PlatformConfig, 100),
	}, nil
}

// Start starts the scheduler
func (s *OrderPollScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.MaxConcurrentPolls; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.wg.Add(1)
	go s.tickLoop(ctx)

	s.logger.Info("Order poll scheduler started",
		zap.Int("workers", s.config.MaxConcurrentPolls),
		zap.Duration("tick_interval", s.config.TickInterval),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *OrderPollScheduler) Stop(ctx context.Context) error {
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
		s.logger.Info("Order poll scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Order poll scheduler stop timed out")
		return ctx.Err()
	}
}

// tickLoop collects due configurations on every tick
func (s *OrderPollScheduler) tickLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.collectDue(ctx)
		}
	}
}

// collectDue finds the enabled configurations that are due for a poll and
// hands them to the worker pool
func (s *OrderPollScheduler) collectDue(ctx context.Context) {
	platforms := s.registry.PollablePlatforms()
	if len(platforms) == 0 {
		return
	}

	configs, err := s.configs.FindEnabledByPlatforms(ctx, platforms)
	if err != nil {
		s.logger.Error("Failed to load pollable configurations", zap.Error(err))
		return
	}

	now := time.Now()
	for i := range configs {
		cfg := &configs[i]
		if cfg.CircuitOpen() {
			s.logger.Debug("Skipping configuration with open circuit breaker",
				zap.String("config_id", cfg.ID.String()),
				zap.String("platform", cfg.Platform.String()),
				zap.Int("error_count", cfg.ErrorCount),
			)
			continue
		}

		adapter, err := s.registry.Adapter(cfg.Platform)
		if err != nil {
			continue
		}
		if !cfg.PollDue(adapter.Capabilities().MinPollInterval, now) {
			continue
		}

		select {
		case s.jobs <- cfg:
		default:
			// Queue full; the configuration stays due and is picked up on
			// a later tick.
			s.logger.Warn("Poll queue full, deferring configuration",
				zap.String("config_id", cfg.ID.String()),
			)
		}
	}
}

// worker processes poll jobs from the queue
func (s *OrderPollScheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-s.jobs:
			if !ok {
				return
			}
			s.pollConfig(ctx, cfg, workerID)
		}
	}
}

// pollConfig pulls new orders for a single configuration
func (s *OrderPollScheduler) pollConfig(ctx context.Context, cfg *delivery.PlatformConfig, workerID int) {
	pollCtx, cancel := context.WithTimeout(ctx, s.config.PollTimeout)
	defer cancel()

	adapter, err := s.registry.Adapter(cfg.Platform)
	if err != nil {
		return
	}

	cfg, err = s.tokens.EnsureValidToken(pollCtx, cfg.ID)
	if err != nil {
		s.logger.Warn("Failed to load configuration for poll",
			zap.Int("worker_id", workerID),
			zap.Error(err),
		)
		return
	}
	if !cfg.TokenValidFor(0) {
		// The refresh failed and already bumped the error counter; polling
		// with the stale token would only count the same failure twice.
		s.logger.Warn("Skipping poll without a valid token",
			zap.Int("worker_id", workerID),
			zap.String("config_id", cfg.ID.String()),
			zap.String("platform", cfg.Platform.String()),
		)
		return
	}

	incoming, err := adapter.PollNewOrders(pollCtx, cfg)
	if err != nil {
		s.recordPollFailure(ctx, cfg, err)
		return
	}

	ingested := 0
	for i := range incoming {
		// One bad order must not block the rest of the batch.
		if _, err := s.orders.ProcessIncomingOrder(ctx, cfg.TenantID, &incoming[i]); err != nil {
			if errors.Is(err, delivery.ErrDuplicateOrder) {
				continue
			}
			s.logger.Error("Failed to ingest polled order",
				zap.String("platform", cfg.Platform.String()),
				zap.String("external_order_id", incoming[i].ExternalOrderID),
				zap.Error(err),
			)
			continue
		}
		ingested++
	}

	if err := s.configs.UpdateLastPollTime(ctx, cfg.ID, time.Now()); err != nil {
		s.logger.Warn("Failed to stamp poll time",
			zap.String("config_id", cfg.ID.String()),
			zap.Error(err),
		)
	}
	if cfg.ErrorCount > 0 {
		if err := s.configs.ResetErrors(ctx, cfg.ID); err != nil {
			s.logger.Warn("Failed to reset error counter",
				zap.String("config_id", cfg.ID.String()),
				zap.Error(err),
			)
		}
	}

	if ingested > 0 {
		s.logger.Info("Poll ingested new orders",
			zap.Int("worker_id", workerID),
			zap.String("platform", cfg.Platform.String()),
			zap.String("tenant_id", cfg.TenantID.String()),
			zap.Int("count", ingested),
		)
	}
}

// recordPollFailure bumps the circuit breaker counter and logs the failed
// poll in the operation log
func (s *OrderPollScheduler) recordPollFailure(ctx context.Context, cfg *delivery.PlatformConfig, cause error) {
	s.logger.Warn("Poll failed",
		zap.String("platform", cfg.Platform.String()),
		zap.String("config_id", cfg.ID.String()),
		zap.Error(cause),
	)

	if err := s.configs.RecordError(ctx, cfg.ID, cause.Error(), time.Now()); err != nil {
		s.logger.Error("Failed to record poll error", zap.Error(err))
	}

	entry := delivery.NewOperationLog(cfg.TenantID, cfg.Platform, delivery.DirectionOutbound, delivery.ActionPollOrders)
	// The next tick retries polling anyway, so the entry carries no retry
	// schedule of its own.
	entry.MarkFailed(cause.Error(), 0)
	s.logs.Record(ctx, entry)
}
