package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	appdelivery "github.com/orderbridge/backend/internal/application/delivery"
	"github.com/orderbridge/backend/internal/domain/delivery"
	"github.com/orderbridge/backend/internal/infrastructure/event"
	"github.com/orderbridge/backend/internal/infrastructure/persistence"
	"github.com/orderbridge/backend/internal/infrastructure/persistence/models"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeAdapter struct {
	mu        sync.Mutex
	platform  delivery.PlatformType
	caps      delivery.Capabilities
	pollOut   []delivery.NormalizedOrder
	pollErr   error
	authErr   error
	pollCalls int
	authCalls int
}

func (a *fakeAdapter) Platform() delivery.PlatformType { return a.platform }

func (a *fakeAdapter) Capabilities() delivery.Capabilities { return a.caps }

func (a *fakeAdapter) Authenticate(ctx context.Context, cfg *delivery.PlatformConfig) (*delivery.AuthResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.authCalls++
	if a.authErr != nil {
		return nil, a.authErr
	}
	return &delivery.AuthResult{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (a *fakeAdapter) TestConnection(ctx context.Context, cfg *delivery.PlatformConfig) error {
	return nil
}

func (a *fakeAdapter) AcceptOrder(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID string) error {
	return nil
}

func (a *fakeAdapter) RejectOrder(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID, reason string) error {
	return nil
}

func (a *fakeAdapter) MarkPreparing(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID string) error {
	return nil
}

func (a *fakeAdapter) MarkReady(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID string) error {
	return nil
}

func (a *fakeAdapter) MarkPickedUp(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID string) error {
	return nil
}

func (a *fakeAdapter) CancelOrder(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID, reason string) error {
	return nil
}

func (a *fakeAdapter) PollNewOrders(ctx context.Context, cfg *delivery.PlatformConfig) ([]delivery.NormalizedOrder, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pollCalls++
	if a.pollErr != nil {
		return nil, a.pollErr
	}
	return a.pollOut, nil
}

func (a *fakeAdapter) ParseWebhookOrder(ctx context.Context, cfg *delivery.PlatformConfig, payload []byte) (*delivery.NormalizedOrder, error) {
	return nil, delivery.ErrCapabilityNotSupported
}

func (a *fakeAdapter) SyncMenu(ctx context.Context, cfg *delivery.PlatformConfig, items []delivery.MenuPushItem) error {
	return nil
}

func (a *fakeAdapter) UpdateItemAvailability(ctx context.Context, cfg *delivery.PlatformConfig, externalItemID string, available bool) error {
	return nil
}

func (a *fakeAdapter) OpenRestaurant(ctx context.Context, cfg *delivery.PlatformConfig) error {
	return nil
}

func (a *fakeAdapter) CloseRestaurant(ctx context.Context, cfg *delivery.PlatformConfig) error {
	return nil
}

func (a *fakeAdapter) polls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pollCalls
}

func (a *fakeAdapter) auths() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.authCalls
}

var _ delivery.PlatformAdapter = (*fakeAdapter)(nil)

type fakeRegistry struct {
	adapters map[delivery.PlatformType]delivery.PlatformAdapter
}

func (r *fakeRegistry) Adapter(platform delivery.PlatformType) (delivery.PlatformAdapter, error) {
	adapter, ok := r.adapters[platform]
	if !ok {
		return nil, delivery.ErrPlatformNotSupported
	}
	return adapter, nil
}

func (r *fakeRegistry) Adapters() []delivery.PlatformAdapter {
	out := make([]delivery.PlatformAdapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a)
	}
	return out
}

func (r *fakeRegistry) PollablePlatforms() []delivery.PlatformType {
	var out []delivery.PlatformType
	for platform, a := range r.adapters {
		if a.Capabilities().CanPoll {
			out = append(out, platform)
		}
	}
	return out
}

var _ delivery.AdapterRegistry = (*fakeRegistry)(nil)

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

type pollFixture struct {
	scheduler *OrderPollScheduler
	adapter   *fakeAdapter
	configs   delivery.PlatformConfigRepository
	orders    delivery.DeliveryOrderRepository
	logRepo   delivery.OperationLogRepository
}

func newPollFixture(t *testing.T, platform delivery.PlatformType) *pollFixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.PlatformConfigModel{},
		&models.DeliveryOrderModel{},
		&models.DeliveryOrderItemModel{},
		&models.MenuItemMappingModel{},
		&models.OperationLogModel{},
	))

	adapter := &fakeAdapter{
		platform: platform,
		caps:     delivery.Capabilities{CanPoll: true, MinPollInterval: time.Minute},
	}
	registry := &fakeRegistry{adapters: map[delivery.PlatformType]delivery.PlatformAdapter{platform: adapter}}

	logger := zap.NewNop()
	configRepo := persistence.NewGormPlatformConfigRepository(db)
	orderRepo := persistence.NewGormDeliveryOrderRepository(db)
	mappingRepo := persistence.NewGormMenuItemMappingRepository(db)
	logRepo := persistence.NewGormOperationLogRepository(db)

	tokens := appdelivery.NewTokenService(configRepo, registry, nil, logger)
	logs := appdelivery.NewLogService(logRepo, logger)
	broadcaster := event.NewInMemoryOrderBroadcaster(logger)
	orders := appdelivery.NewOrderService(orderRepo, mappingRepo, configRepo, registry, tokens, logs, broadcaster, logger)

	sched, err := NewOrderPollScheduler(DefaultOrderPollSchedulerConfig(), configRepo, registry, tokens, orders, logs, logger)
	require.NoError(t, err)

	return &pollFixture{
		scheduler: sched,
		adapter:   adapter,
		configs:   configRepo,
		orders:    orderRepo,
		logRepo:   logRepo,
	}
}

func newSavedConfig(t *testing.T, repo delivery.PlatformConfigRepository, platform delivery.PlatformType) *delivery.PlatformConfig {
	t.Helper()
	cfg, err := delivery.NewPlatformConfig(uuid.New(), platform, json.RawMessage(`{"apiKey":"k"}`), "rest-1")
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), cfg))
	return cfg
}

func (f *pollFixture) savedConfig(t *testing.T, platform delivery.PlatformType) *delivery.PlatformConfig {
	t.Helper()
	return newSavedConfig(t, f.configs, platform)
}

func normalizedOrder(platform delivery.PlatformType, externalID string) delivery.NormalizedOrder {
	return delivery.NormalizedOrder{
		Platform:        platform,
		ExternalOrderID: externalID,
		CustomerName:    "Poll Customer",
		Items: []delivery.NormalizedItem{
			{ExternalItemID: "ext-item-1", Name: "Pide", Quantity: 1, UnitPrice: decimal.NewFromInt(80)},
		},
		TotalAmount: decimal.NewFromInt(80),
		FinalAmount: decimal.NewFromInt(80),
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestOrderPollScheduler_PollIngestsOrders(t *testing.T) {
	f := newPollFixture(t, delivery.PlatformMigros)
	ctx := context.Background()

	cfg := f.savedConfig(t, delivery.PlatformMigros)
	f.adapter.pollOut = []delivery.NormalizedOrder{
		normalizedOrder(delivery.PlatformMigros, "mg-1"),
		normalizedOrder(delivery.PlatformMigros, "mg-2"),
	}

	f.scheduler.pollConfig(ctx, cfg, 0)

	first, err := f.orders.FindByExternalID(ctx, cfg.TenantID, delivery.PlatformMigros, "mg-1")
	require.NoError(t, err)
	assert.Equal(t, "Poll Customer", first.CustomerName)

	_, err = f.orders.FindByExternalID(ctx, cfg.TenantID, delivery.PlatformMigros, "mg-2")
	require.NoError(t, err)

	stamped, err := f.configs.FindByID(ctx, cfg.ID)
	require.NoError(t, err)
	assert.NotNil(t, stamped.LastOrderPollAt)
}

func TestOrderPollScheduler_RepeatedPollIsIdempotent(t *testing.T) {
	f := newPollFixture(t, delivery.PlatformMigros)
	ctx := context.Background()

	cfg := f.savedConfig(t, delivery.PlatformMigros)
	f.adapter.pollOut = []delivery.NormalizedOrder{normalizedOrder(delivery.PlatformMigros, "mg-1")}

	f.scheduler.pollConfig(ctx, cfg, 0)
	f.scheduler.pollConfig(ctx, cfg, 0)

	order, err := f.orders.FindByExternalID(ctx, cfg.TenantID, delivery.PlatformMigros, "mg-1")
	require.NoError(t, err)
	assert.NotNil(t, order)
	assert.Equal(t, 2, f.adapter.polls())
}

func TestOrderPollScheduler_PollFailureTripsBreaker(t *testing.T) {
	f := newPollFixture(t, delivery.PlatformMigros)
	ctx := context.Background()

	cfg := f.savedConfig(t, delivery.PlatformMigros)
	f.adapter.pollErr = errors.New("upstream timeout")

	f.scheduler.pollConfig(ctx, cfg, 0)

	failed, err := f.configs.FindByID(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, failed.ErrorCount)
	assert.Equal(t, "upstream timeout", failed.LastError)

	entries, total, err := f.logRepo.List(ctx, cfg.TenantID, delivery.OperationLogFilter{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, delivery.ActionPollOrders, entries[0].Action)
	assert.False(t, entries[0].Success)
}

func TestOrderPollScheduler_StaleTokenSkipsPoll(t *testing.T) {
	f := newPollFixture(t, delivery.PlatformMigros)
	ctx := context.Background()

	cfg := f.savedConfig(t, delivery.PlatformMigros)
	f.adapter.authErr = errors.New("invalid credentials")

	f.scheduler.pollConfig(ctx, cfg, 0)

	// The failed refresh is counted once; the tick must not also poll with
	// the dead token and count the same outage a second time.
	assert.Equal(t, 0, f.adapter.polls())

	failed, err := f.configs.FindByID(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, failed.ErrorCount)
	assert.Nil(t, failed.LastOrderPollAt)
}

func TestOrderPollScheduler_SuccessResetsBreaker(t *testing.T) {
	f := newPollFixture(t, delivery.PlatformMigros)
	ctx := context.Background()

	cfg := f.savedConfig(t, delivery.PlatformMigros)
	for i := 0; i < 3; i++ {
		require.NoError(t, f.configs.RecordError(ctx, cfg.ID, "poll failed", time.Now()))
	}

	degraded, err := f.configs.FindByID(ctx, cfg.ID)
	require.NoError(t, err)
	f.scheduler.pollConfig(ctx, degraded, 0)

	recovered, err := f.configs.FindByID(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, recovered.ErrorCount)
}

func TestOrderPollScheduler_CollectDueSkipping(t *testing.T) {
	f := newPollFixture(t, delivery.PlatformMigros)
	ctx := context.Background()

	t.Run("skips open circuit breaker", func(t *testing.T) {
		cfg := f.savedConfig(t, delivery.PlatformMigros)
		for i := 0; i < delivery.CircuitBreakerThreshold; i++ {
			require.NoError(t, f.configs.RecordError(ctx, cfg.ID, "down", time.Now()))
		}

		f.scheduler.collectDue(ctx)
		assert.Empty(t, f.scheduler.jobs)

		require.NoError(t, f.configs.Delete(ctx, cfg.ID))
	})

	t.Run("skips recently polled configuration", func(t *testing.T) {
		cfg := f.savedConfig(t, delivery.PlatformMigros)
		require.NoError(t, f.configs.UpdateLastPollTime(ctx, cfg.ID, time.Now()))

		f.scheduler.collectDue(ctx)
		assert.Empty(t, f.scheduler.jobs)

		require.NoError(t, f.configs.Delete(ctx, cfg.ID))
	})

	t.Run("queues due configuration", func(t *testing.T) {
		cfg := f.savedConfig(t, delivery.PlatformMigros)

		f.scheduler.collectDue(ctx)
		require.Len(t, f.scheduler.jobs, 1)

		queued := <-f.scheduler.jobs
		assert.Equal(t, cfg.ID, queued.ID)
	})
}

func TestOrderPollScheduler_StartStop(t *testing.T) {
	f := newPollFixture(t, delivery.PlatformMigros)
	ctx := context.Background()

	require.NoError(t, f.scheduler.Start(ctx))
	// Starting twice is a no-op.
	require.NoError(t, f.scheduler.Start(ctx))

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, f.scheduler.Stop(stopCtx))
	require.NoError(t, f.scheduler.Stop(stopCtx))
}

func TestOrderPollSchedulerConfig_Validate(t *testing.T) {
	cfg := DefaultOrderPollSchedulerConfig()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.TickInterval = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	bad = cfg
	bad.MaxConcurrentPolls = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	bad = cfg
	bad.PollTimeout = -time.Second
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)
}
