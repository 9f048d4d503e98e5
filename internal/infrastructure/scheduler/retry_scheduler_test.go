package scheduler

import (
	"context"
	"testing"
	"time"

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

func newRetryFixture(t *testing.T) (*RetryScheduler, *TokenRefreshScheduler, delivery.PlatformConfigRepository, *fakeAdapter) {
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
		platform: delivery.PlatformGetir,
		caps:     delivery.Capabilities{CanPoll: true, HasWebhook: true, MinPollInterval: time.Minute},
	}
	registry := &fakeRegistry{adapters: map[delivery.PlatformType]delivery.PlatformAdapter{delivery.PlatformGetir: adapter}}

	logger := zap.NewNop()
	configRepo := persistence.NewGormPlatformConfigRepository(db)
	orderRepo := persistence.NewGormDeliveryOrderRepository(db)
	logRepo := persistence.NewGormOperationLogRepository(db)

	tokens := appdelivery.NewTokenService(configRepo, registry, nil, logger)
	logs := appdelivery.NewLogService(logRepo, logger)
	broadcaster := event.NewInMemoryOrderBroadcaster(logger)
	statusSync := appdelivery.NewStatusSyncService(orderRepo, configRepo, registry, tokens, logs, broadcaster, logger)
	retries := appdelivery.NewRetryService(logRepo, orderRepo, statusSync, logger)

	retrySched, err := NewRetryScheduler(DefaultRetrySchedulerConfig(), retries, logger)
	require.NoError(t, err)

	tokenSched, err := NewTokenRefreshScheduler(DefaultTokenRefreshSchedulerConfig(), tokens, logger)
	require.NoError(t, err)

	return retrySched, tokenSched, configRepo, adapter
}

func TestRetryScheduler_StartStop(t *testing.T) {
	retrySched, _, _, _ := newRetryFixture(t)
	ctx := context.Background()

	require.NoError(t, retrySched.Start(ctx))
	require.NoError(t, retrySched.Start(ctx))

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, retrySched.Stop(stopCtx))
	require.NoError(t, retrySched.Stop(stopCtx))
}

func TestRetrySchedulerConfig_Validate(t *testing.T) {
	cfg := DefaultRetrySchedulerConfig()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.Interval = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	bad = cfg
	bad.BatchSize = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)
}

func TestTokenRefreshScheduler_RefreshesExpiringTokens(t *testing.T) {
	_, tokenSched, configRepo, adapter := newRetryFixture(t)
	ctx := context.Background()

	cfg := newSavedConfig(t, configRepo, delivery.PlatformGetir)

	tokenSched.config.Interval = 10 * time.Millisecond
	require.NoError(t, tokenSched.Start(ctx))
	defer func() {
		stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		_ = tokenSched.Stop(stopCtx)
	}()

	require.Eventually(t, func() bool {
		found, err := configRepo.FindByID(ctx, cfg.ID)
		return err == nil && found.AccessToken == "tok"
	}, 2*time.Second, 20*time.Millisecond)

	assert.Greater(t, adapter.auths(), 0)
}

func TestTokenRefreshSchedulerConfig_Validate(t *testing.T) {
	cfg := DefaultTokenRefreshSchedulerConfig()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.Interval = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)
}
