package persistence

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
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/orderbridge/backend/internal/domain/delivery"
	"github.com/orderbridge/backend/internal/infrastructure/persistence/models"
)

func setupDeliveryTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.PlatformConfigModel{},
		&models.DeliveryOrderModel{},
		&models.DeliveryOrderItemModel{},
		&models.MenuItemMappingModel{},
		&models.OperationLogModel{},
	)
	require.NoError(t, err)

	return db
}

func newTestPlatformConfig(t *testing.T, platform delivery.PlatformType) *delivery.PlatformConfig {
	t.Helper()
	cfg, err := delivery.NewPlatformConfig(uuid.New(), platform, json.RawMessage(`{"apiKey":"k"}`), "rest-1")
	require.NoError(t, err)
	return cfg
}

func newTestOrder(tenantID uuid.UUID, platform delivery.PlatformType, externalID string) *delivery.DeliveryOrder {
	orderID := uuid.New()
	now := time.Now()
	return &delivery.DeliveryOrder{
		ID:              orderID,
		TenantID:        tenantID,
		OrderNumber:     "GT-1-abc123",
		Source:          platform,
		ExternalOrderID: externalID,
		Status:          delivery.OrderStatusPending,
		CustomerName:    "Test Customer",
		Items: []delivery.DeliveryOrderItem{
			{
				ID:             uuid.New(),
				OrderID:        orderID,
				ExternalItemID: "ext-item-1",
				Name:           "Pide",
				Quantity:       2,
				UnitPrice:      decimal.NewFromInt(80),
				Subtotal:       decimal.NewFromInt(160),
			},
		},
		TotalAmount: decimal.NewFromInt(160),
		FinalAmount: decimal.NewFromInt(160),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ---------------------------------------------------------------------------
// GormPlatformConfigRepository
// ---------------------------------------------------------------------------

func TestPlatformConfigRepository_SaveAndFind(t *testing.T) {
	db := setupDeliveryTestDB(t)
	repo := NewGormPlatformConfigRepository(db)
	ctx := context.Background()

	cfg := newTestPlatformConfig(t, delivery.PlatformGetir)
	require.NoError(t, repo.Save(ctx, cfg))

	found, err := repo.FindByID(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, cfg.Platform, found.Platform)
	assert.JSONEq(t, `{"apiKey":"k"}`, string(found.Credentials))

	byPair, err := repo.FindByTenantAndPlatform(ctx, cfg.TenantID, delivery.PlatformGetir)
	require.NoError(t, err)
	assert.Equal(t, cfg.ID, byPair.ID)

	_, err = repo.FindByTenantAndPlatform(ctx, cfg.TenantID, delivery.PlatformMigros)
	assert.ErrorIs(t, err, delivery.ErrConfigNotFound)
}

func TestPlatformConfigRepository_FindByPlatformAndRemoteID(t *testing.T) {
	db := setupDeliveryTestDB(t)
	repo := NewGormPlatformConfigRepository(db)
	ctx := context.Background()

	cfg := newTestPlatformConfig(t, delivery.PlatformTrendyol)
	require.NoError(t, repo.Save(ctx, cfg))

	found, err := repo.FindByPlatformAndRemoteID(ctx, delivery.PlatformTrendyol, "rest-1")
	require.NoError(t, err)
	assert.Equal(t, cfg.ID, found.ID)

	// Disabled configurations are not routable.
	cfg.IsEnabled = false
	require.NoError(t, repo.Save(ctx, cfg))

	_, err = repo.FindByPlatformAndRemoteID(ctx, delivery.PlatformTrendyol, "rest-1")
	assert.ErrorIs(t, err, delivery.ErrConfigNotFound)
}

func TestPlatformConfigRepository_UpdateToken(t *testing.T) {
	db := setupDeliveryTestDB(t)
	repo := NewGormPlatformConfigRepository(db)
	ctx := context.Background()

	cfg := newTestPlatformConfig(t, delivery.PlatformGetir)
	cfg.ErrorCount = 4
	cfg.LastError = "old failure"
	require.NoError(t, repo.Save(ctx, cfg))

	expiresAt := time.Now().Add(55 * time.Minute).UTC().Truncate(time.Second)
	require.NoError(t, repo.UpdateToken(ctx, cfg.ID, "fresh-token", expiresAt))

	found, err := repo.FindByID(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", found.AccessToken)
	require.NotNil(t, found.TokenExpiresAt)
	assert.Equal(t, 0, found.ErrorCount)
	assert.Empty(t, found.LastError)
}

func TestPlatformConfigRepository_RecordErrorIncrements(t *testing.T) {
	db := setupDeliveryTestDB(t)
	repo := NewGormPlatformConfigRepository(db)
	ctx := context.Background()

	cfg := newTestPlatformConfig(t, delivery.PlatformMigros)
	require.NoError(t, repo.Save(ctx, cfg))

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.RecordError(ctx, cfg.ID, "poll failed", time.Now()))
	}

	found, err := repo.FindByID(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, found.ErrorCount)
	assert.Equal(t, "poll failed", found.LastError)
	require.NotNil(t, found.LastErrorAt)

	require.NoError(t, repo.ResetErrors(ctx, cfg.ID))
	found, err = repo.FindByID(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, found.ErrorCount)
}

func TestPlatformConfigRepository_FindTokenExpiringBefore(t *testing.T) {
	db := setupDeliveryTestDB(t)
	repo := NewGormPlatformConfigRepository(db)
	ctx := context.Background()

	neverAuthed := newTestPlatformConfig(t, delivery.PlatformGetir)
	require.NoError(t, repo.Save(ctx, neverAuthed))

	expiring := newTestPlatformConfig(t, delivery.PlatformTrendyol)
	soon := time.Now().Add(5 * time.Minute)
	expiring.AccessToken = "tok"
	expiring.TokenExpiresAt = &soon
	require.NoError(t, repo.Save(ctx, expiring))

	healthy := newTestPlatformConfig(t, delivery.PlatformYemeksepeti)
	later := time.Now().Add(2 * time.Hour)
	healthy.AccessToken = "tok"
	healthy.TokenExpiresAt = &later
	require.NoError(t, repo.Save(ctx, healthy))

	disabled := newTestPlatformConfig(t, delivery.PlatformMigros)
	disabled.IsEnabled = false
	require.NoError(t, repo.Save(ctx, disabled))

	found, err := repo.FindTokenExpiringBefore(ctx, time.Now().Add(10*time.Minute))
	require.NoError(t, err)
	require.Len(t, found, 2)

	ids := []uuid.UUID{found[0].ID, found[1].ID}
	assert.Contains(t, ids, neverAuthed.ID)
	assert.Contains(t, ids, expiring.ID)
}

func TestPlatformConfigRepository_DuplicateTenantPlatformRejected(t *testing.T) {
	db := setupDeliveryTestDB(t)
	repo := NewGormPlatformConfigRepository(db)
	ctx := context.Background()

	cfg := newTestPlatformConfig(t, delivery.PlatformGetir)
	require.NoError(t, repo.Save(ctx, cfg))

	dup, err := delivery.NewPlatformConfig(cfg.TenantID, delivery.PlatformGetir, json.RawMessage(`{}`), "other")
	require.NoError(t, err)
	assert.Error(t, repo.Save(ctx, dup))
}

// ---------------------------------------------------------------------------
// GormDeliveryOrderRepository
// ---------------------------------------------------------------------------

func TestDeliveryOrderRepository_CreateUniqueAndFind(t *testing.T) {
	db := setupDeliveryTestDB(t)
	repo := NewGormDeliveryOrderRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	order := newTestOrder(tenantID, delivery.PlatformGetir, "ext-1")

	created, err := repo.CreateUnique(ctx, order)
	require.NoError(t, err)
	assert.Equal(t, order.ID, created.ID)

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "Pide", found.Items[0].Name)
	assert.True(t, found.Items[0].Subtotal.Equal(decimal.NewFromInt(160)))

	byExternal, err := repo.FindByExternalID(ctx, tenantID, delivery.PlatformGetir, "ext-1")
	require.NoError(t, err)
	assert.Equal(t, order.ID, byExternal.ID)
}

func TestDeliveryOrderRepository_CreateUnique_Duplicate(t *testing.T) {
	db := setupDeliveryTestDB(t)
	repo := NewGormDeliveryOrderRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	first := newTestOrder(tenantID, delivery.PlatformGetir, "ext-1")
	_, err := repo.CreateUnique(ctx, first)
	require.NoError(t, err)

	second := newTestOrder(tenantID, delivery.PlatformGetir, "ext-1")
	existing, err := repo.CreateUnique(ctx, second)

	assert.ErrorIs(t, err, delivery.ErrDuplicateOrder)
	require.NotNil(t, existing)
	assert.Equal(t, first.ID, existing.ID)
}

func TestDeliveryOrderRepository_CreateUnique_Concurrent(t *testing.T) {
	db := setupDeliveryTestDB(t)

	// In-memory sqlite gives every pool connection its own database, so
	// pin the pool to a single connection shared by all goroutines.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	repo := NewGormDeliveryOrderRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	const writers = 8

	start := make(chan struct{})
	results := make(chan error, writers)
	winners := make(chan uuid.UUID, writers)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			created, err := repo.CreateUnique(ctx, newTestOrder(tenantID, delivery.PlatformGetir, "ext-1"))
			results <- err
			if created != nil {
				winners <- created.ID
			}
		}()
	}
	close(start)
	wg.Wait()
	close(results)
	close(winners)

	var duplicates int
	for err := range results {
		if err == nil {
			continue
		}
		require.ErrorIs(t, err, delivery.ErrDuplicateOrder)
		duplicates++
	}
	assert.Equal(t, writers-1, duplicates)

	// Every call resolved to the same persisted order.
	seen := map[uuid.UUID]struct{}{}
	for id := range winners {
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, 1)

	var count int64
	require.NoError(t, db.Model(&models.DeliveryOrderModel{}).
		Where("tenant_id = ?", tenantID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDeliveryOrderRepository_CreateUnique_SamePlatformDifferentTenants(t *testing.T) {
	db := setupDeliveryTestDB(t)
	repo := NewGormDeliveryOrderRepository(db)
	ctx := context.Background()

	a := newTestOrder(uuid.New(), delivery.PlatformGetir, "ext-1")
	b := newTestOrder(uuid.New(), delivery.PlatformGetir, "ext-1")

	_, err := repo.CreateUnique(ctx, a)
	require.NoError(t, err)
	_, err = repo.CreateUnique(ctx, b)
	require.NoError(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueViolation(errors.New(`ERROR: duplicate key value violates unique constraint "idx_delivery_order_tenant_source_external" (SQLSTATE 23505)`)))
	assert.True(t, isUniqueViolation(errors.New("UNIQUE constraint failed: delivery_orders.tenant_id")))
	assert.False(t, isUniqueViolation(errors.New("connection refused")))
	assert.False(t, isUniqueViolation(nil))
}

func TestDeliveryOrderRepository_UpdateStatus(t *testing.T) {
	db := setupDeliveryTestDB(t)
	repo := NewGormDeliveryOrderRepository(db)
	ctx := context.Background()

	order := newTestOrder(uuid.New(), delivery.PlatformGetir, "ext-1")
	_, err := repo.CreateUnique(ctx, order)
	require.NoError(t, err)

	require.NoError(t, repo.UpdateStatus(ctx, order.ID, delivery.OrderStatusPreparing))

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, delivery.OrderStatusPreparing, found.Status)

	err = repo.UpdateStatus(ctx, uuid.New(), delivery.OrderStatusReady)
	assert.ErrorIs(t, err, delivery.ErrOrderNotFound)
}

// ---------------------------------------------------------------------------
// GormMenuItemMappingRepository
// ---------------------------------------------------------------------------

func TestMenuItemMappingRepository_CRUD(t *testing.T) {
	db := setupDeliveryTestDB(t)
	repo := NewGormMenuItemMappingRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	mapping, err := delivery.NewMenuItemMapping(tenantID, delivery.PlatformGetir, "ext-item-1", uuid.New())
	require.NoError(t, err)
	mapping.ExternalName = "Lahmacun"

	require.NoError(t, repo.Save(ctx, mapping))

	exists, err := repo.ExistsByExternalID(ctx, tenantID, delivery.PlatformGetir, "ext-item-1")
	require.NoError(t, err)
	assert.True(t, exists)

	found, err := repo.FindByExternalID(ctx, tenantID, delivery.PlatformGetir, "ext-item-1")
	require.NoError(t, err)
	assert.Equal(t, "Lahmacun", found.ExternalName)

	require.NoError(t, repo.Delete(ctx, mapping.ID))
	_, err = repo.FindByID(ctx, mapping.ID)
	assert.ErrorIs(t, err, delivery.ErrMappingNotFound)
}

func TestMenuItemMappingRepository_FindActiveByPlatform(t *testing.T) {
	db := setupDeliveryTestDB(t)
	repo := NewGormMenuItemMappingRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()

	active, err := delivery.NewMenuItemMapping(tenantID, delivery.PlatformGetir, "ext-1", uuid.New())
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, active))

	inactive, err := delivery.NewMenuItemMapping(tenantID, delivery.PlatformGetir, "ext-2", uuid.New())
	require.NoError(t, err)
	inactive.Deactivate()
	require.NoError(t, repo.Save(ctx, inactive))

	otherPlatform, err := delivery.NewMenuItemMapping(tenantID, delivery.PlatformTrendyol, "ext-3", uuid.New())
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, otherPlatform))

	found, err := repo.FindActiveByPlatform(ctx, tenantID, delivery.PlatformGetir)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "ext-1", found[0].ExternalItemID)
}

func TestMenuItemMappingRepository_FilterAndPaging(t *testing.T) {
	db := setupDeliveryTestDB(t)
	repo := NewGormMenuItemMappingRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	for i, ext := range []string{"a", "b", "c"} {
		mapping, err := delivery.NewMenuItemMapping(tenantID, delivery.PlatformGetir, ext, uuid.New())
		require.NoError(t, err)
		mapping.ExternalName = ext
		if i == 2 {
			mapping.Deactivate()
		}
		require.NoError(t, repo.Save(ctx, mapping))
	}

	activeOnly := true
	platform := delivery.PlatformGetir
	filter := delivery.MenuItemMappingFilter{Platform: &platform, IsActive: &activeOnly, Page: 1, PageSize: 1}

	page, err := repo.FindAll(ctx, tenantID, filter)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	total, err := repo.Count(ctx, tenantID, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

// ---------------------------------------------------------------------------
// GormOperationLogRepository
// ---------------------------------------------------------------------------

func TestOperationLogRepository_AppendAndFindDueRetries(t *testing.T) {
	db := setupDeliveryTestDB(t)
	repo := NewGormOperationLogRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()

	due := delivery.NewOperationLog(tenantID, delivery.PlatformGetir, delivery.DirectionOutbound, delivery.ActionSyncStatus)
	due.MarkFailed("push failed", time.Millisecond)
	require.NoError(t, repo.Append(ctx, due))

	future := delivery.NewOperationLog(tenantID, delivery.PlatformGetir, delivery.DirectionOutbound, delivery.ActionSyncStatus)
	future.MarkFailed("push failed", time.Hour)
	require.NoError(t, repo.Append(ctx, future))

	succeeded := delivery.NewOperationLog(tenantID, delivery.PlatformGetir, delivery.DirectionOutbound, delivery.ActionSyncStatus)
	succeeded.MarkSucceeded()
	require.NoError(t, repo.Append(ctx, succeeded))

	exhausted := delivery.NewOperationLog(tenantID, delivery.PlatformGetir, delivery.DirectionOutbound, delivery.ActionSyncStatus)
	exhausted.MarkFailed("push failed", time.Millisecond)
	exhausted.RetryCount = exhausted.MaxRetries
	require.NoError(t, repo.Append(ctx, exhausted))

	time.Sleep(5 * time.Millisecond)

	found, err := repo.FindDueRetries(ctx, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, due.ID, found[0].ID)
}

func TestOperationLogRepository_UpdateRetryState(t *testing.T) {
	db := setupDeliveryTestDB(t)
	repo := NewGormOperationLogRepository(db)
	ctx := context.Background()

	entry := delivery.NewOperationLog(uuid.New(), delivery.PlatformGetir, delivery.DirectionOutbound, delivery.ActionAcceptOrder)
	entry.MarkFailed("accept failed", time.Second)
	require.NoError(t, repo.Append(ctx, entry))

	entry.ScheduleRetry(time.Now())
	require.NoError(t, repo.Update(ctx, entry))

	found, err := repo.FindByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, found.RetryCount)
	require.NotNil(t, found.NextRetryAt)
}

func TestOperationLogRepository_ListFilters(t *testing.T) {
	db := setupDeliveryTestDB(t)
	repo := NewGormOperationLogRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()

	inbound := delivery.NewOperationLog(tenantID, delivery.PlatformGetir, delivery.DirectionInbound, delivery.ActionReceiveOrder)
	inbound.MarkSucceeded()
	require.NoError(t, repo.Append(ctx, inbound))

	outbound := delivery.NewOperationLog(tenantID, delivery.PlatformTrendyol, delivery.DirectionOutbound, delivery.ActionSyncStatus)
	outbound.MarkFailed("boom", 0)
	require.NoError(t, repo.Append(ctx, outbound))

	otherTenant := delivery.NewOperationLog(uuid.New(), delivery.PlatformGetir, delivery.DirectionInbound, delivery.ActionReceiveOrder)
	require.NoError(t, repo.Append(ctx, otherTenant))

	all, total, err := repo.List(ctx, tenantID, delivery.OperationLogFilter{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)

	success := true
	onlySuccess, total, err := repo.List(ctx, tenantID, delivery.OperationLogFilter{Success: &success, Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, onlySuccess, 1)
	assert.Equal(t, delivery.ActionReceiveOrder, onlySuccess[0].Action)
}
