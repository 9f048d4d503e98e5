package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/orderbridge/backend/internal/domain/delivery"
)

// MockPlatformConfigRepository is a mock implementation of PlatformConfigRepository
type MockPlatformConfigRepository struct {
	mock.Mock
}

func (m *MockPlatformConfigRepository) FindByID(ctx context.Context, id uuid.UUID) (*delivery.PlatformConfig, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*delivery.PlatformConfig), args.Error(1)
}

func (m *MockPlatformConfigRepository) FindByTenantAndPlatform(ctx context.Context, tenantID uuid.UUID, platform delivery.PlatformType) (*delivery.PlatformConfig, error) {
	args := m.Called(ctx, tenantID, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*delivery.PlatformConfig), args.Error(1)
}

func (m *MockPlatformConfigRepository) FindByPlatformAndRemoteID(ctx context.Context, platform delivery.PlatformType, remoteRestaurantID string) (*delivery.PlatformConfig, error) {
	args := m.Called(ctx, platform, remoteRestaurantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*delivery.PlatformConfig), args.Error(1)
}

func (m *MockPlatformConfigRepository) FindEnabledByPlatforms(ctx context.Context, platforms []delivery.PlatformType) ([]delivery.PlatformConfig, error) {
	args := m.Called(ctx, platforms)
	return args.Get(0).([]delivery.PlatformConfig), args.Error(1)
}

func (m *MockPlatformConfigRepository) FindTokenExpiringBefore(ctx context.Context, deadline time.Time) ([]delivery.PlatformConfig, error) {
	args := m.Called(ctx, deadline)
	return args.Get(0).([]delivery.PlatformConfig), args.Error(1)
}

func (m *MockPlatformConfigRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]delivery.PlatformConfig, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]delivery.PlatformConfig), args.Error(1)
}

func (m *MockPlatformConfigRepository) Save(ctx context.Context, cfg *delivery.PlatformConfig) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}

func (m *MockPlatformConfigRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPlatformConfigRepository) UpdateToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error {
	args := m.Called(ctx, id, token, expiresAt)
	return args.Error(0)
}

func (m *MockPlatformConfigRepository) RecordError(ctx context.Context, id uuid.UUID, errText string, at time.Time) error {
	args := m.Called(ctx, id, errText, at)
	return args.Error(0)
}

func (m *MockPlatformConfigRepository) ResetErrors(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPlatformConfigRepository) UpdateLastPollTime(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockPlatformConfigRepository) UpdateLastMenuSyncTime(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockPlatformConfigRepository) UpdateRestaurantOpen(ctx context.Context, id uuid.UUID, open bool) error {
	args := m.Called(ctx, id, open)
	return args.Error(0)
}

// MockDeliveryOrderRepository is a mock implementation of DeliveryOrderRepository
type MockDeliveryOrderRepository struct {
	mock.Mock
}

func (m *MockDeliveryOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*delivery.DeliveryOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*delivery.DeliveryOrder), args.Error(1)
}

func (m *MockDeliveryOrderRepository) FindByExternalID(ctx context.Context, tenantID uuid.UUID, source delivery.PlatformType, externalOrderID string) (*delivery.DeliveryOrder, error) {
	args := m.Called(ctx, tenantID, source, externalOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*delivery.DeliveryOrder), args.Error(1)
}

func (m *MockDeliveryOrderRepository) CreateUnique(ctx context.Context, order *delivery.DeliveryOrder) (*delivery.DeliveryOrder, error) {
	args := m.Called(ctx, order)
	if fn, ok := args.Get(0).(func(*delivery.DeliveryOrder) *delivery.DeliveryOrder); ok {
		return fn(order), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*delivery.DeliveryOrder), args.Error(1)
}

func (m *MockDeliveryOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status delivery.OrderStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

// MockMenuItemMappingRepository is a mock implementation of MenuItemMappingRepository
type MockMenuItemMappingRepository struct {
	mock.Mock
}

func (m *MockMenuItemMappingRepository) FindByID(ctx context.Context, id uuid.UUID) (*delivery.MenuItemMapping, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*delivery.MenuItemMapping), args.Error(1)
}

func (m *MockMenuItemMappingRepository) FindByExternalID(ctx context.Context, tenantID uuid.UUID, platform delivery.PlatformType, externalItemID string) (*delivery.MenuItemMapping, error) {
	args := m.Called(ctx, tenantID, platform, externalItemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*delivery.MenuItemMapping), args.Error(1)
}

func (m *MockMenuItemMappingRepository) FindActiveByPlatform(ctx context.Context, tenantID uuid.UUID, platform delivery.PlatformType) ([]delivery.MenuItemMapping, error) {
	args := m.Called(ctx, tenantID, platform)
	return args.Get(0).([]delivery.MenuItemMapping), args.Error(1)
}

func (m *MockMenuItemMappingRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter delivery.MenuItemMappingFilter) ([]delivery.MenuItemMapping, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]delivery.MenuItemMapping), args.Error(1)
}

func (m *MockMenuItemMappingRepository) Count(ctx context.Context, tenantID uuid.UUID, filter delivery.MenuItemMappingFilter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMenuItemMappingRepository) ExistsByExternalID(ctx context.Context, tenantID uuid.UUID, platform delivery.PlatformType, externalItemID string) (bool, error) {
	args := m.Called(ctx, tenantID, platform, externalItemID)
	return args.Bool(0), args.Error(1)
}

func (m *MockMenuItemMappingRepository) Save(ctx context.Context, mapping *delivery.MenuItemMapping) error {
	args := m.Called(ctx, mapping)
	return args.Error(0)
}

func (m *MockMenuItemMappingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockOperationLogRepository is a mock implementation of OperationLogRepository
type MockOperationLogRepository struct {
	mock.Mock
}

func (m *MockOperationLogRepository) FindByID(ctx context.Context, id uuid.UUID) (*delivery.OperationLog, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*delivery.OperationLog), args.Error(1)
}

func (m *MockOperationLogRepository) Append(ctx context.Context, entry *delivery.OperationLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockOperationLogRepository) Update(ctx context.Context, entry *delivery.OperationLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockOperationLogRepository) FindDueRetries(ctx context.Context, now time.Time, limit int) ([]*delivery.OperationLog, error) {
	args := m.Called(ctx, now, limit)
	return args.Get(0).([]*delivery.OperationLog), args.Error(1)
}

func (m *MockOperationLogRepository) List(ctx context.Context, tenantID uuid.UUID, filter delivery.OperationLogFilter) ([]delivery.OperationLog, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]delivery.OperationLog), args.Get(1).(int64), args.Error(2)
}

// MockPlatformAdapter is a mock implementation of PlatformAdapter
type MockPlatformAdapter struct {
	mock.Mock
}

func (m *MockPlatformAdapter) Platform() delivery.PlatformType {
	args := m.Called()
	return args.Get(0).(delivery.PlatformType)
}

func (m *MockPlatformAdapter) Capabilities() delivery.Capabilities {
	args := m.Called()
	return args.Get(0).(delivery.Capabilities)
}

func (m *MockPlatformAdapter) Authenticate(ctx context.Context, cfg *delivery.PlatformConfig) (*delivery.AuthResult, error) {
	args := m.Called(ctx, cfg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*delivery.AuthResult), args.Error(1)
}

func (m *MockPlatformAdapter) TestConnection(ctx context.Context, cfg *delivery.PlatformConfig) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}

func (m *MockPlatformAdapter) AcceptOrder(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID string) error {
	args := m.Called(ctx, cfg, externalOrderID)
	return args.Error(0)
}

func (m *MockPlatformAdapter) RejectOrder(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID, reason string) error {
	args := m.Called(ctx, cfg, externalOrderID, reason)
	return args.Error(0)
}

func (m *MockPlatformAdapter) MarkPreparing(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID string) error {
	args := m.Called(ctx, cfg, externalOrderID)
	return args.Error(0)
}

func (m *MockPlatformAdapter) MarkReady(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID string) error {
	args := m.Called(ctx, cfg, externalOrderID)
	return args.Error(0)
}

func (m *MockPlatformAdapter) MarkPickedUp(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID string) error {
	args := m.Called(ctx, cfg, externalOrderID)
	return args.Error(0)
}

func (m *MockPlatformAdapter) CancelOrder(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID, reason string) error {
	args := m.Called(ctx, cfg, externalOrderID, reason)
	return args.Error(0)
}

func (m *MockPlatformAdapter) PollNewOrders(ctx context.Context, cfg *delivery.PlatformConfig) ([]delivery.NormalizedOrder, error) {
	args := m.Called(ctx, cfg)
	return args.Get(0).([]delivery.NormalizedOrder), args.Error(1)
}

func (m *MockPlatformAdapter) ParseWebhookOrder(ctx context.Context, cfg *delivery.PlatformConfig, payload []byte) (*delivery.NormalizedOrder, error) {
	args := m.Called(ctx, cfg, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*delivery.NormalizedOrder), args.Error(1)
}

func (m *MockPlatformAdapter) SyncMenu(ctx context.Context, cfg *delivery.PlatformConfig, items []delivery.MenuPushItem) error {
	args := m.Called(ctx, cfg, items)
	return args.Error(0)
}

func (m *MockPlatformAdapter) UpdateItemAvailability(ctx context.Context, cfg *delivery.PlatformConfig, externalItemID string, available bool) error {
	args := m.Called(ctx, cfg, externalItemID, available)
	return args.Error(0)
}

func (m *MockPlatformAdapter) OpenRestaurant(ctx context.Context, cfg *delivery.PlatformConfig) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}

func (m *MockPlatformAdapter) CloseRestaurant(ctx context.Context, cfg *delivery.PlatformConfig) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}

// MockAdapterRegistry is a mock implementation of AdapterRegistry
type MockAdapterRegistry struct {
	mock.Mock
}

func (m *MockAdapterRegistry) Adapter(platform delivery.PlatformType) (delivery.PlatformAdapter, error) {
	args := m.Called(platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(delivery.PlatformAdapter), args.Error(1)
}

func (m *MockAdapterRegistry) Adapters() []delivery.PlatformAdapter {
	args := m.Called()
	return args.Get(0).([]delivery.PlatformAdapter)
}

func (m *MockAdapterRegistry) PollablePlatforms() []delivery.PlatformType {
	args := m.Called()
	return args.Get(0).([]delivery.PlatformType)
}

// MockOrderBroadcaster is a mock implementation of OrderBroadcaster
type MockOrderBroadcaster struct {
	mock.Mock
}

func (m *MockOrderBroadcaster) EmitNewOrder(ctx context.Context, tenantID uuid.UUID, order *delivery.DeliveryOrder) {
	m.Called(ctx, tenantID, order)
}

func (m *MockOrderBroadcaster) EmitStatusChange(ctx context.Context, tenantID uuid.UUID, order *delivery.DeliveryOrder) {
	m.Called(ctx, tenantID, order)
}

// MockTokenCache is a mock implementation of TokenCache
type MockTokenCache struct {
	mock.Mock
}

func (m *MockTokenCache) Get(ctx context.Context, configID uuid.UUID) (*CachedToken, error) {
	args := m.Called(ctx, configID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CachedToken), args.Error(1)
}

func (m *MockTokenCache) Set(ctx context.Context, configID uuid.UUID, token string, expiresAt time.Time) error {
	args := m.Called(ctx, configID, token, expiresAt)
	return args.Error(0)
}

func (m *MockTokenCache) Delete(ctx context.Context, configID uuid.UUID) error {
	args := m.Called(ctx, configID)
	return args.Error(0)
}
