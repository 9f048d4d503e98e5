package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// PlatformConfigRepository
// ---------------------------------------------------------------------------

// PlatformConfigRepository persists platform configurations. Token, error
// counter and poll timestamp mutations are narrow field-level updates so that
// concurrent scheduler tasks touching the same row do not lose each other's
// writes.
type PlatformConfigRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*PlatformConfig, error)
	FindByTenantAndPlatform(ctx context.Context, tenantID uuid.UUID, platform PlatformType) (*PlatformConfig, error)

	// FindByPlatformAndRemoteID resolves an enabled configuration from the
	// webhook routing pair (platform, remote restaurant ID).
	FindByPlatformAndRemoteID(ctx context.Context, platform PlatformType, remoteRestaurantID string) (*PlatformConfig, error)

	// FindEnabledByPlatforms returns every enabled configuration for the
	// given platforms, used by the poll scheduler.
	FindEnabledByPlatforms(ctx context.Context, platforms []PlatformType) ([]PlatformConfig, error)

	// FindTokenExpiringBefore returns enabled configurations whose token
	// expires before the deadline (or was never obtained).
	FindTokenExpiringBefore(ctx context.Context, deadline time.Time) ([]PlatformConfig, error)

	FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]PlatformConfig, error)

	Save(ctx context.Context, cfg *PlatformConfig) error
	Delete(ctx context.Context, id uuid.UUID) error

	// UpdateToken stores a freshly obtained token and resets the error state.
	UpdateToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error

	// RecordError increments the consecutive error counter atomically and
	// stores the failure details.
	RecordError(ctx context.Context, id uuid.UUID, errText string, at time.Time) error

	// ResetErrors clears the consecutive error counter after a success or a
	// manual circuit-breaker reset.
	ResetErrors(ctx context.Context, id uuid.UUID) error

	UpdateLastPollTime(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdateLastMenuSyncTime(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdateRestaurantOpen(ctx context.Context, id uuid.UUID, open bool) error
}

// ---------------------------------------------------------------------------
// DeliveryOrderRepository
// ---------------------------------------------------------------------------

// DeliveryOrderRepository persists ingested orders.
type DeliveryOrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*DeliveryOrder, error)
	FindByExternalID(ctx context.Context, tenantID uuid.UUID, source PlatformType, externalOrderID string) (*DeliveryOrder, error)

	// CreateUnique persists the order and its items atomically. The
	// existence check and insert run in one transaction backed by the unique
	// (tenant, source, external ID) constraint, so concurrent duplicate
	// delivery yields exactly one row. When the order already exists the
	// existing order is returned together with ErrDuplicateOrder.
	CreateUnique(ctx context.Context, order *DeliveryOrder) (*DeliveryOrder, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status OrderStatus) error
}

// ---------------------------------------------------------------------------
// MenuItemMappingRepository
// ---------------------------------------------------------------------------

// MenuItemMappingFilter narrows mapping listings.
type MenuItemMappingFilter struct {
	Platform *PlatformType
	IsActive *bool
	Page     int
	PageSize int
}

// MenuItemMappingRepository persists menu item mappings.
type MenuItemMappingRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*MenuItemMapping, error)
	FindByExternalID(ctx context.Context, tenantID uuid.UUID, platform PlatformType, externalItemID string) (*MenuItemMapping, error)

	// FindActiveByPlatform returns the active mappings used to translate an
	// inbound order's items.
	FindActiveByPlatform(ctx context.Context, tenantID uuid.UUID, platform PlatformType) ([]MenuItemMapping, error)

	FindAll(ctx context.Context, tenantID uuid.UUID, filter MenuItemMappingFilter) ([]MenuItemMapping, error)
	Count(ctx context.Context, tenantID uuid.UUID, filter MenuItemMappingFilter) (int64, error)
	ExistsByExternalID(ctx context.Context, tenantID uuid.UUID, platform PlatformType, externalItemID string) (bool, error)

	Save(ctx context.Context, mapping *MenuItemMapping) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ---------------------------------------------------------------------------
// OperationLogRepository
// ---------------------------------------------------------------------------

// OperationLogFilter narrows operation log listings for the operator view.
type OperationLogFilter struct {
	Platform  *PlatformType
	Direction *Direction
	Action    *ActionKind
	Success   *bool
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

// OperationLogRepository persists the append-only operation log.
type OperationLogRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*OperationLog, error)

	Append(ctx context.Context, entry *OperationLog) error
	Update(ctx context.Context, entry *OperationLog) error

	// FindDueRetries returns failed, non-terminal entries whose NextRetryAt
	// has passed, oldest first, bounded to limit.
	FindDueRetries(ctx context.Context, now time.Time, limit int) ([]*OperationLog, error)

	List(ctx context.Context, tenantID uuid.UUID, filter OperationLogFilter) ([]OperationLog, int64, error)
}
