package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Platform Types
// ---------------------------------------------------------------------------

// PlatformType represents a supported food-delivery marketplace
type PlatformType string

const (
	// PlatformGetir represents the Getir marketplace
	PlatformGetir PlatformType = "GETIR"
	// PlatformYemeksepeti represents the Yemeksepeti marketplace
	PlatformYemeksepeti PlatformType = "YEMEKSEPETI"
	// PlatformTrendyol represents the Trendyol Yemek marketplace
	PlatformTrendyol PlatformType = "TRENDYOL"
	// PlatformMigros represents the Migros Yemek marketplace
	PlatformMigros PlatformType = "MIGROS"
)

// IsValid returns true if the platform type is valid
func (p PlatformType) IsValid() bool {
	switch p {
	case PlatformGetir, PlatformYemeksepeti, PlatformTrendyol, PlatformMigros:
		return true
	default:
		return false
	}
}

// String returns the string representation of PlatformType
func (p PlatformType) String() string {
	return string(p)
}

// OrderNumberPrefix returns the short prefix used when generating
// human-readable order numbers for orders from this platform.
func (p PlatformType) OrderNumberPrefix() string {
	switch p {
	case PlatformGetir:
		return "GT"
	case PlatformYemeksepeti:
		return "YS"
	case PlatformTrendyol:
		return "TY"
	case PlatformMigros:
		return "MG"
	default:
		return "DL"
	}
}

// AllPlatforms returns every supported platform type.
func AllPlatforms() []PlatformType {
	return []PlatformType{PlatformGetir, PlatformYemeksepeti, PlatformTrendyol, PlatformMigros}
}

// ---------------------------------------------------------------------------
// Capabilities
// ---------------------------------------------------------------------------

// Capabilities describes the optional operations a platform adapter supports.
// Callers must consult the descriptor before invoking an optional method;
// invoking an unsupported method returns ErrCapabilityNotSupported.
type Capabilities struct {
	// CanPoll indicates the platform exposes an endpoint for pulling new orders
	CanPoll bool
	// HasWebhook indicates the platform pushes new orders via webhooks
	HasWebhook bool
	// CanSyncMenu indicates the platform accepts menu pushes
	CanSyncMenu bool
	// CanToggleAvailability indicates per-item availability updates are supported
	CanToggleAvailability bool
	// CanToggleRestaurant indicates the restaurant can be opened/closed remotely
	CanToggleRestaurant bool
	// MinPollInterval is the platform-mandated minimum spacing between polls
	MinPollInterval time.Duration
}

// ---------------------------------------------------------------------------
// Value Objects
// ---------------------------------------------------------------------------

// AuthResult is the outcome of a successful platform authentication.
// ExpiresAt is computed conservatively by the adapter, with a safety margin
// before the platform's real TTL.
type AuthResult struct {
	AccessToken string
	ExpiresAt   time.Time
}

// MenuPushItem is a single catalog entry pushed to a platform during menu sync.
type MenuPushItem struct {
	ExternalItemID string
	Name           string
	Price          string
	Available      bool
}

// ---------------------------------------------------------------------------
// PlatformAdapter Port Interface
// ---------------------------------------------------------------------------

// PlatformAdapter defines the port interface for external delivery marketplaces.
// It is defined in the domain layer following Ports & Adapters; concrete
// implementations (Getir, Yemeksepeti, Trendyol, Migros) live in the
// infrastructure layer. The required subset covers authentication, the order
// lifecycle actions and connectivity checks. Optional operations are declared
// through Capabilities.
type PlatformAdapter interface {
	// Platform returns the platform this adapter handles
	Platform() PlatformType

	// Capabilities returns the optional capability descriptor
	Capabilities() Capabilities

	// Authenticate exchanges the configuration's credentials for an access token
	Authenticate(ctx context.Context, cfg *PlatformConfig) (*AuthResult, error)

	// TestConnection verifies credentials and connectivity without side effects
	TestConnection(ctx context.Context, cfg *PlatformConfig) error

	// ---------------------------------------------------------------------------
	// Order lifecycle actions
	// ---------------------------------------------------------------------------

	// AcceptOrder confirms the order on the marketplace
	AcceptOrder(ctx context.Context, cfg *PlatformConfig, externalOrderID string) error

	// RejectOrder declines the order on the marketplace
	RejectOrder(ctx context.Context, cfg *PlatformConfig, externalOrderID, reason string) error

	// MarkPreparing signals the kitchen started preparing the order
	MarkPreparing(ctx context.Context, cfg *PlatformConfig, externalOrderID string) error

	// MarkReady signals the order is ready for pickup
	MarkReady(ctx context.Context, cfg *PlatformConfig, externalOrderID string) error

	// MarkPickedUp signals the courier collected the order.
	// Some platforms track this courier-side; those adapters treat it as a no-op.
	MarkPickedUp(ctx context.Context, cfg *PlatformConfig, externalOrderID string) error

	// CancelOrder cancels an already accepted order
	CancelOrder(ctx context.Context, cfg *PlatformConfig, externalOrderID, reason string) error

	// ---------------------------------------------------------------------------
	// Optional operations, gated by Capabilities
	// ---------------------------------------------------------------------------

	// PollNewOrders pulls unconfirmed orders from the marketplace
	PollNewOrders(ctx context.Context, cfg *PlatformConfig) ([]NormalizedOrder, error)

	// ParseWebhookOrder converts a raw webhook payload into a normalized order
	ParseWebhookOrder(ctx context.Context, cfg *PlatformConfig, payload []byte) (*NormalizedOrder, error)

	// SyncMenu pushes the tenant's catalog to the marketplace
	SyncMenu(ctx context.Context, cfg *PlatformConfig, items []MenuPushItem) error

	// UpdateItemAvailability toggles a single item's availability
	UpdateItemAvailability(ctx context.Context, cfg *PlatformConfig, externalItemID string, available bool) error

	// OpenRestaurant marks the restaurant as open on the marketplace
	OpenRestaurant(ctx context.Context, cfg *PlatformConfig) error

	// CloseRestaurant marks the restaurant as closed on the marketplace
	CloseRestaurant(ctx context.Context, cfg *PlatformConfig) error
}

// AdapterRegistry resolves a platform identifier to its adapter instance.
type AdapterRegistry interface {
	// Adapter returns the adapter for the given platform,
	// or ErrPlatformNotSupported when no adapter is registered.
	Adapter(platform PlatformType) (PlatformAdapter, error)

	// Adapters returns all registered adapters.
	Adapters() []PlatformAdapter

	// PollablePlatforms returns the platforms whose adapters can poll.
	PollablePlatforms() []PlatformType
}

// OrderBroadcaster notifies downstream consumers (kitchen display, websockets)
// about order events. Implementations must be best-effort: a broadcast failure
// never rolls back the order it announces.
type OrderBroadcaster interface {
	EmitNewOrder(ctx context.Context, tenantID uuid.UUID, order *DeliveryOrder)
	EmitStatusChange(ctx context.Context, tenantID uuid.UUID, order *DeliveryOrder)
}
