package delivery

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CircuitBreakerThreshold is the number of consecutive failures after which a
// configuration is excluded from polling until a success resets the counter.
const CircuitBreakerThreshold = 10

// PlatformConfig holds the per-tenant integration settings for one marketplace.
// At most one configuration exists per (tenant, platform) pair. The row is
// mutated concurrently by the poll scheduler, token manager and status
// dispatcher; persistence updates must therefore stay narrow and field-level.
type PlatformConfig struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Platform PlatformType

	// Credentials is an opaque, auth-scheme-specific secret blob.
	// Each adapter unmarshals its own credential shape from it.
	Credentials json.RawMessage

	// AccessToken is the current platform access token, empty before first auth
	AccessToken string
	// TokenExpiresAt is the absolute expiry instant of AccessToken
	TokenExpiresAt *time.Time

	// RemoteRestaurantID routes webhooks and polls to this configuration
	RemoteRestaurantID string

	// AutoAccept causes inbound orders to be accepted on the marketplace
	// without manual approval
	AutoAccept bool
	// RestaurantOpen mirrors the open/closed state pushed to the marketplace
	RestaurantOpen bool
	// IsEnabled logically disables the configuration; schedulers must honor it
	IsEnabled bool

	// ErrorCount is the number of consecutive failed operations
	ErrorCount  int
	LastError   string
	LastErrorAt *time.Time

	LastOrderPollAt *time.Time
	LastMenuSyncAt  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPlatformConfig creates a configuration for a tenant and platform.
func NewPlatformConfig(tenantID uuid.UUID, platform PlatformType, credentials json.RawMessage, remoteRestaurantID string) (*PlatformConfig, error) {
	if tenantID == uuid.Nil {
		return nil, ErrInvalidTenantID
	}
	if !platform.IsValid() {
		return nil, ErrInvalidPlatform
	}
	if len(credentials) == 0 {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	return &PlatformConfig{
		ID:                 uuid.New(),
		TenantID:           tenantID,
		Platform:           platform,
		Credentials:        credentials,
		RemoteRestaurantID: remoteRestaurantID,
		AutoAccept:         true,
		RestaurantOpen:     true,
		IsEnabled:          true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// TokenValidFor reports whether the current token remains valid for at least
// the given margin from now.
func (c *PlatformConfig) TokenValidFor(margin time.Duration) bool {
	if c.AccessToken == "" || c.TokenExpiresAt == nil {
		return false
	}
	return time.Now().Add(margin).Before(*c.TokenExpiresAt)
}

// CircuitOpen reports whether the circuit breaker has tripped for this
// configuration. A tripped breaker excludes the configuration from polling
// until a successful operation resets the counter.
func (c *PlatformConfig) CircuitOpen() bool {
	return c.ErrorCount >= CircuitBreakerThreshold
}

// PollDue reports whether enough time has passed since the last poll,
// given the platform's minimum poll interval.
func (c *PlatformConfig) PollDue(minInterval time.Duration, now time.Time) bool {
	if c.LastOrderPollAt == nil {
		return true
	}
	return now.Sub(*c.LastOrderPollAt) >= minInterval
}
