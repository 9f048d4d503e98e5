package delivery

import "errors"

// ---------------------------------------------------------------------------
// Delivery Integration Errors
// ---------------------------------------------------------------------------

var (
	// Platform errors
	ErrPlatformNotSupported   = errors.New("delivery: platform not supported")
	ErrCapabilityNotSupported = errors.New("delivery: capability not supported by platform")
	ErrPlatformUnavailable    = errors.New("delivery: platform temporarily unavailable")
	ErrPlatformRequestFailed  = errors.New("delivery: platform request failed")
	ErrInvalidResponse        = errors.New("delivery: invalid platform response")
	ErrAuthenticationFailed   = errors.New("delivery: platform authentication failed")
	ErrTokenRefreshFailed     = errors.New("delivery: token refresh failed")

	// Configuration errors
	ErrConfigNotFound      = errors.New("delivery: platform configuration not found")
	ErrConfigAlreadyExists = errors.New("delivery: platform configuration already exists")
	ErrConfigDisabled      = errors.New("delivery: platform configuration is disabled")
	ErrInvalidCredentials  = errors.New("delivery: invalid platform credentials")
	ErrInvalidTenantID     = errors.New("delivery: invalid tenant ID")
	ErrInvalidPlatform     = errors.New("delivery: invalid platform identifier")

	// Webhook errors
	ErrMissingSignature = errors.New("delivery: missing webhook signature")
	ErrInvalidSignature = errors.New("delivery: invalid webhook signature")
	ErrWebhookExpired   = errors.New("delivery: webhook token expired")

	// Order errors
	ErrDuplicateOrder     = errors.New("delivery: order already ingested")
	ErrOrderNotFound      = errors.New("delivery: order not found")
	ErrOrderNotSyncable   = errors.New("delivery: order has no platform source")
	ErrOrderFinal         = errors.New("delivery: order already in a terminal status")
	ErrStatusNotSyncable  = errors.New("delivery: status not eligible for platform sync")
	ErrEmptyOrder         = errors.New("delivery: order has no external order ID")

	// Mapping errors
	ErrMappingNotFound      = errors.New("delivery: menu item mapping not found")
	ErrMappingAlreadyExists = errors.New("delivery: menu item mapping already exists")

	// Operation log errors
	ErrLogEntryNotFound = errors.New("delivery: operation log entry not found")
	ErrLogEntryTerminal = errors.New("delivery: operation log entry is terminal")
)
