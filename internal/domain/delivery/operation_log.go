package delivery

import (
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Direction and ActionKind
// ---------------------------------------------------------------------------

// Direction indicates whether an operation was received from or sent to
// a marketplace.
type Direction string

const (
	DirectionInbound  Direction = "INBOUND"
	DirectionOutbound Direction = "OUTBOUND"
)

// IsValid returns true if the direction is valid
func (d Direction) IsValid() bool {
	return d == DirectionInbound || d == DirectionOutbound
}

// String returns the string representation of Direction
func (d Direction) String() string {
	return string(d)
}

// ActionKind classifies an integration operation.
type ActionKind string

const (
	ActionReceiveOrder       ActionKind = "RECEIVE_ORDER"
	ActionAcceptOrder        ActionKind = "ACCEPT_ORDER"
	ActionRejectOrder        ActionKind = "REJECT_ORDER"
	ActionMarkPreparing      ActionKind = "MARK_PREPARING"
	ActionMarkReady          ActionKind = "MARK_READY"
	ActionMarkPickedUp       ActionKind = "MARK_PICKED_UP"
	ActionCancelOrder        ActionKind = "CANCEL_ORDER"
	ActionSyncStatus         ActionKind = "SYNC_STATUS"
	ActionSyncMenu           ActionKind = "SYNC_MENU"
	ActionUpdateAvailability ActionKind = "UPDATE_AVAILABILITY"
	ActionAuthenticate       ActionKind = "AUTHENTICATE"
	ActionPollOrders         ActionKind = "POLL_ORDERS"
	ActionOpenRestaurant     ActionKind = "OPEN_RESTAURANT"
	ActionCloseRestaurant    ActionKind = "CLOSE_RESTAURANT"
	ActionTestConnection     ActionKind = "TEST_CONNECTION"
)

// IsValid returns true if the action kind is valid
func (a ActionKind) IsValid() bool {
	switch a {
	case ActionReceiveOrder, ActionAcceptOrder, ActionRejectOrder,
		ActionMarkPreparing, ActionMarkReady, ActionMarkPickedUp,
		ActionCancelOrder, ActionSyncStatus, ActionSyncMenu,
		ActionUpdateAvailability, ActionAuthenticate, ActionPollOrders,
		ActionOpenRestaurant, ActionCloseRestaurant, ActionTestConnection:
		return true
	default:
		return false
	}
}

// String returns the string representation of ActionKind
func (a ActionKind) String() string {
	return string(a)
}

// ---------------------------------------------------------------------------
// OperationLog
// ---------------------------------------------------------------------------

const (
	// DefaultMaxRetries is the retry budget for a failed operation
	DefaultMaxRetries = 3

	// retryBaseDelay and retryMaxDelay bound the scheduler-level backoff
	retryBaseDelay = time.Minute
	retryMaxDelay  = time.Hour
)

// OperationLog is an append-only record of one inbound or outbound
// integration attempt. Entries are created on every attempt and mutated only
// by the retry scheduler (backoff aging) or marked successful on a later
// retry. Once RetryCount reaches MaxRetries the entry is terminal:
// NextRetryAt is cleared and the entry is never retried again.
type OperationLog struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Platform PlatformType

	Direction Direction
	Action    ActionKind

	// OrderID references the internal order, when one is involved
	OrderID *uuid.UUID
	// ExternalID is the marketplace-side identifier, when known
	ExternalID string

	RequestBody  string
	ResponseBody string
	HTTPStatus   *int

	Success   bool
	ErrorText string

	RetryCount  int
	MaxRetries  int
	NextRetryAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewOperationLog creates a log entry for one operation attempt.
func NewOperationLog(tenantID uuid.UUID, platform PlatformType, direction Direction, action ActionKind) *OperationLog {
	now := time.Now()
	return &OperationLog{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Platform:   platform,
		Direction:  direction,
		Action:     action,
		MaxRetries: DefaultMaxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// MarkSucceeded records a successful attempt and clears any pending retry.
func (e *OperationLog) MarkSucceeded() {
	e.Success = true
	e.ErrorText = ""
	e.NextRetryAt = nil
	e.UpdatedAt = time.Now()
}

// MarkFailed records a failed attempt with an optional immediate retry delay.
// A zero delay leaves NextRetryAt unset; the entry is then aged by the retry
// scheduler on its next pass.
func (e *OperationLog) MarkFailed(errText string, retryIn time.Duration) {
	e.Success = false
	e.ErrorText = errText
	if retryIn > 0 && e.RetryCount < e.MaxRetries {
		next := time.Now().Add(retryIn)
		e.NextRetryAt = &next
	}
	e.UpdatedAt = time.Now()
}

// ScheduleRetry increments the retry counter and computes the next attempt
// time with exponential backoff, capped at one hour. When the retry budget is
// exhausted the entry becomes terminal and NextRetryAt is cleared.
func (e *OperationLog) ScheduleRetry(now time.Time) {
	e.RetryCount++
	e.UpdatedAt = now

	if e.RetryCount >= e.MaxRetries {
		e.NextRetryAt = nil
		return
	}

	delay := retryBaseDelay << e.RetryCount
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	next := now.Add(delay)
	e.NextRetryAt = &next
}

// IsTerminal reports whether the retry budget is exhausted.
func (e *OperationLog) IsTerminal() bool {
	return e.RetryCount >= e.MaxRetries
}

// ShouldRetry reports whether the entry is due for another attempt.
func (e *OperationLog) ShouldRetry(now time.Time) bool {
	if e.Success || e.IsTerminal() || e.NextRetryAt == nil {
		return false
	}
	return !now.Before(*e.NextRetryAt)
}
