package delivery

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Order Status
// ---------------------------------------------------------------------------

// OrderStatus represents the internal lifecycle state of a delivery order
type OrderStatus string

const (
	// OrderStatusPending indicates the order was auto-accepted and awaits preparation
	OrderStatusPending OrderStatus = "PENDING"
	// OrderStatusPendingApproval indicates staff must approve the order manually
	OrderStatusPendingApproval OrderStatus = "PENDING_APPROVAL"
	// OrderStatusPreparing indicates the kitchen is preparing the order
	OrderStatusPreparing OrderStatus = "PREPARING"
	// OrderStatusReady indicates the order is ready for courier pickup
	OrderStatusReady OrderStatus = "READY"
	// OrderStatusServed indicates the courier collected the order
	OrderStatusServed OrderStatus = "SERVED"
	// OrderStatusCancelled indicates the order was cancelled after acceptance
	OrderStatusCancelled OrderStatus = "CANCELLED"
	// OrderStatusRejected indicates the order was declined before acceptance
	OrderStatusRejected OrderStatus = "REJECTED"
	// OrderStatusCompleted indicates the order was delivered and closed
	OrderStatusCompleted OrderStatus = "COMPLETED"
)

// IsValid returns true if the status is valid
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPendingApproval, OrderStatusPreparing,
		OrderStatusReady, OrderStatusServed, OrderStatusCancelled,
		OrderStatusRejected, OrderStatusCompleted:
		return true
	default:
		return false
	}
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsFinal returns true if the status is a terminal state
func (s OrderStatus) IsFinal() bool {
	switch s {
	case OrderStatusCancelled, OrderStatusRejected, OrderStatusCompleted:
		return true
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// NormalizedOrder: transient, adapter-produced representation
// ---------------------------------------------------------------------------

// NormalizedModifier is an option applied to an ordered item.
type NormalizedModifier struct {
	ExternalID string
	Name       string
	Quantity   int
	UnitPrice  decimal.Decimal
}

// Total returns the modifier's price contribution (unit price times quantity).
func (m NormalizedModifier) Total() decimal.Decimal {
	return m.UnitPrice.Mul(decimal.NewFromInt(int64(m.Quantity)))
}

// NormalizedItem is a single line of a normalized order.
type NormalizedItem struct {
	ExternalItemID string
	Name           string
	Quantity       int
	UnitPrice      decimal.Decimal
	Modifiers      []NormalizedModifier
}

// ModifierTotal returns the summed modifier contribution for one unit.
func (i NormalizedItem) ModifierTotal() decimal.Decimal {
	total := decimal.Zero
	for _, m := range i.Modifiers {
		total = total.Add(m.Total())
	}
	return total
}

// Subtotal returns (unit price + modifier total) times quantity.
func (i NormalizedItem) Subtotal() decimal.Decimal {
	perUnit := i.UnitPrice.Add(i.ModifierTotal())
	return perUnit.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// NormalizedOrder is the platform-agnostic representation of an incoming
// marketplace order, produced by an adapter from a raw payload. It is not
// persisted as-is; it is consumed exactly once by the ingestion pipeline.
// All monetary amounts are already normalized to major currency units by the
// producing adapter.
type NormalizedOrder struct {
	Platform        PlatformType
	ExternalOrderID string

	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	Note            string

	Items []NormalizedItem

	TotalAmount    decimal.Decimal
	DiscountAmount decimal.Decimal
	FinalAmount    decimal.Decimal

	// RawPayload preserves the platform payload verbatim for audit and
	// re-processing
	RawPayload json.RawMessage

	// PlacedAt is the platform-reported creation time, when available
	PlacedAt *time.Time
}

// Validate checks the minimal fields required before ingestion.
func (o *NormalizedOrder) Validate() error {
	if !o.Platform.IsValid() {
		return ErrInvalidPlatform
	}
	if o.ExternalOrderID == "" {
		return ErrEmptyOrder
	}
	return nil
}

// ---------------------------------------------------------------------------
// DeliveryOrder: the persisted internal order
// ---------------------------------------------------------------------------

// DeliveryOrderItem is a persisted line item of an ingested order.
// ProductID is nil when no active menu item mapping matched the external item.
type DeliveryOrderItem struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	ProductID      *uuid.UUID
	ExternalItemID string
	Name           string
	Quantity       int
	UnitPrice      decimal.Decimal
	ModifierTotal  decimal.Decimal
	Subtotal       decimal.Decimal
}

// DeliveryOrder is the internal order created by the ingestion pipeline.
// The (TenantID, Source, ExternalOrderID) triple is unique; that constraint
// is the idempotency boundary for concurrent webhook and poll delivery.
type DeliveryOrder struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	OrderNumber string

	Source          PlatformType
	ExternalOrderID string

	Status OrderStatus

	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	Note            string

	Items []DeliveryOrderItem

	TotalAmount    decimal.Decimal
	DiscountAmount decimal.Decimal
	FinalAmount    decimal.Decimal

	RawPayload json.RawMessage
	PlacedAt   *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
