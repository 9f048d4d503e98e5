package handler

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/orderbridge/backend/internal/domain/delivery"
)

// ---------------------------------------------------------------------------
// Platform Config DTOs
// ---------------------------------------------------------------------------

// PlatformURI binds the :platform path parameter
type PlatformURI struct {
	Platform string `uri:"platform" binding:"required,oneof=GETIR YEMEKSEPETI TRENDYOL MIGROS"`
}

// CreatePlatformConfigRequest registers a marketplace integration
type CreatePlatformConfigRequest struct {
	Platform           string          `json:"platform" binding:"required,oneof=GETIR YEMEKSEPETI TRENDYOL MIGROS"`
	Credentials        json.RawMessage `json:"credentials" binding:"required"`
	RemoteRestaurantID string          `json:"remote_restaurant_id" binding:"required,max=255"`
}

// UpdatePlatformConfigRequest applies a partial configuration update
type UpdatePlatformConfigRequest struct {
	Credentials        json.RawMessage `json:"credentials,omitempty"`
	RemoteRestaurantID *string         `json:"remote_restaurant_id,omitempty" binding:"omitempty,max=255"`
	AutoAccept         *bool           `json:"auto_accept,omitempty"`
	IsEnabled          *bool           `json:"is_enabled,omitempty"`
}

// ToggleRestaurantRequest opens or closes the restaurant on the marketplace
type ToggleRestaurantRequest struct {
	Open *bool `json:"open" binding:"required"`
}

// PlatformConfigResponse is the API view of a configuration. Credentials and
// tokens never leave the server.
type PlatformConfigResponse struct {
	ID                 uuid.UUID  `json:"id"`
	Platform           string     `json:"platform"`
	RemoteRestaurantID string     `json:"remote_restaurant_id"`
	AutoAccept         bool       `json:"auto_accept"`
	RestaurantOpen     bool       `json:"restaurant_open"`
	IsEnabled          bool       `json:"is_enabled"`
	HasToken           bool       `json:"has_token"`
	TokenExpiresAt     *time.Time `json:"token_expires_at,omitempty"`
	ErrorCount         int        `json:"error_count"`
	LastError          string     `json:"last_error,omitempty"`
	LastErrorAt        *time.Time `json:"last_error_at,omitempty"`
	LastOrderPollAt    *time.Time `json:"last_order_poll_at,omitempty"`
	LastMenuSyncAt     *time.Time `json:"last_menu_sync_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// NewPlatformConfigResponse converts a domain configuration to its API view
func NewPlatformConfigResponse(cfg *delivery.PlatformConfig) PlatformConfigResponse {
	return PlatformConfigResponse{
		ID:                 cfg.ID,
		Platform:           string(cfg.Platform),
		RemoteRestaurantID: cfg.RemoteRestaurantID,
		AutoAccept:         cfg.AutoAccept,
		RestaurantOpen:     cfg.RestaurantOpen,
		IsEnabled:          cfg.IsEnabled,
		HasToken:           cfg.AccessToken != "",
		TokenExpiresAt:     cfg.TokenExpiresAt,
		ErrorCount:         cfg.ErrorCount,
		LastError:          cfg.LastError,
		LastErrorAt:        cfg.LastErrorAt,
		LastOrderPollAt:    cfg.LastOrderPollAt,
		LastMenuSyncAt:     cfg.LastMenuSyncAt,
		CreatedAt:          cfg.CreatedAt,
		UpdatedAt:          cfg.UpdatedAt,
	}
}

// ---------------------------------------------------------------------------
// Menu Mapping DTOs
// ---------------------------------------------------------------------------

// CreateMappingRequest links a marketplace catalog entry to a product
type CreateMappingRequest struct {
	Platform       string    `json:"platform" binding:"required,oneof=GETIR YEMEKSEPETI TRENDYOL MIGROS"`
	ExternalItemID string    `json:"external_item_id" binding:"required,max=255"`
	ExternalName   string    `json:"external_name" binding:"omitempty,max=255"`
	ProductID      uuid.UUID `json:"product_id" binding:"required"`
}

// UpdateMappingRequest applies a partial mapping update
type UpdateMappingRequest struct {
	ProductID    *uuid.UUID      `json:"product_id,omitempty"`
	ExternalName *string         `json:"external_name,omitempty" binding:"omitempty,max=255"`
	IsActive     *bool           `json:"is_active,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
}

// ListMappingsRequest filters the mapping listing
type ListMappingsRequest struct {
	Platform string `form:"platform" binding:"omitempty,oneof=GETIR YEMEKSEPETI TRENDYOL MIGROS"`
	IsActive *bool  `form:"is_active"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// UpdateAvailabilityRequest toggles an item's availability on the marketplace
type UpdateAvailabilityRequest struct {
	Available *bool `json:"available" binding:"required"`
}

// MenuPushItemRequest is one catalog entry pushed during a menu sync
type MenuPushItemRequest struct {
	ExternalItemID string `json:"external_item_id" binding:"required,max=255"`
	Name           string `json:"name" binding:"required,max=255"`
	Price          string `json:"price" binding:"required"`
	Available      bool   `json:"available"`
}

// SyncMenuRequest pushes the tenant catalog to the marketplace
type SyncMenuRequest struct {
	Items []MenuPushItemRequest `json:"items" binding:"required,min=1,dive"`
}

// MappingResponse is the API view of a menu item mapping
type MappingResponse struct {
	ID             uuid.UUID       `json:"id"`
	Platform       string          `json:"platform"`
	ExternalItemID string          `json:"external_item_id"`
	ExternalName   string          `json:"external_name,omitempty"`
	ProductID      uuid.UUID       `json:"product_id"`
	IsActive       bool            `json:"is_active"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NewMappingResponse converts a domain mapping to its API view
func NewMappingResponse(m *delivery.MenuItemMapping) MappingResponse {
	return MappingResponse{
		ID:             m.ID,
		Platform:       string(m.Platform),
		ExternalItemID: m.ExternalItemID,
		ExternalName:   m.ExternalName,
		ProductID:      m.ProductID,
		IsActive:       m.IsActive,
		Metadata:       m.Metadata,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// ---------------------------------------------------------------------------
// Order DTOs
// ---------------------------------------------------------------------------

// UpdateOrderStatusRequest moves an order through its lifecycle
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=PENDING PENDING_APPROVAL PREPARING READY SERVED CANCELLED REJECTED COMPLETED"`
}

// OrderItemResponse is one line of an ingested order
type OrderItemResponse struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      *uuid.UUID `json:"product_id,omitempty"`
	ExternalItemID string     `json:"external_item_id,omitempty"`
	Name           string     `json:"name"`
	Quantity       int        `json:"quantity"`
	UnitPrice      string     `json:"unit_price"`
	ModifierTotal  string     `json:"modifier_total"`
	Subtotal       string     `json:"subtotal"`
}

// OrderResponse is the API view of an ingested delivery order
type OrderResponse struct {
	ID              uuid.UUID           `json:"id"`
	OrderNumber     string              `json:"order_number"`
	Source          string              `json:"source"`
	ExternalOrderID string              `json:"external_order_id"`
	Status          string              `json:"status"`
	CustomerName    string              `json:"customer_name,omitempty"`
	CustomerPhone   string              `json:"customer_phone,omitempty"`
	CustomerAddress string              `json:"customer_address,omitempty"`
	Note            string              `json:"note,omitempty"`
	Items           []OrderItemResponse `json:"items"`
	TotalAmount     string              `json:"total_amount"`
	DiscountAmount  string              `json:"discount_amount"`
	FinalAmount     string              `json:"final_amount"`
	PlacedAt        *time.Time          `json:"placed_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// NewOrderResponse converts a domain order to its API view
func NewOrderResponse(o *delivery.DeliveryOrder) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for i := range o.Items {
		item := &o.Items[i]
		items = append(items, OrderItemResponse{
			ID:             item.ID,
			ProductID:      item.ProductID,
			ExternalItemID: item.ExternalItemID,
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice.String(),
			ModifierTotal:  item.ModifierTotal.String(),
			Subtotal:       item.Subtotal.String(),
		})
	}

	return OrderResponse{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		Source:          string(o.Source),
		ExternalOrderID: o.ExternalOrderID,
		Status:          string(o.Status),
		CustomerName:    o.CustomerName,
		CustomerPhone:   o.CustomerPhone,
		CustomerAddress: o.CustomerAddress,
		Note:            o.Note,
		Items:           items,
		TotalAmount:     o.TotalAmount.String(),
		DiscountAmount:  o.DiscountAmount.String(),
		FinalAmount:     o.FinalAmount.String(),
		PlacedAt:        o.PlacedAt,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

// ---------------------------------------------------------------------------
// Operation Log DTOs
// ---------------------------------------------------------------------------

// ListOperationLogsRequest filters the operation log listing
type ListOperationLogsRequest struct {
	Platform  string     `form:"platform" binding:"omitempty,oneof=GETIR YEMEKSEPETI TRENDYOL MIGROS"`
	Direction string     `form:"direction" binding:"omitempty,oneof=INBOUND OUTBOUND"`
	Action    string     `form:"action"`
	Success   *bool      `form:"success"`
	From      *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To        *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Page      int        `form:"page" binding:"omitempty,min=1"`
	PageSize  int        `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// OperationLogResponse is the API view of one operation log entry
type OperationLogResponse struct {
	ID          uuid.UUID  `json:"id"`
	Platform    string     `json:"platform"`
	Direction   string     `json:"direction"`
	Action      string     `json:"action"`
	OrderID     *uuid.UUID `json:"order_id,omitempty"`
	ExternalID  string     `json:"external_id,omitempty"`
	HTTPStatus  *int       `json:"http_status,omitempty"`
	Success     bool       `json:"success"`
	ErrorText   string     `json:"error_text,omitempty"`
	RetryCount  int        `json:"retry_count"`
	MaxRetries  int        `json:"max_retries"`
	NextRetryAt *time.Time `json:"next_retry_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewOperationLogResponse converts a domain log entry to its API view
func NewOperationLogResponse(entry *delivery.OperationLog) OperationLogResponse {
	return OperationLogResponse{
		ID:          entry.ID,
		Platform:    string(entry.Platform),
		Direction:   string(entry.Direction),
		Action:      string(entry.Action),
		OrderID:     entry.OrderID,
		ExternalID:  entry.ExternalID,
		HTTPStatus:  entry.HTTPStatus,
		Success:     entry.Success,
		ErrorText:   entry.ErrorText,
		RetryCount:  entry.RetryCount,
		MaxRetries:  entry.MaxRetries,
		NextRetryAt: entry.NextRetryAt,
		CreatedAt:   entry.CreatedAt,
		UpdatedAt:   entry.UpdatedAt,
	}
}
