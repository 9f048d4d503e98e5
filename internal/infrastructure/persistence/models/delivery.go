package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orderbridge/backend/internal/domain/delivery"
)

// PlatformConfigModel is the persistence model for the PlatformConfig domain entity.
type PlatformConfigModel struct {
	ID                 uuid.UUID             `gorm:"type:uuid;primary_key"`
	TenantID           uuid.UUID             `gorm:"type:uuid;not null;uniqueIndex:idx_platform_config_tenant_platform,priority:1"`
	Platform           delivery.PlatformType `gorm:"type:varchar(20);not null;uniqueIndex:idx_platform_config_tenant_platform,priority:2;index:idx_platform_config_platform_remote,priority:1"`
	Credentials        string                `gorm:"type:jsonb;not null"`
	AccessToken        string                `gorm:"type:text"`
	TokenExpiresAt     *time.Time            `gorm:"index"`
	RemoteRestaurantID string                `gorm:"type:varchar(100);index:idx_platform_config_platform_remote,priority:2"`
	AutoAccept         bool                  `gorm:"not null;default:true"`
	RestaurantOpen     bool                  `gorm:"not null;default:true"`
	IsEnabled          bool                  `gorm:"not null;default:true;index"`
	ErrorCount         int                   `gorm:"not null;default:0"`
	LastError          string                `gorm:"type:text"`
	LastErrorAt        *time.Time
	LastOrderPollAt    *time.Time
	LastMenuSyncAt     *time.Time
	CreatedAt          time.Time `gorm:"not null"`
	UpdatedAt          time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PlatformConfigModel) TableName() string {
	return "delivery_platform_configs"
}

// ToDomain converts the persistence model to a domain PlatformConfig entity.
func (m *PlatformConfigModel) ToDomain() *delivery.PlatformConfig {
	return &delivery.PlatformConfig{
		ID:                 m.ID,
		TenantID:           m.TenantID,
		Platform:           m.Platform,
		Credentials:        json.RawMessage(m.Credentials),
		AccessToken:        m.AccessToken,
		TokenExpiresAt:     m.TokenExpiresAt,
		RemoteRestaurantID: m.RemoteRestaurantID,
		AutoAccept:         m.AutoAccept,
		RestaurantOpen:     m.RestaurantOpen,
		IsEnabled:          m.IsEnabled,
		ErrorCount:         m.ErrorCount,
		LastError:          m.LastError,
		LastErrorAt:        m.LastErrorAt,
		LastOrderPollAt:    m.LastOrderPollAt,
		LastMenuSyncAt:     m.LastMenuSyncAt,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain PlatformConfig entity.
func (m *PlatformConfigModel) FromDomain(cfg *delivery.PlatformConfig) {
	m.ID = cfg.ID
	m.TenantID = cfg.TenantID
	m.Platform = cfg.Platform
	m.Credentials = string(cfg.Credentials)
	m.AccessToken = cfg.AccessToken
	m.TokenExpiresAt = cfg.TokenExpiresAt
	m.RemoteRestaurantID = cfg.RemoteRestaurantID
	m.AutoAccept = cfg.AutoAccept
	m.RestaurantOpen = cfg.RestaurantOpen
	m.IsEnabled = cfg.IsEnabled
	m.ErrorCount = cfg.ErrorCount
	m.LastError = cfg.LastError
	m.LastErrorAt = cfg.LastErrorAt
	m.LastOrderPollAt = cfg.LastOrderPollAt
	m.LastMenuSyncAt = cfg.LastMenuSyncAt
	m.CreatedAt = cfg.CreatedAt
	m.UpdatedAt = cfg.UpdatedAt
}

// PlatformConfigModelFromDomain creates a new persistence model from a domain PlatformConfig entity.
func PlatformConfigModelFromDomain(cfg *delivery.PlatformConfig) *PlatformConfigModel {
	m := &PlatformConfigModel{}
	m.FromDomain(cfg)
	return m
}

// DeliveryOrderModel is the persistence model for the DeliveryOrder domain entity.
// The (tenant_id, source, external_order_id) unique index is the idempotency
// boundary for concurrent webhook and poll ingestion.
type DeliveryOrderModel struct {
	ID              uuid.UUID             `gorm:"type:uuid;primary_key"`
	TenantID        uuid.UUID             `gorm:"type:uuid;not null;index;uniqueIndex:idx_delivery_order_tenant_source_external,priority:1"`
	OrderNumber     string                `gorm:"type:varchar(50);not null;index"`
	Source          delivery.PlatformType `gorm:"type:varchar(20);not null;uniqueIndex:idx_delivery_order_tenant_source_external,priority:2"`
	ExternalOrderID string                `gorm:"type:varchar(100);not null;uniqueIndex:idx_delivery_order_tenant_source_external,priority:3"`
	Status          delivery.OrderStatus  `gorm:"type:varchar(20);not null;index"`
	CustomerName    string                `gorm:"type:varchar(255)"`
	CustomerPhone   string                `gorm:"type:varchar(50)"`
	CustomerAddress string                `gorm:"type:text"`
	Note            string                `gorm:"type:text"`
	TotalAmount     decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	DiscountAmount  decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	FinalAmount     decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	RawPayload      string                `gorm:"type:jsonb"`
	PlacedAt        *time.Time
	CreatedAt       time.Time `gorm:"not null;index"`
	UpdatedAt       time.Time `gorm:"not null"`

	Items []DeliveryOrderItemModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (DeliveryOrderModel) TableName() string {
	return "delivery_orders"
}

// DeliveryOrderItemModel is the persistence model for a delivery order line.
type DeliveryOrderItemModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID      *uuid.UUID      `gorm:"type:uuid;index"`
	ExternalItemID string          `gorm:"type:varchar(100)"`
	Name           string          `gorm:"type:varchar(255);not null"`
	Quantity       int             `gorm:"not null;default:1"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ModifierTotal  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (DeliveryOrderItemModel) TableName() string {
	return "delivery_order_items"
}

// ToDomain converts the persistence model to a domain DeliveryOrder entity.
func (m *DeliveryOrderModel) ToDomain() *delivery.DeliveryOrder {
	items := make([]delivery.DeliveryOrderItem, len(m.Items))
	for i, item := range m.Items {
		items[i] = delivery.DeliveryOrderItem{
			ID:             item.ID,
			OrderID:        item.OrderID,
			ProductID:      item.ProductID,
			ExternalItemID: item.ExternalItemID,
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice,
			ModifierTotal:  item.ModifierTotal,
			Subtotal:       item.Subtotal,
		}
	}

	return &delivery.DeliveryOrder{
		ID:              m.ID,
		TenantID:        m.TenantID,
		OrderNumber:     m.OrderNumber,
		Source:          m.Source,
		ExternalOrderID: m.ExternalOrderID,
		Status:          m.Status,
		CustomerName:    m.CustomerName,
		CustomerPhone:   m.CustomerPhone,
		CustomerAddress: m.CustomerAddress,
		Note:            m.Note,
		Items:           items,
		TotalAmount:     m.TotalAmount,
		DiscountAmount:  m.DiscountAmount,
		FinalAmount:     m.FinalAmount,
		RawPayload:      json.RawMessage(m.RawPayload),
		PlacedAt:        m.PlacedAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain DeliveryOrder entity.
func (m *DeliveryOrderModel) FromDomain(o *delivery.DeliveryOrder) {
	m.ID = o.ID
	m.TenantID = o.TenantID
	m.OrderNumber = o.OrderNumber
	m.Source = o.Source
	m.ExternalOrderID = o.ExternalOrderID
	m.Status = o.Status
	m.CustomerName = o.CustomerName
	m.CustomerPhone = o.CustomerPhone
	m.CustomerAddress = o.CustomerAddress
	m.Note = o.Note
	m.TotalAmount = o.TotalAmount
	m.DiscountAmount = o.DiscountAmount
	m.FinalAmount = o.FinalAmount
	m.RawPayload = string(o.RawPayload)
	m.PlacedAt = o.PlacedAt
	m.CreatedAt = o.CreatedAt
	m.UpdatedAt = o.UpdatedAt

	m.Items = make([]DeliveryOrderItemModel, len(o.Items))
	for i, item := range o.Items {
		m.Items[i] = DeliveryOrderItemModel{
			ID:             item.ID,
			OrderID:        item.OrderID,
			ProductID:      item.ProductID,
			ExternalItemID: item.ExternalItemID,
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice,
			ModifierTotal:  item.ModifierTotal,
			Subtotal:       item.Subtotal,
		}
	}
}

// DeliveryOrderModelFromDomain creates a new persistence model from a domain DeliveryOrder entity.
func DeliveryOrderModelFromDomain(o *delivery.DeliveryOrder) *DeliveryOrderModel {
	m := &DeliveryOrderModel{}
	m.FromDomain(o)
	return m
}

// MenuItemMappingModel is the persistence model for the MenuItemMapping domain entity.
type MenuItemMappingModel struct {
	ID             uuid.UUID             `gorm:"type:uuid;primary_key"`
	TenantID       uuid.UUID             `gorm:"type:uuid;not null;uniqueIndex:idx_menu_mapping_tenant_platform_external,priority:1"`
	Platform       delivery.PlatformType `gorm:"type:varchar(20);not null;uniqueIndex:idx_menu_mapping_tenant_platform_external,priority:2"`
	ExternalItemID string                `gorm:"type:varchar(100);not null;uniqueIndex:idx_menu_mapping_tenant_platform_external,priority:3"`
	ProductID      uuid.UUID             `gorm:"type:uuid;not null;index"`
	ExternalName   string                `gorm:"type:varchar(255)"`
	IsActive       bool                  `gorm:"not null;default:true;index"`
	Metadata       string                `gorm:"type:jsonb"`
	CreatedAt      time.Time             `gorm:"not null"`
	UpdatedAt      time.Time             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (MenuItemMappingModel) TableName() string {
	return "delivery_menu_item_mappings"
}

// ToDomain converts the persistence model to a domain MenuItemMapping entity.
func (m *MenuItemMappingModel) ToDomain() *delivery.MenuItemMapping {
	return &delivery.MenuItemMapping{
		ID:             m.ID,
		TenantID:       m.TenantID,
		Platform:       m.Platform,
		ExternalItemID: m.ExternalItemID,
		ProductID:      m.ProductID,
		ExternalName:   m.ExternalName,
		IsActive:       m.IsActive,
		Metadata:       json.RawMessage(m.Metadata),
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain MenuItemMapping entity.
func (m *MenuItemMappingModel) FromDomain(mapping *delivery.MenuItemMapping) {
	m.ID = mapping.ID
	m.TenantID = mapping.TenantID
	m.Platform = mapping.Platform
	m.ExternalItemID = mapping.ExternalItemID
	m.ProductID = mapping.ProductID
	m.ExternalName = mapping.ExternalName
	m.IsActive = mapping.IsActive
	m.Metadata = string(mapping.Metadata)
	m.CreatedAt = mapping.CreatedAt
	m.UpdatedAt = mapping.UpdatedAt
}

// MenuItemMappingModelFromDomain creates a new persistence model from a domain MenuItemMapping entity.
func MenuItemMappingModelFromDomain(mapping *delivery.MenuItemMapping) *MenuItemMappingModel {
	m := &MenuItemMappingModel{}
	m.FromDomain(mapping)
	return m
}

// OperationLogModel is the persistence model for the OperationLog domain entity.
type OperationLogModel struct {
	ID           uuid.UUID             `gorm:"type:uuid;primary_key"`
	TenantID     uuid.UUID             `gorm:"type:uuid;not null;index:idx_operation_log_tenant_created,priority:1"`
	Platform     delivery.PlatformType `gorm:"type:varchar(20);not null;index"`
	Direction    delivery.Direction    `gorm:"type:varchar(10);not null"`
	Action       delivery.ActionKind   `gorm:"type:varchar(30);not null;index"`
	OrderID      *uuid.UUID            `gorm:"type:uuid;index"`
	ExternalID   string                `gorm:"type:varchar(100);index"`
	RequestBody  string                `gorm:"type:text"`
	ResponseBody string                `gorm:"type:text"`
	HTTPStatus   *int
	Success      bool       `gorm:"not null;default:false;index"`
	ErrorText    string     `gorm:"type:text"`
	RetryCount   int        `gorm:"not null;default:0"`
	MaxRetries   int        `gorm:"not null;default:3"`
	NextRetryAt  *time.Time `gorm:"index"`
	CreatedAt    time.Time  `gorm:"not null;index:idx_operation_log_tenant_created,priority:2,sort:desc"`
	UpdatedAt    time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OperationLogModel) TableName() string {
	return "delivery_operation_logs"
}

// ToDomain converts the persistence model to a domain OperationLog entity.
func (m *OperationLogModel) ToDomain() *delivery.OperationLog {
	return &delivery.OperationLog{
		ID:           m.ID,
		TenantID:     m.TenantID,
		Platform:     m.Platform,
		Direction:    m.Direction,
		Action:       m.Action,
		OrderID:      m.OrderID,
		ExternalID:   m.ExternalID,
		RequestBody:  m.RequestBody,
		ResponseBody: m.ResponseBody,
		HTTPStatus:   m.HTTPStatus,
		Success:      m.Success,
		ErrorText:    m.ErrorText,
		RetryCount:   m.RetryCount,
		MaxRetries:   m.MaxRetries,
		NextRetryAt:  m.NextRetryAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain OperationLog entity.
func (m *OperationLogModel) FromDomain(e *delivery.OperationLog) {
	m.ID = e.ID
	m.TenantID = e.TenantID
	m.Platform = e.Platform
	m.Direction = e.Direction
	m.Action = e.Action
	m.OrderID = e.OrderID
	m.ExternalID = e.ExternalID
	m.RequestBody = e.RequestBody
	m.ResponseBody = e.ResponseBody
	m.HTTPStatus = e.HTTPStatus
	m.Success = e.Success
	m.ErrorText = e.ErrorText
	m.RetryCount = e.RetryCount
	m.MaxRetries = e.MaxRetries
	m.NextRetryAt = e.NextRetryAt
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// OperationLogModelFromDomain creates a new persistence model from a domain OperationLog entity.
func OperationLogModelFromDomain(e *delivery.OperationLog) *OperationLogModel {
	m := &OperationLogModel{}
	m.FromDomain(e)
	return m
}
