package delivery

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MenuItemMapping links a marketplace catalog entry to an internal product.
// One mapping exists per (tenant, platform, external item ID). Inactive
// mappings are ignored during order ingestion and menu pushes.
type MenuItemMapping struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	Platform       PlatformType
	ExternalItemID string
	ProductID      uuid.UUID
	ExternalName   string
	IsActive       bool

	// Metadata carries opaque platform-specific attributes (category IDs,
	// variant identifiers) used when pushing menu updates back
	Metadata json.RawMessage

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewMenuItemMapping creates an active mapping between an external catalog
// entry and an internal product.
func NewMenuItemMapping(tenantID uuid.UUID, platform PlatformType, externalItemID string, productID uuid.UUID) (*MenuItemMapping, error) {
	if tenantID == uuid.Nil {
		return nil, ErrInvalidTenantID
	}
	if !platform.IsValid() {
		return nil, ErrInvalidPlatform
	}
	if externalItemID == "" || productID == uuid.Nil {
		return nil, ErrMappingNotFound
	}

	now := time.Now()
	return &MenuItemMapping{
		ID:             uuid.New(),
		TenantID:       tenantID,
		Platform:       platform,
		ExternalItemID: externalItemID,
		ProductID:      productID,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Activate marks the mapping usable for ingestion and menu pushes.
func (m *MenuItemMapping) Activate() {
	m.IsActive = true
	m.UpdatedAt = time.Now()
}

// Deactivate excludes the mapping without deleting it.
func (m *MenuItemMapping) Deactivate() {
	m.IsActive = false
	m.UpdatedAt = time.Now()
}
