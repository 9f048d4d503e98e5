package delivery

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orderbridge/backend/internal/domain/delivery"
)

// MenuService manages menu item mappings and pushes menu state out to the
// marketplaces.
type MenuService struct {
	mappings delivery.MenuItemMappingRepository
	configs  delivery.PlatformConfigRepository
	registry delivery.AdapterRegistry
	tokens   *TokenService
	logs     *LogService
	logger   *zap.Logger
}

// NewMenuService creates a new MenuService
func NewMenuService(
	mappings delivery.MenuItemMappingRepository,
	configs delivery.PlatformConfigRepository,
	registry delivery.AdapterRegistry,
	tokens *TokenService,
	logs *LogService,
	logger *zap.Logger,
) *MenuService {
	return &MenuService{
		mappings: mappings,
		configs:  configs,
		registry: registry,
		tokens:   tokens,
		logs:     logs,
		logger:   logger,
	}
}

// MappingUpdate carries the optional fields of a mapping update. Nil fields
// are left untouched.
type MappingUpdate struct {
	ProductID    *uuid.UUID
	ExternalName *string
	IsActive     *bool
	Metadata     json.RawMessage
}

// MappingPage is one page of mappings with the unfiltered total.
type MappingPage struct {
	Mappings []delivery.MenuItemMapping
	Total    int64
}

// CreateMapping links a marketplace catalog entry to an internal product.
func (s *MenuService) CreateMapping(ctx context.Context, tenantID uuid.UUID, platform delivery.PlatformType, externalItemID, externalName string, productID uuid.UUID) (*delivery.MenuItemMapping, error) {
	exists, err := s.mappings.ExistsByExternalID(ctx, tenantID, platform, externalItemID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, delivery.ErrMappingAlreadyExists
	}

	mapping, err := delivery.NewMenuItemMapping(tenantID, platform, externalItemID, productID)
	if err != nil {
		return nil, err
	}
	mapping.ExternalName = externalName

	if err := s.mappings.Save(ctx, mapping); err != nil {
		return nil, err
	}
	return mapping, nil
}

// UpdateMapping applies a partial update to an existing mapping.
func (s *MenuService) UpdateMapping(ctx context.Context, tenantID uuid.UUID, id uuid.UUID, update MappingUpdate) (*delivery.MenuItemMapping, error) {
	mapping, err := s.getTenantMapping(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if update.ProductID != nil {
		mapping.ProductID = *update.ProductID
	}
	if update.ExternalName != nil {
		mapping.ExternalName = *update.ExternalName
	}
	if update.IsActive != nil {
		if *update.IsActive {
			mapping.Activate()
		} else {
			mapping.Deactivate()
		}
	}
	if update.Metadata != nil {
		mapping.Metadata = update.Metadata
	}
	mapping.UpdatedAt = time.Now()

	if err := s.mappings.Save(ctx, mapping); err != nil {
		return nil, err
	}
	return mapping, nil
}

// DeleteMapping removes a mapping.
func (s *MenuService) DeleteMapping(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) error {
	mapping, err := s.getTenantMapping(ctx, tenantID, id)
	if err != nil {
		return err
	}
	return s.mappings.Delete(ctx, mapping.ID)
}

// GetMapping returns one mapping, tenant scoped.
func (s *MenuService) GetMapping(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (*delivery.MenuItemMapping, error) {
	return s.getTenantMapping(ctx, tenantID, id)
}

// ListMappings returns a page of a tenant's mappings.
func (s *MenuService) ListMappings(ctx context.Context, tenantID uuid.UUID, filter delivery.MenuItemMappingFilter) (*MappingPage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}

	mappings, err := s.mappings.FindAll(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.mappings.Count(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	return &MappingPage{Mappings: mappings, Total: total}, nil
}

// SyncMenu pushes the given catalog snapshot to the marketplace and stamps
// the configuration's last sync time. The attempt is recorded in the
// operation log either way.
func (s *MenuService) SyncMenu(ctx context.Context, tenantID uuid.UUID, platform delivery.PlatformType, items []delivery.MenuPushItem) error {
	cfg, adapter, err := s.enabledConfig(ctx, tenantID, platform)
	if err != nil {
		return err
	}
	if !adapter.Capabilities().CanSyncMenu {
		return delivery.ErrCapabilityNotSupported
	}

	fresh, err := s.tokens.EnsureValidToken(ctx, cfg.ID)
	if err != nil {
		return err
	}

	entry := delivery.NewOperationLog(tenantID, platform, delivery.DirectionOutbound, delivery.ActionSyncMenu)
	if body, merr := json.Marshal(items); merr == nil {
		entry.RequestBody = string(body)
	}

	if err := adapter.SyncMenu(ctx, fresh, items); err != nil {
		entry.MarkFailed(err.Error(), 0)
		s.logs.Record(ctx, entry)
		return err
	}
	entry.MarkSucceeded()
	s.logs.Record(ctx, entry)

	if err := s.configs.UpdateLastMenuSyncTime(ctx, cfg.ID, time.Now()); err != nil {
		s.logger.Warn("failed to stamp menu sync time",
			zap.String("config_id", cfg.ID.String()),
			zap.Error(err),
		)
	}

	s.logger.Info("menu synced",
		zap.String("platform", platform.String()),
		zap.Int("items", len(items)),
	)
	return nil
}

// UpdateItemAvailability toggles one item's availability on the marketplace.
// The mapping's external item ID is the marketplace-side identifier.
func (s *MenuService) UpdateItemAvailability(ctx context.Context, tenantID uuid.UUID, mappingID uuid.UUID, available bool) error {
	mapping, err := s.getTenantMapping(ctx, tenantID, mappingID)
	if err != nil {
		return err
	}

	cfg, adapter, err := s.enabledConfig(ctx, tenantID, mapping.Platform)
	if err != nil {
		return err
	}
	if !adapter.Capabilities().CanToggleAvailability {
		return delivery.ErrCapabilityNotSupported
	}

	fresh, err := s.tokens.EnsureValidToken(ctx, cfg.ID)
	if err != nil {
		return err
	}

	entry := delivery.NewOperationLog(tenantID, mapping.Platform, delivery.DirectionOutbound, delivery.ActionUpdateAvailability)
	entry.ExternalID = mapping.ExternalItemID

	if err := adapter.UpdateItemAvailability(ctx, fresh, mapping.ExternalItemID, available); err != nil {
		entry.MarkFailed(err.Error(), 0)
		s.logs.Record(ctx, entry)
		return err
	}
	entry.MarkSucceeded()
	s.logs.Record(ctx, entry)
	return nil
}

func (s *MenuService) enabledConfig(ctx context.Context, tenantID uuid.UUID, platform delivery.PlatformType) (*delivery.PlatformConfig, delivery.PlatformAdapter, error) {
	cfg, err := s.configs.FindByTenantAndPlatform(ctx, tenantID, platform)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.IsEnabled {
		return nil, nil, delivery.ErrConfigDisabled
	}
	adapter, err := s.registry.Adapter(platform)
	if err != nil {
		return nil, nil, err
	}
	return cfg, adapter, nil
}

func (s *MenuService) getTenantMapping(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (*delivery.MenuItemMapping, error) {
	mapping, err := s.mappings.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if mapping.TenantID != tenantID {
		return nil, delivery.ErrMappingNotFound
	}
	return mapping, nil
}
