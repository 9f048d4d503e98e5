package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orderbridge/backend/internal/domain/delivery"
)

// ConfigService manages per-tenant platform configurations: CRUD, connection
// testing, the remote open/closed toggle and manual circuit-breaker resets.
type ConfigService struct {
	configs  delivery.PlatformConfigRepository
	registry delivery.AdapterRegistry
	tokens   *TokenService
	logs     *LogService
	logger   *zap.Logger
}

// NewConfigService creates a new ConfigService
func NewConfigService(
	configs delivery.PlatformConfigRepository,
	registry delivery.AdapterRegistry,
	tokens *TokenService,
	logs *LogService,
	logger *zap.Logger,
) *ConfigService {
	return &ConfigService{
		configs:  configs,
		registry: registry,
		tokens:   tokens,
		logs:     logs,
		logger:   logger,
	}
}

// ConfigUpdate carries the optional fields of a configuration update.
// Nil fields are left untouched.
type ConfigUpdate struct {
	Credentials        json.RawMessage
	RemoteRestaurantID *string
	AutoAccept         *bool
	IsEnabled          *bool
}

// CreateConfig registers a marketplace integration for a tenant. At most one
// configuration exists per (tenant, platform).
func (s *ConfigService) CreateConfig(ctx context.Context, tenantID uuid.UUID, platform delivery.PlatformType, credentials json.RawMessage, remoteRestaurantID string) (*delivery.PlatformConfig, error) {
	if _, err := s.registry.Adapter(platform); err != nil {
		return nil, err
	}

	if _, err := s.configs.FindByTenantAndPlatform(ctx, tenantID, platform); err == nil {
		return nil, delivery.ErrConfigAlreadyExists
	} else if !errors.Is(err, delivery.ErrConfigNotFound) {
		return nil, err
	}

	cfg, err := delivery.NewPlatformConfig(tenantID, platform, credentials, remoteRestaurantID)
	if err != nil {
		return nil, err
	}

	if err := s.configs.Save(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UpdateConfig applies a partial update to an existing configuration.
func (s *ConfigService) UpdateConfig(ctx context.Context, tenantID uuid.UUID, platform delivery.PlatformType, update ConfigUpdate) (*delivery.PlatformConfig, error) {
	cfg, err := s.getTenantConfig(ctx, tenantID, platform)
	if err != nil {
		return nil, err
	}

	if update.Credentials != nil {
		cfg.Credentials = update.Credentials
		// A credential change invalidates the current token.
		cfg.AccessToken = ""
		cfg.TokenExpiresAt = nil
	}
	if update.RemoteRestaurantID != nil {
		cfg.RemoteRestaurantID = *update.RemoteRestaurantID
	}
	if update.AutoAccept != nil {
		cfg.AutoAccept = *update.AutoAccept
	}
	if update.IsEnabled != nil {
		cfg.IsEnabled = *update.IsEnabled
	}
	cfg.UpdatedAt = time.Now()

	if err := s.configs.Save(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DeleteConfig removes a tenant's configuration for one platform.
func (s *ConfigService) DeleteConfig(ctx context.Context, tenantID uuid.UUID, platform delivery.PlatformType) error {
	cfg, err := s.getTenantConfig(ctx, tenantID, platform)
	if err != nil {
		return err
	}
	return s.configs.Delete(ctx, cfg.ID)
}

// GetConfig returns a tenant's configuration for one platform.
func (s *ConfigService) GetConfig(ctx context.Context, tenantID uuid.UUID, platform delivery.PlatformType) (*delivery.PlatformConfig, error) {
	return s.getTenantConfig(ctx, tenantID, platform)
}

// ListConfigs returns all of a tenant's configurations.
func (s *ConfigService) ListConfigs(ctx context.Context, tenantID uuid.UUID) ([]delivery.PlatformConfig, error) {
	return s.configs.FindByTenant(ctx, tenantID)
}

// TestConnection verifies credentials and connectivity for a configuration
// and records the attempt in the operation log.
func (s *ConfigService) TestConnection(ctx context.Context, tenantID uuid.UUID, platform delivery.PlatformType) error {
	cfg, err := s.getTenantConfig(ctx, tenantID, platform)
	if err != nil {
		return err
	}

	adapter, err := s.registry.Adapter(platform)
	if err != nil {
		return err
	}

	entry := delivery.NewOperationLog(tenantID, platform, delivery.DirectionOutbound, delivery.ActionTestConnection)
	err = adapter.TestConnection(ctx, cfg)
	if err != nil {
		entry.MarkFailed(err.Error(), 0)
	} else {
		entry.MarkSucceeded()
	}
	s.logs.Record(ctx, entry)
	return err
}

// ToggleRestaurant pushes the open/closed state to the marketplace and
// mirrors it on the configuration.
func (s *ConfigService) ToggleRestaurant(ctx context.Context, tenantID uuid.UUID, platform delivery.PlatformType, open bool) error {
	cfg, err := s.getTenantConfig(ctx, tenantID, platform)
	if err != nil {
		return err
	}
	if !cfg.IsEnabled {
		return delivery.ErrConfigDisabled
	}

	adapter, err := s.registry.Adapter(platform)
	if err != nil {
		return err
	}
	if !adapter.Capabilities().CanToggleRestaurant {
		return delivery.ErrCapabilityNotSupported
	}

	fresh, err := s.tokens.EnsureValidToken(ctx, cfg.ID)
	if err != nil {
		return err
	}

	action := delivery.ActionOpenRestaurant
	if open {
		err = adapter.OpenRestaurant(ctx, fresh)
	} else {
		action = delivery.ActionCloseRestaurant
		err = adapter.CloseRestaurant(ctx, fresh)
	}

	entry := delivery.NewOperationLog(tenantID, platform, delivery.DirectionOutbound, action)
	if err != nil {
		entry.MarkFailed(err.Error(), 0)
		s.logs.Record(ctx, entry)
		return err
	}
	entry.MarkSucceeded()
	s.logs.Record(ctx, entry)

	return s.configs.UpdateRestaurantOpen(ctx, cfg.ID, open)
}

// ResetErrors clears the consecutive error counter, manually closing the
// circuit breaker so the poll scheduler picks the configuration up again.
func (s *ConfigService) ResetErrors(ctx context.Context, tenantID uuid.UUID, platform delivery.PlatformType) error {
	cfg, err := s.getTenantConfig(ctx, tenantID, platform)
	if err != nil {
		return err
	}

	s.logger.Info("circuit breaker manually reset",
		zap.String("platform", platform.String()),
		zap.String("config_id", cfg.ID.String()),
	)
	return s.configs.ResetErrors(ctx, cfg.ID)
}

func (s *ConfigService) getTenantConfig(ctx context.Context, tenantID uuid.UUID, platform delivery.PlatformType) (*delivery.PlatformConfig, error) {
	cfg, err := s.configs.FindByTenantAndPlatform(ctx, tenantID, platform)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
