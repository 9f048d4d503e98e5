package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderbridge/backend/internal/domain/delivery"
	"github.com/orderbridge/backend/internal/infrastructure/persistence/models"
)

// GormPlatformConfigRepository implements PlatformConfigRepository using GORM
type GormPlatformConfigRepository struct {
	db *gorm.DB
}

// NewGormPlatformConfigRepository creates a new GormPlatformConfigRepository
func NewGormPlatformConfigRepository(db *gorm.DB) *GormPlatformConfigRepository {
	return &GormPlatformConfigRepository{db: db}
}

var _ delivery.PlatformConfigRepository = (*GormPlatformConfigRepository)(nil)

// FindByID finds a configuration by its ID
func (r *GormPlatformConfigRepository) FindByID(ctx context.Context, id uuid.UUID) (*delivery.PlatformConfig, error) {
	var model models.PlatformConfigModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, delivery.ErrConfigNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByTenantAndPlatform finds a tenant's configuration for one platform
func (r *GormPlatformConfigRepository) FindByTenantAndPlatform(ctx context.Context, tenantID uuid.UUID, platform delivery.PlatformType) (*delivery.PlatformConfig, error) {
	var model models.PlatformConfigModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND platform = ?", tenantID, platform).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, delivery.ErrConfigNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPlatformAndRemoteID resolves an enabled configuration from the webhook
// routing pair
func (r *GormPlatformConfigRepository) FindByPlatformAndRemoteID(ctx context.Context, platform delivery.PlatformType, remoteRestaurantID string) (*delivery.PlatformConfig, error) {
	var model models.PlatformConfigModel
	if err := r.db.WithContext(ctx).
		Where("platform = ? AND remote_restaurant_id = ? AND is_enabled = ?", platform, remoteRestaurantID, true).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, delivery.ErrConfigNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindEnabledByPlatforms returns every enabled configuration for the given platforms
func (r *GormPlatformConfigRepository) FindEnabledByPlatforms(ctx context.Context, platforms []delivery.PlatformType) ([]delivery.PlatformConfig, error) {
	if len(platforms) == 0 {
		return nil, nil
	}

	var configModels []models.PlatformConfigModel
	if err := r.db.WithContext(ctx).
		Where("platform IN ? AND is_enabled = ?", platforms, true).
		Order("created_at ASC").
		Find(&configModels).Error; err != nil {
		return nil, err
	}
	return toDomainConfigs(configModels), nil
}

// FindTokenExpiringBefore returns enabled configurations whose token expires
// before the deadline or was never obtained
func (r *GormPlatformConfigRepository) FindTokenExpiringBefore(ctx context.Context, deadline time.Time) ([]delivery.PlatformConfig, error) {
	var configModels []models.PlatformConfigModel
	if err := r.db.WithContext(ctx).
		Where("is_enabled = ? AND (token_expires_at IS NULL OR token_expires_at < ?)", true, deadline).
		Order("token_expires_at ASC NULLS FIRST").
		Find(&configModels).Error; err != nil {
		return nil, err
	}
	return toDomainConfigs(configModels), nil
}

// FindByTenant returns all of a tenant's configurations
func (r *GormPlatformConfigRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]delivery.PlatformConfig, error) {
	var configModels []models.PlatformConfigModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("platform ASC").
		Find(&configModels).Error; err != nil {
		return nil, err
	}
	return toDomainConfigs(configModels), nil
}

// Save persists a configuration
func (r *GormPlatformConfigRepository) Save(ctx context.Context, cfg *delivery.PlatformConfig) error {
	model := models.PlatformConfigModelFromDomain(cfg)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete removes a configuration
func (r *GormPlatformConfigRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.PlatformConfigModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return delivery.ErrConfigNotFound
	}
	return nil
}

// UpdateToken stores a freshly obtained token and resets the error state
func (r *GormPlatformConfigRepository) UpdateToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error {
	return r.updateFields(ctx, id, map[string]interface{}{
		"access_token":     token,
		"token_expires_at": expiresAt,
		"error_count":      0,
		"last_error":       "",
		"last_error_at":    nil,
		"updated_at":       time.Now(),
	})
}

// RecordError increments the consecutive error counter atomically
func (r *GormPlatformConfigRepository) RecordError(ctx context.Context, id uuid.UUID, errText string, at time.Time) error {
	return r.updateFields(ctx, id, map[string]interface{}{
		"error_count":   gorm.Expr("error_count + 1"),
		"last_error":    errText,
		"last_error_at": at,
		"updated_at":    time.Now(),
	})
}

// ResetErrors clears the consecutive error counter
func (r *GormPlatformConfigRepository) ResetErrors(ctx context.Context, id uuid.UUID) error {
	return r.updateFields(ctx, id, map[string]interface{}{
		"error_count":   0,
		"last_error":    "",
		"last_error_at": nil,
		"updated_at":    time.Now(),
	})
}

// UpdateLastPollTime stamps the last successful poll
func (r *GormPlatformConfigRepository) UpdateLastPollTime(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.updateFields(ctx, id, map[string]interface{}{
		"last_order_poll_at": at,
		"updated_at":         time.Now(),
	})
}

// UpdateLastMenuSyncTime stamps the last successful menu push
func (r *GormPlatformConfigRepository) UpdateLastMenuSyncTime(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.updateFields(ctx, id, map[string]interface{}{
		"last_menu_sync_at": at,
		"updated_at":        time.Now(),
	})
}

// UpdateRestaurantOpen mirrors the open/closed state pushed to the marketplace
func (r *GormPlatformConfigRepository) UpdateRestaurantOpen(ctx context.Context, id uuid.UUID, open bool) error {
	return r.updateFields(ctx, id, map[string]interface{}{
		"restaurant_open": open,
		"updated_at":      time.Now(),
	})
}

func (r *GormPlatformConfigRepository) updateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&models.PlatformConfigModel{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return delivery.ErrConfigNotFound
	}
	return nil
}

func toDomainConfigs(configModels []models.PlatformConfigModel) []delivery.PlatformConfig {
	configs := make([]delivery.PlatformConfig, len(configModels))
	for i, model := range configModels {
		configs[i] = *model.ToDomain()
	}
	return configs
}
