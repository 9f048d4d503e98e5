package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderbridge/backend/internal/domain/delivery"
	"github.com/orderbridge/backend/internal/infrastructure/persistence/models"
)

// GormMenuItemMappingRepository implements MenuItemMappingRepository using GORM
type GormMenuItemMappingRepository struct {
	db *gorm.DB
}

// NewGormMenuItemMappingRepository creates a new GormMenuItemMappingRepository
func NewGormMenuItemMappingRepository(db *gorm.DB) *GormMenuItemMappingRepository {
	return &GormMenuItemMappingRepository{db: db}
}

var _ delivery.MenuItemMappingRepository = (*GormMenuItemMappingRepository)(nil)

// FindByID finds a mapping by its ID
func (r *GormMenuItemMappingRepository) FindByID(ctx context.Context, id uuid.UUID) (*delivery.MenuItemMapping, error) {
	var model models.MenuItemMappingModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, delivery.ErrMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByExternalID finds a mapping by the external catalog item identifier
func (r *GormMenuItemMappingRepository) FindByExternalID(ctx context.Context, tenantID uuid.UUID, platform delivery.PlatformType, externalItemID string) (*delivery.MenuItemMapping, error) {
	var model models.MenuItemMappingModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND platform = ? AND external_item_id = ?", tenantID, platform, externalItemID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, delivery.ErrMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActiveByPlatform returns the active mappings used during order ingestion
func (r *GormMenuItemMappingRepository) FindActiveByPlatform(ctx context.Context, tenantID uuid.UUID, platform delivery.PlatformType) ([]delivery.MenuItemMapping, error) {
	var mappingModels []models.MenuItemMappingModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND platform = ? AND is_active = ?", tenantID, platform, true).
		Find(&mappingModels).Error; err != nil {
		return nil, err
	}
	return toDomainMappings(mappingModels), nil
}

// FindAll returns a filtered page of a tenant's mappings
func (r *GormMenuItemMappingRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter delivery.MenuItemMappingFilter) ([]delivery.MenuItemMapping, error) {
	query := r.applyFilter(r.db.WithContext(ctx), tenantID, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var mappingModels []models.MenuItemMappingModel
	if err := query.Order("external_name ASC").Find(&mappingModels).Error; err != nil {
		return nil, err
	}
	return toDomainMappings(mappingModels), nil
}

// Count returns the number of mappings matching the filter
func (r *GormMenuItemMappingRepository) Count(ctx context.Context, tenantID uuid.UUID, filter delivery.MenuItemMappingFilter) (int64, error) {
	var count int64
	err := r.applyFilter(r.db.WithContext(ctx), tenantID, filter).Count(&count).Error
	return count, err
}

// ExistsByExternalID reports whether a mapping exists for the external item
func (r *GormMenuItemMappingRepository) ExistsByExternalID(ctx context.Context, tenantID uuid.UUID, platform delivery.PlatformType, externalItemID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.MenuItemMappingModel{}).
		Where("tenant_id = ? AND platform = ? AND external_item_id = ?", tenantID, platform, externalItemID).
		Count(&count).Error
	return count > 0, err
}

// Save persists a mapping
func (r *GormMenuItemMappingRepository) Save(ctx context.Context, mapping *delivery.MenuItemMapping) error {
	model := models.MenuItemMappingModelFromDomain(mapping)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete removes a mapping
func (r *GormMenuItemMappingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.MenuItemMappingModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return delivery.ErrMappingNotFound
	}
	return nil
}

func (r *GormMenuItemMappingRepository) applyFilter(db *gorm.DB, tenantID uuid.UUID, filter delivery.MenuItemMappingFilter) *gorm.DB {
	query := db.Model(&models.MenuItemMappingModel{}).Where("tenant_id = ?", tenantID)
	if filter.Platform != nil {
		query = query.Where("platform = ?", *filter.Platform)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	return query
}

func toDomainMappings(mappingModels []models.MenuItemMappingModel) []delivery.MenuItemMapping {
	mappings := make([]delivery.MenuItemMapping, len(mappingModels))
	for i, model := range mappingModels {
		mappings[i] = *model.ToDomain()
	}
	return mappings
}
