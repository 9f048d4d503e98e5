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

// GormOperationLogRepository implements OperationLogRepository using GORM
type GormOperationLogRepository struct {
	db *gorm.DB
}

// NewGormOperationLogRepository creates a new GormOperationLogRepository
func NewGormOperationLogRepository(db *gorm.DB) *GormOperationLogRepository {
	return &GormOperationLogRepository{db: db}
}

var _ delivery.OperationLogRepository = (*GormOperationLogRepository)(nil)

// FindByID finds a log entry by its ID
func (r *GormOperationLogRepository) FindByID(ctx context.Context, id uuid.UUID) (*delivery.OperationLog, error) {
	var model models.OperationLogModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, delivery.ErrLogEntryNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Append inserts a new log entry
func (r *GormOperationLogRepository) Append(ctx context.Context, entry *delivery.OperationLog) error {
	model := models.OperationLogModelFromDomain(entry)
	return r.db.WithContext(ctx).Create(model).Error
}

// Update persists retry-state changes on an existing entry
func (r *GormOperationLogRepository) Update(ctx context.Context, entry *delivery.OperationLog) error {
	model := models.OperationLogModelFromDomain(entry)
	result := r.db.WithContext(ctx).
		Model(&models.OperationLogModel{}).
		Where("id = ?", entry.ID).
		Updates(map[string]interface{}{
			"success":       model.Success,
			"error_text":    model.ErrorText,
			"response_body": model.ResponseBody,
			"http_status":   model.HTTPStatus,
			"retry_count":   model.RetryCount,
			"next_retry_at": model.NextRetryAt,
			"updated_at":    model.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return delivery.ErrLogEntryNotFound
	}
	return nil
}

// FindDueRetries returns failed entries whose retry is due, oldest first
func (r *GormOperationLogRepository) FindDueRetries(ctx context.Context, now time.Time, limit int) ([]*delivery.OperationLog, error) {
	var logModels []models.OperationLogModel
	if err := r.db.WithContext(ctx).
		Where("success = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ? AND retry_count < max_retries",
			false, now).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&logModels).Error; err != nil {
		return nil, err
	}

	entries := make([]*delivery.OperationLog, len(logModels))
	for i := range logModels {
		entries[i] = logModels[i].ToDomain()
	}
	return entries, nil
}

// List returns a filtered page of a tenant's log entries, newest first, with
// the total match count
func (r *GormOperationLogRepository) List(ctx context.Context, tenantID uuid.UUID, filter delivery.OperationLogFilter) ([]delivery.OperationLog, int64, error) {
	query := r.applyFilter(r.db.WithContext(ctx), tenantID, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var logModels []models.OperationLogModel
	if err := query.Order("created_at DESC").Find(&logModels).Error; err != nil {
		return nil, 0, err
	}

	entries := make([]delivery.OperationLog, len(logModels))
	for i := range logModels {
		entries[i] = *logModels[i].ToDomain()
	}
	return entries, total, nil
}

func (r *GormOperationLogRepository) applyFilter(db *gorm.DB, tenantID uuid.UUID, filter delivery.OperationLogFilter) *gorm.DB {
	query := db.Model(&models.OperationLogModel{}).Where("tenant_id = ?", tenantID)
	if filter.Platform != nil {
		query = query.Where("platform = ?", *filter.Platform)
	}
	if filter.Direction != nil {
		query = query.Where("direction = ?", *filter.Direction)
	}
	if filter.Action != nil {
		query = query.Where("action = ?", *filter.Action)
	}
	if filter.Success != nil {
		query = query.Where("success = ?", *filter.Success)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}
	return query
}
