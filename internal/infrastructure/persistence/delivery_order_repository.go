package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderbridge/backend/internal/domain/delivery"
	"github.com/orderbridge/backend/internal/infrastructure/persistence/models"
)

// GormDeliveryOrderRepository implements DeliveryOrderRepository using GORM
type GormDeliveryOrderRepository struct {
	db *gorm.DB
}

// NewGormDeliveryOrderRepository creates a new GormDeliveryOrderRepository
func NewGormDeliveryOrderRepository(db *gorm.DB) *GormDeliveryOrderRepository {
	return &GormDeliveryOrderRepository{db: db}
}

var _ delivery.DeliveryOrderRepository = (*GormDeliveryOrderRepository)(nil)

// FindByID finds an order by its ID, items included
func (r *GormDeliveryOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*delivery.DeliveryOrder, error) {
	var model models.DeliveryOrderModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, delivery.ErrOrderNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByExternalID finds an order by its idempotency triple
func (r *GormDeliveryOrderRepository) FindByExternalID(ctx context.Context, tenantID uuid.UUID, source delivery.PlatformType, externalOrderID string) (*delivery.DeliveryOrder, error) {
	var model models.DeliveryOrderModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND source = ? AND external_order_id = ?", tenantID, source, externalOrderID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, delivery.ErrOrderNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// CreateUnique persists the order and its items atomically. The insert is
// guarded twice: an in-transaction existence check for the common case, and
// the unique (tenant_id, source, external_order_id) constraint for the race.
// Losing either way returns the already stored order with ErrDuplicateOrder.
func (r *GormDeliveryOrderRepository) CreateUnique(ctx context.Context, order *delivery.DeliveryOrder) (*delivery.DeliveryOrder, error) {
	var existing *delivery.DeliveryOrder

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var found models.DeliveryOrderModel
		err := tx.Preload("Items").
			Where("tenant_id = ? AND source = ? AND external_order_id = ?",
				order.TenantID, order.Source, order.ExternalOrderID).
			First(&found).Error
		if err == nil {
			existing = found.ToDomain()
			return delivery.ErrDuplicateOrder
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		model := models.DeliveryOrderModelFromDomain(order)
		if err := tx.Create(model).Error; err != nil {
			if isUniqueViolation(err) {
				return delivery.ErrDuplicateOrder
			}
			return err
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, delivery.ErrDuplicateOrder) {
			if existing == nil {
				// Lost the constraint race; fetch the winner outside the
				// rolled back transaction.
				winner, findErr := r.FindByExternalID(ctx, order.TenantID, order.Source, order.ExternalOrderID)
				if findErr != nil {
					return nil, findErr
				}
				existing = winner
			}
			return existing, delivery.ErrDuplicateOrder
		}
		return nil, err
	}
	return order, nil
}

// UpdateStatus applies a narrow status update
func (r *GormDeliveryOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status delivery.OrderStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.DeliveryOrderModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return delivery.ErrOrderNotFound
	}
	return nil
}

// isUniqueViolation recognizes unique constraint failures across the postgres
// driver and the sqlite driver used in tests.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
