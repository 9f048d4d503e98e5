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

// syncRetryDelay schedules the first retry of a failed status push.
const syncRetryDelay = 30 * time.Second

// statusActions is the fixed allow-list mapping internal order statuses to
// the marketplace action they trigger. Statuses outside this map are internal
// only and are never pushed.
var statusActions = map[delivery.OrderStatus]delivery.ActionKind{
	delivery.OrderStatusPending:   delivery.ActionAcceptOrder,
	delivery.OrderStatusPreparing: delivery.ActionMarkPreparing,
	delivery.OrderStatusReady:     delivery.ActionMarkReady,
	delivery.OrderStatusServed:    delivery.ActionMarkPickedUp,
	delivery.OrderStatusCancelled: delivery.ActionCancelOrder,
}

// syncStatusRequest is stored on SYNC_STATUS log entries so the retry
// scheduler can re-dispatch the same transition later.
type syncStatusRequest struct {
	Status delivery.OrderStatus `json:"status"`
}

// StatusSyncService pushes internal order status changes back to the source
// marketplace and records every attempt in the operation log.
type StatusSyncService struct {
	orders      delivery.DeliveryOrderRepository
	configs     delivery.PlatformConfigRepository
	registry    delivery.AdapterRegistry
	tokens      *TokenService
	logs        *LogService
	broadcaster delivery.OrderBroadcaster
	logger      *zap.Logger
}

// NewStatusSyncService creates a new StatusSyncService
func NewStatusSyncService(
	orders delivery.DeliveryOrderRepository,
	configs delivery.PlatformConfigRepository,
	registry delivery.AdapterRegistry,
	tokens *TokenService,
	logs *LogService,
	broadcaster delivery.OrderBroadcaster,
	logger *zap.Logger,
) *StatusSyncService {
	return &StatusSyncService{
		orders:      orders,
		configs:     configs,
		registry:    registry,
		tokens:      tokens,
		logs:        logs,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// UpdateOrderStatus persists a status change on the internal order, notifies
// downstream consumers and pushes the transition to the source marketplace.
// The platform push is best-effort: a failure is logged with a retry and does
// not undo the internal transition.
func (s *StatusSyncService) UpdateOrderStatus(ctx context.Context, tenantID, orderID uuid.UUID, status delivery.OrderStatus) (*delivery.DeliveryOrder, error) {
	if !status.IsValid() {
		return nil, delivery.ErrStatusNotSyncable
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.TenantID != tenantID {
		return nil, delivery.ErrOrderNotFound
	}
	if order.Status.IsFinal() {
		return nil, delivery.ErrOrderFinal
	}

	if err := s.orders.UpdateStatus(ctx, orderID, status); err != nil {
		return nil, err
	}
	order.Status = status
	order.UpdatedAt = time.Now()

	s.broadcaster.EmitStatusChange(ctx, tenantID, order)

	if err := s.SyncStatusToPlatform(ctx, order, status); err != nil &&
		!errors.Is(err, delivery.ErrStatusNotSyncable) {
		s.logger.Warn("status push to platform failed",
			zap.String("order_id", orderID.String()),
			zap.String("status", status.String()),
			zap.Error(err),
		)
	}
	return order, nil
}

// SyncStatusToPlatform pushes one status transition for an already loaded
// order. Non-syncable statuses return ErrStatusNotSyncable without touching
// the platform; a skipped disabled configuration is not an error.
func (s *StatusSyncService) SyncStatusToPlatform(ctx context.Context, order *delivery.DeliveryOrder, status delivery.OrderStatus) error {
	action, ok := statusActions[status]
	if !ok {
		return delivery.ErrStatusNotSyncable
	}

	if !order.Source.IsValid() || order.ExternalOrderID == "" {
		return delivery.ErrOrderNotSyncable
	}

	cfg, err := s.configs.FindByTenantAndPlatform(ctx, order.TenantID, order.Source)
	if err != nil {
		return err
	}
	if !cfg.IsEnabled {
		s.logger.Debug("status push skipped, configuration disabled",
			zap.String("platform", order.Source.String()),
			zap.String("order_id", order.ID.String()),
		)
		return nil
	}

	entry := delivery.NewOperationLog(order.TenantID, order.Source, delivery.DirectionOutbound, delivery.ActionSyncStatus)
	entry.OrderID = &order.ID
	entry.ExternalID = order.ExternalOrderID
	if payload, err := json.Marshal(syncStatusRequest{Status: status}); err == nil {
		entry.RequestBody = string(payload)
	}

	err = s.dispatch(ctx, cfg, order.ExternalOrderID, action)
	if err != nil {
		entry.MarkFailed(err.Error(), syncRetryDelay)
		s.logs.Record(ctx, entry)
		return err
	}

	entry.MarkSucceeded()
	s.logs.Record(ctx, entry)
	return nil
}

// SyncOrderStatus re-resolves the order and pushes the given status. Used by
// the retry scheduler when replaying SYNC_STATUS entries.
func (s *StatusSyncService) SyncOrderStatus(ctx context.Context, orderID uuid.UUID, status delivery.OrderStatus) error {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	return s.retryDispatch(ctx, order, status)
}

// retryDispatch performs the platform call without writing a new log entry;
// the retry scheduler owns the entry being replayed.
func (s *StatusSyncService) retryDispatch(ctx context.Context, order *delivery.DeliveryOrder, status delivery.OrderStatus) error {
	action, ok := statusActions[status]
	if !ok {
		return delivery.ErrStatusNotSyncable
	}
	if !order.Source.IsValid() || order.ExternalOrderID == "" {
		return delivery.ErrOrderNotSyncable
	}

	cfg, err := s.configs.FindByTenantAndPlatform(ctx, order.TenantID, order.Source)
	if err != nil {
		return err
	}
	if !cfg.IsEnabled {
		return delivery.ErrConfigDisabled
	}
	return s.dispatch(ctx, cfg, order.ExternalOrderID, action)
}

func (s *StatusSyncService) dispatch(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID string, action delivery.ActionKind) error {
	adapter, err := s.registry.Adapter(cfg.Platform)
	if err != nil {
		return err
	}

	fresh, err := s.tokens.EnsureValidToken(ctx, cfg.ID)
	if err != nil {
		return err
	}

	switch action {
	case delivery.ActionAcceptOrder:
		return adapter.AcceptOrder(ctx, fresh, externalOrderID)
	case delivery.ActionMarkPreparing:
		return adapter.MarkPreparing(ctx, fresh, externalOrderID)
	case delivery.ActionMarkReady:
		return adapter.MarkReady(ctx, fresh, externalOrderID)
	case delivery.ActionMarkPickedUp:
		return adapter.MarkPickedUp(ctx, fresh, externalOrderID)
	case delivery.ActionCancelOrder:
		return adapter.CancelOrder(ctx, fresh, externalOrderID, "")
	default:
		return delivery.ErrStatusNotSyncable
	}
}
