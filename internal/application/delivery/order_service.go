package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orderbridge/backend/internal/domain/delivery"
)

// acceptRetryDelay schedules the first retry of a failed auto-accept.
const acceptRetryDelay = 30 * time.Second

// OrderService is the ingestion pipeline for incoming marketplace orders.
// It guarantees at-most-one internal order per (tenant, source, external ID)
// even when the same order arrives concurrently via webhook and poll.
type OrderService struct {
	orders      delivery.DeliveryOrderRepository
	mappings    delivery.MenuItemMappingRepository
	configs     delivery.PlatformConfigRepository
	registry    delivery.AdapterRegistry
	tokens      *TokenService
	logs        *LogService
	broadcaster delivery.OrderBroadcaster
	logger      *zap.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(
	orders delivery.DeliveryOrderRepository,
	mappings delivery.MenuItemMappingRepository,
	configs delivery.PlatformConfigRepository,
	registry delivery.AdapterRegistry,
	tokens *TokenService,
	logs *LogService,
	broadcaster delivery.OrderBroadcaster,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		orders:      orders,
		mappings:    mappings,
		configs:     configs,
		registry:    registry,
		tokens:      tokens,
		logs:        logs,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// ProcessIncomingOrder ingests one normalized order. Duplicate delivery
// returns the previously created order together with ErrDuplicateOrder and
// performs no side effects. On creation the order is auto-accepted on the
// marketplace when the configuration asks for it, broadcast to downstream
// consumers and recorded in the operation log; all three are best-effort and
// never roll the order back.
func (s *OrderService) ProcessIncomingOrder(ctx context.Context, tenantID uuid.UUID, in *delivery.NormalizedOrder) (*delivery.DeliveryOrder, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	// Fast duplicate path before building anything.
	if existing, err := s.orders.FindByExternalID(ctx, tenantID, in.Platform, in.ExternalOrderID); err == nil {
		s.logger.Debug("duplicate order skipped",
			zap.String("platform", in.Platform.String()),
			zap.String("external_order_id", in.ExternalOrderID),
		)
		return existing, delivery.ErrDuplicateOrder
	} else if !errors.Is(err, delivery.ErrOrderNotFound) {
		return nil, err
	}

	mappingByExternalID, err := s.activeMappings(ctx, tenantID, in.Platform)
	if err != nil {
		return nil, err
	}

	cfg, err := s.configs.FindByTenantAndPlatform(ctx, tenantID, in.Platform)
	if err != nil && !errors.Is(err, delivery.ErrConfigNotFound) {
		return nil, err
	}

	// Orders are accepted automatically unless the configuration opts out.
	autoAccept := true
	if cfg != nil {
		autoAccept = cfg.AutoAccept
	}

	order := s.buildOrder(tenantID, in, mappingByExternalID, autoAccept)

	created, err := s.orders.CreateUnique(ctx, order)
	if err != nil {
		if errors.Is(err, delivery.ErrDuplicateOrder) {
			s.logger.Debug("duplicate order lost insert race",
				zap.String("platform", in.Platform.String()),
				zap.String("external_order_id", in.ExternalOrderID),
			)
			return created, err
		}
		return nil, err
	}

	if autoAccept && cfg != nil {
		s.acceptOnPlatform(ctx, cfg, created)
	}

	s.broadcaster.EmitNewOrder(ctx, tenantID, created)

	entry := delivery.NewOperationLog(tenantID, in.Platform, delivery.DirectionInbound, delivery.ActionReceiveOrder)
	entry.OrderID = &created.ID
	entry.ExternalID = in.ExternalOrderID
	entry.MarkSucceeded()
	s.logs.Record(ctx, entry)

	s.logger.Info("order ingested",
		zap.String("platform", in.Platform.String()),
		zap.String("order_number", created.OrderNumber),
		zap.String("external_order_id", in.ExternalOrderID),
	)
	return created, nil
}

// GetOrder returns one order scoped to the tenant.
func (s *OrderService) GetOrder(ctx context.Context, tenantID, orderID uuid.UUID) (*delivery.DeliveryOrder, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.TenantID != tenantID {
		return nil, delivery.ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) activeMappings(ctx context.Context, tenantID uuid.UUID, platform delivery.PlatformType) (map[string]delivery.MenuItemMapping, error) {
	mappings, err := s.mappings.FindActiveByPlatform(ctx, tenantID, platform)
	if err != nil {
		return nil, err
	}
	byExternalID := make(map[string]delivery.MenuItemMapping, len(mappings))
	for _, m := range mappings {
		byExternalID[m.ExternalItemID] = m
	}
	return byExternalID, nil
}

func (s *OrderService) buildOrder(tenantID uuid.UUID, in *delivery.NormalizedOrder, mappingByExternalID map[string]delivery.MenuItemMapping, autoAccept bool) *delivery.DeliveryOrder {
	orderID := uuid.New()

	items := make([]delivery.DeliveryOrderItem, 0, len(in.Items))
	var unmapped []delivery.NormalizedItem
	for _, item := range in.Items {
		var productID *uuid.UUID
		if mapping, ok := mappingByExternalID[item.ExternalItemID]; ok {
			id := mapping.ProductID
			productID = &id
		} else {
			unmapped = append(unmapped, item)
		}

		items = append(items, delivery.DeliveryOrderItem{
			ID:             uuid.New(),
			OrderID:        orderID,
			ProductID:      productID,
			ExternalItemID: item.ExternalItemID,
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice,
			ModifierTotal:  item.ModifierTotal(),
			Subtotal:       item.Subtotal(),
		})
	}

	status := delivery.OrderStatusPending
	if !autoAccept {
		status = delivery.OrderStatusPendingApproval
	}

	now := time.Now()
	return &delivery.DeliveryOrder{
		ID:              orderID,
		TenantID:        tenantID,
		OrderNumber:     generateOrderNumber(in.Platform, now),
		Source:          in.Platform,
		ExternalOrderID: in.ExternalOrderID,
		Status:          status,
		CustomerName:    in.CustomerName,
		CustomerPhone:   in.CustomerPhone,
		CustomerAddress: in.CustomerAddress,
		Note:            buildOrderNote(in, unmapped),
		Items:           items,
		TotalAmount:     in.TotalAmount,
		DiscountAmount:  in.DiscountAmount,
		FinalAmount:     in.FinalAmount,
		RawPayload:      in.RawPayload,
		PlacedAt:        in.PlacedAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// acceptOnPlatform confirms the freshly ingested order on the marketplace.
// A failure is recorded with a near-term retry so the retry scheduler can
// pick it up; the internal order is already committed and stays PENDING.
func (s *OrderService) acceptOnPlatform(ctx context.Context, cfg *delivery.PlatformConfig, order *delivery.DeliveryOrder) {
	entry := delivery.NewOperationLog(order.TenantID, order.Source, delivery.DirectionOutbound, delivery.ActionAcceptOrder)
	entry.OrderID = &order.ID
	entry.ExternalID = order.ExternalOrderID

	err := s.callAccept(ctx, cfg, order)
	if err != nil {
		s.logger.Error("auto-accept failed",
			zap.String("platform", order.Source.String()),
			zap.String("external_order_id", order.ExternalOrderID),
			zap.Error(err),
		)
		entry.MarkFailed(err.Error(), acceptRetryDelay)
	} else {
		entry.MarkSucceeded()
	}
	s.logs.Record(ctx, entry)
}

func (s *OrderService) callAccept(ctx context.Context, cfg *delivery.PlatformConfig, order *delivery.DeliveryOrder) error {
	adapter, err := s.registry.Adapter(order.Source)
	if err != nil {
		return err
	}

	fresh, err := s.tokens.EnsureValidToken(ctx, cfg.ID)
	if err != nil {
		return err
	}

	return adapter.AcceptOrder(ctx, fresh, order.ExternalOrderID)
}

// generateOrderNumber builds a human-readable unique order number,
// e.g. GT-1724680000123-a1b2c3.
func generateOrderNumber(platform delivery.PlatformType, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("%s-%d-%s", platform.OrderNumberPrefix(), now.UnixMilli(), suffix)
}

// buildOrderNote combines the customer note, the delivery address and an
// annotation naming each unmapped item so staff can react.
func buildOrderNote(in *delivery.NormalizedOrder, unmapped []delivery.NormalizedItem) string {
	var parts []string
	if in.Note != "" {
		parts = append(parts, in.Note)
	}
	if in.CustomerAddress != "" {
		parts = append(parts, "Address: "+in.CustomerAddress)
	}
	if len(unmapped) > 0 {
		lines := make([]string, 0, len(unmapped)+1)
		lines = append(lines, "[UNMAPPED - needs menu mapping]")
		for _, item := range unmapped {
			lines = append(lines, fmt.Sprintf("  - %s x%d @ %s", item.Name, item.Quantity, item.UnitPrice.StringFixed(2)))
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}
	return strings.Join(parts, "\n")
}
