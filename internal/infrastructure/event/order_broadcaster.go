package event

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orderbridge/backend/internal/domain/delivery"
)

// OrderEventKind distinguishes the order events the broadcaster emits.
type OrderEventKind string

const (
	// OrderEventCreated fires once per ingested order.
	OrderEventCreated OrderEventKind = "order.created"
	// OrderEventStatusChanged fires on every internal status transition.
	OrderEventStatusChanged OrderEventKind = "order.status_changed"
)

// OrderEvent carries an order notification to a listener.
type OrderEvent struct {
	Kind     OrderEventKind
	TenantID uuid.UUID
	Order    *delivery.DeliveryOrder
}

// OrderListener receives order events. Listener errors are logged and never
// propagated back to the emitting pipeline.
type OrderListener interface {
	OnOrderEvent(ctx context.Context, event OrderEvent) error
}

// OrderListenerFunc adapts a function to the OrderListener interface
type OrderListenerFunc func(ctx context.Context, event OrderEvent) error

// OnOrderEvent calls the wrapped function
func (f OrderListenerFunc) OnOrderEvent(ctx context.Context, event OrderEvent) error {
	return f(ctx, event)
}

// InMemoryOrderBroadcaster implements OrderBroadcaster with in-memory pub/sub.
// Dispatch is synchronous: listeners are expected to hand off expensive work
// (websocket pushes, printer jobs) to their own queues.
type InMemoryOrderBroadcaster struct {
	mu        sync.RWMutex
	listeners []OrderListener
	logger    *zap.Logger
}

// NewInMemoryOrderBroadcaster creates a new in-memory order broadcaster
func NewInMemoryOrderBroadcaster(logger *zap.Logger) *InMemoryOrderBroadcaster {
	return &InMemoryOrderBroadcaster{logger: logger}
}

// Subscribe registers a listener for all order events
func (b *InMemoryOrderBroadcaster) Subscribe(listener OrderListener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, listener)
	b.logger.Debug("order listener subscribed")
}

// EmitNewOrder notifies listeners about a newly ingested order
func (b *InMemoryOrderBroadcaster) EmitNewOrder(ctx context.Context, tenantID uuid.UUID, order *delivery.DeliveryOrder) {
	b.publish(ctx, OrderEvent{
		Kind:     OrderEventCreated,
		TenantID: tenantID,
		Order:    order,
	})
}

// EmitStatusChange notifies listeners about an order status transition
func (b *InMemoryOrderBroadcaster) EmitStatusChange(ctx context.Context, tenantID uuid.UUID, order *delivery.DeliveryOrder) {
	b.publish(ctx, OrderEvent{
		Kind:     OrderEventStatusChanged,
		TenantID: tenantID,
		Order:    order,
	})
}

func (b *InMemoryOrderBroadcaster) publish(ctx context.Context, event OrderEvent) {
	b.mu.RLock()
	listeners := make([]OrderListener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.RUnlock()

	for _, listener := range listeners {
		if err := b.dispatchToListener(ctx, listener, event); err != nil {
			// Log error but continue with other listeners
			b.logger.Error("listener failed to process order event",
				zap.String("event_kind", string(event.Kind)),
				zap.String("order_id", event.Order.ID.String()),
				zap.Error(err),
			)
		}
	}
}

// dispatchToListener safely dispatches an event to a listener
func (b *InMemoryOrderBroadcaster) dispatchToListener(ctx context.Context, listener OrderListener, event OrderEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("order listener panicked",
				zap.String("event_kind", string(event.Kind)),
				zap.Any("panic", r),
			)
		}
	}()

	return listener.OnOrderEvent(ctx, event)
}

// Ensure InMemoryOrderBroadcaster implements OrderBroadcaster
var _ delivery.OrderBroadcaster = (*InMemoryOrderBroadcaster)(nil)
