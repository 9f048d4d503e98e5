package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appdelivery "github.com/orderbridge/backend/internal/application/delivery"
	"github.com/orderbridge/backend/internal/domain/delivery"
)

// DeliveryOrderHandler exposes ingested orders and drives status sync
type DeliveryOrderHandler struct {
	BaseHandler
	orders     *appdelivery.OrderService
	statusSync *appdelivery.StatusSyncService
}

// NewDeliveryOrderHandler creates a new DeliveryOrderHandler
func NewDeliveryOrderHandler(orders *appdelivery.OrderService, statusSync *appdelivery.StatusSyncService) *DeliveryOrderHandler {
	return &DeliveryOrderHandler{orders: orders, statusSync: statusSync}
}

// Get handles GET /delivery/orders/:id
func (h *DeliveryOrderHandler) Get(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant not resolved")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, NewOrderResponse(order))
}

// UpdateStatus handles PUT /delivery/orders/:id/status.
//
// Statuses on the sync allow-list are pushed to the marketplace after the
// local update; others only move the order locally.
func (h *DeliveryOrderHandler) UpdateStatus(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant not resolved")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	order, err := h.statusSync.UpdateOrderStatus(c.Request.Context(), tenantID, id, delivery.OrderStatus(req.Status))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, NewOrderResponse(order))
}
