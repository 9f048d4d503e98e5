package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appdelivery "github.com/orderbridge/backend/internal/application/delivery"
	"github.com/orderbridge/backend/internal/domain/delivery"
)

// Webhook response statuses. Marketplaces retry aggressively on non-200
// responses, so every outcome is answered with 200 and one of these markers.
const (
	WebhookStatusOK      = "ok"
	WebhookStatusIgnored = "ignored"
	WebhookStatusError   = "error"
)

// WebhookHandler receives marketplace order webhooks
type WebhookHandler struct {
	BaseHandler
	authenticator *appdelivery.WebhookAuthenticator
	configs       delivery.PlatformConfigRepository
	registry      delivery.AdapterRegistry
	orders        *appdelivery.OrderService
	logger        *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(
	authenticator *appdelivery.WebhookAuthenticator,
	configs delivery.PlatformConfigRepository,
	registry delivery.AdapterRegistry,
	orders *appdelivery.OrderService,
	logger *zap.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		authenticator: authenticator,
		configs:       configs,
		registry:      registry,
		orders:        orders,
		logger:        logger,
	}
}

type webhookURI struct {
	Platform     string `uri:"platform" binding:"required"`
	RestaurantID string `uri:"restaurantId" binding:"required"`
}

// Receive handles POST /webhooks/delivery/:platform/:restaurantId.
//
// The response is always 200: marketplaces treat anything else as a delivery
// failure and retry, which would duplicate orders we already rejected for a
// permanent reason. The body carries ok, ignored or error instead.
func (h *WebhookHandler) Receive(c *gin.Context) {
	var uri webhookURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.respond(c, WebhookStatusError, "invalid webhook path")
		return
	}

	platform := delivery.PlatformType(uri.Platform)
	if !platform.IsValid() {
		h.respond(c, WebhookStatusIgnored, "unknown platform")
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.respond(c, WebhookStatusError, "unreadable body")
		return
	}

	if err := h.authenticator.Verify(platform, c.Request.Header, body); err != nil {
		h.logger.Warn("Webhook signature rejected",
			zap.String("platform", string(platform)),
			zap.String("remote_restaurant_id", uri.RestaurantID),
			zap.Error(err))
		h.respond(c, WebhookStatusError, "signature verification failed")
		return
	}

	ctx := c.Request.Context()

	cfg, err := h.configs.FindByPlatformAndRemoteID(ctx, platform, uri.RestaurantID)
	if err != nil {
		if errors.Is(err, delivery.ErrConfigNotFound) {
			// Unknown or disabled restaurant: acknowledge without ingesting
			h.respond(c, WebhookStatusIgnored, "no enabled configuration")
			return
		}
		h.logger.Error("Webhook config lookup failed",
			zap.String("platform", string(platform)),
			zap.Error(err))
		h.respond(c, WebhookStatusError, "configuration lookup failed")
		return
	}

	adapter, err := h.registry.Adapter(platform)
	if err != nil {
		h.respond(c, WebhookStatusIgnored, "platform not supported")
		return
	}

	incoming, err := adapter.ParseWebhookOrder(ctx, cfg, body)
	if err != nil {
		h.logger.Warn("Webhook payload rejected",
			zap.String("platform", string(platform)),
			zap.String("remote_restaurant_id", uri.RestaurantID),
			zap.Error(err))
		h.respond(c, WebhookStatusError, "unparseable payload")
		return
	}
	if incoming == nil {
		// Status-only or otherwise uninteresting event
		h.respond(c, WebhookStatusIgnored, "no order in payload")
		return
	}

	order, err := h.orders.ProcessIncomingOrder(ctx, cfg.TenantID, incoming)
	if err != nil {
		if errors.Is(err, delivery.ErrDuplicateOrder) {
			// Redelivery of an order we already hold
			c.JSON(http.StatusOK, gin.H{
				"status":   WebhookStatusOK,
				"order_id": order.ID,
			})
			return
		}
		h.logger.Error("Webhook order ingestion failed",
			zap.String("platform", string(platform)),
			zap.String("external_order_id", incoming.ExternalOrderID),
			zap.Error(err))
		h.respond(c, WebhookStatusError, "ingestion failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   WebhookStatusOK,
		"order_id": order.ID,
	})
}

func (h *WebhookHandler) respond(c *gin.Context, status, reason string) {
	c.JSON(http.StatusOK, gin.H{
		"status": status,
		"reason": reason,
	})
}
