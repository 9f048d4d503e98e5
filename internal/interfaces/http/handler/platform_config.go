package handler

import (
	"github.com/gin-gonic/gin"

	appdelivery "github.com/orderbridge/backend/internal/application/delivery"
	"github.com/orderbridge/backend/internal/domain/delivery"
)

// PlatformConfigHandler manages marketplace integration configurations
type PlatformConfigHandler struct {
	BaseHandler
	configs *appdelivery.ConfigService
}

// NewPlatformConfigHandler creates a new PlatformConfigHandler
func NewPlatformConfigHandler(configs *appdelivery.ConfigService) *PlatformConfigHandler {
	return &PlatformConfigHandler{configs: configs}
}

// List handles GET /delivery/configs
func (h *PlatformConfigHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant not resolved")
		return
	}

	configs, err := h.configs.ListConfigs(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]PlatformConfigResponse, 0, len(configs))
	for i := range configs {
		out = append(out, NewPlatformConfigResponse(&configs[i]))
	}
	h.Success(c, out)
}

// Get handles GET /delivery/configs/:platform
func (h *PlatformConfigHandler) Get(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant not resolved")
		return
	}

	var uri PlatformURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid platform")
		return
	}

	cfg, err := h.configs.GetConfig(c.Request.Context(), tenantID, delivery.PlatformType(uri.Platform))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, NewPlatformConfigResponse(cfg))
}

// Create handles POST /delivery/configs
func (h *PlatformConfigHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant not resolved")
		return
	}

	var req CreatePlatformConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	cfg, err := h.configs.CreateConfig(c.Request.Context(), tenantID,
		delivery.PlatformType(req.Platform), req.Credentials, req.RemoteRestaurantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, NewPlatformConfigResponse(cfg))
}

// Update handles PUT /delivery/configs/:platform
func (h *PlatformConfigHandler) Update(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant not resolved")
		return
	}

	var uri PlatformURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid platform")
		return
	}

	var req UpdatePlatformConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	cfg, err := h.configs.UpdateConfig(c.Request.Context(), tenantID,
		delivery.PlatformType(uri.Platform), appdelivery.ConfigUpdate{
			Credentials:        req.Credentials,
			RemoteRestaurantID: req.RemoteRestaurantID,
			AutoAccept:         req.AutoAccept,
			IsEnabled:          req.IsEnabled,
		})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, NewPlatformConfigResponse(cfg))
}

// Delete handles DELETE /delivery/configs/:platform
func (h *PlatformConfigHandler) Delete(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant not resolved")
		return
	}

	var uri PlatformURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid platform")
		return
	}

	if err := h.configs.DeleteConfig(c.Request.Context(), tenantID, delivery.PlatformType(uri.Platform)); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// TestConnection handles POST /delivery/configs/:platform/test
func (h *PlatformConfigHandler) TestConnection(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant not resolved")
		return
	}

	var uri PlatformURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid platform")
		return
	}

	if err := h.configs.TestConnection(c.Request.Context(), tenantID, delivery.PlatformType(uri.Platform)); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"connected": true})
}

// ResetErrors handles POST /delivery/configs/:platform/reset-errors
func (h *PlatformConfigHandler) ResetErrors(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant not resolved")
		return
	}

	var uri PlatformURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid platform")
		return
	}

	if err := h.configs.ResetErrors(c.Request.Context(), tenantID, delivery.PlatformType(uri.Platform)); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"reset": true})
}

// ToggleRestaurant handles POST /delivery/configs/:platform/restaurant
func (h *PlatformConfigHandler) ToggleRestaurant(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant not resolved")
		return
	}

	var uri PlatformURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid platform")
		return
	}

	var req ToggleRestaurantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	if err := h.configs.ToggleRestaurant(c.Request.Context(), tenantID,
		delivery.PlatformType(uri.Platform), *req.Open); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"open": *req.Open})
}
