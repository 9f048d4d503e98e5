package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appdelivery "github.com/orderbridge/backend/internal/application/delivery"
	"github.com/orderbridge/backend/internal/domain/delivery"
)

// MenuMappingHandler manages menu item mappings and menu push actions
type MenuMappingHandler struct {
	BaseHandler
	menu *appdelivery.MenuService
}

// NewMenuMappingHandler creates a new MenuMappingHandler
func NewMenuMappingHandler(menu *appdelivery.MenuService) *MenuMappingHandler {
	return &MenuMappingHandler{menu: menu}
}

// List handles GET /delivery/mappings
func (h *MenuMappingHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant not resolved")
		return
	}

	var req ListMappingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	filter := delivery.MenuItemMappingFilter{
		IsActive: req.IsActive,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if req.Platform != "" {
		p := delivery.PlatformType(req.Platform)
		filter.Platform = &p
	}

	page, err := h.menu.ListMappings(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]MappingResponse, 0, len(page.Mappings))
	for i := range page.Mappings {
		out = append(out, NewMappingResponse(&page.Mappings[i]))
	}
	h.SuccessWithMeta(c, out, page.Total, req.Page, req.PageSize)
}

// Get handles GET /delivery/mappings/:id
func (h *MenuMappingHandler) Get(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant not resolved")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid mapping ID")
		return
	}

	mapping, err := h.menu.GetMapping(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, NewMappingResponse(mapping))
}

// Create handles POST /delivery/mappings
func (h *MenuMappingHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant not resolved")
		return
	}

	var req CreateMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	mapping, err := h.menu.CreateMapping(c.Request.Context(), tenantID,
		delivery.PlatformType(req.Platform), req.ExternalItemID, req.ExternalName, req.ProductID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, NewMappingResponse(mapping))
}

// Update handles PUT /delivery/mappings/:id
func (h *MenuMappingHandler) Update(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant not resolved")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid mapping ID")
		return
	}

	var req UpdateMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	mapping, err := h.menu.UpdateMapping(c.Request.Context(), tenantID, id, appdelivery.MappingUpdate{
		ProductID:    req.ProductID,
		ExternalName: req.ExternalName,
		IsActive:     req.IsActive,
		Metadata:     req.Metadata,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, NewMappingResponse(mapping))
}

// Delete handles DELETE /delivery/mappings/:id
func (h *MenuMappingHandler) Delete(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant not resolved")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid mapping ID")
		return
	}

	if err := h.menu.DeleteMapping(c.Request.Context(), tenantID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// UpdateAvailability handles POST /delivery/mappings/:id/availability
func (h *MenuMappingHandler) UpdateAvailability(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant not resolved")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid mapping ID")
		return
	}

	var req UpdateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	if err := h.menu.UpdateItemAvailability(c.Request.Context(), tenantID, id, *req.Available); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"available": *req.Available})
}

// SyncMenu handles POST /delivery/menu/:platform/sync
func (h *MenuMappingHandler) SyncMenu(c *gin.Context) {
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

	var req SyncMenuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	items := make([]delivery.MenuPushItem, 0, len(req.Items))
	for _, in := range req.Items {
		if _, err := decimal.NewFromString(in.Price); err != nil {
			h.BadRequest(c, "Invalid price for item "+in.ExternalItemID)
			return
		}
		items = append(items, delivery.MenuPushItem{
			ExternalItemID: in.ExternalItemID,
			Name:           in.Name,
			Price:          in.Price,
			Available:      in.Available,
		})
	}

	if err := h.menu.SyncMenu(c.Request.Context(), tenantID, delivery.PlatformType(uri.Platform), items); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"synced_items": len(items)})
}
