package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appdelivery "github.com/orderbridge/backend/internal/application/delivery"
	"github.com/orderbridge/backend/internal/domain/delivery"
)

// OperationLogHandler exposes the integration operation log to operators
type OperationLogHandler struct {
	BaseHandler
	logs *appdelivery.LogService
}

// NewOperationLogHandler creates a new OperationLogHandler
func NewOperationLogHandler(logs *appdelivery.LogService) *OperationLogHandler {
	return &OperationLogHandler{logs: logs}
}

// List handles GET /delivery/logs
func (h *OperationLogHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant not resolved")
		return
	}

	var req ListOperationLogsRequest
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

	filter := delivery.OperationLogFilter{
		Success:  req.Success,
		From:     req.From,
		To:       req.To,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if req.Platform != "" {
		p := delivery.PlatformType(req.Platform)
		filter.Platform = &p
	}
	if req.Direction != "" {
		d := delivery.Direction(req.Direction)
		filter.Direction = &d
	}
	if req.Action != "" {
		a := delivery.ActionKind(req.Action)
		if !a.IsValid() {
			h.BadRequest(c, "Unknown action kind")
			return
		}
		filter.Action = &a
	}

	entries, total, err := h.logs.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]OperationLogResponse, 0, len(entries))
	for i := range entries {
		out = append(out, NewOperationLogResponse(&entries[i]))
	}
	h.SuccessWithMeta(c, out, total, req.Page, req.PageSize)
}

// Get handles GET /delivery/logs/:id
func (h *OperationLogHandler) Get(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant not resolved")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid log entry ID")
		return
	}

	entry, err := h.logs.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, NewOperationLogResponse(entry))
}
