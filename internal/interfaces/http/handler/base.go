package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/orderbridge/backend/internal/domain/delivery"
	"github.com/orderbridge/backend/internal/interfaces/http/dto"
	"github.com/orderbridge/backend/internal/interfaces/http/middleware"
)

// RequestIDKey is the context key for request ID
const RequestIDKey = "X-Request-ID"

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	if id := c.GetHeader(RequestIDKey); id != "" {
		return id
	}
	return ""
}

// getTenantID extracts tenant ID from JWT claims or returns error
func getTenantID(c *gin.Context) (uuid.UUID, error) {
	tenantIDStr := middleware.GetJWTTenantID(c)
	if tenantIDStr == "" {
		// Fallback to header for development
		tenantIDStr = c.GetHeader("X-Tenant-ID")
	}
	if tenantIDStr == "" {
		return uuid.Nil, errors.New("tenant ID not found in context")
	}
	return uuid.Parse(tenantIDStr)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	requestID := getRequestID(c)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, requestID))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// Conflict sends a 409 conflict response
func (h *BaseHandler) Conflict(c *gin.Context, message string) {
	h.Error(c, http.StatusConflict, dto.ErrCodeConflict, message)
}

// UnprocessableEntity sends a 422 unprocessable entity response
func (h *BaseHandler) UnprocessableEntity(c *gin.Context, code, message string) {
	h.Error(c, http.StatusUnprocessableEntity, code, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// BindingError reports a request binding failure. Validator errors are
// expanded into per-field details through the shared formatter; malformed
// JSON and type mismatches fall back to a plain bad-request message.
func (h *BaseHandler) BindingError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		middleware.HandleValidationError(c, err)
		return
	}
	h.BadRequest(c, "Invalid request body: "+err.Error())
}

// ValidationError sends a 400 validation error response with details
func (h *BaseHandler) ValidationError(c *gin.Context, details []dto.ValidationDetail) {
	requestID := getRequestID(c)
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
		"Request validation failed",
		requestID,
		details,
	))
}

// sentinelStatus maps delivery domain sentinels to an error code and HTTP status.
var sentinelStatus = []struct {
	err    error
	code   string
	status int
}{
	{delivery.ErrConfigNotFound, dto.ErrCodeNotFound, http.StatusNotFound},
	{delivery.ErrOrderNotFound, dto.ErrCodeNotFound, http.StatusNotFound},
	{delivery.ErrMappingNotFound, dto.ErrCodeNotFound, http.StatusNotFound},
	{delivery.ErrLogEntryNotFound, dto.ErrCodeNotFound, http.StatusNotFound},

	{delivery.ErrConfigAlreadyExists, dto.ErrCodeAlreadyExists, http.StatusConflict},
	{delivery.ErrMappingAlreadyExists, dto.ErrCodeAlreadyExists, http.StatusConflict},
	{delivery.ErrDuplicateOrder, dto.ErrCodeAlreadyExists, http.StatusConflict},

	{delivery.ErrPlatformNotSupported, dto.ErrCodeBadRequest, http.StatusBadRequest},
	{delivery.ErrInvalidPlatform, dto.ErrCodeBadRequest, http.StatusBadRequest},
	{delivery.ErrInvalidCredentials, dto.ErrCodeInvalidInput, http.StatusBadRequest},
	{delivery.ErrInvalidTenantID, dto.ErrCodeBadRequest, http.StatusBadRequest},
	{delivery.ErrEmptyOrder, dto.ErrCodeInvalidInput, http.StatusBadRequest},

	{delivery.ErrConfigDisabled, dto.ErrCodeInvalidState, http.StatusUnprocessableEntity},
	{delivery.ErrCapabilityNotSupported, dto.ErrCodeInvalidState, http.StatusUnprocessableEntity},
	{delivery.ErrStatusNotSyncable, dto.ErrCodeInvalidState, http.StatusUnprocessableEntity},
	{delivery.ErrOrderNotSyncable, dto.ErrCodeInvalidState, http.StatusUnprocessableEntity},
	{delivery.ErrOrderFinal, dto.ErrCodeInvalidState, http.StatusUnprocessableEntity},
	{delivery.ErrLogEntryTerminal, dto.ErrCodeInvalidState, http.StatusUnprocessableEntity},

	{delivery.ErrAuthenticationFailed, dto.ErrCodeUpstream, http.StatusBadGateway},
	{delivery.ErrTokenRefreshFailed, dto.ErrCodeUpstream, http.StatusBadGateway},
	{delivery.ErrPlatformUnavailable, dto.ErrCodeUpstream, http.StatusBadGateway},
	{delivery.ErrPlatformRequestFailed, dto.ErrCodeUpstream, http.StatusBadGateway},
	{delivery.ErrInvalidResponse, dto.ErrCodeUpstream, http.StatusBadGateway},
}

// HandleError converts domain errors to HTTP responses. Unknown errors are
// reported as internal without leaking their text.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	requestID := getRequestID(c)

	for _, m := range sentinelStatus {
		if errors.Is(err, m.err) {
			c.JSON(m.status, dto.NewErrorResponseWithRequestID(m.code, m.err.Error(), requestID))
			return
		}
	}

	c.JSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeInternal,
		"An unexpected error occurred",
		requestID,
	))
}
