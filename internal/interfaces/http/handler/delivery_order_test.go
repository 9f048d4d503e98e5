package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderbridge/backend/internal/domain/delivery"
	"github.com/orderbridge/backend/internal/interfaces/http/dto"
	"github.com/orderbridge/backend/internal/interfaces/http/middleware"
)

func orderRouter(f *handlerFixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewDeliveryOrderHandler(f.orders, f.statusSync)

	r := gin.New()
	r.GET("/api/v1/delivery/orders/:id", h.Get)
	r.PUT("/api/v1/delivery/orders/:id/status", h.UpdateStatus)
	return r
}

func ingestOrder(t *testing.T, f *handlerFixture, tenantID uuid.UUID, externalID string) *delivery.DeliveryOrder {
	t.Helper()
	order, err := f.orders.ProcessIncomingOrder(context.Background(), tenantID, webhookOrder(f.adapter.platform, externalID))
	require.NoError(t, err)
	return order
}

func TestDeliveryOrderHandler_Get(t *testing.T) {
	f := newHandlerFixture(t, delivery.PlatformGetir)
	router := orderRouter(f)

	cfg := f.savedConfig(t, delivery.PlatformGetir, "rest-1")
	order := ingestOrder(t, f, cfg.TenantID, "getir-1")

	w := doJSON(router, http.MethodGet, "/api/v1/delivery/orders/"+order.ID.String(), cfg.TenantID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"external_order_id":"getir-1"`)
	assert.Contains(t, w.Body.String(), `"final_amount":"170"`)
}

func TestOrderResponse_PlacedAtOptional(t *testing.T) {
	f := newHandlerFixture(t, delivery.PlatformGetir)

	cfg := f.savedConfig(t, delivery.PlatformGetir, "rest-1")
	order := ingestOrder(t, f, cfg.TenantID, "getir-1")

	// Platforms that do not report a creation time leave the field off the wire
	order.PlacedAt = nil
	body, err := json.Marshal(NewOrderResponse(order))
	require.NoError(t, err)
	assert.NotContains(t, string(body), `"placed_at"`)

	placed := time.Date(2026, 8, 30, 12, 30, 0, 0, time.UTC)
	order.PlacedAt = &placed
	body, err = json.Marshal(NewOrderResponse(order))
	require.NoError(t, err)
	assert.Contains(t, string(body), `"placed_at":"2026-08-30T12:30:00Z"`)
}

func TestDeliveryOrderHandler_GetUnknownReturns404(t *testing.T) {
	f := newHandlerFixture(t, delivery.PlatformGetir)
	router := orderRouter(f)

	w := doJSON(router, http.MethodGet, "/api/v1/delivery/orders/"+uuid.NewString(), uuid.New(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeliveryOrderHandler_GetWrongTenantReturns404(t *testing.T) {
	f := newHandlerFixture(t, delivery.PlatformGetir)
	router := orderRouter(f)

	cfg := f.savedConfig(t, delivery.PlatformGetir, "rest-1")
	order := ingestOrder(t, f, cfg.TenantID, "getir-1")

	w := doJSON(router, http.MethodGet, "/api/v1/delivery/orders/"+order.ID.String(), uuid.New(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeliveryOrderHandler_UpdateStatus(t *testing.T) {
	f := newHandlerFixture(t, delivery.PlatformGetir)
	router := orderRouter(f)

	cfg := f.savedConfig(t, delivery.PlatformGetir, "rest-1")
	order := ingestOrder(t, f, cfg.TenantID, "getir-1")

	w := doJSON(router, http.MethodPut, "/api/v1/delivery/orders/"+order.ID.String()+"/status", cfg.TenantID,
		UpdateOrderStatusRequest{Status: "PREPARING"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"status":"PREPARING"`)

	stored, err := f.orderRepo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, delivery.OrderStatusPreparing, stored.Status)
}

func TestDeliveryOrderHandler_UpdateStatusRejectsBadTransition(t *testing.T) {
	f := newHandlerFixture(t, delivery.PlatformGetir)
	router := orderRouter(f)

	cfg := f.savedConfig(t, delivery.PlatformGetir, "rest-1")
	order := ingestOrder(t, f, cfg.TenantID, "getir-1")

	// Cancel first, then attempt to move a final order forward.
	w := doJSON(router, http.MethodPut, "/api/v1/delivery/orders/"+order.ID.String()+"/status", cfg.TenantID,
		UpdateOrderStatusRequest{Status: "CANCELLED"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(router, http.MethodPut, "/api/v1/delivery/orders/"+order.ID.String()+"/status", cfg.TenantID,
		UpdateOrderStatusRequest{Status: "PREPARING"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestDeliveryOrderHandler_UpdateStatusUnknownValueRejected(t *testing.T) {
	f := newHandlerFixture(t, delivery.PlatformGetir)
	router := orderRouter(f)

	cfg := f.savedConfig(t, delivery.PlatformGetir, "rest-1")
	order := ingestOrder(t, f, cfg.TenantID, "getir-1")

	w := doJSON(router, http.MethodPut, "/api/v1/delivery/orders/"+order.ID.String()+"/status", cfg.TenantID,
		UpdateOrderStatusRequest{Status: "TELEPORTED"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeliveryOrderHandler_UpdateStatusValidationDetails(t *testing.T) {
	middleware.SetupValidator()

	f := newHandlerFixture(t, delivery.PlatformGetir)
	router := orderRouter(f)

	cfg := f.savedConfig(t, delivery.PlatformGetir, "rest-1")
	order := ingestOrder(t, f, cfg.TenantID, "getir-1")

	w := doJSON(router, http.MethodPut, "/api/v1/delivery/orders/"+order.ID.String()+"/status", cfg.TenantID,
		UpdateOrderStatusRequest{Status: "TELEPORTED"})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "status", resp.Error.Details[0].Field)
	assert.Contains(t, resp.Error.Details[0].Message, "Must be one of")
}
