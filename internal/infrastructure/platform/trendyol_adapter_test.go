package platform

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orderbridge/backend/internal/domain/delivery"
)

func trendyolIntegratorConfig() *delivery.PlatformConfig {
	return &delivery.PlatformConfig{
		Platform: delivery.PlatformTrendyol,
		Credentials: json.RawMessage(
			`{"apiVersion":"v2","integratorId":"int-1","integratorSecret":"int-secret"}`),
		AccessToken:        "ty-token",
		RemoteRestaurantID: "rest-42",
	}
}

func trendyolBasicAuthConfig() *delivery.PlatformConfig {
	return &delivery.PlatformConfig{
		Platform:           delivery.PlatformTrendyol,
		Credentials:        json.RawMessage(`{"username":"user","password":"pass"}`),
		AccessToken:        base64.StdEncoding.EncodeToString([]byte("user:pass")),
		RemoteRestaurantID: "rest-42",
	}
}

func newTrendyolTestAdapter(t *testing.T, handler http.Handler) *TrendyolAdapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	adapter := NewTrendyolAdapter(testClient(), zap.NewNop())
	adapter.baseURL = server.URL
	return adapter
}

func TestTrendyolAdapter_Capabilities(t *testing.T) {
	adapter := NewTrendyolAdapter(testClient(), zap.NewNop())
	caps := adapter.Capabilities()

	assert.Equal(t, delivery.PlatformTrendyol, adapter.Platform())
	assert.True(t, caps.CanPoll)
	assert.True(t, caps.HasWebhook)
	assert.Equal(t, 20*time.Second, caps.MinPollInterval)
}

func TestTrendyolAdapter_Authenticate_Integrator(t *testing.T) {
	adapter := newTrendyolTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/integration/auth/token", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "int-1", body["integratorId"])

		_ = json.NewEncoder(w).Encode(map[string]string{"token": "integrator-token"})
	}))

	before := time.Now()
	result, err := adapter.Authenticate(context.Background(), trendyolIntegratorConfig())
	require.NoError(t, err)

	assert.Equal(t, "integrator-token", result.AccessToken)
	assert.WithinDuration(t, before.Add(50*time.Minute), result.ExpiresAt, 5*time.Second)
}

func TestTrendyolAdapter_Authenticate_BasicAuthFallback(t *testing.T) {
	// No HTTP call happens for basic auth
	adapter := NewTrendyolAdapter(testClient(), zap.NewNop())

	before := time.Now()
	result, err := adapter.Authenticate(context.Background(), trendyolBasicAuthConfig())
	require.NoError(t, err)

	decoded, decodeErr := base64.StdEncoding.DecodeString(result.AccessToken)
	require.NoError(t, decodeErr)
	assert.Equal(t, "user:pass", string(decoded))
	assert.WithinDuration(t, before.Add(24*time.Hour), result.ExpiresAt, 5*time.Second)
}

func TestTrendyolAdapter_StatusVocabulary(t *testing.T) {
	var gotBody map[string]string
	var gotMethod, gotPath, gotAuth string

	adapter := newTrendyolTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotBody = nil
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))

	ctx := context.Background()
	cfg := trendyolIntegratorConfig()

	require.NoError(t, adapter.AcceptOrder(ctx, cfg, "o1"))
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/orders/o1/status", gotPath)
	assert.Equal(t, "Bearer ty-token", gotAuth)
	assert.Equal(t, "ACCEPTED", gotBody["status"])

	require.NoError(t, adapter.RejectOrder(ctx, cfg, "o1", "too busy"))
	assert.Equal(t, "REJECTED", gotBody["status"])
	assert.Equal(t, "too busy", gotBody["reason"])

	require.NoError(t, adapter.MarkPreparing(ctx, cfg, "o1"))
	assert.Equal(t, "PREPARING", gotBody["status"])

	require.NoError(t, adapter.MarkReady(ctx, cfg, "o1"))
	assert.Equal(t, "READY", gotBody["status"])

	require.NoError(t, adapter.MarkPickedUp(ctx, cfg, "o1"))
	assert.Equal(t, "PICKED_UP", gotBody["status"])

	require.NoError(t, adapter.CancelOrder(ctx, cfg, "o1", ""))
	assert.Equal(t, "CANCELLED", gotBody["status"])
}

func TestTrendyolAdapter_BasicAuthHeader(t *testing.T) {
	var gotAuth string
	adapter := newTrendyolTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))

	cfg := trendyolBasicAuthConfig()
	require.NoError(t, adapter.AcceptOrder(context.Background(), cfg, "o1"))
	assert.Equal(t, "Basic "+cfg.AccessToken, gotAuth)
}

func TestTrendyolAdapter_PollNewOrders_Envelope(t *testing.T) {
	adapter := newTrendyolTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/restaurants/rest-42/orders", r.URL.Path)
		assert.Equal(t, "NEW", r.URL.Query().Get("status"))

		_, _ = w.Write([]byte(`{"orders":[{"orderId":"ty-1","totalPrice":120.75,"products":[]}]}`))
	}))

	orders, err := adapter.PollNewOrders(context.Background(), trendyolIntegratorConfig())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "ty-1", orders[0].ExternalOrderID)
	assert.Equal(t, "120.75", orders[0].TotalAmount.String())
}

func TestTrendyolAdapter_PollNewOrders_BareArray(t *testing.T) {
	adapter := newTrendyolTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"ty-2","totalPrice":50,"products":[]}]`))
	}))

	orders, err := adapter.PollNewOrders(context.Background(), trendyolIntegratorConfig())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "ty-2", orders[0].ExternalOrderID)
}

func TestTrendyolAdapter_ParseWebhookOrder(t *testing.T) {
	adapter := NewTrendyolAdapter(testClient(), zap.NewNop())

	payload := []byte(`{
		"id": "ty-wh-1",
		"customerName": "Mehmet",
		"products": [{"productId": "tp-1", "name": "Pide", "quantity": 1, "unitPrice": 85}],
		"totalPrice": 85,
		"payableAmount": 85
	}`)

	order, err := adapter.ParseWebhookOrder(context.Background(), trendyolIntegratorConfig(), payload)
	require.NoError(t, err)
	assert.Equal(t, "ty-wh-1", order.ExternalOrderID)
	assert.Equal(t, "85", order.FinalAmount.String())
	require.Len(t, order.Items, 1)
}
