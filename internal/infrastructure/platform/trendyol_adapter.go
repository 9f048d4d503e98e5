package platform

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/orderbridge/backend/internal/domain/delivery"
)

const (
	trendyolBaseURL = "https://api.trendyol.com/yemek"

	// trendyolTokenTTL is set below the integrator token's real 1 hour.
	trendyolTokenTTL = 50 * time.Minute

	// trendyolBasicAuthTTL is a synthetic expiry for basic-auth credentials,
	// which never expire platform-side.
	trendyolBasicAuthTTL = 24 * time.Hour

	trendyolAPIVersionV2 = "v2"
)

// trendyolCredentials is the credential shape for Trendyol configurations.
// APIVersion "v2" selects the integrator token flow; anything else falls back
// to the deprecated basic-auth flow.
type trendyolCredentials struct {
	APIVersion       string `json:"apiVersion"`
	IntegratorID     string `json:"integratorId"`
	IntegratorSecret string `json:"integratorSecret"`
	Username         string `json:"username"`
	Password         string `json:"password"`
}

func (c *trendyolCredentials) isIntegrator() bool {
	return c.APIVersion == trendyolAPIVersionV2
}

// trendyolTokenResponse is the integrator token response.
type trendyolTokenResponse struct {
	Token string `json:"token"`
}

// trendyolOrder is the raw order payload, shared between poll and webhook.
type trendyolOrder struct {
	ID      string `json:"id"`
	OrderID string `json:"orderId"`

	CustomerName    string `json:"customerName"`
	CustomerPhone   string `json:"customerPhone"`
	DeliveryAddress string `json:"deliveryAddress"`
	CustomerNote    string `json:"customerNote"`

	Products []trendyolProduct `json:"products"`

	TotalPrice     json.Number `json:"totalPrice"`
	DiscountAmount json.Number `json:"discountAmount"`
	PayableAmount  json.Number `json:"payableAmount"`

	CreatedDate *time.Time `json:"createdDate"`
}

type trendyolProduct struct {
	ProductID string      `json:"productId"`
	Name      string      `json:"name"`
	Quantity  int         `json:"quantity"`
	UnitPrice json.Number `json:"unitPrice"`
	Options   []struct {
		Name     string      `json:"name"`
		Quantity int         `json:"quantity"`
		Price    json.Number `json:"price"`
	} `json:"options"`
}

// trendyolOrderList is the poll response envelope.
type trendyolOrderList struct {
	Orders []json.RawMessage `json:"orders"`
}

// TrendyolAdapter integrates with the Trendyol Yemek API. Orders arrive both
// via polling and via webhooks; all status transitions go through a single
// PUT status endpoint with an upper-case status vocabulary.
type TrendyolAdapter struct {
	client  *Client
	baseURL string
	logger  *zap.Logger
}

var _ delivery.PlatformAdapter = (*TrendyolAdapter)(nil)

// NewTrendyolAdapter creates a Trendyol adapter using the shared request
// executor.
func NewTrendyolAdapter(client *Client, logger *zap.Logger) *TrendyolAdapter {
	return &TrendyolAdapter{
		client:  client,
		baseURL: trendyolBaseURL,
		logger:  logger,
	}
}

// Platform returns the platform identifier
func (a *TrendyolAdapter) Platform() delivery.PlatformType {
	return delivery.PlatformTrendyol
}

// Capabilities returns the optional capability descriptor
func (a *TrendyolAdapter) Capabilities() delivery.Capabilities {
	return delivery.Capabilities{
		CanPoll:               true,
		HasWebhook:            true,
		CanSyncMenu:           true,
		CanToggleAvailability: true,
		CanToggleRestaurant:   true,
		MinPollInterval:       20 * time.Second,
	}
}

// Authenticate obtains an integrator token, or derives a basic-auth token for
// legacy credentials.
func (a *TrendyolAdapter) Authenticate(ctx context.Context, cfg *delivery.PlatformConfig) (*delivery.AuthResult, error) {
	creds, err := a.credentials(cfg)
	if err != nil {
		return nil, err
	}

	if creds.isIntegrator() {
		var resp trendyolTokenResponse
		err := a.client.DoJSON(ctx, Request{
			Method: http.MethodPost,
			URL:    a.baseURL + "/integration/auth/token",
			Body: map[string]string{
				"integratorId":     creds.IntegratorID,
				"integratorSecret": creds.IntegratorSecret,
			},
		}, &resp)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", delivery.ErrAuthenticationFailed, err)
		}
		if resp.Token == "" {
			return nil, fmt.Errorf("%w: token response missing token", delivery.ErrInvalidResponse)
		}
		return &delivery.AuthResult{
			AccessToken: resp.Token,
			ExpiresAt:   time.Now().Add(trendyolTokenTTL),
		}, nil
	}

	// Basic auth never expires platform-side; the token is the encoded
	// credential pair with a long synthetic TTL.
	token := base64.StdEncoding.EncodeToString([]byte(creds.Username + ":" + creds.Password))
	return &delivery.AuthResult{
		AccessToken: token,
		ExpiresAt:   time.Now().Add(trendyolBasicAuthTTL),
	}, nil
}

// TestConnection verifies credentials. The integrator flow performs a real
// token exchange; the basic-auth flow fetches the restaurant record.
func (a *TrendyolAdapter) TestConnection(ctx context.Context, cfg *delivery.PlatformConfig) error {
	creds, err := a.credentials(cfg)
	if err != nil {
		return err
	}
	if creds.isIntegrator() {
		_, err := a.Authenticate(ctx, cfg)
		return err
	}

	_, _, err = a.client.Do(ctx, Request{
		Method:  http.MethodGet,
		URL:     a.baseURL + "/restaurants/" + cfg.RemoteRestaurantID,
		Headers: a.authHeaders(cfg),
	})
	return err
}

// AcceptOrder confirms the order on Trendyol.
func (a *TrendyolAdapter) AcceptOrder(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID string) error {
	return a.putStatus(ctx, cfg, externalOrderID, "ACCEPTED", "")
}

// RejectOrder declines the order on Trendyol.
func (a *TrendyolAdapter) RejectOrder(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID, reason string) error {
	return a.putStatus(ctx, cfg, externalOrderID, "REJECTED", reason)
}

// MarkPreparing signals preparation started.
func (a *TrendyolAdapter) MarkPreparing(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID string) error {
	return a.putStatus(ctx, cfg, externalOrderID, "PREPARING", "")
}

// MarkReady signals the order is ready for pickup.
func (a *TrendyolAdapter) MarkReady(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID string) error {
	return a.putStatus(ctx, cfg, externalOrderID, "READY", "")
}

// MarkPickedUp signals the courier collected the order.
func (a *TrendyolAdapter) MarkPickedUp(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID string) error {
	return a.putStatus(ctx, cfg, externalOrderID, "PICKED_UP", "")
}

// CancelOrder cancels an accepted order on Trendyol.
func (a *TrendyolAdapter) CancelOrder(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID, reason string) error {
	return a.putStatus(ctx, cfg, externalOrderID, "CANCELLED", reason)
}

// PollNewOrders pulls NEW orders for the configured restaurant.
func (a *TrendyolAdapter) PollNewOrders(ctx context.Context, cfg *delivery.PlatformConfig) ([]delivery.NormalizedOrder, error) {
	body, _, err := a.client.Do(ctx, Request{
		Method:  http.MethodGet,
		URL:     a.baseURL + "/restaurants/" + cfg.RemoteRestaurantID + "/orders?status=NEW",
		Headers: a.authHeaders(cfg),
	})
	if err != nil {
		return nil, err
	}

	// The endpoint answers either {"orders": [...]} or a bare array.
	var envelope trendyolOrderList
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Orders == nil {
		if err := json.Unmarshal(body, &envelope.Orders); err != nil {
			return nil, fmt.Errorf("%w: %v", delivery.ErrInvalidResponse, err)
		}
	}

	orders := make([]delivery.NormalizedOrder, 0, len(envelope.Orders))
	for _, payload := range envelope.Orders {
		var order trendyolOrder
		if err := json.Unmarshal(payload, &order); err != nil {
			return nil, fmt.Errorf("%w: %v", delivery.ErrInvalidResponse, err)
		}
		orders = append(orders, a.normalizeOrder(&order, payload))
	}
	return orders, nil
}

// ParseWebhookOrder converts a webhook push into a normalized order.
func (a *TrendyolAdapter) ParseWebhookOrder(ctx context.Context, cfg *delivery.PlatformConfig, payload []byte) (*delivery.NormalizedOrder, error) {
	var raw trendyolOrder
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", delivery.ErrInvalidResponse, err)
	}
	order := a.normalizeOrder(&raw, payload)
	return &order, nil
}

// SyncMenu replaces the restaurant menu.
func (a *TrendyolAdapter) SyncMenu(ctx context.Context, cfg *delivery.PlatformConfig, items []delivery.MenuPushItem) error {
	products := make([]map[string]any, 0, len(items))
	for _, item := range items {
		products = append(products, map[string]any{
			"id":          item.ExternalItemID,
			"name":        item.Name,
			"price":       item.Price,
			"isAvailable": item.Available,
		})
	}

	_, _, err := a.client.Do(ctx, Request{
		Method:  http.MethodPut,
		URL:     a.baseURL + "/restaurants/" + cfg.RemoteRestaurantID + "/menu",
		Headers: a.authHeaders(cfg),
		Body:    map[string]any{"products": products},
	})
	return err
}

// UpdateItemAvailability toggles a single product's availability.
func (a *TrendyolAdapter) UpdateItemAvailability(ctx context.Context, cfg *delivery.PlatformConfig, externalItemID string, available bool) error {
	_, _, err := a.client.Do(ctx, Request{
		Method:  http.MethodPut,
		URL:     a.baseURL + "/restaurants/" + cfg.RemoteRestaurantID + "/products/" + externalItemID + "/status",
		Headers: a.authHeaders(cfg),
		Body:    map[string]bool{"isAvailable": available},
	})
	return err
}

// OpenRestaurant marks the restaurant open on Trendyol.
func (a *TrendyolAdapter) OpenRestaurant(ctx context.Context, cfg *delivery.PlatformConfig) error {
	return a.setRestaurantStatus(ctx, cfg, true)
}

// CloseRestaurant marks the restaurant closed on Trendyol.
func (a *TrendyolAdapter) CloseRestaurant(ctx context.Context, cfg *delivery.PlatformConfig) error {
	return a.setRestaurantStatus(ctx, cfg, false)
}

func (a *TrendyolAdapter) setRestaurantStatus(ctx context.Context, cfg *delivery.PlatformConfig, open bool) error {
	_, _, err := a.client.Do(ctx, Request{
		Method:  http.MethodPut,
		URL:     a.baseURL + "/restaurants/" + cfg.RemoteRestaurantID + "/status",
		Headers: a.authHeaders(cfg),
		Body:    map[string]bool{"isOpen": open},
	})
	return err
}

func (a *TrendyolAdapter) putStatus(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID, status, reason string) error {
	body := map[string]string{"status": status}
	if reason != "" {
		body["reason"] = reason
	}
	_, _, err := a.client.Do(ctx, Request{
		Method:  http.MethodPut,
		URL:     a.baseURL + "/orders/" + externalOrderID + "/status",
		Headers: a.authHeaders(cfg),
		Body:    body,
	})
	return err
}

func (a *TrendyolAdapter) credentials(cfg *delivery.PlatformConfig) (*trendyolCredentials, error) {
	var creds trendyolCredentials
	if err := json.Unmarshal(cfg.Credentials, &creds); err != nil {
		return nil, fmt.Errorf("%w: %v", delivery.ErrInvalidCredentials, err)
	}
	if creds.isIntegrator() {
		if creds.IntegratorID == "" || creds.IntegratorSecret == "" {
			return nil, delivery.ErrInvalidCredentials
		}
	} else if creds.Username == "" || creds.Password == "" {
		return nil, delivery.ErrInvalidCredentials
	}
	return &creds, nil
}

// authHeaders selects the scheme matching the credential flow: Bearer for
// integrator tokens, Basic for the legacy encoded pair.
func (a *TrendyolAdapter) authHeaders(cfg *delivery.PlatformConfig) map[string]string {
	var creds trendyolCredentials
	_ = json.Unmarshal(cfg.Credentials, &creds)
	if creds.isIntegrator() {
		return map[string]string{"Authorization": "Bearer " + cfg.AccessToken}
	}
	return map[string]string{"Authorization": "Basic " + cfg.AccessToken}
}

func (a *TrendyolAdapter) normalizeOrder(raw *trendyolOrder, payload json.RawMessage) delivery.NormalizedOrder {
	externalID := raw.ID
	if externalID == "" {
		externalID = raw.OrderID
	}

	items := make([]delivery.NormalizedItem, 0, len(raw.Products))
	for _, p := range raw.Products {
		quantity := p.Quantity
		if quantity <= 0 {
			quantity = 1
		}

		var modifiers []delivery.NormalizedModifier
		for _, opt := range p.Options {
			optQuantity := opt.Quantity
			if optQuantity <= 0 {
				optQuantity = 1
			}
			modifiers = append(modifiers, delivery.NormalizedModifier{
				Name:      opt.Name,
				Quantity:  optQuantity,
				UnitPrice: numberToDecimal(opt.Price),
			})
		}

		items = append(items, delivery.NormalizedItem{
			ExternalItemID: p.ProductID,
			Name:           p.Name,
			Quantity:       quantity,
			UnitPrice:      numberToDecimal(p.UnitPrice),
			Modifiers:      modifiers,
		})
	}

	total := numberToDecimal(raw.TotalPrice)
	discount := numberToDecimal(raw.DiscountAmount)
	final := numberToDecimal(raw.PayableAmount)
	if final.IsZero() {
		final = total.Sub(discount)
	}

	return delivery.NormalizedOrder{
		Platform:        delivery.PlatformTrendyol,
		ExternalOrderID: externalID,
		CustomerName:    raw.CustomerName,
		CustomerPhone:   raw.CustomerPhone,
		CustomerAddress: raw.DeliveryAddress,
		Note:            raw.CustomerNote,
		Items:           items,
		TotalAmount:     total,
		DiscountAmount:  discount,
		FinalAmount:     final,
		RawPayload:      payload,
		PlacedAt:        raw.CreatedDate,
	}
}
