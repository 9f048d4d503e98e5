package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/orderbridge/backend/internal/domain/delivery"
)

const (
	yemeksepetiBaseURL = "https://middleware-api.yemeksepeti.com"

	// yemeksepetiTokenMargin is subtracted from the granted expires_in so
	// refresh happens before the platform-side expiry.
	yemeksepetiTokenMargin = 5 * time.Minute

	yemeksepetiDefaultExpiresIn = 3600
)

// yemeksepetiCredentials is the credential shape for Yemeksepeti configurations.
// ChainCode and PosVendorID route catalog and vendor-status calls.
type yemeksepetiCredentials struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	ChainCode    string `json:"chainCode"`
	PosVendorID  string `json:"posVendorId"`
}

// yemeksepetiLoginResponse is the /v2/login response.
type yemeksepetiLoginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// yemeksepetiOrder is the webhook order payload. Yemeksepeti is push-only;
// fields carry the alternate names seen across payload versions.
type yemeksepetiOrder struct {
	ID         string `json:"id"`
	OrderToken string `json:"orderToken"`

	CustomerName    string `json:"customerName"`
	CustomerPhone   string `json:"customerPhone"`
	DeliveryAddress string `json:"deliveryAddress"`
	CustomerNote    string `json:"customerNote"`

	Products []yemeksepetiProduct `json:"products"`

	TotalPrice     json.Number `json:"totalPrice"`
	DiscountAmount json.Number `json:"discountAmount"`
	PaymentAmount  json.Number `json:"paymentAmount"`
}

type yemeksepetiProduct struct {
	ProductID   string      `json:"productId"`
	ProductName string      `json:"productName"`
	Count       int         `json:"count"`
	UnitPrice   json.Number `json:"unitPrice"`
	Options     []struct {
		Name  string      `json:"name"`
		Count int         `json:"count"`
		Price json.Number `json:"price"`
	} `json:"options"`
}

// YemeksepetiAdapter integrates with the Yemeksepeti middleware API.
// The platform pushes orders over webhooks only; there is no poll endpoint.
type YemeksepetiAdapter struct {
	client  *Client
	baseURL string
	logger  *zap.Logger
}

var _ delivery.PlatformAdapter = (*YemeksepetiAdapter)(nil)

// NewYemeksepetiAdapter creates a Yemeksepeti adapter using the shared
// request executor.
func NewYemeksepetiAdapter(client *Client, logger *zap.Logger) *YemeksepetiAdapter {
	return &YemeksepetiAdapter{
		client:  client,
		baseURL: yemeksepetiBaseURL,
		logger:  logger,
	}
}

// Platform returns the platform identifier
func (a *YemeksepetiAdapter) Platform() delivery.PlatformType {
	return delivery.PlatformYemeksepeti
}

// Capabilities returns the optional capability descriptor
func (a *YemeksepetiAdapter) Capabilities() delivery.Capabilities {
	return delivery.Capabilities{
		CanPoll:               false,
		HasWebhook:            true,
		CanSyncMenu:           true,
		CanToggleAvailability: true,
		CanToggleRestaurant:   true,
	}
}

// Authenticate performs a client-credentials grant against /v2/login.
func (a *YemeksepetiAdapter) Authenticate(ctx context.Context, cfg *delivery.PlatformConfig) (*delivery.AuthResult, error) {
	creds, err := a.credentials(cfg)
	if err != nil {
		return nil, err
	}

	var resp yemeksepetiLoginResponse
	err = a.client.DoJSON(ctx, Request{
		Method: http.MethodPost,
		URL:    a.baseURL + "/v2/login",
		Body: map[string]string{
			"grant_type":    "client_credentials",
			"client_id":     creds.ClientID,
			"client_secret": creds.ClientSecret,
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", delivery.ErrAuthenticationFailed, err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("%w: login response missing access_token", delivery.ErrInvalidResponse)
	}

	expiresIn := resp.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = yemeksepetiDefaultExpiresIn
	}
	ttl := time.Duration(expiresIn)*time.Second - yemeksepetiTokenMargin

	return &delivery.AuthResult{
		AccessToken: resp.AccessToken,
		ExpiresAt:   time.Now().Add(ttl),
	}, nil
}

// TestConnection verifies the credentials by performing a login.
func (a *YemeksepetiAdapter) TestConnection(ctx context.Context, cfg *delivery.PlatformConfig) error {
	_, err := a.Authenticate(ctx, cfg)
	return err
}

// AcceptOrder confirms the order on Yemeksepeti.
func (a *YemeksepetiAdapter) AcceptOrder(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID string) error {
	return a.postStatus(ctx, cfg, externalOrderID, map[string]string{"status": "accepted"})
}

// RejectOrder declines the order on Yemeksepeti.
func (a *YemeksepetiAdapter) RejectOrder(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID, reason string) error {
	if reason == "" {
		reason = "Restaurant rejected the order"
	}
	return a.postStatus(ctx, cfg, externalOrderID, map[string]string{"status": "rejected", "reason": reason})
}

// MarkPreparing signals preparation started.
func (a *YemeksepetiAdapter) MarkPreparing(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID string) error {
	return a.postStatus(ctx, cfg, externalOrderID, map[string]string{"status": "preparing"})
}

// MarkReady reports preparation completed.
func (a *YemeksepetiAdapter) MarkReady(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID string) error {
	_, _, err := a.client.Do(ctx, Request{
		Method:  http.MethodPost,
		URL:     a.baseURL + "/v2/orders/" + externalOrderID + "/preparation-completed",
		Headers: a.authHeaders(cfg),
	})
	return err
}

// MarkPickedUp reports the order delivered to the courier.
func (a *YemeksepetiAdapter) MarkPickedUp(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID string) error {
	return a.postStatus(ctx, cfg, externalOrderID, map[string]string{"status": "delivered"})
}

// CancelOrder cancels an accepted order on Yemeksepeti.
func (a *YemeksepetiAdapter) CancelOrder(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID, reason string) error {
	if reason == "" {
		reason = "Restaurant cancelled"
	}
	return a.postStatus(ctx, cfg, externalOrderID, map[string]string{"status": "cancelled", "reason": reason})
}

// PollNewOrders is not supported; orders arrive via webhook only.
func (a *YemeksepetiAdapter) PollNewOrders(ctx context.Context, cfg *delivery.PlatformConfig) ([]delivery.NormalizedOrder, error) {
	return nil, delivery.ErrCapabilityNotSupported
}

// ParseWebhookOrder converts a webhook push into a normalized order.
func (a *YemeksepetiAdapter) ParseWebhookOrder(ctx context.Context, cfg *delivery.PlatformConfig, payload []byte) (*delivery.NormalizedOrder, error) {
	var raw yemeksepetiOrder
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", delivery.ErrInvalidResponse, err)
	}

	externalID := raw.ID
	if externalID == "" {
		externalID = raw.OrderToken
	}

	items := make([]delivery.NormalizedItem, 0, len(raw.Products))
	for _, p := range raw.Products {
		quantity := p.Count
		if quantity <= 0 {
			quantity = 1
		}

		var modifiers []delivery.NormalizedModifier
		for _, opt := range p.Options {
			optQuantity := opt.Count
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
			Name:           p.ProductName,
			Quantity:       quantity,
			UnitPrice:      numberToDecimal(p.UnitPrice),
			Modifiers:      modifiers,
		})
	}

	total := numberToDecimal(raw.TotalPrice)
	discount := numberToDecimal(raw.DiscountAmount)
	final := numberToDecimal(raw.PaymentAmount)
	if final.IsZero() {
		final = total.Sub(discount)
	}

	return &delivery.NormalizedOrder{
		Platform:        delivery.PlatformYemeksepeti,
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
	}, nil
}

// SyncMenu replaces the chain catalog.
func (a *YemeksepetiAdapter) SyncMenu(ctx context.Context, cfg *delivery.PlatformConfig, items []delivery.MenuPushItem) error {
	creds, err := a.credentials(cfg)
	if err != nil {
		return err
	}

	payload := make([]map[string]any, 0, len(items))
	for _, item := range items {
		payload = append(payload, map[string]any{
			"id":        item.ExternalItemID,
			"name":      item.Name,
			"price":     item.Price,
			"available": item.Available,
		})
	}

	_, _, err = a.client.Do(ctx, Request{
		Method:  http.MethodPut,
		URL:     a.baseURL + "/v2/chains/" + creds.ChainCode + "/catalog",
		Headers: a.authHeaders(cfg),
		Body:    map[string]any{"items": payload},
	})
	return err
}

// UpdateItemAvailability toggles a single catalog item.
func (a *YemeksepetiAdapter) UpdateItemAvailability(ctx context.Context, cfg *delivery.PlatformConfig, externalItemID string, available bool) error {
	creds, err := a.credentials(cfg)
	if err != nil {
		return err
	}

	_, _, err = a.client.Do(ctx, Request{
		Method: http.MethodPut,
		URL: a.baseURL + "/v2/chains/" + creds.ChainCode +
			"/vendors/" + creds.PosVendorID + "/catalog/items/availability",
		Headers: a.authHeaders(cfg),
		Body: map[string]any{
			"items": []map[string]any{{"id": externalItemID, "available": available}},
		},
	})
	return err
}

// OpenRestaurant marks the vendor open on Yemeksepeti.
func (a *YemeksepetiAdapter) OpenRestaurant(ctx context.Context, cfg *delivery.PlatformConfig) error {
	return a.setVendorStatus(ctx, cfg, true)
}

// CloseRestaurant marks the vendor closed on Yemeksepeti.
func (a *YemeksepetiAdapter) CloseRestaurant(ctx context.Context, cfg *delivery.PlatformConfig) error {
	return a.setVendorStatus(ctx, cfg, false)
}

func (a *YemeksepetiAdapter) setVendorStatus(ctx context.Context, cfg *delivery.PlatformConfig, open bool) error {
	creds, err := a.credentials(cfg)
	if err != nil {
		return err
	}

	_, _, err = a.client.Do(ctx, Request{
		Method:  http.MethodPut,
		URL:     a.baseURL + "/v2/vendors/" + creds.PosVendorID + "/status",
		Headers: a.authHeaders(cfg),
		Body:    map[string]bool{"isOpen": open},
	})
	return err
}

func (a *YemeksepetiAdapter) postStatus(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID string, body map[string]string) error {
	_, _, err := a.client.Do(ctx, Request{
		Method:  http.MethodPost,
		URL:     a.baseURL + "/v2/order/status/" + externalOrderID,
		Headers: a.authHeaders(cfg),
		Body:    body,
	})
	return err
}

func (a *YemeksepetiAdapter) credentials(cfg *delivery.PlatformConfig) (*yemeksepetiCredentials, error) {
	var creds yemeksepetiCredentials
	if err := json.Unmarshal(cfg.Credentials, &creds); err != nil {
		return nil, fmt.Errorf("%w: %v", delivery.ErrInvalidCredentials, err)
	}
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, delivery.ErrInvalidCredentials
	}
	return &creds, nil
}

func (a *YemeksepetiAdapter) authHeaders(cfg *delivery.PlatformConfig) map[string]string {
	return map[string]string{"Authorization": "Bearer " + cfg.AccessToken}
}

// numberToDecimal parses a JSON number field, treating absence as zero.
func numberToDecimal(n json.Number) decimal.Decimal {
	if n == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}
