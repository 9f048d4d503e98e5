package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/orderbridge/backend/internal/domain/delivery"
)

const (
	migrosBaseURL = "https://partner-api.migros.com.tr/yemek"

	// migrosKeyTTL is a synthetic expiry for the static branch API key.
	migrosKeyTTL = 365 * 24 * time.Hour
)

// migrosCredentials is the credential shape for Migros configurations.
type migrosCredentials struct {
	APIKey string `json:"apiKey"`
}

// migrosOrder is the raw order payload.
type migrosOrder struct {
	ID      string `json:"id"`
	OrderID string `json:"orderId"`

	CustomerName    string `json:"customerName"`
	CustomerPhone   string `json:"customerPhone"`
	DeliveryAddress string `json:"deliveryAddress"`
	CustomerNote    string `json:"customerNote"`

	Products []migrosProduct `json:"products"`

	TotalPrice     json.Number `json:"totalPrice"`
	DiscountAmount json.Number `json:"discountAmount"`
	PayableAmount  json.Number `json:"payableAmount"`

	CreatedDate *time.Time `json:"createdDate"`
}

type migrosProduct struct {
	ProductID string      `json:"productId"`
	Name      string      `json:"name"`
	Quantity  int         `json:"quantity"`
	UnitPrice json.Number `json:"unitPrice"`
	Extras    []struct {
		Name     string      `json:"name"`
		Quantity int         `json:"quantity"`
		Price    json.Number `json:"price"`
	} `json:"extras"`
}

type migrosOrderList struct {
	Orders []json.RawMessage `json:"orders"`
}

// MigrosAdapter integrates with the Migros Yemek partner API. Auth is a
// static per-branch API key, so there is no token exchange; orders are
// poll-only.
type MigrosAdapter struct {
	client  *Client
	baseURL string
	logger  *zap.Logger
}

var _ delivery.PlatformAdapter = (*MigrosAdapter)(nil)

// NewMigrosAdapter creates a Migros adapter using the shared request executor.
func NewMigrosAdapter(client *Client, logger *zap.Logger) *MigrosAdapter {
	return &MigrosAdapter{
		client:  client,
		baseURL: migrosBaseURL,
		logger:  logger,
	}
}

// Platform returns the platform identifier
func (a *MigrosAdapter) Platform() delivery.PlatformType {
	return delivery.PlatformMigros
}

// Capabilities returns the optional capability descriptor
func (a *MigrosAdapter) Capabilities() delivery.Capabilities {
	return delivery.Capabilities{
		CanPoll:         true,
		MinPollInterval: 20 * time.Second,
	}
}

// Authenticate returns the static API key with a synthetic long expiry.
func (a *MigrosAdapter) Authenticate(ctx context.Context, cfg *delivery.PlatformConfig) (*delivery.AuthResult, error) {
	creds, err := a.credentials(cfg)
	if err != nil {
		return nil, err
	}
	return &delivery.AuthResult{
		AccessToken: creds.APIKey,
		ExpiresAt:   time.Now().Add(migrosKeyTTL),
	}, nil
}

// TestConnection fetches the branch record to validate the key.
func (a *MigrosAdapter) TestConnection(ctx context.Context, cfg *delivery.PlatformConfig) error {
	headers, err := a.headers(cfg)
	if err != nil {
		return err
	}
	_, _, err = a.client.Do(ctx, Request{
		Method:  http.MethodGet,
		URL:     a.baseURL + "/restaurants/" + cfg.RemoteRestaurantID,
		Headers: headers,
	})
	return err
}

// AcceptOrder confirms the order on Migros.
func (a *MigrosAdapter) AcceptOrder(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID string) error {
	return a.putStatus(ctx, cfg, externalOrderID, "ACCEPTED", "")
}

// RejectOrder declines the order on Migros.
func (a *MigrosAdapter) RejectOrder(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID, reason string) error {
	return a.putStatus(ctx, cfg, externalOrderID, "REJECTED", reason)
}

// MarkPreparing signals preparation started.
func (a *MigrosAdapter) MarkPreparing(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID string) error {
	return a.putStatus(ctx, cfg, externalOrderID, "PREPARING", "")
}

// MarkReady signals the order is ready for pickup.
func (a *MigrosAdapter) MarkReady(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID string) error {
	return a.putStatus(ctx, cfg, externalOrderID, "READY", "")
}

// MarkPickedUp is a no-op. READY is the last status Migros accepts from the
// restaurant side.
func (a *MigrosAdapter) MarkPickedUp(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID string) error {
	a.logger.Debug("migros has no pickup endpoint, skipping",
		zap.String("external_order_id", externalOrderID))
	return nil
}

// CancelOrder cancels an accepted order on Migros.
func (a *MigrosAdapter) CancelOrder(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID, reason string) error {
	return a.putStatus(ctx, cfg, externalOrderID, "CANCELLED", reason)
}

// PollNewOrders pulls NEW orders for the configured branch.
func (a *MigrosAdapter) PollNewOrders(ctx context.Context, cfg *delivery.PlatformConfig) ([]delivery.NormalizedOrder, error) {
	headers, err := a.headers(cfg)
	if err != nil {
		return nil, err
	}

	body, _, err := a.client.Do(ctx, Request{
		Method:  http.MethodGet,
		URL:     a.baseURL + "/restaurants/" + cfg.RemoteRestaurantID + "/orders?status=NEW",
		Headers: headers,
	})
	if err != nil {
		return nil, err
	}

	var envelope migrosOrderList
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Orders == nil {
		if err := json.Unmarshal(body, &envelope.Orders); err != nil {
			return nil, fmt.Errorf("%w: %v", delivery.ErrInvalidResponse, err)
		}
	}

	orders := make([]delivery.NormalizedOrder, 0, len(envelope.Orders))
	for _, payload := range envelope.Orders {
		var order migrosOrder
		if err := json.Unmarshal(payload, &order); err != nil {
			return nil, fmt.Errorf("%w: %v", delivery.ErrInvalidResponse, err)
		}
		orders = append(orders, a.normalizeOrder(&order, payload))
	}
	return orders, nil
}

// ParseWebhookOrder is not supported; Migros does not push webhooks.
func (a *MigrosAdapter) ParseWebhookOrder(ctx context.Context, cfg *delivery.PlatformConfig, payload []byte) (*delivery.NormalizedOrder, error) {
	return nil, delivery.ErrCapabilityNotSupported
}

// SyncMenu is not supported.
func (a *MigrosAdapter) SyncMenu(ctx context.Context, cfg *delivery.PlatformConfig, items []delivery.MenuPushItem) error {
	return delivery.ErrCapabilityNotSupported
}

// UpdateItemAvailability is not supported.
func (a *MigrosAdapter) UpdateItemAvailability(ctx context.Context, cfg *delivery.PlatformConfig, externalItemID string, available bool) error {
	return delivery.ErrCapabilityNotSupported
}

// OpenRestaurant is not supported.
func (a *MigrosAdapter) OpenRestaurant(ctx context.Context, cfg *delivery.PlatformConfig) error {
	return delivery.ErrCapabilityNotSupported
}

// CloseRestaurant is not supported.
func (a *MigrosAdapter) CloseRestaurant(ctx context.Context, cfg *delivery.PlatformConfig) error {
	return delivery.ErrCapabilityNotSupported
}

func (a *MigrosAdapter) putStatus(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID, status, reason string) error {
	headers, err := a.headers(cfg)
	if err != nil {
		return err
	}

	body := map[string]string{"status": status}
	if reason != "" {
		body["reason"] = reason
	}
	_, _, err = a.client.Do(ctx, Request{
		Method:  http.MethodPut,
		URL:     a.baseURL + "/orders/" + externalOrderID + "/status",
		Headers: headers,
		Body:    body,
	})
	return err
}

func (a *MigrosAdapter) credentials(cfg *delivery.PlatformConfig) (*migrosCredentials, error) {
	var creds migrosCredentials
	if err := json.Unmarshal(cfg.Credentials, &creds); err != nil {
		return nil, fmt.Errorf("%w: %v", delivery.ErrInvalidCredentials, err)
	}
	if creds.APIKey == "" {
		return nil, delivery.ErrInvalidCredentials
	}
	return &creds, nil
}

func (a *MigrosAdapter) headers(cfg *delivery.PlatformConfig) (map[string]string, error) {
	creds, err := a.credentials(cfg)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"X-API-Key":   creds.APIKey,
		"X-Branch-Id": cfg.RemoteRestaurantID,
	}, nil
}

func (a *MigrosAdapter) normalizeOrder(raw *migrosOrder, payload json.RawMessage) delivery.NormalizedOrder {
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
		for _, extra := range p.Extras {
			extraQuantity := extra.Quantity
			if extraQuantity <= 0 {
				extraQuantity = 1
			}
			modifiers = append(modifiers, delivery.NormalizedModifier{
				Name:      extra.Name,
				Quantity:  extraQuantity,
				UnitPrice: numberToDecimal(extra.Price),
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
		Platform:        delivery.PlatformMigros,
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
