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
	getirBaseURL = "https://food-external-api.getir.com"

	// getirTokenTTL is set below the platform's real 1 hour so refresh
	// happens before the token actually dies.
	getirTokenTTL = 55 * time.Minute
)

// getirCredentials is the credential shape stored for Getir configurations.
type getirCredentials struct {
	AppSecretKey        string `json:"appSecretKey"`
	RestaurantSecretKey string `json:"restaurantSecretKey"`
}

// getirLoginResponse is the /auth/login response.
type getirLoginResponse struct {
	Token string `json:"token"`
}

// getirOrder is the raw order payload. Monetary fields are in kuruş.
type getirOrder struct {
	ID     string `json:"id"`
	Client struct {
		Name              string `json:"name"`
		ClientPhoneNumber string `json:"clientPhoneNumber"`
		DeliveryAddress   struct {
			Address string `json:"address"`
		} `json:"deliveryAddress"`
	} `json:"client"`
	ClientNote    string         `json:"clientNote"`
	Products      []getirProduct `json:"products"`
	TotalPrice    int64          `json:"totalPrice"`
	DiscountTotal int64          `json:"discountTotal"`
	CreatedAt     *time.Time     `json:"createdAt"`
}

type getirProduct struct {
	ProductID       string `json:"productId"`
	Name            string `json:"name"`
	Count           int    `json:"count"`
	Price           int64  `json:"price"`
	Note            string `json:"note"`
	OptionCategories []struct {
		Options []struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Count int    `json:"count"`
			Price int64  `json:"price"`
		} `json:"options"`
	} `json:"optionCategories"`
}

// getirWebhookEnvelope wraps order pushes delivered over webhook.
type getirWebhookEnvelope struct {
	Type  string      `json:"type"`
	Order *getirOrder `json:"order"`
}

// GetirAdapter integrates with the Getir Food partner API.
// Getir uses secret-key login with roughly one-hour tokens and reports all
// prices in kuruş (minor units).
type GetirAdapter struct {
	client  *Client
	baseURL string
	logger  *zap.Logger
}

var _ delivery.PlatformAdapter = (*GetirAdapter)(nil)

// NewGetirAdapter creates a Getir adapter using the shared request executor.
func NewGetirAdapter(client *Client, logger *zap.Logger) *GetirAdapter {
	return &GetirAdapter{
		client:  client,
		baseURL: getirBaseURL,
		logger:  logger,
	}
}

// Platform returns the platform identifier
func (a *GetirAdapter) Platform() delivery.PlatformType {
	return delivery.PlatformGetir
}

// Capabilities returns the optional capability descriptor
func (a *GetirAdapter) Capabilities() delivery.Capabilities {
	return delivery.Capabilities{
		CanPoll:               true,
		HasWebhook:            true,
		CanSyncMenu:           false,
		CanToggleAvailability: true,
		CanToggleRestaurant:   true,
		MinPollInterval:       15 * time.Second,
	}
}

// Authenticate exchanges the secret key pair for an access token.
func (a *GetirAdapter) Authenticate(ctx context.Context, cfg *delivery.PlatformConfig) (*delivery.AuthResult, error) {
	var creds getirCredentials
	if err := json.Unmarshal(cfg.Credentials, &creds); err != nil {
		return nil, fmt.Errorf("%w: %v", delivery.ErrInvalidCredentials, err)
	}
	if creds.AppSecretKey == "" || creds.RestaurantSecretKey == "" {
		return nil, delivery.ErrInvalidCredentials
	}

	var resp getirLoginResponse
	err := a.client.DoJSON(ctx, Request{
		Method: http.MethodPost,
		URL:    a.baseURL + "/auth/login",
		Body: map[string]string{
			"appSecretKey":        creds.AppSecretKey,
			"restaurantSecretKey": creds.RestaurantSecretKey,
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", delivery.ErrAuthenticationFailed, err)
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("%w: login response missing token", delivery.ErrInvalidResponse)
	}

	return &delivery.AuthResult{
		AccessToken: resp.Token,
		ExpiresAt:   time.Now().Add(getirTokenTTL),
	}, nil
}

// TestConnection verifies the credentials by performing a login.
func (a *GetirAdapter) TestConnection(ctx context.Context, cfg *delivery.PlatformConfig) error {
	_, err := a.Authenticate(ctx, cfg)
	return err
}

// AcceptOrder confirms the order on Getir.
func (a *GetirAdapter) AcceptOrder(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID string) error {
	return a.orderAction(ctx, cfg, http.MethodPost, "/food-orders/"+externalOrderID+"/verify", nil)
}

// RejectOrder declines the order on Getir.
func (a *GetirAdapter) RejectOrder(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID, reason string) error {
	if reason == "" {
		reason = "Restaurant rejected the order"
	}
	return a.orderAction(ctx, cfg, http.MethodPost, "/food-orders/"+externalOrderID+"/cancel",
		map[string]string{"rejectReason": reason})
}

// MarkPreparing signals preparation started.
func (a *GetirAdapter) MarkPreparing(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID string) error {
	return a.orderAction(ctx, cfg, http.MethodPost, "/food-orders/"+externalOrderID+"/prepare", nil)
}

// MarkReady hands the order over for courier pickup.
func (a *GetirAdapter) MarkReady(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID string) error {
	return a.orderAction(ctx, cfg, http.MethodPost, "/food-orders/"+externalOrderID+"/handover", nil)
}

// MarkPickedUp is a no-op. Getir tracks pickup courier-side; handover is the
// last status the restaurant reports.
func (a *GetirAdapter) MarkPickedUp(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID string) error {
	a.logger.Debug("getir pickup tracked courier-side, skipping",
		zap.String("external_order_id", externalOrderID))
	return nil
}

// CancelOrder cancels an accepted order on Getir.
func (a *GetirAdapter) CancelOrder(ctx context.Context, cfg *delivery.PlatformConfig, externalOrderID, reason string) error {
	if reason == "" {
		reason = "Restaurant cancelled the order"
	}
	return a.orderAction(ctx, cfg, http.MethodPost, "/food-orders/"+externalOrderID+"/cancel",
		map[string]string{"cancelReason": reason})
}

// PollNewOrders pulls unapproved orders from Getir.
func (a *GetirAdapter) PollNewOrders(ctx context.Context, cfg *delivery.PlatformConfig) ([]delivery.NormalizedOrder, error) {
	body, _, err := a.client.Do(ctx, Request{
		Method:  http.MethodPost,
		URL:     a.baseURL + "/food-orders/periodic/unapproved",
		Headers: a.authHeaders(cfg),
	})
	if err != nil {
		return nil, err
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", delivery.ErrInvalidResponse, err)
	}

	orders := make([]delivery.NormalizedOrder, 0, len(raw))
	for _, payload := range raw {
		var order getirOrder
		if err := json.Unmarshal(payload, &order); err != nil {
			return nil, fmt.Errorf("%w: %v", delivery.ErrInvalidResponse, err)
		}
		orders = append(orders, a.normalizeOrder(&order, payload))
	}
	return orders, nil
}

// ParseWebhookOrder converts a webhook push into a normalized order.
func (a *GetirAdapter) ParseWebhookOrder(ctx context.Context, cfg *delivery.PlatformConfig, payload []byte) (*delivery.NormalizedOrder, error) {
	var envelope getirWebhookEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", delivery.ErrInvalidResponse, err)
	}
	if envelope.Order == nil {
		return nil, fmt.Errorf("%w: webhook payload missing order", delivery.ErrInvalidResponse)
	}

	rawOrder, err := json.Marshal(envelope.Order)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", delivery.ErrInvalidResponse, err)
	}
	order := a.normalizeOrder(envelope.Order, rawOrder)
	return &order, nil
}

// SyncMenu is not supported. Getir menus are managed in the partner panel.
func (a *GetirAdapter) SyncMenu(ctx context.Context, cfg *delivery.PlatformConfig, items []delivery.MenuPushItem) error {
	return delivery.ErrCapabilityNotSupported
}

// UpdateItemAvailability toggles a single product's active flag.
func (a *GetirAdapter) UpdateItemAvailability(ctx context.Context, cfg *delivery.PlatformConfig, externalItemID string, available bool) error {
	_, _, err := a.client.Do(ctx, Request{
		Method:  http.MethodPut,
		URL:     a.baseURL + "/food-products/" + externalItemID + "/status",
		Headers: a.authHeaders(cfg),
		Body:    map[string]bool{"isActive": available},
	})
	return err
}

// OpenRestaurant marks the restaurant open on Getir.
func (a *GetirAdapter) OpenRestaurant(ctx context.Context, cfg *delivery.PlatformConfig) error {
	return a.setRestaurantStatus(ctx, cfg, true)
}

// CloseRestaurant marks the restaurant closed on Getir.
func (a *GetirAdapter) CloseRestaurant(ctx context.Context, cfg *delivery.PlatformConfig) error {
	return a.setRestaurantStatus(ctx, cfg, false)
}

func (a *GetirAdapter) setRestaurantStatus(ctx context.Context, cfg *delivery.PlatformConfig, open bool) error {
	_, _, err := a.client.Do(ctx, Request{
		Method:  http.MethodPut,
		URL:     a.baseURL + "/restaurants/status",
		Headers: a.authHeaders(cfg),
		Body:    map[string]bool{"isOpen": open},
	})
	return err
}

func (a *GetirAdapter) orderAction(ctx context.Context, cfg *delivery.PlatformConfig, method, path string, body any) error {
	_, _, err := a.client.Do(ctx, Request{
		Method:  method,
		URL:     a.baseURL + path,
		Headers: a.authHeaders(cfg),
		Body:    body,
	})
	return err
}

func (a *GetirAdapter) authHeaders(cfg *delivery.PlatformConfig) map[string]string {
	return map[string]string{"token": cfg.AccessToken}
}

// normalizeOrder converts kuruş amounts to major units and flattens option
// categories into modifiers.
func (a *GetirAdapter) normalizeOrder(raw *getirOrder, payload json.RawMessage) delivery.NormalizedOrder {
	items := make([]delivery.NormalizedItem, 0, len(raw.Products))
	for _, p := range raw.Products {
		quantity := p.Count
		if quantity <= 0 {
			quantity = 1
		}

		var modifiers []delivery.NormalizedModifier
		for _, cat := range p.OptionCategories {
			for _, opt := range cat.Options {
				optQuantity := opt.Count
				if optQuantity <= 0 {
					optQuantity = 1
				}
				modifiers = append(modifiers, delivery.NormalizedModifier{
					ExternalID: opt.ID,
					Name:       opt.Name,
					Quantity:   optQuantity,
					UnitPrice:  kurusToDecimal(opt.Price),
				})
			}
		}

		items = append(items, delivery.NormalizedItem{
			ExternalItemID: p.ProductID,
			Name:           p.Name,
			Quantity:       quantity,
			UnitPrice:      kurusToDecimal(p.Price),
			Modifiers:      modifiers,
		})
	}

	total := kurusToDecimal(raw.TotalPrice)
	discount := kurusToDecimal(raw.DiscountTotal)

	return delivery.NormalizedOrder{
		Platform:        delivery.PlatformGetir,
		ExternalOrderID: raw.ID,
		CustomerName:    raw.Client.Name,
		CustomerPhone:   raw.Client.ClientPhoneNumber,
		CustomerAddress: raw.Client.DeliveryAddress.Address,
		Note:            raw.ClientNote,
		Items:           items,
		TotalAmount:     total,
		DiscountAmount:  discount,
		FinalAmount:     total.Sub(discount),
		RawPayload:      payload,
		PlacedAt:        raw.CreatedAt,
	}
}

// kurusToDecimal converts a kuruş (minor unit) amount to major units.
func kurusToDecimal(v int64) decimal.Decimal {
	return decimal.New(v, -2)
}
