package shipping

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/angelmondragon/techstore-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/techstore-checkout/pkg/errors"
	"github.com/angelmondragon/techstore-checkout/pkg/logger"
	"github.com/angelmondragon/techstore-checkout/pkg/metrics"
	"github.com/angelmondragon/techstore-checkout/pkg/storefront"
	"github.com/shopspring/decimal"
)

const (
	shippingCostPath = "/api/location/shipping-cost"
	nearestStorePath = "/api/location/nearest-store"
	storesPath       = "/api/location/stores"
)

// ErrQuoteUnavailable marks a failed quote or store lookup. Callers fall back to
// default pricing instead of failing checkout.
var ErrQuoteUnavailable = errors.New("shipping quote unavailable")

// Quote is a remotely computed shipping estimate.
type Quote struct {
	Cost          decimal.Decimal `json:"cost"`
	EstimatedDays int             `json:"estimatedDays"`
}

// Store is a physical location offering pickup.
type Store struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// UnmarshalJSON accepts either "id" or "_id" and tolerates a structured address.
func (s *Store) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID        json.RawMessage `json:"id"`
		MongoID   json.RawMessage `json:"_id"`
		Name      string          `json:"name"`
		Address   json.RawMessage `json:"address"`
		Phone     string          `json:"phone"`
		Formatted string          `json:"formattedAddress"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	id := rawString(wire.ID)
	if id == "" {
		id = rawString(wire.MongoID)
	}
	address := rawString(wire.Address)
	if address == "" {
		address = strings.TrimSpace(wire.Formatted)
	}
	*s = Store{ID: id, Name: strings.TrimSpace(wire.Name), Address: address, Phone: strings.TrimSpace(wire.Phone)}
	return nil
}

func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// Client wraps the storefront location endpoints.
type Client struct {
	api     *storefront.Client
	logg    *logger.Logger
	metrics *metrics.CheckoutMetrics
}

// Option configures optional client behavior.
type Option func(*Client)

func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		if logg != nil {
			c.logg = logg
		}
	}
}

func WithMetrics(m *metrics.CheckoutMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

func NewClient(api *storefront.Client, opts ...Option) (*Client, error) {
	if api == nil {
		return nil, fmt.Errorf("storefront client required")
	}
	c := &Client{api: api, logg: logger.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

type quoteRequest struct {
	Address        string               `json:"address"`
	OrderValue     json.Number          `json:"orderValue"`
	DeliveryOption enums.DeliveryOption `json:"deliveryOption"`
}

// Quote asks for the shipping cost and delivery window of an order.
func (c *Client) Quote(ctx context.Context, address string, orderValue decimal.Decimal, option enums.DeliveryOption) (Quote, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "address is required for a shipping quote")
	}
	if !option.IsValid() {
		option = enums.DeliveryOptionStandard
	}

	var quote Quote
	err := c.api.Do(ctx, storefront.Request{
		Method: http.MethodPost,
		Path:   shippingCostPath,
		Body: quoteRequest{
			Address:        address,
			OrderValue:     json.Number(orderValue.String()),
			DeliveryOption: option,
		},
	}, &quote)
	if err != nil {
		c.metrics.IncQuote("shipping", "failure")
		return Quote{}, c.unavailable(ctx, "shipping quote", err)
	}
	if quote.Cost.IsNegative() {
		c.metrics.IncQuote("shipping", "failure")
		return Quote{}, c.unavailable(ctx, "shipping quote", fmt.Errorf("negative cost %s", quote.Cost))
	}
	if quote.EstimatedDays < 1 {
		quote.EstimatedDays = 1
	}
	c.metrics.IncQuote("shipping", "success")
	return quote, nil
}

// NearestStore resolves the pickup location closest to address.
func (c *Client) NearestStore(ctx context.Context, address string) (Store, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Store{}, pkgerrors.New(pkgerrors.CodeValidation, "address is required for a store lookup")
	}

	var data struct {
		Store *Store `json:"store"`
	}
	err := c.api.Do(ctx, storefront.Request{
		Method: http.MethodPost,
		Path:   nearestStorePath,
		Body:   map[string]string{"address": address},
	}, &data)
	if err != nil {
		c.metrics.IncQuote("nearest_store", "failure")
		return Store{}, c.unavailable(ctx, "nearest store", err)
	}
	if data.Store == nil {
		c.metrics.IncQuote("nearest_store", "failure")
		return Store{}, c.unavailable(ctx, "nearest store", errors.New("no store in response"))
	}
	c.metrics.IncQuote("nearest_store", "success")
	return *data.Store, nil
}

// Stores lists every pickup location.
func (c *Client) Stores(ctx context.Context) ([]Store, error) {
	var data struct {
		Stores []Store `json:"stores"`
	}
	if err := c.api.Do(ctx, storefront.Request{Method: http.MethodGet, Path: storesPath}, &data); err != nil {
		c.metrics.IncQuote("stores", "failure")
		return nil, c.unavailable(ctx, "store list", err)
	}
	c.metrics.IncQuote("stores", "success")
	if data.Stores == nil {
		return []Store{}, nil
	}
	return data.Stores, nil
}

func (c *Client) unavailable(ctx context.Context, what string, err error) error {
	c.logg.Warn(c.logg.WithField(ctx, "reason", err.Error()), what+" unavailable")
	return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("%w: %w", ErrQuoteUnavailable, err), what+" unavailable")
}
