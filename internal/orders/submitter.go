package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/angelmondragon/techstore-checkout/internal/cart"
	"github.com/angelmondragon/techstore-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/techstore-checkout/pkg/errors"
	"github.com/angelmondragon/techstore-checkout/pkg/logger"
	"github.com/angelmondragon/techstore-checkout/pkg/metrics"
	"github.com/angelmondragon/techstore-checkout/pkg/storefront"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	authenticatedOrderPath = "/api/orders"
	guestOrderPath         = "/api/guest/order"
	idempotencyHeader      = "Idempotency-Key"
	defaultFailureMessage  = "Failed to place order. Please try again."
)

// ErrSubmitInFlight rejects a submission while another one is pending.
var ErrSubmitInFlight = errors.New("an order submission is already in progress")

// CartClearer empties the cart after a successful order.
type CartClearer interface {
	Clear(ctx context.Context) (cart.State, error)
}

// Result is the created order as returned by the order API.
type Result struct {
	OrderNumber string             `json:"orderNumber"`
	FinalAmount decimal.Decimal    `json:"finalAmount"`
	Flow        enums.CheckoutFlow `json:"flow"`
	GuestEmail  string             `json:"guestEmail,omitempty"`
	Order       json.RawMessage    `json:"order,omitempty"`
}

// Submitter posts orders to the storefront. At most one submission is in flight.
type Submitter struct {
	api      *storefront.Client
	cart     CartClearer
	logg     *logger.Logger
	metrics  *metrics.CheckoutMetrics
	newKey   func() string
	inFlight atomic.Bool
}

// Option configures optional submitter behavior.
type Option func(*Submitter)

func WithLogger(logg *logger.Logger) Option {
	return func(s *Submitter) {
		if logg != nil {
			s.logg = logg
		}
	}
}

func WithMetrics(m *metrics.CheckoutMetrics) Option {
	return func(s *Submitter) { s.metrics = m }
}

func NewSubmitter(api *storefront.Client, clearer CartClearer, opts ...Option) (*Submitter, error) {
	if api == nil {
		return nil, fmt.Errorf("storefront client required")
	}
	if clearer == nil {
		return nil, fmt.Errorf("cart clearer required")
	}
	s := &Submitter{
		api:    api,
		cart:   clearer,
		logg:   logger.Nop(),
		newKey: uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Submit validates draft, creates the order and clears the cart on success. Validation
// failures never reach the network; remote failures leave the cart untouched.
func (s *Submitter) Submit(ctx context.Context, items []cart.Item, draft Draft) (Result, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeConflict, ErrSubmitInFlight, "order submission already in progress")
	}
	defer s.inFlight.Store(false)

	flow := draft.Identity.Flow()
	ctx = s.logg.WithFlow(ctx, flow.String())
	started := time.Now()

	order, err := Build(items, draft)
	if err != nil {
		s.metrics.ObserveSubmission(flow.String(), "rejected", time.Since(started))
		return Result{}, err
	}

	path := authenticatedOrderPath
	token := draft.Identity.Token
	if draft.Identity.Guest {
		path = guestOrderPath
		token = ""
	}
	key := s.newKey()
	ctx = s.logg.WithFields(ctx, map[string]any{"idempotency_key": key, "items": len(order.Items)})

	var data struct {
		Order json.RawMessage `json:"order"`
	}
	err = s.api.Do(ctx, storefront.Request{
		Method:  http.MethodPost,
		Path:    path,
		Body:    order,
		Token:   token,
		Headers: map[string]string{idempotencyHeader: key},
	}, &data)
	if err != nil {
		s.metrics.ObserveSubmission(flow.String(), "failure", time.Since(started))
		s.logg.Error(ctx, "order submission failed", err)
		return Result{}, failure(err)
	}

	result, err := decodeResult(data.Order)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "reason", err.Error()), "order created but response could not be decoded")
	}
	result.Flow = flow
	if draft.Identity.Guest {
		result.GuestEmail = order.GuestEmail
	}
	s.metrics.ObserveSubmission(flow.String(), "success", time.Since(started))
	s.logg.Info(s.logg.WithField(ctx, "order_number", result.OrderNumber), "order created")

	if _, err := s.cart.Clear(ctx); err != nil {
		s.logg.Error(ctx, "failed to clear cart after order", err)
	}
	return result, nil
}

// InFlight reports whether a submission is pending.
func (s *Submitter) InFlight() bool {
	return s.inFlight.Load()
}

func decodeResult(raw json.RawMessage) (Result, error) {
	result := Result{Order: raw}
	if len(raw) == 0 {
		return result, errors.New("response has no order")
	}
	var fields struct {
		OrderNumber string              `json:"orderNumber"`
		FinalAmount decimal.NullDecimal `json:"finalAmount"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return result, err
	}
	result.OrderNumber = fields.OrderNumber
	if fields.FinalAmount.Valid {
		result.FinalAmount = fields.FinalAmount.Decimal
	}
	return result, nil
}

// failure keeps the storefront's message when it sent one so the shopper sees why.
func failure(err error) error {
	var remote *storefront.RemoteError
	message := defaultFailureMessage
	if errors.As(err, &remote) && remote.Message != "" {
		message = remote.Message
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
