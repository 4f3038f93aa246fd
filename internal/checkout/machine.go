package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/techstore-checkout/internal/auth"
	"github.com/angelmondragon/techstore-checkout/internal/cart"
	"github.com/angelmondragon/techstore-checkout/internal/orders"
	"github.com/angelmondragon/techstore-checkout/internal/pricing"
	"github.com/angelmondragon/techstore-checkout/internal/shipping"
	"github.com/angelmondragon/techstore-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/techstore-checkout/pkg/errors"
	"github.com/angelmondragon/techstore-checkout/pkg/logger"
	"github.com/angelmondragon/techstore-checkout/pkg/metrics"
	"github.com/angelmondragon/techstore-checkout/pkg/types"
	"github.com/shopspring/decimal"
)

// ErrSubmitInFlight is returned when submit is called while a submission is pending.
var ErrSubmitInFlight = orders.ErrSubmitInFlight

type cartReader interface {
	Snapshot() cart.State
}

type quoter interface {
	Quote(ctx context.Context, address string, orderValue decimal.Decimal, option enums.DeliveryOption) (shipping.Quote, error)
	NearestStore(ctx context.Context, address string) (shipping.Store, error)
}

type orderSubmitter interface {
	Submit(ctx context.Context, items []cart.Item, draft orders.Draft) (orders.Result, error)
}

// Dependencies are shared by every checkout session.
type Dependencies struct {
	Cart    cartReader
	Pricing *pricing.Engine
	Quotes  quoter
	Orders  orderSubmitter
	Logger  *logger.Logger
	Metrics *metrics.CheckoutMetrics
}

func (d Dependencies) validate() error {
	if d.Cart == nil {
		return fmt.Errorf("cart required")
	}
	if d.Pricing == nil {
		return fmt.Errorf("pricing engine required")
	}
	if d.Quotes == nil {
		return fmt.Errorf("shipping quoter required")
	}
	if d.Orders == nil {
		return fmt.Errorf("order submitter required")
	}
	return nil
}

// Form is the data collected across the checkout steps.
type Form struct {
	Address        types.Address
	Payment        orders.Payment
	DeliveryOption enums.DeliveryOption
	Notes          string
}

// Machine drives one checkout: ContactInfo → ShippingAddress → PaymentReview →
// Submitting → Succeeded. A failed submission returns to PaymentReview with the
// form intact. All methods are safe for concurrent use.
type Machine struct {
	id       string
	identity auth.Identity
	deps     Dependencies
	logg     *logger.Logger
	tracker  *shipping.Tracker

	mu          sync.Mutex
	step        enums.CheckoutStep
	form        Form
	quote       *shipping.Quote
	store       *shipping.Store
	lastError   string
	lastOutcome enums.CheckoutStep
	result      *orders.Result
	updatedAt   time.Time
}

// NewMachine starts a checkout for identity. Guests begin at ContactInfo; signed-in
// shoppers skip it and have their contact details prefilled.
func NewMachine(id string, identity auth.Identity, deps Dependencies) (*Machine, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("checkout id required")
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}
	logg := deps.Logger
	if logg == nil {
		logg = logger.Nop()
	}

	step := enums.CheckoutStepShippingAddress
	if identity.Guest {
		step = enums.CheckoutStepContactInfo
	}
	return &Machine{
		id:       id,
		identity: identity,
		deps:     deps,
		logg:     logg,
		tracker:  shipping.NewTracker(deps.Metrics),
		step:     step,
		form: Form{
			Address:        types.Address{Country: types.DefaultCountry, Email: identity.Email, Phone: identity.Phone},
			Payment:        orders.Payment{Method: enums.PaymentMethodCard},
			DeliveryOption: enums.DeliveryOptionStandard,
		},
		updatedAt: time.Now(),
	}, nil
}

func (m *Machine) ID() string { return m.id }

func (m *Machine) Identity() auth.Identity { return m.identity }

func (m *Machine) Step() enums.CheckoutStep {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.step
}

func (m *Machine) context(ctx context.Context) context.Context {
	ctx = m.logg.WithCheckoutID(ctx, m.id)
	return m.logg.WithFlow(ctx, m.identity.Flow().String())
}

// editable reports whether the form may change. Caller holds mu.
func (m *Machine) editable() error {
	switch m.step {
	case enums.CheckoutStepSubmitting:
		return pkgerrors.Wrap(pkgerrors.CodeConflict, ErrSubmitInFlight, "order submission in progress")
	case enums.CheckoutStepSucceeded:
		return m.illegal("checkout already completed")
	}
	return nil
}

func (m *Machine) illegal(message string) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, message).WithDetails(map[string]any{"step": m.step})
}

func (m *Machine) touch() {
	m.updatedAt = time.Now()
	m.lastError = ""
}

// SetContact records the guest contact details.
func (m *Machine) SetContact(ctx context.Context, email, phone string) (View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.editable(); err != nil {
		return m.viewLocked(), err
	}
	m.form.Address.Email = strings.TrimSpace(email)
	m.form.Address.Phone = strings.TrimSpace(phone)
	m.touch()
	return m.viewLocked(), nil
}

// SetAddress replaces the shipping address. Empty contact fields keep their current
// value. A change to the quotable part triggers a quote refresh.
func (m *Machine) SetAddress(ctx context.Context, address types.Address) (View, error) {
	m.mu.Lock()
	if err := m.editable(); err != nil {
		view := m.viewLocked()
		m.mu.Unlock()
		return view, err
	}
	previous := m.form.Address
	next := address.Normalize()
	if next.Email == "" {
		next.Email = previous.Email
	}
	if next.Phone == "" {
		next.Phone = previous.Phone
	}
	m.form.Address = next
	m.touch()
	changed := previous.QuoteString() != next.QuoteString() || m.quote == nil
	m.mu.Unlock()

	if changed {
		m.RefreshQuote(ctx)
	}
	return m.View(), nil
}

func (m *Machine) SetPayment(ctx context.Context, payment orders.Payment) (View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.editable(); err != nil {
		return m.viewLocked(), err
	}
	if payment.Method == "" {
		payment.Method = enums.PaymentMethodCard
	}
	if !payment.Method.IsValid() {
		return m.viewLocked(), pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method").
			WithDetails(map[string]string{"paymentMethod": "must be one of card, paypal, cash_on_delivery"})
	}
	m.form.Payment = payment
	m.touch()
	return m.viewLocked(), nil
}

// SetDelivery changes the delivery option and refreshes the quote.
func (m *Machine) SetDelivery(ctx context.Context, option enums.DeliveryOption, notes *string) (View, error) {
	m.mu.Lock()
	if err := m.editable(); err != nil {
		view := m.viewLocked()
		m.mu.Unlock()
		return view, err
	}
	if !option.IsValid() {
		view := m.viewLocked()
		m.mu.Unlock()
		return view, pkgerrors.New(pkgerrors.CodeValidation, "unsupported delivery option").
			WithDetails(map[string]string{"deliveryOption": "must be one of standard, express, pickup"})
	}
	changed := m.form.DeliveryOption != option
	m.form.DeliveryOption = option
	if notes != nil {
		m.form.Notes = strings.TrimSpace(*notes)
	}
	m.touch()
	m.mu.Unlock()

	if changed {
		m.RefreshQuote(ctx)
	}
	return m.View(), nil
}

// Next advances one step. Leaving ContactInfo requires an email and a phone number.
func (m *Machine) Next(ctx context.Context) (View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.step {
	case enums.CheckoutStepContactInfo:
		details := map[string]string{}
		if strings.TrimSpace(m.form.Address.Email) == "" {
			details["email"] = "is required"
		}
		if strings.TrimSpace(m.form.Address.Phone) == "" {
			details["phone"] = "is required"
		}
		if len(details) > 0 {
			return m.viewLocked(), pkgerrors.New(pkgerrors.CodeValidation, "email and phone are required to continue").WithDetails(details)
		}
		m.step = enums.CheckoutStepShippingAddress
	case enums.CheckoutStepShippingAddress:
		m.step = enums.CheckoutStepPaymentReview
	case enums.CheckoutStepPaymentReview:
		return m.viewLocked(), m.illegal("use submit to place the order")
	default:
		if err := m.editable(); err != nil {
			return m.viewLocked(), err
		}
		return m.viewLocked(), m.illegal("cannot advance from this step")
	}
	m.touch()
	m.logg.Debug(m.logg.WithField(m.context(ctx), "step", m.step), "checkout advanced")
	return m.viewLocked(), nil
}

// Back returns to the previous step. Signed-in shoppers cannot go back to ContactInfo.
func (m *Machine) Back(ctx context.Context) (View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.step {
	case enums.CheckoutStepPaymentReview:
		m.step = enums.CheckoutStepShippingAddress
	case enums.CheckoutStepShippingAddress:
		if !m.identity.Guest {
			return m.viewLocked(), m.illegal("contact details come from your account")
		}
		m.step = enums.CheckoutStepContactInfo
	default:
		if err := m.editable(); err != nil {
			return m.viewLocked(), err
		}
		return m.viewLocked(), m.illegal("cannot go back from this step")
	}
	m.touch()
	return m.viewLocked(), nil
}

// Submit places the order. It is only allowed from PaymentReview and rejects a second
// call while the first is pending. On failure the machine returns to PaymentReview
// with the reason recorded; the cart and form are untouched.
func (m *Machine) Submit(ctx context.Context) (View, error) {
	ctx = m.context(ctx)

	m.mu.Lock()
	switch m.step {
	case enums.CheckoutStepSubmitting:
		view := m.viewLocked()
		m.mu.Unlock()
		return view, pkgerrors.Wrap(pkgerrors.CodeConflict, ErrSubmitInFlight, "order submission already in progress")
	case enums.CheckoutStepPaymentReview:
	default:
		err := m.illegal("orders can only be placed from payment review")
		view := m.viewLocked()
		m.mu.Unlock()
		return view, err
	}

	items := m.deps.Cart.Snapshot().Items
	if len(items) == 0 {
		m.lastError = "your cart is empty"
		view := m.viewLocked()
		m.mu.Unlock()
		return view, pkgerrors.New(pkgerrors.CodeValidation, "your cart is empty")
	}
	draft := orders.Draft{
		Identity:       m.identity,
		Address:        m.form.Address,
		Payment:        m.form.Payment,
		DeliveryOption: m.form.DeliveryOption,
		Notes:          m.form.Notes,
	}
	m.step = enums.CheckoutStepSubmitting
	m.lastError = ""
	m.updatedAt = time.Now()
	m.mu.Unlock()

	m.logg.Info(ctx, "submitting order")
	result, err := m.deps.Orders.Submit(ctx, items, draft)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.updatedAt = time.Now()
	if err != nil {
		m.step = enums.CheckoutStepPaymentReview
		m.lastOutcome = enums.CheckoutStepFailed
		m.lastError = failureReason(err)
		m.logg.Warn(m.logg.WithField(ctx, "reason", m.lastError), "order submission failed")
		return m.viewLocked(), err
	}
	m.step = enums.CheckoutStepSucceeded
	m.lastOutcome = enums.CheckoutStepSucceeded
	m.result = &result
	m.tracker.Invalidate()
	return m.viewLocked(), nil
}

func failureReason(err error) string {
	if typed := pkgerrors.As(err); typed != nil && typed.Message() != "" {
		return typed.Message()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "order submission was interrupted, please try again"
	}
	return "Failed to place order. Please try again."
}

// RefreshQuote requests a new shipping quote (and nearest store for pickup) for the
// current address, cart value and delivery option. Only the most recently issued request may update
// the machine; a failed quote clears it so pricing falls back to defaults.
func (m *Machine) RefreshQuote(ctx context.Context) {
	ctx = m.context(ctx)

	m.mu.Lock()
	if m.step == enums.CheckoutStepSubmitting || m.step == enums.CheckoutStepSucceeded {
		m.mu.Unlock()
		return
	}
	if !m.form.Address.Quotable() {
		m.tracker.Invalidate()
		m.quote = nil
		m.store = nil
		m.mu.Unlock()
		return
	}
	address := m.form.Address.QuoteString()
	option := m.form.DeliveryOption
	orderValue := m.deps.Cart.Snapshot().Total()
	reqCtx, ticket := m.tracker.Begin(ctx)
	m.mu.Unlock()

	quote, quoteErr := m.deps.Quotes.Quote(reqCtx, address, orderValue, option)
	var (
		store    shipping.Store
		storeErr error
	)
	if option == enums.DeliveryOptionPickup {
		store, storeErr = m.deps.Quotes.NearestStore(reqCtx, address)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.tracker.Accept(ticket) {
		m.logg.Debug(ctx, "discarding superseded shipping quote")
		return
	}
	defer m.tracker.Finish(ticket)

	if quoteErr != nil {
		m.quote = nil
	} else {
		m.quote = &quote
	}
	if option == enums.DeliveryOptionPickup && storeErr == nil {
		m.store = &store
	} else {
		m.store = nil
	}
}

// Summary prices the current cart with the selected delivery option.
func (m *Machine) Summary() pricing.Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summaryLocked(m.deps.Cart.Snapshot())
}

func (m *Machine) summaryLocked(state cart.State) pricing.Summary {
	return m.deps.Pricing.Breakdown(state.Total(), m.form.DeliveryOption, m.quote)
}

func (m *Machine) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewLocked()
}

// idleSince reports the last time the session changed.
func (m *Machine) idleSince() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updatedAt
}
