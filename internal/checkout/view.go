package checkout

import (
	"strings"
	"time"

	"github.com/angelmondragon/techstore-checkout/internal/cart"
	"github.com/angelmondragon/techstore-checkout/internal/orders"
	"github.com/angelmondragon/techstore-checkout/internal/pricing"
	"github.com/angelmondragon/techstore-checkout/internal/shipping"
	"github.com/angelmondragon/techstore-checkout/pkg/enums"
	"github.com/angelmondragon/techstore-checkout/pkg/types"
)

// View is the read model of a checkout session. Card details are never echoed back.
type View struct {
	ID              string                 `json:"id"`
	Flow            enums.CheckoutFlow     `json:"flow"`
	Step            enums.CheckoutStep     `json:"step"`
	Form            FormView               `json:"form"`
	Items           []cart.Item            `json:"items"`
	ItemCount       int                    `json:"itemCount"`
	Pricing         pricing.DisplaySummary `json:"pricing"`
	Quote           *QuoteView             `json:"quote,omitempty"`
	Store           *shipping.Store        `json:"store,omitempty"`
	DeliveryOptions []pricing.OptionView   `json:"deliveryOptions"`
	LastOutcome     enums.CheckoutStep     `json:"lastOutcome,omitempty"`
	LastError       string                 `json:"lastError,omitempty"`
	Order           *orders.Result         `json:"order,omitempty"`
	UpdatedAt       time.Time              `json:"updatedAt"`
}

type FormView struct {
	Address        types.Address        `json:"address"`
	PaymentMethod  enums.PaymentMethod  `json:"paymentMethod"`
	CardLast4      string               `json:"cardLast4,omitempty"`
	NameOnCard     string               `json:"nameOnCard,omitempty"`
	DeliveryOption enums.DeliveryOption `json:"deliveryOption"`
	Notes          string               `json:"notes,omitempty"`
}

type QuoteView struct {
	Cost          string `json:"cost"`
	EstimatedDays int    `json:"estimatedDays"`
}

// viewLocked snapshots the session. Caller holds mu.
func (m *Machine) viewLocked() View {
	state := m.deps.Cart.Snapshot()
	subtotal := state.Total()

	view := View{
		ID:   m.id,
		Flow: m.identity.Flow(),
		Step: m.step,
		Form: FormView{
			Address:        m.form.Address,
			PaymentMethod:  m.form.Payment.Method,
			CardLast4:      last4(m.form.Payment.CardNumber),
			NameOnCard:     m.form.Payment.NameOnCard,
			DeliveryOption: m.form.DeliveryOption,
			Notes:          m.form.Notes,
		},
		Items:           state.Items,
		ItemCount:       state.ItemCount(),
		Pricing:         m.summaryLocked(state).Display(),
		Store:           m.store,
		DeliveryOptions: m.deps.Pricing.Options(subtotal, m.quote, m.store),
		LastOutcome:     m.lastOutcome,
		LastError:       m.lastError,
		Order:           m.result,
		UpdatedAt:       m.updatedAt,
	}
	if view.Items == nil {
		view.Items = []cart.Item{}
	}
	if m.quote != nil {
		view.Quote = &QuoteView{Cost: pricing.Money(m.quote.Cost), EstimatedDays: m.quote.EstimatedDays}
	}
	return view
}

func last4(number string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)
	if len(digits) < 4 {
		return ""
	}
	return digits[len(digits)-4:]
}
