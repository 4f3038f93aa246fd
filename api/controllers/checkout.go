package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/techstore-checkout/api/responses"
	"github.com/angelmondragon/techstore-checkout/api/validators"
	"github.com/angelmondragon/techstore-checkout/internal/auth"
	"github.com/angelmondragon/techstore-checkout/internal/checkout"
	"github.com/angelmondragon/techstore-checkout/internal/orders"
	"github.com/angelmondragon/techstore-checkout/internal/shipping"
	"github.com/angelmondragon/techstore-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/techstore-checkout/pkg/errors"
	"github.com/angelmondragon/techstore-checkout/pkg/logger"
	"github.com/angelmondragon/techstore-checkout/pkg/types"
)

// CheckoutRegistry owns checkout sessions.
type CheckoutRegistry interface {
	Create(ctx context.Context, identity auth.Identity) (*checkout.Machine, error)
	Get(id string) (*checkout.Machine, error)
}

// StoreLister lists pickup locations.
type StoreLister interface {
	Stores(ctx context.Context) ([]shipping.Store, error)
}

// CheckoutStart opens a session for the caller's identity.
func CheckoutStart(reg CheckoutRegistry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reg == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable"))
			return
		}
		m, err := reg.Create(r.Context(), auth.FromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, m.View())
	}
}

func CheckoutFetch(reg CheckoutRegistry, logg *logger.Logger) http.HandlerFunc {
	return withSession(reg, logg, func(w http.ResponseWriter, r *http.Request, m *checkout.Machine) {
		responses.WriteSuccess(w, m.View())
	})
}

func CheckoutSetContact(reg CheckoutRegistry, logg *logger.Logger) http.HandlerFunc {
	return withSession(reg, logg, func(w http.ResponseWriter, r *http.Request, m *checkout.Machine) {
		var payload contactRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeView(w, r, logg)(m.SetContact(r.Context(), payload.Email, payload.Phone))
	})
}

func CheckoutSetAddress(reg CheckoutRegistry, logg *logger.Logger) http.HandlerFunc {
	return withSession(reg, logg, func(w http.ResponseWriter, r *http.Request, m *checkout.Machine) {
		var payload addressRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeView(w, r, logg)(m.SetAddress(r.Context(), payload.toAddress()))
	})
}

func CheckoutSetPayment(reg CheckoutRegistry, logg *logger.Logger) http.HandlerFunc {
	return withSession(reg, logg, func(w http.ResponseWriter, r *http.Request, m *checkout.Machine) {
		var payload paymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeView(w, r, logg)(m.SetPayment(r.Context(), orders.Payment{
			Method:     payload.PaymentMethod,
			CardNumber: strings.TrimSpace(payload.CardNumber),
			ExpiryDate: strings.TrimSpace(payload.ExpiryDate),
			CVV:        strings.TrimSpace(payload.CVV),
			NameOnCard: validators.SanitizeString(payload.NameOnCard, 120),
		}))
	})
}

func CheckoutSetDelivery(reg CheckoutRegistry, logg *logger.Logger) http.HandlerFunc {
	return withSession(reg, logg, func(w http.ResponseWriter, r *http.Request, m *checkout.Machine) {
		var payload deliveryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		option, err := enums.ParseDeliveryOption(payload.DeliveryOption)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported delivery option"))
			return
		}
		var notes *string
		if payload.Notes != nil {
			sanitized := validators.SanitizeString(*payload.Notes, 500)
			notes = &sanitized
		}
		writeView(w, r, logg)(m.SetDelivery(r.Context(), option, notes))
	})
}

func CheckoutNext(reg CheckoutRegistry, logg *logger.Logger) http.HandlerFunc {
	return withSession(reg, logg, func(w http.ResponseWriter, r *http.Request, m *checkout.Machine) {
		writeView(w, r, logg)(m.Next(r.Context()))
	})
}

func CheckoutBack(reg CheckoutRegistry, logg *logger.Logger) http.HandlerFunc {
	return withSession(reg, logg, func(w http.ResponseWriter, r *http.Request, m *checkout.Machine) {
		writeView(w, r, logg)(m.Back(r.Context()))
	})
}

// CheckoutSubmit places the order. A failed submission answers with the error
// envelope; the session itself stays on payment review.
func CheckoutSubmit(reg CheckoutRegistry, logg *logger.Logger) http.HandlerFunc {
	return withSession(reg, logg, func(w http.ResponseWriter, r *http.Request, m *checkout.Machine) {
		view, err := m.Submit(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	})
}

func CheckoutStores(svc StoreLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "store lookup unavailable"))
			return
		}
		stores, err := svc.Stores(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if stores == nil {
			stores = []shipping.Store{}
		}
		responses.WriteSuccess(w, map[string]any{"stores": stores})
	}
}

// withSession loads the session named in the path. Sessions are only visible to
// the identity that opened them.
func withSession(reg CheckoutRegistry, logg *logger.Logger, next func(http.ResponseWriter, *http.Request, *checkout.Machine)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reg == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable"))
			return
		}
		id := chi.URLParam(r, "checkoutId")
		m, err := reg.Get(id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if m.Identity().Token != auth.FromContext(r.Context()).Token {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found"))
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithCheckoutID(ctx, m.ID())
		}
		next(w, r.WithContext(ctx), m)
	}
}

func writeView(w http.ResponseWriter, r *http.Request, logg *logger.Logger) func(checkout.View, error) {
	return func(view checkout.View, err error) {
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

type contactRequest struct {
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
}

// addressRequest accepts partial addresses; completeness is checked at submit.
type addressRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zipCode"`
	Country   string `json:"country"`
}

func (p addressRequest) toAddress() types.Address {
	return types.Address{
		FirstName:   validators.SanitizeString(p.FirstName, 100),
		LastName:    validators.SanitizeString(p.LastName, 100),
		Email:       p.Email,
		Phone:       p.Phone,
		AddressLine: validators.SanitizeString(p.Address, 200),
		City:        validators.SanitizeString(p.City, 100),
		State:       validators.SanitizeString(p.State, 100),
		ZipCode:     validators.SanitizeString(p.ZipCode, 20),
		Country:     validators.SanitizeString(p.Country, 100),
	}
}

type paymentRequest struct {
	PaymentMethod enums.PaymentMethod `json:"paymentMethod"`
	CardNumber    string              `json:"cardNumber"`
	ExpiryDate    string              `json:"expiryDate"`
	CVV           string              `json:"cvv"`
	NameOnCard    string              `json:"nameOnCard"`
}

type deliveryRequest struct {
	DeliveryOption string  `json:"deliveryOption" validate:"required"`
	Notes          *string `json:"notes"`
}
