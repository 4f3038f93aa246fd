package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/techstore-checkout/api/responses"
	"github.com/angelmondragon/techstore-checkout/api/validators"
	"github.com/angelmondragon/techstore-checkout/internal/cart"
	"github.com/angelmondragon/techstore-checkout/internal/pricing"
	pkgerrors "github.com/angelmondragon/techstore-checkout/pkg/errors"
	"github.com/angelmondragon/techstore-checkout/pkg/logger"
)

// CartService is the cart surface the HTTP handlers drive.
type CartService interface {
	Snapshot() cart.State
	AddItem(ctx context.Context, candidate cart.Candidate, quantity int) (cart.State, error)
	RemoveItem(ctx context.Context, id string) (cart.State, error)
	UpdateQuantity(ctx context.Context, id string, quantity int) (cart.State, error)
	Clear(ctx context.Context) (cart.State, error)
	VerifyItems(ctx context.Context, validIDs []string) (cart.State, error)
}

func CartFetch(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart unavailable"))
			return
		}
		responses.WriteSuccess(w, newCartResponse(svc.Snapshot()))
	}
}

// CartAddItem merges a product into the cart.
func CartAddItem(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart unavailable"))
			return
		}

		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state, err := svc.AddItem(r.Context(), payload.toCandidate(), payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCartResponse(state))
	}
}

func CartUpdateQuantity(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart unavailable"))
			return
		}

		var payload updateQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state, err := svc.UpdateQuantity(r.Context(), chi.URLParam(r, "itemId"), *payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(state))
	}
}

func CartRemoveItem(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart unavailable"))
			return
		}

		state, err := svc.RemoveItem(r.Context(), chi.URLParam(r, "itemId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(state))
	}
}

func CartClear(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart unavailable"))
			return
		}

		state, err := svc.Clear(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(state))
	}
}

// CartVerify keeps only the lines the catalog still knows about.
func CartVerify(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart unavailable"))
			return
		}

		var payload verifyCartRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state, err := svc.VerifyItems(r.Context(), payload.ValidIDs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(state))
	}
}

type addCartItemRequest struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Price    *decimal.Decimal `json:"price"`
	Quantity int              `json:"quantity" validate:"max=9999"`
	Image    string           `json:"image,omitempty"`
	Brand    string           `json:"brand,omitempty"`
	Category string           `json:"category,omitempty"`
	SKU      string           `json:"sku,omitempty"`
}

func (p addCartItemRequest) toCandidate() cart.Candidate {
	return cart.Candidate{
		ID:       strings.TrimSpace(p.ID),
		Name:     validators.SanitizeString(p.Name, 200),
		Price:    p.Price,
		Image:    strings.TrimSpace(p.Image),
		Brand:    validators.SanitizeString(p.Brand, 100),
		Category: validators.SanitizeString(p.Category, 100),
		SKU:      strings.TrimSpace(p.SKU),
	}
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,max=9999"`
}

type verifyCartRequest struct {
	ValidIDs []string `json:"validIds" validate:"required"`
}

type cartResponse struct {
	Items     []cart.Item `json:"items"`
	ItemCount int         `json:"itemCount"`
	Total     string      `json:"total"`
}

func newCartResponse(state cart.State) cartResponse {
	items := state.Items
	if items == nil {
		items = []cart.Item{}
	}
	return cartResponse{
		Items:     items,
		ItemCount: state.ItemCount(),
		Total:     pricing.Money(state.Total()),
	}
}
