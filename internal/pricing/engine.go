// Package pricing computes order subtotal, shipping, tax and total.
//
// All arithmetic keeps full decimal precision; values are rounded to cents only by
// the presentation helpers (Summary.Display, Money).
package pricing

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/techstore-checkout/internal/shipping"
	"github.com/angelmondragon/techstore-checkout/pkg/config"
	"github.com/angelmondragon/techstore-checkout/pkg/enums"
	"github.com/shopspring/decimal"
)

// Engine holds the pricing constants. It is immutable and safe for concurrent use.
type Engine struct {
	taxRate             decimal.Decimal
	freeShippingMinimum decimal.Decimal
	standardFallback    decimal.Decimal
	expressFallback     decimal.Decimal
	expressMultiplier   decimal.Decimal
}

// DefaultConfig mirrors the storefront's published rates.
func DefaultConfig() config.PricingConfig {
	return config.PricingConfig{
		TaxRate:              "0.10",
		FreeShippingMinimum:  "500",
		StandardFallbackFee:  "29.99",
		ExpressFallbackFee:   "49.99",
		ExpressFeeMultiplier: "1.5",
	}
}

func NewEngine(cfg config.PricingConfig) (*Engine, error) {
	parse := func(name, raw string) (decimal.Decimal, error) {
		value, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return decimal.Zero, fmt.Errorf("pricing %s: %w", name, err)
		}
		if value.IsNegative() {
			return decimal.Zero, fmt.Errorf("pricing %s must be non-negative", name)
		}
		return value, nil
	}

	var (
		e   Engine
		err error
	)
	if e.taxRate, err = parse("tax rate", cfg.TaxRate); err != nil {
		return nil, err
	}
	if e.freeShippingMinimum, err = parse("free shipping minimum", cfg.FreeShippingMinimum); err != nil {
		return nil, err
	}
	if e.standardFallback, err = parse("standard fallback fee", cfg.StandardFallbackFee); err != nil {
		return nil, err
	}
	if e.expressFallback, err = parse("express fallback fee", cfg.ExpressFallbackFee); err != nil {
		return nil, err
	}
	if e.expressMultiplier, err = parse("express multiplier", cfg.ExpressFeeMultiplier); err != nil {
		return nil, err
	}
	return &e, nil
}

// Default returns an engine built from DefaultConfig.
func Default() *Engine {
	e, err := NewEngine(DefaultConfig())
	if err != nil {
		panic(err)
	}
	return e
}

// ShippingFee prices delivery. quote is nil when no quote is available.
func (e *Engine) ShippingFee(subtotal decimal.Decimal, option enums.DeliveryOption, quote *shipping.Quote) decimal.Decimal {
	switch option {
	case enums.DeliveryOptionPickup:
		return decimal.Zero
	case enums.DeliveryOptionExpress:
		if quote != nil {
			return quote.Cost.Mul(e.expressMultiplier)
		}
		return e.expressFallback
	default:
		if quote != nil {
			return quote.Cost
		}
		if subtotal.GreaterThan(e.freeShippingMinimum) {
			return decimal.Zero
		}
		return e.standardFallback
	}
}

// Tax is a flat rate on the subtotal.
func (e *Engine) Tax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(e.taxRate)
}

func (e *Engine) Total(subtotal decimal.Decimal, option enums.DeliveryOption, quote *shipping.Quote) decimal.Decimal {
	return subtotal.Add(e.ShippingFee(subtotal, option, quote)).Add(e.Tax(subtotal))
}

// Summary is the full-precision price breakdown of an order.
type Summary struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

func (e *Engine) Breakdown(subtotal decimal.Decimal, option enums.DeliveryOption, quote *shipping.Quote) Summary {
	fee := e.ShippingFee(subtotal, option, quote)
	tax := e.Tax(subtotal)
	return Summary{
		Subtotal: subtotal,
		Shipping: fee,
		Tax:      tax,
		Total:    subtotal.Add(fee).Add(tax),
	}
}

// DisplaySummary is Summary rounded to cents for presentation.
type DisplaySummary struct {
	Subtotal string `json:"subtotal"`
	Shipping string `json:"shipping"`
	Tax      string `json:"tax"`
	Total    string `json:"total"`
	FreeShip bool   `json:"freeShipping"`
}

func (s Summary) Display() DisplaySummary {
	return DisplaySummary{
		Subtotal: Money(s.Subtotal),
		Shipping: Money(s.Shipping),
		Tax:      Money(s.Tax),
		Total:    Money(s.Total),
		FreeShip: s.Shipping.IsZero(),
	}
}

// Money formats an amount with two decimals.
func Money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
