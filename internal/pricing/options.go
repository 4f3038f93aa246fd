package pricing

import (
	"fmt"

	"github.com/angelmondragon/techstore-checkout/internal/shipping"
	"github.com/angelmondragon/techstore-checkout/pkg/enums"
	"github.com/shopspring/decimal"
)

// OptionView describes one delivery choice as shown at checkout.
type OptionView struct {
	Value       enums.DeliveryOption `json:"value"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Price       string               `json:"price"`
	Fee         decimal.Decimal      `json:"-"`
}

// Options renders the delivery catalogue. quote is the standard-rate quote for the
// current address, store the resolved pickup location; either may be nil.
func (e *Engine) Options(subtotal decimal.Decimal, quote *shipping.Quote, store *shipping.Store) []OptionView {
	views := make([]OptionView, 0, 3)
	for _, option := range enums.DeliveryOptions() {
		fee := e.ShippingFee(subtotal, option, quote)
		view := OptionView{Value: option, Fee: fee, Price: priceLabel(fee)}
		switch option {
		case enums.DeliveryOptionStandard:
			view.Title = "Standard Delivery"
			view.Description = "3-5 business days"
			if quote != nil {
				view.Description = businessDays(quote.EstimatedDays)
			}
		case enums.DeliveryOptionExpress:
			view.Title = "Express Delivery"
			view.Description = "1-2 business days"
			if quote != nil {
				view.Description = businessDays(max(1, quote.EstimatedDays-2))
			}
		case enums.DeliveryOptionPickup:
			view.Title = "Store Pickup"
			view.Description = "Pick up from nearest store"
			if store != nil && store.Name != "" {
				view.Description = "Pick up from " + store.Name
			}
		}
		views = append(views, view)
	}
	return views
}

func businessDays(days int) string {
	return fmt.Sprintf("%d business days", days)
}

func priceLabel(fee decimal.Decimal) string {
	if fee.IsZero() {
		return "FREE"
	}
	return "$" + Money(fee)
}
