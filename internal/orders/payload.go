package orders

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/angelmondragon/techstore-checkout/internal/auth"
	"github.com/angelmondragon/techstore-checkout/internal/cart"
	"github.com/angelmondragon/techstore-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/techstore-checkout/pkg/errors"
	"github.com/angelmondragon/techstore-checkout/pkg/types"
	"github.com/go-playground/validator/v10"
)

// Payment is the payment selection. Card fields are only checked for presence and
// are never forwarded to the order API.
type Payment struct {
	Method     enums.PaymentMethod `json:"paymentMethod" validate:"required"`
	CardNumber string              `json:"cardNumber,omitempty" validate:"required_if=Method card"`
	ExpiryDate string              `json:"expiryDate,omitempty" validate:"required_if=Method card"`
	CVV        string              `json:"cvv,omitempty" validate:"required_if=Method card"`
	NameOnCard string              `json:"nameOnCard,omitempty" validate:"required_if=Method card"`
}

// Draft is everything collected by checkout that goes into an order.
type Draft struct {
	Identity       auth.Identity
	Address        types.Address
	Payment        Payment
	DeliveryOption enums.DeliveryOption
	Notes          string
}

// LineItem is one order line as the order API expects it.
type LineItem struct {
	ProductID string      `json:"productId"`
	Name      string      `json:"name"`
	Price     json.Number `json:"price"`
	Quantity  int         `json:"quantity"`
	Image     string      `json:"image,omitempty"`
	Brand     string      `json:"brand,omitempty"`
	Category  string      `json:"category,omitempty"`
}

// Order is the create-order request body.
type Order struct {
	Items           []LineItem           `json:"items"`
	ShippingAddress types.Address        `json:"shippingAddress"`
	BillingAddress  types.Address        `json:"billingAddress"`
	PaymentMethod   enums.PaymentMethod  `json:"paymentMethod"`
	DeliveryOption  enums.DeliveryOption `json:"deliveryOption"`
	CustomerNotes   string               `json:"customerNotes,omitempty"`
	GuestEmail      string               `json:"guestEmail,omitempty"`
	GuestPhone      string               `json:"guestPhone,omitempty"`
}

type contactRules struct {
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return v
}

// Build validates draft against the cart snapshot and assembles the order. It fails
// with a VALIDATION_ERROR carrying field-level reasons and performs no I/O.
func Build(items []cart.Item, draft Draft) (Order, error) {
	if len(items) == 0 {
		return Order{}, pkgerrors.New(pkgerrors.CodeValidation, "your cart is empty")
	}

	address := draft.Address.Normalize()
	details := map[string]string{}
	collect(details, validate.Struct(address))
	collect(details, validate.Struct(contactRules{Email: address.Email, Phone: address.Phone}))
	if len(details) > 0 {
		return Order{}, pkgerrors.New(pkgerrors.CodeValidation, "Please fill in all required fields").WithDetails(details)
	}

	payment := draft.Payment
	if payment.Method == "" {
		payment.Method = enums.PaymentMethodCard
	}
	if !payment.Method.IsValid() {
		return Order{}, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method").
			WithDetails(map[string]string{"paymentMethod": "must be one of card, paypal, cash_on_delivery"})
	}
	payment.CardNumber = strings.TrimSpace(payment.CardNumber)
	payment.ExpiryDate = strings.TrimSpace(payment.ExpiryDate)
	payment.CVV = strings.TrimSpace(payment.CVV)
	payment.NameOnCard = strings.TrimSpace(payment.NameOnCard)
	collect(details, validate.Struct(payment))
	if len(details) > 0 {
		return Order{}, pkgerrors.New(pkgerrors.CodeValidation, "Please fill in all card details").WithDetails(details)
	}

	option := draft.DeliveryOption
	if option == "" {
		option = enums.DeliveryOptionStandard
	}
	if !option.IsValid() {
		return Order{}, pkgerrors.New(pkgerrors.CodeValidation, "unsupported delivery option").
			WithDetails(map[string]string{"deliveryOption": "must be one of standard, express, pickup"})
	}

	order := Order{
		Items:           lineItems(items),
		ShippingAddress: address,
		BillingAddress:  address,
		PaymentMethod:   payment.Method,
		DeliveryOption:  option,
		CustomerNotes:   strings.TrimSpace(draft.Notes),
	}
	if draft.Identity.Guest {
		order.GuestEmail = address.Email
		order.GuestPhone = address.Phone
	} else if order.CustomerNotes == "" {
		order.CustomerNotes = "Delivery: " + option.String()
	}
	return order, nil
}

func lineItems(items []cart.Item) []LineItem {
	lines := make([]LineItem, 0, len(items))
	for _, item := range items {
		lines = append(lines, LineItem{
			ProductID: item.ID,
			Name:      item.Name,
			Price:     json.Number(item.Price.String()),
			Quantity:  item.Quantity,
			Image:     item.Image,
			Brand:     item.Brand,
			Category:  item.Category,
		})
	}
	return lines
}

func collect(details map[string]string, err error) {
	if err == nil {
		return
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		details["_"] = err.Error()
		return
	}
	for _, fe := range errs {
		details[fe.Field()] = validationMessage(fe)
	}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "email":
		return "must be a valid email"
	default:
		return "is invalid"
	}
}
