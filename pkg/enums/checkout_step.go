package enums

import "fmt"

// CheckoutStep is a state of the checkout step machine.
type CheckoutStep string

const (
	CheckoutStepContactInfo     CheckoutStep = "contact_info"
	CheckoutStepShippingAddress CheckoutStep = "shipping_address"
	CheckoutStepPaymentReview   CheckoutStep = "payment_review"
	CheckoutStepSubmitting      CheckoutStep = "submitting"
	CheckoutStepSucceeded       CheckoutStep = "succeeded"
	CheckoutStepFailed          CheckoutStep = "failed"
)

var validCheckoutSteps = []CheckoutStep{
	CheckoutStepContactInfo,
	CheckoutStepShippingAddress,
	CheckoutStepPaymentReview,
	CheckoutStepSubmitting,
	CheckoutStepSucceeded,
	CheckoutStepFailed,
}

// String implements fmt.Stringer.
func (c CheckoutStep) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CheckoutStep.
func (c CheckoutStep) IsValid() bool {
	for _, candidate := range validCheckoutSteps {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (c CheckoutStep) IsTerminal() bool {
	return c == CheckoutStepSucceeded
}

// ParseCheckoutStep converts raw input into a CheckoutStep.
func ParseCheckoutStep(value string) (CheckoutStep, error) {
	for _, candidate := range validCheckoutSteps {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout step %q", value)
}
