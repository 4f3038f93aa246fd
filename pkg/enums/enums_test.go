package enums

import "testing"

func TestParseDeliveryOption(t *testing.T) {
	for _, option := range DeliveryOptions() {
		got, err := ParseDeliveryOption(option.String())
		if err != nil || got != option {
			t.Fatalf("round trip failed for %q: %v", option, err)
		}
	}
	if _, err := ParseDeliveryOption("drone"); err == nil {
		t.Fatalf("expected error for unknown option")
	}
	if DeliveryOption("Standard").IsValid() {
		t.Fatalf("parsing is case sensitive")
	}
}

func TestParsePaymentMethod(t *testing.T) {
	if got, err := ParsePaymentMethod("cash_on_delivery"); err != nil || got != PaymentMethodCashOnDelivery {
		t.Fatalf("unexpected parse result %q %v", got, err)
	}
	if _, err := ParsePaymentMethod("bitcoin"); err == nil {
		t.Fatalf("expected error for unknown method")
	}
}

func TestCheckoutStepTerminal(t *testing.T) {
	if !CheckoutStepSucceeded.IsTerminal() {
		t.Fatalf("succeeded is terminal")
	}
	if CheckoutStepFailed.IsTerminal() {
		t.Fatalf("failed returns to payment review and is not terminal")
	}
	if _, err := ParseCheckoutStep("payment_review"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
