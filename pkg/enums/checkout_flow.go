package enums

// CheckoutFlow distinguishes signed-in checkout from guest checkout.
type CheckoutFlow string

const (
	CheckoutFlowAuthenticated CheckoutFlow = "authenticated"
	CheckoutFlowGuest         CheckoutFlow = "guest"
)

// String implements fmt.Stringer.
func (c CheckoutFlow) String() string {
	return string(c)
}
