package types

import (
	"fmt"
	"strings"
)

// DefaultCountry is prefilled on every new checkout form.
const DefaultCountry = "United States"

// Address is used for both shipping and billing.
type Address struct {
	FirstName   string `json:"firstName" validate:"required"`
	LastName    string `json:"lastName" validate:"required"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
	Phone       string `json:"phone,omitempty"`
	AddressLine string `json:"address" validate:"required"`
	City        string `json:"city" validate:"required"`
	State       string `json:"state" validate:"required"`
	ZipCode     string `json:"zipCode" validate:"required"`
	Country     string `json:"country" validate:"required"`
}

// Normalize trims every field and fills the default country.
func (a Address) Normalize() Address {
	a.FirstName = strings.TrimSpace(a.FirstName)
	a.LastName = strings.TrimSpace(a.LastName)
	a.Email = strings.TrimSpace(a.Email)
	a.Phone = strings.TrimSpace(a.Phone)
	a.AddressLine = strings.TrimSpace(a.AddressLine)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.ZipCode = strings.TrimSpace(a.ZipCode)
	a.Country = strings.TrimSpace(a.Country)
	if a.Country == "" {
		a.Country = DefaultCountry
	}
	return a
}

// Quotable reports whether enough of the address is known to ask for a shipping quote.
func (a Address) Quotable() bool {
	return strings.TrimSpace(a.AddressLine) != "" &&
		strings.TrimSpace(a.City) != "" &&
		strings.TrimSpace(a.State) != "" &&
		strings.TrimSpace(a.ZipCode) != ""
}

// QuoteString renders the single-line form sent to the location endpoints.
func (a Address) QuoteString() string {
	return fmt.Sprintf("%s, %s, %s %s",
		strings.TrimSpace(a.AddressLine),
		strings.TrimSpace(a.City),
		strings.TrimSpace(a.State),
		strings.TrimSpace(a.ZipCode))
}
