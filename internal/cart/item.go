package cart

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Item is one line of the cart: a catalog product reference plus a quantity and price snapshot.
type Item struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Image    string          `json:"image,omitempty"`
	Brand    string          `json:"brand,omitempty"`
	Category string          `json:"category,omitempty"`
	SKU      string          `json:"sku,omitempty"`
}

// LineTotal returns price × quantity, treating negative values as zero.
func (i Item) LineTotal() decimal.Decimal {
	if i.Quantity <= 0 || i.Price.IsNegative() {
		return decimal.Zero
	}
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Candidate is a product offered for addition to the cart. Price is nil when the
// catalog record did not carry one.
type Candidate struct {
	ID       string
	Name     string
	Price    *decimal.Decimal
	Image    string
	Brand    string
	Category string
	SKU      string
}

type itemWire struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    json.RawMessage `json:"price"`
	Quantity json.RawMessage `json:"quantity"`
	Image    string          `json:"image,omitempty"`
	Brand    string          `json:"brand,omitempty"`
	Category string          `json:"category,omitempty"`
	SKU      string          `json:"sku,omitempty"`
}

// MarshalJSON writes price as a bare JSON number so snapshots stay readable by the storefront UI.
func (i Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(itemWire{
		ID:       i.ID,
		Name:     i.Name,
		Price:    json.RawMessage(i.Price.String()),
		Quantity: json.RawMessage(strconv.Itoa(i.Quantity)),
		Image:    i.Image,
		Brand:    i.Brand,
		Category: i.Category,
		SKU:      i.SKU,
	})
}

// UnmarshalJSON is lenient: price and quantity may be numbers or numeric strings,
// anything else decodes to zero instead of failing the whole snapshot.
func (i *Item) UnmarshalJSON(data []byte) error {
	var wire itemWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*i = Item{
		ID:       wire.ID,
		Name:     wire.Name,
		Price:    lenientDecimal(wire.Price),
		Quantity: lenientInt(wire.Quantity),
		Image:    wire.Image,
		Brand:    wire.Brand,
		Category: wire.Category,
		SKU:      wire.SKU,
	}
	return nil
}

func lenientDecimal(raw json.RawMessage) decimal.Decimal {
	text := unquote(raw)
	if text == "" {
		return decimal.Zero
	}
	value, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero
	}
	return value
}

func lenientInt(raw json.RawMessage) int {
	text := unquote(raw)
	if text == "" {
		return 0
	}
	if value, err := strconv.Atoi(text); err == nil {
		return value
	}
	// fractional values truncate toward zero: 2.5 reads as 2
	if value, err := decimal.NewFromString(text); err == nil {
		return int(value.IntPart())
	}
	// leading digits win over trailing garbage: "3abc" reads as 3
	end := 0
	if end < len(text) && (text[end] == '-' || text[end] == '+') {
		end++
	}
	for end < len(text) && text[end] >= '0' && text[end] <= '9' {
		end++
	}
	if value, err := strconv.Atoi(text[:end]); err == nil {
		return value
	}
	return 0
}

func unquote(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
	if trimmed[0] == '{' || trimmed[0] == '[' || trimmed[0] == 't' || trimmed[0] == 'f' {
		return ""
	}
	return string(trimmed)
}
