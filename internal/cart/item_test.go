package cart

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestItemMarshalWritesNumericPrice(t *testing.T) {
	item := Item{ID: "a", Name: "Laptop", Price: decimal.RequireFromString("999.99"), Quantity: 2}
	data, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"price":999.99`) || !strings.Contains(string(data), `"quantity":2`) {
		t.Fatalf("unexpected encoding %s", data)
	}
	if strings.Contains(string(data), "image") {
		t.Fatalf("empty optional fields should be omitted: %s", data)
	}
}

func TestItemUnmarshalIsLenient(t *testing.T) {
	cases := []struct {
		name  string
		input string
		price string
		qty   int
	}{
		{"numbers", `{"id":"a","price":12.5,"quantity":3}`, "12.5", 3},
		{"numeric strings", `{"id":"a","price":"12.50","quantity":"3"}`, "12.5", 3},
		{"whole float quantity", `{"id":"a","price":1,"quantity":2.0}`, "1", 2},
		{"garbage price", `{"id":"a","price":"abc","quantity":1}`, "0", 1},
		{"object price", `{"id":"a","price":{"amount":1},"quantity":1}`, "0", 1},
		{"null values", `{"id":"a","price":null,"quantity":null}`, "0", 0},
		{"missing values", `{"id":"a"}`, "0", 0},
		{"fractional quantity", `{"id":"a","price":1,"quantity":2.5}`, "1", 2},
		{"fractional string quantity", `{"id":"a","price":1,"quantity":"2.9"}`, "1", 2},
		{"trailing garbage quantity", `{"id":"a","price":1,"quantity":"3abc"}`, "1", 3},
		{"non-numeric quantity", `{"id":"a","price":1,"quantity":"abc"}`, "1", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var item Item
			if err := json.Unmarshal([]byte(tc.input), &item); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if !item.Price.Equal(decimal.RequireFromString(tc.price)) {
				t.Fatalf("expected price %s got %s", tc.price, item.Price)
			}
			if item.Quantity != tc.qty {
				t.Fatalf("expected quantity %d got %d", tc.qty, item.Quantity)
			}
		})
	}
}

func TestLineTotal(t *testing.T) {
	item := Item{Price: decimal.RequireFromString("19.99"), Quantity: 3}
	if !item.LineTotal().Equal(decimal.RequireFromString("59.97")) {
		t.Fatalf("unexpected line total %s", item.LineTotal())
	}
}
