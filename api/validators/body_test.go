package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/techstore-checkout/pkg/errors"
)

type quantityBody struct {
	Quantity *int   `json:"quantity" validate:"required,max=9999"`
	Notes    string `json:"notes,omitempty"`
}

type cityBody struct {
	City string `json:"city" validate:"required"`
}

type addressBody struct {
	Address cityBody `json:"address"`
}

func decodeDetails(t *testing.T, body string, dest any) map[string]string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	err := DecodeJSONBody(req, dest)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())

	details, ok := typed.Details().(map[string]string)
	require.True(t, ok, "details should be a field map, got %T", typed.Details())
	return details
}

func TestDecodeJSONBodyAcceptsValidPayload(t *testing.T) {
	var dest quantityBody
	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"quantity":3}`))
	require.NoError(t, DecodeJSONBody(req, &dest))
	require.Equal(t, 3, *dest.Quantity)
}

func TestDecodeJSONBodyReportsFields(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		field string
		want  string
	}{
		{"empty body", ``, "body", "is required"},
		{"malformed", `{"quantity":`, "body", "is not valid JSON"},
		{"wrong type", `{"quantity":"two"}`, "quantity", "must be a whole number"},
		{"unknown field", `{"quantity":1,"colour":"red"}`, "colour", "is not allowed"},
		{"missing", `{}`, "quantity", "is required"},
		{"too many", `{"quantity":10000}`, "quantity", "must be at most 9999"},
		{"trailing object", `{"quantity":1}{"quantity":2}`, "body", "must contain a single JSON object"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var dest quantityBody
			details := decodeDetails(t, tc.body, &dest)
			require.Equal(t, tc.want, details[tc.field], "details: %v", details)
		})
	}
}

func TestDecodeJSONBodyNamesNestedFields(t *testing.T) {
	var dest addressBody
	details := decodeDetails(t, `{"address":{}}`, &dest)
	require.Equal(t, "is required", details["address.city"], "details: %v", details)
}

func TestDecodeJSONBodyCapsSize(t *testing.T) {
	var dest quantityBody
	body := `{"quantity":1,"notes":"` + strings.Repeat("a", MaxBodyBytes) + `"}`
	details := decodeDetails(t, body, &dest)
	require.Contains(t, details["body"], "must be at most")
}
