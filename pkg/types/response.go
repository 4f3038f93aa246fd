package types

import "encoding/json"

// Envelope is the {success, data, message} shape shared by the storefront API and
// the local HTTP surface.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// RawEnvelope defers decoding of data until success has been checked.
type RawEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}
