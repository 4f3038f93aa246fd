package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/techstore-checkout/pkg/errors"
)

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient("  "); err == nil {
		t.Fatal("expected error without base url")
	}
}

func TestClientDoSendsJSONAndDecodesData(t *testing.T) {
	var gotPath, gotAuth, gotContentType, gotKey string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotKey = r.Header.Get("Idempotency-Key")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		_, _ = w.Write([]byte(`{"success":true,"data":{"cost":12.5,"estimatedDays":4}}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL + "/")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	var out struct {
		Cost          float64 `json:"cost"`
		EstimatedDays int     `json:"estimatedDays"`
	}
	err = client.Do(context.Background(), Request{
		Method:  http.MethodPost,
		Path:    "/api/location/shipping-cost",
		Body:    map[string]any{"address": "1 Main St"},
		Token:   "tok",
		Headers: map[string]string{"Idempotency-Key": "abc"},
	}, &out)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if gotPath != "/api/location/shipping-cost" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer tok" || gotContentType != "application/json" || gotKey != "abc" {
		t.Fatalf("unexpected headers auth=%q ct=%q key=%q", gotAuth, gotContentType, gotKey)
	}
	if gotBody["address"] != "1 Main St" {
		t.Fatalf("unexpected body %v", gotBody)
	}
	if out.Cost != 12.5 || out.EstimatedDays != 4 {
		t.Fatalf("unexpected data %+v", out)
	}
}

func TestClientDoOmitsAuthForGuests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("unexpected authorization header")
		}
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	client, _ := NewClient(server.URL)
	if err := client.Do(context.Background(), Request{Path: "api/location/stores"}, nil); err != nil {
		t.Fatalf("do: %v", err)
	}
}

func TestClientDoBranchesOnSuccessFlag(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantErr bool
		message string
	}{
		{"ok status but failure envelope", http.StatusOK, `{"success":false,"message":"Product not found"}`, true, "Product not found"},
		{"error status with failure envelope", http.StatusBadRequest, `{"success":false}`, true, "storefront request failed"},
		{"created with success envelope", http.StatusCreated, `{"success":true,"data":{}}`, false, ""},
		{"non envelope body", http.StatusBadGateway, `<html>bad gateway</html>`, true, "decode storefront response"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client, _ := NewClient(server.URL)
			err := client.Do(context.Background(), Request{Path: "/x"}, nil)
			if !tc.wantErr {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeDependency {
				t.Fatalf("expected dependency error got %v", err)
			}
			if typed.Message() != tc.message {
				t.Fatalf("expected message %q got %q", tc.message, typed.Message())
			}
			if !typed.Retryable() {
				t.Fatalf("dependency errors should be retryable")
			}
		})
	}
}

func TestClientDoExposesRemoteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"success":false,"message":"out of stock"}`))
	}))
	defer server.Close()

	client, _ := NewClient(server.URL)
	err := client.Do(context.Background(), Request{Path: "/x"}, nil)
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected RemoteError in chain, got %v", err)
	}
	if remote.StatusCode != http.StatusConflict || remote.Message != "out of stock" {
		t.Fatalf("unexpected remote error %+v", remote)
	}
}

func TestClientDoTransportFailure(t *testing.T) {
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})
	client, _ := NewClient("http://storefront.test", WithHTTPClient(&http.Client{Transport: rt}))
	err := client.Do(context.Background(), Request{Path: "/x"}, nil)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error got %v", err)
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("cause missing from %v", err)
	}
}

func TestNilClient(t *testing.T) {
	var client *Client
	if err := client.Do(context.Background(), Request{}, nil); err == nil {
		t.Fatal("expected error from nil client")
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestClientDoForwardsRequestID(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(RequestIDHeader)
		_, _ = w.Write([]byte(`{"success":true,"data":{}}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	ctx := WithRequestID(context.Background(), "req-77")
	if err := client.Do(ctx, Request{Path: "/api/location/stores"}, nil); err != nil {
		t.Fatalf("do: %v", err)
	}
	if got != "req-77" {
		t.Fatalf("expected forwarded request id, got %q", got)
	}

	if err := client.Do(context.Background(), Request{Path: "/api/location/stores"}, nil); err != nil {
		t.Fatalf("do: %v", err)
	}
	if got != "" {
		t.Fatalf("no request id expected, got %q", got)
	}
}
