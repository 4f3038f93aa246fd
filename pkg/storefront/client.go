package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/techstore-checkout/pkg/errors"
	"github.com/angelmondragon/techstore-checkout/pkg/types"
)

const (
	defaultTimeout         = 10 * time.Second
	responseReadLimit int64 = 1 << 20
)

var errBaseURLRequired = errors.New("storefront base url is required")

// RemoteError carries a {success:false} answer from the storefront.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("storefront rejected request (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("storefront rejected request (status %d): %s", e.StatusCode, e.Message)
}

// Client talks to the remote storefront API. Every response is expected in the
// {success, data, message} envelope; success decides the outcome, not the HTTP status.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Request describes one storefront call.
type Request struct {
	Method  string
	Path    string
	Body    any
	Token   string
	Headers map[string]string
}

// Do performs req and decodes the envelope's data into out (which may be nil).
// Transport failures, undecodable bodies and {success:false} answers all return a
// DEPENDENCY_ERROR; the latter wraps a *RemoteError with the server's message.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "storefront client not configured")
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal storefront request")
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.buildURL(req.Path), body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build storefront request")
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token := strings.TrimSpace(req.Token); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	if id := RequestIDFromContext(ctx); id != "" {
		httpReq.Header.Set(RequestIDHeader, id)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute storefront request")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseReadLimit))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read storefront response")
	}

	var envelope types.RawEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %w", resp.StatusCode, err), "decode storefront response")
	}

	if !envelope.Success {
		remote := &RemoteError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(envelope.Message)}
		message := remote.Message
		if message == "" {
			message = "storefront request failed"
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, remote, message)
	}

	if out == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode storefront data")
	}
	return nil
}

func (c *Client) buildURL(path string) string {
	return fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(path, "/"))
}
