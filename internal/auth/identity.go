// Package auth resolves the shopper's identity from the storefront bearer token.
//
// The storefront issues and verifies tokens; this service never holds the signing
// key, so claims are read without signature verification and only used to prefill
// contact details and pick the checkout flow. The token itself is forwarded upstream
// where it is verified.
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/techstore-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/techstore-checkout/pkg/errors"
	"github.com/golang-jwt/jwt/v5"
)

// Identity is the current shopper: either a guest or a token holder.
type Identity struct {
	Guest  bool
	Token  string
	UserID string
	Email  string
	Phone  string
	Name   string
}

// Guest returns the anonymous identity.
func Guest() Identity {
	return Identity{Guest: true}
}

func (i Identity) Flow() enums.CheckoutFlow {
	if i.Guest {
		return enums.CheckoutFlowGuest
	}
	return enums.CheckoutFlowAuthenticated
}

// Claims are the fields the storefront puts in its access tokens.
type Claims struct {
	UserID string `json:"userId,omitempty"`
	ID     string `json:"id,omitempty"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Name   string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Resolver turns an Authorization header into an Identity.
type Resolver struct {
	parser *jwt.Parser
	now    func() time.Time
}

func NewResolver() *Resolver {
	return &Resolver{parser: jwt.NewParser(), now: time.Now}
}

// Resolve returns Guest for an empty header. A bearer token that is a JWT has its
// claims read; an expired JWT is rejected. Opaque tokens are accepted as-is.
func (r *Resolver) Resolve(header string) (Identity, error) {
	token := bearerToken(header)
	if token == "" {
		return Guest(), nil
	}

	identity := Identity{Token: token}
	claims := &Claims{}
	if _, _, err := r.parser.ParseUnverified(token, claims); err != nil {
		return identity, nil
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(r.now()) {
		return Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired, please sign in again")
	}

	identity.UserID = firstNonEmpty(claims.UserID, claims.ID, claims.Subject)
	identity.Email = strings.TrimSpace(claims.Email)
	identity.Phone = strings.TrimSpace(claims.Phone)
	identity.Name = strings.TrimSpace(claims.Name)
	return identity, nil
}

func bearerToken(header string) string {
	token := strings.TrimSpace(header)
	if len(token) >= 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

type ctxKey struct{}

// WithIdentity stores identity on ctx.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, identity)
}

// FromContext returns the identity on ctx, or Guest when none was stored.
func FromContext(ctx context.Context) Identity {
	if ctx == nil {
		return Guest()
	}
	if identity, ok := ctx.Value(ctxKey{}).(Identity); ok {
		return identity
	}
	return Guest()
}
