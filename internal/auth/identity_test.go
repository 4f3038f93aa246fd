package auth

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/techstore-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/techstore-checkout/pkg/errors"
	"github.com/golang-jwt/jwt/v5"
)

func signed(t *testing.T, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("storefront-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestResolveEmptyHeaderIsGuest(t *testing.T) {
	identity, err := NewResolver().Resolve("  ")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !identity.Guest || identity.Flow() != enums.CheckoutFlowGuest {
		t.Fatalf("expected guest identity got %+v", identity)
	}
}

func TestResolveReadsClaims(t *testing.T) {
	token := signed(t, Claims{
		ID:    "user-1",
		Email: "ada@example.com",
		Phone: "555-0100",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	identity, err := NewResolver().Resolve("Bearer " + token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if identity.Guest || identity.Flow() != enums.CheckoutFlowAuthenticated {
		t.Fatalf("expected authenticated identity")
	}
	if identity.Token != token || identity.UserID != "user-1" || identity.Email != "ada@example.com" || identity.Phone != "555-0100" {
		t.Fatalf("unexpected identity %+v", identity)
	}
}

func TestResolveSubjectFallback(t *testing.T) {
	token := signed(t, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "sub-9"}})
	identity, err := NewResolver().Resolve("bearer " + token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if identity.UserID != "sub-9" {
		t.Fatalf("expected subject as user id got %q", identity.UserID)
	}
}

func TestResolveRejectsExpiredToken(t *testing.T) {
	token := signed(t, Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}})
	_, err := NewResolver().Resolve("Bearer " + token)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized got %v", err)
	}
}

func TestResolveOpaqueToken(t *testing.T) {
	identity, err := NewResolver().Resolve("Bearer opaque-session-token")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if identity.Guest || identity.Token != "opaque-session-token" || identity.Email != "" {
		t.Fatalf("unexpected identity %+v", identity)
	}
}

func TestIdentityContext(t *testing.T) {
	if !FromContext(context.Background()).Guest {
		t.Fatal("missing identity should default to guest")
	}
	ctx := WithIdentity(context.Background(), Identity{Token: "t"})
	if got := FromContext(ctx); got.Guest || got.Token != "t" {
		t.Fatalf("unexpected identity %+v", got)
	}
}
