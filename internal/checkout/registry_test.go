package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/techstore-checkout/internal/auth"
	"github.com/angelmondragon/techstore-checkout/internal/cart"
	pkgerrors "github.com/angelmondragon/techstore-checkout/pkg/errors"
	"github.com/shopspring/decimal"
)

func TestRegistryCreateRejectsEmptyCart(t *testing.T) {
	f := newFixture()
	reg, err := NewRegistry(f.deps)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	if _, err := reg.Create(context.Background(), auth.Guest()); err == nil {
		t.Fatal("expected empty cart to be rejected")
	} else {
		assertCode(t, err, pkgerrors.CodeValidation)
	}
	if reg.Len() != 0 {
		t.Fatal("no session should be stored")
	}
}

func TestRegistryCreateAndGet(t *testing.T) {
	f := newFixture(laptop())
	reg, err := NewRegistry(f.deps)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	m, err := reg.Create(context.Background(), auth.Guest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.ID() == "" {
		t.Fatal("expected generated id")
	}
	got, err := reg.Get(m.ID())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != m {
		t.Fatal("expected the same session")
	}

	_, err = reg.Get("missing")
	assertCode(t, err, pkgerrors.CodeNotFound)

	reg.Discard(m.ID())
	if _, err := reg.Get(m.ID()); err == nil {
		t.Fatal("discarded session should be gone")
	}
}

func TestRegistryExpiresIdleSessions(t *testing.T) {
	f := newFixture(laptop())
	now := time.Now()
	reg, err := NewRegistry(f.deps, WithSessionTTL(time.Minute), withClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	m, err := reg.Create(context.Background(), auth.Guest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	now = now.Add(30 * time.Second)
	if _, err := reg.Get(m.ID()); err != nil {
		t.Fatalf("session should still be live: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if removed := reg.Sweep(); removed != 1 {
		t.Fatalf("expected one expired session, got %d", removed)
	}
	_, err = reg.Get(m.ID())
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestRegistryRequotesAfterCartChanges(t *testing.T) {
	f := newFixture(laptop())
	reg, err := NewRegistry(f.deps, WithQuoteDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	defer reg.Close()
	stop := reg.Watch(f.cart)
	defer stop()

	m, err := reg.Create(context.Background(), auth.Identity{Token: "tok", Email: "a@b.co", Phone: "1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := m.SetAddress(context.Background(), fullAddress()); err != nil {
		t.Fatalf("set address: %v", err)
	}
	if f.quotes.callCount() != 1 {
		t.Fatalf("expected initial quote, got %d", f.quotes.callCount())
	}

	// a burst of changes collapses into a single re-quote
	mouse := cart.Item{ID: "p-2", Name: "Mouse", Price: decimal.RequireFromString("25.00"), Quantity: 1}
	f.cart.set(laptop(), mouse)
	mouse.Quantity = 2
	f.cart.set(laptop(), mouse)

	deadline := time.Now().Add(2 * time.Second)
	for f.quotes.callCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(60 * time.Millisecond)
	if got := f.quotes.callCount(); got != 2 {
		t.Fatalf("expected one debounced re-quote, got %d total calls", got)
	}
	f.quotes.mu.Lock()
	value := f.quotes.values[1]
	f.quotes.mu.Unlock()
	if !value.Equal(decimal.RequireFromString("249.99")) {
		t.Fatalf("re-quote should use the new subtotal, got %s", value)
	}
}

func TestRegistryCloseRejectsNewSessions(t *testing.T) {
	f := newFixture(laptop())
	reg, err := NewRegistry(f.deps)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	reg.Close()
	_, err = reg.Create(context.Background(), auth.Guest())
	assertCode(t, err, pkgerrors.CodeStateConflict)
	if reg.Len() != 0 {
		t.Fatal("closed registry should hold no sessions")
	}
}
