package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/techstore-checkout/internal/auth"
	"github.com/angelmondragon/techstore-checkout/internal/cart"
	"github.com/angelmondragon/techstore-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/techstore-checkout/pkg/errors"
	"github.com/angelmondragon/techstore-checkout/pkg/logger"
	"github.com/google/uuid"
)

const (
	defaultSessionTTL    = 2 * time.Hour
	defaultQuoteDebounce = 300 * time.Millisecond
	requoteTimeout       = 10 * time.Second
)

type cartWatcher interface {
	Subscribe(fn func(cart.State)) func()
}

// Registry owns the live checkout sessions of this process.
type Registry struct {
	deps     Dependencies
	logg     *logger.Logger
	ttl      time.Duration
	debounce time.Duration
	now      func() time.Time
	newID    func() string

	mu       sync.Mutex
	sessions map[string]*Machine
	timer    *time.Timer
	closed   bool
}

type RegistryOption func(*Registry)

func WithSessionTTL(ttl time.Duration) RegistryOption {
	return func(r *Registry) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithQuoteDebounce sets how long cart changes settle before open sessions re-quote.
func WithQuoteDebounce(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d >= 0 {
			r.debounce = d
		}
	}
}

func withClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

func NewRegistry(deps Dependencies, opts ...RegistryOption) (*Registry, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	r := &Registry{
		deps:     deps,
		logg:     deps.Logger,
		ttl:      defaultSessionTTL,
		debounce: defaultQuoteDebounce,
		now:      time.Now,
		newID:    uuid.NewString,
		sessions: map[string]*Machine{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// Create starts a checkout for identity. An empty cart cannot be checked out.
func (r *Registry) Create(ctx context.Context, identity auth.Identity) (*Machine, error) {
	if r.deps.Cart.Snapshot().IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "your cart is empty")
	}
	m, err := NewMachine(r.newID(), identity, r.deps)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to start checkout")
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout is shutting down")
	}
	r.sweepLocked()
	r.sessions[m.ID()] = m
	r.mu.Unlock()

	r.logg.Info(m.context(ctx), "checkout started")
	return m, nil
}

// Get returns a live session. Expired sessions are dropped and reported as not found.
func (r *Registry) Get(id string) (*Machine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.sessions[id]
	if !ok || r.expired(m) {
		delete(r.sessions, id)
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found").
			WithDetails(map[string]string{"checkoutId": id})
	}
	return m, nil
}

func (r *Registry) Discard(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops every expired session and reports how many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweepLocked()
}

func (r *Registry) sweepLocked() int {
	removed := 0
	for id, m := range r.sessions {
		if r.expired(m) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// expired reports whether m has been idle past the TTL. A submission in progress
// never expires.
func (r *Registry) expired(m *Machine) bool {
	if m.Step() == enums.CheckoutStepSubmitting {
		return false
	}
	return r.now().Sub(m.idleSince()) > r.ttl
}

// Watch re-quotes open sessions whenever the cart changes, after the debounce
// window has passed without further changes. The returned func stops watching.
func (r *Registry) Watch(source cartWatcher) func() {
	if source == nil {
		return func() {}
	}
	return source.Subscribe(func(cart.State) { r.schedule() })
}

func (r *Registry) schedule() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.debounce, r.requoteAll)
}

func (r *Registry) requoteAll() {
	r.mu.Lock()
	live := make([]*Machine, 0, len(r.sessions))
	for _, m := range r.sessions {
		live = append(live, m)
	}
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), requoteTimeout)
	defer cancel()
	for _, m := range live {
		m.RefreshQuote(ctx)
	}
}

// Close stops pending re-quotes and rejects new sessions.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
