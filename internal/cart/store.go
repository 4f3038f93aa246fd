package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/techstore-checkout/internal/persistence"
	pkgerrors "github.com/angelmondragon/techstore-checkout/pkg/errors"
	"github.com/angelmondragon/techstore-checkout/pkg/logger"
	"github.com/angelmondragon/techstore-checkout/pkg/metrics"
	"github.com/shopspring/decimal"
)

const defaultWriteTimeout = 5 * time.Second

// Store owns the cart state. Every accepted intent is persisted to the slot in the
// background and announced to subscribers.
type Store struct {
	mu    sync.RWMutex
	state State

	slot    persistence.Slot
	logg    *logger.Logger
	metrics *metrics.CheckoutMetrics
	writer  *writer

	subsMu  sync.Mutex
	subs    map[int]func(State)
	nextSub int
}

type storeOptions struct {
	logg         *logger.Logger
	metrics      *metrics.CheckoutMetrics
	writeTimeout time.Duration
}

// Option customises Open.
type Option func(*storeOptions)

func WithLogger(logg *logger.Logger) Option {
	return func(o *storeOptions) { o.logg = logg }
}

func WithMetrics(m *metrics.CheckoutMetrics) Option {
	return func(o *storeOptions) { o.metrics = m }
}

// WithWriteTimeout bounds each background slot write.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *storeOptions) {
		if d > 0 {
			o.writeTimeout = d
		}
	}
}

// Open rehydrates the cart from slot and starts the background writer. A missing
// snapshot starts empty; a snapshot that is not a JSON array is removed from the slot.
func Open(ctx context.Context, slot persistence.Slot, opts ...Option) (*Store, error) {
	if slot == nil {
		return nil, fmt.Errorf("persistence slot required")
	}
	o := storeOptions{writeTimeout: defaultWriteTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logg == nil {
		o.logg = logger.Nop()
	}

	s := &Store{
		slot:    slot,
		logg:    o.logg,
		metrics: o.metrics,
		subs:    make(map[int]func(State)),
	}
	s.state = s.rehydrate(ctx)
	s.writer = newWriter(slot, o.logg, o.metrics, o.writeTimeout)
	return s, nil
}

func (s *Store) rehydrate(ctx context.Context) State {
	empty := State{Items: []Item{}}

	data, err := s.slot.Read(ctx)
	if errors.Is(err, persistence.ErrSlotEmpty) {
		return empty
	}
	if err != nil {
		s.logg.Error(ctx, "failed to read cart snapshot, starting empty", err)
		return empty
	}

	items, err := decodeSnapshot(data)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "reason", err.Error()), "discarding corrupted cart snapshot")
		if rmErr := s.slot.Remove(ctx); rmErr != nil {
			s.logg.Error(ctx, "failed to remove corrupted cart snapshot", rmErr)
		}
		return empty
	}

	state, _ := Apply(empty, Load{Items: items})
	s.logg.Info(s.logg.WithField(ctx, "items", len(state.Items)), "cart rehydrated")
	return state
}

// decodeSnapshot accepts only a JSON array. Elements that are not objects are skipped.
func decodeSnapshot(data []byte) ([]Item, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, errors.New("snapshot is not an array")
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	items := make([]Item, 0, len(raw))
	for _, elem := range raw {
		var item Item
		if err := json.Unmarshal(elem, &item); err != nil {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func encodeSnapshot(state State) ([]byte, error) {
	items := state.Items
	if items == nil {
		items = []Item{}
	}
	return json.Marshal(items)
}

// Dispatch applies op, persists the result and notifies subscribers. Rejected intents
// leave the cart unchanged and return a validation error wrapping the cause.
func (s *Store) Dispatch(ctx context.Context, op Op) (State, error) {
	if op == nil {
		return s.Snapshot(), nil
	}

	s.mu.Lock()
	next, err := Apply(s.state, op)
	if err != nil {
		current := s.state.clone()
		s.mu.Unlock()
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"op": op.name(), "reason": err.Error()}), "cart intent rejected")
		return current, rejection(op, err)
	}
	s.state = next
	data, encErr := encodeSnapshot(next)
	if encErr == nil {
		s.writer.enqueue(data)
	}
	s.mu.Unlock()

	if encErr != nil {
		s.logg.Error(ctx, "failed to encode cart snapshot", encErr)
	}
	s.logg.Debug(s.logg.WithFields(ctx, map[string]any{"op": op.name(), "items": len(next.Items)}), "cart updated")
	s.publish(next)
	return next.clone(), nil
}

func rejection(op Op, err error) error {
	message := "invalid cart item"
	switch {
	case errors.Is(err, ErrInvalidQuantity):
		message = "quantity must be zero or greater"
	case errors.Is(err, ErrQuantityTooLarge):
		message = "quantity is too large"
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, message).
		WithDetails(map[string]string{"op": op.name(), "reason": err.Error()})
}

func (s *Store) AddItem(ctx context.Context, candidate Candidate, quantity int) (State, error) {
	return s.Dispatch(ctx, AddItem{Candidate: candidate, Quantity: quantity})
}

func (s *Store) RemoveItem(ctx context.Context, id string) (State, error) {
	return s.Dispatch(ctx, RemoveItem{ID: id})
}

func (s *Store) UpdateQuantity(ctx context.Context, id string, quantity int) (State, error) {
	return s.Dispatch(ctx, UpdateQuantity{ID: id, Quantity: quantity})
}

func (s *Store) Clear(ctx context.Context) (State, error) {
	return s.Dispatch(ctx, Clear{})
}

// VerifyItems drops every line whose id is not in validIDs.
func (s *Store) VerifyItems(ctx context.Context, validIDs []string) (State, error) {
	return s.Dispatch(ctx, VerifyItems{ValidIDs: validIDs})
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

func (s *Store) Items() []Item {
	return s.Snapshot().Items
}

func (s *Store) Item(id string) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Item(id)
}

func (s *Store) Total() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Total()
}

func (s *Store) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ItemCount()
}

// Subscribe registers fn to receive every committed state. Callbacks run on the
// dispatching goroutine after the store lock is released. The returned func unsubscribes.
func (s *Store) Subscribe(fn func(State)) func() {
	if fn == nil {
		return func() {}
	}
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

func (s *Store) publish(state State) {
	s.subsMu.Lock()
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		fn(state.clone())
	}
}

// Flush waits for every snapshot queued so far to reach the slot.
func (s *Store) Flush(ctx context.Context) error {
	return s.writer.flush(ctx)
}

// Close flushes outstanding writes and stops the background writer. Intents
// dispatched afterwards still update memory but are no longer persisted.
func (s *Store) Close(ctx context.Context) error {
	return s.writer.close(ctx)
}
