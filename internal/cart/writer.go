package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/techstore-checkout/internal/persistence"
	"github.com/angelmondragon/techstore-checkout/pkg/logger"
	"github.com/angelmondragon/techstore-checkout/pkg/metrics"
)

var errWriterClosed = errors.New("cart writer closed")

// writer persists snapshots in the background. Only the newest pending snapshot
// is written; intermediate ones are skipped.
type writer struct {
	slot    persistence.Slot
	logg    *logger.Logger
	metrics *metrics.CheckoutMetrics
	timeout time.Duration

	mu       sync.Mutex
	pending  []byte
	queued   uint64
	written  uint64
	progress chan struct{}
	closed   bool

	notify chan struct{}
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newWriter(slot persistence.Slot, logg *logger.Logger, m *metrics.CheckoutMetrics, timeout time.Duration) *writer {
	w := &writer{
		slot:     slot,
		logg:     logg,
		metrics:  m,
		timeout:  timeout,
		progress: make(chan struct{}),
		notify:   make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.run()
	return w
}

// enqueue records data as the latest snapshot and returns its sequence number.
func (w *writer) enqueue(data []byte) uint64 {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.logg.Warn(context.Background(), "cart snapshot dropped: writer closed")
		return 0
	}
	w.pending = data
	w.queued++
	seq := w.queued
	w.mu.Unlock()

	select {
	case w.notify <- struct{}{}:
	default:
	}
	return seq
}

func (w *writer) run() {
	defer close(w.done)
	for {
		select {
		case <-w.notify:
			w.drain()
		case <-w.stop:
			w.drain()
			return
		}
	}
}

func (w *writer) drain() {
	for {
		w.mu.Lock()
		if w.written >= w.queued {
			w.mu.Unlock()
			return
		}
		data, seq := w.pending, w.queued
		w.mu.Unlock()

		w.write(data)

		w.mu.Lock()
		w.written = seq
		close(w.progress)
		w.progress = make(chan struct{})
		w.mu.Unlock()
	}
}

// write leaves the previous snapshot in place on failure.
func (w *writer) write(data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	if err := w.slot.Write(ctx, data); err != nil {
		w.metrics.IncPersistFailure()
		w.logg.Error(ctx, "failed to persist cart snapshot", err)
	}
}

// flush blocks until every snapshot queued before the call has been written.
func (w *writer) flush(ctx context.Context) error {
	w.mu.Lock()
	target := w.queued
	w.mu.Unlock()

	for {
		w.mu.Lock()
		if w.written >= target {
			w.mu.Unlock()
			return nil
		}
		progress := w.progress
		w.mu.Unlock()

		select {
		case <-progress:
		case <-w.done:
			w.mu.Lock()
			caughtUp := w.written >= target
			w.mu.Unlock()
			if caughtUp {
				return nil
			}
			return errWriterClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// close drains the pending snapshot and stops the goroutine.
func (w *writer) close(ctx context.Context) error {
	w.once.Do(func() {
		w.mu.Lock()
		w.closed = true
		w.mu.Unlock()
		close(w.stop)
	})
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
