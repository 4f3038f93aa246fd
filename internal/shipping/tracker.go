package shipping

import (
	"context"
	"sync"

	"github.com/angelmondragon/techstore-checkout/pkg/metrics"
)

// Tracker orders quote requests so the last one issued wins regardless of the order
// responses arrive in. Starting a request cancels the one before it.
type Tracker struct {
	mu      sync.Mutex
	seq     uint64
	cancel  context.CancelFunc
	metrics *metrics.CheckoutMetrics
}

// Ticket identifies one issued request.
type Ticket struct {
	seq uint64
}

func NewTracker(m *metrics.CheckoutMetrics) *Tracker {
	return &Tracker{metrics: m}
}

// Begin issues a new request. The returned context is cancelled when a newer
// request begins or the tracker is invalidated.
func (t *Tracker) Begin(parent context.Context) (context.Context, Ticket) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
	}
	t.seq++
	ctx, cancel := context.WithCancel(parent)
	t.cancel = cancel
	return ctx, Ticket{seq: t.seq}
}

// Accept reports whether ticket is still the latest request. Superseded responses
// are counted and must be dropped by the caller.
func (t *Tracker) Accept(ticket Ticket) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ticket.seq != t.seq {
		t.metrics.IncStaleQuote()
		return false
	}
	return true
}

// Finish releases the context of ticket if it is still current.
func (t *Tracker) Finish(ticket Ticket) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ticket.seq == t.seq && t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

// Invalidate supersedes every outstanding request without issuing a new one.
func (t *Tracker) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.seq++
}
