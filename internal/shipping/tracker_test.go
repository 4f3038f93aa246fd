package shipping

import (
	"context"
	"testing"
)

func TestTrackerLastIssuedWins(t *testing.T) {
	tracker := NewTracker(nil)
	firstCtx, first := tracker.Begin(context.Background())
	_, second := tracker.Begin(context.Background())

	if firstCtx.Err() == nil {
		t.Fatal("first request should be cancelled once superseded")
	}
	// the newer response arrives first
	if !tracker.Accept(second) {
		t.Fatal("latest ticket must be accepted")
	}
	if tracker.Accept(first) {
		t.Fatal("stale ticket must be rejected")
	}
}

func TestTrackerInvalidate(t *testing.T) {
	tracker := NewTracker(nil)
	ctx, ticket := tracker.Begin(context.Background())
	tracker.Invalidate()
	if ctx.Err() == nil {
		t.Fatal("invalidate should cancel the outstanding request")
	}
	if tracker.Accept(ticket) {
		t.Fatal("invalidated ticket must be rejected")
	}
}

func TestTrackerFinishReleasesContext(t *testing.T) {
	tracker := NewTracker(nil)
	ctx, ticket := tracker.Begin(context.Background())
	if !tracker.Accept(ticket) {
		t.Fatal("expected ticket accepted")
	}
	tracker.Finish(ticket)
	if ctx.Err() == nil {
		t.Fatal("finish should release the request context")
	}
	if !tracker.Accept(ticket) {
		t.Fatal("finishing must not supersede the ticket")
	}
}
