package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/quartz"
	"golang.org/x/sync/semaphore"
)

// ErrRendezvousClosed is returned by Submit once the game is shutting down.
var ErrRendezvousClosed = errors.New("rendezvous closed")

// Outcome is the dealer's verdict on a selection.
type Outcome int

const (
	Pending Outcome = iota
	Accepted
	Rejected
	Stale
	Discarded
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	case Stale:
		return "stale"
	case Discarded:
		return "discarded"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Request is one player's selection waiting for the dealer. The outcome is
// written before done is closed, so a woken waiter always reads its own
// verdict.
type Request struct {
	rv        *Rendezvous
	player    int
	submitted time.Time
	done      chan struct{}
	outcome   Outcome // guarded by rv.mu
}

// PlayerID returns the submitting player.
func (r *Request) PlayerID() int { return r.player }

// Submitted returns when the request was published.
func (r *Request) Submitted() time.Time { return r.submitted }

// Outcome returns the verdict, or Pending before resolution.
func (r *Request) Outcome() Outcome {
	r.rv.mu.Lock()
	defer r.rv.mu.Unlock()
	return r.outcome
}

// Done is closed when the request is resolved.
func (r *Request) Done() <-chan struct{} { return r.done }

// Wait blocks until the dealer resolves the request or ctx ends.
func (r *Request) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-r.done:
		return r.Outcome(), nil
	case <-ctx.Done():
		return Pending, ctx.Err()
	}
}

// Rendezvous is the single slot through which players hand selections to the
// dealer. At most one request is in flight; later submitters block until it is
// resolved.
type Rendezvous struct {
	mu      sync.Mutex
	pending *Request
	closed  bool

	slot        *semaphore.Weighted
	wake        chan struct{}
	reshuffling atomic.Bool
	clock       quartz.Clock
}

// NewRendezvous creates an open, empty rendezvous.
func NewRendezvous(clock quartz.Clock) *Rendezvous {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Rendezvous{
		slot:  semaphore.NewWeighted(1),
		wake:  make(chan struct{}, 1),
		clock: clock,
	}
}

// Submit publishes a request for player, blocking while another request is
// in flight.
func (rv *Rendezvous) Submit(ctx context.Context, player int) (*Request, error) {
	if err := rv.slot.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	rv.mu.Lock()
	if rv.closed {
		rv.mu.Unlock()
		rv.slot.Release(1)
		return nil, ErrRendezvousClosed
	}
	req := &Request{
		rv:        rv,
		player:    player,
		submitted: rv.clock.Now(),
		done:      make(chan struct{}),
	}
	rv.pending = req
	rv.mu.Unlock()

	select {
	case rv.wake <- struct{}{}:
	default:
	}
	return req, nil
}

// Pending returns the in-flight request without blocking.
func (rv *Rendezvous) Pending() (*Request, bool) {
	rv.mu.Lock()
	defer rv.mu.Unlock()
	return rv.pending, rv.pending != nil
}

// Resolve records the outcome, frees the slot and wakes the waiter. It
// reports false when req is not the in-flight request.
func (rv *Rendezvous) Resolve(req *Request, outcome Outcome) bool {
	rv.mu.Lock()
	if req == nil || rv.pending != req {
		rv.mu.Unlock()
		return false
	}
	rv.resolveLocked(outcome)
	rv.mu.Unlock()

	rv.slot.Release(1)
	return true
}

func (rv *Rendezvous) resolveLocked(outcome Outcome) {
	rv.pending.outcome = outcome
	close(rv.pending.done)
	rv.pending = nil
}

// Wake is signalled whenever a request is published.
func (rv *Rendezvous) Wake() <-chan struct{} { return rv.wake }

// SetReshuffling tells players whether the dealer is rebuilding the table.
func (rv *Rendezvous) SetReshuffling(on bool) { rv.reshuffling.Store(on) }

// Reshuffling reports whether players must ignore their actions.
func (rv *Rendezvous) Reshuffling() bool { return rv.reshuffling.Load() }

// Close discards the in-flight request and refuses new ones. Blocked
// submitters fail with ErrRendezvousClosed as the slot frees up.
func (rv *Rendezvous) Close() {
	rv.mu.Lock()
	if rv.closed {
		rv.mu.Unlock()
		return
	}
	rv.closed = true
	hadPending := rv.pending != nil
	if hadPending {
		rv.resolveLocked(Discarded)
	}
	rv.mu.Unlock()

	if hadPending {
		rv.slot.Release(1)
	}
}
