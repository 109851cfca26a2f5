// Package txqueue serializes every store transaction into a strict
// FIFO queue with at most one transaction in flight. The backing store
// only guarantees consistency for non-overlapping transactions, so the
// queue is the concurrency backbone protecting slot capacity, balance
// solvency and roster invariants from lost updates (two simultaneous
// joins on the same slot, for example). Reads are routed through the
// same queue: there is no separate read path.
package txqueue

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"github.com/aleixpons/padel-club-backend/internal/store"
)

// ErrClosed is returned when a transaction is submitted after Close.
var ErrClosed = errors.New("txqueue: closed")

type item struct {
	ctx  context.Context
	fn   func(tx store.Tx) error
	done chan error
}

// Queue admits transactions one at a time in submission order. It is
// an explicit, injectable component: construct one per store and hand
// it to every service.
type Queue struct {
	st      store.Store
	items   chan *item
	waiting atomic.Int64
	timeout time.Duration
	closed  atomic.Bool
	stopped chan struct{}
}

// New starts the single worker goroutine. depth bounds how many
// requests may wait; waitTimeout caps how long one queued request may
// wait before it is abandoned (0 disables the cap — note that a
// stalled transaction then blocks all subsequent ones indefinitely).
func New(st store.Store, depth int, waitTimeout time.Duration) *Queue {
	if depth <= 0 {
		depth = 256
	}
	q := &Queue{
		st:      st,
		items:   make(chan *item, depth),
		timeout: waitTimeout,
		stopped: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) run() {
	defer close(q.stopped)
	for it := range q.items {
		q.waiting.Add(-1)
		// A caller that gave up while queued must not have its
		// transaction started after the fact.
		if err := it.ctx.Err(); err != nil {
			it.done <- err
			continue
		}
		it.done <- q.st.Begin(it.ctx, it.fn)
	}
}

// Do submits fn and blocks until it has executed or ctx is done.
// Transactions observe each other's side effects in strict submission
// order. When the caller abandons a queued request the worker skips it;
// a transaction already started runs to completion.
func (q *Queue) Do(ctx context.Context, fn func(tx store.Tx) error) error {
	if q.closed.Load() {
		return ErrClosed
	}
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}
	it := &item{ctx: ctx, fn: fn, done: make(chan error, 1)}
	q.waiting.Add(1)
	select {
	case q.items <- it:
	case <-ctx.Done():
		q.waiting.Add(-1)
		return ctx.Err()
	}
	select {
	case err := <-it.done:
		return err
	case <-ctx.Done():
		// The worker will notice the dead context before starting, or
		// finish the transaction and drop the result into the buffered
		// channel. Either way nothing leaks.
		return ctx.Err()
	}
}

// WaitCount reports how many requests are queued but not yet started.
// Exposed for troubleshooting.
func (q *Queue) WaitCount() int { return int(q.waiting.Load()) }

// Close stops accepting work and waits for the queue to drain. Callers
// must stop submitting before Close; it is meant for server shutdown.
func (q *Queue) Close() {
	if q.closed.Swap(true) {
		return
	}
	close(q.items)
	<-q.stopped
	if n := q.waiting.Load(); n != 0 {
		log.Printf("txqueue: closed with %d request(s) pending", n)
	}
}
