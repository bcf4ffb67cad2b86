package reconcile

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded is returned by a sync that was still waiting when a newer
// sync arrived.
var ErrSuperseded = errors.New("sync superseded by a newer request")

// queue admits one running sync and at most one waiting sync. A new arrival
// replaces the waiting one.
type queue struct {
	mu      sync.Mutex
	running bool
	pending *waiter
}

type waiter struct {
	// turn receives true when the waiter may run, false when it was
	// superseded. Exactly one value is ever sent.
	turn chan bool
}

func (q *queue) acquire(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.running = true
		q.mu.Unlock()
		return nil
	}
	w := &waiter{turn: make(chan bool, 1)}
	if q.pending != nil {
		q.pending.turn <- false
	}
	q.pending = w
	q.mu.Unlock()

	select {
	case ok := <-w.turn:
		if !ok {
			return ErrSuperseded
		}
		return nil
	case <-ctx.Done():
		q.mu.Lock()
		if q.pending == w {
			q.pending = nil
			q.mu.Unlock()
			return ctx.Err()
		}
		q.mu.Unlock()
		// The turn was decided while we were cancelled. Pass it on.
		if <-w.turn {
			q.release()
		}
		return ctx.Err()
	}
}

// release hands the slot to the waiting sync, if any.
func (q *queue) release() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if w := q.pending; w != nil {
		q.pending = nil
		w.turn <- true
		return
	}
	q.running = false
}

// waiting reports whether a sync is queued behind the running one.
func (q *queue) waiting() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending != nil
}
