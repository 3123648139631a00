// Package queue provides the ordered, filterable buffer between the socket
// listener and callers blocked in GetEvent.
package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/slacksocket/slacksocket/internal/event"
)

// ErrClosed is returned by PopMatching once the queue has been closed and no
// matching event remains.
var ErrClosed = errors.New("event queue closed")

// Queue is a FIFO buffer of events safe for one producer and any number of
// consumers. A filtered pop removes only the matched event; everything else
// stays put for consumers with other filters.
type Queue struct {
	mu     sync.Mutex
	items  []*event.Event
	wake   chan struct{}
	closed bool
}

// New returns an empty open queue.
func New() *Queue {
	return &Queue{wake: make(chan struct{})}
}

// Push appends an event. Pushing to a closed queue is a no-op.
func (q *Queue) Push(ev *event.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, ev)
	q.wakeLocked()
}

// PopMatching removes and returns the oldest event whose type passes the
// filter, blocking until one arrives, the queue closes, or ctx ends. Events
// ahead of the match that do not pass the filter are left in place. A ctx
// error leaves the queue untouched.
func (q *Queue) PopMatching(ctx context.Context, types ...string) (*event.Event, error) {
	q.mu.Lock()
	for {
		if ev := q.takeLocked(types); ev != nil {
			q.mu.Unlock()
			return ev, nil
		}
		if q.closed {
			q.mu.Unlock()
			return nil, ErrClosed
		}
		if err := ctx.Err(); err != nil {
			q.mu.Unlock()
			return nil, err
		}
		wake := q.wake
		q.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		q.mu.Lock()
	}
}

// Close marks the queue closed and wakes every blocked consumer. Events
// already buffered remain retrievable; Close is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.wakeLocked()
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len reports the number of buffered events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) takeLocked(types []string) *event.Event {
	for i, ev := range q.items {
		if ev.Matches(types) {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return ev
		}
	}
	return nil
}

// wakeLocked rouses all waiters by retiring the current wake channel.
func (q *Queue) wakeLocked() {
	close(q.wake)
	q.wake = make(chan struct{})
}
