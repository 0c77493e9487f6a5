//go:build unix

// File: mx/queue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package mx

import "github.com/eapache/queue"

// eventQueue is an ordered FIFO of events. The exchange owns two: pending
// (for dispatch) and waiting (diverted into an in-progress Await).
type eventQueue struct {
	q *queue.Queue
}

func newEventQueue() *eventQueue {
	return &eventQueue{q: queue.New()}
}

func (e *eventQueue) push(ev Event) {
	e.q.Add(ev)
}

func (e *eventQueue) pop() (Event, bool) {
	if e.q.Length() == 0 {
		return nil, false
	}
	return e.q.Remove().(Event), true
}

func (e *eventQueue) len() int {
	return e.q.Length()
}

// spliceTo moves every event to the tail of dst, preserving order.
func (e *eventQueue) spliceTo(dst *eventQueue) {
	for e.q.Length() > 0 {
		dst.q.Add(e.q.Remove())
	}
}

// reset drops all queued events.
func (e *eventQueue) reset() {
	e.q = queue.New()
}
