// Package timers
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Deadline-ordered timer queue of the message exchange.

package timers

import (
	"slices"
	"sort"
	"time"
)

// ID identifies a scheduled timer. IDs are never reused within a queue.
type ID uint64

// Kind separates user timers from deadlines the exchange schedules itself.
type Kind int

const (
	User Kind = iota
	AwaitDeadline
)

func (k Kind) String() string {
	if k == AwaitDeadline {
		return "await"
	}
	return "user"
}

// Entry is one scheduled timer.
type Entry[T any] struct {
	ID       ID
	Deadline time.Time
	Kind     Kind
	Value    T
}

// Queue keeps entries sorted ascending by deadline; entries with equal
// deadlines stay in insertion order. Not safe for concurrent use.
type Queue[T any] struct {
	entries []*Entry[T]
	seq     ID
}

// Schedule inserts a timer and returns its id.
func (q *Queue[T]) Schedule(deadline time.Time, kind Kind, value T) ID {
	q.seq++
	e := &Entry[T]{ID: q.seq, Deadline: deadline, Kind: kind, Value: value}
	i := sort.Search(len(q.entries), func(i int) bool {
		return q.entries[i].Deadline.After(deadline)
	})
	q.entries = slices.Insert(q.entries, i, e)
	return e.ID
}

// Cancel removes the timer with the given id. It returns false if no such
// timer is queued (never scheduled, already fired or already canceled).
func (q *Queue[T]) Cancel(id ID) bool {
	for i, e := range q.entries {
		if e.ID == id {
			q.entries = slices.Delete(q.entries, i, i+1)
			return true
		}
	}
	return false
}

// Earliest returns the deadline of the first timer, if any.
func (q *Queue[T]) Earliest() (time.Time, bool) {
	if len(q.entries) == 0 {
		return time.Time{}, false
	}
	return q.entries[0].Deadline, true
}

// PopEarliest removes and returns the first timer, or nil if the queue is empty.
func (q *Queue[T]) PopEarliest() *Entry[T] {
	if len(q.entries) == 0 {
		return nil
	}
	e := q.entries[0]
	q.entries = slices.Delete(q.entries, 0, 1)
	return e
}

// Contains reports whether id is still queued.
func (q *Queue[T]) Contains(id ID) bool {
	for _, e := range q.entries {
		if e.ID == id {
			return true
		}
	}
	return false
}

func (q *Queue[T]) Len() int {
	return len(q.entries)
}

// Clear drops every queued timer.
func (q *Queue[T]) Clear() {
	clear(q.entries)
	q.entries = q.entries[:0]
}
