//go:build unix

// File: mx/engine.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Poll iteration: build fd sets, multiplex, turn readiness into events.

package mx

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-mx/api"
	"github.com/momentics/hioload-mx/control"
	"github.com/momentics/hioload-mx/internal/timers"
)

// ReadFDs fills set with every descriptor to watch for reading and returns
// the nfds argument for select(2). A RawData descriptor whose last
// readiness has not been dispatched yet is left out.
func (x *Exchange) ReadFDs(set *unix.FdSet) int {
	x.mustUsable()
	set.Zero()
	for fd, c := range x.conns {
		if c.mode == ModeRawData && c.dataQueued {
			continue
		}
		set.Set(fd)
	}
	return x.maxFD + 1
}

// WriteFDs fills set with every descriptor holding unwritten data.
func (x *Exchange) WriteFDs(set *unix.FdSet) int {
	x.mustUsable()
	set.Zero()
	for fd, c := range x.conns {
		if c.out.Len() > 0 {
			set.Set(fd)
		}
	}
	return x.maxFD + 1
}

// Timeout returns the time until the earliest timer, clamped at zero. ok is
// false when no timer is scheduled and select(2) may block indefinitely.
func (x *Exchange) Timeout() (d time.Duration, ok bool) {
	x.mustUsable()
	t, ok := x.timers.Earliest()
	if !ok {
		return 0, false
	}
	if d = time.Until(t); d < 0 {
		d = 0
	}
	return d, true
}

// ProcessSelect handles the outcome of a select(2) call made outside the
// exchange on sets obtained from ReadFDs and WriteFDs, then dispatches the
// resulting events.
func (x *Exchange) ProcessSelect(n int, r, w *unix.FdSet) error {
	x.mustUsable()
	if n < 0 {
		return api.NewError(api.ErrCodeInvalidArgument, "negative select result").WithContext("n", n)
	}
	x.waiting.spliceTo(x.pending)
	x.process(n, r, w, x.pending)
	x.deliver()
	return nil
}

// poll runs one iteration and appends the events it produces to target.
// exhausted reports that there is nothing left to wait for.
func (x *Exchange) poll(target *eventQueue) (exhausted bool, err error) {
	var r, w unix.FdSet
	for {
		if len(x.conns) == 0 && x.timers.Len() == 0 {
			return true, nil
		}
		nfd := x.ReadFDs(&r)
		x.WriteFDs(&w)
		timeout := time.Duration(-1)
		if d, ok := x.Timeout(); ok {
			timeout = d
		}

		n, err := x.mux.Select(nfd, &r, &w, timeout)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			x.log.Error("select failed", zap.Int("nfd", nfd), zap.Error(err))
			return false, &api.EngineError{Op: "select", Err: err}
		}
		x.process(n, &r, &w, target)
		return false, nil
	}
}

type readyFD struct {
	c        *conn
	readable bool
	writable bool
}

// process turns a select(2) result into events. A zero result fires only
// the earliest timer. Otherwise ready descriptors are handled in ascending
// order, write before read, and an entry removed or replaced while earlier
// work ran is skipped.
func (x *Exchange) process(n int, r, w *unix.FdSet, target *eventQueue) {
	x.count(control.MetricPolls, 1)
	if n == 0 {
		x.fireEarliest(target)
		return
	}

	ready := make([]readyFD, 0, n)
	for fd := 0; fd <= x.maxFD; fd++ {
		c, ok := x.conns[fd]
		if !ok {
			continue
		}
		rd := readyFD{c: c, readable: r != nil && r.IsSet(fd), writable: w != nil && w.IsSet(fd)}
		if rd.readable || rd.writable {
			ready = append(ready, rd)
		}
	}
	x.log.Debug("poll", zap.Int("ready", n), zap.Int("handled", len(ready)))

	for _, rd := range ready {
		fd := rd.c.fd
		if rd.writable && x.conns[fd] == rd.c {
			x.drainWrite(rd.c, target)
		}
		if rd.readable && x.conns[fd] == rd.c {
			x.handleReadable(rd.c, target)
		}
	}
}

func (x *Exchange) fireEarliest(target *eventQueue) {
	e := x.timers.PopEarliest()
	if e == nil {
		return
	}
	x.count(control.MetricTimersFired, 1)
	if e.Kind == timers.AwaitDeadline {
		target.push(AwaitTimeoutEvent{ID: e.ID, Deadline: e.Deadline})
		return
	}
	target.push(TimerEvent{ID: e.ID, Deadline: e.Deadline, handler: e.Value})
}

// deliver dispatches until both queues are empty. An Await returning from
// a handler may leave later events of the same batch in waiting; they are
// newer than anything still pending, so pending drains first.
func (x *Exchange) deliver() {
	for x.waiting.len() > 0 || x.pending.len() > 0 {
		x.waiting.spliceTo(x.pending)
		x.drainPending()
	}
}

// drainPending dispatches pending events, including those queued by the
// handlers it runs, until the queue is empty.
func (x *Exchange) drainPending() {
	for {
		ev, ok := x.pending.pop()
		if !ok {
			return
		}
		x.dispatch(ev)
	}
}

func (x *Exchange) dispatch(ev Event) {
	switch e := ev.(type) {
	case DataEvent:
		if x.conns[e.FD] != e.conn {
			return
		}
		e.conn.dataQueued = false
		e.conn.onData(x, e.FD)
	case MessageEvent:
		if e.conn != nil && e.conn.dropped {
			return
		}
		h, ok := x.subs[e.Type]
		if !ok {
			x.log.Debug("no subscription", zap.Int("fd", e.FD), zap.Uint32("type", e.Type))
			return
		}
		h(x, e.FD, e.Type, e.Version, e.Payload)
	case ErrorEvent:
		if x.onError != nil {
			x.onError(x, e.FD, e.Origin, e.Err)
		}
	case ConnectEvent:
		if x.onConnect != nil {
			x.onConnect(x, e.FD)
		}
	case DisconnectEvent:
		if x.onDisconnect != nil {
			x.onDisconnect(x, e.FD)
		}
	case TimerEvent:
		e.handler(x, e.Deadline)
	case AwaitTimeoutEvent:
		// Deadline of an Await that already returned.
	}
}
