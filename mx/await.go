//go:build unix

// File: mx/await.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package mx

import (
	"time"

	"go.uber.org/zap"

	"github.com/momentics/hioload-mx/api"
	"github.com/momentics/hioload-mx/internal/timers"
)

// Await runs the engine until a message of type typ arrives on fd or
// deadline passes. Every other event produced meanwhile is queued for
// normal dispatch, in the order it occurred, once control returns to Run.
// Await may be called from inside a handler and nests.
//
// It returns api.ErrTimeout when the deadline passes, api.ErrNotConnected
// if fd is not a Message connection or the connection is lost while
// waiting, and an *api.EngineError if select(2) fails.
func (x *Exchange) Await(fd int, typ uint32, deadline time.Time) (version uint32, payload []byte, err error) {
	x.mustUsable()
	c, ok := x.conns[fd]
	if !ok || c.mode != ModeMessage {
		return 0, nil, api.ErrNotConnected
	}

	id := x.timers.Schedule(deadline, timers.AwaitDeadline, nil)
	defer x.timers.Cancel(id)

	for {
		ev, ok := x.waiting.pop()
		if !ok {
			exhausted, err := x.poll(x.waiting)
			if err != nil {
				return 0, nil, err
			}
			if exhausted {
				return 0, nil, api.ErrTimeout
			}
			continue
		}

		switch e := ev.(type) {
		case MessageEvent:
			if e.conn == c && e.Type == typ && !c.dropped {
				return e.Version, e.Payload, nil
			}
		case AwaitTimeoutEvent:
			if e.ID == id {
				x.log.Debug("await timeout", zap.Int("fd", fd), zap.Uint32("type", typ))
				return 0, nil, api.ErrTimeout
			}
		case ErrorEvent:
			if e.FD == fd && x.conns[fd] != c {
				x.pending.push(ev)
				return 0, nil, api.ErrNotConnected
			}
		case DisconnectEvent:
			if e.FD == fd && x.conns[fd] != c {
				x.pending.push(ev)
				return 0, nil, api.ErrNotConnected
			}
		}
		x.pending.push(ev)
	}
}
