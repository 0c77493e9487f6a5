//go:build unix

// File: mx/events.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Event records produced by one poll iteration and consumed by dispatch or Await.

package mx

import (
	"time"

	"github.com/momentics/hioload-mx/internal/timers"
)

// TimerID identifies a timer registered with OnTime.
type TimerID = timers.ID

// Event is one of DataEvent, MessageEvent, ErrorEvent, ConnectEvent,
// DisconnectEvent, TimerEvent or AwaitTimeoutEvent.
type Event interface {
	isEvent()
}

// DataEvent reports readability of a RawData descriptor.
type DataEvent struct {
	FD   int
	conn *conn
}

// MessageEvent carries one decoded frame.
type MessageEvent struct {
	FD      int
	Type    uint32
	Version uint32
	Payload []byte
	conn    *conn
}

// ErrorEvent reports a failed syscall (or a framing violation) on FD.
// Origin names the operation: "accept", "read", "write" or "frame".
type ErrorEvent struct {
	FD     int
	Origin string
	Err    error
}

// ConnectEvent reports a connection accepted on a listener.
type ConnectEvent struct {
	FD int
}

// DisconnectEvent reports a connection closed by the peer.
type DisconnectEvent struct {
	FD     int
	Origin string
}

// TimerEvent reports an elapsed user timer.
type TimerEvent struct {
	ID       TimerID
	Deadline time.Time
	handler  TimerHandler
}

// AwaitTimeoutEvent reports an elapsed Await deadline.
type AwaitTimeoutEvent struct {
	ID       TimerID
	Deadline time.Time
}

func (DataEvent) isEvent()         {}
func (MessageEvent) isEvent()      {}
func (ErrorEvent) isEvent()        {}
func (ConnectEvent) isEvent()      {}
func (DisconnectEvent) isEvent()   {}
func (TimerEvent) isEvent()        {}
func (AwaitTimeoutEvent) isEvent() {}
