//go:build unix

// File: mx/conn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Connection table: one entry per watched descriptor.

package mx

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/momentics/hioload-mx/api"
	"github.com/momentics/hioload-mx/control"
	"github.com/momentics/hioload-mx/internal/buffer"
	"github.com/momentics/hioload-mx/internal/sockets"
	"github.com/momentics/hioload-mx/protocol"
	"github.com/momentics/hioload-mx/reactor"
)

// Mode selects how the engine treats readability of a descriptor.
type Mode int

const (
	// ModeListener accepts connections; each becomes a Message connection.
	ModeListener Mode = iota
	// ModeRawData reports readability to a DataHandler; the engine never reads.
	ModeRawData
	// ModeMessage reads and writes framed messages.
	ModeMessage
)

func (m Mode) String() string {
	switch m {
	case ModeListener:
		return "listener"
	case ModeRawData:
		return "raw-data"
	case ModeMessage:
		return "message"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

type conn struct {
	fd       int
	mode     Mode
	in       buffer.Buffer
	out      buffer.Buffer
	onData   DataHandler
	owned    bool // created by the exchange, closed on teardown
	datagram bool // zero-length reads are empty datagrams, not EOF

	dataQueued bool // a DataEvent for this entry has not been dispatched yet
	dropped    bool // removed on user request; queued messages are discarded
}

// register adds fd to the table. Registering an fd the table already holds
// is a programming error.
func (x *Exchange) register(fd int, mode Mode, owned bool) (*conn, error) {
	if !reactor.InRange(fd) {
		return nil, api.ErrFDOutOfRange
	}
	if c, ok := x.conns[fd]; ok {
		panic(fmt.Sprintf("mx: descriptor %d already registered as %s", fd, c.mode))
	}
	c := &conn{fd: fd, mode: mode, owned: owned}
	x.conns[fd] = c
	if fd > x.maxFD {
		x.maxFD = fd
	}
	return c, nil
}

// registerSocket registers a socket the exchange created, closing it if it
// cannot be watched.
func (x *Exchange) registerSocket(fd int, mode Mode) (*conn, error) {
	c, err := x.register(fd, mode, true)
	if err != nil {
		_ = sockets.Close(fd)
		return nil, err
	}
	return c, nil
}

// teardown removes c from the table and releases its buffers.
func (x *Exchange) teardown(c *conn, closeFD bool) {
	if x.conns[c.fd] != c {
		return
	}
	delete(x.conns, c.fd)
	if c.fd == x.maxFD {
		x.maxFD = -1
		for fd := range x.conns {
			if fd > x.maxFD {
				x.maxFD = fd
			}
		}
	}
	if closeFD {
		if err := sockets.Close(c.fd); err != nil {
			x.log.Debug("close", zap.Int("fd", c.fd), zap.Error(err))
		}
	}
	c.in.Reset()
	c.out.Reset()
}

// fail reports err on c and drops the connection without a Disconnect event.
func (x *Exchange) fail(c *conn, origin string, err error, target *eventQueue) {
	x.log.Warn("connection error", zap.Int("fd", c.fd), zap.String("origin", origin), zap.Error(err))
	x.count(control.MetricErrors, 1)
	target.push(ErrorEvent{FD: c.fd, Origin: origin, Err: err})
	x.teardown(c, c.owned)
}

// drainWrite writes as much of the outgoing buffer as the kernel accepts.
// Datagram sockets get one frame per write so frames never share a datagram.
func (x *Exchange) drainWrite(c *conn, target *eventQueue) {
	for c.out.Len() > 0 {
		chunk := c.out.Bytes()
		if c.datagram {
			h, _ := protocol.ParseHeader(chunk)
			chunk = chunk[:protocol.HeaderSize+int(h.Size)]
		}
		n, err := sockets.Write(c.fd, chunk)
		if err != nil {
			if sockets.WouldBlock(err) {
				return
			}
			x.fail(c, "write", err, target)
			return
		}
		c.out.DropFirstNBytes(n)
		x.count(control.MetricBytesOut, int64(n))
		if !c.datagram {
			return
		}
	}
}

// handleReadable acts on a readable descriptor according to its mode.
func (x *Exchange) handleReadable(c *conn, target *eventQueue) {
	switch c.mode {
	case ModeListener:
		x.accept(c, target)
	case ModeRawData:
		c.dataQueued = true
		target.push(DataEvent{FD: c.fd, conn: c})
	case ModeMessage:
		x.drainRead(c, target)
	}
}

func (x *Exchange) accept(l *conn, target *eventQueue) {
	fd, err := sockets.Accept(l.fd)
	if err != nil {
		if sockets.WouldBlock(err) {
			return
		}
		x.log.Warn("accept", zap.Int("fd", l.fd), zap.Error(err))
		x.count(control.MetricErrors, 1)
		target.push(ErrorEvent{FD: l.fd, Origin: "accept", Err: err})
		return
	}
	if _, err := x.registerSocket(fd, ModeMessage); err != nil {
		x.log.Warn("accept", zap.Int("fd", l.fd), zap.Int("conn", fd), zap.Error(err))
		x.count(control.MetricErrors, 1)
		target.push(ErrorEvent{FD: l.fd, Origin: "accept", Err: err})
		return
	}
	x.count(control.MetricAccepts, 1)
	target.push(ConnectEvent{FD: fd})
}

// drainRead performs one read and surfaces every complete frame it yields.
func (x *Exchange) drainRead(c *conn, target *eventQueue) {
	n, err := sockets.Read(c.fd, x.readBuf)
	if err != nil {
		if sockets.WouldBlock(err) {
			return
		}
		x.fail(c, "read", err, target)
		return
	}
	if n == 0 {
		if c.datagram {
			return
		}
		x.count(control.MetricDisconnects, 1)
		target.push(DisconnectEvent{FD: c.fd, Origin: "read"})
		x.teardown(c, c.owned)
		return
	}
	x.count(control.MetricBytesIn, int64(n))
	c.in.AppendBytes(x.readBuf[:n])

	frames, consumed, err := protocol.DecodeFrames(c.in.Bytes(), x.cfg.MaxPayloadSize)
	c.in.DropFirstNBytes(consumed)
	for _, f := range frames {
		target.push(MessageEvent{FD: c.fd, Type: f.Type, Version: f.Version, Payload: f.Payload, conn: c})
	}
	x.count(control.MetricMessagesIn, int64(len(frames)))
	if err != nil {
		x.fail(c, "frame", err, target)
	}
}
