//go:build unix

// File: mx/exchange.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Exchange façade: lifecycle, registration API and the Run loop.

package mx

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/momentics/hioload-mx/api"
	"github.com/momentics/hioload-mx/control"
	"github.com/momentics/hioload-mx/internal/sockets"
	"github.com/momentics/hioload-mx/internal/timers"
	"github.com/momentics/hioload-mx/logger"
	"github.com/momentics/hioload-mx/protocol"
	"github.com/momentics/hioload-mx/reactor"
)

// Handler signatures. Handlers run on the goroutine driving the exchange
// and may call any Exchange method except Destroy, including Await.
type (
	MessageHandler func(x *Exchange, fd int, typ, version uint32, payload []byte)
	DataHandler    func(x *Exchange, fd int)
	TimerHandler   func(x *Exchange, t time.Time)
	ConnHandler    func(x *Exchange, fd int)
	ErrorHandler   func(x *Exchange, fd int, origin string, err error)
)

// State is the lifecycle stage of an Exchange.
type State int

const (
	StateCreated State = iota
	StateRunning
	StateClosing
	StateClosed
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateDestroyed:
		return "destroyed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Exchange multiplexes connections, timers and message subscriptions on a
// single goroutine.
type Exchange struct {
	cfg     Config
	log     *zap.Logger
	mux     api.Multiplexer
	metrics *control.MetricsRegistry
	probes  *control.DebugProbes

	conns  map[int]*conn
	maxFD  int
	subs   map[uint32]MessageHandler
	timers timers.Queue[TimerHandler]

	pending *eventQueue
	waiting *eventQueue

	onConnect    ConnHandler
	onDisconnect ConnHandler
	onError      ErrorHandler

	state   State
	running bool
	readBuf []byte
}

// New creates an exchange with empty tables. A nil cfg means DefaultConfig.
func New(cfg *Config) (*Exchange, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := cfg.normalized()

	log := c.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	if log == nil {
		log = zap.NewNop()
	}
	mux := c.Multiplexer
	if mux == nil {
		mux = reactor.NewSelect()
	}
	metrics := c.Metrics
	if metrics == nil {
		metrics = control.NewMetricsRegistry()
	}

	x := &Exchange{
		cfg:     c,
		log:     log.Named("mx"),
		mux:     mux,
		metrics: metrics,
		probes:  control.NewDebugProbes(),
		conns:   make(map[int]*conn),
		maxFD:   -1,
		subs:    make(map[uint32]MessageHandler),
		pending: newEventQueue(),
		waiting: newEventQueue(),
		state:   StateCreated,
		readBuf: make([]byte, c.ReadBufferSize),
	}
	x.registerProbes()
	return x, nil
}

func (x *Exchange) registerProbes() {
	control.RegisterPlatformProbes(x.probes)
	x.probes.RegisterProbe("state", func() any { return x.state.String() })
	x.probes.RegisterProbe("connections", func() any { return len(x.conns) })
	x.probes.RegisterProbe("timers", func() any { return x.timers.Len() })
	x.probes.RegisterProbe("subscriptions", func() any { return len(x.subs) })
	x.probes.RegisterProbe("pending", func() any { return x.pending.len() })
	x.probes.RegisterProbe("waiting", func() any { return x.waiting.len() })
}

func (x *Exchange) mustUsable() {
	if x.state == StateDestroyed {
		panic(api.ErrExchangeClosed)
	}
}

func (x *Exchange) count(key string, delta int64) {
	if delta != 0 {
		x.metrics.Add(key, delta)
	}
}

// State returns the current lifecycle stage.
func (x *Exchange) State() State {
	return x.state
}

// Listen opens a TCP listening socket on host:port. An empty host binds all
// interfaces; port 0 lets the kernel choose (see LocalPort).
func (x *Exchange) Listen(host string, port int) (int, error) {
	x.mustUsable()
	fd, err := sockets.TCPListen(host, port, x.cfg.ListenBacklog)
	if err != nil {
		return -1, err
	}
	if _, err := x.registerSocket(fd, ModeListener); err != nil {
		return -1, err
	}
	x.log.Info("listening", zap.String("host", host), zap.Int("port", port), zap.Int("fd", fd))
	return fd, nil
}

// Connect opens a TCP connection to host:port in Message mode. The connect
// itself blocks; the socket is non-blocking afterwards.
func (x *Exchange) Connect(host string, port int) (int, error) {
	x.mustUsable()
	fd, err := sockets.TCPConnect(host, port)
	if err != nil {
		return -1, err
	}
	if _, err := x.registerSocket(fd, ModeMessage); err != nil {
		return -1, err
	}
	x.log.Debug("connected", zap.String("host", host), zap.Int("port", port), zap.Int("fd", fd))
	return fd, nil
}

// UDPListen binds a datagram socket on host:port and reads framed
// datagrams from it in Message mode.
func (x *Exchange) UDPListen(host string, port int) (int, error) {
	x.mustUsable()
	fd, err := sockets.UDPListen(host, port)
	if err != nil {
		return -1, err
	}
	c, err := x.registerSocket(fd, ModeMessage)
	if err != nil {
		return -1, err
	}
	c.datagram = true
	return fd, nil
}

// UDPConnect creates a connected datagram socket in Message mode.
func (x *Exchange) UDPConnect(host string, port int) (int, error) {
	x.mustUsable()
	fd, err := sockets.UDPConnect(host, port)
	if err != nil {
		return -1, err
	}
	c, err := x.registerSocket(fd, ModeMessage)
	if err != nil {
		return -1, err
	}
	c.datagram = true
	return fd, nil
}

// WatchRawData reports readability of a descriptor the caller owns through
// h. The exchange never reads from it. Watching an fd again replaces its
// handler.
func (x *Exchange) WatchRawData(fd int, h DataHandler) error {
	x.mustUsable()
	if h == nil {
		panic("mx: WatchRawData with nil handler")
	}
	if c, ok := x.conns[fd]; ok && c.mode == ModeRawData {
		c.onData = h
		return nil
	}
	c, err := x.register(fd, ModeRawData, false)
	if err != nil {
		return err
	}
	c.onData = h
	return nil
}

// DropRawData stops watching fd without closing it.
func (x *Exchange) DropRawData(fd int) {
	x.mustUsable()
	if c, ok := x.conns[fd]; ok && c.mode == ModeRawData {
		c.dropped = true
		x.teardown(c, false)
	}
}

// Disconnect closes fd and discards its buffers and queued messages. No
// disconnect hook runs. Safe to call from any handler.
func (x *Exchange) Disconnect(fd int) error {
	x.mustUsable()
	c, ok := x.conns[fd]
	if !ok {
		return api.ErrNotConnected
	}
	c.dropped = true
	x.teardown(c, true)
	x.count(control.MetricDisconnects, 1)
	return nil
}

// Send queues a frame on a Message connection. Bytes are written as the
// descriptor becomes writable.
func (x *Exchange) Send(fd int, typ, version uint32, payload []byte) error {
	x.mustUsable()
	c, ok := x.conns[fd]
	if !ok {
		return api.ErrNotConnected
	}
	if c.mode != ModeMessage {
		panic(fmt.Sprintf("mx: Send on %s descriptor %d", c.mode, fd))
	}
	if err := x.checkPayload(uint64(len(payload))); err != nil {
		return err
	}
	var hdr [protocol.HeaderSize]byte
	protocol.PutHeader(hdr[:], protocol.Header{Type: typ, Version: version, Size: uint32(len(payload))})
	c.out.AppendBytes(hdr[:]).AppendBytes(payload)
	x.count(control.MetricMessagesOut, 1)
	return nil
}

// checkPayload rejects sizes above the configured limit or the 32-bit
// header field, even when the limit is disabled.
func (x *Exchange) checkPayload(n uint64) error {
	if n > math.MaxUint32 || (x.cfg.MaxPayloadSize > 0 && n > uint64(x.cfg.MaxPayloadSize)) {
		return fmt.Errorf("send %d bytes: %w", n, api.ErrFrameTooLarge)
	}
	return nil
}

// OnMessage subscribes h to messages of type typ, replacing any previous
// subscription. Messages without a subscription are discarded.
func (x *Exchange) OnMessage(typ uint32, h MessageHandler) {
	x.mustUsable()
	if h == nil {
		panic("mx: OnMessage with nil handler")
	}
	x.subs[typ] = h
}

// DropMessage removes the subscription for typ.
func (x *Exchange) DropMessage(typ uint32) {
	x.mustUsable()
	delete(x.subs, typ)
}

// OnTime schedules h to run once t has passed. Timers with equal deadlines
// fire in the order they were scheduled.
func (x *Exchange) OnTime(t time.Time, h TimerHandler) TimerID {
	x.mustUsable()
	if h == nil {
		panic("mx: OnTime with nil handler")
	}
	return x.timers.Schedule(t, timers.User, h)
}

// DropTime cancels a timer. It returns false if the timer already fired or
// was never scheduled.
func (x *Exchange) DropTime(id TimerID) bool {
	x.mustUsable()
	return x.timers.Cancel(id)
}

// OnConnect sets the hook run for each accepted connection.
func (x *Exchange) OnConnect(h ConnHandler) {
	x.mustUsable()
	x.onConnect = h
}

// OnDisconnect sets the hook run when a peer closes a connection.
func (x *Exchange) OnDisconnect(h ConnHandler) {
	x.mustUsable()
	x.onDisconnect = h
}

// OnError sets the hook run for failed I/O on a descriptor.
func (x *Exchange) OnError(h ErrorHandler) {
	x.mustUsable()
	x.onError = h
}

// Run dispatches events until no descriptor and no timer remains, or
// select(2) fails. Close from a handler makes Run return after the events
// already queued have been dispatched.
func (x *Exchange) Run() error {
	x.mustUsable()
	if x.running {
		panic("mx: Run called while running")
	}
	x.running = true
	x.state = StateRunning
	defer func() { x.running = false }()

	for {
		x.deliver()

		exhausted, err := x.poll(x.pending)
		if err != nil {
			x.state = StateCreated
			return err
		}
		if exhausted {
			x.state = StateClosed
			x.log.Debug("run finished")
			return nil
		}
	}
}

// Close cancels all timers, closes every descriptor the exchange created
// and stops watching the rest. Calling it from a handler makes Run return.
func (x *Exchange) Close() {
	x.mustUsable()
	x.timers.Clear()
	for _, c := range x.conns {
		x.teardown(c, c.owned)
	}
	if x.running {
		x.state = StateClosing
	} else {
		x.state = StateClosed
	}
}

// Destroy closes the exchange and releases its tables. Any later use
// panics.
func (x *Exchange) Destroy() {
	x.mustUsable()
	if x.running {
		panic("mx: Destroy called while running")
	}
	x.Close()
	x.pending.reset()
	x.waiting.reset()
	x.subs = nil
	x.conns = nil
	x.state = StateDestroyed
}

// OwnsFD reports whether fd is in the connection table.
func (x *Exchange) OwnsFD(fd int) bool {
	x.mustUsable()
	_, ok := x.conns[fd]
	return ok
}

// Now returns the current time, the clock timers are measured against.
func (x *Exchange) Now() time.Time {
	return time.Now()
}

// LocalPort returns the local port of a socket, e.g. after Listen with port 0.
func (x *Exchange) LocalPort(fd int) (int, error) {
	x.mustUsable()
	return sockets.LocalPort(fd)
}

// Metrics returns the registry the exchange counts into.
func (x *Exchange) Metrics() *control.MetricsRegistry {
	return x.metrics
}

// DumpState returns a snapshot of the exchange internals.
func (x *Exchange) DumpState() map[string]any {
	x.mustUsable()
	return x.probes.DumpState()
}
