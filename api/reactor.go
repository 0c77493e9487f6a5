//go:build unix

// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Defines the blocking readiness primitive the exchange engine multiplexes on.

package api

import (
	"time"

	"golang.org/x/sys/unix"
)

// Multiplexer blocks until one of the descriptors in r or w is ready or the
// timeout elapses. A negative timeout blocks forever. On return r and w hold
// only the ready descriptors, with select(2) semantics: n == 0 means timeout.
type Multiplexer interface {
	Select(nfd int, r, w *unix.FdSet, timeout time.Duration) (n int, err error)
}

// MultiplexerFunc adapts a plain function to Multiplexer.
type MultiplexerFunc func(nfd int, r, w *unix.FdSet, timeout time.Duration) (int, error)

// Select calls f.
func (f MultiplexerFunc) Select(nfd int, r, w *unix.FdSet, timeout time.Duration) (int, error) {
	return f(nfd, r, w, timeout)
}
