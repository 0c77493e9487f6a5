//go:build unix

// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

// Package fake provides Multiplexer doubles for exchange tests.
package fake

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-mx/api"
	"github.com/momentics/hioload-mx/reactor"
)

// Call records the arguments of one Select call.
type Call struct {
	NFD     int
	Read    unix.FdSet
	Write   unix.FdSet
	Timeout time.Duration
}

// Multiplexer returns scripted errors first, then delegates to Next
// (select(2) if nil). Every call is recorded.
type Multiplexer struct {
	Errors []error
	Next   api.Multiplexer
	Calls  []Call
}

var _ api.Multiplexer = (*Multiplexer)(nil)

// Failing returns a Multiplexer whose first len(errs) calls fail.
func Failing(errs ...error) *Multiplexer {
	return &Multiplexer{Errors: errs}
}

func (m *Multiplexer) Select(nfd int, r, w *unix.FdSet, timeout time.Duration) (int, error) {
	call := Call{NFD: nfd, Timeout: timeout}
	if r != nil {
		call.Read = *r
	}
	if w != nil {
		call.Write = *w
	}
	m.Calls = append(m.Calls, call)

	if len(m.Errors) > 0 {
		err := m.Errors[0]
		m.Errors = m.Errors[1:]
		return -1, err
	}
	if m.Next == nil {
		m.Next = reactor.NewSelect()
	}
	return m.Next.Select(nfd, r, w, timeout)
}

// Watched reports whether any recorded call watched fd for reading.
func (m *Multiplexer) Watched(fd int) bool {
	for i := range m.Calls {
		if fd < m.Calls[i].NFD && m.Calls[i].Read.IsSet(fd) {
			return true
		}
	}
	return false
}
