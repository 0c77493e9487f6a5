//go:build unix

// File: reactor/select.go
// Author: momentics <momentics@gmail.com>
//
// select(2)-based multiplexer used by the message exchange engine.

package reactor

import (
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-mx/api"
)

// MaxFD is FD_SETSIZE: the first descriptor number select(2) cannot watch.
const MaxFD = len(unix.FdSet{}.Bits) * int(unsafe.Sizeof(unix.FdSet{}.Bits[0])) * 8

// selectReactor implements api.Multiplexer on top of unix.Select.
type selectReactor struct{}

// NewSelect returns the select(2)-backed multiplexer.
func NewSelect() api.Multiplexer {
	return selectReactor{}
}

// Select blocks for at most timeout (forever if timeout < 0). Errors, EINTR
// included, are returned unchanged so the caller decides whether to retry.
func (selectReactor) Select(nfd int, r, w *unix.FdSet, timeout time.Duration) (int, error) {
	var tv *unix.Timeval
	if timeout >= 0 {
		t := unix.NsecToTimeval(timeout.Nanoseconds())
		tv = &t
	}
	n, err := unix.Select(nfd, r, w, nil, tv)
	if err != nil {
		return -1, err
	}
	return n, nil
}

// InRange reports whether fd can be placed in a select(2) set.
func InRange(fd int) bool {
	return fd >= 0 && fd < MaxFD
}
