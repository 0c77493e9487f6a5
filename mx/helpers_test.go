//go:build unix

package mx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-mx/api"
	"github.com/momentics/hioload-mx/protocol"
)

func newExchange(t *testing.T, mux api.Multiplexer) *Exchange {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Logger = zap.NewNop()
	cfg.Multiplexer = mux
	x, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		if x.State() != StateDestroyed && !x.running {
			x.Destroy()
		}
	})
	return x
}

// socketPair returns a non-blocking descriptor registered in mode and the
// blocking peer end the test drives directly.
func socketPair(t *testing.T, x *Exchange, mode Mode) (local, peer int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	require.NoError(t, unix.SetNonblock(fds[0], true))
	_, err = x.register(fds[0], mode, true)
	require.NoError(t, err)
	t.Cleanup(func() { unix.Close(fds[1]) })
	return fds[0], fds[1]
}

func writeFrame(t *testing.T, fd int, typ, version uint32, payload string) {
	t.Helper()
	_, err := unix.Write(fd, protocol.AppendFrame(nil, typ, version, []byte(payload)))
	require.NoError(t, err)
}

// guard closes x if the scenario has not finished within d.
func guard(t *testing.T, x *Exchange, d time.Duration) {
	x.OnTime(time.Now().Add(d), func(x *Exchange, _ time.Time) {
		t.Error("exchange did not finish in time")
		x.Close()
	})
}

func drain(q *eventQueue) []Event {
	var out []Event
	for {
		ev, ok := q.pop()
		if !ok {
			return out
		}
		out = append(out, ev)
	}
}
