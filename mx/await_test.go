//go:build unix

package mx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-mx/api"
	"github.com/momentics/hioload-mx/protocol"
)

func TestAwaitReturnsMatchingMessage(t *testing.T) {
	x := newExchange(t, nil)
	local, peer := socketPair(t, x, ModeMessage)
	x.OnMessage(4, func(*Exchange, int, uint32, uint32, []byte) {
		t.Error("awaited message must not be dispatched")
	})
	writeFrame(t, peer, 4, 7, "reply")

	version, payload, err := x.Await(local, 4, time.Now().Add(5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, uint32(7), version)
	assert.Equal(t, []byte("reply"), payload)
	assert.Equal(t, 0, x.timers.Len(), "await deadline is canceled on success")

	x.Close()
	require.NoError(t, x.Run())
}

func TestAwaitPastDeadline(t *testing.T) {
	x := newExchange(t, nil)
	local, _ := socketPair(t, x, ModeMessage)

	_, _, err := x.Await(local, 4, time.Now().Add(-time.Second))
	assert.ErrorIs(t, err, api.ErrTimeout)
	assert.Equal(t, 0, x.timers.Len())
	assert.Equal(t, 0, x.pending.len())
}

func TestAwaitTimeoutKeepsOtherMessages(t *testing.T) {
	x := newExchange(t, nil)
	local, peer := socketPair(t, x, ModeMessage)
	writeFrame(t, peer, 2, 0, "other")

	_, _, err := x.Await(local, 1, time.Now().Add(30*time.Millisecond))
	require.ErrorIs(t, err, api.ErrTimeout)
	require.Equal(t, 1, x.pending.len())

	var got string
	x.OnMessage(2, func(x *Exchange, _ int, _, _ uint32, payload []byte) {
		got = string(payload)
		x.Close()
	})
	require.NoError(t, x.Run())
	assert.Equal(t, "other", got)
}

func TestAwaitPreservesSkippedEventOrder(t *testing.T) {
	x := newExchange(t, nil)
	a, peerA := socketPair(t, x, ModeMessage)
	b, peerB := socketPair(t, x, ModeMessage)

	writeFrame(t, peerB, 5, 0, "b1")
	writeFrame(t, peerB, 5, 0, "b2")
	writeFrame(t, peerA, 7, 0, "a1")
	writeFrame(t, peerA, 3, 0, "wanted")

	_, payload, err := x.Await(a, 3, time.Now().Add(5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, []byte("wanted"), payload)

	var got []string
	record := func(x *Exchange, _ int, _, _ uint32, payload []byte) {
		got = append(got, string(payload))
		if len(got) == 3 {
			x.Close()
		}
	}
	x.OnMessage(5, record)
	x.OnMessage(7, record)
	guard(t, x, 5*time.Second)
	require.NoError(t, x.Run())

	// Ready descriptors are handled in ascending order.
	want := []string{"a1", "b1", "b2"}
	if b < a {
		want = []string{"b1", "b2", "a1"}
	}
	assert.Equal(t, want, got)
}

func TestAwaitConnectionLost(t *testing.T) {
	x := newExchange(t, nil)
	local, peer := socketPair(t, x, ModeMessage)
	require.NoError(t, unix.Close(peer))

	_, _, err := x.Await(local, 1, time.Now().Add(5*time.Second))
	assert.ErrorIs(t, err, api.ErrNotConnected)
	assert.Equal(t, 0, x.timers.Len())

	var lost []int
	x.OnDisconnect(func(_ *Exchange, fd int) { lost = append(lost, fd) })
	require.NoError(t, x.Run())
	assert.Equal(t, []int{local}, lost)
}

func TestAwaitUnknownDescriptor(t *testing.T) {
	x := newExchange(t, nil)
	_, _, err := x.Await(999, 1, time.Now().Add(time.Second))
	assert.ErrorIs(t, err, api.ErrNotConnected)
	assert.Equal(t, 0, x.timers.Len())
}

func TestAwaitFromHandler(t *testing.T) {
	x := newExchange(t, nil)
	local, peer := socketPair(t, x, ModeMessage)

	var resp string
	x.OnMessage(1, func(x *Exchange, fd int, _, _ uint32, _ []byte) {
		raw := protocol.AppendFrame(nil, 5, 0, []byte("skipped"))
		raw = protocol.AppendFrame(raw, 2, 0, []byte("response"))
		_, err := unix.Write(peer, raw)
		require.NoError(t, err)
		_, payload, err := x.Await(fd, 2, time.Now().Add(5*time.Second))
		require.NoError(t, err)
		resp = string(payload)
		x.Close()
	})
	var skipped string
	x.OnMessage(5, func(_ *Exchange, _ int, _, _ uint32, payload []byte) {
		assert.Equal(t, "response", resp, "skipped events run after the handler returns")
		skipped = string(payload)
	})
	writeFrame(t, peer, 1, 0, "request")
	guard(t, x, 5*time.Second)
	require.NoError(t, x.Run())

	assert.Equal(t, "response", resp)
	assert.Equal(t, "skipped", skipped)
	assert.False(t, x.OwnsFD(local))
}

func TestFramesAfterAwaitedReplyAreDelivered(t *testing.T) {
	x := newExchange(t, nil)
	_, peer := socketPair(t, x, ModeMessage)

	var order []string
	x.OnMessage(1, func(x *Exchange, fd int, _, _ uint32, _ []byte) {
		raw := protocol.AppendFrame(nil, 2, 0, []byte("response"))
		raw = protocol.AppendFrame(raw, 5, 0, []byte("after"))
		_, err := unix.Write(peer, raw)
		require.NoError(t, err)
		_, payload, err := x.Await(fd, 2, time.Now().Add(5*time.Second))
		require.NoError(t, err)
		order = append(order, string(payload))
	})
	x.OnMessage(5, func(x *Exchange, _ int, _, _ uint32, payload []byte) {
		order = append(order, string(payload))
		x.Close()
	})
	x.OnTime(time.Now().Add(300*time.Millisecond), func(*Exchange, time.Time) {
		order = append(order, "unrelated-timer")
	})
	guard(t, x, 5*time.Second)

	writeFrame(t, peer, 1, 0, "request")
	start := time.Now()
	require.NoError(t, x.Run())

	assert.Equal(t, []string{"response", "after"}, order)
	assert.Less(t, time.Since(start), 300*time.Millisecond)
}
