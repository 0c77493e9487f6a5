//go:build unix

package fake

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestScriptedErrorsThenDelegate(t *testing.T) {
	m := Failing(unix.EINTR, unix.EBADF)

	_, err := m.Select(0, nil, nil, 0)
	assert.ErrorIs(t, err, unix.EINTR)
	_, err = m.Select(0, nil, nil, 0)
	assert.ErrorIs(t, err, unix.EBADF)

	n, err := m.Select(0, nil, nil, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Len(t, m.Calls, 3)
	assert.Equal(t, time.Millisecond, m.Calls[2].Timeout)
}

func TestWatched(t *testing.T) {
	var p [2]int
	require.NoError(t, unix.Pipe(p[:]))
	defer unix.Close(p[0])
	defer unix.Close(p[1])

	m := &Multiplexer{}
	var r unix.FdSet
	r.Set(p[0])
	_, err := m.Select(p[0]+1, &r, nil, 0)
	require.NoError(t, err)

	assert.True(t, m.Watched(p[0]))
	assert.False(t, m.Watched(p[1]))
}
