package protocol_test

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-mx/api"
	"github.com/momentics/hioload-mx/protocol"
)

func TestEncodeDecodeFrame(t *testing.T) {
	payload := []byte("hello")
	data := protocol.EncodeFrameToBytes(&protocol.Frame{Type: 1, Version: 2, Payload: payload})
	require.Len(t, data, protocol.HeaderSize+len(payload))

	got, n, err := protocol.DecodeFrameFromBytes(data, protocol.MaxFramePayload)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, len(data), n)
	assert.Equal(t, uint32(1), got.Type)
	assert.Equal(t, uint32(2), got.Version)
	assert.True(t, bytes.Equal(got.Payload, payload))
}

func TestHeaderLayout(t *testing.T) {
	data := protocol.AppendFrame(nil, 0x01020304, 0x0a0b0c0d, []byte("ab"))
	assert.Equal(t, []byte{
		0x01, 0x02, 0x03, 0x04,
		0x0a, 0x0b, 0x0c, 0x0d,
		0x00, 0x00, 0x00, 0x02,
		'a', 'b',
	}, data)
}

func TestDecodeIncomplete(t *testing.T) {
	data := protocol.AppendFrame(nil, 7, 0, []byte("payload"))
	for i := 0; i < len(data); i++ {
		f, n, err := protocol.DecodeFrameFromBytes(data[:i], 0)
		assert.NoError(t, err)
		assert.Nil(t, f, "prefix of %d bytes must not decode", i)
		assert.Zero(t, n)
	}
}

func TestDecodeEmptyPayload(t *testing.T) {
	data := protocol.AppendFrame(nil, 9, 3, nil)
	f, n, err := protocol.DecodeFrameFromBytes(data, 0)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, protocol.HeaderSize, n)
	assert.Empty(t, f.Payload)
}

func TestDecodeTooLarge(t *testing.T) {
	var hdr [protocol.HeaderSize]byte
	protocol.PutHeader(hdr[:], protocol.Header{Type: 1, Size: 1 << 30})

	f, n, err := protocol.DecodeFrameFromBytes(hdr[:], protocol.MaxFramePayload)
	assert.Nil(t, f)
	assert.Zero(t, n)
	assert.True(t, errors.Is(err, api.ErrFrameTooLarge))
}

func TestDecodeFramesKeepsPartialTail(t *testing.T) {
	var data []byte
	data = protocol.AppendFrame(data, 1, 0, []byte("one"))
	data = protocol.AppendFrame(data, 2, 0, []byte("two"))
	full := len(data)
	data = protocol.AppendFrame(data, 3, 0, []byte("three"))
	data = data[:len(data)-2]

	frames, consumed, err := protocol.DecodeFrames(data, 0)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, full, consumed)
	assert.Equal(t, "one", string(frames[0].Payload))
	assert.Equal(t, "two", string(frames[1].Payload))
}

// The decoded sequence must not depend on how the byte stream is chunked.
func TestDecodeChunkingInvariance(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	var stream []byte
	var want []protocol.Frame
	for i := 0; i < 50; i++ {
		p := make([]byte, rng.Intn(40))
		rng.Read(p)
		f := protocol.Frame{Type: uint32(rng.Intn(4)), Version: uint32(i), Payload: p}
		want = append(want, f)
		stream = protocol.AppendFrame(stream, f.Type, f.Version, f.Payload)
	}

	for round := 0; round < 20; round++ {
		var buf []byte
		var got []protocol.Frame
		for rest := stream; len(rest) > 0; {
			n := 1 + rng.Intn(17)
			if n > len(rest) {
				n = len(rest)
			}
			buf = append(buf, rest[:n]...)
			rest = rest[n:]

			frames, consumed, err := protocol.DecodeFrames(buf, 0)
			require.NoError(t, err)
			for _, f := range frames {
				got = append(got, *f)
			}
			buf = buf[consumed:]
		}
		require.Len(t, got, len(want))
		for i := range want {
			assert.Equal(t, want[i].Type, got[i].Type)
			assert.Equal(t, want[i].Version, got[i].Version)
			assert.True(t, bytes.Equal(want[i].Payload, got[i].Payload))
		}
		assert.Empty(t, buf)
	}
}
