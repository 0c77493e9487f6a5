// Package buffer
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Growable byte buffer used for per-connection incoming and outgoing data.

package buffer

// Buffer accumulates bytes at the back and is consumed from the front.
// The zero value is an empty buffer ready to use.
type Buffer struct {
	bs []byte
}

func New(o ...[]byte) *Buffer {
	if len(o) > 0 {
		return &Buffer{bs: o[0]}
	}
	return &Buffer{}
}

// Write implements io.Writer.
func (b *Buffer) Write(p []byte) (int, error) {
	b.AppendBytes(p)
	return len(p), nil
}

func (b *Buffer) AppendBytes(p []byte) *Buffer {
	b.bs = append(b.bs, p...)
	return b
}

// Bytes returns the buffered data. The slice is only valid until the next
// mutating call.
func (b *Buffer) Bytes() []byte {
	return b.bs
}

func (b *Buffer) Len() int {
	return len(b.bs)
}

func (b *Buffer) Reset() {
	b.bs = b.bs[:0]
}

// DropFirstNBytes discards the first n bytes. n outside [0, Len()] is ignored.
func (b *Buffer) DropFirstNBytes(n int) *Buffer {
	if n > 0 && n <= len(b.bs) {
		if n == len(b.bs) {
			b.bs = b.bs[:0]
		} else {
			copy(b.bs, b.bs[n:])
			b.bs = b.bs[:len(b.bs)-n]
		}
	}
	return b
}
