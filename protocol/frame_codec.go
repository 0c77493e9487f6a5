// File: protocol/frame_codec.go
// Package protocol implements the exchange message codec with frame size enforcement.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A frame is a 12-byte big-endian header (type, version, payload size)
// followed by exactly payload-size raw bytes. There is no magic, padding or
// checksum: frame boundaries exist only by parsing headers.

package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/momentics/hioload-mx/api"
)

// Header is the fixed-size prefix of every frame.
type Header struct {
	Type    uint32
	Version uint32
	Size    uint32
}

// Frame is one decoded message.
type Frame struct {
	Type    uint32
	Version uint32
	Payload []byte
}

// PutHeader writes h into the first HeaderSize bytes of dst.
func PutHeader(dst []byte, h Header) {
	binary.BigEndian.PutUint32(dst[0:4], h.Type)
	binary.BigEndian.PutUint32(dst[4:8], h.Version)
	binary.BigEndian.PutUint32(dst[8:12], h.Size)
}

// ParseHeader reads a header from raw. ok is false if fewer than
// HeaderSize bytes are available.
func ParseHeader(raw []byte) (h Header, ok bool) {
	if len(raw) < HeaderSize {
		return Header{}, false
	}
	h.Type = binary.BigEndian.Uint32(raw[0:4])
	h.Version = binary.BigEndian.Uint32(raw[4:8])
	h.Size = binary.BigEndian.Uint32(raw[8:12])
	return h, true
}

// AppendFrame appends the encoding of (typ, version, payload) to dst.
func AppendFrame(dst []byte, typ, version uint32, payload []byte) []byte {
	var hdr [HeaderSize]byte
	PutHeader(hdr[:], Header{Type: typ, Version: version, Size: uint32(len(payload))})
	dst = append(dst, hdr[:]...)
	return append(dst, payload...)
}

// EncodeFrameToBytes serializes f into a newly allocated slice.
func EncodeFrameToBytes(f *Frame) []byte {
	return AppendFrame(make([]byte, 0, HeaderSize+len(f.Payload)), f.Type, f.Version, f.Payload)
}

// DecodeFrameFromBytes parses the frame at the front of raw, enforcing
// maxPayload (<= 0 disables the check).
// Returns frame, consumed bytes, and error.
// If the frame is incomplete, returns (nil, 0, nil).
// The returned payload is a copy; raw may be reused afterwards.
func DecodeFrameFromBytes(raw []byte, maxPayload int) (*Frame, int, error) {
	h, ok := ParseHeader(raw)
	if !ok {
		return nil, 0, nil
	}
	if maxPayload > 0 && uint64(h.Size) > uint64(maxPayload) {
		return nil, 0, fmt.Errorf("%w: %d > %d", api.ErrFrameTooLarge, h.Size, maxPayload)
	}
	total := HeaderSize + int(h.Size)
	if len(raw) < total {
		return nil, 0, nil
	}
	payload := make([]byte, h.Size)
	copy(payload, raw[HeaderSize:total])
	return &Frame{Type: h.Type, Version: h.Version, Payload: payload}, total, nil
}

// DecodeFrames decodes every complete frame at the front of raw and returns
// them with the total number of bytes consumed. A trailing partial frame is
// left untouched. On error the frames decoded before the bad header are
// still returned.
func DecodeFrames(raw []byte, maxPayload int) ([]*Frame, int, error) {
	var frames []*Frame
	consumed := 0
	for {
		f, n, err := DecodeFrameFromBytes(raw[consumed:], maxPayload)
		if err != nil {
			return frames, consumed, err
		}
		if f == nil {
			return frames, consumed, nil
		}
		frames = append(frames, f)
		consumed += n
	}
}
