// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Exchange wire protocol constants

package protocol

const (
	// HeaderSize is the length of type + version + payload size.
	HeaderSize = 12

	// MaxFramePayload is the default upper bound on a declared payload size.
	// A peer announcing more is treated as a protocol error instead of being
	// buffered without limit.
	MaxFramePayload = 1 << 20 // 1 MiB
)
