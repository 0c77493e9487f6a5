// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Implements the length-prefixed binary framing spoken by Message-mode
// connections of the exchange.
//
// Includes:
//   - Header encoding/decoding (big-endian type, version, payload size)
//   - Incremental decoding that consumes only whole frames
//   - Payload size enforcement
package protocol
