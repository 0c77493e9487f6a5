// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the readiness multiplexer of the message exchange,
// a thin select(2) wrapper over golang.org/x/sys/unix.
package reactor
