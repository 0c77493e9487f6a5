// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-mx.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	ErrNotConnected   = errors.New("mx: descriptor not connected")
	ErrTimeout        = errors.New("mx: await timed out")
	ErrFrameTooLarge  = errors.New("mx: frame payload exceeds maximum allowed size")
	ErrFDOutOfRange   = errors.New("mx: descriptor exceeds select(2) limit")
	ErrExchangeClosed = errors.New("mx: exchange destroyed")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeNotConnected
	ErrCodeTimeout
	ErrCodeProtocol
	ErrCodeSyscall
	ErrCodeInternal
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeInvalidArgument:
		return "invalid argument"
	case ErrCodeNotConnected:
		return "not connected"
	case ErrCodeTimeout:
		return "timeout"
	case ErrCodeProtocol:
		return "protocol"
	case ErrCodeSyscall:
		return "syscall"
	default:
		return "internal"
	}
}

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Unwrap exposes the wrapped cause to errors.Is and errors.As.
func (e *Error) Unwrap() error { return e.Err }

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// Wrap attaches a cause to the error.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// EngineError reports a fatal failure of the multiplex primitive itself.
// It aborts Run or Await; the exchange tables stay valid.
type EngineError struct {
	Op  string
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("mx engine: %s: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }
