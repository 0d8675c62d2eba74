// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-udp.

package api

import (
	"errors"
	"fmt"
	"syscall"
)

// Common errors used across the library.
var (
	ErrConfiguration      = errors.New("socket configuration failed")
	ErrSend               = errors.New("socket send failed")
	ErrDeregistration     = errors.New("socket deregistration failed")
	ErrRegistration       = errors.New("socket registration failed")
	ErrSocketClosed       = errors.New("socket is closed")
	ErrTeardownInProgress = errors.New("socket teardown already in progress")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrNotSupported       = errors.New("operation not supported")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeConfiguration
	ErrCodeSend
	ErrCodeDeregistration
	ErrCodeRegistration
	ErrCodeClosed
	ErrCodeTeardownInProgress
	ErrCodeInvalidArgument
	ErrCodeNotSupported
)

var codeSentinels = map[ErrorCode]error{
	ErrCodeConfiguration:      ErrConfiguration,
	ErrCodeSend:               ErrSend,
	ErrCodeDeregistration:     ErrDeregistration,
	ErrCodeRegistration:       ErrRegistration,
	ErrCodeClosed:             ErrSocketClosed,
	ErrCodeTeardownInProgress: ErrTeardownInProgress,
	ErrCodeInvalidArgument:    ErrInvalidArgument,
	ErrCodeNotSupported:       ErrNotSupported,
}

// Error represents a structured error with code, failing operation and
// the platform error number, if any.
type Error struct {
	Code    ErrorCode
	Op      string
	Errno   syscall.Errno
	Context map[string]any
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Op
	if s, ok := codeSentinels[e.Code]; ok {
		msg = fmt.Sprintf("%s: %v", e.Op, s)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Is reports whether target is the sentinel for e.Code.
func (e *Error) Is(target error) bool {
	s, ok := codeSentinels[e.Code]
	return ok && s == target
}

// Unwrap exposes the underlying cause, usually a syscall.Errno.
func (e *Error) Unwrap() error { return e.Err }

// NewError creates a new structured error.
func NewError(code ErrorCode, op string, cause error) *Error {
	e := &Error{
		Code:    code,
		Op:      op,
		Context: make(map[string]any),
		Err:     cause,
	}
	var errno syscall.Errno
	if errors.As(cause, &errno) {
		e.Errno = errno
	}
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

// ErrnoOf extracts the platform error number carried by err, or 0.
func ErrnoOf(err error) syscall.Errno {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return 0
}
