package common

import (
	"fmt"

	"github.com/pkg/errors"
)

// --------------------------------------------------------------------------
// Error Kinds
// --------------------------------------------------------------------------

// ErrorKind classifies every error returned by the driver
type ErrorKind uint8

const (
	// ErrKindTransport is a connectivity or channel construction failure
	ErrKindTransport ErrorKind = iota + 1
	// ErrKindStatus means the server rejected the RPC (see StatusError)
	ErrKindStatus
	// ErrKindPool means no connection could be obtained or the pool could not be built
	ErrKindPool
	// ErrKindTransaction is a misuse of the transaction protocol
	ErrKindTransaction
	// ErrKindInvalidArgument is malformed caller input
	ErrKindInvalidArgument
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindTransport:
		return "Transport"
	case ErrKindStatus:
		return "Status"
	case ErrKindPool:
		return "Pool"
	case ErrKindTransaction:
		return "Transaction"
	case ErrKindInvalidArgument:
		return "InvalidArgument"
	default:
		return "Unknown"
	}
}

// Error wraps an error kind, a message and an optional cause
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Msg)
}

// Unwrap returns the cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinel errors by kind and message so wrapped copies still compare equal
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Msg == t.Msg
}

// NewError creates a new Error with the given kind and message.
func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// WrapError creates a new Error with the given kind around a cause.
// The cause keeps its stack trace (github.com/pkg/errors).
func WrapError(kind ErrorKind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: errors.WithStack(err)}
}

// Sentinel errors
var (
	ErrTxnFinished     = NewError(ErrKindTransaction, "transaction already finished")
	ErrStartTsMismatch = NewError(ErrKindTransaction, "transaction start_ts mismatch")
	ErrPoolClosed      = NewError(ErrKindPool, "pool is closed")
	ErrClientClosed    = NewError(ErrKindPool, "client is closed")
)

// IsKind reports whether err (or any error it wraps) is an *Error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// --------------------------------------------------------------------------
// Server Status
// --------------------------------------------------------------------------

// StatusCode is the reason the server rejected an RPC
type StatusCode uint8

const (
	StatusOK StatusCode = iota
	StatusUnknown
	StatusInvalidArgument
	StatusAborted // Conflict detected at commit
	StatusFailedPrecondition
	StatusInternal
	StatusUnimplemented
)

func (c StatusCode) String() string {
	switch c {
	case StatusOK:
		return "OK"
	case StatusInvalidArgument:
		return "InvalidArgument"
	case StatusAborted:
		return "Aborted"
	case StatusFailedPrecondition:
		return "FailedPrecondition"
	case StatusInternal:
		return "Internal"
	case StatusUnimplemented:
		return "Unimplemented"
	default:
		return "Unknown"
	}
}

// StatusError is a server side rejection, surfaced verbatim
type StatusError struct {
	Code StatusCode
	Msg  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %s: %s", e.Code, e.Msg)
}

// NewStatusError creates a new StatusError
func NewStatusError(code StatusCode, format string, args ...any) *StatusError {
	return &StatusError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// IsAborted reports whether the server aborted the transaction because of a conflict
func IsAborted(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == StatusAborted
}
