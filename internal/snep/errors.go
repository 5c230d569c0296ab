package snep

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of a SNEP failure
type ErrorType int

const (
	// ErrTypeDecode indicates malformed or truncated message bytes. The
	// connection that produced them is closed after a Bad Request reply.
	ErrTypeDecode ErrorType = iota
	// ErrTypeProtocol indicates a well-formed message that is not valid at
	// this point of the exchange (e.g. a missing Continue).
	ErrTypeProtocol
	// ErrTypeTransport indicates an I/O failure or a peer-initiated close.
	// It is always fatal to the connection and never to the server.
	ErrTypeTransport
	// ErrTypeStartup indicates the listening endpoint could not be created.
	// The server is left stopped.
	ErrTypeStartup
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeDecode:
		return "decode error"
	case ErrTypeProtocol:
		return "protocol error"
	case ErrTypeTransport:
		return "transport error"
	case ErrTypeStartup:
		return "startup error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error is the error returned by every operation of this package
type Error struct {
	Type ErrorType // Category of error
	Op   string    // Operation that failed, e.g. "decode", "send"
	Err  error     // Underlying error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("snep %s: %s: %v", e.Op, e.Type, e.Err)
	}
	return fmt.Sprintf("snep %s: %s", e.Op, e.Type)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

func decodeError(format string, args ...any) *Error {
	return &Error{Type: ErrTypeDecode, Op: "decode", Err: fmt.Errorf(format, args...)}
}

func protocolError(op string, err error) *Error {
	return &Error{Type: ErrTypeProtocol, Op: op, Err: err}
}

func transportError(op string, err error) *Error {
	return &Error{Type: ErrTypeTransport, Op: op, Err: err}
}

func startupError(err error) *Error {
	return &Error{Type: ErrTypeStartup, Op: "listen", Err: err}
}

func isType(err error, t ErrorType) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == t
}

// IsDecode reports whether err is a decode error
func IsDecode(err error) bool { return isType(err, ErrTypeDecode) }

// IsProtocol reports whether err is a protocol error
func IsProtocol(err error) bool { return isType(err, ErrTypeProtocol) }

// IsTransport reports whether err is a transport error
func IsTransport(err error) bool { return isType(err, ErrTypeTransport) }

// IsStartup reports whether err is a startup error
func IsStartup(err error) bool { return isType(err, ErrTypeStartup) }
