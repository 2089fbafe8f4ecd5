/*
Package agenterr defines the agent's error taxonomy: a small, closed set of
kinds that every manager package classifies its failures into, so the
boundary server's error interceptor can map them deterministically onto gRPC
status codes without each call site re-deriving that mapping. A classified
error is returned as the call's error; it is not copied into an AgentResponse.
*/
package agenterr

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
)

// Kind is one of the taxonomy's seven kinds.
type Kind int

const (
	// Unknown is the zero value; it should not appear in well-formed errors.
	Unknown Kind = iota
	// InvalidArgument means validation failed: bad domain, path traversal,
	// disallowed command, malformed schedule.
	InvalidArgument
	// PermissionDenied means a command or path was rejected by a whitelist.
	PermissionDenied
	// Internal means a child process could not be started.
	Internal
	// ExitFailure means a child process ran to completion with a non-zero
	// exit code or was terminated by a signal.
	ExitFailure
	// IO means a filesystem operation failed.
	IO
	// SecurityViolation means a peer uid was rejected, a credential was
	// malformed, or a directive-injection attempt was detected.
	SecurityViolation
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "InvalidArgument"
	case PermissionDenied:
		return "PermissionDenied"
	case Internal:
		return "Internal"
	case ExitFailure:
		return "ExitFailure"
	case IO:
		return "IO"
	case SecurityViolation:
		return "SecurityViolation"
	default:
		return "Unknown"
	}
}

// Code maps a Kind to the gRPC status code the façade should surface on the
// transport, independent of the AgentResponse body the façade also returns.
func (k Kind) Code() codes.Code {
	switch k {
	case InvalidArgument:
		return codes.InvalidArgument
	case PermissionDenied, SecurityViolation:
		return codes.PermissionDenied
	case Internal, ExitFailure, IO:
		return codes.Internal
	default:
		return codes.Unknown
	}
}

// Error is a classified, wrappable error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func newf(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// InvalidArg builds an InvalidArgument error.
func InvalidArg(format string, args ...interface{}) *Error {
	return newf(InvalidArgument, nil, format, args...)
}

// Permission builds a PermissionDenied error.
func Permission(format string, args ...interface{}) *Error {
	return newf(PermissionDenied, nil, format, args...)
}

// Spawn builds an Internal error for a child process that failed to start.
func Spawn(cause error, format string, args ...interface{}) *Error {
	return newf(Internal, cause, format, args...)
}

// Exit builds an ExitFailure error for a child that ran but failed.
func Exit(format string, args ...interface{}) *Error {
	return newf(ExitFailure, nil, format, args...)
}

// Io builds an IO error.
func Io(cause error, format string, args ...interface{}) *Error {
	return newf(IO, cause, format, args...)
}

// Security builds a SecurityViolation error.
func Security(format string, args ...interface{}) *Error {
	return newf(SecurityViolation, nil, format, args...)
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error, and
// Unknown otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}
