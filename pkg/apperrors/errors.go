package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers and the HTTP layer.
type Kind string

const (
	KindNotFound         Kind = "NOT_FOUND"
	KindConflict         Kind = "CONFLICT"
	KindPermissionDenied Kind = "PERMISSION_DENIED"
	KindTransport        Kind = "TRANSPORT_ERROR"
	KindInvalid          Kind = "INVALID_ARGUMENT"
	KindUnknown          Kind = "UNKNOWN"
)

// Error carries a kind plus a human-readable message. The presentation layer
// renders the message; the kind drives status mapping and caller branching.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches an underlying cause to a new Error.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func NotFound(message string) *Error         { return New(KindNotFound, message) }
func Conflict(message string) *Error         { return New(KindConflict, message) }
func PermissionDenied(message string) *Error { return New(KindPermissionDenied, message) }
func Invalid(message string) *Error          { return New(KindInvalid, message) }

// Transport wraps a store/network failure.
func Transport(message string, cause error) *Error {
	return Wrap(KindTransport, message, cause)
}

// KindOf extracts the Kind from an error chain, defaulting to KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// MessageOf returns the human-readable message from an error chain.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
