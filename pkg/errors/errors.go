// Package errors provides the error taxonomy of the scan monitor.
//
// Transport failures, malformed payloads, rejected user input and declined
// confirmations are distinct kinds so callers can decide between aborting a
// poll, degrading to a default, or showing a message.
package errors

import (
	"errors"
	"fmt"
)

// Error is the base error type for monitor errors.
type Error struct {
	// Kind indicates the category of error
	Kind Kind

	// Op is the operation being performed (e.g., "poller.tick")
	Op string

	// Message is a human-readable description
	Message string

	// Err is the underlying error
	Err error
}

// Kind represents the kind/category of error.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindNotFound
	KindNetwork
	KindPayload
	KindServer
	KindCancelled
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindNotFound:
		return "not_found"
	case KindNetwork:
		return "network"
	case KindPayload:
		return "payload"
	case KindServer:
		return "server"
	case KindCancelled:
		return "cancelled"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		if e.Err != nil {
			if e.Message == "" {
				return fmt.Sprintf("%s: %v", e.Op, e.Err)
			}
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// E constructs an Error from the given arguments.
// Arguments can be: Kind, string (Op, then Message), error.
func E(args ...interface{}) error {
	e := &Error{}
	for _, arg := range args {
		switch a := arg.(type) {
		case Kind:
			e.Kind = a
		case string:
			if e.Op == "" {
				e.Op = a
			} else {
				e.Message = a
			}
		case error:
			e.Err = a
		}
	}
	return e
}

// New creates a new simple error.
func New(message string) error {
	return &Error{Message: message}
}

// Wrap wraps an error with the operation name, keeping its kind.
func Wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: GetKind(err), Op: op, Err: err}
}

// GetKind returns the Kind of the error, or KindUnknown.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsNetworkError checks if the error is a transport failure.
func IsNetworkError(err error) bool {
	return GetKind(err) == KindNetwork
}

// IsPayloadError checks if the error is a malformed response payload.
func IsPayloadError(err error) bool {
	return GetKind(err) == KindPayload
}

// IsInvalidInput checks if the error is a rejected user input.
func IsInvalidInput(err error) bool {
	return GetKind(err) == KindInvalidInput
}

// IsCancelled checks if the error is a declined confirmation.
func IsCancelled(err error) bool {
	return GetKind(err) == KindCancelled
}

var (
	// ErrEmptyURL is returned when a scan is requested without a target.
	ErrEmptyURL = &Error{Kind: KindInvalidInput, Message: "target URL is required"}

	// ErrNoActiveScan is returned by single-scan operations in the home view.
	ErrNoActiveScan = &Error{Kind: KindInvalidInput, Message: "no active scan"}

	// ErrDeclined is returned when a destructive action is not confirmed.
	ErrDeclined = &Error{Kind: KindCancelled, Message: "action not confirmed"}

	// ErrMissingBaseURL is returned for a client without an API base URL.
	ErrMissingBaseURL = &Error{Kind: KindInvalidInput, Message: "API base URL is required"}
)
