package models

import (
	"errors"
	"fmt"
)

// ErrorKind tags every failure with its place in the taxonomy. All kinds
// are terminal for the current invocation; none are retried.
type ErrorKind string

const (
	// ErrKindConfiguration covers missing credentials, models, or
	// mandatory fields. No network call is attempted.
	ErrKindConfiguration ErrorKind = "configuration"
	// ErrKindValidation covers parameters outside their allowed domain.
	// No network call is attempted.
	ErrKindValidation ErrorKind = "validation"
	// ErrKindMedia covers file read or URL fetch failures.
	ErrKindMedia ErrorKind = "media"
	// ErrKindTemplate covers malformed template syntax.
	ErrKindTemplate ErrorKind = "template"
	// ErrKindBlocked means the remote service declined to produce content.
	ErrKindBlocked ErrorKind = "blocked"
	// ErrKindEmptyResult means the remote call succeeded but yielded no
	// usable payload.
	ErrKindEmptyResult ErrorKind = "empty_result"
	// ErrKindTransport covers network and HTTP failures from the remote call.
	ErrKindTransport ErrorKind = "transport"
)

// FlowError is the structured error surfaced on a node's error port.
type FlowError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *FlowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

// NewFlowError builds a FlowError with a formatted message.
func NewFlowError(kind ErrorKind, code string, format string, args ...any) *FlowError {
	return &FlowError{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapFlowError builds a FlowError around an underlying cause.
func WrapFlowError(kind ErrorKind, code string, err error, format string, args ...any) *FlowError {
	return &FlowError{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// AsFlowError extracts a FlowError from an error chain. Errors outside
// the taxonomy are coerced to a transport-kind error so that every
// failure carries a kind tag by the time it reaches the error port.
func AsFlowError(err error) *FlowError {
	var fe *FlowError
	if errors.As(err, &fe) {
		return fe
	}

	return &FlowError{Kind: ErrKindTransport, Code: "unknown", Message: err.Error(), Err: err}
}
