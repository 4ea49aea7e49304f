package service

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure for the transport layer
type Kind string

const (
	KindValidation  Kind = "validation"
	KindRateLimited Kind = "rate_limited"
	KindNotFound    Kind = "not_found"
	KindInternal    Kind = "internal"
)

// Error is returned by every intake and query operation
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the Kind of err, or KindInternal when err is not an *Error
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// ErrJobInProgress is returned by Process when another worker holds the job's scratch directory
var ErrJobInProgress = errors.New("job is already being processed")
