package domain

import "errors"

// ErrInvalidMessage is returned when a delivered work item cannot be parsed
var ErrInvalidMessage = errors.New("invalid work item message")

// TransientError wraps errors caused by unreachable or overloaded downstream
// services. Only these trigger another processing attempt.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "transient error: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps err as retryable
func NewTransientError(err error) error {
	return &TransientError{Err: err}
}

// IsTransient reports whether err should trigger a retry
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}
