package workflow

import (
	"errors"
	"fmt"
)

// NonRetriableError marks a permanent domain failure: the run aborts and the
// bus must not re-deliver the event. Every other error propagating out of a
// run is treated as transient and eligible for bounded re-delivery.
type NonRetriableError struct {
	Reason string
	Err    error
}

func (e *NonRetriableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *NonRetriableError) Unwrap() error {
	return e.Err
}

// NewNonRetriable constructs a permanent failure with the given reason.
func NewNonRetriable(reason string) error {
	return &NonRetriableError{Reason: reason}
}

// WrapNonRetriable marks an existing error as permanent.
func WrapNonRetriable(reason string, err error) error {
	return &NonRetriableError{Reason: reason, Err: err}
}

// IsNonRetriable reports whether err carries the permanent-failure mark
// anywhere in its chain.
func IsNonRetriable(err error) bool {
	var target *NonRetriableError
	return errors.As(err, &target)
}
