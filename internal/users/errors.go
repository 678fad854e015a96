package users

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamFetch is returned when the users API could not be reached or
	// answered with a non-success status. It carries no status or body.
	ErrUpstreamFetch = errors.New("failed to fetch users")

	// ErrInvalidPayload is matched by every error caused by a response body
	// that is not a well-formed list of users.
	ErrInvalidPayload = errors.New("invalid users payload")
)

// DecodeError reports a response body that is not valid JSON.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode users: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrInvalidPayload }

// ValidationError reports valid JSON that does not match the user schema.
// Index is the offending array element, or -1 when the document itself is
// not an array.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Index < 0:
		return fmt.Sprintf("validate users: %s", e.Reason)
	case e.Field == "":
		return fmt.Sprintf("validate users: element %d: %s", e.Index, e.Reason)
	default:
		return fmt.Sprintf("validate users: element %d: field %q: %s", e.Index, e.Field, e.Reason)
	}
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidPayload }
