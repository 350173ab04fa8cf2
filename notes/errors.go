package notes

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound  = errors.New("note not found")
	ErrNoSession = errors.New("not signed in")
)

type NotFoundError struct {
	Id string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("note %q not found", e.Id)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// StoreUnavailableError wraps a persistence failure. The in-memory state
// is left as it was before the call.
type StoreUnavailableError struct {
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return "note store unavailable: " + e.Err.Error()
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}
