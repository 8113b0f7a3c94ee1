package session

import (
	"errors"
	"fmt"
)

var (
	// ErrPoolClosed is returned by Acquire once Shutdown has begun.
	ErrPoolClosed = errors.New("session pool closed")
	// ErrRemoteUnavailable marks a page or element that did not render within the bounded wait.
	// Callers treat the league or event as temporarily offline and retry next cycle.
	ErrRemoteUnavailable = errors.New("remote page unavailable")
)

// ElementNotFoundError reports an expected element missing after the bounded wait.
// It matches ErrRemoteUnavailable with errors.Is.
type ElementNotFoundError struct {
	Selector string
	Err      error
}

func (e *ElementNotFoundError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("element %q not found", e.Selector)
	}
	return fmt.Sprintf("element %q not found: %v", e.Selector, e.Err)
}

func (e *ElementNotFoundError) Unwrap() error { return e.Err }

func (e *ElementNotFoundError) Is(target error) bool { return target == ErrRemoteUnavailable }
