package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/dykwon/marketfeed/internal/provider"
)

// Class splits fetch failures into retryable and terminal.
type Class int

const (
	// Transient failures (network faults, timeouts, rate limiting)
	// are eligible for retry within the same cycle.
	Transient Class = iota
	// Permanent failures (misconfigured subscription, auth rejection)
	// are never retried within the cycle.
	Permanent
)

func (c Class) String() string {
	if c == Transient {
		return "transient"
	}
	return "permanent"
}

// Error is a classified fetch failure for one subscription.
type Error struct {
	Class Class
	Sub   string // subscription ID
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s (%s): %v", e.Sub, e.Class, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Transient reports whether the error may succeed on retry.
func (e *Error) Transient() bool { return e.Class == Transient }

// classify maps an underlying error onto the retry taxonomy. Timeouts
// and server faults retry; everything the provider rejected outright
// does not.
func classify(subID string, err error) *Error {
	class := Permanent

	var apiErr *provider.APIError
	var netErr net.Error
	switch {
	case errors.As(err, &apiErr):
		if apiErr.IsTransient() {
			class = Transient
		}
	case errors.Is(err, context.DeadlineExceeded):
		class = Transient
	case errors.As(err, &netErr):
		class = Transient
	}

	return &Error{Class: class, Sub: subID, Err: err}
}
