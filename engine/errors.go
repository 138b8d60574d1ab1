package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrAborted is the close error of a request whose root work was
	// cancelled by Abort.
	ErrAborted = errors.New("render aborted")

	// ErrRequestClosed is returned when work is attempted on a closed request.
	ErrRequestClosed = errors.New("request closed")
)

// InvariantError reports a broken internal invariant. The engine panics
// with it; the panic is converted into a fatal request error at the
// scheduler callback boundary.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string {
	return "engine invariant violated: " + e.Msg
}

func invariant(format string, args ...any) *InvariantError {
	return &InvariantError{Msg: fmt.Sprintf(format, args...)}
}

// PanicError wraps a value recovered from a panicking component.
type PanicError struct {
	Component string
	Value     any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("component %s panicked: %v", e.Component, e.Value)
}

func abortError(reason error) error {
	if reason == nil {
		return ErrAborted
	}
	return fmt.Errorf("%w: %w", ErrAborted, reason)
}

// recoveredError converts a recovered panic value into an error.
func recoveredError(p any) error {
	switch v := p.(type) {
	case error:
		return v
	default:
		return fmt.Errorf("panic: %v", v)
	}
}
