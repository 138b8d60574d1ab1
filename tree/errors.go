package tree

import (
	"errors"
	"fmt"
)

// ErrUnknownComponent is returned when a document names a component that
// is not registered.
var ErrUnknownComponent = errors.New("unknown component")

// DecodeError reports an invalid node and where it is in the document.
// Path uses dotted keys with list indices, e.g. root.children[2].suspense.
type DecodeError struct {
	Path string
	Msg  string
	Err  error
}

func (e *DecodeError) Error() string {
	switch {
	case e.Err != nil && e.Msg != "":
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Path, e.Msg)
	}
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func decodeErrorf(path, format string, args ...any) *DecodeError {
	return &DecodeError{Path: path, Msg: fmt.Sprintf(format, args...)}
}
