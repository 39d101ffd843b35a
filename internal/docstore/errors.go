package docstore

import (
	"errors"
	"fmt"
)

// ErrorKind classifies write failures.
type ErrorKind string

const (
	KindSizeLimit   ErrorKind = "size-limit-exceeded"
	KindPermission  ErrorKind = "permission-denied"
	KindUnavailable ErrorKind = "unavailable"
	KindConflict    ErrorKind = "conflict"
	KindInvalid     ErrorKind = "invalid-argument"
)

// WriteError is returned by every mutating Store operation.
type WriteError struct {
	Op   string
	Path string
	Kind ErrorKind
	Err  error
}

func (e *WriteError) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *WriteError) Unwrap() error { return e.Err }

// ReadError reports a failed read or a broken watch.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// IsKind reports whether err is a WriteError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var we *WriteError
	return errors.As(err, &we) && we.Kind == kind
}
