// Package checkpoint decorates errors with the file and line of each
// return site they pass through, giving something close to a stack
// trace without a dedicated tracing dependency. Decorated errors stay
// transparent to errors.Is and errors.As.
package checkpoint

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
)

// From annotates err with the caller's file and line. It returns nil
// for a nil err. io.EOF and io.ErrUnexpectedEOF pass through untouched,
// since callers compare those by identity.
// https://github.com/golang/go/issues/39155
func From(err error) error {
	if err == nil || err == io.EOF || err == io.ErrUnexpectedEOF {
		return err
	}
	return &annotated{err: err, caller: callerOf(1)}
}

// Wrap annotates cause with the caller's file and line plus a second
// error, typically a package-level sentinel:
//
//	return checkpoint.Wrap(err, ErrIO)
//
// The result matches both cause and sentinel under errors.Is, so a
// caller can test for the sentinel while the underlying cause stays
// reachable. A nil cause returns nil even when sentinel is set; io.EOF
// passes through untouched.
func Wrap(cause, sentinel error) error {
	if cause == nil || cause == io.EOF {
		return cause
	}
	return &annotated{err: sentinel, prev: cause, caller: callerOf(1)}
}

// annotated is one checkpoint in an error's path: the error attached at
// this site, the underlying error it wraps (nil for From), and the
// return site itself.
type annotated struct {
	err    error
	prev   error
	caller string
}

func callerOf(skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}

func (e *annotated) Error() string {
	switch {
	case e.prev == nil:
		return fmt.Sprintf("%s: %v", e.caller, e.err)
	case e.err == nil:
		return fmt.Sprintf("%s: %v", e.caller, e.prev)
	default:
		return fmt.Sprintf("%s: %v: %v", e.caller, e.err, e.prev)
	}
}

func (e *annotated) Unwrap() error {
	return e.prev
}

func (e *annotated) Is(target error) bool {
	return errors.Is(e.err, target)
}

func (e *annotated) As(target interface{}) bool {
	if e.err == nil {
		return false
	}
	return errors.As(e.err, target)
}
