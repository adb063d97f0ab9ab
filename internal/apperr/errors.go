// Package apperr defines the error kinds shared by the storage, metadata and
// user layers. Handlers map a Kind to an HTTP status in one place.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	NotFound        Kind = "NOT_FOUND"
	Conflict        Kind = "CONFLICT"
	Unauthorized    Kind = "UNAUTHORIZED"
	BadInput        Kind = "BAD_INPUT"
	UpstreamFailure Kind = "UPSTREAM_FAILURE"
	StorageFailure  Kind = "STORAGE_FAILURE"
)

// Sentinels for errors.Is checks. Only the Kind is compared.
var (
	ErrNotFound        = &Error{Kind: NotFound}
	ErrConflict        = &Error{Kind: Conflict}
	ErrUnauthorized    = &Error{Kind: Unauthorized}
	ErrBadInput        = &Error{Kind: BadInput}
	ErrUpstreamFailure = &Error{Kind: UpstreamFailure}
	ErrStorageFailure  = &Error{Kind: StorageFailure}
)

type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Msg == "" && t.Err == nil
}

// KindOf reports the Kind carried by err, or StorageFailure for errors that
// did not pass through this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return StorageFailure
}

// Message returns the human-readable part of err without the operation prefix.
func Message(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}
