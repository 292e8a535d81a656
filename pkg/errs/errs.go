// Package errs defines the error taxonomy shared by the service and its adapters.
//
// Every error that crosses a package boundary carries a kind. Callers branch on
// kinds with errors.Is and never on message text.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel kinds.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrValidation   = errors.New("validation failed")
	ErrUnknownActor = errors.New("unknown actor")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrStore        = errors.New("store failure")
	ErrRateLimited  = errors.New("rate limited")
)

var kinds = []error{
	ErrUnauthorized,
	ErrForbidden,
	ErrValidation,
	ErrUnknownActor,
	ErrNotFound,
	ErrConflict,
	ErrStore,
	ErrRateLimited,
}

// Error records the operation that failed, its kind and the underlying cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Op != "":
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	case e.Op != "":
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	default:
		return e.Kind.Error()
	}
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// New returns an error of the given kind without an underlying cause.
func New(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// Newf returns an error of the given kind with a formatted message.
func Newf(op string, kind error, format string, args ...any) error {
	return &Error{Op: op, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// WrapKind annotates err with op and kind. A nil err yields nil.
func WrapKind(op string, kind error, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// Wrap annotates err with op, keeping an existing kind. Errors without a
// known kind are classified as ErrStore.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: KindOf(err), Err: err}
}

// KindOf reports the kind carried by err, ErrStore when none is found.
func KindOf(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrStore
}
