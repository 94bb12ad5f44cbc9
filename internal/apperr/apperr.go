package apperr

import "errors"

// Error kinds recognized at the HTTP boundary. Workflow code wraps one of
// these into every failure it hands back, so handlers can map a result to a
// status code with errors.Is and never leak a raw fault to the caller.
var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidState      = errors.New("invalid state")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrConflict          = errors.New("conflict")
	ErrUnauthenticated   = errors.New("unauthenticated")
)

type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

func NotFound(msg string) error { return &Error{kind: ErrNotFound, msg: msg} }

func Forbidden(msg string) error { return &Error{kind: ErrForbidden, msg: msg} }

func InvalidState(msg string) error { return &Error{kind: ErrInvalidState, msg: msg} }

func InvalidTransition(msg string) error { return &Error{kind: ErrInvalidTransition, msg: msg} }

func Conflict(msg string) error { return &Error{kind: ErrConflict, msg: msg} }

func Unauthenticated(msg string) error { return &Error{kind: ErrUnauthenticated, msg: msg} }
