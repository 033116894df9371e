// Package apperrors defines the three-kind error taxonomy used throughout
// Tivoli: NotFound, BadRequest, and StorageError. Every component returns
// errors of this shape so the HTTP adapter can map them without inspecting
// component-specific error types.
package apperrors

import "fmt"

// Kind identifies which of the three transport-mapped error categories an
// Error belongs to.
type Kind string

const (
	KindNotFound   Kind = "NOT_FOUND"
	KindBadRequest Kind = "BAD_REQUEST"
	KindStorage    Kind = "STORAGE_ERROR"
)

// Error is the single error type returned by catalog, search, tag-mutation,
// and image-bytes components.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NotFound builds a NotFound error with a client-facing message.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// NotFoundf builds a NotFound error with a formatted message.
func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// BadRequest builds a BadRequest error with a client-facing message.
func BadRequest(msg string) *Error {
	return &Error{Kind: KindBadRequest, Message: msg}
}

// BadRequestf builds a BadRequest error with a formatted message.
func BadRequestf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

// Storage wraps an unexpected catalog/IO failure. The cause is never
// surfaced to the client; only Message (generic) crosses the wire.
func Storage(cause error) *Error {
	return &Error{Kind: KindStorage, Message: "storage error", Cause: cause}
}

// Is reports whether err is an *Error of the given kind, so callers can
// branch with errors.Is-style checks without a type switch at every site.
func Is(err error, kind Kind) bool {
	ae, ok := err.(*Error)
	return ok && ae.Kind == kind
}
