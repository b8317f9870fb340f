package shared

import "errors"

// Kind classifies domain errors so transports can map them to status codes.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnauthorized
	KindForbidden
)

// Error is a domain error carrying a user-facing message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches any *Error of the same kind, so errors.Is(err, ErrConflict)
// holds for every conflict raised by a domain package.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = &Error{Kind: KindNotFound, Message: "Not found"}
	// ErrValidation indicates bad input.
	ErrValidation = &Error{Kind: KindValidation, Message: "Invalid request"}
	// ErrConflict indicates a state conflict such as a duplicate or insufficient stock.
	ErrConflict = &Error{Kind: KindConflict, Message: "Conflict"}
	// ErrUnauthorized indicates a missing login.
	ErrUnauthorized = &Error{Kind: KindUnauthorized, Message: "Login required"}
	// ErrForbidden indicates a role mismatch.
	ErrForbidden = &Error{Kind: KindForbidden, Message: "Forbidden"}
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = &Error{Kind: KindUnauthorized, Message: "Invalid ID or Password"}
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// Validation builds a validation error with a custom message.
func Validation(msg string) error { return &Error{Kind: KindValidation, Message: msg} }

// NotFound builds a not-found error with a custom message.
func NotFound(msg string) error { return &Error{Kind: KindNotFound, Message: msg} }

// Conflict builds a conflict error with a custom message.
func Conflict(msg string) error { return &Error{Kind: KindConflict, Message: msg} }

// UserMessage returns the message safe to show to end users.
func UserMessage(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "Something went wrong. Please try again."
}
