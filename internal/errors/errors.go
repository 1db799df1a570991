// Package errors defines the portal's error taxonomy. Core operations return
// *Error values carrying a Kind; the HTTP layer maps kinds to status codes and
// stable error codes without inspecting messages.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error. Callers must branch on kinds, never on
// message text.
type Kind string

const (
	// KindValidation marks malformed or policy-violating input.
	KindValidation Kind = "validation"
	// KindConflict marks uniqueness violations (email, mentor id, key code).
	KindConflict Kind = "conflict"
	// KindNotFound marks records absent from the caller's scope.
	KindNotFound Kind = "not_found"
	// KindForbidden marks cross-owner or insufficient-privilege access.
	KindForbidden Kind = "forbidden"
	// KindQuotaExceeded marks an owner at the license quota.
	KindQuotaExceeded Kind = "quota_exceeded"
	// KindInvalidState marks an illegal status transition.
	KindInvalidState Kind = "invalid_state"
	// KindPendingApproval marks a correct login against an unapproved account.
	// It must stay distinguishable from KindInvalidCredentials so the caller
	// can show the right message.
	KindPendingApproval Kind = "pending_approval"
	// KindInvalidCredentials marks a failed credential check.
	KindInvalidCredentials Kind = "invalid_credentials"
	// KindInUse marks a delete blocked by referencing records.
	KindInUse Kind = "in_use"
	// KindInternal marks infrastructure failures (gateway I/O, hashing).
	KindInternal Kind = "internal"
)

// Error is the portal's domain error. It wraps an optional cause and carries
// the failing field for validation errors.
type Error struct {
	Kind    Kind
	Message string
	Field   string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches two domain errors by kind, so sentinel-style checks like
// errors.Is(err, errors.E(KindNotFound, "")) work across messages.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// E constructs a domain error of the given kind.
func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Ef constructs a domain error with a formatted message.
func Ef(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation constructs a validation error for a specific field.
func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Message: message, Field: field}
}

// Wrap constructs a domain error around a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Internal wraps an infrastructure failure.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// As and Is re-export the standard library helpers so callers need a single
// errors import.
func As(err error, target any) bool { return errors.As(err, target) }

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return errors.Is(err, target) }

// KindOf extracts the kind from any error chain, defaulting to KindInternal
// for non-domain errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
