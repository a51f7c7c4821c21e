// Package domainerrors defines the error taxonomy shared by all engine
// components. Errors carry a stable code so transport layers can translate
// them without inspecting message text.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of failure.
type Code string

const (
	// CodeValidation marks malformed caller input (empty assignee list,
	// unknown module type, bad enum value).
	CodeValidation Code = "validation"

	// CodeNoEligibleReviewer means strategy resolution found no candidates.
	// The item stays in pending_assignment and is recoverable manually.
	CodeNoEligibleReviewer Code = "no_eligible_reviewer"

	// CodeInvalidTransition means the workflow state machine rejected an
	// event for the item's current status.
	CodeInvalidTransition Code = "invalid_transition"

	// CodeStaleState marks an optimistic-concurrency conflict: another
	// request mutated the item or assignment first.
	CodeStaleState Code = "stale_state"

	// CodeNotFound marks an unknown item, assignment, or settings scope.
	CodeNotFound Code = "not_found"

	// CodePersistence marks a record-store failure.
	CodePersistence Code = "persistence"

	CodeUnauthorized Code = "unauthorized"
	CodeTimeout      Code = "timeout"
	CodeInternal     Code = "internal"
)

// Error is the concrete error type returned across component boundaries.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. A nil err yields
// nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err, or anything it wraps, carries the given code.
func HasCode(err error, code Code) bool {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// Is is an alias of HasCode kept for call-site readability.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// uncoded errors.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to its HTTP response status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeInvalidTransition:
		return http.StatusUnprocessableEntity
	case CodeNoEligibleReviewer:
		return http.StatusConflict
	case CodeStaleState:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodePersistence, CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
