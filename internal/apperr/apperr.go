// Package apperr provides standardized error categories for the planner service.
//
// Error codes follow the format {domain}.{error} and are stable identifiers
// that clients can rely on for programmatic handling. Human-readable messages
// are carried alongside the codes and surfaced verbatim to the user for
// validation failures.
package apperr

import (
	"errors"
	"fmt"
)

// Error codes by domain.
const (
	// Wizard domain - step preconditions and quota violations
	CodeWizardNoSession      = "wizard.no_session"
	CodeWizardBadStep        = "wizard.bad_step"
	CodeWizardQuotaExceeded  = "wizard.quota_exceeded"
	CodeWizardQuotaUnmet     = "wizard.quota_unmet"
	CodeWizardBadDisposition = "wizard.bad_disposition"
	CodeWizardBadTarget      = "wizard.bad_target"

	// Suggestion domain - pool protocol errors
	CodeSuggestionNoPool       = "suggestion.no_pool"
	CodeSuggestionNotReady     = "suggestion.not_ready"
	CodeSuggestionStateFlip    = "suggestion.state_flip"
	CodeSuggestionIndexHidden  = "suggestion.index_hidden"
	CodeSuggestionIndexInvalid = "suggestion.index_invalid"

	// Shopping domain
	CodeShoppingListMissing = "shopping.list_missing"
	CodeShoppingBadAction   = "shopping.bad_action"

	// Storage domain
	CodeStorageNotFound = "storage.not_found"

	// Auth domain
	CodeAuthRequired = "auth.required"
	CodeAuthInvalid  = "auth.invalid"

	CodeRequestBadBody = "request.bad_body"
)

// Kind classifies an error per the propagation policy: validation errors are
// rejected synchronously with no mutation, not-found errors surface as a
// "start over" state, invariant errors are programming errors and fail loudly.
type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindInvariant
)

// Error is a categorized application error with a stable code.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Validation creates a validation error. The message is surfaced verbatim.
func Validation(code, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: fmt.Sprintf(format, args...)}
}

// NotFound creates a not-found error.
func NotFound(code, format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Invariant creates an invariant-violation error. These indicate programming
// errors, never user mistakes.
func Invariant(code, format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvariant, Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return isKind(err, KindValidation) }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return isKind(err, KindNotFound) }

// IsInvariant reports whether err is an invariant violation.
func IsInvariant(err error) bool { return isKind(err, KindInvariant) }

func isKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// CodeOf extracts the stable code from err, or "" if it is not an apperr.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
