package shared

import "fmt"

// NotFoundError indicates that a referenced record does not exist.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

// NewNotFound builds a NotFoundError with a formatted message.
func NewNotFound(format string, args ...any) *NotFoundError {
	return &NotFoundError{Msg: fmt.Sprintf(format, args...)}
}

// AuthorizationError indicates the caller's unit scope or role does not
// permit the requested operation. Distinct from NotFoundError so callers can
// tell "doesn't exist" apart from "not yours".
type AuthorizationError struct {
	Msg string
}

func (e *AuthorizationError) Error() string { return e.Msg }

// NewAuthorization builds an AuthorizationError with a formatted message.
func NewAuthorization(format string, args ...any) *AuthorizationError {
	return &AuthorizationError{Msg: fmt.Sprintf(format, args...)}
}

// ValidationError indicates malformed input: unknown enum value, missing
// required field, out-of-range figure.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NewValidation builds a ValidationError with a formatted message.
func NewValidation(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// BusinessRuleError indicates a domain invariant would be violated. The
// message always carries the concrete numbers and identifiers involved so the
// caller can render a precise explanation.
type BusinessRuleError struct {
	Msg string
}

func (e *BusinessRuleError) Error() string { return e.Msg }

// NewBusinessRule builds a BusinessRuleError with a formatted message.
func NewBusinessRule(format string, args ...any) *BusinessRuleError {
	return &BusinessRuleError{Msg: fmt.Sprintf(format, args...)}
}

// IntegrityError indicates persisted state disagrees with itself, e.g. a
// ledger-derived balance that does not match the stored lot balance. It is
// never auto-corrected; it must surface loudly.
type IntegrityError struct {
	Msg string
}

func (e *IntegrityError) Error() string { return e.Msg }

// NewIntegrity builds an IntegrityError with a formatted message.
func NewIntegrity(format string, args ...any) *IntegrityError {
	return &IntegrityError{Msg: fmt.Sprintf(format, args...)}
}
