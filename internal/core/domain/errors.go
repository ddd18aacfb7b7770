package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
	KindAdmissionDenied
	KindBackend
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindAdmissionDenied:
		return "admission_denied"
	case KindBackend:
		return "backend"
	default:
		return "internal"
	}
}

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the tagged error carried across layer boundaries. Code is the
// stable value rendered under the "error" key; Message and Reason are
// optional human and machine readable refinements.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Reason  string
	Details []FieldError
	Err     error
}

func (e *Error) Error() string {
	msg := e.Code
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// Authentication failure reasons.
const (
	ReasonNoToken      = "no_token"
	ReasonInvalidToken = "invalid_or_expired_token"
)

var (
	ErrUserNotFound = &Error{Kind: KindNotFound, Code: "user not found"}
	ErrUserExists   = &Error{Kind: KindConflict, Code: "user with this email already exists"}

	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = &Error{Kind: KindAuthentication, Code: "invalid credentials"}

	ErrNoToken = &Error{
		Kind:    KindAuthentication,
		Code:    "unauthorized",
		Message: "authentication required - please sign in",
		Reason:  ReasonNoToken,
	}
	ErrInvalidToken = &Error{
		Kind:    KindAuthentication,
		Code:    "unauthorized",
		Message: "invalid or expired token",
		Reason:  ReasonInvalidToken,
	}

	ErrNotOwner = &Error{
		Kind:    KindAuthorization,
		Code:    "forbidden",
		Message: "you can only modify your own account",
	}
	ErrRoleChangeForbidden = &Error{
		Kind:    KindAuthorization,
		Code:    "forbidden",
		Message: "only admin can change role",
	}
	ErrAdminSignUpForbidden = &Error{
		Kind:    KindAuthorization,
		Code:    "forbidden",
		Message: "admin accounts cannot be self-registered",
	}

	ErrNoUpdateFields = Validation(FieldError{Field: "body", Message: "no update fields provided"})
)

// Validation builds a 400-class error from field issues.
func Validation(details ...FieldError) *Error {
	return &Error{Kind: KindValidation, Code: "validation failed", Details: details}
}

// RoleRequired builds the 403 returned when an actor's role is not in the
// allowed set.
func RoleRequired(roles string) *Error {
	return &Error{
		Kind:    KindAuthorization,
		Code:    "forbidden",
		Message: fmt.Sprintf("access denied - requires %s role", roles),
	}
}

// Backend wraps a downstream failure. The cause is logged, never rendered.
func Backend(message string, err error) *Error {
	return &Error{Kind: KindBackend, Code: "internal server error", Message: message, Err: err}
}
