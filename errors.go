package adminkit

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the engine matches exactly one of
// these through errors.Is.
var (
	// ErrAccessDenied covers unauthenticated callers, identities without an
	// admin record and inactive records. They are merged on purpose so a
	// caller cannot probe which identities are administrators.
	ErrAccessDenied = errors.New("adminkit: access denied")

	// ErrPermissionDenied is returned when an active admin lacks a permission.
	ErrPermissionDenied = errors.New("adminkit: permission denied")

	// ErrValidation is returned for malformed role-management input.
	ErrValidation = errors.New("adminkit: validation failed")

	// ErrConflict is returned when a concurrent write to the same record won.
	// The whole operation should be retried from a fresh read.
	ErrConflict = errors.New("adminkit: conflict")

	// ErrInternal is returned when a collaborator (store, identity provider) fails.
	ErrInternal = errors.New("adminkit: internal error")
)

// kindError is a specific error that also matches its kind.
type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

func newKindError(kind error, msg string) error {
	return &kindError{msg: msg, kind: kind}
}

// Specific errors, each wrapping one kind.
var (
	ErrUnauthenticated = newKindError(ErrAccessDenied, "adminkit: unauthenticated")
	ErrNoAdminRecord   = newKindError(ErrAccessDenied, "adminkit: no admin record")
	ErrAdminInactive   = newKindError(ErrAccessDenied, "adminkit: admin record not active")

	ErrCannotManage = newKindError(ErrPermissionDenied, "adminkit: role outranks actor")

	ErrInvalidRole       = newKindError(ErrValidation, "adminkit: invalid role")
	ErrInvalidPermission = newKindError(ErrValidation, "adminkit: invalid permission")
	ErrInvalidStatus     = newKindError(ErrValidation, "adminkit: invalid status")
	ErrAlreadyAdmin      = newKindError(ErrValidation, "adminkit: identity already has an admin record")
	ErrAdminNotFound     = newKindError(ErrValidation, "adminkit: admin record not found")
	ErrSelfModification  = newKindError(ErrValidation, "adminkit: cannot modify own admin record")
	ErrNoActor           = newKindError(ErrValidation, "adminkit: actor required")

	ErrVersionMismatch = newKindError(ErrConflict, "adminkit: admin record version mismatch")

	ErrDatabase         = newKindError(ErrInternal, "adminkit: database error")
	ErrAuditChain       = newKindError(ErrInternal, "adminkit: audit chain broken")
	ErrIdentityProvider = newKindError(ErrInternal, "adminkit: identity provider unavailable")
)

// Error wraps a sentinel error with additional context.
type Error struct {
	Err        error      // Underlying sentinel error
	Message    string     // Additional context
	Permission Permission // Missing or offending permission (if applicable)
	Role       Role       // Role involved (if applicable)
	IdentityID string     // Target identity (if applicable)
	ActorID    string     // Actor who triggered the error (if applicable)
	Cause      error      // Collaborator error behind an internal failure
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Err.Error()
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap exposes both the sentinel and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

// NewError creates a new Error with context.
func NewError(err error, message string) *Error {
	return &Error{
		Err:     err,
		Message: message,
	}
}

// WithPermission adds permission information to the error.
func (e *Error) WithPermission(p Permission) *Error {
	e.Permission = p
	return e
}

// WithRole adds role information to the error.
func (e *Error) WithRole(role Role) *Error {
	e.Role = role
	return e
}

// WithIdentity adds target identity information to the error.
func (e *Error) WithIdentity(identityID string) *Error {
	e.IdentityID = identityID
	return e
}

// WithActor adds actor information to the error.
func (e *Error) WithActor(actorID string) *Error {
	e.ActorID = actorID
	return e
}

// WithCause attaches the collaborator error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// internalError wraps a collaborator failure unless it is already classified.
func internalError(op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindInternal {
		return err
	}
	if errors.Is(err, ErrInternal) {
		return err
	}
	return NewError(ErrDatabase, op).WithCause(err)
}

// Kind is the coarse classification of an error.
type Kind string

const (
	KindNone             Kind = ""
	KindAccessDenied     Kind = "access_denied"
	KindPermissionDenied Kind = "permission_denied"
	KindValidation       Kind = "validation"
	KindConflict         Kind = "conflict"
	KindInternal         Kind = "internal"
)

// KindOf classifies err. Unclassified errors count as internal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrAccessDenied):
		return KindAccessDenied
	case errors.Is(err, ErrPermissionDenied):
		return KindPermissionDenied
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConflict):
		return KindConflict
	default:
		return KindInternal
	}
}

// IsAccessDenied checks if an error is an access-denied error.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsPermissionDenied checks if an error is a permission-denied error.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// IsValidation checks if an error is due to invalid input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsConflict checks if an error signals a concurrent modification.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsInternal checks if an error is an internal failure.
func IsInternal(err error) bool {
	return KindOf(err) == KindInternal
}

// MissingPermission extracts the permission attached to a denial, if any.
func MissingPermission(err error) (Permission, bool) {
	var e *Error
	if errors.As(err, &e) && e.Permission != "" {
		return e.Permission, true
	}
	return "", false
}
