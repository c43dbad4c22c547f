package adminkit

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestErrorKinds tests that every specific sentinel maps to its kind
func TestErrorKinds(t *testing.T) {
	tests := []struct {
		err  error
		kind Kind
	}{
		{ErrAccessDenied, KindAccessDenied},
		{ErrUnauthenticated, KindAccessDenied},
		{ErrNoAdminRecord, KindAccessDenied},
		{ErrAdminInactive, KindAccessDenied},
		{ErrPermissionDenied, KindPermissionDenied},
		{ErrCannotManage, KindPermissionDenied},
		{ErrValidation, KindValidation},
		{ErrInvalidRole, KindValidation},
		{ErrInvalidPermission, KindValidation},
		{ErrInvalidStatus, KindValidation},
		{ErrAlreadyAdmin, KindValidation},
		{ErrAdminNotFound, KindValidation},
		{ErrSelfModification, KindValidation},
		{ErrNoActor, KindValidation},
		{ErrConflict, KindConflict},
		{ErrVersionMismatch, KindConflict},
		{ErrInternal, KindInternal},
		{ErrDatabase, KindInternal},
		{ErrAuditChain, KindInternal},
		{ErrIdentityProvider, KindInternal},
		{errors.New("driver: bad connection"), KindInternal},
		{nil, KindNone},
	}

	for _, tt := range tests {
		name := "nil"
		if tt.err != nil {
			name = tt.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
		})
	}
}

// TestErrorWrapping tests that *Error matches both its sentinel and kind
func TestErrorWrapping(t *testing.T) {
	err := NewError(ErrCannotManage, "moderator cannot manage super_admin").
		WithRole(RoleSuperAdmin).
		WithActor("mod_1").
		WithIdentity("user_2")

	assert.ErrorIs(t, err, ErrCannotManage)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.True(t, IsPermissionDenied(err))
	assert.False(t, IsAccessDenied(err))
	assert.Contains(t, err.Error(), "moderator cannot manage super_admin")

	var e *Error
	require.True(t, errors.As(fmt.Errorf("outer: %w", err), &e))
	assert.Equal(t, RoleSuperAdmin, e.Role)
	assert.Equal(t, "mod_1", e.ActorID)
	assert.Equal(t, "user_2", e.IdentityID)
}

// TestErrorCause tests that the collaborator error stays reachable
func TestErrorCause(t *testing.T) {
	cause := context.DeadlineExceeded
	err := NewError(ErrDatabase, "FindAdminRecord").WithCause(cause)

	assert.ErrorIs(t, err, ErrDatabase)
	assert.ErrorIs(t, err, ErrInternal)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "context deadline exceeded")
}

// TestMissingPermission tests extracting the permission of a denial
func TestMissingPermission(t *testing.T) {
	err := NewError(ErrPermissionDenied, "missing").WithPermission(PermUsersDelete)
	p, ok := MissingPermission(err)
	require.True(t, ok)
	assert.Equal(t, PermUsersDelete, p)

	_, ok = MissingPermission(ErrAccessDenied)
	assert.False(t, ok)
	_, ok = MissingPermission(nil)
	assert.False(t, ok)
}

// TestInternalError tests wrapping of unclassified failures
func TestInternalError(t *testing.T) {
	assert.NoError(t, internalError("op", nil))

	validation := NewError(ErrInvalidRole, "bad")
	assert.Same(t, validation, internalError("op", validation))

	assert.Equal(t, ErrAuditChain, internalError("op", ErrAuditChain))

	raw := errors.New("connection refused")
	wrapped := internalError("ListAdmins", raw)
	assert.ErrorIs(t, wrapped, ErrDatabase)
	assert.ErrorIs(t, wrapped, raw)
	assert.Contains(t, wrapped.Error(), "ListAdmins")
}
