package adminkit

import (
	"context"
	"fmt"
)

// ============================================================================
// ROLE MANAGEMENT
// ============================================================================

// systemActor is the actor of changes made by the engine itself.
var systemActor = BuildContext(&AdminRecord{
	IdentityID: SystemActorID,
	Role:       RoleSuperAdmin,
	Status:     StatusActive,
})

// Bootstrap creates the first super_admin. It only succeeds while no admin
// record exists at all, and records SystemActorID as the actor.
func (s *Service) Bootstrap(ctx context.Context, identityID, reason string) (*AdminRecord, error) {
	if identityID == "" || identityID == SystemActorID {
		return nil, NewError(ErrValidation, "bootstrap requires a real identity")
	}
	return s.mutateAndAudit(ctx, mutation{
		op:         "Bootstrap",
		actor:      systemActor,
		identityID: identityID,
		reason:     reason,
		guard: func(ctx context.Context, tx Store) error {
			if err := tx.LockAdminRecords(ctx); err != nil {
				return err
			}
			existing, err := tx.ListAdminRecords(ctx, AdminRecordFilter{Limit: 1})
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				return NewError(ErrAlreadyAdmin, "admin records already exist").WithIdentity(identityID)
			}
			return nil
		},
		apply: func(current *AdminRecord, _ *AuthorizationContext) (*AdminRecord, error) {
			return &AdminRecord{Role: RoleSuperAdmin, Status: StatusActive}, nil
		},
	})
}

// AssignRole creates the admin record of an identity that has none.
//
// The actor needs users.assign_role and must outrank the role. A custom
// role must come with an explicit permission list containing only
// permissions the actor holds itself.
//
// Example:
//
//	rec, err := service.AssignRole(ctx, actor, adminkit.AssignRoleRequest{
//	    IdentityID: "user_123",
//	    Role:       adminkit.RoleModerator,
//	    Reason:     "joins trust & safety",
//	})
func (s *Service) AssignRole(ctx context.Context, actor *AuthorizationContext, req AssignRoleRequest) (*AdminRecord, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}
	perms, err := permissionsForRole(req.Role, req.Permissions, nil)
	if err != nil {
		return nil, err
	}

	return s.mutateAndAudit(ctx, mutation{
		op:         "AssignRole",
		actor:      actor,
		identityID: req.IdentityID,
		reason:     req.Reason,
		apply: func(current *AdminRecord, actor *AuthorizationContext) (*AdminRecord, error) {
			if current != nil {
				return nil, NewError(ErrAlreadyAdmin, fmt.Sprintf("identity already holds role %s", current.Role)).
					WithIdentity(req.IdentityID).
					WithRole(current.Role)
			}
			if err := CheckAssignment(actor, req.Role); err != nil {
				return nil, err
			}
			if err := CheckGrant(actor, perms); err != nil {
				return nil, err
			}
			return &AdminRecord{Role: req.Role, Permissions: perms, Status: StatusActive}, nil
		},
	})
}

// ChangeRole moves an existing admin to another role. The actor must be able
// to manage both the current and the new role.
func (s *Service) ChangeRole(ctx context.Context, actor *AuthorizationContext, req ChangeRoleRequest) (*AdminRecord, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}

	return s.mutateAndAudit(ctx, mutation{
		op:              "ChangeRole",
		actor:           actor,
		identityID:      req.IdentityID,
		expectedVersion: req.ExpectedVersion,
		reason:          req.Reason,
		apply: func(current *AdminRecord, actor *AuthorizationContext) (*AdminRecord, error) {
			if current == nil {
				return nil, adminNotFound(req.IdentityID)
			}
			if err := CheckAssignment(actor, current.Role); err != nil {
				return nil, err
			}
			if err := CheckAssignment(actor, req.Role); err != nil {
				return nil, err
			}

			var kept []Permission
			if current.Role == RoleCustom {
				kept = current.Permissions
			}
			perms, err := permissionsForRole(req.Role, req.Permissions, kept)
			if err != nil {
				return nil, err
			}
			if err := CheckGrant(actor, addedPermissions(kept, perms)); err != nil {
				return nil, err
			}

			next := current.Clone()
			next.Role = req.Role
			next.Permissions = perms
			return next, nil
		},
	})
}

// UpdatePermissions replaces the explicit permissions of a custom admin.
// The actor may only add permissions it holds; it may remove any.
func (s *Service) UpdatePermissions(ctx context.Context, actor *AuthorizationContext, req UpdatePermissionsRequest) (*AdminRecord, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}

	return s.mutateAndAudit(ctx, mutation{
		op:              "UpdatePermissions",
		actor:           actor,
		identityID:      req.IdentityID,
		expectedVersion: req.ExpectedVersion,
		reason:          req.Reason,
		apply: func(current *AdminRecord, actor *AuthorizationContext) (*AdminRecord, error) {
			if current == nil {
				return nil, adminNotFound(req.IdentityID)
			}
			if current.Role != RoleCustom {
				return nil, NewError(ErrValidation, fmt.Sprintf("role %s has fixed permissions", current.Role)).
					WithIdentity(req.IdentityID).
					WithRole(current.Role)
			}
			if err := CheckAssignment(actor, RoleCustom); err != nil {
				return nil, err
			}
			perms := normalizePermissions(req.Permissions)
			if err := CheckGrant(actor, addedPermissions(current.Permissions, perms)); err != nil {
				return nil, err
			}

			next := current.Clone()
			next.Permissions = perms
			return next, nil
		},
	})
}

// SetStatus moves an admin record to another lifecycle status.
func (s *Service) SetStatus(ctx context.Context, actor *AuthorizationContext, req SetStatusRequest) (*AdminRecord, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}

	return s.mutateAndAudit(ctx, mutation{
		op:              "SetStatus",
		actor:           actor,
		identityID:      req.IdentityID,
		expectedVersion: req.ExpectedVersion,
		reason:          req.Reason,
		apply: func(current *AdminRecord, actor *AuthorizationContext) (*AdminRecord, error) {
			if current == nil {
				return nil, adminNotFound(req.IdentityID)
			}
			if err := CheckAssignment(actor, current.Role); err != nil {
				return nil, err
			}
			next := current.Clone()
			next.Status = req.Status
			return next, nil
		},
	})
}

// Suspend suspends an admin. A suspended admin holds no permission.
func (s *Service) Suspend(ctx context.Context, actor *AuthorizationContext, identityID, reason string) (*AdminRecord, error) {
	return s.SetStatus(ctx, actor, SetStatusRequest{IdentityID: identityID, Status: StatusSuspended, Reason: reason})
}

// Reactivate makes a suspended or inactive admin active again.
func (s *Service) Reactivate(ctx context.Context, actor *AuthorizationContext, identityID, reason string) (*AdminRecord, error) {
	return s.SetStatus(ctx, actor, SetStatusRequest{IdentityID: identityID, Status: StatusActive, Reason: reason})
}

// Deactivate marks an admin inactive without removing the record.
func (s *Service) Deactivate(ctx context.Context, actor *AuthorizationContext, identityID, reason string) (*AdminRecord, error) {
	return s.SetStatus(ctx, actor, SetStatusRequest{IdentityID: identityID, Status: StatusInactive, Reason: reason})
}

// RemoveAdmin deletes an admin record. The deletion is audited before the
// row disappears; the returned record is the removed one.
func (s *Service) RemoveAdmin(ctx context.Context, actor *AuthorizationContext, req RemoveAdminRequest) (*AdminRecord, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}

	return s.mutateAndAudit(ctx, mutation{
		op:              "RemoveAdmin",
		actor:           actor,
		identityID:      req.IdentityID,
		expectedVersion: req.ExpectedVersion,
		reason:          req.Reason,
		apply: func(current *AdminRecord, actor *AuthorizationContext) (*AdminRecord, error) {
			if current == nil {
				return nil, adminNotFound(req.IdentityID)
			}
			if err := CheckAssignment(actor, current.Role); err != nil {
				return nil, err
			}
			return nil, nil
		},
	})
}

// permissionsForRole resolves the explicit permissions to store for role.
// Built-in roles store none. Custom roles need an explicit list, falling
// back to kept when the request has none.
func permissionsForRole(role Role, requested, kept []Permission) ([]Permission, error) {
	if role != RoleCustom {
		if len(requested) > 0 {
			return nil, NewError(ErrValidation, fmt.Sprintf("role %s has fixed permissions", role)).WithRole(role)
		}
		return nil, nil
	}
	switch {
	case requested != nil:
		return normalizePermissions(requested), nil
	case kept != nil:
		return normalizePermissions(kept), nil
	}
	return nil, NewError(ErrValidation, "custom role requires an explicit permission list").WithRole(role)
}

// addedPermissions returns the members of next missing from prev.
func addedPermissions(prev, next []Permission) []Permission {
	have := NewPermissionSet(prev...)
	var added []Permission
	for _, p := range next {
		if !have.Contains(p) {
			added = append(added, p)
		}
	}
	return added
}

func adminNotFound(identityID string) error {
	return NewError(ErrAdminNotFound, "identity has no admin record").WithIdentity(identityID)
}
