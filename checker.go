package adminkit

// AuthorizationContext is the read-only, request-scoped decision object
// derived from one AdminRecord snapshot. It is built once per request and
// passed explicitly to whatever needs to make an authorization decision.
//
// All methods are safe on a nil receiver and then answer as for an
// unauthenticated caller.
type AuthorizationContext struct {
	identityID   string
	record       *AdminRecord
	role         Role
	hasRole      bool
	permissions  PermissionSet
	isAdmin      bool
	isSuperAdmin bool
}

// BuildContext converts an admin record into an AuthorizationContext.
//
// Effective permissions are the matrix set of the role, or the record's
// explicit set for custom roles. A record that is not active grants nothing,
// whatever its role. A nil record yields an empty context.
//
// Example:
//
//	rec, _ := store.FindAdminRecord(ctx, identityID)
//	authz := adminkit.BuildContext(rec)
//	if authz.Has(adminkit.PermListingsApprove) {
//	    // show the approve button
//	}
func BuildContext(rec *AdminRecord) *AuthorizationContext {
	if rec == nil {
		return &AuthorizationContext{permissions: PermissionSet{}}
	}

	snapshot := rec.Clone()
	c := &AuthorizationContext{
		identityID:  snapshot.IdentityID,
		record:      snapshot,
		role:        snapshot.Role,
		hasRole:     snapshot.Role != "",
		permissions: PermissionSet{},
	}

	if snapshot.Status != StatusActive || !snapshot.Role.IsValid() {
		return c
	}

	if snapshot.Role == RoleCustom {
		// nil explicit permissions count as the empty set
		c.permissions = NewPermissionSet(snapshot.Permissions...)
		for p := range c.permissions {
			if !p.IsValid() {
				delete(c.permissions, p)
			}
		}
	} else {
		c.permissions = PermissionsFor(snapshot.Role)
	}
	c.isAdmin = true
	c.isSuperAdmin = snapshot.Role == RoleSuperAdmin
	return c
}

// AnonymousContext returns the context of an authenticated identity that
// holds no admin record.
func AnonymousContext(identityID string) *AuthorizationContext {
	return &AuthorizationContext{identityID: identityID, permissions: PermissionSet{}}
}

// IdentityID returns the identity this context was built for.
func (c *AuthorizationContext) IdentityID() string {
	if c == nil {
		return ""
	}
	return c.identityID
}

// Record returns a copy of the admin record snapshot, or nil.
func (c *AuthorizationContext) Record() *AdminRecord {
	if c == nil || c.record == nil {
		return nil
	}
	return c.record.Clone()
}

// Role returns the recorded role, even when the record is not active.
func (c *AuthorizationContext) Role() (Role, bool) {
	if c == nil {
		return "", false
	}
	return c.role, c.hasRole
}

// Status returns the record status, or "" when there is no record.
func (c *AuthorizationContext) Status() Status {
	if c == nil || c.record == nil {
		return ""
	}
	return c.record.Status
}

// Permissions returns the effective permissions in sorted order.
func (c *AuthorizationContext) Permissions() []Permission {
	if c == nil {
		return []Permission{}
	}
	return c.permissions.Slice()
}

// IsAdmin reports whether the context belongs to an active admin of any role.
func (c *AuthorizationContext) IsAdmin() bool {
	return c != nil && c.isAdmin
}

// IsSuperAdmin reports whether the context belongs to an active super_admin.
func (c *AuthorizationContext) IsSuperAdmin() bool {
	return c != nil && c.isSuperAdmin
}

// Has checks a single permission.
func (c *AuthorizationContext) Has(p Permission) bool {
	if c == nil {
		return false
	}
	return c.permissions.Contains(p)
}

// HasAll checks that every permission is held. An empty list is satisfied.
func (c *AuthorizationContext) HasAll(perms ...Permission) bool {
	for _, p := range perms {
		if !c.Has(p) {
			return false
		}
	}
	return true
}

// HasAny checks that at least one permission is held. An empty list is not.
func (c *AuthorizationContext) HasAny(perms ...Permission) bool {
	for _, p := range perms {
		if c.Has(p) {
			return true
		}
	}
	return false
}

// Missing returns the permissions from perms that are not held, in input order.
func (c *AuthorizationContext) Missing(perms ...Permission) []Permission {
	var missing []Permission
	for _, p := range perms {
		if !c.Has(p) {
			missing = append(missing, p)
		}
	}
	return missing
}

// Has reports whether c holds p.
func Has(c *AuthorizationContext, p Permission) bool {
	return c.Has(p)
}

// HasAll reports whether c holds every permission in perms.
func HasAll(c *AuthorizationContext, perms []Permission) bool {
	return c.HasAll(perms...)
}

// HasAny reports whether c holds at least one permission in perms.
func HasAny(c *AuthorizationContext, perms []Permission) bool {
	return c.HasAny(perms...)
}
