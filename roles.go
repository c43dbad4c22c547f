package adminkit

import (
	"fmt"
	"strings"
)

// Role is one of the fixed administrative roles.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleModerator  Role = "moderator"
	RoleSupport    Role = "support"
	RoleAnalyst    Role = "analyst"
	// RoleCustom carries no built-in permissions; each assignment supplies its own set.
	RoleCustom Role = "custom"
)

// Roles returns every role ordered from highest to lowest rank.
func Roles() []Role {
	return []Role{RoleSuperAdmin, RoleModerator, RoleSupport, RoleCustom, RoleAnalyst}
}

// IsValid reports whether r is one of the defined roles.
func (r Role) IsValid() bool {
	_, ok := roleRanks[r]
	return ok
}

func (r Role) String() string {
	return string(r)
}

// ParseRole converts a raw role name into a Role.
func ParseRole(raw string) (Role, error) {
	r := Role(strings.TrimSpace(strings.ToLower(raw)))
	if !r.IsValid() {
		return "", NewError(ErrInvalidRole, fmt.Sprintf("role %q is not defined", raw)).WithRole(r)
	}
	return r, nil
}

// rolePermissions is the policy source of truth for built-in roles.
var rolePermissions = map[Role][]Permission{
	RoleSuperAdmin: {
		PermUsersView, PermUsersEdit, PermUsersSuspend, PermUsersDelete, PermUsersAssignRole,
		PermListingsView, PermListingsApprove, PermListingsEdit, PermListingsDelete,
		PermBookingsView, PermBookingsManage, PermBookingsRefund,
		PermPaymentsView, PermPaymentsRefund,
		PermContentModerate, PermReviewsModerate,
		PermSupportView, PermSupportRespond, PermSupportEscalate,
		PermReportsView, PermReportsExport, PermAnalyticsView,
		PermSettingsView, PermSettingsManage, PermAuditView,
	},
	RoleModerator: {
		PermUsersView, PermUsersEdit, PermUsersSuspend, PermUsersAssignRole,
		PermListingsView, PermListingsApprove, PermListingsEdit, PermListingsDelete,
		PermBookingsView,
		PermContentModerate, PermReviewsModerate,
		PermSupportView,
		PermReportsView,
	},
	RoleSupport: {
		PermUsersView,
		PermListingsView,
		PermBookingsView, PermBookingsManage,
		PermPaymentsView,
		PermSupportView, PermSupportRespond, PermSupportEscalate,
	},
	RoleAnalyst: {
		PermListingsView,
		PermBookingsView,
		PermPaymentsView,
		PermReportsView, PermReportsExport, PermAnalyticsView,
	},
}

// matrix holds the precomputed sets, built once in init.
var matrix map[Role]PermissionSet

func init() {
	matrix = make(map[Role]PermissionSet, len(rolePermissions))
	for role, perms := range rolePermissions {
		matrix[role] = NewPermissionSet(perms...)
	}
	if err := ValidateMatrix(); err != nil {
		panic(err)
	}
}

// PermissionsFor returns a copy of the built-in permission set of role.
// RoleCustom and unknown roles yield an empty set; callers merge in the
// record's explicit permissions for custom assignments.
func PermissionsFor(role Role) PermissionSet {
	set, ok := matrix[role]
	if !ok {
		return PermissionSet{}
	}
	return set.Clone()
}

// ValidateMatrix checks the matrix against the catalog: every built-in role
// has a non-empty set of catalogued permissions, custom has none, and the
// union of all built-in sets covers the whole catalog.
func ValidateMatrix() error {
	covered := make(PermissionSet, len(catalog))
	for _, role := range Roles() {
		perms, defined := rolePermissions[role]
		if role == RoleCustom {
			if defined {
				return fmt.Errorf("adminkit: matrix defines permissions for %q", RoleCustom)
			}
			continue
		}
		if len(perms) == 0 {
			return fmt.Errorf("adminkit: matrix has no permissions for %q", role)
		}
		for _, p := range perms {
			if !p.IsValid() {
				return fmt.Errorf("adminkit: matrix grants uncatalogued permission %q to %q", p, role)
			}
			covered[p] = struct{}{}
		}
	}
	for p := range catalog {
		if !covered.Contains(p) {
			return fmt.Errorf("adminkit: permission %q is unreachable by any built-in role", p)
		}
	}
	return nil
}
