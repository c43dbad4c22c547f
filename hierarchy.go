package adminkit

import "fmt"

// Ranks are spaced out so new roles can slot in without renumbering.
var roleRanks = map[Role]int{
	RoleSuperAdmin: 100,
	RoleModerator:  60,
	RoleSupport:    40,
	RoleCustom:     30,
	RoleAnalyst:    20,
}

// Rank returns the hierarchy rank of role, or -1 for unknown roles.
func Rank(role Role) int {
	if rank, ok := roleRanks[role]; ok {
		return rank
	}
	return -1
}

// CanManage reports whether a holder of manager may create, modify or remove
// a record holding target. super_admin manages every role; every other role
// only manages strictly lower ranks, so equal ranks never manage each other.
func CanManage(manager, target Role) bool {
	if !manager.IsValid() || !target.IsValid() {
		return false
	}
	if manager == RoleSuperAdmin {
		return true
	}
	return Rank(manager) > Rank(target)
}

// ValidateAssignment is the pre-flight check for any write that gives or
// touches target: the assigner needs users.assign_role and must outrank it.
func ValidateAssignment(assigner *AuthorizationContext, target Role) bool {
	return CheckAssignment(assigner, target) == nil
}

// CheckAssignment is ValidateAssignment returning the reason for a denial.
func CheckAssignment(assigner *AuthorizationContext, target Role) error {
	if !target.IsValid() {
		return NewError(ErrInvalidRole, fmt.Sprintf("role %q is not defined", target)).WithRole(target)
	}
	if !assigner.Has(PermUsersAssignRole) {
		return NewError(ErrPermissionDenied, "missing permission to manage admin roles").
			WithPermission(PermUsersAssignRole).
			WithActor(assigner.IdentityID()).
			WithRole(target)
	}
	role, _ := assigner.Role()
	if !CanManage(role, target) {
		return NewError(ErrCannotManage, fmt.Sprintf("%s cannot manage %s", role, target)).
			WithActor(assigner.IdentityID()).
			WithRole(target)
	}
	return nil
}

// CheckGrant verifies that an assigner only hands out custom permissions it
// holds itself. super_admin holds the whole catalog, so it always passes.
func CheckGrant(assigner *AuthorizationContext, perms []Permission) error {
	for _, p := range perms {
		if !p.IsValid() {
			return NewError(ErrInvalidPermission, fmt.Sprintf("permission %q is not catalogued", p)).WithPermission(p)
		}
		if !assigner.Has(p) {
			return NewError(ErrPermissionDenied, "cannot grant a permission the actor does not hold").
				WithPermission(p).
				WithActor(assigner.IdentityID())
		}
	}
	return nil
}

// AssignableRoles lists the roles the context may assign, highest rank first.
func AssignableRoles(assigner *AuthorizationContext) []Role {
	var roles []Role
	for _, r := range Roles() {
		if ValidateAssignment(assigner, r) {
			roles = append(roles, r)
		}
	}
	return roles
}
