package adminkit

import "context"

// ============================================================================
// PERMISSION CHECKING
// ============================================================================

// HasPermission loads the current context of an identity and checks one
// permission. Lookup failures are returned, never turned into a denial.
//
// Example:
//
//	ok, err := service.HasPermission(ctx, identityID, adminkit.PermPaymentsRefund)
//	if err != nil {
//	    return err
//	}
//	if ok {
//	    // render the refund button
//	}
func (s *Service) HasPermission(ctx context.Context, identityID string, p Permission) (bool, error) {
	authz, err := s.LoadContext(ctx, identityID)
	if err != nil {
		return false, err
	}
	return authz.Has(p), nil
}

// CanAssign reports whether an identity may currently grant role to others.
func (s *Service) CanAssign(ctx context.Context, identityID string, role Role) (bool, error) {
	authz, err := s.LoadContext(ctx, identityID)
	if err != nil {
		return false, err
	}
	return ValidateAssignment(authz, role), nil
}
