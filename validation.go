package adminkit

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// AssignRoleRequest creates the admin record of an identity.
type AssignRoleRequest struct {
	IdentityID string `json:"identity_id" validate:"required,max=255"`
	Role       Role   `json:"role" validate:"required,adminrole"`
	// Permissions must be set (possibly empty) for RoleCustom and left
	// empty for every other role.
	Permissions []Permission `json:"permissions" validate:"omitempty,dive,adminperm"`
	Reason      string       `json:"reason,omitempty" validate:"max=1000"`
}

// ChangeRoleRequest moves an existing admin to another role.
type ChangeRoleRequest struct {
	IdentityID string `json:"identity_id" validate:"required,max=255"`
	Role       Role   `json:"role" validate:"required,adminrole"`
	// Permissions for a custom role. When nil and the admin already holds
	// a custom role, the current permissions are kept.
	Permissions []Permission `json:"permissions" validate:"omitempty,dive,adminperm"`
	// ExpectedVersion, when non-zero, must equal the current record version.
	ExpectedVersion int64  `json:"expected_version,omitempty" validate:"gte=0"`
	Reason          string `json:"reason,omitempty" validate:"max=1000"`
}

// UpdatePermissionsRequest replaces the explicit permissions of a custom admin.
type UpdatePermissionsRequest struct {
	IdentityID      string       `json:"identity_id" validate:"required,max=255"`
	Permissions     []Permission `json:"permissions" validate:"required,dive,adminperm"`
	ExpectedVersion int64        `json:"expected_version,omitempty" validate:"gte=0"`
	Reason          string       `json:"reason,omitempty" validate:"max=1000"`
}

// SetStatusRequest moves an admin record to another lifecycle status.
type SetStatusRequest struct {
	IdentityID      string `json:"identity_id" validate:"required,max=255"`
	Status          Status `json:"status" validate:"required,adminstatus"`
	ExpectedVersion int64  `json:"expected_version,omitempty" validate:"gte=0"`
	Reason          string `json:"reason,omitempty" validate:"max=1000"`
}

// RemoveAdminRequest deletes an admin record.
type RemoveAdminRequest struct {
	IdentityID      string `json:"identity_id" validate:"required,max=255"`
	ExpectedVersion int64  `json:"expected_version,omitempty" validate:"gte=0"`
	Reason          string `json:"reason,omitempty" validate:"max=1000"`
}

// newValidator returns a validator that knows the adminrole, adminstatus
// and adminperm tags.
func newValidator() *validator.Validate {
	v := validator.New()
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("adminkit: register %s validation: %v", tag, err))
		}
	}
	mustRegister("adminrole", func(fl validator.FieldLevel) bool {
		return Role(fl.Field().String()).IsValid()
	})
	mustRegister("adminstatus", func(fl validator.FieldLevel) bool {
		return Status(fl.Field().String()).IsValid()
	})
	mustRegister("adminperm", func(fl validator.FieldLevel) bool {
		return Permission(fl.Field().String()).IsValid()
	})
	return v
}

// validateRequest maps validator failures onto the error taxonomy, using the
// most specific sentinel for the first failing field.
func validateRequest(v *validator.Validate, req any) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return NewError(ErrValidation, err.Error())
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
	}
	msg := strings.Join(msgs, "; ")

	first := fieldErrs[0]
	switch first.Tag() {
	case "adminrole":
		return NewError(ErrInvalidRole, msg).WithRole(Role(fmt.Sprint(first.Value())))
	case "adminstatus":
		return NewError(ErrInvalidStatus, msg)
	case "adminperm":
		return NewError(ErrInvalidPermission, msg).WithPermission(Permission(fmt.Sprint(first.Value())))
	}
	return NewError(ErrValidation, msg)
}
