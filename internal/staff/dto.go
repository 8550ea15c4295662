package staff

import (
	"github.com/frahmantamala/venue-management/internal"
	"github.com/frahmantamala/venue-management/internal/core/common/validation"
)

type InviteStaffDTO struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func (d InviteStaffDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Email()
	v.Field("role", string(d.Role)).Required().OneOf(RoleNames(), internal.ErrCodeInvalidRole)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type UpdateStaffRoleDTO struct {
	Role Role `json:"role"`
}

func (d UpdateStaffRoleDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("role", string(d.Role)).Required().OneOf(RoleNames(), internal.ErrCodeInvalidRole)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}
