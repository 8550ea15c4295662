package invitation

import (
	"github.com/frahmantamala/venue-management/internal/auth"
	"github.com/frahmantamala/venue-management/internal/core/common/validation"
)

type AcceptInvitationDTO struct {
	Token    string `json:"token"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (d AcceptInvitationDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("token", d.Token).Required()
	v.Field("name", d.Name).Required().MaxLength(100)
	v.Field("password", d.Password).Required().MinLength(auth.MinPasswordLength).MaxBytes(auth.MaxPasswordBytes)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}
