package auth

import (
	"github.com/frahmantamala/venue-management/internal/core/common/validation"
)

const (
	MinPasswordLength = 8
	// bcrypt rejects input past 72 bytes
	MaxPasswordBytes = 72
)

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (d LoginDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required()
	v.Field("password", d.Password).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// RefreshTokenDTO for refresh token requests
type RefreshTokenDTO struct {
	RefreshToken string `json:"refresh_token"`
}

func (d RefreshTokenDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("refresh_token", d.RefreshToken).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type RegisterDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

func (d RegisterDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Email()
	v.Field("password", d.Password).Required().MinLength(MinPasswordLength).MaxBytes(MaxPasswordBytes)
	v.Field("name", d.Name).MaxLength(100)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type PasswordResetRequestDTO struct {
	Email string `json:"email"`
}

func (d PasswordResetRequestDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Email()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type PasswordResetDTO struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (d PasswordResetDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("token", d.Token).Required()
	v.Field("new_password", d.NewPassword).Required().MinLength(MinPasswordLength).MaxBytes(MaxPasswordBytes)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}
