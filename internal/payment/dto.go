package payment

import (
	"fmt"
	"net/url"

	"github.com/frahmantamala/venue-management/internal"
	"github.com/frahmantamala/venue-management/internal/core/common/validation"
)

type OnboardingLinkDTO struct {
	ReturnURL  string `json:"return_url"`
	RefreshURL string `json:"refresh_url"`
}

func (d OnboardingLinkDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("return_url", d.ReturnURL).Required().Custom(absoluteURL("return_url"))
	v.Field("refresh_url", d.RefreshURL).Required().Custom(absoluteURL("refresh_url"))
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type UpdatePreauthDTO struct {
	AmountCents int64 `json:"amount_cents"`
}

func (d UpdatePreauthDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("amount_cents", d.AmountCents).
		MinInt(MinPreauthAmountCents, internal.ErrCodeInvalidAmount).
		MaxInt(MaxPreauthAmountCents, internal.ErrCodeInvalidAmount)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

func absoluteURL(field string) func(interface{}) *internal.AppError {
	return func(value interface{}) *internal.AppError {
		raw, _ := value.(string)
		u, err := url.ParseRequestURI(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return internal.NewValidationFieldError(field, fmt.Sprintf("%s must be an absolute http(s) URL", field), internal.ErrCodeValidationFailed)
		}
		return nil
	}
}
