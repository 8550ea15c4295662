package venue

import (
	"fmt"
	"strings"
	"time"

	"github.com/frahmantamala/venue-management/internal"
	"github.com/frahmantamala/venue-management/internal/core/common/validation"
)

type CreateVenueDTO struct {
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
	Currency string `json:"currency"`
}

// Normalize trims input and upper-cases the currency.
func (d *CreateVenueDTO) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.Timezone = strings.TrimSpace(d.Timezone)
	d.Currency = strings.ToUpper(strings.TrimSpace(d.Currency))
}

func (d CreateVenueDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MinLength(2).MaxLength(100)
	v.Field("timezone", d.Timezone).Required().MinLength(3).MaxLength(50).Custom(validTimezone("timezone"))
	v.Field("currency", d.Currency).Required().Custom(validCurrency("currency"))
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

func validTimezone(field string) func(interface{}) *internal.AppError {
	return func(value interface{}) *internal.AppError {
		tz, _ := value.(string)
		if _, err := time.LoadLocation(tz); err != nil {
			return internal.NewValidationFieldError(field, fmt.Sprintf("%s is not a known IANA time zone", field), internal.ErrCodeInvalidTimezone)
		}
		return nil
	}
}

func validCurrency(field string) func(interface{}) *internal.AppError {
	return func(value interface{}) *internal.AppError {
		c, _ := value.(string)
		if len(c) != 3 {
			return internal.NewValidationFieldError(field, fmt.Sprintf("%s must be a 3 letter ISO 4217 code", field), internal.ErrCodeInvalidCurrency)
		}
		for _, r := range c {
			if r < 'A' || r > 'Z' {
				return internal.NewValidationFieldError(field, fmt.Sprintf("%s must be a 3 letter ISO 4217 code", field), internal.ErrCodeInvalidCurrency)
			}
		}
		return nil
	}
}
