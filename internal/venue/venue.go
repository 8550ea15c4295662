package venue

import (
	"errors"
	"time"

	venueDatamodel "github.com/frahmantamala/venue-management/internal/core/datamodel/venue"
	"github.com/frahmantamala/venue-management/internal/staff"
)

var (
	ErrNotFound  = errors.New("venue not found")
	ErrSlugTaken = errors.New("venue slug already taken")
)

const DefaultPreauthAmountCents = 5000

type Venue struct {
	ID                      string    `json:"id"`
	Name                    string    `json:"name"`
	Slug                    string    `json:"slug"`
	Timezone                string    `json:"timezone"`
	Currency                string    `json:"currency"`
	PaymentAccountID        *string   `json:"payment_account_id,omitempty"`
	PaymentOnboardingStatus string    `json:"payment_onboarding_status"`
	ChargesEnabled          bool      `json:"charges_enabled"`
	PayoutsEnabled          bool      `json:"payouts_enabled"`
	PreauthAmountCents      int64     `json:"preauth_amount_cents"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// Summary is a venue as listed for one caller, with the caller's role there.
type Summary struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Slug     string     `json:"slug"`
	Timezone string     `json:"timezone"`
	Currency string     `json:"currency"`
	Role     staff.Role `json:"role"`
}

type Detail struct {
	*Venue
	Role staff.Role `json:"role"`
}

type CreateResponse struct {
	VenueID string `json:"venue_id"`
	Slug    string `json:"slug"`
}

type ListResponse struct {
	Venues []Summary `json:"venues"`
}

func ToDataModel(v *Venue) *venueDatamodel.Venue {
	return &venueDatamodel.Venue{
		ID:                      v.ID,
		Name:                    v.Name,
		Slug:                    v.Slug,
		Timezone:                v.Timezone,
		Currency:                v.Currency,
		PaymentAccountID:        v.PaymentAccountID,
		PaymentOnboardingStatus: v.PaymentOnboardingStatus,
		ChargesEnabled:          v.ChargesEnabled,
		PayoutsEnabled:          v.PayoutsEnabled,
		PreauthAmountCents:      v.PreauthAmountCents,
		CreatedAt:               v.CreatedAt,
		UpdatedAt:               v.UpdatedAt,
	}
}

func FromDataModel(v *venueDatamodel.Venue) *Venue {
	return &Venue{
		ID:                      v.ID,
		Name:                    v.Name,
		Slug:                    v.Slug,
		Timezone:                v.Timezone,
		Currency:                v.Currency,
		PaymentAccountID:        v.PaymentAccountID,
		PaymentOnboardingStatus: v.PaymentOnboardingStatus,
		ChargesEnabled:          v.ChargesEnabled,
		PayoutsEnabled:          v.PayoutsEnabled,
		PreauthAmountCents:      v.PreauthAmountCents,
		CreatedAt:               v.CreatedAt,
		UpdatedAt:               v.UpdatedAt,
	}
}
