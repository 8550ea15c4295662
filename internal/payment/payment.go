package payment

import (
	"errors"
	"time"

	gatewaytypes "github.com/frahmantamala/venue-management/internal/core/datamodel/paymentgateway"
	"gorm.io/datatypes"
)

type OnboardingStatus string

const (
	StatusNotStarted OnboardingStatus = "not_started"
	StatusPending    OnboardingStatus = "pending"
	StatusRestricted OnboardingStatus = "restricted"
	StatusComplete   OnboardingStatus = "complete"
)

const (
	MinPreauthAmountCents = 100
	MaxPreauthAmountCents = 100000
)

var (
	ErrVenueNotFound          = errors.New("venue not found")
	ErrAccountAlreadyAttached = errors.New("venue already has a payment account")
	ErrEventAlreadyProcessed  = errors.New("webhook event already processed")
)

// AccountState is the locally mirrored view of a processor account.
type AccountState struct {
	Status         OnboardingStatus
	ChargesEnabled bool
	PayoutsEnabled bool
}

// DeriveState maps a processor account onto the venue's onboarding columns.
func DeriveState(acct *gatewaytypes.Account) AccountState {
	state := AccountState{
		ChargesEnabled: acct.ChargesEnabled,
		PayoutsEnabled: acct.PayoutsEnabled,
	}
	switch {
	case acct.ChargesEnabled && acct.PayoutsEnabled:
		state.Status = StatusComplete
	case acct.DetailsSubmitted:
		state.Status = StatusRestricted
	default:
		state.Status = StatusPending
	}
	return state
}

// VenueAccount is the payment slice of a venue row.
type VenueAccount struct {
	VenueID            string
	Name               string
	Currency           string
	AccountID          *string
	State              AccountState
	PreauthAmountCents int64
}

func (v *VenueAccount) HasAccount() bool {
	return v.AccountID != nil && *v.AccountID != ""
}

// WebhookRecord is the idempotency row written for every accepted callback.
type WebhookRecord struct {
	EventID     string
	Type        string
	AccountID   string
	Payload     datatypes.JSON
	ProcessedAt time.Time
}

// AccountChange reports what an account.updated callback did. VenueID is empty
// when no venue is linked to the account.
type AccountChange struct {
	VenueID   string
	OldStatus OnboardingStatus
	NewStatus OnboardingStatus
}

type AccountResponse struct {
	AccountID      string           `json:"account_id,omitempty"`
	Status         OnboardingStatus `json:"status"`
	ChargesEnabled bool             `json:"charges_enabled"`
	PayoutsEnabled bool             `json:"payouts_enabled"`
}

type OnboardingLinkResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type PreauthResponse struct {
	PreauthAmountCents int64 `json:"preauth_amount_cents"`
}

type WebhookResponse struct {
	Received bool `json:"received"`
}
