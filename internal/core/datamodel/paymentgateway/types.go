package paymentgateway

import (
	"encoding/json"
	"errors"
	"time"
)

type AccountType string

const (
	AccountTypeExpress  AccountType = "express"
	AccountTypeStandard AccountType = "standard"
)

const EventTypeAccountUpdated = "account.updated"

type CreateAccountRequest struct {
	Type     AccountType       `json:"type"`
	Country  string            `json:"country"`
	Email    string            `json:"email,omitempty"`
	Currency string            `json:"default_currency"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (r *CreateAccountRequest) Validate() error {
	if r.Type == "" {
		return errors.New("type is required")
	}
	if r.Country == "" {
		return errors.New("country is required")
	}
	if len(r.Currency) != 3 {
		return errors.New("default_currency must be a 3-letter code")
	}
	return nil
}

type Requirements struct {
	CurrentlyDue   []string `json:"currently_due"`
	PastDue        []string `json:"past_due"`
	DisabledReason string   `json:"disabled_reason,omitempty"`
}

type Account struct {
	ID               string            `json:"id"`
	Type             AccountType       `json:"type"`
	ChargesEnabled   bool              `json:"charges_enabled"`
	PayoutsEnabled   bool              `json:"payouts_enabled"`
	DetailsSubmitted bool              `json:"details_submitted"`
	Requirements     Requirements      `json:"requirements"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

type CreateAccountLinkRequest struct {
	Account    string `json:"account"`
	RefreshURL string `json:"refresh_url"`
	ReturnURL  string `json:"return_url"`
	Type       string `json:"type"`
}

func (r *CreateAccountLinkRequest) Validate() error {
	if r.Account == "" {
		return errors.New("account is required")
	}
	if r.RefreshURL == "" || r.ReturnURL == "" {
		return errors.New("refresh_url and return_url are required")
	}
	return nil
}

type AccountLink struct {
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expires_at"`
}

func (l AccountLink) Expiry() time.Time {
	return time.Unix(l.ExpiresAt, 0).UTC()
}

// Event is the envelope of a processor webhook callback.
type Event struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Created int64     `json:"created"`
	Data    EventData `json:"data"`
}

type EventData struct {
	Object json.RawMessage `json:"object"`
}

// Account decodes the event object as an account, for account.* events.
func (e *Event) Account() (*Account, error) {
	if len(e.Data.Object) == 0 {
		return nil, errors.New("event has no data object")
	}
	var acct Account
	if err := json.Unmarshal(e.Data.Object, &acct); err != nil {
		return nil, err
	}
	if acct.ID == "" {
		return nil, errors.New("event object has no account id")
	}
	return &acct, nil
}
