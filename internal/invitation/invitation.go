package invitation

import (
	"errors"
	"time"

	invitationDatamodel "github.com/frahmantamala/venue-management/internal/core/datamodel/invitation"
	"github.com/frahmantamala/venue-management/internal/staff"
)

var (
	ErrNotFound     = errors.New("invitation not found")
	ErrAlreadyUsed  = errors.New("invitation already accepted")
	ErrAlreadyStaff = errors.New("user already staff at venue")
)

type Invitation struct {
	ID         string
	VenueID    string
	Email      string
	Role       staff.Role
	TokenHash  string
	ExpiresAt  time.Time
	AcceptedAt *time.Time
	InvitedBy  string
	CreatedAt  time.Time
}

// Expired reports whether the invitation can no longer be accepted at now.
func (i *Invitation) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

func (i *Invitation) Accepted() bool {
	return i.AcceptedAt != nil
}

func FromDataModel(row *invitationDatamodel.StaffInvitation) *Invitation {
	return &Invitation{
		ID:         row.ID,
		VenueID:    row.VenueID,
		Email:      row.Email,
		Role:       staff.Role(row.Role),
		TokenHash:  row.TokenHash,
		ExpiresAt:  row.ExpiresAt,
		AcceptedAt: row.AcceptedAt,
		InvitedBy:  row.InvitedBy,
		CreatedAt:  row.CreatedAt,
	}
}

// AcceptParams carries everything the acceptance transaction writes.
// PasswordHash is empty when the user already existed at the pre-check.
type AcceptParams struct {
	InvitationID string
	VenueID      string
	Email        string
	Role         staff.Role
	Name         string
	PasswordHash string
	Now          time.Time
}

type AcceptResult struct {
	UserID      string
	StaffID     string
	CreatedUser bool
}

type VenueSummary struct {
	Name string
	Slug string
}

type AcceptResponse struct {
	VenueID   string `json:"venue_id"`
	VenueSlug string `json:"venue_slug"`
}

type Preview struct {
	VenueName string     `json:"venue_name"`
	Email     string     `json:"email"`
	Role      staff.Role `json:"role"`
	ExpiresAt time.Time  `json:"expires_at"`
}
