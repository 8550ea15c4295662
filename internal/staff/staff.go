package staff

import (
	"errors"
	"time"

	staffDatamodel "github.com/frahmantamala/venue-management/internal/core/datamodel/staff"
)

var (
	ErrNotFound      = errors.New("staff assignment not found")
	ErrLastOwner     = errors.New("venue would be left without an owner")
	ErrAlreadyActive = errors.New("user already has an active assignment at this venue")
)

// State is either Active or Deactivated. Deactivation is terminal.
type State interface {
	isState()
}

type Active struct {
	Role Role
}

type Deactivated struct {
	At       time.Time
	LastRole Role
}

func (Active) isState()      {}
func (Deactivated) isState() {}

type Assignment struct {
	ID        string
	UserID    string
	VenueID   string
	CreatedAt time.Time
	State     State
}

// ActiveRole returns the role of an active assignment.
func (a *Assignment) ActiveRole() (Role, bool) {
	if s, ok := a.State.(Active); ok {
		return s.Role, true
	}
	return "", false
}

func (a *Assignment) IsActive() bool {
	_, ok := a.State.(Active)
	return ok
}

// ToDataModel flattens the state into the nullable deleted_at storage encoding.
func ToDataModel(a *Assignment) *staffDatamodel.Assignment {
	row := &staffDatamodel.Assignment{
		ID:        a.ID,
		UserID:    a.UserID,
		VenueID:   a.VenueID,
		CreatedAt: a.CreatedAt,
	}
	switch s := a.State.(type) {
	case Active:
		row.Role = string(s.Role)
	case Deactivated:
		at := s.At
		row.Role = string(s.LastRole)
		row.DeletedAt = &at
	}
	return row
}

func FromDataModel(row *staffDatamodel.Assignment) *Assignment {
	a := &Assignment{
		ID:        row.ID,
		UserID:    row.UserID,
		VenueID:   row.VenueID,
		CreatedAt: row.CreatedAt,
	}
	if row.DeletedAt != nil {
		a.State = Deactivated{At: *row.DeletedAt, LastRole: Role(row.Role)}
	} else {
		a.State = Active{Role: Role(row.Role)}
	}
	return a
}

// Member is an active assignment joined with its user, as shown in the roster.
type Member struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	Role      Role      `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type PendingInvitation struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	InvitedBy string    `json:"invited_by"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

type StaffList struct {
	ActiveStaff        []Member            `json:"active_staff"`
	PendingInvitations []PendingInvitation `json:"pending_invitations"`
}

type InviteResponse struct {
	InvitationID string    `json:"invitation_id"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}
