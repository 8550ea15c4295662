package invitation

import "time"

type StaffInvitation struct {
	ID         string     `gorm:"primaryKey;type:uuid"`
	VenueID    string     `gorm:"column:venue_id;type:uuid;not null;index:idx_invitation_venue_email"`
	Email      string     `gorm:"column:email;not null;index:idx_invitation_venue_email"`
	Role       string     `gorm:"column:role;not null"`
	TokenHash  string     `gorm:"column:token_hash;uniqueIndex;not null"`
	ExpiresAt  time.Time  `gorm:"column:expires_at;not null"`
	AcceptedAt *time.Time `gorm:"column:accepted_at"`
	InvitedBy  string     `gorm:"column:invited_by;type:uuid;not null"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
}

func (StaffInvitation) TableName() string {
	return "staff_invitations"
}

// IsLive reports whether the invitation can still be accepted at now.
func (i *StaffInvitation) IsLive(now time.Time) bool {
	return i.AcceptedAt == nil && now.Before(i.ExpiresAt)
}
