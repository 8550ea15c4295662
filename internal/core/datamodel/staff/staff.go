package staff

import "time"

// Assignment is the storage row for a staff assignment. A non-nil DeletedAt marks
// the row deactivated; at most one row per (user, venue) may have it unset.
type Assignment struct {
	ID        string     `gorm:"primaryKey;type:uuid"`
	UserID    string     `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_staff_active_user_venue,where:deleted_at IS NULL;index"`
	VenueID   string     `gorm:"column:venue_id;type:uuid;not null;uniqueIndex:idx_staff_active_user_venue,where:deleted_at IS NULL;index"`
	Role      string     `gorm:"column:role;not null"`
	CreatedAt time.Time  `gorm:"column:created_at"`
	DeletedAt *time.Time `gorm:"column:deleted_at"`
}

func (Assignment) TableName() string {
	return "staff_assignments"
}
