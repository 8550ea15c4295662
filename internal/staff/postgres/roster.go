package postgres

import (
	"context"

	"github.com/frahmantamala/venue-management/internal/staff"
	"github.com/jmoiron/sqlx"
)

const listActiveStaffQuery = `
SELECT sa.id, sa.user_id, u.email, u.name, sa.role, sa.created_at
FROM staff_assignments sa
JOIN users u ON u.id = sa.user_id
WHERE sa.venue_id = ? AND sa.deleted_at IS NULL
ORDER BY sa.created_at ASC, sa.id ASC`

// Roster reads the active staff list with plain SQL.
type Roster struct {
	db *sqlx.DB
}

func NewRoster(db *sqlx.DB) *Roster {
	return &Roster{db: db}
}

func (r *Roster) ListActive(ctx context.Context, venueID string) ([]staff.Member, error) {
	members := []staff.Member{}
	if err := r.db.SelectContext(ctx, &members, r.db.Rebind(listActiveStaffQuery), venueID); err != nil {
		return nil, err
	}
	return members, nil
}
