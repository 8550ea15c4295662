package postgres

import (
	"context"
	"errors"
	"time"

	staffDatamodel "github.com/frahmantamala/venue-management/internal/core/datamodel/staff"
	"github.com/frahmantamala/venue-management/internal/staff"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StaffRepository struct {
	db *gorm.DB
}

func NewStaffRepository(db *gorm.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

func (r *StaffRepository) GetActiveByID(ctx context.Context, id string) (*staff.Assignment, error) {
	var row staffDatamodel.Assignment
	if err := r.db.WithContext(ctx).Where("id = ? AND deleted_at IS NULL", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, staff.ErrNotFound
		}
		return nil, err
	}
	return staff.FromDataModel(&row), nil
}

func (r *StaffRepository) GetActiveRole(ctx context.Context, venueID, userID string) (staff.Role, error) {
	var row staffDatamodel.Assignment
	err := r.db.WithContext(ctx).
		Where("venue_id = ? AND user_id = ? AND deleted_at IS NULL", venueID, userID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", staff.ErrNotFound
		}
		return "", err
	}
	return staff.Role(row.Role), nil
}

func (r *StaffRepository) HasActiveAssignmentForEmail(ctx context.Context, venueID, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&staffDatamodel.Assignment{}).
		Joins("JOIN users ON users.id = staff_assignments.user_id").
		Where("staff_assignments.venue_id = ? AND users.email = ? AND staff_assignments.deleted_at IS NULL", venueID, email).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *StaffRepository) UpdateRole(ctx context.Context, id string, role staff.Role) error {
	res := r.db.WithContext(ctx).
		Model(&staffDatamodel.Assignment{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("role", string(role))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return staff.ErrNotFound
	}
	return nil
}

func (r *StaffRepository) Deactivate(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target staffDatamodel.Assignment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND deleted_at IS NULL", id).
			First(&target).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return staff.ErrNotFound
			}
			return err
		}

		if staff.Role(target.Role) == staff.RoleOwner {
			// Lock every active owner row so two concurrent removals cannot both pass.
			var owners []staffDatamodel.Assignment
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("venue_id = ? AND role = ? AND deleted_at IS NULL", target.VenueID, string(staff.RoleOwner)).
				Find(&owners).Error
			if err != nil {
				return err
			}
			if len(owners) <= 1 {
				return staff.ErrLastOwner
			}
		}

		res := tx.Model(&staffDatamodel.Assignment{}).
			Where("id = ? AND deleted_at IS NULL", id).
			Update("deleted_at", at)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return staff.ErrNotFound
		}
		return nil
	})
}

func (r *StaffRepository) ListActiveEmailsByRole(ctx context.Context, venueID string, role staff.Role) ([]string, error) {
	var emails []string
	err := r.db.WithContext(ctx).
		Table("staff_assignments").
		Joins("JOIN users ON users.id = staff_assignments.user_id").
		Where("staff_assignments.venue_id = ? AND staff_assignments.role = ? AND staff_assignments.deleted_at IS NULL", venueID, string(role)).
		Order("staff_assignments.created_at ASC").
		Pluck("users.email", &emails).Error
	if err != nil {
		return nil, err
	}
	return emails, nil
}

// CreateAssignment inserts an active assignment using db, which may be a transaction.
// A second active assignment for the same user and venue yields staff.ErrAlreadyActive.
func CreateAssignment(ctx context.Context, db *gorm.DB, a *staff.Assignment) error {
	if err := db.WithContext(ctx).Create(staff.ToDataModel(a)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return staff.ErrAlreadyActive
		}
		return err
	}
	return nil
}
