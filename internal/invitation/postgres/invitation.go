package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	invitationDatamodel "github.com/frahmantamala/venue-management/internal/core/datamodel/invitation"
	staffDatamodel "github.com/frahmantamala/venue-management/internal/core/datamodel/staff"
	userDatamodel "github.com/frahmantamala/venue-management/internal/core/datamodel/user"
	venueDatamodel "github.com/frahmantamala/venue-management/internal/core/datamodel/venue"
	"github.com/frahmantamala/venue-management/internal/invitation"
	"github.com/frahmantamala/venue-management/internal/staff"
	staffPostgres "github.com/frahmantamala/venue-management/internal/staff/postgres"
	"github.com/frahmantamala/venue-management/internal/user"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InvitationRepository struct {
	db *gorm.DB
}

func NewInvitationRepository(db *gorm.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

func (r *InvitationRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*invitation.Invitation, error) {
	var row invitationDatamodel.StaffInvitation
	if err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invitation.ErrNotFound
		}
		return nil, err
	}
	return invitation.FromDataModel(&row), nil
}

func (r *InvitationRepository) UserIDByEmail(ctx context.Context, email string) (string, error) {
	var row userDatamodel.User
	if err := r.db.WithContext(ctx).Select("id").Where("email = ?", email).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", user.ErrNotFound
		}
		return "", err
	}
	return row.ID, nil
}

func (r *InvitationRepository) GetVenueSummary(ctx context.Context, venueID string) (*invitation.VenueSummary, error) {
	var row venueDatamodel.Venue
	if err := r.db.WithContext(ctx).Select("name", "slug").Where("id = ?", venueID).First(&row).Error; err != nil {
		return nil, err
	}
	return &invitation.VenueSummary{Name: row.Name, Slug: row.Slug}, nil
}

func (r *InvitationRepository) Accept(ctx context.Context, p invitation.AcceptParams) (*invitation.AcceptResult, error) {
	result := &invitation.AcceptResult{}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u userDatamodel.User
		err := tx.Where("email = ?", p.Email).First(&u).Error
		switch {
		case err == nil:
		case errors.Is(err, gorm.ErrRecordNotFound):
			if p.PasswordHash == "" {
				return fmt.Errorf("user %s disappeared during acceptance", p.Email)
			}
			hash := p.PasswordHash
			u = userDatamodel.User{
				ID:           uuid.NewString(),
				Email:        p.Email,
				Name:         p.Name,
				PasswordHash: &hash,
				IsActive:     true,
				CreatedAt:    p.Now,
				UpdatedAt:    p.Now,
			}
			if err := tx.Create(&u).Error; err != nil {
				return err
			}
			result.CreatedUser = true
		default:
			return err
		}
		result.UserID = u.ID

		var active int64
		err = tx.Model(&staffDatamodel.Assignment{}).
			Where("venue_id = ? AND user_id = ? AND deleted_at IS NULL", p.VenueID, u.ID).
			Count(&active).Error
		if err != nil {
			return err
		}
		if active > 0 {
			return invitation.ErrAlreadyStaff
		}

		assignment := &staff.Assignment{
			ID:        uuid.NewString(),
			UserID:    u.ID,
			VenueID:   p.VenueID,
			CreatedAt: p.Now,
			State:     staff.Active{Role: p.Role},
		}
		if err := staffPostgres.CreateAssignment(ctx, tx, assignment); err != nil {
			if errors.Is(err, staff.ErrAlreadyActive) {
				return invitation.ErrAlreadyStaff
			}
			return err
		}
		result.StaffID = assignment.ID

		res := tx.Model(&invitationDatamodel.StaffInvitation{}).
			Where("id = ? AND accepted_at IS NULL", p.InvitationID).
			Update("accepted_at", p.Now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return invitation.ErrAlreadyUsed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// The methods below serve the staff directory's invitation store.

func (r *InvitationRepository) HasLiveInvitation(ctx context.Context, venueID, email string, now time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&invitationDatamodel.StaffInvitation{}).
		Where("venue_id = ? AND email = ? AND accepted_at IS NULL AND expires_at > ?", venueID, email, now).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *InvitationRepository) CreateInvitation(ctx context.Context, row *invitationDatamodel.StaffInvitation) error {
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return staff.ErrTokenCollision
		}
		return err
	}
	return nil
}

func (r *InvitationRepository) DeleteInvitation(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&invitationDatamodel.StaffInvitation{}).Error
}

func (r *InvitationRepository) ListLiveInvitations(ctx context.Context, venueID string, now time.Time) ([]invitationDatamodel.StaffInvitation, error) {
	var rows []invitationDatamodel.StaffInvitation
	err := r.db.WithContext(ctx).
		Where("venue_id = ? AND accepted_at IS NULL AND expires_at > ?", venueID, now).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
