package postgres

import (
	"context"
	"errors"

	"github.com/frahmantamala/venue-management/internal"
	venueDatamodel "github.com/frahmantamala/venue-management/internal/core/datamodel/venue"
	"github.com/frahmantamala/venue-management/internal/staff"
	staffPostgres "github.com/frahmantamala/venue-management/internal/staff/postgres"
	"github.com/frahmantamala/venue-management/internal/venue"
	"gorm.io/gorm"
)

type VenueRepository struct {
	db *gorm.DB
}

func NewVenueRepository(db *gorm.DB) *VenueRepository {
	return &VenueRepository{db: db}
}

func (r *VenueRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&venueDatamodel.Venue{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *VenueRepository) CreateWithOwner(ctx context.Context, v *venue.Venue, owner *staff.Assignment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(venue.ToDataModel(v)).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return venue.ErrSlugTaken
			}
			return err
		}
		return staffPostgres.CreateAssignment(ctx, tx, owner)
	})
}

func (r *VenueRepository) GetByID(ctx context.Context, id string) (*venue.Venue, error) {
	var row venueDatamodel.Venue
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, venue.ErrNotFound
		}
		return nil, err
	}
	return venue.FromDataModel(&row), nil
}

type accessibleRow struct {
	venueDatamodel.Venue
	Role string `gorm:"column:role"`
}

func (r *VenueRepository) ListAccessible(ctx context.Context, userID string) ([]venue.Summary, error) {
	var rows []accessibleRow
	err := r.db.WithContext(ctx).
		Model(&venueDatamodel.Venue{}).
		Select("venues.*, staff_assignments.role").
		Joins("JOIN staff_assignments ON staff_assignments.venue_id = venues.id").
		Where("staff_assignments.user_id = ? AND staff_assignments.deleted_at IS NULL", userID).
		Order("venues.name ASC, venues.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	summaries := make([]venue.Summary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, venue.Summary{
			ID:       row.ID,
			Name:     row.Name,
			Slug:     row.Slug,
			Timezone: row.Timezone,
			Currency: row.Currency,
			Role:     staff.Role(row.Role),
		})
	}
	return summaries, nil
}

// VenueName serves the staff directory's venue lookup.
func (r *VenueRepository) VenueName(ctx context.Context, venueID string) (string, error) {
	var row venueDatamodel.Venue
	if err := r.db.WithContext(ctx).Select("name").Where("id = ?", venueID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", internal.ErrVenueNotFound
		}
		return "", err
	}
	return row.Name, nil
}
