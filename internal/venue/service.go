package venue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/venue-management/internal"
	"github.com/frahmantamala/venue-management/internal/core/events"
	"github.com/frahmantamala/venue-management/internal/staff"
	"github.com/google/uuid"
)

type Repository interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
	// CreateWithOwner writes the venue and its owner assignment atomically.
	// A slug unique violation yields ErrSlugTaken.
	CreateWithOwner(ctx context.Context, v *Venue, owner *staff.Assignment) error
	GetByID(ctx context.Context, id string) (*Venue, error)
	ListAccessible(ctx context.Context, userID string) ([]Summary, error)
}

type RoleLookup interface {
	CallerRole(ctx context.Context, venueID, userID string) (staff.Role, error)
}

type ServiceAPI interface {
	Create(ctx context.Context, dto CreateVenueDTO) (*CreateResponse, error)
	ListAccessible(ctx context.Context) (*ListResponse, error)
	GetByID(ctx context.Context, venueID string) (*Detail, error)
}

type Service struct {
	repo   Repository
	roles  RoleLookup
	events events.Publisher
	now    func() time.Time
	logger *slog.Logger
}

func NewService(repo Repository, roles RoleLookup, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		roles:  roles,
		events: publisher,
		now:    time.Now,
		logger: logger,
	}
}

// Create registers a venue and makes the caller its first OWNER.
func (s *Service) Create(ctx context.Context, dto CreateVenueDTO) (*CreateResponse, error) {
	identity, err := internal.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	slug, err := s.freeSlug(ctx, BaseSlug(dto.Name, MaxSlugLength))
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	v := &Venue{
		ID:                      uuid.NewString(),
		Name:                    dto.Name,
		Slug:                    slug,
		Timezone:                dto.Timezone,
		Currency:                dto.Currency,
		PaymentOnboardingStatus: "not_started",
		PreauthAmountCents:      DefaultPreauthAmountCents,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	owner := &staff.Assignment{
		ID:        uuid.NewString(),
		UserID:    identity.UserID,
		VenueID:   v.ID,
		CreatedAt: now,
		State:     staff.Active{Role: staff.RoleOwner},
	}

	if err := s.repo.CreateWithOwner(ctx, v, owner); err != nil {
		if errors.Is(err, ErrSlugTaken) {
			return nil, internal.ErrSlugConflict
		}
		return nil, internal.NewInternalError("failed to create venue", err)
	}

	s.logger.Info("venue created", "venue_id", v.ID, "slug", v.Slug, "owner_id", identity.UserID)
	s.publish(ctx, events.NewVenueCreatedEvent(v.ID, v.Slug, identity.UserID))

	return &CreateResponse{VenueID: v.ID, Slug: v.Slug}, nil
}

// freeSlug tries candidates in order. The check is check-then-act; the unique
// index on venues.slug catches concurrent creations.
func (s *Service) freeSlug(ctx context.Context, base string) (string, error) {
	for _, candidate := range SlugCandidates(base) {
		taken, err := s.repo.SlugExists(ctx, candidate)
		if err != nil {
			return "", internal.NewInternalError("failed to check slug", err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", internal.ErrSlugExhausted
}

func (s *Service) ListAccessible(ctx context.Context) (*ListResponse, error) {
	identity, err := internal.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	venues, err := s.repo.ListAccessible(ctx, identity.UserID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list venues", err)
	}
	if venues == nil {
		venues = []Summary{}
	}
	return &ListResponse{Venues: venues}, nil
}

func (s *Service) GetByID(ctx context.Context, venueID string) (*Detail, error) {
	identity, err := internal.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	// Access first: non-members learn nothing about which venue ids exist.
	role, err := s.roles.CallerRole(ctx, venueID, identity.UserID)
	if err != nil {
		return nil, err
	}
	if appErr := staff.Authorize(role, staff.OpList, "", ""); appErr != nil {
		return nil, appErr
	}

	v, err := s.repo.GetByID(ctx, venueID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, internal.ErrVenueNotFound
		}
		return nil, internal.NewInternalError("failed to load venue", err)
	}

	return &Detail{Venue: v, Role: role}, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}
