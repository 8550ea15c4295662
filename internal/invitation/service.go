package invitation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/venue-management/internal"
	"github.com/frahmantamala/venue-management/internal/core/events"
	"github.com/frahmantamala/venue-management/internal/user"
	"github.com/frahmantamala/venue-management/pkg/token"
)

type Repository interface {
	GetByTokenHash(ctx context.Context, tokenHash string) (*Invitation, error)
	// UserIDByEmail returns user.ErrNotFound when no account exists.
	UserIDByEmail(ctx context.Context, email string) (string, error)
	GetVenueSummary(ctx context.Context, venueID string) (*VenueSummary, error)
	// Accept materializes the user, inserts the assignment and marks the
	// invitation accepted in one transaction.
	Accept(ctx context.Context, p AcceptParams) (*AcceptResult, error)
}

type PasswordHasher interface {
	Hash(plaintext string) (string, error)
}

type ServiceAPI interface {
	Accept(ctx context.Context, dto AcceptInvitationDTO) (*AcceptResponse, error)
	Preview(ctx context.Context, rawToken string) (*Preview, error)
}

type Service struct {
	repo   Repository
	hasher PasswordHasher
	events events.Publisher
	now    func() time.Time
	logger *slog.Logger
}

func NewService(repo Repository, hasher PasswordHasher, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		hasher: hasher,
		events: publisher,
		now:    time.Now,
		logger: logger,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Preview(ctx context.Context, rawToken string) (*Preview, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, internal.ErrInvalidToken
	}

	inv, err := s.acceptable(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	venue, err := s.repo.GetVenueSummary(ctx, inv.VenueID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load venue", err)
	}

	return &Preview{
		VenueName: venue.Name,
		Email:     inv.Email,
		Role:      inv.Role,
		ExpiresAt: inv.ExpiresAt,
	}, nil
}

func (s *Service) Accept(ctx context.Context, dto AcceptInvitationDTO) (*AcceptResponse, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	inv, err := s.acceptable(ctx, dto.Token)
	if err != nil {
		return nil, err
	}

	params := AcceptParams{
		InvitationID: inv.ID,
		VenueID:      inv.VenueID,
		Email:        inv.Email,
		Role:         inv.Role,
		Name:         strings.TrimSpace(dto.Name),
		Now:          s.now().UTC(),
	}

	// Existing accounts keep their name and credential; only hash for new ones.
	if _, err := s.repo.UserIDByEmail(ctx, inv.Email); err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			return nil, internal.NewInternalError("failed to look up user", err)
		}
		hash, err := s.hasher.Hash(dto.Password)
		if err != nil {
			return nil, internal.NewInternalError("failed to hash password", err)
		}
		params.PasswordHash = hash
	}

	result, err := s.repo.Accept(ctx, params)
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyUsed):
			return nil, internal.ErrAlreadyUsed
		case errors.Is(err, ErrAlreadyStaff):
			return nil, internal.ErrAlreadyStaff
		default:
			return nil, internal.NewInternalError("failed to accept invitation", err)
		}
	}

	venue, err := s.repo.GetVenueSummary(ctx, inv.VenueID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load venue", err)
	}

	s.logger.Info("invitation accepted",
		"invitation_id", inv.ID,
		"venue_id", inv.VenueID,
		"user_id", result.UserID,
		"created_user", result.CreatedUser)
	s.publish(ctx, events.NewInvitationAcceptedEvent(inv.ID, inv.VenueID, result.UserID, result.StaffID, string(inv.Role)))
	if result.CreatedUser {
		s.publish(ctx, events.NewUserRegisteredEvent(result.UserID))
	}

	return &AcceptResponse{VenueID: inv.VenueID, VenueSlug: venue.Slug}, nil
}

// acceptable applies the token checks in order: unknown, expired, already used.
func (s *Service) acceptable(ctx context.Context, rawToken string) (*Invitation, error) {
	inv, err := s.repo.GetByTokenHash(ctx, token.Fingerprint(rawToken))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, internal.ErrInvalidToken
		}
		return nil, internal.NewInternalError("failed to look up invitation", err)
	}
	if inv.Expired(s.now().UTC()) {
		return nil, internal.ErrTokenExpired
	}
	if inv.Accepted() {
		return nil, internal.ErrAlreadyUsed
	}
	return inv, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}
