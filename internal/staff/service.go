package staff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/frahmantamala/venue-management/internal"
	"github.com/frahmantamala/venue-management/internal/core/common/validation"
	invitationDatamodel "github.com/frahmantamala/venue-management/internal/core/datamodel/invitation"
	"github.com/frahmantamala/venue-management/internal/core/events"
	"github.com/frahmantamala/venue-management/internal/notification"
	"github.com/frahmantamala/venue-management/pkg/token"
	"github.com/google/uuid"
)

const DefaultInvitationTTL = 7 * 24 * time.Hour

// ErrTokenCollision is returned by CreateInvitation when the token hash is already stored.
var ErrTokenCollision = errors.New("invitation token collision")

const maxTokenAttempts = 3

type Repository interface {
	// GetActiveByID returns ErrNotFound for missing and deactivated assignments.
	GetActiveByID(ctx context.Context, id string) (*Assignment, error)
	// GetActiveRole returns ErrNotFound when the user has no active assignment at the venue.
	GetActiveRole(ctx context.Context, venueID, userID string) (Role, error)
	HasActiveAssignmentForEmail(ctx context.Context, venueID, email string) (bool, error)
	UpdateRole(ctx context.Context, id string, role Role) error
	// Deactivate soft deletes an active assignment. Removing an OWNER fails with
	// ErrLastOwner when no other active OWNER would remain.
	Deactivate(ctx context.Context, id string, at time.Time) error
	ListActiveEmailsByRole(ctx context.Context, venueID string, role Role) ([]string, error)
}

// Roster is the read model behind listStaff.
type Roster interface {
	ListActive(ctx context.Context, venueID string) ([]Member, error)
}

type InvitationStore interface {
	HasLiveInvitation(ctx context.Context, venueID, email string, now time.Time) (bool, error)
	CreateInvitation(ctx context.Context, row *invitationDatamodel.StaffInvitation) error
	DeleteInvitation(ctx context.Context, id string) error
	ListLiveInvitations(ctx context.Context, venueID string, now time.Time) ([]invitationDatamodel.StaffInvitation, error)
}

type VenueLookup interface {
	// VenueName returns internal.ErrVenueNotFound when the venue is absent.
	VenueName(ctx context.Context, venueID string) (string, error)
}

type ServiceAPI interface {
	CallerRole(ctx context.Context, venueID, userID string) (Role, error)
	ListStaff(ctx context.Context, venueID string) (*StaffList, error)
	InviteStaff(ctx context.Context, venueID string, dto InviteStaffDTO) (*InviteResponse, error)
	UpdateStaffRole(ctx context.Context, staffID string, dto UpdateStaffRoleDTO) error
	DeactivateStaff(ctx context.Context, staffID string) error
}

type Options struct {
	Sender        notification.Sender
	Tokens        token.Generator
	Events        events.Publisher
	InvitationTTL time.Duration
	PublicURL     string
	Now           func() time.Time
}

type Service struct {
	repo          Repository
	roster        Roster
	invitations   InvitationStore
	venues        VenueLookup
	sender        notification.Sender
	tokens        token.Generator
	events        events.Publisher
	invitationTTL time.Duration
	publicURL     string
	now           func() time.Time
	logger        *slog.Logger
}

func NewService(repo Repository, roster Roster, invitations InvitationStore, venues VenueLookup, opts Options, logger *slog.Logger) *Service {
	if opts.Tokens == nil {
		opts.Tokens = token.NewGenerator()
	}
	if opts.InvitationTTL <= 0 {
		opts.InvitationTTL = DefaultInvitationTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		repo:          repo,
		roster:        roster,
		invitations:   invitations,
		venues:        venues,
		sender:        opts.Sender,
		tokens:        opts.Tokens,
		events:        opts.Events,
		invitationTTL: opts.InvitationTTL,
		publicURL:     strings.TrimRight(opts.PublicURL, "/"),
		now:           opts.Now,
		logger:        logger,
	}
}

// CallerRole returns the user's active role at the venue, or "" when there is none.
func (s *Service) CallerRole(ctx context.Context, venueID, userID string) (Role, error) {
	role, err := s.repo.GetActiveRole(ctx, venueID, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", internal.NewInternalError("failed to load staff role", err)
	}
	return role, nil
}

func (s *Service) ListStaff(ctx context.Context, venueID string) (*StaffList, error) {
	identity, err := internal.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	role, err := s.CallerRole(ctx, venueID, identity.UserID)
	if err != nil {
		return nil, err
	}
	if appErr := Authorize(role, OpList, "", ""); appErr != nil {
		return nil, appErr
	}

	members, err := s.roster.ListActive(ctx, venueID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list staff", err)
	}

	rows, err := s.invitations.ListLiveInvitations(ctx, venueID, s.now().UTC())
	if err != nil {
		return nil, internal.NewInternalError("failed to list invitations", err)
	}

	pending := make([]PendingInvitation, 0, len(rows))
	for _, row := range rows {
		pending = append(pending, PendingInvitation{
			ID:        row.ID,
			Email:     row.Email,
			Role:      Role(row.Role),
			InvitedBy: row.InvitedBy,
			ExpiresAt: row.ExpiresAt,
			CreatedAt: row.CreatedAt,
		})
	}
	if members == nil {
		members = []Member{}
	}

	return &StaffList{ActiveStaff: members, PendingInvitations: pending}, nil
}

// InviteStaff records an invitation and delivers it synchronously. When delivery
// fails the invitation is deleted again and NotificationFailed is returned.
func (s *Service) InviteStaff(ctx context.Context, venueID string, dto InviteStaffDTO) (*InviteResponse, error) {
	identity, err := internal.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	dto.Email = validation.NormalizeEmail(dto.Email)
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	role, err := s.CallerRole(ctx, venueID, identity.UserID)
	if err != nil {
		return nil, err
	}
	if appErr := Authorize(role, OpInvite, "", dto.Role); appErr != nil {
		return nil, appErr
	}

	isStaff, err := s.repo.HasActiveAssignmentForEmail(ctx, venueID, dto.Email)
	if err != nil {
		return nil, internal.NewInternalError("failed to check existing staff", err)
	}
	if isStaff {
		return nil, internal.ErrAlreadyStaff
	}

	now := s.now().UTC()
	pending, err := s.invitations.HasLiveInvitation(ctx, venueID, dto.Email, now)
	if err != nil {
		return nil, internal.NewInternalError("failed to check pending invitations", err)
	}
	if pending {
		return nil, internal.ErrDuplicateInvite
	}

	venueName, err := s.venues.VenueName(ctx, venueID)
	if err != nil {
		if _, ok := internal.IsAppError(err); ok {
			return nil, err
		}
		return nil, internal.NewInternalError("failed to load venue", err)
	}

	row := &invitationDatamodel.StaffInvitation{
		ID:        uuid.NewString(),
		VenueID:   venueID,
		Email:     dto.Email,
		Role:      string(dto.Role),
		ExpiresAt: now.Add(s.invitationTTL),
		InvitedBy: identity.UserID,
		CreatedAt: now,
	}
	var raw string
	for attempt := 1; ; attempt++ {
		var fingerprint string
		raw, fingerprint, err = s.tokens.New()
		if err != nil {
			return nil, internal.NewInternalError("failed to generate invitation token", err)
		}
		row.TokenHash = fingerprint

		err = s.invitations.CreateInvitation(ctx, row)
		if err == nil {
			break
		}
		if errors.Is(err, ErrTokenCollision) && attempt < maxTokenAttempts {
			s.logger.Warn("invitation token collision, regenerating", "venue_id", venueID, "attempt", attempt)
			continue
		}
		return nil, internal.NewInternalError("failed to create invitation", err)
	}

	msg := notification.NewMessage(dto.Email, notification.KindStaffInvitation, map[string]string{
		"venue_name":   venueName,
		"inviter_name": inviterName(identity),
		"role":         string(dto.Role),
		"accept_url":   s.acceptURL(raw),
		"expires_at":   row.ExpiresAt.Format(time.RFC1123),
	})
	if err := s.send(ctx, msg); err != nil {
		// The caller may have gone away; the cleanup must still run.
		if delErr := s.invitations.DeleteInvitation(context.WithoutCancel(ctx), row.ID); delErr != nil {
			s.logger.Error("failed to delete undeliverable invitation", "invitation_id", row.ID, "error", delErr)
		}
		s.logger.Warn("invitation notification failed", "invitation_id", row.ID, "venue_id", venueID, "error", err)
		return nil, internal.ErrNotification.WithCause(err)
	}

	s.logger.Info("staff invited", "invitation_id", row.ID, "venue_id", venueID, "role", dto.Role)
	s.publish(ctx, events.NewStaffInvitedEvent(row.ID, venueID, dto.Email, string(dto.Role), identity.UserID))

	return &InviteResponse{InvitationID: row.ID, ExpiresAt: row.ExpiresAt}, nil
}

func (s *Service) UpdateStaffRole(ctx context.Context, staffID string, dto UpdateStaffRoleDTO) error {
	identity, err := internal.RequireIdentity(ctx)
	if err != nil {
		return err
	}
	if err := dto.Validate(); err != nil {
		return err
	}

	target, targetRole, err := s.activeTarget(ctx, staffID)
	if err != nil {
		return err
	}

	callerRole, err := s.CallerRole(ctx, target.VenueID, identity.UserID)
	if err != nil {
		return err
	}
	if appErr := Authorize(callerRole, OpUpdateRole, "", ""); appErr != nil {
		return appErr
	}
	if target.UserID == identity.UserID {
		return ErrSelfRoleChange
	}
	if appErr := Authorize(callerRole, OpUpdateRole, targetRole, dto.Role); appErr != nil {
		return appErr
	}

	if targetRole == dto.Role {
		return nil
	}

	if err := s.repo.UpdateRole(ctx, staffID, dto.Role); err != nil {
		if errors.Is(err, ErrNotFound) {
			return internal.ErrStaffNotFound
		}
		return internal.NewInternalError("failed to update staff role", err)
	}

	s.logger.Info("staff role changed", "staff_id", staffID, "venue_id", target.VenueID, "old_role", targetRole, "new_role", dto.Role)
	s.publish(ctx, events.NewStaffRoleChangedEvent(staffID, target.VenueID, string(targetRole), string(dto.Role), identity.UserID))
	return nil
}

func (s *Service) DeactivateStaff(ctx context.Context, staffID string) error {
	identity, err := internal.RequireIdentity(ctx)
	if err != nil {
		return err
	}

	target, _, err := s.activeTarget(ctx, staffID)
	if err != nil {
		return err
	}

	callerRole, err := s.CallerRole(ctx, target.VenueID, identity.UserID)
	if err != nil {
		return err
	}
	if appErr := Authorize(callerRole, OpDeactivate, "", ""); appErr != nil {
		return appErr
	}
	if target.UserID == identity.UserID {
		return ErrSelfDeactivate
	}

	if err := s.repo.Deactivate(ctx, staffID, s.now().UTC()); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return internal.ErrStaffNotFound
		case errors.Is(err, ErrLastOwner):
			return ErrLastOwnerDeactivate
		default:
			return internal.NewInternalError("failed to deactivate staff", err)
		}
	}

	s.logger.Info("staff deactivated", "staff_id", staffID, "venue_id", target.VenueID)
	s.publish(ctx, events.NewStaffDeactivatedEvent(staffID, target.VenueID, target.UserID, identity.UserID))
	return nil
}

func (s *Service) activeTarget(ctx context.Context, staffID string) (*Assignment, Role, error) {
	target, err := s.repo.GetActiveByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, "", internal.ErrStaffNotFound
		}
		return nil, "", internal.NewInternalError("failed to load staff assignment", err)
	}
	role, ok := target.ActiveRole()
	if !ok {
		return nil, "", internal.ErrStaffNotFound
	}
	return target, role, nil
}

func (s *Service) send(ctx context.Context, msg notification.Message) error {
	if s.sender == nil {
		return errors.New("no notification sender configured")
	}
	_, err := s.sender.Send(ctx, msg)
	return err
}

func (s *Service) acceptURL(raw string) string {
	return fmt.Sprintf("%s/invitations/accept?token=%s", s.publicURL, url.QueryEscape(raw))
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}

func inviterName(id *internal.Identity) string {
	if id.Name != "" {
		return id.Name
	}
	return id.Email
}
