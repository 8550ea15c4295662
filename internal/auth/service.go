package auth

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
	"github.com/frahmantamala/venue-management/internal/core/events"
	"github.com/frahmantamala/venue-management/internal/notification"
	"github.com/frahmantamala/venue-management/internal/user"
	"github.com/frahmantamala/venue-management/pkg/token"
	"github.com/google/uuid"
)

var (
	ErrResetTokenNotFound  = errors.New("reset token not found")
	ErrResetTokenNotUsable = errors.New("reset token already used or expired")
	ErrEmailAlreadyInUse   = errors.New("email already in use")
)

type Repository interface {
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	GetUserByID(ctx context.Context, userID string) (*user.User, error)
	CreateUser(ctx context.Context, u *user.User) error
	CreateResetToken(ctx context.Context, t *ResetToken) error
	GetResetTokenByHash(ctx context.Context, tokenHash string) (*ResetToken, error)
	// ConsumeResetToken marks the token used and stores the new password hash
	// in one transaction. It returns ErrResetTokenNotUsable if another request
	// consumed the token first.
	ConsumeResetToken(ctx context.Context, tokenID, userID, passwordHash string, now time.Time) error
}

type ServiceAPI interface {
	Register(ctx context.Context, dto RegisterDTO) (*RegisterResponse, error)
	Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error)
	RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error)
	RequestPasswordReset(ctx context.Context, dto PasswordResetRequestDTO) error
	ResetPassword(ctx context.Context, dto PasswordResetDTO) error
	ResolveIdentity(ctx context.Context, accessToken string) (*internal.Identity, error)
}

type Options struct {
	Hasher    PasswordHasher
	Tokens    token.Generator
	Notifier  notification.Enqueuer
	Events    events.Publisher
	ResetTTL  time.Duration
	PublicURL string
	Now       func() time.Time
}

// Service is the main auth service with dependencies
type Service struct {
	repo           Repository
	tokenGenerator TokenGenerator
	hasher         PasswordHasher
	resetTokens    token.Generator
	notifier       notification.Enqueuer
	events         events.Publisher
	resetTTL       time.Duration
	publicURL      string
	now            func() time.Time
	logger         *slog.Logger
}

// NewService creates a new auth service
func NewService(repo Repository, tokenGen TokenGenerator, opts Options, logger *slog.Logger) *Service {
	if opts.Hasher == nil {
		opts.Hasher = NewBcryptHasher(0)
	}
	if opts.Tokens == nil {
		opts.Tokens = token.NewGenerator()
	}
	if opts.ResetTTL <= 0 {
		opts.ResetTTL = time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		repo:           repo,
		tokenGenerator: tokenGen,
		hasher:         opts.Hasher,
		resetTokens:    opts.Tokens,
		notifier:       opts.Notifier,
		events:         opts.Events,
		resetTTL:       opts.ResetTTL,
		publicURL:      strings.TrimRight(opts.PublicURL, "/"),
		now:            opts.Now,
		logger:         logger,
	}
}

// Register creates a credentialed account and returns its id.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*RegisterResponse, error) {
	dto.Email = validation.NormalizeEmail(dto.Email)
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	email := dto.Email
	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		return nil, internal.ErrEmailTaken
	} else if !errors.Is(err, user.ErrNotFound) {
		return nil, internal.NewInternalError("failed to look up user", err)
	}

	hash, err := s.hasher.Hash(dto.Password)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	now := s.now().UTC()
	u := &user.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(dto.Name),
		PasswordHash: &hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, ErrEmailAlreadyInUse) {
			return nil, internal.ErrEmailTaken
		}
		return nil, internal.NewInternalError("failed to create user", err)
	}

	s.logger.Info("user registered", "user_id", u.ID)
	s.publish(ctx, events.NewUserRegisteredEvent(u.ID))

	return &RegisterResponse{UserID: u.ID}, nil
}

// Authenticate validates credentials and returns tokens
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	u, err := s.repo.GetUserByEmail(ctx, validation.NormalizeEmail(dto.Email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return AuthTokens{}, internal.ErrInvalidCredentials
		}
		return AuthTokens{}, internal.NewInternalError("failed to look up user", err)
	}

	if !u.HasCredential() {
		return AuthTokens{}, internal.ErrInvalidCredentials
	}
	if err := s.hasher.Verify(*u.PasswordHash, dto.Password); err != nil {
		return AuthTokens{}, internal.ErrInvalidCredentials
	}
	if !u.IsActiveUser() {
		return AuthTokens{}, internal.ErrInvalidCredentials
	}

	return s.issueTokens(u)
}

// RefreshTokens validates refresh token and returns new tokens
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error) {
	claims, err := s.tokenGenerator.ValidateRefreshToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}

	u, err := s.repo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return AuthTokens{}, internal.ErrInvalidAuthToken
		}
		return AuthTokens{}, internal.NewInternalError("failed to look up user", err)
	}
	if !u.IsActiveUser() {
		return AuthTokens{}, internal.ErrInvalidAuthToken.WithCause(internal.ErrUserInactive)
	}

	return s.issueTokens(u)
}

func (s *Service) issueTokens(u *user.User) (AuthTokens, error) {
	accessToken, err := s.tokenGenerator.GenerateAccessToken(u.ID, u.Email)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to issue access token", err)
	}

	refreshToken, err := s.tokenGenerator.GenerateRefreshToken(u.ID, u.Email)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to issue refresh token", err)
	}

	return AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.tokenGenerator.AccessTTL().Seconds()),
		TokenType:    "Bearer",
	}, nil
}

// ResolveIdentity turns a bearer token into the calling user. Every failure
// collapses to ErrUnauthenticated.
func (s *Service) ResolveIdentity(ctx context.Context, accessToken string) (*internal.Identity, error) {
	if accessToken == "" {
		return nil, internal.ErrUnauthenticated
	}

	claims, err := s.tokenGenerator.ValidateAccessToken(accessToken)
	if err != nil {
		return nil, internal.ErrUnauthenticated.WithCause(err)
	}

	u, err := s.repo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, internal.ErrUnauthenticated.WithCause(err)
		}
		return nil, internal.NewInternalError("failed to resolve identity", err)
	}
	if !u.IsActiveUser() {
		return nil, internal.ErrUnauthenticated.WithCause(internal.ErrUserInactive)
	}

	return &internal.Identity{UserID: u.ID, Email: u.Email, Name: u.Name}, nil
}

// RequestPasswordReset always succeeds for a well formed email so callers
// cannot learn which addresses have accounts. Delivery happens in the background.
func (s *Service) RequestPasswordReset(ctx context.Context, dto PasswordResetRequestDTO) error {
	dto.Email = validation.NormalizeEmail(dto.Email)
	if err := dto.Validate(); err != nil {
		return err
	}

	u, err := s.repo.GetUserByEmail(ctx, dto.Email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			s.logger.Error("password reset: user lookup failed", "error", err)
		}
		return nil
	}
	if !u.IsActiveUser() {
		return nil
	}

	raw, fingerprint, err := s.resetTokens.New()
	if err != nil {
		s.logger.Error("password reset: token generation failed", "user_id", u.ID, "error", err)
		return nil
	}

	now := s.now().UTC()
	rt := &ResetToken{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		TokenHash: fingerprint,
		ExpiresAt: now.Add(s.resetTTL),
		CreatedAt: now,
	}
	if err := s.repo.CreateResetToken(ctx, rt); err != nil {
		s.logger.Error("password reset: failed to store token", "user_id", u.ID, "error", err)
		return nil
	}

	if s.notifier == nil {
		return nil
	}
	msg := notification.NewMessage(u.Email, notification.KindPasswordReset, map[string]string{
		"reset_url":  s.resetURL(raw),
		"expires_in": s.resetTTL.String(),
	})
	if err := s.notifier.Enqueue(msg); err != nil {
		s.logger.Error("password reset: failed to enqueue notification", "user_id", u.ID, "error", err)
	}
	return nil
}

// ResetPassword consumes a reset token and replaces the user's password.
// Unknown, expired and used tokens are indistinguishable to the caller.
func (s *Service) ResetPassword(ctx context.Context, dto PasswordResetDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	rt, err := s.repo.GetResetTokenByHash(ctx, token.Fingerprint(dto.Token))
	if err != nil {
		if errors.Is(err, ErrResetTokenNotFound) {
			return internal.ErrInvalidOrExpiredToken
		}
		return internal.NewInternalError("failed to look up reset token", err)
	}

	now := s.now().UTC()
	if !rt.IsValid(now) {
		return internal.ErrInvalidOrExpiredToken
	}

	hash, err := s.hasher.Hash(dto.NewPassword)
	if err != nil {
		return internal.NewInternalError("failed to hash password", err)
	}

	if err := s.repo.ConsumeResetToken(ctx, rt.ID, rt.UserID, hash, now); err != nil {
		if errors.Is(err, ErrResetTokenNotUsable) {
			return internal.ErrInvalidOrExpiredToken
		}
		return internal.NewInternalError("failed to reset password", err)
	}

	s.logger.Info("password reset", "user_id", rt.UserID)
	s.publish(ctx, events.NewPasswordResetEvent(rt.UserID))
	return nil
}

func (s *Service) resetURL(raw string) string {
	return fmt.Sprintf("%s/reset-password?token=%s", s.publicURL, url.QueryEscape(raw))
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}
