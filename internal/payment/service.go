package payment

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/venue-management/internal"
	gatewaytypes "github.com/frahmantamala/venue-management/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/venue-management/internal/core/events"
	"github.com/frahmantamala/venue-management/internal/paymentgateway"
	"github.com/frahmantamala/venue-management/internal/staff"
	"gorm.io/datatypes"
)

// Gateway is the processor account API.
type Gateway interface {
	CreateAccount(ctx context.Context, req *gatewaytypes.CreateAccountRequest) (*gatewaytypes.Account, error)
	CreateAccountLink(ctx context.Context, req *gatewaytypes.CreateAccountLinkRequest) (*gatewaytypes.AccountLink, error)
	GetAccount(ctx context.Context, accountID string) (*gatewaytypes.Account, error)
}

type Repository interface {
	// GetVenueAccount returns ErrVenueNotFound for unknown venues.
	GetVenueAccount(ctx context.Context, venueID string) (*VenueAccount, error)
	// AttachAccount links accountID to a venue without one and marks it pending.
	// It returns ErrAccountAlreadyAttached when the venue is already linked.
	AttachAccount(ctx context.Context, venueID, accountID string, now time.Time) error
	UpdateAccountState(ctx context.Context, venueID string, state AccountState, now time.Time) error
	UpdatePreauthAmount(ctx context.Context, venueID string, cents int64, now time.Time) error
	// RecordAccountUpdate stores rec and applies state to the venue linked to
	// accountID in one transaction. A replayed event id yields ErrEventAlreadyProcessed.
	RecordAccountUpdate(ctx context.Context, rec WebhookRecord, state AccountState) (*AccountChange, error)
	// RecordEvent stores rec alone. A replayed event id yields ErrEventAlreadyProcessed.
	RecordEvent(ctx context.Context, rec WebhookRecord) error
}

type ServiceAPI interface {
	ConnectAccount(ctx context.Context, venueID string) (*AccountResponse, error)
	OnboardingLink(ctx context.Context, venueID string, dto OnboardingLinkDTO) (*OnboardingLinkResponse, error)
	AccountStatus(ctx context.Context, venueID string) (*AccountResponse, error)
	UpdatePreauthAmount(ctx context.Context, venueID string, dto UpdatePreauthDTO) (*PreauthResponse, error)
	ProcessWebhook(ctx context.Context, payload []byte, signature string) error
}

type Options struct {
	Events           events.Publisher
	WebhookSecret    string
	WebhookTolerance time.Duration
	Country          string
	Now              func() time.Time
}

type Service struct {
	repo      Repository
	gateway   Gateway
	roles     staff.RoleLookup
	events    events.Publisher
	secret    string
	tolerance time.Duration
	country   string
	now       func() time.Time
	logger    *slog.Logger
}

var (
	ErrGateway          = internal.NewExternalError("payment processor request failed", internal.ErrCodePaymentGateway)
	ErrInvalidSignature = internal.NewValidationError("invalid webhook signature", internal.ErrCodeInvalidSignature)
	ErrMalformedEvent   = internal.NewValidationError("malformed webhook event", internal.ErrCodeValidationFailed)
	ErrNoPaymentAccount = internal.NewInvalidOperationError("venue has no payment account, connect one first")
)

func NewService(repo Repository, gateway Gateway, roles staff.RoleLookup, opts Options, logger *slog.Logger) *Service {
	if opts.WebhookTolerance <= 0 {
		opts.WebhookTolerance = paymentgateway.DefaultTolerance
	}
	if opts.Country == "" {
		opts.Country = "US"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		repo:      repo,
		gateway:   gateway,
		roles:     roles,
		events:    opts.Events,
		secret:    opts.WebhookSecret,
		tolerance: opts.WebhookTolerance,
		country:   opts.Country,
		now:       opts.Now,
		logger:    logger,
	}
}

// ConnectAccount creates a processor account for the venue. A venue that is
// already linked gets its existing account back.
func (s *Service) ConnectAccount(ctx context.Context, venueID string) (*AccountResponse, error) {
	identity, v, err := s.authorizedVenue(ctx, venueID)
	if err != nil {
		return nil, err
	}
	if v.HasAccount() {
		return accountResponse(v), nil
	}

	acct, err := s.gateway.CreateAccount(ctx, &gatewaytypes.CreateAccountRequest{
		Type:     gatewaytypes.AccountTypeExpress,
		Country:  s.country,
		Email:    identity.Email,
		Currency: v.Currency,
		Metadata: map[string]string{"venue_id": venueID},
	})
	if err != nil {
		s.logger.Error("failed to create payment account", "venue_id", venueID, "error", err)
		return nil, ErrGateway.WithCause(err)
	}

	if err := s.repo.AttachAccount(ctx, venueID, acct.ID, s.now().UTC()); err != nil {
		if errors.Is(err, ErrAccountAlreadyAttached) {
			// A concurrent request linked first; its account wins.
			s.logger.Warn("payment account attached concurrently, discarding new account",
				"venue_id", venueID, "discarded_account_id", acct.ID)
			current, err := s.repo.GetVenueAccount(ctx, venueID)
			if err != nil {
				return nil, internal.NewInternalError("failed to load venue", err)
			}
			return accountResponse(current), nil
		}
		return nil, internal.NewInternalError("failed to store payment account", err)
	}

	s.logger.Info("payment account connected", "venue_id", venueID, "account_id", acct.ID)
	s.publish(ctx, events.NewPaymentAccountUpdatedEvent(venueID, acct.ID, string(v.State.Status), string(StatusPending)))

	return &AccountResponse{AccountID: acct.ID, Status: StatusPending}, nil
}

func (s *Service) OnboardingLink(ctx context.Context, venueID string, dto OnboardingLinkDTO) (*OnboardingLinkResponse, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	_, v, err := s.authorizedVenue(ctx, venueID)
	if err != nil {
		return nil, err
	}
	if !v.HasAccount() {
		return nil, ErrNoPaymentAccount
	}

	link, err := s.gateway.CreateAccountLink(ctx, &gatewaytypes.CreateAccountLinkRequest{
		Account:    *v.AccountID,
		ReturnURL:  dto.ReturnURL,
		RefreshURL: dto.RefreshURL,
	})
	if err != nil {
		s.logger.Error("failed to create onboarding link", "venue_id", venueID, "error", err)
		return nil, ErrGateway.WithCause(err)
	}

	return &OnboardingLinkResponse{URL: link.URL, ExpiresAt: link.Expiry()}, nil
}

// AccountStatus treats the processor as ground truth and reconciles the venue
// row with what it reports.
func (s *Service) AccountStatus(ctx context.Context, venueID string) (*AccountResponse, error) {
	_, v, err := s.authorizedVenue(ctx, venueID)
	if err != nil {
		return nil, err
	}
	if !v.HasAccount() {
		return &AccountResponse{Status: StatusNotStarted}, nil
	}

	acct, err := s.gateway.GetAccount(ctx, *v.AccountID)
	if err != nil {
		s.logger.Error("failed to fetch payment account", "venue_id", venueID, "account_id", *v.AccountID, "error", err)
		return nil, ErrGateway.WithCause(err)
	}

	state := DeriveState(acct)
	if state != v.State {
		if err := s.repo.UpdateAccountState(ctx, venueID, state, s.now().UTC()); err != nil {
			return nil, internal.NewInternalError("failed to update payment status", err)
		}
		if state.Status != v.State.Status {
			s.logger.Info("payment status reconciled", "venue_id", venueID, "old_status", v.State.Status, "new_status", state.Status)
			s.publish(ctx, events.NewPaymentAccountUpdatedEvent(venueID, acct.ID, string(v.State.Status), string(state.Status)))
		}
	}

	return &AccountResponse{
		AccountID:      acct.ID,
		Status:         state.Status,
		ChargesEnabled: state.ChargesEnabled,
		PayoutsEnabled: state.PayoutsEnabled,
	}, nil
}

func (s *Service) UpdatePreauthAmount(ctx context.Context, venueID string, dto UpdatePreauthDTO) (*PreauthResponse, error) {
	if _, _, err := s.authorizedVenue(ctx, venueID); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.UpdatePreauthAmount(ctx, venueID, dto.AmountCents, s.now().UTC()); err != nil {
		if errors.Is(err, ErrVenueNotFound) {
			return nil, internal.ErrVenueNotFound
		}
		return nil, internal.NewInternalError("failed to update pre-authorization amount", err)
	}

	s.logger.Info("pre-authorization amount updated", "venue_id", venueID, "amount_cents", dto.AmountCents)
	return &PreauthResponse{PreauthAmountCents: dto.AmountCents}, nil
}

// ProcessWebhook verifies and applies a processor callback. Replayed events
// and events for unknown accounts are acknowledged without changes.
func (s *Service) ProcessWebhook(ctx context.Context, payload []byte, signature string) error {
	now := s.now().UTC()
	if err := paymentgateway.VerifySignature(payload, signature, s.secret, s.tolerance, now); err != nil {
		s.logger.Warn("webhook signature rejected", "error", err)
		return ErrInvalidSignature.WithCause(err)
	}

	var event gatewaytypes.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return ErrMalformedEvent.WithCause(err)
	}
	if event.ID == "" || event.Type == "" {
		return ErrMalformedEvent
	}

	rec := WebhookRecord{
		EventID:     event.ID,
		Type:        event.Type,
		Payload:     datatypes.JSON(payload),
		ProcessedAt: now,
	}

	if event.Type != gatewaytypes.EventTypeAccountUpdated {
		if err := s.repo.RecordEvent(ctx, rec); err != nil && !errors.Is(err, ErrEventAlreadyProcessed) {
			return internal.NewInternalError("failed to record webhook event", err)
		}
		s.logger.Debug("webhook event acknowledged", "event_id", event.ID, "event_type", event.Type)
		return nil
	}

	acct, err := event.Account()
	if err != nil {
		return ErrMalformedEvent.WithCause(err)
	}
	rec.AccountID = acct.ID

	state := DeriveState(acct)
	change, err := s.repo.RecordAccountUpdate(ctx, rec, state)
	if err != nil {
		if errors.Is(err, ErrEventAlreadyProcessed) {
			s.logger.Info("duplicate webhook event ignored", "event_id", event.ID)
			return nil
		}
		return internal.NewInternalError("failed to apply account update", err)
	}

	if change.VenueID == "" {
		s.logger.Warn("webhook for unknown payment account", "event_id", event.ID, "account_id", acct.ID)
		return nil
	}

	s.logger.Info("payment account updated from webhook",
		"event_id", event.ID,
		"venue_id", change.VenueID,
		"account_id", acct.ID,
		"old_status", change.OldStatus,
		"new_status", change.NewStatus)

	if change.OldStatus != change.NewStatus {
		s.publish(ctx, events.NewPaymentAccountUpdatedEvent(change.VenueID, acct.ID, string(change.OldStatus), string(change.NewStatus)))
	}
	return nil
}

// authorizedVenue loads the venue after checking the caller is one of its owners.
func (s *Service) authorizedVenue(ctx context.Context, venueID string) (*internal.Identity, *VenueAccount, error) {
	identity, err := internal.RequireIdentity(ctx)
	if err != nil {
		return nil, nil, err
	}

	role, ok := staff.RoleFromContext(ctx)
	if !ok {
		role, err = s.roles.CallerRole(ctx, venueID, identity.UserID)
		if err != nil {
			return nil, nil, err
		}
	}
	if appErr := staff.Authorize(role, staff.OpManagePayments, "", ""); appErr != nil {
		return nil, nil, appErr
	}

	v, err := s.repo.GetVenueAccount(ctx, venueID)
	if err != nil {
		if errors.Is(err, ErrVenueNotFound) {
			return nil, nil, internal.ErrVenueNotFound
		}
		return nil, nil, internal.NewInternalError("failed to load venue", err)
	}
	return identity, v, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}

func accountResponse(v *VenueAccount) *AccountResponse {
	resp := &AccountResponse{
		Status:         v.State.Status,
		ChargesEnabled: v.State.ChargesEnabled,
		PayoutsEnabled: v.State.PayoutsEnabled,
	}
	if v.AccountID != nil {
		resp.AccountID = *v.AccountID
	}
	return resp
}
