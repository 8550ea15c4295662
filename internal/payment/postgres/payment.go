package postgres

import (
	"context"
	"errors"
	"time"

	paymentDatamodel "github.com/frahmantamala/venue-management/internal/core/datamodel/payment"
	venueDatamodel "github.com/frahmantamala/venue-management/internal/core/datamodel/venue"
	"github.com/frahmantamala/venue-management/internal/payment"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) GetVenueAccount(ctx context.Context, venueID string) (*payment.VenueAccount, error) {
	var row venueDatamodel.Venue
	if err := r.db.WithContext(ctx).Where("id = ?", venueID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, payment.ErrVenueNotFound
		}
		return nil, err
	}
	return toVenueAccount(&row), nil
}

func (r *PaymentRepository) AttachAccount(ctx context.Context, venueID, accountID string, now time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&venueDatamodel.Venue{}).
		Where("id = ? AND payment_account_id IS NULL", venueID).
		Updates(map[string]interface{}{
			"payment_account_id":        accountID,
			"payment_onboarding_status": string(payment.StatusPending),
			"updated_at":                now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	if _, err := r.GetVenueAccount(ctx, venueID); err != nil {
		return err
	}
	return payment.ErrAccountAlreadyAttached
}

func (r *PaymentRepository) UpdateAccountState(ctx context.Context, venueID string, state payment.AccountState, now time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&venueDatamodel.Venue{}).
		Where("id = ?", venueID).
		Updates(stateColumns(state, now))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return payment.ErrVenueNotFound
	}
	return nil
}

func (r *PaymentRepository) UpdatePreauthAmount(ctx context.Context, venueID string, cents int64, now time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&venueDatamodel.Venue{}).
		Where("id = ?", venueID).
		Updates(map[string]interface{}{
			"preauth_amount_cents": cents,
			"updated_at":           now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return payment.ErrVenueNotFound
	}
	return nil
}

func (r *PaymentRepository) RecordAccountUpdate(ctx context.Context, rec payment.WebhookRecord, state payment.AccountState) (*payment.AccountChange, error) {
	change := &payment.AccountChange{}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := insertEvent(tx, rec); err != nil {
			return err
		}

		var row venueDatamodel.Venue
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("payment_account_id = ?", rec.AccountID).
			First(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		change.VenueID = row.ID
		change.OldStatus = payment.OnboardingStatus(row.PaymentOnboardingStatus)
		change.NewStatus = state.Status

		return tx.Model(&venueDatamodel.Venue{}).
			Where("id = ?", row.ID).
			Updates(stateColumns(state, rec.ProcessedAt)).Error
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

func (r *PaymentRepository) RecordEvent(ctx context.Context, rec payment.WebhookRecord) error {
	return insertEvent(r.db.WithContext(ctx), rec)
}

func insertEvent(db *gorm.DB, rec payment.WebhookRecord) error {
	row := &paymentDatamodel.WebhookEvent{
		EventID:     rec.EventID,
		Type:        rec.Type,
		AccountID:   rec.AccountID,
		Payload:     rec.Payload,
		ProcessedAt: rec.ProcessedAt,
	}
	if err := db.Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return payment.ErrEventAlreadyProcessed
		}
		return err
	}
	return nil
}

func stateColumns(state payment.AccountState, now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"payment_onboarding_status": string(state.Status),
		"charges_enabled":           state.ChargesEnabled,
		"payouts_enabled":           state.PayoutsEnabled,
		"updated_at":                now,
	}
}

func toVenueAccount(row *venueDatamodel.Venue) *payment.VenueAccount {
	return &payment.VenueAccount{
		VenueID:   row.ID,
		Name:      row.Name,
		Currency:  row.Currency,
		AccountID: row.PaymentAccountID,
		State: payment.AccountState{
			Status:         payment.OnboardingStatus(row.PaymentOnboardingStatus),
			ChargesEnabled: row.ChargesEnabled,
			PayoutsEnabled: row.PayoutsEnabled,
		},
		PreauthAmountCents: row.PreauthAmountCents,
	}
}
