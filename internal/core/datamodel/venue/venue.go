package venue

import "time"

type Venue struct {
	ID                      string    `gorm:"primaryKey;type:uuid"`
	Name                    string    `gorm:"column:name;not null"`
	Slug                    string    `gorm:"column:slug;uniqueIndex;not null"`
	Timezone                string    `gorm:"column:timezone;not null"`
	Currency                string    `gorm:"column:currency;size:3;not null"`
	PaymentAccountID        *string   `gorm:"column:payment_account_id;uniqueIndex"`
	PaymentOnboardingStatus string    `gorm:"column:payment_onboarding_status;not null;default:not_started"`
	ChargesEnabled          bool      `gorm:"column:charges_enabled;not null;default:false"`
	PayoutsEnabled          bool      `gorm:"column:payouts_enabled;not null;default:false"`
	PreauthAmountCents      int64     `gorm:"column:preauth_amount_cents;not null;default:5000"`
	CreatedAt               time.Time `gorm:"column:created_at"`
	UpdatedAt               time.Time `gorm:"column:updated_at"`
}

func (Venue) TableName() string {
	return "venues"
}
