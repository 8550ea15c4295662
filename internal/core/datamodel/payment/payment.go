package payment

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookEvent records a processed processor callback; the primary key makes
// redelivery of the same event id a no-op.
type WebhookEvent struct {
	EventID     string         `gorm:"primaryKey;column:event_id"`
	Type        string         `gorm:"column:type;not null"`
	AccountID   string         `gorm:"column:account_id;index"`
	Payload     datatypes.JSON `gorm:"column:payload"`
	ProcessedAt time.Time      `gorm:"column:processed_at"`
}

func (WebhookEvent) TableName() string {
	return "payment_webhook_events"
}
