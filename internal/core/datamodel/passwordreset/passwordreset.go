package passwordreset

import "time"

type Token struct {
	ID        string     `gorm:"primaryKey;type:uuid"`
	UserID    string     `gorm:"column:user_id;type:uuid;not null;index"`
	TokenHash string     `gorm:"column:token_hash;uniqueIndex;not null"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null"`
	UsedAt    *time.Time `gorm:"column:used_at"`
	CreatedAt time.Time  `gorm:"column:created_at"`
}

func (Token) TableName() string {
	return "password_reset_tokens"
}
