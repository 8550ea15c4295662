package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/venue-management/internal/auth"
	"github.com/frahmantamala/venue-management/internal/core/datamodel/passwordreset"
	userDatamodel "github.com/frahmantamala/venue-management/internal/core/datamodel/user"
	"github.com/frahmantamala/venue-management/internal/user"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	var row userDatamodel.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}
	return user.FromDataModel(&row), nil
}

func (r *Repository) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	var row userDatamodel.User
	if err := r.db.WithContext(ctx).Where("id = ?", userID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}
	return user.FromDataModel(&row), nil
}

func (r *Repository) CreateUser(ctx context.Context, u *user.User) error {
	row := user.ToDataModel(u)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return auth.ErrEmailAlreadyInUse
		}
		return err
	}
	u.CreatedAt = row.CreatedAt
	u.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *Repository) CreateResetToken(ctx context.Context, t *auth.ResetToken) error {
	return r.db.WithContext(ctx).Create(toResetTokenRow(t)).Error
}

func (r *Repository) GetResetTokenByHash(ctx context.Context, tokenHash string) (*auth.ResetToken, error) {
	var row passwordreset.Token
	if err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrResetTokenNotFound
		}
		return nil, err
	}
	return fromResetTokenRow(&row), nil
}

func (r *Repository) ConsumeResetToken(ctx context.Context, tokenID, userID, passwordHash string, now time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Guarded update: the first request to flip used_at wins.
		res := tx.Model(&passwordreset.Token{}).
			Where("id = ? AND used_at IS NULL AND expires_at > ?", tokenID, now).
			Update("used_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return auth.ErrResetTokenNotUsable
		}

		res = tx.Model(&userDatamodel.User{}).
			Where("id = ?", userID).
			Updates(map[string]interface{}{
				"password_hash": passwordHash,
				"updated_at":    now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return user.ErrNotFound
		}
		return nil
	})
}

func toResetTokenRow(t *auth.ResetToken) *passwordreset.Token {
	return &passwordreset.Token{
		ID:        t.ID,
		UserID:    t.UserID,
		TokenHash: t.TokenHash,
		ExpiresAt: t.ExpiresAt,
		UsedAt:    t.UsedAt,
		CreatedAt: t.CreatedAt,
	}
}

func fromResetTokenRow(row *passwordreset.Token) *auth.ResetToken {
	return &auth.ResetToken{
		ID:        row.ID,
		UserID:    row.UserID,
		TokenHash: row.TokenHash,
		ExpiresAt: row.ExpiresAt,
		UsedAt:    row.UsedAt,
		CreatedAt: row.CreatedAt,
	}
}
