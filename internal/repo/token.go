package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/gigmarket/internal/models"
)

// RevokeToken adds the token id to the denylist. Revoking twice is a no-op.
func (r *GormRepo) RevokeToken(ctx context.Context, jti string, userID uint, expiresAt time.Time) error {
	rt := models.RevokedToken{JTI: jti, UserID: userID, ExpiresAt: expiresAt}
	err := r.DB.WithContext(ctx).Where("jti = ?", jti).FirstOrCreate(&rt).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil
	}
	return err
}

func (r *GormRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&models.RevokedToken{}).Where("jti = ?", jti).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// PurgeRevoked drops denylist rows whose tokens have expired by now.
func (r *GormRepo) PurgeRevoked(ctx context.Context, now time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).Where("expires_at < ?", now).Delete(&models.RevokedToken{})
	return res.RowsAffected, res.Error
}
