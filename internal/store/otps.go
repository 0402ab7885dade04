package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/canicloud/internal/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OTPRepository struct {
	db *gorm.DB
}

// Upsert stores code as the only OTP for email and marks it unconsumed.
func (r *OTPRepository) Upsert(ctx context.Context, email, code string) (*models.OTP, error) {
	otp := models.OTP{Email: email, Code: code, IsValid: false}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "email"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"otp":        code,
			"is_valid":   false,
			"updated_at": time.Now(),
		}),
	}).Create(&otp).Error
	if err != nil {
		return nil, translate(err)
	}
	return r.FindByEmail(ctx, email)
}

func (r *OTPRepository) FindByEmail(ctx context.Context, email string) (*models.OTP, error) {
	var otp models.OTP
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&otp).Error; err != nil {
		return nil, translate(err)
	}
	return &otp, nil
}

// FindUnconsumed looks up a code that has not been verified yet.
func (r *OTPRepository) FindUnconsumed(ctx context.Context, code string) (*models.OTP, error) {
	var otp models.OTP
	if err := r.db.WithContext(ctx).Where("otp = ? AND is_valid = ?", code, false).First(&otp).Error; err != nil {
		return nil, translate(err)
	}
	return &otp, nil
}

func (r *OTPRepository) SetValid(ctx context.Context, id uuid.UUID, valid bool) error {
	res := r.db.WithContext(ctx).Model(&models.OTP{}).Where("id = ?", id).Update("is_valid", valid)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteStale hard-deletes OTPs not touched since before.
func (r *OTPRepository) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Unscoped().Where("updated_at < ?", before).Delete(&models.OTP{})
	return res.RowsAffected, res.Error
}
