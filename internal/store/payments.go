package store

import (
	"context"
	"time"

	"github.com/hugh/canicloud/internal/database/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return translate(r.db.WithContext(ctx).Create(payment).Error)
}

func (r *PaymentRepository) FindByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&payment).Error; err != nil {
		return nil, translate(err)
	}
	return &payment, nil
}

// Transition moves a payment from one status to another only if it is
// currently in from. It reports whether this call performed the move.
func (r *PaymentRepository) Transition(ctx context.Context, orderID string, from, to models.PaymentStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("order_id = ? AND status = ?", orderID, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkCaptured records a successful provider capture on a processing
// payment together with the provider response.
func (r *PaymentRepository) MarkCaptured(ctx context.Context, orderID string, metadata datatypes.JSON) error {
	res := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("order_id = ? AND status = ?", orderID, models.PaymentStatusProcessing).
		Updates(map[string]interface{}{
			"status":   models.PaymentStatusCaptured,
			"metadata": metadata,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Complete moves a captured payment to completed. ErrNotFound means another
// caller already completed it.
func (r *PaymentRepository) Complete(ctx context.Context, orderID string) error {
	res := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("order_id = ? AND status = ?", orderID, models.PaymentStatusCaptured).
		Update("status", models.PaymentStatusCompleted)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetStuck returns payments left in processing since before to initiated.
// Captured payments are never reset.
func (r *PaymentRepository) ResetStuck(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("status = ? AND updated_at < ?", models.PaymentStatusProcessing, before).
		Update("status", models.PaymentStatusInitiated)
	return res.RowsAffected, res.Error
}
