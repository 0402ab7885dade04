package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/hugh/canicloud/internal/database/models"
	"gorm.io/gorm"
)

type TokenRepository struct {
	db *gorm.DB
}

func (r *TokenRepository) Create(ctx context.Context, token *models.Token) error {
	return translate(r.db.WithContext(ctx).Create(token).Error)
}

func (r *TokenRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Token{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *TokenRepository) ListByProject(ctx context.Context, userID, projectID uuid.UUID) ([]models.Token, error) {
	tokens := []models.Token{}
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND project_id = ?", userID, projectID).
		Order("created_at DESC").
		Find(&tokens).Error
	return tokens, err
}

func (r *TokenRepository) FindOwned(ctx context.Context, id, userID uuid.UUID) (*models.Token, error) {
	var token models.Token
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&token).Error; err != nil {
		return nil, translate(err)
	}
	return &token, nil
}

// FindValidByValue matches the stored encrypted token value.
func (r *TokenRepository) FindValidByValue(ctx context.Context, value string, userID uuid.UUID) (*models.Token, error) {
	var token models.Token
	err := r.db.WithContext(ctx).
		Where("token = ? AND user_id = ? AND is_valid = ?", value, userID, true).
		First(&token).Error
	if err != nil {
		return nil, translate(err)
	}
	return &token, nil
}

func (r *TokenRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Token{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TokenRepository) DeleteByProject(ctx context.Context, projectID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&models.Token{}).Error
}
