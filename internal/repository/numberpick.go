package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/esusuhq/esusu-engine/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (r *Repository) GetNumberPickByUser(ctx context.Context, userID uuid.UUID) (*models.NumberPick, error) {
	var pick models.NumberPick
	err := r.db.WithContext(ctx).First(&pick, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &pick, nil
}

func (r *Repository) GetNumberPickByNumber(ctx context.Context, number int) (*models.NumberPick, error) {
	var pick models.NumberPick
	err := r.db.WithContext(ctx).First(&pick, "number = ?", number).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &pick, nil
}

func (r *Repository) CreateNumberPick(ctx context.Context, pick *models.NumberPick) error {
	return r.db.WithContext(ctx).Create(pick).Error
}

func (r *Repository) ListNumberPicks(ctx context.Context) ([]*models.NumberPick, error) {
	var picks []*models.NumberPick
	err := r.db.WithContext(ctx).
		Preload("User").
		Order("number ASC").
		Find(&picks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list number picks: %w", err)
	}
	return picks, nil
}

func (r *Repository) DeleteAllNumberPicks(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&models.NumberPick{}).Error
}

func (r *Repository) MaxPoolNumber(ctx context.Context) (int, error) {
	var max int
	err := r.db.WithContext(ctx).
		Model(&models.NumberPick{}).
		Select("COALESCE(MAX(number), 0)").
		Scan(&max).Error
	return max, err
}
