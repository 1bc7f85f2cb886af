package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/esusuhq/esusu-engine/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (r *Repository) CreateOptOutRequest(ctx context.Context, request *models.OptOutRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *Repository) GetOptOutRequest(ctx context.Context, id uuid.UUID) (*models.OptOutRequest, error) {
	var request models.OptOutRequest
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Cycle").
		First(&request, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &request, nil
}

func (r *Repository) GetPendingOptOutRequest(ctx context.Context, userID, cycleID uuid.UUID) (*models.OptOutRequest, error) {
	var request models.OptOutRequest
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND cycle_id = ? AND status = ?", userID, cycleID, models.OptOutPendingApproval).
		First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &request, nil
}

func (r *Repository) UpdateOptOutRequest(ctx context.Context, request *models.OptOutRequest, tx *gorm.DB) error {
	return r.orDB(tx).WithContext(ctx).Save(request).Error
}

func (r *Repository) DeleteOptOutRequest(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.OptOutRequest{}, "id = ?", id).Error
}

func (r *Repository) ListOptOutRequests(ctx context.Context, statuses ...models.OptOutStatus) ([]*models.OptOutRequest, error) {
	var requests []*models.OptOutRequest
	q := r.db.WithContext(ctx).
		Preload("User").
		Preload("Cycle").
		Order("requested_at ASC")
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	if err := q.Find(&requests).Error; err != nil {
		return nil, fmt.Errorf("failed to list opt-out requests: %w", err)
	}
	return requests, nil
}

func (r *Repository) ListOptOutRequestsByUser(ctx context.Context, userID uuid.UUID) ([]*models.OptOutRequest, error) {
	var requests []*models.OptOutRequest
	err := r.db.WithContext(ctx).
		Preload("Cycle").
		Where("user_id = ?", userID).
		Order("requested_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list opt-out requests: %w", err)
	}
	return requests, nil
}
