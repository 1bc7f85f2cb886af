package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/esusuhq/esusu-engine/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (r *Repository) CreateCycle(ctx context.Context, cycle *models.ContributionCycle) error {
	return r.db.WithContext(ctx).Create(cycle).Error
}

func (r *Repository) GetCycle(ctx context.Context, id uuid.UUID) (*models.ContributionCycle, error) {
	var cycle models.ContributionCycle
	err := r.db.WithContext(ctx).First(&cycle, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cycle, nil
}

func (r *Repository) UpdateCycle(ctx context.Context, cycle *models.ContributionCycle) error {
	return r.db.WithContext(ctx).Save(cycle).Error
}

func (r *Repository) UpdateCycleStatus(ctx context.Context, id uuid.UUID, status models.CycleStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.ContributionCycle{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to update cycle status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) DeleteCycle(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.ContributionCycle{}, "id = ?", id).Error
}

func (r *Repository) ListCycles(ctx context.Context, statuses ...models.CycleStatus) ([]*models.ContributionCycle, error) {
	var cycles []*models.ContributionCycle
	q := r.db.WithContext(ctx).Order("start_date ASC")
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	if err := q.Find(&cycles).Error; err != nil {
		return nil, fmt.Errorf("failed to list cycles: %w", err)
	}
	return cycles, nil
}

// CountParticipants counts non-opted-out enrollments, i.e. occupied slots.
func (r *Repository) CountParticipants(ctx context.Context, cycleID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Participation{}).
		Where("cycle_id = ? AND has_opted_out = ?", cycleID, false).
		Count(&count).Error
	return count, err
}

func (r *Repository) MaxPickedNumber(ctx context.Context, cycleID uuid.UUID) (int, error) {
	var max int
	err := r.db.WithContext(ctx).
		Model(&models.Participation{}).
		Where("cycle_id = ? AND picked_number IS NOT NULL", cycleID).
		Select("COALESCE(MAX(picked_number), 0)").
		Scan(&max).Error
	return max, err
}
