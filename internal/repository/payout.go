package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/esusuhq/esusu-engine/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (r *Repository) CreatePayout(ctx context.Context, payout *models.Payout, tx *gorm.DB) error {
	return r.orDB(tx).WithContext(ctx).Create(payout).Error
}

func (r *Repository) GetPayout(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	var payout models.Payout
	err := r.db.WithContext(ctx).
		Preload("Participation").
		Preload("Participation.User").
		Preload("Participation.BankDetails").
		First(&payout, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payout, nil
}

// GetPendingPayoutByParticipation returns the one PENDING payout for the
// enrollment, nil when the payout is already paid or waived.
func (r *Repository) GetPendingPayoutByParticipation(ctx context.Context, participationID uuid.UUID) (*models.Payout, error) {
	var payout models.Payout
	err := r.db.WithContext(ctx).
		Where("participation_id = ? AND status = ?", participationID, models.PayoutPending).
		First(&payout).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payout, nil
}

func (r *Repository) GetPayoutByParticipation(ctx context.Context, participationID uuid.UUID) (*models.Payout, error) {
	var payout models.Payout
	err := r.db.WithContext(ctx).
		Where("participation_id = ? AND status <> ?", participationID, models.PayoutWaived).
		First(&payout).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payout, nil
}

func (r *Repository) UpdatePayout(ctx context.Context, payout *models.Payout, tx *gorm.DB) error {
	return r.orDB(tx).WithContext(ctx).Save(payout).Error
}

func (r *Repository) ListPayoutsByCycle(ctx context.Context, cycleID uuid.UUID) ([]*models.Payout, error) {
	var payouts []*models.Payout
	err := r.db.WithContext(ctx).
		Preload("Participation").
		Preload("Participation.User").
		Preload("Participation.BankDetails").
		Where("cycle_id = ?", cycleID).
		Order("scheduled_month ASC").
		Find(&payouts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cycle payouts: %w", err)
	}
	return payouts, nil
}

func (r *Repository) ListPendingPayouts(ctx context.Context) ([]*models.Payout, error) {
	var payouts []*models.Payout
	err := r.db.WithContext(ctx).
		Preload("Participation").
		Preload("Participation.User").
		Preload("Participation.BankDetails").
		Where("status = ?", models.PayoutPending).
		Order("scheduled_date ASC").
		Find(&payouts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending payouts: %w", err)
	}
	return payouts, nil
}

// ListOverduePayouts returns pending payouts whose scheduled date has
// passed, the admin priority queue.
func (r *Repository) ListOverduePayouts(ctx context.Context, now time.Time) ([]*models.Payout, error) {
	var payouts []*models.Payout
	err := r.db.WithContext(ctx).
		Preload("Participation").
		Preload("Participation.User").
		Preload("Participation.BankDetails").
		Where("status = ? AND scheduled_date < ?", models.PayoutPending, now).
		Order("scheduled_date ASC").
		Find(&payouts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue payouts: %w", err)
	}
	return payouts, nil
}

func (r *Repository) CountPendingPayoutsByCycle(ctx context.Context, cycleID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Where("cycle_id = ? AND status = ?", cycleID, models.PayoutPending).
		Count(&count).Error
	return count, err
}
