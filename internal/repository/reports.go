package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/esusuhq/esusu-engine/internal/models"
	"github.com/google/uuid"
)

func (r *Repository) SumExpectedByCycle(ctx context.Context, cycleID uuid.UUID) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("cycle_id = ?", cycleID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
	return sum, err
}

func (r *Repository) SumCollectedByCycle(ctx context.Context, cycleID uuid.UUID) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("cycle_id = ? AND status = ?", cycleID, models.PaymentPaid).
		Select("COALESCE(SUM(paid_amount), 0)").
		Scan(&sum).Error
	return sum, err
}

func (r *Repository) SumOutstandingByCycle(ctx context.Context, cycleID uuid.UUID) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("cycle_id = ? AND status = ?", cycleID, models.PaymentPending).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
	return sum, err
}

func (r *Repository) SumFinesCollectedByCycle(ctx context.Context, cycleID uuid.UUID) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("cycle_id = ? AND status = ? AND fine_paid = ?", cycleID, models.PaymentPaid, true).
		Select("COALESCE(SUM(fine_amount), 0)").
		Scan(&sum).Error
	return sum, err
}

func (r *Repository) SumPayoutsByCycle(ctx context.Context, cycleID uuid.UUID, status models.PayoutStatus) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Where("cycle_id = ? AND status = ?", cycleID, status).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
	return sum, err
}

// MonthlyCollections aggregates settled amounts per schedule month.
func (r *Repository) MonthlyCollections(ctx context.Context, cycleID uuid.UUID) ([]models.MonthlyCollection, error) {
	var rows []models.MonthlyCollection
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("cycle_id = ? AND status = ?", cycleID, models.PaymentPaid).
		Select("month_number, COALESCE(SUM(paid_amount), 0) AS collected, COUNT(*) AS payments").
		Group("month_number").
		Order("month_number ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate monthly collections: %w", err)
	}
	return rows, nil
}

// ListOverduePendingPayments returns pending payments past their due date,
// the raw material for defaulter rollups.
func (r *Repository) ListOverduePendingPayments(ctx context.Context, cycleID uuid.UUID, now time.Time) ([]*models.Payment, error) {
	var payments []*models.Payment
	err := r.db.WithContext(ctx).
		Preload("Participation").
		Preload("Participation.User").
		Where("cycle_id = ? AND status = ? AND due_date < ?", cycleID, models.PaymentPending, now).
		Order("due_date ASC").
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue payments: %w", err)
	}
	return payments, nil
}
