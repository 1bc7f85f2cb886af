package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/esusuhq/esusu-engine/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (r *Repository) CountPaymentsByCycle(ctx context.Context, cycleID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("cycle_id = ?", cycleID).
		Count(&count).Error
	return count, err
}

func (r *Repository) CreatePayments(ctx context.Context, payments []*models.Payment, tx *gorm.DB) error {
	return r.orDB(tx).WithContext(ctx).Create(payments).Error
}

func (r *Repository) GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Preload("Participation").
		Preload("Participation.User").
		Preload("Participation.Cycle").
		First(&payment, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *Repository) UpdatePayment(ctx context.Context, payment *models.Payment, tx *gorm.DB) error {
	return r.orDB(tx).WithContext(ctx).Save(payment).Error
}

func (r *Repository) ListPaymentsByParticipation(ctx context.Context, participationID uuid.UUID) ([]*models.Payment, error) {
	var payments []*models.Payment
	err := r.db.WithContext(ctx).
		Where("participation_id = ?", participationID).
		Order("month_number ASC").
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

func (r *Repository) ListPaymentsByCycle(ctx context.Context, cycleID uuid.UUID) ([]*models.Payment, error) {
	var payments []*models.Payment
	err := r.db.WithContext(ctx).
		Preload("Participation").
		Preload("Participation.User").
		Where("cycle_id = ?", cycleID).
		Order("month_number ASC").
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cycle payments: %w", err)
	}
	return payments, nil
}

// ListPaymentsAwaitingVerification returns pending payments that carry an
// uploaded proof, oldest first: the admin review queue.
func (r *Repository) ListPaymentsAwaitingVerification(ctx context.Context) ([]*models.Payment, error) {
	var payments []*models.Payment
	err := r.db.WithContext(ctx).
		Preload("Participation").
		Preload("Participation.User").
		Where("status = ? AND proof_of_payment IS NOT NULL", models.PaymentPending).
		Order("due_date ASC").
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list payments awaiting verification: %w", err)
	}
	return payments, nil
}

func (r *Repository) SumPaidByParticipation(ctx context.Context, participationID uuid.UUID) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("participation_id = ? AND status = ?", participationID, models.PaymentPaid).
		Select("COALESCE(SUM(paid_amount), 0)").
		Scan(&sum).Error
	return sum, err
}

func (r *Repository) CountPendingPaymentsByCycle(ctx context.Context, cycleID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("cycle_id = ? AND status = ?", cycleID, models.PaymentPending).
		Count(&count).Error
	return count, err
}
