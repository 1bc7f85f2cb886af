package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/esusuhq/esusu-engine/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (r *Repository) CreateParticipation(ctx context.Context, participation *models.Participation, tx *gorm.DB) error {
	return r.orDB(tx).WithContext(ctx).Create(participation).Error
}

func (r *Repository) GetParticipation(ctx context.Context, id uuid.UUID) (*models.Participation, error) {
	var participation models.Participation
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Cycle").
		Preload("BankDetails").
		First(&participation, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &participation, nil
}

// GetActiveParticipation finds the user's non-opted-out enrollment in the
// given cycle.
func (r *Repository) GetActiveParticipation(ctx context.Context, userID, cycleID uuid.UUID) (*models.Participation, error) {
	var participation models.Participation
	err := r.db.WithContext(ctx).
		Preload("Cycle").
		Preload("BankDetails").
		Where("user_id = ? AND cycle_id = ? AND has_opted_out = ?", userID, cycleID, false).
		First(&participation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &participation, nil
}

// GetParticipationByNumber finds whoever holds the given payout position
// in a cycle, if anyone.
func (r *Repository) GetParticipationByNumber(ctx context.Context, cycleID uuid.UUID, number int) (*models.Participation, error) {
	var participation models.Participation
	err := r.db.WithContext(ctx).
		Where("cycle_id = ? AND picked_number = ?", cycleID, number).
		First(&participation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &participation, nil
}

// GetActiveCycleParticipation finds the user's enrollment in whichever
// cycle is currently ACTIVE, if any.
func (r *Repository) GetActiveCycleParticipation(ctx context.Context, userID uuid.UUID) (*models.Participation, error) {
	var participation models.Participation
	err := r.db.WithContext(ctx).
		Preload("Cycle").
		Preload("BankDetails").
		Joins("JOIN contribution_cycles ON contribution_cycles.id = participations.cycle_id").
		Where("participations.user_id = ? AND participations.has_opted_out = ? AND contribution_cycles.status = ?",
			userID, false, models.CycleActive).
		First(&participation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &participation, nil
}

func (r *Repository) ListParticipationsByCycle(ctx context.Context, cycleID uuid.UUID, includeOptedOut bool) ([]*models.Participation, error) {
	var participations []*models.Participation
	q := r.db.WithContext(ctx).
		Preload("User").
		Preload("BankDetails").
		Where("cycle_id = ?", cycleID)
	if !includeOptedOut {
		q = q.Where("has_opted_out = ?", false)
	}
	if err := q.Order("registered_at ASC").Find(&participations).Error; err != nil {
		return nil, fmt.Errorf("failed to list participations: %w", err)
	}
	return participations, nil
}

func (r *Repository) ListParticipationsByUser(ctx context.Context, userID uuid.UUID) ([]*models.Participation, error) {
	var participations []*models.Participation
	err := r.db.WithContext(ctx).
		Preload("Cycle").
		Where("user_id = ?", userID).
		Order("registered_at DESC").
		Find(&participations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list participations: %w", err)
	}
	return participations, nil
}

// ListRemovableParticipations returns a user's enrollments in cycles that
// have not completed, the ones deleteUser must strip before the soft delete.
func (r *Repository) ListRemovableParticipations(ctx context.Context, userID uuid.UUID) ([]*models.Participation, error) {
	var participations []*models.Participation
	err := r.db.WithContext(ctx).
		Joins("JOIN contribution_cycles ON contribution_cycles.id = participations.cycle_id").
		Where("participations.user_id = ? AND contribution_cycles.status IN ?",
			userID, []models.CycleStatus{models.CycleUpcoming, models.CycleActive}).
		Find(&participations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list removable participations: %w", err)
	}
	return participations, nil
}

func (r *Repository) UpdateParticipation(ctx context.Context, participation *models.Participation, tx *gorm.DB) error {
	return r.orDB(tx).WithContext(ctx).Save(participation).Error
}

func (r *Repository) SetParticipationOptedOut(ctx context.Context, id uuid.UUID, tx *gorm.DB) error {
	res := r.orDB(tx).WithContext(ctx).
		Model(&models.Participation{}).
		Where("id = ?", id).
		Update("has_opted_out", true)
	if res.Error != nil {
		return fmt.Errorf("failed to mark participation opted out: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteParticipation removes the enrollment together with its schedule,
// payout and bank details. Callers run it inside a transaction.
func (r *Repository) DeleteParticipation(ctx context.Context, id uuid.UUID, tx *gorm.DB) error {
	db := r.orDB(tx).WithContext(ctx)
	if err := db.Delete(&models.Payment{}, "participation_id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete payments: %w", err)
	}
	if err := db.Delete(&models.Payout{}, "participation_id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete payouts: %w", err)
	}
	if err := db.Delete(&models.BankDetails{}, "participation_id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete bank details: %w", err)
	}
	return db.Delete(&models.Participation{}, "id = ?", id).Error
}

func (r *Repository) CreateBankDetails(ctx context.Context, details *models.BankDetails, tx *gorm.DB) error {
	return r.orDB(tx).WithContext(ctx).Create(details).Error
}

func (r *Repository) GetBankDetails(ctx context.Context, participationID uuid.UUID) (*models.BankDetails, error) {
	var details models.BankDetails
	err := r.db.WithContext(ctx).First(&details, "participation_id = ?", participationID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &details, nil
}

func (r *Repository) UpdateBankDetails(ctx context.Context, details *models.BankDetails) error {
	return r.db.WithContext(ctx).Save(details).Error
}
