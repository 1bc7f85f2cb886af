package service

import (
	"context"

	"github.com/esusuhq/esusu-engine/internal/models"
	"github.com/google/uuid"
)

// Reporting is read-only rollup territory: no locks beyond default read
// isolation, staleness tolerated, and every list degrades to empty rather
// than failing the caller.

// CycleFinancialSummary totals a cycle's money position.
func (s *Service) CycleFinancialSummary(ctx context.Context, adminID, cycleID uuid.UUID) (*models.CycleFinancialSummary, error) {
	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	summary := &models.CycleFinancialSummary{CycleID: cycleID}
	var err error

	if summary.Expected, err = s.repo.SumExpectedByCycle(ctx, cycleID); err != nil {
		s.logger.Errorf("CycleFinancialSummary: expected: %v", err)
		return summary, nil
	}
	if summary.Collected, err = s.repo.SumCollectedByCycle(ctx, cycleID); err != nil {
		s.logger.Errorf("CycleFinancialSummary: collected: %v", err)
		return summary, nil
	}
	if summary.Outstanding, err = s.repo.SumOutstandingByCycle(ctx, cycleID); err != nil {
		s.logger.Errorf("CycleFinancialSummary: outstanding: %v", err)
		return summary, nil
	}
	if summary.FinesCollected, err = s.repo.SumFinesCollectedByCycle(ctx, cycleID); err != nil {
		s.logger.Errorf("CycleFinancialSummary: fines: %v", err)
		return summary, nil
	}
	if summary.PayoutsPaid, err = s.repo.SumPayoutsByCycle(ctx, cycleID, models.PayoutPaid); err != nil {
		s.logger.Errorf("CycleFinancialSummary: payouts paid: %v", err)
		return summary, nil
	}
	if summary.PayoutsPending, err = s.repo.SumPayoutsByCycle(ctx, cycleID, models.PayoutPending); err != nil {
		s.logger.Errorf("CycleFinancialSummary: payouts pending: %v", err)
		return summary, nil
	}
	return summary, nil
}

// Defaulters groups a cycle's overdue pending payments by participant.
// Amount owed includes the late fine per overdue month, computed from the
// same overdue rule the settlement path uses.
func (s *Service) Defaulters(ctx context.Context, adminID, cycleID uuid.UUID) ([]*models.Defaulter, error) {
	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	overdue, err := s.repo.ListOverduePendingPayments(ctx, cycleID, s.now())
	if err != nil {
		s.logger.Errorf("Defaulters: %v", err)
		return []*models.Defaulter{}, nil
	}

	byParticipation := make(map[uuid.UUID]*models.Defaulter)
	order := make([]uuid.UUID, 0)
	for _, payment := range overdue {
		row, ok := byParticipation[payment.ParticipationID]
		if !ok {
			row = &models.Defaulter{ParticipationID: payment.ParticipationID}
			if payment.Participation != nil {
				row.UserID = payment.Participation.UserID
				if payment.Participation.User != nil {
					row.FullName = payment.Participation.User.FullName
					row.Phone = payment.Participation.User.Phone
				}
			}
			byParticipation[payment.ParticipationID] = row
			order = append(order, payment.ParticipationID)
		}
		row.OverdueMonths = append(row.OverdueMonths, payment.MonthNumber)
		row.AmountOwed += payment.Amount
		if payment.Participation != nil {
			row.AmountOwed += payment.Participation.FineAmount
		}
	}

	defaulters := make([]*models.Defaulter, 0, len(order))
	for _, id := range order {
		defaulters = append(defaulters, byParticipation[id])
	}
	return defaulters, nil
}

// CollectionTrend is the per-month settled total for a cycle.
func (s *Service) CollectionTrend(ctx context.Context, adminID, cycleID uuid.UUID) ([]models.MonthlyCollection, error) {
	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	rows, err := s.repo.MonthlyCollections(ctx, cycleID)
	if err != nil {
		s.logger.Errorf("CollectionTrend: %v", err)
		return []models.MonthlyCollection{}, nil
	}
	return rows, nil
}
