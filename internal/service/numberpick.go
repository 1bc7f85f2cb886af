package service

import (
	"context"
	"fmt"

	"github.com/esusuhq/esusu-engine/internal/apperr"
	"github.com/esusuhq/esusu-engine/internal/models"
	"github.com/google/uuid"
)

// PickNumber assigns a payout position to an enrollment. Picking is
// terminal: once set, the number never changes. The payout row is derived
// in the same transaction so a picked number and its payout cannot drift
// apart.
func (s *Service) PickNumber(ctx context.Context, userID, participationID uuid.UUID, number int) (*models.Payout, error) {
	participation, err := s.repo.GetParticipation(ctx, participationID)
	if err != nil {
		return nil, s.unexpected("PickNumber: get participation", err)
	}
	if participation == nil {
		return nil, apperr.New(apperr.NotFound, "Participation not found")
	}
	if participation.UserID != userID {
		return nil, apperr.New(apperr.Unauthorized, "You are not authorized to perform this action")
	}
	if participation.HasOptedOut {
		return nil, apperr.New(apperr.PreconditionFailed, "You have opted out of this cycle")
	}

	cycle := participation.Cycle
	if cycle == nil {
		return nil, s.unexpected("PickNumber", fmt.Errorf("participation %s has no cycle loaded", participationID))
	}

	if number < 1 || number > cycle.TotalSlots {
		return nil, apperr.Newf(apperr.Validation, "Number must be between 1 and %d", cycle.TotalSlots)
	}
	if cycle.NumberPickingStartDate != nil && s.now().Before(*cycle.NumberPickingStartDate) {
		return nil, apperr.New(apperr.PreconditionFailed, "Number picking has not opened yet")
	}
	if participation.PickedNumber != nil {
		return nil, apperr.Newf(apperr.Conflict, "You have already picked number %d", *participation.PickedNumber)
	}

	holder, err := s.repo.GetParticipationByNumber(ctx, cycle.ID, number)
	if err != nil {
		return nil, s.unexpected("PickNumber: check holder", err)
	}
	if holder != nil {
		return nil, apperr.Newf(apperr.Conflict, "Number %d has already been taken", number)
	}

	payout := &models.Payout{
		ParticipationID: participation.ID,
		CycleID:         cycle.ID,
		ScheduledMonth:  number,
		ScheduledDate:   addMonths(cycle.StartDate, number-1),
		Amount:          participation.TotalPayout,
		Status:          models.PayoutPending,
	}

	tx, err := s.repo.BeginTransaction(ctx)
	if err != nil {
		return nil, s.unexpected("PickNumber: begin tx", err)
	}

	participation.PickedNumber = &number
	// The (cycle, number) unique index turns a lost race into Conflict here.
	if err := s.repo.UpdateParticipation(ctx, participation, tx); err != nil {
		s.repo.Rollback(tx)
		participation.PickedNumber = nil
		return nil, s.conflictOr("PickNumber: assign number", err,
			"That number was just taken, please pick another")
	}

	if err := s.repo.CreatePayout(ctx, payout, tx); err != nil {
		s.repo.Rollback(tx)
		participation.PickedNumber = nil
		return nil, s.unexpected("PickNumber: create payout", err)
	}

	if err := s.repo.Commit(tx); err != nil {
		return nil, s.unexpected("PickNumber: commit", err)
	}

	s.logger.Infof("Participation %s picked number %d in cycle %s", participationID, number, cycle.Name)
	return payout, nil
}

// TakenNumbers lists the occupied payout positions of a cycle. Read path:
// empty on error.
func (s *Service) TakenNumbers(ctx context.Context, cycleID uuid.UUID) []int {
	participations, err := s.repo.ListParticipationsByCycle(ctx, cycleID, false)
	if err != nil {
		s.logger.Errorf("TakenNumbers: %v", err)
		return []int{}
	}
	taken := make([]int, 0, len(participations))
	for _, p := range participations {
		if p.PickedNumber != nil {
			taken = append(taken, *p.PickedNumber)
		}
	}
	return taken
}

// PickPoolNumber is the standalone single-pool game: one pick per user,
// one user per number, no cycle involved.
func (s *Service) PickPoolNumber(ctx context.Context, userID uuid.UUID, number int) (*models.NumberPick, error) {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, s.unexpected("PickPoolNumber: get settings", err)
	}
	if number < 1 || number > settings.TotalNumbers {
		return nil, apperr.Newf(apperr.Validation, "Number must be between 1 and %d", settings.TotalNumbers)
	}

	existing, err := s.repo.GetNumberPickByUser(ctx, userID)
	if err != nil {
		return nil, s.unexpected("PickPoolNumber: check user", err)
	}
	if existing != nil {
		return nil, apperr.Newf(apperr.Conflict, "You have already picked number %d", existing.Number)
	}

	holder, err := s.repo.GetNumberPickByNumber(ctx, number)
	if err != nil {
		return nil, s.unexpected("PickPoolNumber: check number", err)
	}
	if holder != nil {
		return nil, apperr.Newf(apperr.Conflict, "Number %d has already been taken", number)
	}

	pick := &models.NumberPick{
		UserID:   userID,
		Number:   number,
		PickedAt: s.now(),
	}
	if err := s.repo.CreateNumberPick(ctx, pick); err != nil {
		return nil, s.conflictOr("PickPoolNumber: create", err, "That number was just taken, please pick another")
	}
	return pick, nil
}

func (s *Service) ListPoolPicks(ctx context.Context) []*models.NumberPick {
	picks, err := s.repo.ListNumberPicks(ctx)
	if err != nil {
		s.logger.Errorf("ListPoolPicks: %v", err)
		return []*models.NumberPick{}
	}
	return picks
}

// ResetNumberGame wipes every pool pick.
func (s *Service) ResetNumberGame(ctx context.Context, adminID uuid.UUID) error {
	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return err
	}
	if err := s.repo.DeleteAllNumberPicks(ctx); err != nil {
		return s.unexpected("ResetNumberGame: delete picks", err)
	}
	s.logger.Infof("Admin %s reset the number game", adminID)
	return nil
}

// UpdateTotalNumbers resizes the pool. Shrinking below the highest number
// already picked would orphan a pick, so it is refused.
func (s *Service) UpdateTotalNumbers(ctx context.Context, adminID uuid.UUID, total int) (*models.Settings, error) {
	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	if total < 1 {
		return nil, apperr.New(apperr.Validation, "Total numbers must be at least 1")
	}

	highest, err := s.repo.MaxPoolNumber(ctx)
	if err != nil {
		return nil, s.unexpected("UpdateTotalNumbers: max pick", err)
	}
	if total < highest {
		return nil, apperr.Newf(apperr.PreconditionFailed,
			"Cannot shrink the pool below %d; number %d is already picked", highest, highest)
	}

	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, s.unexpected("UpdateTotalNumbers: get settings", err)
	}
	settings.TotalNumbers = total
	if err := s.repo.UpdateSettings(ctx, settings); err != nil {
		return nil, s.unexpected("UpdateTotalNumbers: update settings", err)
	}
	return settings, nil
}
