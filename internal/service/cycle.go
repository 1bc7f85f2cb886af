package service

import (
	"context"
	"strings"
	"time"

	"github.com/esusuhq/esusu-engine/internal/apperr"
	"github.com/esusuhq/esusu-engine/internal/models"
	"github.com/google/uuid"
)

type CycleInput struct {
	Name                   string     `json:"name" validate:"required"`
	StartDate              time.Time  `json:"start_date" validate:"required"`
	EndDate                time.Time  `json:"end_date" validate:"required"`
	RegistrationDeadline   time.Time  `json:"registration_deadline" validate:"required"`
	NumberPickingStartDate *time.Time `json:"number_picking_start_date,omitempty"`
	TotalSlots             int        `json:"total_slots" validate:"required,min=10,max=100"`
	PaymentDeadlineDay     int        `json:"payment_deadline_day" validate:"required,min=1,max=31"`
}

func (in CycleInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return apperr.New(apperr.Validation, "Cycle name is required")
	}
	if !in.EndDate.After(in.StartDate) {
		return apperr.New(apperr.Validation, "End date must be after the start date")
	}
	if !in.RegistrationDeadline.Before(in.StartDate) {
		return apperr.New(apperr.Validation, "Registration deadline must be before the start date")
	}
	if in.TotalSlots < 10 || in.TotalSlots > 100 {
		return apperr.New(apperr.Validation, "Total slots must be between 10 and 100")
	}
	if in.PaymentDeadlineDay < 1 || in.PaymentDeadlineDay > 31 {
		return apperr.New(apperr.Validation, "Payment deadline day must be between 1 and 31")
	}
	return nil
}

func (s *Service) CreateCycle(ctx context.Context, adminID uuid.UUID, input CycleInput) (*models.ContributionCycle, error) {
	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	cycle := &models.ContributionCycle{
		Name:                   strings.TrimSpace(input.Name),
		StartDate:              input.StartDate,
		EndDate:                input.EndDate,
		RegistrationDeadline:   input.RegistrationDeadline,
		NumberPickingStartDate: input.NumberPickingStartDate,
		Status:                 models.CycleUpcoming,
		TotalSlots:             input.TotalSlots,
		PaymentDeadlineDay:     input.PaymentDeadlineDay,
	}
	if err := s.repo.CreateCycle(ctx, cycle); err != nil {
		return nil, s.unexpected("CreateCycle: create", err)
	}

	s.logger.Infof("Admin %s created cycle %s (%d slots)", adminID, cycle.Name, cycle.TotalSlots)
	return cycle, nil
}

// UpdateCycle edits the cycle parameters. Shrinking capacity below a
// payout position someone already holds would strand that pick, so it is
// refused.
func (s *Service) UpdateCycle(ctx context.Context, adminID, cycleID uuid.UUID, input CycleInput) (*models.ContributionCycle, error) {
	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	cycle, err := s.repo.GetCycle(ctx, cycleID)
	if err != nil {
		return nil, s.unexpected("UpdateCycle: get cycle", err)
	}
	if cycle == nil {
		return nil, apperr.New(apperr.NotFound, "Cycle not found")
	}
	if cycle.Status == models.CycleCompleted || cycle.Status == models.CycleCancelled {
		return nil, apperr.New(apperr.PreconditionFailed, "Completed or cancelled cycles cannot be edited")
	}

	// The stranded-pick guard outranks the bounds check: an admin shrinking
	// capacity must hear about an existing pick, not about the 10..100 range.
	if input.TotalSlots < cycle.TotalSlots {
		highest, err := s.repo.MaxPickedNumber(ctx, cycleID)
		if err != nil {
			return nil, s.unexpected("UpdateCycle: max picked", err)
		}
		if input.TotalSlots < highest {
			return nil, apperr.Newf(apperr.PreconditionFailed,
				"Cannot reduce slots to %d; number %d is already picked", input.TotalSlots, highest)
		}
	}

	if err := input.validate(); err != nil {
		return nil, err
	}

	cycle.Name = strings.TrimSpace(input.Name)
	cycle.StartDate = input.StartDate
	cycle.EndDate = input.EndDate
	cycle.RegistrationDeadline = input.RegistrationDeadline
	cycle.NumberPickingStartDate = input.NumberPickingStartDate
	cycle.TotalSlots = input.TotalSlots
	cycle.PaymentDeadlineDay = input.PaymentDeadlineDay

	if err := s.repo.UpdateCycle(ctx, cycle); err != nil {
		return nil, s.unexpected("UpdateCycle: update", err)
	}
	return cycle, nil
}

// StartCycle moves an upcoming cycle to ACTIVE.
func (s *Service) StartCycle(ctx context.Context, adminID, cycleID uuid.UUID) error {
	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return err
	}

	cycle, err := s.repo.GetCycle(ctx, cycleID)
	if err != nil {
		return s.unexpected("StartCycle: get cycle", err)
	}
	if cycle == nil {
		return apperr.New(apperr.NotFound, "Cycle not found")
	}
	if cycle.Status != models.CycleUpcoming {
		return apperr.Newf(apperr.PreconditionFailed, "Only upcoming cycles can be started (current status: %s)", cycle.Status)
	}

	if err := s.repo.UpdateCycleStatus(ctx, cycleID, models.CycleActive); err != nil {
		return s.unexpected("StartCycle: update status", err)
	}
	s.logger.Infof("Admin %s started cycle %s", adminID, cycle.Name)
	return nil
}

// CloseCycle completes a cycle. This is the one terminal gate: it refuses
// while any payment or payout is still pending, so a cycle can never close
// with money in flight.
func (s *Service) CloseCycle(ctx context.Context, adminID, cycleID uuid.UUID) error {
	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return err
	}

	cycle, err := s.repo.GetCycle(ctx, cycleID)
	if err != nil {
		return s.unexpected("CloseCycle: get cycle", err)
	}
	if cycle == nil {
		return apperr.New(apperr.NotFound, "Cycle not found")
	}
	if cycle.Status != models.CycleActive {
		return apperr.Newf(apperr.PreconditionFailed, "Only active cycles can be closed (current status: %s)", cycle.Status)
	}

	pendingPayments, err := s.repo.CountPendingPaymentsByCycle(ctx, cycleID)
	if err != nil {
		return s.unexpected("CloseCycle: count payments", err)
	}
	pendingPayouts, err := s.repo.CountPendingPayoutsByCycle(ctx, cycleID)
	if err != nil {
		return s.unexpected("CloseCycle: count payouts", err)
	}
	if pendingPayments > 0 || pendingPayouts > 0 {
		return apperr.Newf(apperr.PreconditionFailed,
			"Cycle still has %d pending payments and %d pending payouts", pendingPayments, pendingPayouts)
	}

	if err := s.repo.UpdateCycleStatus(ctx, cycleID, models.CycleCompleted); err != nil {
		return s.unexpected("CloseCycle: update status", err)
	}
	s.logger.Infof("Admin %s closed cycle %s", adminID, cycle.Name)
	return nil
}

// CancelCycle withdraws a cycle that never ran.
func (s *Service) CancelCycle(ctx context.Context, adminID, cycleID uuid.UUID) error {
	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return err
	}

	cycle, err := s.repo.GetCycle(ctx, cycleID)
	if err != nil {
		return s.unexpected("CancelCycle: get cycle", err)
	}
	if cycle == nil {
		return apperr.New(apperr.NotFound, "Cycle not found")
	}
	if cycle.Status != models.CycleUpcoming {
		return apperr.New(apperr.PreconditionFailed, "Only upcoming cycles can be cancelled")
	}

	if err := s.repo.UpdateCycleStatus(ctx, cycleID, models.CycleCancelled); err != nil {
		return s.unexpected("CancelCycle: update status", err)
	}
	s.logger.Infof("Admin %s cancelled cycle %s", adminID, cycle.Name)
	return nil
}

// DeleteCycle removes a cycle outright, allowed only while nobody has
// joined it.
func (s *Service) DeleteCycle(ctx context.Context, adminID, cycleID uuid.UUID) error {
	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return err
	}

	cycle, err := s.repo.GetCycle(ctx, cycleID)
	if err != nil {
		return s.unexpected("DeleteCycle: get cycle", err)
	}
	if cycle == nil {
		return apperr.New(apperr.NotFound, "Cycle not found")
	}

	count, err := s.repo.CountParticipants(ctx, cycleID)
	if err != nil {
		return s.unexpected("DeleteCycle: count participants", err)
	}
	if count > 0 {
		return apperr.Newf(apperr.PreconditionFailed, "Cycle has %d participants and cannot be deleted", count)
	}

	if err := s.repo.DeleteCycle(ctx, cycleID); err != nil {
		return s.unexpected("DeleteCycle: delete", err)
	}
	s.logger.Infof("Admin %s deleted cycle %s", adminID, cycle.Name)
	return nil
}

// ListCycles is a public read: members browse open cycles. Empty on error.
func (s *Service) ListCycles(ctx context.Context, statuses ...models.CycleStatus) []*models.ContributionCycle {
	cycles, err := s.repo.ListCycles(ctx, statuses...)
	if err != nil {
		s.logger.Errorf("ListCycles: %v", err)
		return []*models.ContributionCycle{}
	}
	return cycles
}

func (s *Service) GetCycle(ctx context.Context, cycleID uuid.UUID) (*models.ContributionCycle, error) {
	cycle, err := s.repo.GetCycle(ctx, cycleID)
	if err != nil {
		return nil, s.unexpected("GetCycle", err)
	}
	if cycle == nil {
		return nil, apperr.New(apperr.NotFound, "Cycle not found")
	}
	return cycle, nil
}
