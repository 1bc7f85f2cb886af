package service

import (
	"context"
	"strings"

	"github.com/esusuhq/esusu-engine/internal/apperr"
	"github.com/esusuhq/esusu-engine/internal/models"
	"github.com/google/uuid"
)

type BankDetailsInput struct {
	BankName      string `json:"bank_name" validate:"required"`
	AccountNumber string `json:"account_number" validate:"required,len=10,numeric"`
	AccountName   string `json:"account_name" validate:"required"`
}

func (in BankDetailsInput) validate() error {
	if strings.TrimSpace(in.BankName) == "" {
		return apperr.New(apperr.Validation, "Bank name is required")
	}
	if strings.TrimSpace(in.AccountName) == "" {
		return apperr.New(apperr.Validation, "Account name is required")
	}
	if len(in.AccountNumber) != 10 {
		return apperr.New(apperr.Validation, "Account number must be exactly 10 digits")
	}
	for _, c := range in.AccountNumber {
		if c < '0' || c > '9' {
			return apperr.New(apperr.Validation, "Account number must contain only digits")
		}
	}
	return nil
}

// JoinCycle enrolls a user into a cycle with the chosen package tier.
// Participation and bank details are written in one transaction; the
// (user, cycle) unique index settles concurrent double-joins.
func (s *Service) JoinCycle(ctx context.Context, userID, cycleID uuid.UUID, mode models.ContributionMode, bank BankDetailsInput) (*models.Participation, error) {
	pkg, ok := models.PackageFor(mode)
	if !ok {
		return nil, apperr.Newf(apperr.Validation, "Unknown contribution package %q", string(mode))
	}
	if err := bank.validate(); err != nil {
		return nil, err
	}

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, s.unexpected("JoinCycle: get user", err)
	}
	if user == nil {
		return nil, apperr.New(apperr.NotFound, "User not found")
	}
	if user.Status != models.UserActive {
		return nil, apperr.New(apperr.PreconditionFailed, "Your account is not active")
	}

	cycle, err := s.repo.GetCycle(ctx, cycleID)
	if err != nil {
		return nil, s.unexpected("JoinCycle: get cycle", err)
	}
	if cycle == nil {
		return nil, apperr.New(apperr.NotFound, "Cycle not found")
	}
	if cycle.Status != models.CycleUpcoming && cycle.Status != models.CycleActive {
		return nil, apperr.New(apperr.PreconditionFailed, "This cycle is no longer open for registration")
	}
	now := s.now()
	if now.After(cycle.RegistrationDeadline) {
		return nil, apperr.New(apperr.PreconditionFailed, "Registration for this cycle has closed")
	}

	existing, err := s.repo.GetActiveParticipation(ctx, userID, cycleID)
	if err != nil {
		return nil, s.unexpected("JoinCycle: check existing", err)
	}
	if existing != nil {
		return nil, apperr.New(apperr.Conflict, "You are already registered for this cycle")
	}

	count, err := s.repo.CountParticipants(ctx, cycleID)
	if err != nil {
		return nil, s.unexpected("JoinCycle: count participants", err)
	}
	if count >= int64(cycle.TotalSlots) {
		return nil, apperr.New(apperr.PreconditionFailed, "This cycle is full")
	}

	participation := &models.Participation{
		UserID:           userID,
		CycleID:          cycleID,
		ContributionMode: mode,
		MonthlyAmount:    pkg.MonthlyAmount,
		TotalPayout:      pkg.TotalPayout,
		FineAmount:       pkg.FineAmount,
		RegisteredAt:     now,
	}

	tx, err := s.repo.BeginTransaction(ctx)
	if err != nil {
		return nil, s.unexpected("JoinCycle: begin tx", err)
	}

	if err := s.repo.CreateParticipation(ctx, participation, tx); err != nil {
		s.repo.Rollback(tx)
		return nil, s.conflictOr("JoinCycle: create participation", err, "You are already registered for this cycle")
	}

	details := &models.BankDetails{
		ParticipationID: participation.ID,
		BankName:        strings.TrimSpace(bank.BankName),
		AccountNumber:   bank.AccountNumber,
		AccountName:     strings.TrimSpace(bank.AccountName),
	}
	if err := s.repo.CreateBankDetails(ctx, details, tx); err != nil {
		s.repo.Rollback(tx)
		return nil, s.unexpected("JoinCycle: create bank details", err)
	}

	if err := s.repo.Commit(tx); err != nil {
		return nil, s.unexpected("JoinCycle: commit", err)
	}

	participation.BankDetails = details
	s.logger.Infof("User %s joined cycle %s with %s", userID, cycle.Name, mode)
	return participation, nil
}

// UpdateBankDetails upserts the payout account for an enrollment. Only the
// owner (or an admin) may change it.
func (s *Service) UpdateBankDetails(ctx context.Context, actorID, participationID uuid.UUID, input BankDetailsInput) (*models.BankDetails, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	participation, err := s.repo.GetParticipation(ctx, participationID)
	if err != nil {
		return nil, s.unexpected("UpdateBankDetails: get participation", err)
	}
	if participation == nil {
		return nil, apperr.New(apperr.NotFound, "Participation not found")
	}

	if participation.UserID != actorID {
		actor, err := s.repo.GetUser(ctx, actorID)
		if err != nil {
			return nil, s.unexpected("UpdateBankDetails: get actor", err)
		}
		if actor == nil || !actor.IsAdmin {
			return nil, apperr.New(apperr.Unauthorized, "You are not authorized to perform this action")
		}
	}

	details, err := s.repo.GetBankDetails(ctx, participationID)
	if err != nil {
		return nil, s.unexpected("UpdateBankDetails: get details", err)
	}
	if details == nil {
		details = &models.BankDetails{ParticipationID: participationID}
	}
	details.BankName = strings.TrimSpace(input.BankName)
	details.AccountNumber = input.AccountNumber
	details.AccountName = strings.TrimSpace(input.AccountName)

	if details.ID == uuid.Nil {
		if err := s.repo.CreateBankDetails(ctx, details, nil); err != nil {
			return nil, s.conflictOr("UpdateBankDetails: create", err, "Bank details were updated concurrently, please retry")
		}
	} else {
		if err := s.repo.UpdateBankDetails(ctx, details); err != nil {
			return nil, s.unexpected("UpdateBankDetails: update", err)
		}
	}

	return details, nil
}

// MyParticipations lists a member's enrollment history across cycles.
// Read path: degrades to empty, never fails the caller.
func (s *Service) MyParticipations(ctx context.Context, userID uuid.UUID) []*models.Participation {
	participations, err := s.repo.ListParticipationsByUser(ctx, userID)
	if err != nil {
		s.logger.Errorf("MyParticipations: %v", err)
		return []*models.Participation{}
	}
	return participations
}
