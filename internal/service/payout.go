package service

import (
	"context"
	"strings"

	"github.com/esusuhq/esusu-engine/internal/apperr"
	"github.com/esusuhq/esusu-engine/internal/models"
	"github.com/google/uuid"
)

// ProcessPayout records that the lump sum was transferred out of band.
// The system never moves money itself; the transfer reference is the only
// evidence it keeps.
func (s *Service) ProcessPayout(ctx context.Context, adminID, payoutID uuid.UUID, transferReference, notes string) (*models.Payout, error) {
	admin, err := s.requireAdmin(ctx, adminID)
	if err != nil {
		return nil, err
	}

	transferReference = strings.TrimSpace(transferReference)
	if transferReference == "" {
		return nil, apperr.New(apperr.Validation, "Transfer reference is required")
	}

	payout, err := s.repo.GetPayout(ctx, payoutID)
	if err != nil {
		return nil, s.unexpected("ProcessPayout: get payout", err)
	}
	if payout == nil {
		return nil, apperr.New(apperr.NotFound, "Payout not found")
	}
	if payout.Status != models.PayoutPending {
		return nil, apperr.Newf(apperr.PreconditionFailed, "This payout is %s and cannot be processed", strings.ToLower(string(payout.Status)))
	}
	if payout.Participation == nil || payout.Participation.BankDetails == nil {
		return nil, apperr.New(apperr.PreconditionFailed, "The participant has no bank details on file")
	}

	now := s.now()
	payout.Status = models.PayoutPaid
	payout.TransferReference = &transferReference
	payout.ProcessedBy = &admin.ID
	payout.PaidAt = &now
	payout.Notes = strings.TrimSpace(notes)

	if err := s.repo.UpdatePayout(ctx, payout, nil); err != nil {
		return nil, s.unexpected("ProcessPayout: update", err)
	}

	s.logger.Infof("Admin %s processed payout %s (₦%d, ref %s)", adminID, payoutID, payout.Amount, transferReference)
	return payout, nil
}

// MyPayout returns the member's payout for an enrollment, nil when the
// number has not been picked yet.
func (s *Service) MyPayout(ctx context.Context, userID, participationID uuid.UUID) (*models.Payout, error) {
	participation, err := s.repo.GetParticipation(ctx, participationID)
	if err != nil {
		return nil, s.unexpected("MyPayout: get participation", err)
	}
	if participation == nil {
		return nil, apperr.New(apperr.NotFound, "Participation not found")
	}
	if participation.UserID != userID {
		return nil, apperr.New(apperr.Unauthorized, "You are not authorized to perform this action")
	}

	payout, err := s.repo.GetPayoutByParticipation(ctx, participationID)
	if err != nil {
		return nil, s.unexpected("MyPayout: get payout", err)
	}
	return payout, nil
}

// PendingPayouts is the admin disbursement queue, oldest schedule first.
func (s *Service) PendingPayouts(ctx context.Context, adminID uuid.UUID) ([]*models.Payout, error) {
	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	payouts, err := s.repo.ListPendingPayouts(ctx)
	if err != nil {
		s.logger.Errorf("PendingPayouts: %v", err)
		return []*models.Payout{}, nil
	}
	return payouts, nil
}

// OverduePayouts surfaces pending payouts whose scheduled date has passed.
// A priority view only; nothing is escalated automatically.
func (s *Service) OverduePayouts(ctx context.Context, adminID uuid.UUID) ([]*models.Payout, error) {
	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	payouts, err := s.repo.ListOverduePayouts(ctx, s.now())
	if err != nil {
		s.logger.Errorf("OverduePayouts: %v", err)
		return []*models.Payout{}, nil
	}
	return payouts, nil
}
