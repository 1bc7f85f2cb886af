package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/esusuhq/esusu-engine/internal/apperr"
	"github.com/esusuhq/esusu-engine/internal/models"
	"github.com/google/uuid"
)

// OptOutInfo is the eligibility snapshot shown to a member before they
// submit. The figures here are advisory; SubmitOptOutRequest recomputes
// them at submission time and freezes them into the request.
type OptOutInfo struct {
	Eligible       bool                  `json:"eligible"`
	Reason         string                `json:"reason,omitempty"`
	Participation  *models.Participation `json:"participation,omitempty"`
	TotalPaid      int64                 `json:"total_paid"`
	PenaltyPercent int                   `json:"penalty_percent"`
	PenaltyAmount  int64                 `json:"penalty_amount"`
	RefundAmount   int64                 `json:"refund_amount"`
}

// penaltySplit applies the configured rate: penalty is floored by integer
// division, the refund absorbs the remainder, and the two always sum back
// to totalPaid.
func penaltySplit(totalPaid int64, percent int) (penalty, refund int64) {
	penalty = totalPaid * int64(percent) / 100
	return penalty, totalPaid - penalty
}

// GetOptOutInfo reports whether the member can leave their active cycle,
// and at what cost.
func (s *Service) GetOptOutInfo(ctx context.Context, userID uuid.UUID) (*OptOutInfo, error) {
	participations, err := s.repo.ListParticipationsByUser(ctx, userID)
	if err != nil {
		return nil, s.unexpected("GetOptOutInfo: list participations", err)
	}

	var active *models.Participation
	for _, p := range participations {
		if p.Cycle != nil && p.Cycle.Status == models.CycleActive {
			active = p
			break
		}
	}
	if active == nil {
		return &OptOutInfo{Eligible: false, Reason: "You are not participating in an active cycle"}, nil
	}
	if active.HasOptedOut {
		return &OptOutInfo{Eligible: false, Reason: "You have already opted out of this cycle"}, nil
	}

	payout, err := s.repo.GetPayoutByParticipation(ctx, active.ID)
	if err != nil {
		return nil, s.unexpected("GetOptOutInfo: get payout", err)
	}
	if payout != nil && payout.Status == models.PayoutPaid {
		return &OptOutInfo{Eligible: false, Reason: "You cannot opt out after receiving your payout"}, nil
	}

	pending, err := s.repo.GetPendingOptOutRequest(ctx, userID, active.CycleID)
	if err != nil {
		return nil, s.unexpected("GetOptOutInfo: check pending", err)
	}
	if pending != nil {
		return &OptOutInfo{Eligible: false, Reason: "You already have a pending opt-out request"}, nil
	}

	totalPaid, err := s.repo.SumPaidByParticipation(ctx, active.ID)
	if err != nil {
		return nil, s.unexpected("GetOptOutInfo: sum paid", err)
	}
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, s.unexpected("GetOptOutInfo: get settings", err)
	}
	penalty, refund := penaltySplit(totalPaid, settings.PenaltyPercent)

	return &OptOutInfo{
		Eligible:       true,
		Participation:  active,
		TotalPaid:      totalPaid,
		PenaltyPercent: settings.PenaltyPercent,
		PenaltyAmount:  penalty,
		RefundAmount:   refund,
	}, nil
}

// SubmitOptOutRequest files the request. Penalty and refund are computed
// here, from the store, and frozen into the row: payments settled after
// submission do not move a pending request's numbers. The partial unique
// index settles the duplicate-pending race.
func (s *Service) SubmitOptOutRequest(ctx context.Context, userID, cycleID uuid.UUID, reason string) (*models.OptOutRequest, error) {
	reason = strings.TrimSpace(reason)
	if len(reason) < 10 {
		return nil, apperr.New(apperr.Validation, "Please provide a reason of at least 10 characters")
	}

	participation, err := s.repo.GetActiveParticipation(ctx, userID, cycleID)
	if err != nil {
		return nil, s.unexpected("SubmitOptOutRequest: get participation", err)
	}
	if participation == nil {
		return nil, apperr.New(apperr.PreconditionFailed, "You are not participating in this cycle")
	}
	if participation.Cycle == nil || participation.Cycle.Status != models.CycleActive {
		return nil, apperr.New(apperr.PreconditionFailed, "You can only opt out of an active cycle")
	}

	payout, err := s.repo.GetPayoutByParticipation(ctx, participation.ID)
	if err != nil {
		return nil, s.unexpected("SubmitOptOutRequest: get payout", err)
	}
	if payout != nil && payout.Status == models.PayoutPaid {
		return nil, apperr.New(apperr.PreconditionFailed, "You cannot opt out after receiving your payout")
	}

	pending, err := s.repo.GetPendingOptOutRequest(ctx, userID, cycleID)
	if err != nil {
		return nil, s.unexpected("SubmitOptOutRequest: check pending", err)
	}
	if pending != nil {
		return nil, apperr.New(apperr.Conflict, "You already have a pending opt-out request")
	}

	totalPaid, err := s.repo.SumPaidByParticipation(ctx, participation.ID)
	if err != nil {
		return nil, s.unexpected("SubmitOptOutRequest: sum paid", err)
	}
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, s.unexpected("SubmitOptOutRequest: get settings", err)
	}
	penalty, refund := penaltySplit(totalPaid, settings.PenaltyPercent)

	request := &models.OptOutRequest{
		UserID:        userID,
		CycleID:       cycleID,
		Reason:        reason,
		TotalPaid:     totalPaid,
		PenaltyAmount: penalty,
		RefundAmount:  refund,
		Status:        models.OptOutPendingApproval,
		RequestedAt:   s.now(),
	}
	if err := s.repo.CreateOptOutRequest(ctx, request); err != nil {
		return nil, s.conflictOr("SubmitOptOutRequest: create", err, "You already have a pending opt-out request")
	}

	memberName := userID.String()
	if participation.User != nil {
		memberName = participation.User.FullName
	}
	s.notifier.NotifyAdmins(ctx, fmt.Sprintf("🚪 %s requested to opt out (paid ₦%d, penalty ₦%d, refund ₦%d).",
		memberName, totalPaid, penalty, refund))

	s.logger.Infof("User %s submitted opt-out for cycle %s (penalty %d, refund %d)", userID, cycleID, penalty, refund)
	return request, nil
}

// CancelOptOutRequest withdraws a pending request. Only the requester may
// cancel; absence of a pending row is what permits resubmission later.
func (s *Service) CancelOptOutRequest(ctx context.Context, requestID, userID uuid.UUID) error {
	request, err := s.repo.GetOptOutRequest(ctx, requestID)
	if err != nil {
		return s.unexpected("CancelOptOutRequest: get request", err)
	}
	if request == nil {
		return apperr.New(apperr.NotFound, "Opt-out request not found")
	}
	if request.UserID != userID {
		return apperr.New(apperr.Unauthorized, "You are not authorized to perform this action")
	}
	if request.Status != models.OptOutPendingApproval {
		return apperr.New(apperr.PreconditionFailed, "Only pending requests can be cancelled")
	}

	if err := s.repo.DeleteOptOutRequest(ctx, requestID); err != nil {
		return s.unexpected("CancelOptOutRequest: delete", err)
	}
	s.logger.Infof("User %s cancelled opt-out request %s", userID, requestID)
	return nil
}

// ReviewOptOutRequest is the admin decision. Approval carries three side
// effects that must land together or not at all: the request flips to
// APPROVED, the participation is marked opted out, the user's status
// becomes OPTED_OUT, and any pending payout is waived.
func (s *Service) ReviewOptOutRequest(ctx context.Context, adminID, requestID uuid.UUID, approved bool, notes string) (*models.OptOutRequest, error) {
	admin, err := s.requireAdmin(ctx, adminID)
	if err != nil {
		return nil, err
	}

	request, err := s.repo.GetOptOutRequest(ctx, requestID)
	if err != nil {
		return nil, s.unexpected("ReviewOptOutRequest: get request", err)
	}
	if request == nil {
		return nil, apperr.New(apperr.NotFound, "Opt-out request not found")
	}
	if request.Status != models.OptOutPendingApproval {
		return nil, apperr.New(apperr.PreconditionFailed, "This request has already been reviewed")
	}

	now := s.now()
	request.ReviewedAt = &now
	request.ReviewedBy = &admin.ID
	request.ReviewNotes = strings.TrimSpace(notes)

	if !approved {
		request.Status = models.OptOutRejected
		if err := s.repo.UpdateOptOutRequest(ctx, request, nil); err != nil {
			return nil, s.unexpected("ReviewOptOutRequest: update", err)
		}
		s.logger.Infof("Admin %s rejected opt-out request %s", adminID, requestID)
		return request, nil
	}

	participation, err := s.repo.GetActiveParticipation(ctx, request.UserID, request.CycleID)
	if err != nil {
		return nil, s.unexpected("ReviewOptOutRequest: get participation", err)
	}
	if participation == nil {
		return nil, apperr.New(apperr.PreconditionFailed, "The participant is no longer in this cycle")
	}

	pendingPayout, err := s.repo.GetPendingPayoutByParticipation(ctx, participation.ID)
	if err != nil {
		return nil, s.unexpected("ReviewOptOutRequest: get payout", err)
	}

	request.Status = models.OptOutApproved

	tx, err := s.repo.BeginTransaction(ctx)
	if err != nil {
		return nil, s.unexpected("ReviewOptOutRequest: begin tx", err)
	}
	if err := s.repo.UpdateOptOutRequest(ctx, request, tx); err != nil {
		s.repo.Rollback(tx)
		return nil, s.unexpected("ReviewOptOutRequest: update request", err)
	}
	if err := s.repo.SetParticipationOptedOut(ctx, participation.ID, tx); err != nil {
		s.repo.Rollback(tx)
		return nil, s.unexpected("ReviewOptOutRequest: mark participation", err)
	}
	if err := s.repo.UpdateUserStatus(ctx, request.UserID, models.UserOptedOut, tx); err != nil {
		s.repo.Rollback(tx)
		return nil, s.unexpected("ReviewOptOutRequest: update user", err)
	}
	if pendingPayout != nil {
		pendingPayout.Status = models.PayoutWaived
		if err := s.repo.UpdatePayout(ctx, pendingPayout, tx); err != nil {
			s.repo.Rollback(tx)
			return nil, s.unexpected("ReviewOptOutRequest: waive payout", err)
		}
	}
	if err := s.repo.Commit(tx); err != nil {
		return nil, s.unexpected("ReviewOptOutRequest: commit", err)
	}

	s.logger.Infof("Admin %s approved opt-out request %s (refund %d)", adminID, requestID, request.RefundAmount)
	return request, nil
}

// MyOptOutRequests lists a member's request history. Read path: empty on
// error.
func (s *Service) MyOptOutRequests(ctx context.Context, userID uuid.UUID) []*models.OptOutRequest {
	requests, err := s.repo.ListOptOutRequestsByUser(ctx, userID)
	if err != nil {
		s.logger.Errorf("MyOptOutRequests: %v", err)
		return []*models.OptOutRequest{}
	}
	return requests
}

// PendingOptOutRequests is the admin review queue.
func (s *Service) PendingOptOutRequests(ctx context.Context, adminID uuid.UUID) ([]*models.OptOutRequest, error) {
	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	requests, err := s.repo.ListOptOutRequests(ctx, models.OptOutPendingApproval)
	if err != nil {
		s.logger.Errorf("PendingOptOutRequests: %v", err)
		return []*models.OptOutRequest{}, nil
	}
	return requests, nil
}
