package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/esusuhq/esusu-engine/internal/apperr"
	"github.com/esusuhq/esusu-engine/internal/models"
	"github.com/google/uuid"
)

// GenerateCyclePayments creates the full monthly schedule for every
// non-opted-out enrollment in a cycle. One-shot: the operation refuses to
// run once any payment exists for the cycle, so re-running it cannot
// duplicate or reset rows.
func (s *Service) GenerateCyclePayments(ctx context.Context, adminID, cycleID uuid.UUID) (int, error) {
	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return 0, err
	}

	cycle, err := s.repo.GetCycle(ctx, cycleID)
	if err != nil {
		return 0, s.unexpected("GenerateCyclePayments: get cycle", err)
	}
	if cycle == nil {
		return 0, apperr.New(apperr.NotFound, "Cycle not found")
	}

	existing, err := s.repo.CountPaymentsByCycle(ctx, cycleID)
	if err != nil {
		return 0, s.unexpected("GenerateCyclePayments: count existing", err)
	}
	if existing > 0 {
		return 0, apperr.New(apperr.Conflict, "Payments have already been generated for this cycle")
	}

	participations, err := s.repo.ListParticipationsByCycle(ctx, cycleID, false)
	if err != nil {
		return 0, s.unexpected("GenerateCyclePayments: list participations", err)
	}
	if len(participations) == 0 {
		return 0, apperr.New(apperr.PreconditionFailed, "This cycle has no participants yet")
	}

	duration := monthsBetween(cycle.StartDate, cycle.EndDate) + 1
	if duration > cycle.TotalSlots {
		duration = cycle.TotalSlots
	}
	if duration < 1 {
		duration = 1
	}

	payments := make([]*models.Payment, 0, len(participations)*duration)
	for _, participation := range participations {
		for month := 1; month <= duration; month++ {
			payments = append(payments, &models.Payment{
				ParticipationID: participation.ID,
				CycleID:         cycleID,
				MonthNumber:     month,
				Amount:          participation.MonthlyAmount,
				DueDate:         dueDateFor(cycle.StartDate, month, cycle.PaymentDeadlineDay),
				Status:          models.PaymentPending,
			})
		}
	}

	tx, err := s.repo.BeginTransaction(ctx)
	if err != nil {
		return 0, s.unexpected("GenerateCyclePayments: begin tx", err)
	}
	if err := s.repo.CreatePayments(ctx, payments, tx); err != nil {
		s.repo.Rollback(tx)
		return 0, s.conflictOr("GenerateCyclePayments: create", err,
			"Payments have already been generated for this cycle")
	}
	if err := s.repo.Commit(tx); err != nil {
		return 0, s.unexpected("GenerateCyclePayments: commit", err)
	}

	s.logger.Infof("Generated %d payments for cycle %s (%d months x %d participants)",
		len(payments), cycle.Name, duration, len(participations))
	return len(payments), nil
}

// settle flips a pending payment to PAID, surcharging the late fine when
// the due date has passed. The fine is applied here, at settlement time,
// never scheduled as a row of its own.
func (s *Service) settle(payment *models.Payment, fineAmount int64) {
	now := s.now()
	payment.PaidAmount = payment.Amount
	if payment.IsOverdue(now) {
		payment.HasFine = true
		payment.FineAmount = fineAmount
		payment.FinePaid = true
		payment.PaidAmount += fineAmount
	}
	payment.Status = models.PaymentPaid
	payment.PaidAt = &now
}

// MarkPaymentAsPaid is the self-service settlement path.
func (s *Service) MarkPaymentAsPaid(ctx context.Context, userID, paymentID uuid.UUID) (*models.Payment, error) {
	payment, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, s.unexpected("MarkPaymentAsPaid: get payment", err)
	}
	if payment == nil {
		return nil, apperr.New(apperr.NotFound, "Payment not found")
	}
	if payment.Participation == nil {
		return nil, s.unexpected("MarkPaymentAsPaid", fmt.Errorf("payment %s has no participation loaded", paymentID))
	}
	if payment.Participation.UserID != userID {
		return nil, apperr.New(apperr.Unauthorized, "You are not authorized to perform this action")
	}
	if payment.Status != models.PaymentPending {
		return nil, apperr.New(apperr.PreconditionFailed, "This payment has already been settled")
	}

	s.settle(payment, payment.Participation.FineAmount)
	if err := s.repo.UpdatePayment(ctx, payment, nil); err != nil {
		return nil, s.unexpected("MarkPaymentAsPaid: update", err)
	}

	s.logger.Infof("Payment %s marked paid by member (amount %d)", paymentID, payment.PaidAmount)
	return payment, nil
}

// UploadPaymentProof attaches a proof reference and leaves the payment
// pending for admin review. The engine never looks at file bytes; the
// reference is opaque.
func (s *Service) UploadPaymentProof(ctx context.Context, userID, paymentID uuid.UUID, proofRef string) (*models.Payment, error) {
	proofRef = strings.TrimSpace(proofRef)
	if proofRef == "" {
		return nil, apperr.New(apperr.Validation, "Proof of payment reference is required")
	}

	payment, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, s.unexpected("UploadPaymentProof: get payment", err)
	}
	if payment == nil {
		return nil, apperr.New(apperr.NotFound, "Payment not found")
	}
	if payment.Participation == nil || payment.Participation.UserID != userID {
		return nil, apperr.New(apperr.Unauthorized, "You are not authorized to perform this action")
	}
	if payment.Status != models.PaymentPending {
		return nil, apperr.New(apperr.PreconditionFailed, "This payment has already been settled")
	}

	payment.ProofOfPayment = &proofRef
	if err := s.repo.UpdatePayment(ctx, payment, nil); err != nil {
		return nil, s.unexpected("UploadPaymentProof: update", err)
	}

	memberName := ""
	if payment.Participation.User != nil {
		memberName = payment.Participation.User.FullName
	}
	s.notifier.NotifyAdmins(ctx, fmt.Sprintf("📎 %s uploaded proof for month %d (₦%d). Awaiting verification.",
		memberName, payment.MonthNumber, payment.Amount))
	return payment, nil
}

// VerifyPayment is the admin review of an uploaded proof. Approval settles
// the payment with the fine surcharge when overdue; rejection clears the
// proof so the member must re-upload, and the payment stays pending.
func (s *Service) VerifyPayment(ctx context.Context, adminID, paymentID uuid.UUID, approved bool, notes string) (*models.Payment, error) {
	admin, err := s.requireAdmin(ctx, adminID)
	if err != nil {
		return nil, err
	}

	payment, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, s.unexpected("VerifyPayment: get payment", err)
	}
	if payment == nil {
		return nil, apperr.New(apperr.NotFound, "Payment not found")
	}
	if payment.Status != models.PaymentPending {
		return nil, apperr.New(apperr.PreconditionFailed, "This payment has already been settled")
	}
	if payment.ProofOfPayment == nil {
		return nil, apperr.New(apperr.PreconditionFailed, "There is no proof of payment to review")
	}
	if payment.Participation == nil {
		return nil, s.unexpected("VerifyPayment", fmt.Errorf("payment %s has no participation loaded", paymentID))
	}

	now := s.now()
	payment.Notes = strings.TrimSpace(notes)
	if approved {
		s.settle(payment, payment.Participation.FineAmount)
		payment.VerifiedBy = &admin.ID
		payment.VerifiedAt = &now
	} else {
		payment.ProofOfPayment = nil
	}

	if err := s.repo.UpdatePayment(ctx, payment, nil); err != nil {
		return nil, s.unexpected("VerifyPayment: update", err)
	}

	if approved {
		s.logger.Infof("Admin %s approved payment %s (paid %d)", adminID, paymentID, payment.PaidAmount)
	} else {
		s.logger.Infof("Admin %s rejected proof for payment %s", adminID, paymentID)
	}
	return payment, nil
}

// MyPayments lists a member's schedule for one enrollment. Read path:
// empty on error.
func (s *Service) MyPayments(ctx context.Context, userID, participationID uuid.UUID) []*models.Payment {
	participation, err := s.repo.GetParticipation(ctx, participationID)
	if err != nil || participation == nil || participation.UserID != userID {
		return []*models.Payment{}
	}
	payments, err := s.repo.ListPaymentsByParticipation(ctx, participationID)
	if err != nil {
		s.logger.Errorf("MyPayments: %v", err)
		return []*models.Payment{}
	}
	return payments
}

// PaymentsAwaitingVerification is the admin review queue.
func (s *Service) PaymentsAwaitingVerification(ctx context.Context, adminID uuid.UUID) ([]*models.Payment, error) {
	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPaymentsAwaitingVerification(ctx)
	if err != nil {
		s.logger.Errorf("PaymentsAwaitingVerification: %v", err)
		return []*models.Payment{}, nil
	}
	return payments, nil
}
