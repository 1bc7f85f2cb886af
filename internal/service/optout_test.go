package service

import (
	"testing"
	"time"

	"github.com/esusuhq/esusu-engine/internal/apperr"
	"github.com/esusuhq/esusu-engine/internal/models"
)

func TestPenaltySplit(t *testing.T) {
	cases := []struct {
		total   int64
		percent int
		penalty int64
		refund  int64
	}{
		{100_000, 10, 10_000, 90_000},
		{0, 10, 0, 0},
		{100_000, 0, 0, 100_000},
		{100_000, 100, 100_000, 0},
		// Integer division floors the penalty; the refund absorbs the rest.
		{1_005, 10, 100, 905},
		{99, 33, 32, 67},
	}
	for _, tc := range cases {
		penalty, refund := penaltySplit(tc.total, tc.percent)
		if penalty != tc.penalty || refund != tc.refund {
			t.Fatalf("penaltySplit(%d, %d) = %d/%d, want %d/%d",
				tc.total, tc.percent, penalty, refund, tc.penalty, tc.refund)
		}
		if penalty+refund != tc.total {
			t.Fatalf("penaltySplit(%d, %d): %d + %d != total", tc.total, tc.percent, penalty, refund)
		}
	}
}

// optOutFixture enrolls a member in an active cycle with months 1 and 2
// settled on time: total paid 100,000 at the 50K tier.
func optOutFixture(t *testing.T) (*fixture, *models.User, *models.User, *models.Participation, *models.ContributionCycle) {
	t.Helper()
	f := newFixture(t)
	admin := f.admin("Admin")
	user := f.user("Amina Bello")
	cycle := f.cycle(models.CycleActive, 20)
	p := f.join(user, cycle, models.Pack50K)
	f.generatePayments(admin, cycle)

	f.now = time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC)
	payments := f.payments(p.ID)
	for _, payment := range payments[:2] {
		if _, err := f.svc.MarkPaymentAsPaid(f.ctx, user.ID, payment.ID); err != nil {
			t.Fatalf("settle month %d: %v", payment.MonthNumber, err)
		}
	}
	return f, admin, user, p, cycle
}

func TestOptOutInfoFigures(t *testing.T) {
	f, _, user, _, _ := optOutFixture(t)

	info, err := f.svc.GetOptOutInfo(f.ctx, user.ID)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if !info.Eligible {
		t.Fatalf("not eligible: %s", info.Reason)
	}
	if info.TotalPaid != 100_000 {
		t.Fatalf("total paid = %d, want 100000", info.TotalPaid)
	}
	if info.PenaltyPercent != 10 {
		t.Fatalf("penalty percent = %d, want default 10", info.PenaltyPercent)
	}
	if info.PenaltyAmount != 10_000 || info.RefundAmount != 90_000 {
		t.Fatalf("split = %d/%d, want 10000/90000", info.PenaltyAmount, info.RefundAmount)
	}
}

func TestOptOutInfoNoActiveCycle(t *testing.T) {
	f := newFixture(t)
	user := f.user("Amina Bello")

	info, err := f.svc.GetOptOutInfo(f.ctx, user.ID)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.Eligible {
		t.Fatal("user with no active cycle must not be eligible")
	}
	if info.Reason == "" {
		t.Fatal("ineligibility must carry a reason")
	}
}

func TestSubmitOptOutShortReason(t *testing.T) {
	f, _, user, _, cycle := optOutFixture(t)

	_, err := f.svc.SubmitOptOutRequest(f.ctx, user.ID, cycle.ID, "  nope  ")
	requireKind(t, err, apperr.Validation)
}

func TestSubmitOptOutFreezesFigures(t *testing.T) {
	f, _, user, p, cycle := optOutFixture(t)

	request, err := f.svc.SubmitOptOutRequest(f.ctx, user.ID, cycle.ID, "Relocating abroad next month")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if request.TotalPaid != 100_000 || request.PenaltyAmount != 10_000 || request.RefundAmount != 90_000 {
		t.Fatalf("frozen figures = %d/%d/%d", request.TotalPaid, request.PenaltyAmount, request.RefundAmount)
	}
	if request.PenaltyAmount+request.RefundAmount != request.TotalPaid {
		t.Fatal("penalty + refund must equal total paid")
	}

	// A payment settled after submission does not move the pending request.
	month3 := f.payments(p.ID)[2]
	if _, err := f.svc.MarkPaymentAsPaid(f.ctx, user.ID, month3.ID); err != nil {
		t.Fatalf("settle month 3: %v", err)
	}
	stored, err := f.repo.GetOptOutRequest(f.ctx, request.ID)
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	if stored.TotalPaid != 100_000 || stored.RefundAmount != 90_000 {
		t.Fatalf("figures moved after submission: %d/%d", stored.TotalPaid, stored.RefundAmount)
	}
}

func TestSubmitOptOutDuplicatePending(t *testing.T) {
	f, _, user, _, cycle := optOutFixture(t)

	if _, err := f.svc.SubmitOptOutRequest(f.ctx, user.ID, cycle.ID, "Relocating abroad next month"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	_, err := f.svc.SubmitOptOutRequest(f.ctx, user.ID, cycle.ID, "Changed my mind about the reason")
	requireKind(t, err, apperr.Conflict)
}

func TestCancelOptOutRequest(t *testing.T) {
	f, _, user, _, cycle := optOutFixture(t)
	stranger := f.user("Chidi Okafor")

	request, err := f.svc.SubmitOptOutRequest(f.ctx, user.ID, cycle.ID, "Relocating abroad next month")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	err = f.svc.CancelOptOutRequest(f.ctx, request.ID, stranger.ID)
	requireKind(t, err, apperr.Unauthorized)

	if err := f.svc.CancelOptOutRequest(f.ctx, request.ID, user.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	// Cancellation clears the way for a fresh request.
	if _, err := f.svc.SubmitOptOutRequest(f.ctx, user.ID, cycle.ID, "Actually I do need to leave"); err != nil {
		t.Fatalf("resubmit after cancel: %v", err)
	}
}

func TestReviewOptOutApprove(t *testing.T) {
	f, admin, user, p, cycle := optOutFixture(t)

	payout, err := f.svc.PickNumber(f.ctx, user.ID, p.ID, 8)
	if err != nil {
		t.Fatalf("pick: %v", err)
	}
	request, err := f.svc.SubmitOptOutRequest(f.ctx, user.ID, cycle.ID, "Relocating abroad next month")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	reviewed, err := f.svc.ReviewOptOutRequest(f.ctx, admin.ID, request.ID, true, "refund scheduled")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if reviewed.Status != models.OptOutApproved {
		t.Fatalf("status = %s, want APPROVED", reviewed.Status)
	}
	if reviewed.ReviewedBy == nil || *reviewed.ReviewedBy != admin.ID {
		t.Fatalf("reviewed by = %v, want %s", reviewed.ReviewedBy, admin.ID)
	}

	participation, _ := f.repo.GetParticipation(f.ctx, p.ID)
	if !participation.HasOptedOut {
		t.Fatal("participation not marked opted out")
	}
	gotUser, _ := f.repo.GetUser(f.ctx, user.ID)
	if gotUser.Status != models.UserOptedOut {
		t.Fatalf("user status = %s, want OPTED_OUT", gotUser.Status)
	}
	gotPayout, _ := f.repo.GetPayout(f.ctx, payout.ID)
	if gotPayout.Status != models.PayoutWaived {
		t.Fatalf("payout status = %s, want WAIVED", gotPayout.Status)
	}
}

func TestReviewOptOutReject(t *testing.T) {
	f, admin, user, p, cycle := optOutFixture(t)

	request, err := f.svc.SubmitOptOutRequest(f.ctx, user.ID, cycle.ID, "Relocating abroad next month")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	reviewed, err := f.svc.ReviewOptOutRequest(f.ctx, admin.ID, request.ID, false, "talk to us first")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if reviewed.Status != models.OptOutRejected {
		t.Fatalf("status = %s, want REJECTED", reviewed.Status)
	}
	if reviewed.ReviewNotes != "talk to us first" {
		t.Fatalf("notes = %q", reviewed.ReviewNotes)
	}

	// Rejection leaves everything in place.
	participation, _ := f.repo.GetParticipation(f.ctx, p.ID)
	if participation.HasOptedOut {
		t.Fatal("rejection must not mark the participation opted out")
	}
	gotUser, _ := f.repo.GetUser(f.ctx, user.ID)
	if gotUser.Status != models.UserActive {
		t.Fatalf("user status = %s, want ACTIVE", gotUser.Status)
	}

	// A rejected request is no longer pending; the member may resubmit.
	if _, err := f.svc.SubmitOptOutRequest(f.ctx, user.ID, cycle.ID, "We talked, I still need out"); err != nil {
		t.Fatalf("resubmit after rejection: %v", err)
	}
}

func TestReviewOptOutTwice(t *testing.T) {
	f, admin, user, _, cycle := optOutFixture(t)

	request, err := f.svc.SubmitOptOutRequest(f.ctx, user.ID, cycle.ID, "Relocating abroad next month")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.svc.ReviewOptOutRequest(f.ctx, admin.ID, request.ID, true, ""); err != nil {
		t.Fatalf("first review: %v", err)
	}
	_, err = f.svc.ReviewOptOutRequest(f.ctx, admin.ID, request.ID, false, "")
	requireKind(t, err, apperr.PreconditionFailed)
}

func TestSubmitOptOutAfterPayoutPaid(t *testing.T) {
	f, admin, user, p, cycle := optOutFixture(t)

	payout, err := f.svc.PickNumber(f.ctx, user.ID, p.ID, 1)
	if err != nil {
		t.Fatalf("pick: %v", err)
	}
	if _, err := f.svc.ProcessPayout(f.ctx, admin.ID, payout.ID, "TRF-2026-0100", ""); err != nil {
		t.Fatalf("process: %v", err)
	}

	_, err = f.svc.SubmitOptOutRequest(f.ctx, user.ID, cycle.ID, "Relocating abroad next month")
	requireKind(t, err, apperr.PreconditionFailed)
}
