package service

import (
	"testing"
	"time"

	"github.com/esusuhq/esusu-engine/internal/apperr"
	"github.com/esusuhq/esusu-engine/internal/models"
)

// reportsFixture builds a cycle with two 50K members: one fully current
// (months 1 and 2 settled on time, payout processed), one who settled
// month 1 late with the fine and still owes month 2.
func reportsFixture(t *testing.T) (*fixture, *models.User, *models.Participation, *models.Participation, *models.ContributionCycle) {
	t.Helper()
	f := newFixture(t)
	admin := f.admin("Admin")
	current := f.user("Amina Bello")
	late := f.user("Chidi Okafor")
	cycle := f.cycle(models.CycleActive, 20)
	p1 := f.join(current, cycle, models.Pack50K)
	p2 := f.join(late, cycle, models.Pack50K)
	f.generatePayments(admin, cycle)

	f.now = time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC)
	for _, payment := range f.payments(p1.ID)[:2] {
		if _, err := f.svc.MarkPaymentAsPaid(f.ctx, current.ID, payment.ID); err != nil {
			t.Fatalf("settle: %v", err)
		}
	}
	payout, err := f.svc.PickNumber(f.ctx, current.ID, p1.ID, 1)
	if err != nil {
		t.Fatalf("pick: %v", err)
	}
	if _, err := f.svc.ProcessPayout(f.ctx, admin.ID, payout.ID, "TRF-2026-0300", ""); err != nil {
		t.Fatalf("process payout: %v", err)
	}

	// Month 1 settled five days past the Feb 10 deadline.
	f.now = time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)
	month1 := f.payments(p2.ID)[0]
	if _, err := f.svc.MarkPaymentAsPaid(f.ctx, late.ID, month1.ID); err != nil {
		t.Fatalf("late settle: %v", err)
	}

	return f, admin, p1, p2, cycle
}

func TestCycleFinancialSummary(t *testing.T) {
	f, admin, _, _, cycle := reportsFixture(t)

	summary, err := f.svc.CycleFinancialSummary(f.ctx, admin.ID, cycle.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	// Two members, 50,000 a month for twelve months.
	if summary.Expected != 1_200_000 {
		t.Fatalf("expected = %d, want 1200000", summary.Expected)
	}
	// 100,000 on time plus 52,500 with the late fine.
	if summary.Collected != 152_500 {
		t.Fatalf("collected = %d, want 152500", summary.Collected)
	}
	// 21 pending rows of 50,000 each.
	if summary.Outstanding != 1_050_000 {
		t.Fatalf("outstanding = %d, want 1050000", summary.Outstanding)
	}
	if summary.FinesCollected != 2_500 {
		t.Fatalf("fines = %d, want 2500", summary.FinesCollected)
	}
	if summary.PayoutsPaid != 500_000 {
		t.Fatalf("payouts paid = %d, want 500000", summary.PayoutsPaid)
	}
	if summary.PayoutsPending != 0 {
		t.Fatalf("payouts pending = %d, want 0", summary.PayoutsPending)
	}
}

func TestDefaulters(t *testing.T) {
	f, admin, _, p2, cycle := reportsFixture(t)

	// Before month 2 falls due nobody is in default.
	f.now = time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	defaulters, err := f.svc.Defaulters(f.ctx, admin.ID, cycle.ID)
	if err != nil {
		t.Fatalf("defaulters: %v", err)
	}
	if len(defaulters) != 0 {
		t.Fatalf("defaulters before due date = %d, want 0", len(defaulters))
	}

	f.now = time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	defaulters, err = f.svc.Defaulters(f.ctx, admin.ID, cycle.ID)
	if err != nil {
		t.Fatalf("defaulters: %v", err)
	}
	if len(defaulters) != 1 {
		t.Fatalf("defaulters = %d, want just the late member", len(defaulters))
	}
	d := defaulters[0]
	if d.ParticipationID != p2.ID {
		t.Fatalf("defaulter = %s, want %s", d.ParticipationID, p2.ID)
	}
	if len(d.OverdueMonths) != 1 || d.OverdueMonths[0] != 2 {
		t.Fatalf("overdue months = %v, want [2]", d.OverdueMonths)
	}
	// Contribution plus the tier fine.
	if d.AmountOwed != 52_500 {
		t.Fatalf("amount owed = %d, want 52500", d.AmountOwed)
	}
	if d.FullName != "Chidi Okafor" {
		t.Fatalf("full name = %q", d.FullName)
	}
}

func TestCollectionTrend(t *testing.T) {
	f, admin, _, _, cycle := reportsFixture(t)

	trend, err := f.svc.CollectionTrend(f.ctx, admin.ID, cycle.ID)
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if len(trend) != 2 {
		t.Fatalf("trend rows = %d, want 2", len(trend))
	}
	if trend[0].MonthNumber != 1 || trend[0].Collected != 102_500 || trend[0].Payments != 2 {
		t.Fatalf("month 1 = %+v", trend[0])
	}
	if trend[1].MonthNumber != 2 || trend[1].Collected != 50_000 || trend[1].Payments != 1 {
		t.Fatalf("month 2 = %+v", trend[1])
	}
}

func TestReportsRequireAdmin(t *testing.T) {
	f := newFixture(t)
	member := f.user("Amina Bello")
	cycle := f.cycle(models.CycleActive, 20)

	_, err := f.svc.CycleFinancialSummary(f.ctx, member.ID, cycle.ID)
	requireKind(t, err, apperr.Unauthorized)
	_, err = f.svc.Defaulters(f.ctx, member.ID, cycle.ID)
	requireKind(t, err, apperr.Unauthorized)
	_, err = f.svc.CollectionTrend(f.ctx, member.ID, cycle.ID)
	requireKind(t, err, apperr.Unauthorized)
}
