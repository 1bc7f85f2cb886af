package service

import (
	"testing"
	"time"

	"github.com/esusuhq/esusu-engine/internal/apperr"
	"github.com/esusuhq/esusu-engine/internal/models"
)

func validCycleInput() CycleInput {
	return CycleInput{
		Name:                 "Ajo 2026",
		StartDate:            start,
		EndDate:              end,
		RegistrationDeadline: regClose,
		TotalSlots:           20,
		PaymentDeadlineDay:   10,
	}
}

func TestCreateCycle(t *testing.T) {
	f := newFixture(t)
	admin := f.admin("Admin")

	cycle, err := f.svc.CreateCycle(f.ctx, admin.ID, validCycleInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if cycle.Status != models.CycleUpcoming {
		t.Fatalf("status = %s, want UPCOMING", cycle.Status)
	}

	member := f.user("Member")
	_, err = f.svc.CreateCycle(f.ctx, member.ID, validCycleInput())
	requireKind(t, err, apperr.Unauthorized)
}

func TestCreateCycleValidation(t *testing.T) {
	f := newFixture(t)
	admin := f.admin("Admin")

	cases := []struct {
		name   string
		mutate func(*CycleInput)
	}{
		{"blank name", func(in *CycleInput) { in.Name = "   " }},
		{"end before start", func(in *CycleInput) { in.EndDate = in.StartDate.AddDate(0, -1, 0) }},
		{"deadline after start", func(in *CycleInput) { in.RegistrationDeadline = in.StartDate.AddDate(0, 0, 5) }},
		{"too few slots", func(in *CycleInput) { in.TotalSlots = 5 }},
		{"too many slots", func(in *CycleInput) { in.TotalSlots = 150 }},
		{"bad deadline day", func(in *CycleInput) { in.PaymentDeadlineDay = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validCycleInput()
			tc.mutate(&input)
			_, err := f.svc.CreateCycle(f.ctx, admin.ID, input)
			requireKind(t, err, apperr.Validation)
		})
	}
}

func TestUpdateCycleSlotsBelowPickedNumber(t *testing.T) {
	f := newFixture(t)
	admin := f.admin("Admin")
	user := f.user("Amina Bello")
	cycle := f.cycle(models.CycleActive, 20)
	p := f.join(user, cycle, models.Pack50K)
	if _, err := f.svc.PickNumber(f.ctx, user.ID, p.ID, 15); err != nil {
		t.Fatalf("pick: %v", err)
	}

	input := validCycleInput()
	input.TotalSlots = 5
	_, err := f.svc.UpdateCycle(f.ctx, admin.ID, cycle.ID, input)
	requireKind(t, err, apperr.PreconditionFailed)

	input.TotalSlots = 14
	_, err = f.svc.UpdateCycle(f.ctx, admin.ID, cycle.ID, input)
	requireKind(t, err, apperr.PreconditionFailed)

	// Shrinking down to the highest picked number is fine.
	input.TotalSlots = 15
	updated, err := f.svc.UpdateCycle(f.ctx, admin.ID, cycle.ID, input)
	if err != nil {
		t.Fatalf("shrink to picked: %v", err)
	}
	if updated.TotalSlots != 15 {
		t.Fatalf("slots = %d, want 15", updated.TotalSlots)
	}
}

func TestUpdateCompletedCycleRefused(t *testing.T) {
	f := newFixture(t)
	admin := f.admin("Admin")
	cycle := f.cycle(models.CycleCompleted, 20)

	_, err := f.svc.UpdateCycle(f.ctx, admin.ID, cycle.ID, validCycleInput())
	requireKind(t, err, apperr.PreconditionFailed)
}

func TestStartCycle(t *testing.T) {
	f := newFixture(t)
	admin := f.admin("Admin")
	cycle := f.cycle(models.CycleUpcoming, 20)

	if err := f.svc.StartCycle(f.ctx, admin.ID, cycle.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	got, _ := f.repo.GetCycle(f.ctx, cycle.ID)
	if got.Status != models.CycleActive {
		t.Fatalf("status = %s, want ACTIVE", got.Status)
	}

	err := f.svc.StartCycle(f.ctx, admin.ID, cycle.ID)
	requireKind(t, err, apperr.PreconditionFailed)
}

func TestCancelCycle(t *testing.T) {
	f := newFixture(t)
	admin := f.admin("Admin")

	upcoming := f.cycle(models.CycleUpcoming, 20)
	if err := f.svc.CancelCycle(f.ctx, admin.ID, upcoming.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	got, _ := f.repo.GetCycle(f.ctx, upcoming.ID)
	if got.Status != models.CycleCancelled {
		t.Fatalf("status = %s, want CANCELLED", got.Status)
	}

	active := f.cycle(models.CycleActive, 20)
	err := f.svc.CancelCycle(f.ctx, admin.ID, active.ID)
	requireKind(t, err, apperr.PreconditionFailed)
}

func TestDeleteCycle(t *testing.T) {
	f := newFixture(t)
	admin := f.admin("Admin")

	empty := f.cycle(models.CycleUpcoming, 20)
	if err := f.svc.DeleteCycle(f.ctx, admin.ID, empty.ID); err != nil {
		t.Fatalf("delete empty: %v", err)
	}

	joined := f.cycle(models.CycleUpcoming, 20)
	f.join(f.user("Amina Bello"), joined, models.Pack50K)
	err := f.svc.DeleteCycle(f.ctx, admin.ID, joined.ID)
	requireKind(t, err, apperr.PreconditionFailed)
}

// TestCloseCycle walks one enrollment through the whole cycle: the gate
// refuses while money is in flight and opens once every payment and the
// payout are settled.
func TestCloseCycle(t *testing.T) {
	f := newFixture(t)
	admin := f.admin("Admin")
	user := f.user("Amina Bello")
	cycle := f.cycle(models.CycleActive, 20)
	p := f.join(user, cycle, models.Pack50K)
	f.generatePayments(admin, cycle)
	payout, err := f.svc.PickNumber(f.ctx, user.ID, p.ID, 1)
	if err != nil {
		t.Fatalf("pick: %v", err)
	}

	err = f.svc.CloseCycle(f.ctx, admin.ID, cycle.ID)
	requireKind(t, err, apperr.PreconditionFailed)

	f.now = time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC)
	for _, payment := range f.payments(p.ID) {
		if _, err := f.svc.MarkPaymentAsPaid(f.ctx, user.ID, payment.ID); err != nil {
			t.Fatalf("settle month %d: %v", payment.MonthNumber, err)
		}
	}

	// Payments settled, payout still pending.
	err = f.svc.CloseCycle(f.ctx, admin.ID, cycle.ID)
	requireKind(t, err, apperr.PreconditionFailed)

	if _, err := f.svc.ProcessPayout(f.ctx, admin.ID, payout.ID, "TRF-2026-0200", ""); err != nil {
		t.Fatalf("process payout: %v", err)
	}

	if err := f.svc.CloseCycle(f.ctx, admin.ID, cycle.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	got, _ := f.repo.GetCycle(f.ctx, cycle.ID)
	if got.Status != models.CycleCompleted {
		t.Fatalf("status = %s, want COMPLETED", got.Status)
	}

	err = f.svc.CloseCycle(f.ctx, admin.ID, cycle.ID)
	requireKind(t, err, apperr.PreconditionFailed)
}

func TestListCycles(t *testing.T) {
	f := newFixture(t)
	f.cycle(models.CycleUpcoming, 20)
	f.cycle(models.CycleActive, 20)
	f.cycle(models.CycleCompleted, 20)

	open := f.svc.ListCycles(f.ctx, models.CycleUpcoming, models.CycleActive)
	if len(open) != 2 {
		t.Fatalf("open cycles = %d, want 2", len(open))
	}
	all := f.svc.ListCycles(f.ctx)
	if len(all) != 3 {
		t.Fatalf("all cycles = %d, want 3", len(all))
	}
}
