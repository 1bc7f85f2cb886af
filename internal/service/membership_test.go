package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/esusuhq/esusu-engine/internal/apperr"
	"github.com/esusuhq/esusu-engine/internal/models"
)

func TestJoinCycleCreatesTierParticipation(t *testing.T) {
	f := newFixture(t)
	user := f.user("Amina Bello")
	cycle := f.cycle(models.CycleUpcoming, 20)

	p := f.join(user, cycle, models.Pack50K)

	if p.MonthlyAmount != 50_000 || p.TotalPayout != 500_000 || p.FineAmount != 2_500 {
		t.Fatalf("tier amounts = %d/%d/%d, want 50000/500000/2500",
			p.MonthlyAmount, p.TotalPayout, p.FineAmount)
	}
	if p.PickedNumber != nil {
		t.Fatal("fresh participation must have no picked number")
	}

	details, err := f.repo.GetBankDetails(f.ctx, p.ID)
	if err != nil {
		t.Fatalf("get bank details: %v", err)
	}
	if details == nil || details.AccountNumber != "0123456789" {
		t.Fatalf("bank details not stored with the enrollment: %+v", details)
	}
}

func TestJoinCycleTwice(t *testing.T) {
	f := newFixture(t)
	user := f.user("Amina Bello")
	cycle := f.cycle(models.CycleUpcoming, 20)
	f.join(user, cycle, models.Pack20K)

	_, err := f.svc.JoinCycle(f.ctx, user.ID, cycle.ID, models.Pack50K, bankInput())
	requireKind(t, err, apperr.Conflict)
}

func TestJoinCycleAfterRegistrationDeadline(t *testing.T) {
	f := newFixture(t)
	user := f.user("Amina Bello")
	cycle := f.cycle(models.CycleUpcoming, 20)

	f.now = time.Date(2026, 1, 30, 0, 0, 0, 0, time.UTC)
	_, err := f.svc.JoinCycle(f.ctx, user.ID, cycle.ID, models.Pack50K, bankInput())
	requireKind(t, err, apperr.PreconditionFailed)
}

func TestJoinCycleFull(t *testing.T) {
	f := newFixture(t)
	cycle := f.cycle(models.CycleUpcoming, 10)

	for i := 0; i < 10; i++ {
		f.join(f.user(fmt.Sprintf("Member %d", i)), cycle, models.Pack20K)
	}

	late := f.user("Late Member")
	_, err := f.svc.JoinCycle(f.ctx, late.ID, cycle.ID, models.Pack20K, bankInput())
	requireKind(t, err, apperr.PreconditionFailed)
}

func TestJoinCycleUnknownPackage(t *testing.T) {
	f := newFixture(t)
	user := f.user("Amina Bello")
	cycle := f.cycle(models.CycleUpcoming, 20)

	_, err := f.svc.JoinCycle(f.ctx, user.ID, cycle.ID, models.ContributionMode("PACK_75K"), bankInput())
	requireKind(t, err, apperr.Validation)
}

func TestJoinCycleBadAccountNumber(t *testing.T) {
	f := newFixture(t)
	user := f.user("Amina Bello")
	cycle := f.cycle(models.CycleUpcoming, 20)

	bank := bankInput()
	bank.AccountNumber = "12345"
	_, err := f.svc.JoinCycle(f.ctx, user.ID, cycle.ID, models.Pack50K, bank)
	requireKind(t, err, apperr.Validation)

	bank.AccountNumber = "012345678x"
	_, err = f.svc.JoinCycle(f.ctx, user.ID, cycle.ID, models.Pack50K, bank)
	requireKind(t, err, apperr.Validation)
}

func TestJoinCycleClosedStatus(t *testing.T) {
	f := newFixture(t)
	user := f.user("Amina Bello")
	cycle := f.cycle(models.CycleCompleted, 20)

	_, err := f.svc.JoinCycle(f.ctx, user.ID, cycle.ID, models.Pack50K, bankInput())
	requireKind(t, err, apperr.PreconditionFailed)
}

func TestUpdateBankDetailsOwnership(t *testing.T) {
	f := newFixture(t)
	owner := f.user("Amina Bello")
	stranger := f.user("Chidi Okafor")
	admin := f.admin("Admin")
	cycle := f.cycle(models.CycleUpcoming, 20)
	p := f.join(owner, cycle, models.Pack50K)

	next := bankInput()
	next.AccountNumber = "9876543210"

	_, err := f.svc.UpdateBankDetails(f.ctx, stranger.ID, p.ID, next)
	requireKind(t, err, apperr.Unauthorized)

	details, err := f.svc.UpdateBankDetails(f.ctx, owner.ID, p.ID, next)
	if err != nil {
		t.Fatalf("owner update: %v", err)
	}
	if details.AccountNumber != "9876543210" {
		t.Fatalf("account number = %s, want 9876543210", details.AccountNumber)
	}

	next.BankName = "Zenith"
	if _, err := f.svc.UpdateBankDetails(f.ctx, admin.ID, p.ID, next); err != nil {
		t.Fatalf("admin update: %v", err)
	}
}

func TestMyParticipations(t *testing.T) {
	f := newFixture(t)
	user := f.user("Amina Bello")
	cycle := f.cycle(models.CycleUpcoming, 20)
	f.join(user, cycle, models.Pack100K)

	list := f.svc.MyParticipations(f.ctx, user.ID)
	if len(list) != 1 {
		t.Fatalf("participations = %d, want 1", len(list))
	}
	if list[0].ContributionMode != models.Pack100K {
		t.Fatalf("mode = %s, want PACK_100K", list[0].ContributionMode)
	}
}
