package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/esusuhq/esusu-engine/db"
	"github.com/esusuhq/esusu-engine/internal/apperr"
	"github.com/esusuhq/esusu-engine/internal/models"
	"github.com/esusuhq/esusu-engine/internal/repository"
	"github.com/esusuhq/esusu-engine/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var (
	testSeq  atomic.Int64
	baseNow  = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	regClose = time.Date(2026, 1, 25, 0, 0, 0, 0, time.UTC)
	start    = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end      = time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
)

type fixture struct {
	t    *testing.T
	db   *gorm.DB
	repo *repository.Repository
	svc  *Service
	ctx  context.Context
	now  time.Time
}

func testLogger() *utils.Logger {
	logger := utils.InitLogger()
	logger.SetOutput(io.Discard)
	return logger
}

// newFixture wires the service against an in-memory store migrated the
// same way production is. Each test gets its own database; svc.now reads
// f.now so tests control the clock.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:svc%d?mode=memory&cache=shared", testSeq.Add(1))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	logger := testLogger()
	if err := db.Migrate(gdb, true, logger); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	repo := repository.NewRepository(gdb, logger)
	f := &fixture{
		t:    t,
		db:   gdb,
		repo: repo,
		svc:  NewService(repo, logger, nil),
		ctx:  context.Background(),
		now:  baseNow,
	}
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) user(name string) *models.User {
	f.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("hash password: %v", err)
	}
	u := &models.User{
		FullName:     name,
		Phone:        fmt.Sprintf("080%08d", testSeq.Add(1)),
		PasswordHash: string(hash),
		Status:       models.UserActive,
	}
	if err := f.repo.CreateUser(f.ctx, u); err != nil {
		f.t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

func (f *fixture) admin(name string) *models.User {
	f.t.Helper()
	u := f.user(name)
	if err := f.repo.SetUserAdmin(f.ctx, u.ID, true); err != nil {
		f.t.Fatalf("promote %s: %v", name, err)
	}
	u.IsAdmin = true
	return u
}

// cycle creates a twelve-month cycle: Feb 2026 through Jan 2027,
// registration closing Jan 25, payments due on the 10th.
func (f *fixture) cycle(status models.CycleStatus, slots int) *models.ContributionCycle {
	f.t.Helper()
	c := &models.ContributionCycle{
		Name:                 fmt.Sprintf("Ajo %d", testSeq.Add(1)),
		StartDate:            start,
		EndDate:              end,
		RegistrationDeadline: regClose,
		Status:               status,
		TotalSlots:           slots,
		PaymentDeadlineDay:   10,
	}
	if err := f.repo.CreateCycle(f.ctx, c); err != nil {
		f.t.Fatalf("create cycle: %v", err)
	}
	return c
}

func bankInput() BankDetailsInput {
	return BankDetailsInput{
		BankName:      "GTBank",
		AccountNumber: "0123456789",
		AccountName:   "Test Account",
	}
}

func (f *fixture) join(u *models.User, c *models.ContributionCycle, mode models.ContributionMode) *models.Participation {
	f.t.Helper()
	p, err := f.svc.JoinCycle(f.ctx, u.ID, c.ID, mode, bankInput())
	if err != nil {
		f.t.Fatalf("join cycle: %v", err)
	}
	return p
}

func (f *fixture) generatePayments(admin *models.User, c *models.ContributionCycle) {
	f.t.Helper()
	if _, err := f.svc.GenerateCyclePayments(f.ctx, admin.ID, c.ID); err != nil {
		f.t.Fatalf("generate payments: %v", err)
	}
}

func (f *fixture) payments(participationID uuid.UUID) []*models.Payment {
	f.t.Helper()
	payments, err := f.repo.ListPaymentsByParticipation(f.ctx, participationID)
	if err != nil {
		f.t.Fatalf("list payments: %v", err)
	}
	return payments
}

func requireKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperr.Error, got %T: %v", err, err)
	}
	if appErr.Kind != kind {
		t.Fatalf("expected %s, got %s (%s)", kind, appErr.Kind, appErr.Message)
	}
}
