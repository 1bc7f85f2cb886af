package service

import (
	"context"
	"errors"
	"time"

	"github.com/esusuhq/esusu-engine/internal/apperr"
	"github.com/esusuhq/esusu-engine/internal/models"
	"github.com/esusuhq/esusu-engine/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notifier pushes short operational messages to the admin channel.
// Best-effort: failures are logged, never propagated.
type Notifier interface {
	NotifyAdmins(ctx context.Context, text string)
}

type noopNotifier struct{}

func (noopNotifier) NotifyAdmins(ctx context.Context, text string) {}

type Service struct {
	repo     Repository
	logger   *utils.Logger
	notifier Notifier
	now      func() time.Time
}

type Repository interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User, tx *gorm.DB) error
	UpdateUserStatus(ctx context.Context, id uuid.UUID, status models.UserStatus, tx *gorm.DB) error
	SetUserAdmin(ctx context.Context, id uuid.UUID, isAdmin bool) error
	ListUsers(ctx context.Context) ([]*models.User, error)

	CreateCycle(ctx context.Context, cycle *models.ContributionCycle) error
	GetCycle(ctx context.Context, id uuid.UUID) (*models.ContributionCycle, error)
	UpdateCycle(ctx context.Context, cycle *models.ContributionCycle) error
	UpdateCycleStatus(ctx context.Context, id uuid.UUID, status models.CycleStatus) error
	DeleteCycle(ctx context.Context, id uuid.UUID) error
	ListCycles(ctx context.Context, statuses ...models.CycleStatus) ([]*models.ContributionCycle, error)
	CountParticipants(ctx context.Context, cycleID uuid.UUID) (int64, error)
	MaxPickedNumber(ctx context.Context, cycleID uuid.UUID) (int, error)

	CreateParticipation(ctx context.Context, participation *models.Participation, tx *gorm.DB) error
	GetParticipation(ctx context.Context, id uuid.UUID) (*models.Participation, error)
	GetActiveParticipation(ctx context.Context, userID, cycleID uuid.UUID) (*models.Participation, error)
	GetActiveCycleParticipation(ctx context.Context, userID uuid.UUID) (*models.Participation, error)
	GetParticipationByNumber(ctx context.Context, cycleID uuid.UUID, number int) (*models.Participation, error)
	ListParticipationsByCycle(ctx context.Context, cycleID uuid.UUID, includeOptedOut bool) ([]*models.Participation, error)
	ListParticipationsByUser(ctx context.Context, userID uuid.UUID) ([]*models.Participation, error)
	ListRemovableParticipations(ctx context.Context, userID uuid.UUID) ([]*models.Participation, error)
	UpdateParticipation(ctx context.Context, participation *models.Participation, tx *gorm.DB) error
	SetParticipationOptedOut(ctx context.Context, id uuid.UUID, tx *gorm.DB) error
	DeleteParticipation(ctx context.Context, id uuid.UUID, tx *gorm.DB) error
	CreateBankDetails(ctx context.Context, details *models.BankDetails, tx *gorm.DB) error
	GetBankDetails(ctx context.Context, participationID uuid.UUID) (*models.BankDetails, error)
	UpdateBankDetails(ctx context.Context, details *models.BankDetails) error

	CountPaymentsByCycle(ctx context.Context, cycleID uuid.UUID) (int64, error)
	CreatePayments(ctx context.Context, payments []*models.Payment, tx *gorm.DB) error
	GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	UpdatePayment(ctx context.Context, payment *models.Payment, tx *gorm.DB) error
	ListPaymentsByParticipation(ctx context.Context, participationID uuid.UUID) ([]*models.Payment, error)
	ListPaymentsByCycle(ctx context.Context, cycleID uuid.UUID) ([]*models.Payment, error)
	ListPaymentsAwaitingVerification(ctx context.Context) ([]*models.Payment, error)
	SumPaidByParticipation(ctx context.Context, participationID uuid.UUID) (int64, error)
	CountPendingPaymentsByCycle(ctx context.Context, cycleID uuid.UUID) (int64, error)

	CreatePayout(ctx context.Context, payout *models.Payout, tx *gorm.DB) error
	GetPayout(ctx context.Context, id uuid.UUID) (*models.Payout, error)
	GetPendingPayoutByParticipation(ctx context.Context, participationID uuid.UUID) (*models.Payout, error)
	GetPayoutByParticipation(ctx context.Context, participationID uuid.UUID) (*models.Payout, error)
	UpdatePayout(ctx context.Context, payout *models.Payout, tx *gorm.DB) error
	ListPayoutsByCycle(ctx context.Context, cycleID uuid.UUID) ([]*models.Payout, error)
	ListPendingPayouts(ctx context.Context) ([]*models.Payout, error)
	ListOverduePayouts(ctx context.Context, now time.Time) ([]*models.Payout, error)
	CountPendingPayoutsByCycle(ctx context.Context, cycleID uuid.UUID) (int64, error)

	CreateOptOutRequest(ctx context.Context, request *models.OptOutRequest) error
	GetOptOutRequest(ctx context.Context, id uuid.UUID) (*models.OptOutRequest, error)
	GetPendingOptOutRequest(ctx context.Context, userID, cycleID uuid.UUID) (*models.OptOutRequest, error)
	UpdateOptOutRequest(ctx context.Context, request *models.OptOutRequest, tx *gorm.DB) error
	DeleteOptOutRequest(ctx context.Context, id uuid.UUID) error
	ListOptOutRequests(ctx context.Context, statuses ...models.OptOutStatus) ([]*models.OptOutRequest, error)
	ListOptOutRequestsByUser(ctx context.Context, userID uuid.UUID) ([]*models.OptOutRequest, error)

	GetNumberPickByUser(ctx context.Context, userID uuid.UUID) (*models.NumberPick, error)
	GetNumberPickByNumber(ctx context.Context, number int) (*models.NumberPick, error)
	CreateNumberPick(ctx context.Context, pick *models.NumberPick) error
	ListNumberPicks(ctx context.Context) ([]*models.NumberPick, error)
	DeleteAllNumberPicks(ctx context.Context) error
	MaxPoolNumber(ctx context.Context) (int, error)

	GetSettings(ctx context.Context) (*models.Settings, error)
	UpdateSettings(ctx context.Context, settings *models.Settings) error

	SumExpectedByCycle(ctx context.Context, cycleID uuid.UUID) (int64, error)
	SumCollectedByCycle(ctx context.Context, cycleID uuid.UUID) (int64, error)
	SumOutstandingByCycle(ctx context.Context, cycleID uuid.UUID) (int64, error)
	SumFinesCollectedByCycle(ctx context.Context, cycleID uuid.UUID) (int64, error)
	SumPayoutsByCycle(ctx context.Context, cycleID uuid.UUID, status models.PayoutStatus) (int64, error)
	MonthlyCollections(ctx context.Context, cycleID uuid.UUID) ([]models.MonthlyCollection, error)
	ListOverduePendingPayments(ctx context.Context, cycleID uuid.UUID, now time.Time) ([]*models.Payment, error)

	BeginTransaction(ctx context.Context) (*gorm.DB, error)
	Commit(tx *gorm.DB) error
	Rollback(tx *gorm.DB)
}

func NewService(repo Repository, logger *utils.Logger, notifier Notifier) *Service {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Service{
		repo:     repo,
		logger:   logger,
		notifier: notifier,
		now:      time.Now,
	}
}

// requireAdmin is the one authorization gate shared by every privileged
// operation. It must run before any mutation.
func (s *Service) requireAdmin(ctx context.Context, adminID uuid.UUID) (*models.User, error) {
	admin, err := s.repo.GetUser(ctx, adminID)
	if err != nil {
		return nil, s.unexpected("requireAdmin", err)
	}
	if admin == nil || !admin.IsAdmin {
		return nil, apperr.New(apperr.Unauthorized, "You are not authorized to perform this action")
	}
	return admin, nil
}

// unexpected logs the store fault and returns the generic failure the
// caller is allowed to see.
func (s *Service) unexpected(op string, err error) error {
	s.logger.Errorf("%s: %v", op, err)
	return apperr.New(apperr.Unexpected, "Something went wrong. Please try again.")
}

// conflictOr maps a lost uniqueness race to Conflict; anything else is an
// unexpected store fault.
func (s *Service) conflictOr(op string, err error, message string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.New(apperr.Conflict, message)
	}
	return s.unexpected(op, err)
}
