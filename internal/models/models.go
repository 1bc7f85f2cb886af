package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserStatus string

const (
	UserActive    UserStatus = "ACTIVE"
	UserSuspended UserStatus = "SUSPENDED"
	UserOptedOut  UserStatus = "OPTED_OUT"
	UserDeleted   UserStatus = "DELETED"
)

type CycleStatus string

const (
	CycleUpcoming  CycleStatus = "UPCOMING"
	CycleActive    CycleStatus = "ACTIVE"
	CycleCompleted CycleStatus = "COMPLETED"
	CycleCancelled CycleStatus = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentWaived  PaymentStatus = "WAIVED"
)

type PayoutStatus string

const (
	PayoutPending PayoutStatus = "PENDING"
	PayoutPaid    PayoutStatus = "PAID"
	PayoutWaived  PayoutStatus = "WAIVED"
)

type OptOutStatus string

const (
	OptOutPendingApproval OptOutStatus = "PENDING_APPROVAL"
	OptOutApproved        OptOutStatus = "APPROVED"
	OptOutRejected        OptOutStatus = "REJECTED"
)

type ContributionMode string

const (
	Pack20K  ContributionMode = "PACK_20K"
	Pack50K  ContributionMode = "PACK_50K"
	Pack100K ContributionMode = "PACK_100K"
)

// Package is a fixed contribution tier. All amounts are whole Naira.
type Package struct {
	MonthlyAmount int64
	TotalPayout   int64
	FineAmount    int64
}

var packages = map[ContributionMode]Package{
	Pack20K:  {MonthlyAmount: 20_000, TotalPayout: 200_000, FineAmount: 1_000},
	Pack50K:  {MonthlyAmount: 50_000, TotalPayout: 500_000, FineAmount: 2_500},
	Pack100K: {MonthlyAmount: 100_000, TotalPayout: 1_000_000, FineAmount: 5_000},
}

func PackageFor(mode ContributionMode) (Package, bool) {
	pkg, ok := packages[mode]
	return pkg, ok
}

type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	FullName     string     `gorm:"not null" json:"full_name"`
	Phone        string     `gorm:"uniqueIndex;not null" json:"phone"`
	Email        *string    `json:"email,omitempty"`
	PasswordHash string     `gorm:"not null" json:"-"`
	IsAdmin      bool       `gorm:"default:false" json:"is_admin"`
	Status       UserStatus `gorm:"default:ACTIVE" json:"status"`
	CreatedAt    time.Time  `json:"created_at"`

	Participations []Participation `gorm:"foreignKey:UserID" json:"participations,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

type ContributionCycle struct {
	ID                     uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	Name                   string      `gorm:"not null" json:"name"`
	StartDate              time.Time   `gorm:"not null" json:"start_date"`
	EndDate                time.Time   `gorm:"not null" json:"end_date"`
	RegistrationDeadline   time.Time   `gorm:"not null" json:"registration_deadline"`
	NumberPickingStartDate *time.Time  `json:"number_picking_start_date,omitempty"`
	Status                 CycleStatus `gorm:"default:UPCOMING" json:"status"`
	TotalSlots             int         `gorm:"not null" json:"total_slots"`
	PaymentDeadlineDay     int         `gorm:"not null" json:"payment_deadline_day"`
	CreatedAt              time.Time   `json:"created_at"`

	Participations []Participation `gorm:"foreignKey:CycleID" json:"participations,omitempty"`
}

func (c *ContributionCycle) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type Participation struct {
	ID               uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID        `gorm:"type:uuid;uniqueIndex:idx_user_cycle" json:"user_id"`
	CycleID          uuid.UUID        `gorm:"type:uuid;uniqueIndex:idx_user_cycle;uniqueIndex:idx_cycle_number" json:"cycle_id"`
	ContributionMode ContributionMode `gorm:"not null" json:"contribution_mode"`
	MonthlyAmount    int64            `gorm:"not null" json:"monthly_amount"`
	TotalPayout      int64            `gorm:"not null" json:"total_payout"`
	FineAmount       int64            `gorm:"not null" json:"fine_amount"`
	// NULLs stay distinct on the composite index, so unpicked rows never collide.
	PickedNumber *int      `gorm:"uniqueIndex:idx_cycle_number" json:"picked_number,omitempty"`
	HasOptedOut  bool      `gorm:"default:false" json:"has_opted_out"`
	RegisteredAt time.Time `json:"registered_at"`

	User        *User              `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Cycle       *ContributionCycle `gorm:"foreignKey:CycleID" json:"cycle,omitempty"`
	BankDetails *BankDetails       `gorm:"foreignKey:ParticipationID" json:"bank_details,omitempty"`
	Payments    []Payment          `gorm:"foreignKey:ParticipationID" json:"payments,omitempty"`
	Payouts     []Payout           `gorm:"foreignKey:ParticipationID" json:"payouts,omitempty"`
}

func (p *Participation) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

type BankDetails struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ParticipationID uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"participation_id"`
	BankName        string    `gorm:"not null" json:"bank_name"`
	AccountNumber   string    `gorm:"not null" json:"account_number"`
	AccountName     string    `gorm:"not null" json:"account_name"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (b *BankDetails) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

type Payment struct {
	ID              uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	ParticipationID uuid.UUID     `gorm:"type:uuid;uniqueIndex:idx_participation_month" json:"participation_id"`
	CycleID         uuid.UUID     `gorm:"type:uuid;index" json:"cycle_id"`
	MonthNumber     int           `gorm:"uniqueIndex:idx_participation_month" json:"month_number"`
	Amount          int64         `gorm:"not null" json:"amount"`
	DueDate         time.Time     `gorm:"not null" json:"due_date"`
	Status          PaymentStatus `gorm:"default:PENDING" json:"status"`
	PaidAmount      int64         `gorm:"default:0" json:"paid_amount"`
	PaidAt          *time.Time    `json:"paid_at,omitempty"`
	HasFine         bool          `gorm:"default:false" json:"has_fine"`
	FineAmount      int64         `gorm:"default:0" json:"fine_amount"`
	FinePaid        bool          `gorm:"default:false" json:"fine_paid"`
	ProofOfPayment  *string       `json:"proof_of_payment,omitempty"`
	VerifiedBy      *uuid.UUID    `gorm:"type:uuid" json:"verified_by,omitempty"`
	VerifiedAt      *time.Time    `json:"verified_at,omitempty"`
	Notes           string        `json:"notes,omitempty"`

	Participation *Participation `gorm:"foreignKey:ParticipationID" json:"participation,omitempty"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// IsOverdue is the single source of the overdue rule. Every consumer
// (fine surcharge, defaulter lists, reporting) goes through it.
func (p *Payment) IsOverdue(now time.Time) bool {
	return p.Status == PaymentPending && now.After(p.DueDate)
}

type Payout struct {
	ID                uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	ParticipationID   uuid.UUID    `gorm:"type:uuid;index" json:"participation_id"`
	CycleID           uuid.UUID    `gorm:"type:uuid;index" json:"cycle_id"`
	ScheduledMonth    int          `gorm:"not null" json:"scheduled_month"`
	ScheduledDate     time.Time    `gorm:"not null" json:"scheduled_date"`
	Amount            int64        `gorm:"not null" json:"amount"`
	Status            PayoutStatus `gorm:"default:PENDING" json:"status"`
	TransferReference *string      `json:"transfer_reference,omitempty"`
	ProcessedBy       *uuid.UUID   `gorm:"type:uuid" json:"processed_by,omitempty"`
	PaidAt            *time.Time   `json:"paid_at,omitempty"`
	Notes             string       `json:"notes,omitempty"`

	Participation *Participation `gorm:"foreignKey:ParticipationID" json:"participation,omitempty"`
}

func (p *Payout) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

type OptOutRequest struct {
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID    `gorm:"type:uuid;index" json:"user_id"`
	CycleID       uuid.UUID    `gorm:"type:uuid;index" json:"cycle_id"`
	Reason        string       `gorm:"not null" json:"reason"`
	TotalPaid     int64        `gorm:"not null" json:"total_paid"`
	PenaltyAmount int64        `gorm:"not null" json:"penalty_amount"`
	RefundAmount  int64        `gorm:"not null" json:"refund_amount"`
	Status        OptOutStatus `gorm:"default:PENDING_APPROVAL" json:"status"`
	RequestedAt   time.Time    `json:"requested_at"`
	ReviewedAt    *time.Time   `json:"reviewed_at,omitempty"`
	ReviewedBy    *uuid.UUID   `gorm:"type:uuid" json:"reviewed_by,omitempty"`
	ReviewNotes   string       `json:"review_notes,omitempty"`

	User  *User              `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Cycle *ContributionCycle `gorm:"foreignKey:CycleID" json:"cycle,omitempty"`
}

func (o *OptOutRequest) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// NumberPick is the standalone single-pool picking game, separate from
// per-cycle payout positions.
type NumberPick struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID   uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"user_id"`
	Number   int       `gorm:"uniqueIndex" json:"number"`
	PickedAt time.Time `json:"picked_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (n *NumberPick) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// Settings is a single-row table (id fixed at 1), re-read on every
// operation that needs it so concurrent admin edits are always seen.
type Settings struct {
	ID             int       `gorm:"primaryKey" json:"id"`
	PenaltyPercent int       `gorm:"default:10" json:"penalty_percent"`
	TotalNumbers   int       `gorm:"default:100" json:"total_numbers"`
	UpdatedAt      time.Time `json:"updated_at"`
}

const SettingsRowID = 1

// Reporting rollups. Not persisted; scanned straight from aggregate queries
// or assembled by the service.

type MonthlyCollection struct {
	MonthNumber int   `json:"month_number"`
	Collected   int64 `json:"collected"`
	Payments    int   `json:"payments"`
}

type CycleFinancialSummary struct {
	CycleID        uuid.UUID `json:"cycle_id"`
	Expected       int64     `json:"expected"`
	Collected      int64     `json:"collected"`
	Outstanding    int64     `json:"outstanding"`
	FinesCollected int64     `json:"fines_collected"`
	PayoutsPaid    int64     `json:"payouts_paid"`
	PayoutsPending int64     `json:"payouts_pending"`
}

type Defaulter struct {
	ParticipationID uuid.UUID `json:"participation_id"`
	UserID          uuid.UUID `json:"user_id"`
	FullName        string    `json:"full_name"`
	Phone           string    `json:"phone"`
	OverdueMonths   []int     `json:"overdue_months"`
	AmountOwed      int64     `json:"amount_owed"`
}
