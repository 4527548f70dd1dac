package reminder

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"loan-agreement-engine/internal/pkg/apperrors"
)

// GraceDays is how far past its due date a row stays eligible, so missed
// notifications are caught up.
const GraceDays = 30

type Kind string

const (
	KindDebt        Kind = "debt"
	KindInstallment Kind = "installment"
)

const (
	debtJobPrefix        = "debt_"
	installmentJobPrefix = "inst_"
)

type DebtStatus string

const (
	DebtPending DebtStatus = "pending"
	DebtPaid    DebtStatus = "paid"
)

type Debt struct {
	ID           int64
	OwnerID      int64
	DebtorName   string
	DebtorPhone  string
	Amount       int64
	DueDate      time.Time
	Status       DebtStatus
	ReminderSent bool
	ReminderTime *time.Time
	CreatedAt    time.Time
}

// Policy holds the externally owned reminder settings. The engine only reads it.
type Policy struct {
	DaysBeforeDue            int
	InstallmentDaysBeforeDue int
	CheckIntervalHours       int
	BatchLimit               int
}

func (p Policy) Validate() error {
	if p.DaysBeforeDue < 0 || p.InstallmentDaysBeforeDue < 0 {
		return fmt.Errorf("%w: daysBeforeDue must not be negative", apperrors.ErrInvalidArgument)
	}
	if p.CheckIntervalHours <= 0 {
		return fmt.Errorf("%w: checkIntervalHours must be positive", apperrors.ErrInvalidArgument)
	}
	if p.BatchLimit <= 0 {
		return fmt.Errorf("%w: batchLimit must be positive", apperrors.ErrInvalidArgument)
	}
	return nil
}

// Candidate is a pending, unreminded row inside the query window.
type Candidate struct {
	Kind      Kind
	RefID     int64
	Recipient string
	Name      string
	Amount    int64
	DueDate   time.Time
}

// Job is a reminder the dispatcher should deliver.
type Job struct {
	ID        string
	Kind      Kind
	RefID     int64
	Recipient string
	Name      string
	Amount    int64
	DueDate   time.Time
	DaysUntil int
}

func JobID(kind Kind, refID int64) string {
	if kind == KindDebt {
		return debtJobPrefix + strconv.FormatInt(refID, 10)
	}
	return installmentJobPrefix + strconv.FormatInt(refID, 10)
}

// ParseJobID accepts "debt_<id>", "inst_<id>" or a bare installment id.
func ParseJobID(id string) (Kind, int64, error) {
	kind, raw := KindInstallment, strings.TrimSpace(id)
	switch {
	case strings.HasPrefix(raw, debtJobPrefix):
		kind, raw = KindDebt, strings.TrimPrefix(raw, debtJobPrefix)
	case strings.HasPrefix(raw, installmentJobPrefix):
		raw = strings.TrimPrefix(raw, installmentJobPrefix)
	}
	refID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || refID <= 0 {
		return "", 0, fmt.Errorf("%w: malformed reminder job id %q", apperrors.ErrInvalidArgument, id)
	}
	return kind, refID, nil
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween counts whole calendar days from a to b.
func daysBetween(a, b time.Time) int {
	return int(dateOf(b).Sub(dateOf(a)).Hours() / 24)
}
