package agreement

import (
	"fmt"
	"strings"
	"time"

	"loan-agreement-engine/internal/domain/affordability"
	"loan-agreement-engine/internal/pkg/apperrors"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

type IncomeSource string

const (
	IncomeSalary   IncomeSource = "GAJI"
	IncomeBusiness IncomeSource = "BISNIS"
	IncomeOther    IncomeSource = "LAINNYA"
)

func ParseIncomeSource(s string) (IncomeSource, bool) {
	switch src := IncomeSource(strings.ToUpper(strings.TrimSpace(s))); src {
	case IncomeSalary, IncomeBusiness, IncomeOther:
		return src, true
	default:
		return "", false
	}
}

const (
	MinInstallmentCount = affordability.MinMonths
	MaxInstallmentCount = affordability.MaxMonths
)

// transitions lists every allowed status change. Completion is only ever
// applied by the ledger.
var transitions = map[Status][]Status{
	StatusDraft:  {StatusActive, StatusCancelled},
	StatusActive: {StatusCancelled, StatusCompleted},
}

type Agreement struct {
	ID                int64
	LenderID          int64
	BorrowerName      string
	BorrowerPhone     string
	TotalAmount       int64
	IncomeSource      IncomeSource
	MonthlyIncome     *int64
	OtherDebts        int64
	InstallmentAmount int64
	InstallmentCount  int
	PaymentDay        int
	FirstPaymentDate  *time.Time
	InterestRate      float64
	Status            Status
	CreatedAt         time.Time
	SignedAt          *time.Time
	Installments      []Installment
}

func (a *Agreement) CanTransitionTo(to Status) bool {
	for _, s := range transitions[a.Status] {
		if s == to {
			return true
		}
	}
	return false
}

// transition validates and applies a status change in memory.
func (a *Agreement) transition(to Status) error {
	if !a.CanTransitionTo(to) {
		return apperrors.NewTransitionError("agreement", a.ID, string(a.Status), string(to))
	}
	a.Status = to
	return nil
}

// Covers reports whether the stored schedule repays the full amount.
func (a *Agreement) Covers() bool {
	return a.InstallmentAmount*int64(a.InstallmentCount) >= a.TotalAmount
}

func (a *Agreement) validateTerms() error {
	if a.TotalAmount <= 0 {
		return apperrors.NewValidationError("totalAmount", "must be a positive amount")
	}
	if a.InstallmentCount < MinInstallmentCount || a.InstallmentCount > MaxInstallmentCount {
		return apperrors.NewValidationError("installmentCount",
			fmt.Sprintf("must be between %d and %d", MinInstallmentCount, MaxInstallmentCount))
	}
	if a.InstallmentAmount <= 0 {
		return apperrors.NewValidationError("installmentAmount", "must be a positive amount")
	}
	if !a.Covers() {
		return apperrors.NewValidationError("installmentAmount", "schedule does not cover the total amount")
	}
	if a.OtherDebts < 0 {
		return apperrors.NewValidationError("otherDebts", "must not be negative")
	}
	return nil
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FirstPaymentDate returns the first occurrence of paymentDay on or after
// today. When the day has already passed this month the date moves one
// calendar month forward.
func FirstPaymentDate(today time.Time, paymentDay int) time.Time {
	today = DateOf(today)
	first := time.Date(today.Year(), today.Month(), paymentDay, 0, 0, 0, 0, time.UTC)
	if first.Before(today) {
		first = time.Date(today.Year(), today.Month()+1, paymentDay, 0, 0, 0, 0, time.UTC)
	}
	return first
}
