// Package affordability computes installment recommendations for a loan from
// the borrower's monthly income and existing monthly debt burden.
//
// All money values are whole currency units held in int64. The only
// non-integer output is the debt-to-income ratio, reported as a decimal.
package affordability

import (
	"fmt"

	"loan-agreement-engine/internal/pkg/apperrors"
	"loan-agreement-engine/internal/pkg/money"

	"github.com/shopspring/decimal"
)

const (
	// MaxDebtRatioPercent is the share of income that all monthly debt
	// installments together may consume.
	MaxDebtRatioPercent     = 30
	ComfortableRatioPercent = 20

	MinInstallment int64 = 100_000
	MinMonths            = 1
	MaxMonths            = 24
)

type Affordability string

const (
	Comfortable Affordability = "comfortable"
	Manageable  Affordability = "manageable"
	Tight       Affordability = "tight"
)

type Result struct {
	InstallmentAmount int64
	Months            int
	TotalRepayment    int64
	MonthlyBurden     int64
	DebtToIncomeRatio decimal.Decimal
	Affordability     Affordability
	// MaxRecommended is the headroom left under the debt ratio. It is
	// negative when existing debts already exceed the ratio.
	MaxRecommended int64
}

// Calculate returns the recommended schedule for totalLoan.
//
// A borrower whose existing debts already exceed the ratio still gets a
// schedule floored at MinInstallment instead of a rejection. Inputs above
// money.MaxAmount are rejected.
func Calculate(income, otherDebts, totalLoan int64) (Result, error) {
	if income <= 0 {
		return Result{}, fmt.Errorf("%w: income must be positive, got %d", apperrors.ErrArithmeticPrecondition, income)
	}
	if income > money.MaxAmount {
		return Result{}, fmt.Errorf("%w: income exceeds %d", apperrors.ErrInvalidArgument, money.MaxAmount)
	}
	if otherDebts < 0 || otherDebts > money.MaxAmount {
		return Result{}, fmt.Errorf("%w: other debts must be between 0 and %d, got %d", apperrors.ErrInvalidArgument, money.MaxAmount, otherDebts)
	}
	if !money.InRange(totalLoan) {
		return Result{}, fmt.Errorf("%w: loan amount must be between 1 and %d, got %d", apperrors.ErrInvalidArgument, money.MaxAmount, totalLoan)
	}

	// income > 0, so integer division is floor division here.
	maxNewInstallment := income*MaxDebtRatioPercent/100 - otherDebts
	safeInstallment := max(maxNewInstallment, MinInstallment)

	months := clampMonths(CeilDiv(totalLoan, safeInstallment))
	installment := CeilDiv(totalLoan, int64(months))
	burden := otherDebts + installment

	return Result{
		InstallmentAmount: installment,
		Months:            months,
		TotalRepayment:    installment * int64(months),
		MonthlyBurden:     burden,
		DebtToIncomeRatio: decimal.NewFromInt(burden).DivRound(decimal.NewFromInt(income), 4),
		Affordability:     classify(burden, income),
		MaxRecommended:    maxNewInstallment,
	}, nil
}

// MonthsFor returns ceil(totalLoan / installment) for a nominal chosen by the
// user. It does not apply the affordability policy.
func MonthsFor(totalLoan, installment int64) (int, error) {
	if installment <= 0 {
		return 0, fmt.Errorf("%w: installment must be positive, got %d", apperrors.ErrArithmeticPrecondition, installment)
	}
	if !money.InRange(totalLoan) {
		return 0, fmt.Errorf("%w: loan amount must be between 1 and %d, got %d", apperrors.ErrInvalidArgument, money.MaxAmount, totalLoan)
	}
	return int(CeilDiv(totalLoan, installment)), nil
}

// CeilDiv divides two positive integers rounding up.
func CeilDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 {
		q++
	}
	return q
}

func clampMonths(m int64) int {
	if m < MinMonths {
		return MinMonths
	}
	if m > MaxMonths {
		return MaxMonths
	}
	return int(m)
}

// classify compares burden/income against the thresholds without division.
func classify(burden, income int64) Affordability {
	switch {
	case burden*100 <= income*ComfortableRatioPercent:
		return Comfortable
	case burden*100 <= income*MaxDebtRatioPercent:
		return Manageable
	default:
		return Tight
	}
}
