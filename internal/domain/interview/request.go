package interview

import (
	"time"

	"loan-agreement-engine/internal/domain/affordability"
	"loan-agreement-engine/internal/domain/agreement"
)

type Step int

const (
	StepBorrowerPhone Step = iota
	StepIncomeSource
	StepPaymentDay
	StepMonthlyIncome
	StepOtherDebts
	StepConfirmation
	StepCounterparty
	StepDone
)

// LoanRequest is the working state of one interview, keyed by the initiator.
type LoanRequest struct {
	Initiator         string                 `json:"initiator"`
	LenderID          int64                  `json:"lenderId"`
	Step              Step                   `json:"step"`
	BorrowerName      string                 `json:"borrowerName"`
	BorrowerPhone     string                 `json:"borrowerPhone,omitempty"`
	TotalAmount       int64                  `json:"totalAmount"`
	IncomeSource      agreement.IncomeSource `json:"incomeSource,omitempty"`
	PaymentDay        int                    `json:"paymentDay,omitempty"`
	MonthlyIncome     *int64                 `json:"monthlyIncome,omitempty"`
	OtherDebts        int64                  `json:"otherDebts"`
	Recommendation    *affordability.Result  `json:"recommendation,omitempty"`
	InstallmentAmount int64                  `json:"installmentAmount,omitempty"`
	Months            int                    `json:"months,omitempty"`
	Amended           bool                   `json:"amended,omitempty"`
	StartedAt         time.Time              `json:"startedAt"`
	UpdatedAt         time.Time              `json:"updatedAt"`
}

// assessedIncome is the income the calculator sees. A skipped income falls
// back to the loan amount.
func (r *LoanRequest) assessedIncome() int64 {
	if r.MonthlyIncome != nil {
		return *r.MonthlyIncome
	}
	return r.TotalAmount
}

func (r *LoanRequest) incomeWord() string {
	if r.IncomeSource == agreement.IncomeSalary {
		return "gaji"
	}
	return "pendapatan"
}
