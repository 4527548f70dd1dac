package agreement

import (
	"fmt"
	"time"

	"loan-agreement-engine/internal/pkg/apperrors"
	"loan-agreement-engine/internal/pkg/money"
)

type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "pending"
	InstallmentPartial InstallmentStatus = "partial"
	InstallmentPaid    InstallmentStatus = "paid"
)

type Installment struct {
	ID                int64
	AgreementID       int64
	InstallmentNumber int
	DueDate           time.Time
	Amount            int64
	PaidAmount        int64
	Status            InstallmentStatus
	PaidAt            *time.Time
	ReminderSent      bool
}

// StatusFor derives the installment status from what has been paid so far.
func StatusFor(paid, amount int64) InstallmentStatus {
	switch {
	case paid >= amount:
		return InstallmentPaid
	case paid > 0:
		return InstallmentPartial
	default:
		return InstallmentPending
	}
}

// ApplyPayment accumulates amount onto the installment.
func (i *Installment) ApplyPayment(amount int64, at time.Time) error {
	if amount <= 0 {
		return fmt.Errorf("%w: payment must be positive, got %d", apperrors.ErrInvalidPaymentAmount, amount)
	}
	paid, ok := money.Add(i.PaidAmount, amount)
	if !ok {
		return fmt.Errorf("%w: payment of %d would overflow the paid total of installment %d", apperrors.ErrInvalidPaymentAmount, amount, i.ID)
	}
	i.PaidAmount = paid
	i.Status = StatusFor(i.PaidAmount, i.Amount)
	i.PaidAt = &at
	return nil
}

func (i *Installment) Outstanding() int64 {
	if i.PaidAmount >= i.Amount {
		return 0
	}
	return i.Amount - i.PaidAmount
}

// BuildSchedule lays out one installment per month starting at first.
// Due dates use ordinary calendar increment, so a day missing from a shorter
// month rolls into the following month. Every entry carries the same amount.
func BuildSchedule(agreementID int64, first time.Time, count int, amount int64) []Installment {
	first = DateOf(first)
	schedule := make([]Installment, 0, count)
	for n := 1; n <= count; n++ {
		schedule = append(schedule, Installment{
			AgreementID:       agreementID,
			InstallmentNumber: n,
			DueDate:           first.AddDate(0, n-1, 0),
			Amount:            amount,
			Status:            InstallmentPending,
		})
	}
	return schedule
}
