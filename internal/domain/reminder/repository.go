package reminder

import (
	"context"
	"time"
)

type Repository interface {
	// FindDueDebts returns pending debts not yet reminded whose due date
	// falls within [from, to], ordered by due date.
	FindDueDebts(ctx context.Context, from, to time.Time, limit int) ([]Candidate, error)

	// FindDueInstallments is FindDueDebts for pending installments of active agreements.
	FindDueInstallments(ctx context.Context, from, to time.Time, limit int) ([]Candidate, error)

	MarkDebtReminderSent(ctx context.Context, debtID int64) error

	MarkInstallmentReminderSent(ctx context.Context, installmentID int64) error

	CreateDebt(ctx context.Context, d *Debt) error

	MarkDebtPaid(ctx context.Context, debtID int64) error

	CountPendingDebts(ctx context.Context) (int, error)

	CountOverdueDebts(ctx context.Context, today time.Time) (int, error)

	// FindPendingDebtsByOwner returns the owner's unpaid debts ordered by due date.
	FindPendingDebtsByOwner(ctx context.Context, ownerID int64) ([]Debt, error)
}
