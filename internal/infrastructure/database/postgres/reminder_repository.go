package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"loan-agreement-engine/internal/domain/reminder"
	"loan-agreement-engine/internal/pkg/apperrors"
)

type ReminderRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ reminder.Repository = (*ReminderRepository)(nil)

func NewReminderRepository(db DBPool, logger *slog.Logger) *ReminderRepository {
	return &ReminderRepository{db: db, logger: logger.With("component", "ReminderRepository")}
}

func (r *ReminderRepository) findCandidates(ctx context.Context, name string, kind reminder.Kind, query string, from, to time.Time, limit int) ([]reminder.Candidate, error) {
	start := time.Now()
	rows, err := r.db.Query(ctx, query, from, to, limit)
	recordQuery(name, start, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query reminder candidates", "kind", kind, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	candidates := make([]reminder.Candidate, 0)
	for rows.Next() {
		c := reminder.Candidate{Kind: kind}
		if err := rows.Scan(&c.RefID, &c.Recipient, &c.Name, &c.Amount, &c.DueDate); err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan reminder candidate", "kind", kind, "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		candidates = append(candidates, c)
	}
	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating reminder candidates", "kind", kind, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return candidates, nil
}

func (r *ReminderRepository) FindDueDebts(ctx context.Context, from, to time.Time, limit int) ([]reminder.Candidate, error) {
	query := `
        SELECT id, debtor_phone, debtor_name, amount, due_date
        FROM debts
        WHERE status = 'pending' AND reminder_sent = FALSE
          AND due_date BETWEEN $1 AND $2
        ORDER BY due_date ASC, id ASC
        LIMIT $3`
	return r.findCandidates(ctx, "FindDueDebts", reminder.KindDebt, query, from, to, limit)
}

func (r *ReminderRepository) FindDueInstallments(ctx context.Context, from, to time.Time, limit int) ([]reminder.Candidate, error) {
	query := `
        SELECT i.id, a.borrower_phone, a.borrower_name, i.amount, i.due_date
        FROM installments i
        JOIN agreements a ON a.id = i.agreement_id
        WHERE i.status = 'pending' AND i.reminder_sent = FALSE
          AND a.status = 'active'
          AND i.due_date BETWEEN $1 AND $2
        ORDER BY i.due_date ASC, i.id ASC
        LIMIT $3`
	return r.findCandidates(ctx, "FindDueInstallments", reminder.KindInstallment, query, from, to, limit)
}

func (r *ReminderRepository) execOne(ctx context.Context, name, sql string, id int64) error {
	start := time.Now()
	cmdTag, err := r.db.Exec(ctx, sql, id)
	recordQuery(name, start, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Reminder update failed", "query", name, "id", id, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s id %d", apperrors.ErrNotFound, name, id)
	}
	return nil
}

func (r *ReminderRepository) MarkDebtReminderSent(ctx context.Context, debtID int64) error {
	return r.execOne(ctx, "MarkDebtReminderSent", `UPDATE debts SET reminder_sent = TRUE WHERE id = $1`, debtID)
}

func (r *ReminderRepository) MarkInstallmentReminderSent(ctx context.Context, installmentID int64) error {
	return r.execOne(ctx, "MarkInstallmentReminderSent", `UPDATE installments SET reminder_sent = TRUE WHERE id = $1`, installmentID)
}

func (r *ReminderRepository) MarkDebtPaid(ctx context.Context, debtID int64) error {
	return r.execOne(ctx, "MarkDebtPaid", `UPDATE debts SET status = 'paid', paid_at = NOW() WHERE id = $1`, debtID)
}

func (r *ReminderRepository) CreateDebt(ctx context.Context, d *reminder.Debt) error {
	query := `
        INSERT INTO debts (owner_id, debtor_name, debtor_phone, amount, due_date, status, reminder_sent, reminder_time, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7, NOW())
        RETURNING id, created_at`

	start := time.Now()
	err := r.db.QueryRow(ctx, query,
		d.OwnerID, d.DebtorName, d.DebtorPhone, d.Amount, d.DueDate, string(d.Status), d.ReminderTime,
	).Scan(&d.ID, &d.CreatedAt)
	recordQuery("CreateDebt", start, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert debt", "owner_id", d.OwnerID, "error", err)
		return fmt.Errorf("%w: failed to insert debt: %w", apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *ReminderRepository) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		r.logger.ErrorContext(ctx, "Failed to count debts", "error", err)
		return 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return n, nil
}

func (r *ReminderRepository) CountPendingDebts(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM debts WHERE status = 'pending'`)
}

func (r *ReminderRepository) CountOverdueDebts(ctx context.Context, today time.Time) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM debts WHERE status = 'pending' AND due_date < $1`, today)
}

func (r *ReminderRepository) FindPendingDebtsByOwner(ctx context.Context, ownerID int64) ([]reminder.Debt, error) {
	query := `
        SELECT id, owner_id, debtor_name, debtor_phone, amount, due_date, status, reminder_sent, reminder_time, created_at
        FROM debts
        WHERE owner_id = $1 AND status = 'pending'
        ORDER BY due_date ASC, id ASC`

	start := time.Now()
	rows, err := r.db.Query(ctx, query, ownerID)
	recordQuery("FindPendingDebtsByOwner", start, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query pending debts", "owner_id", ownerID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	debts := make([]reminder.Debt, 0)
	for rows.Next() {
		var d reminder.Debt
		var status string
		if err := rows.Scan(&d.ID, &d.OwnerID, &d.DebtorName, &d.DebtorPhone, &d.Amount, &d.DueDate,
			&status, &d.ReminderSent, &d.ReminderTime, &d.CreatedAt); err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan debt row", "owner_id", ownerID, "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		d.Status = reminder.DebtStatus(status)
		debts = append(debts, d)
	}
	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating debt rows", "owner_id", ownerID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return debts, nil
}
