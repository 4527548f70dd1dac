package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"loan-agreement-engine/internal/domain/agreement"
	"loan-agreement-engine/internal/infrastructure/monitoring"
	"loan-agreement-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

type AgreementRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ agreement.Repository = (*AgreementRepository)(nil)

var errMsgFormat = "%w: %w"

const agreementColumns = `id, lender_id, borrower_name, borrower_phone, total_amount, income_source,
        monthly_income, other_debts, installment_amount, installment_count, COALESCE(payment_day, 0),
        first_payment_date, interest_rate, status, created_at, signed_at`

const installmentColumns = `id, agreement_id, installment_number, due_date, amount, paid_amount, status, paid_at, reminder_sent`

type rowScanner interface {
	Scan(dest ...any) error
}

func NewAgreementRepository(db DBPool, logger *slog.Logger) *AgreementRepository {
	return &AgreementRepository{db: db, logger: logger.With("component", "AgreementRepository")}
}

func recordQuery(name string, start time.Time, err error) {
	status := "success"
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		status = "error"
	}
	monitoring.RecordDBQuery(name, status, time.Since(start))
}

func scanAgreement(row rowScanner) (*agreement.Agreement, error) {
	var a agreement.Agreement
	err := row.Scan(
		&a.ID, &a.LenderID, &a.BorrowerName, &a.BorrowerPhone, &a.TotalAmount, &a.IncomeSource,
		&a.MonthlyIncome, &a.OtherDebts, &a.InstallmentAmount, &a.InstallmentCount, &a.PaymentDay,
		&a.FirstPaymentDate, &a.InterestRate, &a.Status, &a.CreatedAt, &a.SignedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func scanInstallment(row rowScanner) (*agreement.Installment, error) {
	var i agreement.Installment
	err := row.Scan(
		&i.ID, &i.AgreementID, &i.InstallmentNumber, &i.DueDate,
		&i.Amount, &i.PaidAmount, &i.Status, &i.PaidAt, &i.ReminderSent,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *AgreementRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return nil, apperrors.WrapDatabaseError(err, "failed to begin transaction")
	}
	return tx, nil
}

func (r *AgreementRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		r.logger.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		return apperrors.WrapDatabaseError(err, "failed to commit transaction")
	}
	return nil
}

func (r *AgreementRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	err := tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		r.logger.ErrorContext(ctx, "Failed to rollback transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *AgreementRepository) CreateAgreementInTx(ctx context.Context, tx pgx.Tx, a *agreement.Agreement) (*agreement.Agreement, error) {
	sql := `
        INSERT INTO agreements (lender_id, borrower_name, borrower_phone, total_amount, income_source,
            monthly_income, other_debts, installment_amount, installment_count, interest_rate, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
        RETURNING ` + agreementColumns

	start := time.Now()
	created, err := scanAgreement(tx.QueryRow(ctx, sql,
		a.LenderID, a.BorrowerName, a.BorrowerPhone, a.TotalAmount, string(a.IncomeSource),
		a.MonthlyIncome, a.OtherDebts, a.InstallmentAmount, a.InstallmentCount, a.InterestRate, string(a.Status),
	))
	recordQuery("CreateAgreement", start, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert agreement", "lender_id", a.LenderID, "error", err)
		return nil, fmt.Errorf("%w: failed to insert agreement: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Agreement created in DB", "agreement_id", created.ID)
	return created, nil
}

func (r *AgreementRepository) GetAgreementByID(ctx context.Context, agreementID int64) (*agreement.Agreement, error) {
	query := `SELECT ` + agreementColumns + ` FROM agreements WHERE id = $1`

	start := time.Now()
	a, err := scanAgreement(r.db.QueryRow(ctx, query, agreementID))
	recordQuery("GetAgreementByID", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Agreement not found", "agreement_id", agreementID)
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get agreement by ID", "agreement_id", agreementID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return a, nil
}

func (r *AgreementRepository) GetAgreementForUpdate(ctx context.Context, tx pgx.Tx, agreementID int64) (*agreement.Agreement, error) {
	query := `SELECT ` + agreementColumns + ` FROM agreements WHERE id = $1 FOR UPDATE`

	a, err := scanAgreement(tx.QueryRow(ctx, query, agreementID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Agreement not found for update", "agreement_id", agreementID)
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to lock agreement", "agreement_id", agreementID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return a, nil
}

func (r *AgreementRepository) UpdateAgreementTermsInTx(ctx context.Context, tx pgx.Tx, a *agreement.Agreement) error {
	sql := `
        UPDATE agreements
        SET installment_amount = $1, installment_count = $2, payment_day = $3, first_payment_date = $4,
            interest_rate = $5, updated_at = NOW()
        WHERE id = $6`

	var paymentDay *int
	if a.PaymentDay > 0 {
		paymentDay = &a.PaymentDay
	}

	cmdTag, err := tx.Exec(ctx, sql, a.InstallmentAmount, a.InstallmentCount, paymentDay, a.FirstPaymentDate, a.InterestRate, a.ID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update agreement terms", "agreement_id", a.ID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() != 1 {
		r.logger.ErrorContext(ctx, "Agreement terms update affected zero rows", "agreement_id", a.ID)
		return fmt.Errorf("%w: agreement %d", apperrors.ErrNotFound, a.ID)
	}
	return nil
}

// UpdateAgreementStatusInTx keeps the stored signed_at when signedAt is nil.
func (r *AgreementRepository) UpdateAgreementStatusInTx(ctx context.Context, tx pgx.Tx, agreementID int64, status agreement.Status, signedAt *time.Time) error {
	sql := `UPDATE agreements SET status = $1, signed_at = COALESCE($2, signed_at), updated_at = NOW() WHERE id = $3`

	cmdTag, err := tx.Exec(ctx, sql, string(status), signedAt, agreementID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update agreement status", "agreement_id", agreementID, "status", status, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() != 1 {
		r.logger.ErrorContext(ctx, "Agreement status update affected zero rows", "agreement_id", agreementID, "status", status)
		return fmt.Errorf("%w: agreement %d", apperrors.ErrNotFound, agreementID)
	}
	r.logger.InfoContext(ctx, "Agreement status updated in DB", "agreement_id", agreementID, "new_status", status)
	return nil
}

func (r *AgreementRepository) FindLatestDraftByBorrowerPhone(ctx context.Context, phone string) (*agreement.Agreement, error) {
	query := `SELECT ` + agreementColumns + `
        FROM agreements
        WHERE borrower_phone = $1 AND status = 'draft'
        ORDER BY created_at DESC, id DESC
        LIMIT 1`

	start := time.Now()
	a, err := scanAgreement(r.db.QueryRow(ctx, query, phone))
	recordQuery("FindLatestDraftByBorrowerPhone", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to find pending agreement", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return a, nil
}

func (r *AgreementRepository) ListAgreementsByLender(ctx context.Context, lenderID int64) ([]agreement.Agreement, error) {
	query := `SELECT ` + agreementColumns + `
        FROM agreements
        WHERE lender_id = $1
        ORDER BY created_at DESC, id DESC`

	start := time.Now()
	rows, err := r.db.Query(ctx, query, lenderID)
	recordQuery("ListAgreementsByLender", start, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query agreements by lender", "lender_id", lenderID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	agreements := make([]agreement.Agreement, 0)
	for rows.Next() {
		a, err := scanAgreement(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan agreement row", "lender_id", lenderID, "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		agreements = append(agreements, *a)
	}
	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating agreement rows", "lender_id", lenderID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return agreements, nil
}

func (r *AgreementRepository) CountAgreementsByStatus(ctx context.Context, status agreement.Status) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM agreements WHERE status = $1`, string(status)).Scan(&count)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to count agreements", "status", status, "error", err)
		return 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return count, nil
}

func (r *AgreementRepository) InsertInstallmentsInTx(ctx context.Context, tx pgx.Tx, schedule []agreement.Installment) ([]agreement.Installment, error) {
	sql := `
        INSERT INTO installments (agreement_id, installment_number, due_date, amount, paid_amount, status)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING ` + installmentColumns

	start := time.Now()
	inserted := make([]agreement.Installment, 0, len(schedule))
	for _, entry := range schedule {
		inst, err := scanInstallment(tx.QueryRow(ctx, sql,
			entry.AgreementID, entry.InstallmentNumber, entry.DueDate, entry.Amount, entry.PaidAmount, string(entry.Status),
		))
		if err != nil {
			recordQuery("InsertInstallments", start, err)
			r.logger.ErrorContext(ctx, "Failed inserting installment", "agreement_id", entry.AgreementID, "number", entry.InstallmentNumber, "error", err)
			return nil, fmt.Errorf("%w: failed inserting installment %d: %w", apperrors.ErrDatabase, entry.InstallmentNumber, err)
		}
		inserted = append(inserted, *inst)
	}
	recordQuery("InsertInstallments", start, nil)

	if len(inserted) > 0 {
		r.logger.InfoContext(ctx, "Installment schedule created in DB", "agreement_id", inserted[0].AgreementID, "num_entries", len(inserted))
	}
	return inserted, nil
}

func (r *AgreementRepository) CountInstallmentsInTx(ctx context.Context, tx pgx.Tx, agreementID int64) (int, error) {
	var count int
	err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM installments WHERE agreement_id = $1`, agreementID).Scan(&count)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to count installments", "agreement_id", agreementID, "error", err)
		return 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return count, nil
}

func (r *AgreementRepository) GetInstallmentForUpdate(ctx context.Context, tx pgx.Tx, installmentID int64) (*agreement.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM installments WHERE id = $1 FOR UPDATE`

	inst, err := scanInstallment(tx.QueryRow(ctx, query, installmentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Installment not found for update", "installment_id", installmentID)
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to lock installment", "installment_id", installmentID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return inst, nil
}

func (r *AgreementRepository) UpdateInstallmentPaymentInTx(ctx context.Context, tx pgx.Tx, inst *agreement.Installment) error {
	sql := `
        UPDATE installments
        SET paid_amount = $1, status = $2, paid_at = $3
        WHERE id = $4 AND agreement_id = $5`

	cmdTag, err := tx.Exec(ctx, sql, inst.PaidAmount, string(inst.Status), inst.PaidAt, inst.ID, inst.AgreementID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update installment", "installment_id", inst.ID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() != 1 {
		r.logger.ErrorContext(ctx, "Installment update affected zero rows", "installment_id", inst.ID, "agreement_id", inst.AgreementID)
		return fmt.Errorf("%w: installment update affected zero rows", apperrors.ErrDatabase)
	}
	return nil
}

func (r *AgreementRepository) CountUnpaidInstallmentsInTx(ctx context.Context, tx pgx.Tx, agreementID int64) (int, int, error) {
	var total, unpaid int
	query := `
        SELECT COUNT(*), COUNT(*) FILTER (WHERE status != 'paid')
        FROM installments
        WHERE agreement_id = $1`

	if err := tx.QueryRow(ctx, query, agreementID).Scan(&total, &unpaid); err != nil {
		r.logger.ErrorContext(ctx, "Failed to count unpaid installments", "agreement_id", agreementID, "error", err)
		return 0, 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return total, unpaid, nil
}

func (r *AgreementRepository) queryInstallments(ctx context.Context, name, query string, args ...any) ([]agreement.Installment, error) {
	start := time.Now()
	rows, err := r.db.Query(ctx, query, args...)
	recordQuery(name, start, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query installments", "query", name, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	installments := make([]agreement.Installment, 0)
	for rows.Next() {
		inst, err := scanInstallment(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan installment row", "query", name, "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		installments = append(installments, *inst)
	}
	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating installment rows", "query", name, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return installments, nil
}

func (r *AgreementRepository) GetInstallmentsByAgreementID(ctx context.Context, agreementID int64) ([]agreement.Installment, error) {
	query := `SELECT ` + installmentColumns + `
        FROM installments
        WHERE agreement_id = $1
        ORDER BY installment_number ASC`
	return r.queryInstallments(ctx, "GetInstallmentsByAgreementID", query, agreementID)
}

func (r *AgreementRepository) GetPendingInstallments(ctx context.Context, agreementID int64) ([]agreement.Installment, error) {
	query := `SELECT ` + installmentColumns + `
        FROM installments
        WHERE agreement_id = $1 AND status != 'paid'
        ORDER BY installment_number ASC`
	return r.queryInstallments(ctx, "GetPendingInstallments", query, agreementID)
}

func (r *AgreementRepository) GetInstallmentByNumber(ctx context.Context, agreementID int64, number int) (*agreement.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM installments WHERE agreement_id = $1 AND installment_number = $2`

	start := time.Now()
	inst, err := scanInstallment(r.db.QueryRow(ctx, query, agreementID, number))
	recordQuery("GetInstallmentByNumber", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get installment by number", "agreement_id", agreementID, "number", number, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return inst, nil
}

func (r *AgreementRepository) GetOutstandingAmount(ctx context.Context, agreementID int64) (int64, error) {
	var outstanding int64
	query := `
        SELECT COALESCE(SUM(amount - paid_amount), 0)
        FROM installments
        WHERE agreement_id = $1 AND status != 'paid'`

	if err := r.db.QueryRow(ctx, query, agreementID).Scan(&outstanding); err != nil {
		r.logger.ErrorContext(ctx, "Failed to calculate outstanding amount", "agreement_id", agreementID, "error", err)
		return 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if outstanding < 0 {
		r.logger.WarnContext(ctx, "Calculated outstanding amount is negative, returning 0", "agreement_id", agreementID, "calculated_value", outstanding)
		return 0, nil
	}
	return outstanding, nil
}

func (r *AgreementRepository) CountPendingInstallments(ctx context.Context) (int, error) {
	query := `
        SELECT COUNT(*)
        FROM installments i
        JOIN agreements a ON a.id = i.agreement_id
        WHERE i.status != 'paid' AND a.status = 'active'`
	var count int
	if err := r.db.QueryRow(ctx, query).Scan(&count); err != nil {
		r.logger.ErrorContext(ctx, "Failed to count pending installments", "error", err)
		return 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return count, nil
}
