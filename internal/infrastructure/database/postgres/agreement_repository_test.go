package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"loan-agreement-engine/internal/domain/agreement"
	"loan-agreement-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var agreementRowColumns = []string{
	"id", "lender_id", "borrower_name", "borrower_phone", "total_amount", "income_source",
	"monthly_income", "other_debts", "installment_amount", "installment_count", "payment_day",
	"first_payment_date", "interest_rate", "status", "created_at", "signed_at",
}

var installmentRowColumns = []string{
	"id", "agreement_id", "installment_number", "due_date", "amount", "paid_amount", "status", "paid_at", "reminder_sent",
}

func newAgreementRepo(t *testing.T) (*AgreementRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewAgreementRepository(mock, discardLogger()), mock
}

func agreementRows(id int64, status agreement.Status) *pgxmock.Rows {
	income := int64(8_000_000)
	created := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	return pgxmock.NewRows(agreementRowColumns).AddRow(
		id, int64(7), "Budi", "082222222222", int64(1_000_000), agreement.IncomeSalary,
		&income, int64(0), int64(400_000), 3, 0,
		(*time.Time)(nil), float64(0), status, created, (*time.Time)(nil),
	)
}

func installmentRows() *pgxmock.Rows {
	return pgxmock.NewRows(installmentRowColumns)
}

func TestAgreementRepository_GetAgreementByID(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		repo, mock := newAgreementRepo(t)
		mock.ExpectQuery("FROM agreements WHERE id = \\$1").WithArgs(int64(11)).WillReturnRows(agreementRows(11, agreement.StatusDraft))

		a, err := repo.GetAgreementByID(ctx, 11)
		require.NoError(t, err)
		assert.Equal(t, int64(11), a.ID)
		assert.Equal(t, agreement.StatusDraft, a.Status)
		assert.Equal(t, 3, a.InstallmentCount)
		require.NotNil(t, a.MonthlyIncome)
		assert.Equal(t, int64(8_000_000), *a.MonthlyIncome)
		assert.Nil(t, a.FirstPaymentDate)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newAgreementRepo(t)
		mock.ExpectQuery("FROM agreements WHERE id").WithArgs(int64(99)).WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetAgreementByID(ctx, 99)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("database error", func(t *testing.T) {
		repo, mock := newAgreementRepo(t)
		mock.ExpectQuery("FROM agreements WHERE id").WithArgs(int64(5)).WillReturnError(errors.New("conn reset"))

		_, err := repo.GetAgreementByID(ctx, 5)
		assert.ErrorIs(t, err, apperrors.ErrDatabase)
		assert.NotErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestAgreementRepository_CreateAgreementInTx(t *testing.T) {
	ctx := context.Background()
	repo, mock := newAgreementRepo(t)

	income := int64(8_000_000)
	draft := &agreement.Agreement{
		LenderID: 7, BorrowerName: "Budi", BorrowerPhone: "082222222222", TotalAmount: 1_000_000,
		IncomeSource: agreement.IncomeSalary, MonthlyIncome: &income, InstallmentAmount: 400_000,
		InstallmentCount: 3, Status: agreement.StatusDraft,
	}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO agreements").
		WithArgs(int64(7), "Budi", "082222222222", int64(1_000_000), "GAJI",
			pgxmock.AnyArg(), int64(0), int64(400_000), 3, float64(0), "draft").
		WillReturnRows(agreementRows(21, agreement.StatusDraft))
	mock.ExpectCommit()

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	created, err := repo.CreateAgreementInTx(ctx, tx, draft)
	require.NoError(t, err)
	require.NoError(t, repo.CommitTx(ctx, tx))

	assert.Equal(t, int64(21), created.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAgreementRepository_BeginTxFailure(t *testing.T) {
	repo, mock := newAgreementRepo(t)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	tx, err := repo.BeginTx(context.Background())
	assert.Nil(t, tx)
	assert.ErrorIs(t, err, apperrors.ErrDatabase)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "DB_ERROR", appErr.Code)
}

func TestAgreementRepository_GetAgreementForUpdate(t *testing.T) {
	ctx := context.Background()
	repo, mock := newAgreementRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM agreements WHERE id = \\$1 FOR UPDATE").WithArgs(int64(3)).WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	_, err = repo.GetAgreementForUpdate(ctx, tx, 3)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	require.NoError(t, repo.RollbackTx(ctx, tx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAgreementRepository_UpdateAgreementStatusInTx(t *testing.T) {
	ctx := context.Background()
	signed := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	t.Run("updates status and signed time", func(t *testing.T) {
		repo, mock := newAgreementRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE agreements SET status").
			WithArgs("active", &signed, int64(4)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		tx, err := repo.BeginTx(ctx)
		require.NoError(t, err)
		assert.NoError(t, repo.UpdateAgreementStatusInTx(ctx, tx, 4, agreement.StatusActive, &signed))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row", func(t *testing.T) {
		repo, mock := newAgreementRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE agreements SET status").
			WithArgs("completed", pgxmock.AnyArg(), int64(4)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		tx, err := repo.BeginTx(ctx)
		require.NoError(t, err)
		err = repo.UpdateAgreementStatusInTx(ctx, tx, 4, agreement.StatusCompleted, nil)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestAgreementRepository_UpdateAgreementTermsInTx(t *testing.T) {
	ctx := context.Background()
	repo, mock := newAgreementRepo(t)

	first := time.Date(2026, 11, 5, 0, 0, 0, 0, time.UTC)
	a := &agreement.Agreement{ID: 4, InstallmentAmount: 400_000, InstallmentCount: 3, PaymentDay: 5, FirstPaymentDate: &first}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE agreements").
		WithArgs(int64(400_000), 3, pgxmock.AnyArg(), &first, float64(0), int64(4)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	assert.NoError(t, repo.UpdateAgreementTermsInTx(ctx, tx, a))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAgreementRepository_InsertInstallmentsInTx(t *testing.T) {
	ctx := context.Background()
	first := time.Date(2026, 11, 5, 0, 0, 0, 0, time.UTC)
	schedule := agreement.BuildSchedule(4, first, 2, 500_000)

	t.Run("returns inserted rows with ids", func(t *testing.T) {
		repo, mock := newAgreementRepo(t)
		mock.ExpectBegin()
		for i, entry := range schedule {
			mock.ExpectQuery("INSERT INTO installments").
				WithArgs(int64(4), entry.InstallmentNumber, entry.DueDate, int64(500_000), int64(0), "pending").
				WillReturnRows(installmentRows().AddRow(
					int64(100+i), int64(4), entry.InstallmentNumber, entry.DueDate, int64(500_000), int64(0),
					agreement.InstallmentPending, (*time.Time)(nil), false,
				))
		}

		tx, err := repo.BeginTx(ctx)
		require.NoError(t, err)
		inserted, err := repo.InsertInstallmentsInTx(ctx, tx, schedule)
		require.NoError(t, err)
		require.Len(t, inserted, 2)
		assert.Equal(t, int64(100), inserted[0].ID)
		assert.Equal(t, int64(101), inserted[1].ID)
		assert.Equal(t, first.AddDate(0, 1, 0), inserted[1].DueDate)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation surfaces as database error", func(t *testing.T) {
		repo, mock := newAgreementRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO installments").WillReturnError(errors.New("duplicate key value violates unique constraint"))

		tx, err := repo.BeginTx(ctx)
		require.NoError(t, err)
		_, err = repo.InsertInstallmentsInTx(ctx, tx, schedule)
		assert.ErrorIs(t, err, apperrors.ErrDatabase)
	})
}

func TestAgreementRepository_CountUnpaidInstallmentsInTx(t *testing.T) {
	ctx := context.Background()
	repo, mock := newAgreementRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FILTER \\(WHERE status != 'paid'\\)").WithArgs(int64(4)).
		WillReturnRows(pgxmock.NewRows([]string{"total", "unpaid"}).AddRow(3, 1))

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	total, unpaid, err := repo.CountUnpaidInstallmentsInTx(ctx, tx, 4)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, 1, unpaid)
}

func TestAgreementRepository_InstallmentPaymentFlow(t *testing.T) {
	ctx := context.Background()
	repo, mock := newAgreementRepo(t)

	due := time.Date(2026, 11, 5, 0, 0, 0, 0, time.UTC)
	paidAt := time.Date(2026, 10, 20, 8, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM installments WHERE id = \\$1 FOR UPDATE").WithArgs(int64(100)).
		WillReturnRows(installmentRows().AddRow(
			int64(100), int64(4), 1, due, int64(500_000), int64(0), agreement.InstallmentPending, (*time.Time)(nil), false,
		))
	mock.ExpectExec("UPDATE installments").
		WithArgs(int64(500_000), "paid", &paidAt, int64(100), int64(4)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	inst, err := repo.GetInstallmentForUpdate(ctx, tx, 100)
	require.NoError(t, err)
	require.NoError(t, inst.ApplyPayment(500_000, paidAt))
	require.NoError(t, repo.UpdateInstallmentPaymentInTx(ctx, tx, inst))
	require.NoError(t, repo.CommitTx(ctx, tx))

	assert.Equal(t, agreement.InstallmentPaid, inst.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAgreementRepository_GetInstallmentsByAgreementID(t *testing.T) {
	ctx := context.Background()
	repo, mock := newAgreementRepo(t)

	due := time.Date(2026, 11, 5, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("ORDER BY installment_number ASC").WithArgs(int64(4)).
		WillReturnRows(installmentRows().
			AddRow(int64(100), int64(4), 1, due, int64(500_000), int64(500_000), agreement.InstallmentPaid, &due, false).
			AddRow(int64(101), int64(4), 2, due.AddDate(0, 1, 0), int64(500_000), int64(0), agreement.InstallmentPending, (*time.Time)(nil), false))

	list, err := repo.GetInstallmentsByAgreementID(ctx, 4)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 1, list[0].InstallmentNumber)
	assert.Equal(t, agreement.InstallmentPending, list[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAgreementRepository_GetInstallmentByNumber_NotFound(t *testing.T) {
	repo, mock := newAgreementRepo(t)
	mock.ExpectQuery("installment_number = \\$2").WithArgs(int64(4), 9).WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetInstallmentByNumber(context.Background(), 4, 9)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAgreementRepository_GetOutstandingAmount(t *testing.T) {
	ctx := context.Background()

	t.Run("sums unpaid remainder", func(t *testing.T) {
		repo, mock := newAgreementRepo(t)
		mock.ExpectQuery("SUM\\(amount - paid_amount\\)").WithArgs(int64(4)).
			WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow(int64(650_000)))

		got, err := repo.GetOutstandingAmount(ctx, 4)
		require.NoError(t, err)
		assert.Equal(t, int64(650_000), got)
	})

	t.Run("negative clamps to zero", func(t *testing.T) {
		repo, mock := newAgreementRepo(t)
		mock.ExpectQuery("SUM\\(amount - paid_amount\\)").WithArgs(int64(4)).
			WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow(int64(-10)))

		got, err := repo.GetOutstandingAmount(ctx, 4)
		require.NoError(t, err)
		assert.Zero(t, got)
	})
}

func TestAgreementRepository_FindLatestDraftByBorrowerPhone(t *testing.T) {
	ctx := context.Background()
	repo, mock := newAgreementRepo(t)

	mock.ExpectQuery("status = 'draft'").WithArgs("082222222222").WillReturnRows(agreementRows(30, agreement.StatusDraft))
	a, err := repo.FindLatestDraftByBorrowerPhone(ctx, "082222222222")
	require.NoError(t, err)
	assert.Equal(t, int64(30), a.ID)

	mock.ExpectQuery("status = 'draft'").WithArgs("089999999999").WillReturnError(pgx.ErrNoRows)
	_, err = repo.FindLatestDraftByBorrowerPhone(ctx, "089999999999")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAgreementRepository_ListAgreementsByLender(t *testing.T) {
	repo, mock := newAgreementRepo(t)

	rows := agreementRows(2, agreement.StatusActive)
	mock.ExpectQuery("WHERE lender_id = \\$1").WithArgs(int64(7)).WillReturnRows(rows)

	list, err := repo.ListAgreementsByLender(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, agreement.StatusActive, list[0].Status)
}

func TestAgreementRepository_Counts(t *testing.T) {
	ctx := context.Background()
	repo, mock := newAgreementRepo(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM agreements WHERE status").WithArgs("active").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectQuery(regexp.QuoteMeta(`
        SELECT COUNT(*)
        FROM installments i
        JOIN agreements a ON a.id = i.agreement_id
        WHERE i.status != 'paid' AND a.status = 'active'`)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(9))

	active, err := repo.CountAgreementsByStatus(ctx, agreement.StatusActive)
	require.NoError(t, err)
	assert.Equal(t, 4, active)

	pending, err := repo.CountPendingInstallments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 9, pending)
	assert.NoError(t, mock.ExpectationsWereMet())
}
