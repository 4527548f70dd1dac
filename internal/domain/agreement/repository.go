package agreement

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

type Repository interface {
	CreateAgreementInTx(ctx context.Context, tx pgx.Tx, a *Agreement) (*Agreement, error)

	GetAgreementByID(ctx context.Context, agreementID int64) (*Agreement, error)

	GetAgreementForUpdate(ctx context.Context, tx pgx.Tx, agreementID int64) (*Agreement, error)

	UpdateAgreementTermsInTx(ctx context.Context, tx pgx.Tx, a *Agreement) error

	UpdateAgreementStatusInTx(ctx context.Context, tx pgx.Tx, agreementID int64, status Status, signedAt *time.Time) error

	FindLatestDraftByBorrowerPhone(ctx context.Context, phone string) (*Agreement, error)

	ListAgreementsByLender(ctx context.Context, lenderID int64) ([]Agreement, error)

	CountAgreementsByStatus(ctx context.Context, status Status) (int, error)

	InsertInstallmentsInTx(ctx context.Context, tx pgx.Tx, schedule []Installment) ([]Installment, error)

	CountInstallmentsInTx(ctx context.Context, tx pgx.Tx, agreementID int64) (int, error)

	GetInstallmentForUpdate(ctx context.Context, tx pgx.Tx, installmentID int64) (*Installment, error)

	UpdateInstallmentPaymentInTx(ctx context.Context, tx pgx.Tx, inst *Installment) error

	CountUnpaidInstallmentsInTx(ctx context.Context, tx pgx.Tx, agreementID int64) (total int, unpaid int, err error)

	GetInstallmentsByAgreementID(ctx context.Context, agreementID int64) ([]Installment, error)

	GetInstallmentByNumber(ctx context.Context, agreementID int64, number int) (*Installment, error)

	GetPendingInstallments(ctx context.Context, agreementID int64) ([]Installment, error)

	GetOutstandingAmount(ctx context.Context, agreementID int64) (int64, error)

	CountPendingInstallments(ctx context.Context) (int, error)

	BeginTx(ctx context.Context) (pgx.Tx, error)

	CommitTx(ctx context.Context, tx pgx.Tx) error

	RollbackTx(ctx context.Context, tx pgx.Tx) error
}
