package agreement

import (
	"context"
	"io"
	"log/slog"
	"time"

	"loan-agreement-engine/internal/event"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

type TxMock struct {
	pgx.Tx
}

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateAgreementInTx(ctx context.Context, tx pgx.Tx, a *Agreement) (*Agreement, error) {
	ret := m.Called(ctx, tx, a)
	var r0 *Agreement
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Agreement)
	}
	return r0, ret.Error(1)
}

func (m *MockRepository) GetAgreementByID(ctx context.Context, agreementID int64) (*Agreement, error) {
	ret := m.Called(ctx, agreementID)
	var r0 *Agreement
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Agreement)
	}
	return r0, ret.Error(1)
}

func (m *MockRepository) GetAgreementForUpdate(ctx context.Context, tx pgx.Tx, agreementID int64) (*Agreement, error) {
	ret := m.Called(ctx, tx, agreementID)
	var r0 *Agreement
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Agreement)
	}
	return r0, ret.Error(1)
}

func (m *MockRepository) UpdateAgreementTermsInTx(ctx context.Context, tx pgx.Tx, a *Agreement) error {
	return m.Called(ctx, tx, a).Error(0)
}

func (m *MockRepository) UpdateAgreementStatusInTx(ctx context.Context, tx pgx.Tx, agreementID int64, status Status, signedAt *time.Time) error {
	return m.Called(ctx, tx, agreementID, status, signedAt).Error(0)
}

func (m *MockRepository) FindLatestDraftByBorrowerPhone(ctx context.Context, phone string) (*Agreement, error) {
	ret := m.Called(ctx, phone)
	var r0 *Agreement
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Agreement)
	}
	return r0, ret.Error(1)
}

func (m *MockRepository) ListAgreementsByLender(ctx context.Context, lenderID int64) ([]Agreement, error) {
	ret := m.Called(ctx, lenderID)
	var r0 []Agreement
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]Agreement)
	}
	return r0, ret.Error(1)
}

func (m *MockRepository) CountAgreementsByStatus(ctx context.Context, status Status) (int, error) {
	ret := m.Called(ctx, status)
	return ret.Int(0), ret.Error(1)
}

func (m *MockRepository) InsertInstallmentsInTx(ctx context.Context, tx pgx.Tx, schedule []Installment) ([]Installment, error) {
	ret := m.Called(ctx, tx, schedule)
	if rf, ok := ret.Get(0).(func(context.Context, pgx.Tx, []Installment) []Installment); ok {
		return rf(ctx, tx, schedule), ret.Error(1)
	}
	var r0 []Installment
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]Installment)
	}
	return r0, ret.Error(1)
}

func (m *MockRepository) CountInstallmentsInTx(ctx context.Context, tx pgx.Tx, agreementID int64) (int, error) {
	ret := m.Called(ctx, tx, agreementID)
	return ret.Int(0), ret.Error(1)
}

func (m *MockRepository) GetInstallmentForUpdate(ctx context.Context, tx pgx.Tx, installmentID int64) (*Installment, error) {
	ret := m.Called(ctx, tx, installmentID)
	var r0 *Installment
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Installment)
	}
	return r0, ret.Error(1)
}

func (m *MockRepository) UpdateInstallmentPaymentInTx(ctx context.Context, tx pgx.Tx, inst *Installment) error {
	return m.Called(ctx, tx, inst).Error(0)
}

func (m *MockRepository) CountUnpaidInstallmentsInTx(ctx context.Context, tx pgx.Tx, agreementID int64) (int, int, error) {
	ret := m.Called(ctx, tx, agreementID)
	return ret.Int(0), ret.Int(1), ret.Error(2)
}

func (m *MockRepository) GetInstallmentsByAgreementID(ctx context.Context, agreementID int64) ([]Installment, error) {
	ret := m.Called(ctx, agreementID)
	var r0 []Installment
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]Installment)
	}
	return r0, ret.Error(1)
}

func (m *MockRepository) GetInstallmentByNumber(ctx context.Context, agreementID int64, number int) (*Installment, error) {
	ret := m.Called(ctx, agreementID, number)
	var r0 *Installment
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Installment)
	}
	return r0, ret.Error(1)
}

func (m *MockRepository) GetPendingInstallments(ctx context.Context, agreementID int64) ([]Installment, error) {
	ret := m.Called(ctx, agreementID)
	var r0 []Installment
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]Installment)
	}
	return r0, ret.Error(1)
}

func (m *MockRepository) GetOutstandingAmount(ctx context.Context, agreementID int64) (int64, error) {
	ret := m.Called(ctx, agreementID)
	return ret.Get(0).(int64), ret.Error(1)
}

func (m *MockRepository) CountPendingInstallments(ctx context.Context) (int, error) {
	ret := m.Called(ctx)
	return ret.Int(0), ret.Error(1)
}

func (m *MockRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	ret := m.Called(ctx)
	var r0 pgx.Tx
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(pgx.Tx)
	}
	return r0, ret.Error(1)
}

func (m *MockRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	return m.Called(ctx, tx).Error(0)
}

type MockStatusPublisher struct {
	mock.Mock
}

func (m *MockStatusPublisher) PublishAgreementStatusChanged(ctx context.Context, evt event.AgreementStatusChangedEvent) error {
	return m.Called(ctx, evt).Error(0)
}
