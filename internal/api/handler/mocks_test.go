package handler_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"

	"loan-agreement-engine/internal/domain/agreement"
	"loan-agreement-engine/internal/domain/reminder"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func withURLParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

type MockLifecycle struct {
	mock.Mock
}

func (_m *MockLifecycle) CreateDraft(ctx context.Context, req agreement.DraftRequest) (*agreement.Draft, error) {
	ret := _m.Called(ctx, req)
	var r0 *agreement.Draft
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*agreement.Draft)
	}
	return r0, ret.Error(1)
}

func (_m *MockLifecycle) Finalize(ctx context.Context, agreementID int64, terms agreement.Terms) (*agreement.Agreement, error) {
	ret := _m.Called(ctx, agreementID, terms)
	return agreementOrNil(ret.Get(0)), ret.Error(1)
}

func (_m *MockLifecycle) Activate(ctx context.Context, agreementID int64) (*agreement.Agreement, error) {
	ret := _m.Called(ctx, agreementID)
	return agreementOrNil(ret.Get(0)), ret.Error(1)
}

func (_m *MockLifecycle) Cancel(ctx context.Context, agreementID int64) (*agreement.Agreement, error) {
	ret := _m.Called(ctx, agreementID)
	return agreementOrNil(ret.Get(0)), ret.Error(1)
}

func (_m *MockLifecycle) Get(ctx context.Context, agreementID int64) (*agreement.Agreement, error) {
	ret := _m.Called(ctx, agreementID)
	return agreementOrNil(ret.Get(0)), ret.Error(1)
}

func (_m *MockLifecycle) FindPendingByBorrowerPhone(ctx context.Context, phone string) (*agreement.Agreement, error) {
	ret := _m.Called(ctx, phone)
	return agreementOrNil(ret.Get(0)), ret.Error(1)
}

func (_m *MockLifecycle) ListByLender(ctx context.Context, lenderID int64) ([]agreement.Agreement, error) {
	ret := _m.Called(ctx, lenderID)
	var r0 []agreement.Agreement
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]agreement.Agreement)
	}
	return r0, ret.Error(1)
}

func (_m *MockLifecycle) CountByStatus(ctx context.Context, status agreement.Status) (int, error) {
	ret := _m.Called(ctx, status)
	return ret.Int(0), ret.Error(1)
}

func agreementOrNil(v any) *agreement.Agreement {
	if v == nil {
		return nil
	}
	return v.(*agreement.Agreement)
}

type MockLedger struct {
	mock.Mock
}

func (_m *MockLedger) GenerateSchedule(ctx context.Context, agreementID int64) ([]agreement.Installment, error) {
	ret := _m.Called(ctx, agreementID)
	return installmentsOrNil(ret.Get(0)), ret.Error(1)
}

func (_m *MockLedger) RecordPayment(ctx context.Context, installmentID int64, amount int64) (*agreement.PaymentResult, error) {
	ret := _m.Called(ctx, installmentID, amount)
	var r0 *agreement.PaymentResult
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*agreement.PaymentResult)
	}
	return r0, ret.Error(1)
}

func (_m *MockLedger) GetPaymentHistory(ctx context.Context, agreementID int64) ([]agreement.Installment, error) {
	ret := _m.Called(ctx, agreementID)
	return installmentsOrNil(ret.Get(0)), ret.Error(1)
}

func (_m *MockLedger) GetInstallmentByNumber(ctx context.Context, agreementID int64, number int) (*agreement.Installment, error) {
	ret := _m.Called(ctx, agreementID, number)
	var r0 *agreement.Installment
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*agreement.Installment)
	}
	return r0, ret.Error(1)
}

func (_m *MockLedger) GetPendingInstallments(ctx context.Context, agreementID int64) ([]agreement.Installment, error) {
	ret := _m.Called(ctx, agreementID)
	return installmentsOrNil(ret.Get(0)), ret.Error(1)
}

func (_m *MockLedger) GetOutstanding(ctx context.Context, agreementID int64) (int64, error) {
	ret := _m.Called(ctx, agreementID)
	return ret.Get(0).(int64), ret.Error(1)
}

func (_m *MockLedger) CountPendingInstallments(ctx context.Context) (int, error) {
	ret := _m.Called(ctx)
	return ret.Int(0), ret.Error(1)
}

func installmentsOrNil(v any) []agreement.Installment {
	if v == nil {
		return nil
	}
	return v.([]agreement.Installment)
}

type MockEngine struct {
	mock.Mock
}

func (_m *MockEngine) GetDue(ctx context.Context, daysBeforeDue, limit int) ([]reminder.Job, error) {
	ret := _m.Called(ctx, daysBeforeDue, limit)
	return jobsOrNil(ret.Get(0)), ret.Error(1)
}

func (_m *MockEngine) GetDueByPolicy(ctx context.Context) ([]reminder.Job, error) {
	ret := _m.Called(ctx)
	return jobsOrNil(ret.Get(0)), ret.Error(1)
}

func (_m *MockEngine) MarkSent(ctx context.Context, jobID string) error {
	return _m.Called(ctx, jobID).Error(0)
}

func (_m *MockEngine) CreateDebt(ctx context.Context, req reminder.DebtRequest) (*reminder.Debt, error) {
	ret := _m.Called(ctx, req)
	var r0 *reminder.Debt
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*reminder.Debt)
	}
	return r0, ret.Error(1)
}

func (_m *MockEngine) MarkDebtPaid(ctx context.Context, debtID int64) error {
	return _m.Called(ctx, debtID).Error(0)
}

func (_m *MockEngine) DebtStats(ctx context.Context) (reminder.DebtStats, error) {
	ret := _m.Called(ctx)
	return ret.Get(0).(reminder.DebtStats), ret.Error(1)
}

func (_m *MockEngine) OwnerSummary(ctx context.Context, ownerID int64) (*reminder.OwnerSummary, error) {
	ret := _m.Called(ctx, ownerID)
	var r0 *reminder.OwnerSummary
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*reminder.OwnerSummary)
	}
	return r0, ret.Error(1)
}

func (_m *MockEngine) Policy() reminder.Policy {
	return _m.Called().Get(0).(reminder.Policy)
}

func jobsOrNil(v any) []reminder.Job {
	if v == nil {
		return nil
	}
	return v.([]reminder.Job)
}

type MockDispatcher struct {
	mock.Mock
}

func (_m *MockDispatcher) Handle(ctx context.Context, from, text string) (bool, error) {
	ret := _m.Called(ctx, from, text)
	return ret.Bool(0), ret.Error(1)
}
