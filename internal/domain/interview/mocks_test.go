package interview

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"loan-agreement-engine/internal/domain/agreement"
	"loan-agreement-engine/internal/domain/lender"
	"loan-agreement-engine/internal/domain/reminder"

	"github.com/stretchr/testify/mock"
)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

type MockLifecycle struct {
	mock.Mock
}

func (m *MockLifecycle) CreateDraft(ctx context.Context, req agreement.DraftRequest) (*agreement.Draft, error) {
	ret := m.Called(ctx, req)
	var r0 *agreement.Draft
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*agreement.Draft)
	}
	return r0, ret.Error(1)
}

func (m *MockLifecycle) Finalize(ctx context.Context, agreementID int64, terms agreement.Terms) (*agreement.Agreement, error) {
	ret := m.Called(ctx, agreementID, terms)
	var r0 *agreement.Agreement
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*agreement.Agreement)
	}
	return r0, ret.Error(1)
}

func (m *MockLifecycle) Activate(ctx context.Context, agreementID int64) (*agreement.Agreement, error) {
	ret := m.Called(ctx, agreementID)
	var r0 *agreement.Agreement
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*agreement.Agreement)
	}
	return r0, ret.Error(1)
}

func (m *MockLifecycle) Cancel(ctx context.Context, agreementID int64) (*agreement.Agreement, error) {
	ret := m.Called(ctx, agreementID)
	var r0 *agreement.Agreement
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*agreement.Agreement)
	}
	return r0, ret.Error(1)
}

func (m *MockLifecycle) Get(ctx context.Context, agreementID int64) (*agreement.Agreement, error) {
	ret := m.Called(ctx, agreementID)
	var r0 *agreement.Agreement
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*agreement.Agreement)
	}
	return r0, ret.Error(1)
}

func (m *MockLifecycle) FindPendingByBorrowerPhone(ctx context.Context, phone string) (*agreement.Agreement, error) {
	ret := m.Called(ctx, phone)
	var r0 *agreement.Agreement
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*agreement.Agreement)
	}
	return r0, ret.Error(1)
}

func (m *MockLifecycle) ListByLender(ctx context.Context, lenderID int64) ([]agreement.Agreement, error) {
	ret := m.Called(ctx, lenderID)
	var r0 []agreement.Agreement
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]agreement.Agreement)
	}
	return r0, ret.Error(1)
}

func (m *MockLifecycle) CountByStatus(ctx context.Context, status agreement.Status) (int, error) {
	ret := m.Called(ctx, status)
	return ret.Int(0), ret.Error(1)
}

type MockLenders struct {
	mock.Mock
}

func (m *MockLenders) GetOrCreateByPhone(ctx context.Context, phone, name string) (*lender.Lender, error) {
	ret := m.Called(ctx, phone, name)
	var r0 *lender.Lender
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*lender.Lender)
	}
	return r0, ret.Error(1)
}

func (m *MockLenders) GetLender(ctx context.Context, lenderID int64) (*lender.Lender, error) {
	ret := m.Called(ctx, lenderID)
	var r0 *lender.Lender
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*lender.Lender)
	}
	return r0, ret.Error(1)
}

func (m *MockLenders) FindByPhone(ctx context.Context, phone string) (*lender.Lender, error) {
	ret := m.Called(ctx, phone)
	var r0 *lender.Lender
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*lender.Lender)
	}
	return r0, ret.Error(1)
}

type MockLedger struct {
	mock.Mock
}

func installmentsOrNil(v any) []agreement.Installment {
	if v == nil {
		return nil
	}
	return v.([]agreement.Installment)
}

func (m *MockLedger) GenerateSchedule(ctx context.Context, agreementID int64) ([]agreement.Installment, error) {
	ret := m.Called(ctx, agreementID)
	return installmentsOrNil(ret.Get(0)), ret.Error(1)
}

func (m *MockLedger) RecordPayment(ctx context.Context, installmentID int64, amount int64) (*agreement.PaymentResult, error) {
	ret := m.Called(ctx, installmentID, amount)
	var r0 *agreement.PaymentResult
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*agreement.PaymentResult)
	}
	return r0, ret.Error(1)
}

func (m *MockLedger) GetPaymentHistory(ctx context.Context, agreementID int64) ([]agreement.Installment, error) {
	ret := m.Called(ctx, agreementID)
	return installmentsOrNil(ret.Get(0)), ret.Error(1)
}

func (m *MockLedger) GetInstallmentByNumber(ctx context.Context, agreementID int64, number int) (*agreement.Installment, error) {
	ret := m.Called(ctx, agreementID, number)
	var r0 *agreement.Installment
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*agreement.Installment)
	}
	return r0, ret.Error(1)
}

func (m *MockLedger) GetPendingInstallments(ctx context.Context, agreementID int64) ([]agreement.Installment, error) {
	ret := m.Called(ctx, agreementID)
	return installmentsOrNil(ret.Get(0)), ret.Error(1)
}

func (m *MockLedger) GetOutstanding(ctx context.Context, agreementID int64) (int64, error) {
	ret := m.Called(ctx, agreementID)
	return ret.Get(0).(int64), ret.Error(1)
}

func (m *MockLedger) CountPendingInstallments(ctx context.Context) (int, error) {
	ret := m.Called(ctx)
	return ret.Int(0), ret.Error(1)
}

type MockReminders struct {
	mock.Mock
}

func (m *MockReminders) GetDue(ctx context.Context, daysBeforeDue, limit int) ([]reminder.Job, error) {
	ret := m.Called(ctx, daysBeforeDue, limit)
	var r0 []reminder.Job
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]reminder.Job)
	}
	return r0, ret.Error(1)
}

func (m *MockReminders) GetDueByPolicy(ctx context.Context) ([]reminder.Job, error) {
	ret := m.Called(ctx)
	var r0 []reminder.Job
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]reminder.Job)
	}
	return r0, ret.Error(1)
}

func (m *MockReminders) MarkSent(ctx context.Context, jobID string) error {
	return m.Called(ctx, jobID).Error(0)
}

func (m *MockReminders) CreateDebt(ctx context.Context, req reminder.DebtRequest) (*reminder.Debt, error) {
	ret := m.Called(ctx, req)
	var r0 *reminder.Debt
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*reminder.Debt)
	}
	return r0, ret.Error(1)
}

func (m *MockReminders) MarkDebtPaid(ctx context.Context, debtID int64) error {
	return m.Called(ctx, debtID).Error(0)
}

func (m *MockReminders) DebtStats(ctx context.Context) (reminder.DebtStats, error) {
	ret := m.Called(ctx)
	return ret.Get(0).(reminder.DebtStats), ret.Error(1)
}

func (m *MockReminders) OwnerSummary(ctx context.Context, ownerID int64) (*reminder.OwnerSummary, error) {
	ret := m.Called(ctx, ownerID)
	var r0 *reminder.OwnerSummary
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*reminder.OwnerSummary)
	}
	return r0, ret.Error(1)
}

func (m *MockReminders) Policy() reminder.Policy {
	return m.Called().Get(0).(reminder.Policy)
}

type sentMessage struct {
	To   string
	Text string
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (s *recordingSender) Send(_ context.Context, to, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMessage{To: to, Text: text})
	return s.err
}

func (s *recordingSender) last() sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return sentMessage{}
	}
	return s.sent[len(s.sent)-1]
}

func (s *recordingSender) to(phone string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, m := range s.sent {
		if m.To == phone {
			out = append(out, m.Text)
		}
	}
	return out
}
