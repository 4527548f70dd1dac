package agreement

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"loan-agreement-engine/internal/domain/affordability"
	"loan-agreement-engine/internal/event"
	"loan-agreement-engine/internal/pkg/apperrors"
	"loan-agreement-engine/internal/pkg/money"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func newTestLifecycle(repo *MockRepository, pub StatusPublisher) *lifecycleService {
	s := NewLifecycleService(repo, pub, logger).(*lifecycleService)
	s.now = func() time.Time { return fixedNow }
	return s
}

func draftRequest() DraftRequest {
	income := int64(5_000_000)
	return DraftRequest{
		LenderID:      3,
		BorrowerName:  "Budi",
		BorrowerPhone: "081234567890",
		TotalAmount:   2_000_000,
		IncomeSource:  IncomeSalary,
		MonthlyIncome: &income,
	}
}

func TestCreateDraft_StoresRecommendation(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestLifecycle(mockRepo, nil)
	ctx := context.Background()
	tx := &TxMock{}

	mockRepo.On("BeginTx", ctx).Return(tx, nil)
	mockRepo.On("CreateAgreementInTx", ctx, tx, mock.MatchedBy(func(a *Agreement) bool {
		return a.Status == StatusDraft && a.InstallmentAmount == 1_000_000 && a.InstallmentCount == 2 &&
			a.LenderID == 3 && a.CreatedAt.Equal(fixedNow)
	})).Return(&Agreement{ID: 11, Status: StatusDraft, InstallmentAmount: 1_000_000, InstallmentCount: 2}, nil)
	mockRepo.On("CommitTx", ctx, tx).Return(nil)

	draft, err := service.CreateDraft(ctx, draftRequest())

	require.NoError(t, err)
	assert.Equal(t, int64(11), draft.Agreement.ID)
	assert.Equal(t, affordability.Comfortable, draft.Recommendation.Affordability)
	assert.Equal(t, 2, draft.Recommendation.Months)
	mockRepo.AssertExpectations(t)
}

func TestCreateDraft_OverrideKeepsAmendedSchedule(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestLifecycle(mockRepo, nil)
	ctx := context.Background()
	tx := &TxMock{}

	req := draftRequest()
	req.Override = &ScheduleOverride{InstallmentAmount: 300_000, Months: 7}

	mockRepo.On("BeginTx", ctx).Return(tx, nil)
	mockRepo.On("CreateAgreementInTx", ctx, tx, mock.MatchedBy(func(a *Agreement) bool {
		return a.InstallmentAmount == 300_000 && a.InstallmentCount == 7
	})).Return(&Agreement{ID: 12, InstallmentAmount: 300_000, InstallmentCount: 7}, nil)
	mockRepo.On("CommitTx", ctx, tx).Return(nil)

	draft, err := service.CreateDraft(ctx, req)

	require.NoError(t, err)
	assert.Equal(t, 7, draft.Agreement.InstallmentCount)
	assert.Equal(t, int64(1_000_000), draft.Recommendation.InstallmentAmount)
	mockRepo.AssertExpectations(t)
}

func TestCreateDraft_SkippedIncomeUsesLoanAmount(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestLifecycle(mockRepo, nil)
	ctx := context.Background()
	tx := &TxMock{}

	req := draftRequest()
	req.MonthlyIncome = nil

	mockRepo.On("BeginTx", ctx).Return(tx, nil)
	mockRepo.On("CreateAgreementInTx", ctx, tx, mock.MatchedBy(func(a *Agreement) bool {
		return a.MonthlyIncome == nil && a.InstallmentAmount == 500_000 && a.InstallmentCount == 4
	})).Return(&Agreement{ID: 13}, nil)
	mockRepo.On("CommitTx", ctx, tx).Return(nil)

	_, err := service.CreateDraft(ctx, req)

	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestCreateDraft_RejectsInvalidInput(t *testing.T) {
	zero := int64(0)
	huge := money.MaxAmount + 1
	tests := []struct {
		name   string
		mutate func(r *DraftRequest)
		want   error
	}{
		{"bad phone", func(r *DraftRequest) { r.BorrowerPhone = "12ab" }, apperrors.ErrValidation},
		{"blank name", func(r *DraftRequest) { r.BorrowerName = "  " }, apperrors.ErrValidation},
		{"unknown income source", func(r *DraftRequest) { r.IncomeSource = "HADIAH" }, apperrors.ErrValidation},
		{"zero income", func(r *DraftRequest) { r.MonthlyIncome = &zero }, apperrors.ErrValidation},
		{"negative debts", func(r *DraftRequest) { r.OtherDebts = -1 }, apperrors.ErrValidation},
		{"total above limit", func(r *DraftRequest) { r.TotalAmount = math.MaxInt64 - 10 }, apperrors.ErrValidation},
		{"income above limit", func(r *DraftRequest) { r.MonthlyIncome = &huge }, apperrors.ErrValidation},
		{"debts above limit", func(r *DraftRequest) { r.OtherDebts = huge }, apperrors.ErrValidation},
		{"override not covering", func(r *DraftRequest) {
			r.Override = &ScheduleOverride{InstallmentAmount: 100_000, Months: 2}
		}, apperrors.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockRepository)
			service := newTestLifecycle(mockRepo, nil)
			req := draftRequest()
			tt.mutate(&req)

			_, err := service.CreateDraft(context.Background(), req)

			assert.ErrorIs(t, err, tt.want)
			mockRepo.AssertNotCalled(t, "BeginTx", mock.Anything)
		})
	}
}

func TestCreateDraft_RollsBackOnInsertFailure(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestLifecycle(mockRepo, nil)
	ctx := context.Background()
	tx := &TxMock{}
	dbErr := apperrors.WrapDatabaseError(errors.New("connection reset"), "insert agreement")

	mockRepo.On("BeginTx", ctx).Return(tx, nil)
	mockRepo.On("CreateAgreementInTx", ctx, tx, mock.Anything).Return(nil, dbErr)
	mockRepo.On("RollbackTx", ctx, tx).Return(nil)

	_, err := service.CreateDraft(ctx, draftRequest())

	assert.ErrorIs(t, err, apperrors.ErrDatabase)
	mockRepo.AssertExpectations(t)
	mockRepo.AssertNotCalled(t, "CommitTx", mock.Anything, mock.Anything)
}

func TestFinalize_PersistsTermsAndSchedule(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestLifecycle(mockRepo, nil)
	ctx := context.Background()
	tx := &TxMock{}
	a := &Agreement{ID: 21, Status: StatusDraft, TotalAmount: 1_000_000, InstallmentAmount: 250_000, InstallmentCount: 4}
	first := time.Date(2026, 11, 5, 0, 0, 0, 0, time.UTC)

	mockRepo.On("BeginTx", ctx).Return(tx, nil)
	mockRepo.On("GetAgreementForUpdate", ctx, tx, int64(21)).Return(a, nil)
	mockRepo.On("UpdateAgreementTermsInTx", ctx, tx, a).Return(nil)
	mockRepo.On("CountInstallmentsInTx", ctx, tx, int64(21)).Return(0, nil)
	mockRepo.On("InsertInstallmentsInTx", ctx, tx, mock.Anything).Return(
		func(_ context.Context, _ pgx.Tx, schedule []Installment) []Installment {
			for i := range schedule {
				schedule[i].ID = int64(100 + i)
			}
			return schedule
		}, nil)
	mockRepo.On("CommitTx", ctx, tx).Return(nil)

	finalized, err := service.Finalize(ctx, 21, Terms{PaymentDay: 5, FirstPaymentDate: first})

	require.NoError(t, err)
	assert.Equal(t, StatusDraft, finalized.Status)
	assert.Equal(t, 5, finalized.PaymentDay)
	require.NotNil(t, finalized.FirstPaymentDate)
	assert.Equal(t, first, *finalized.FirstPaymentDate)
	require.Len(t, finalized.Installments, 4)
	assert.Equal(t, int64(103), finalized.Installments[3].ID)
	assert.Equal(t, time.Date(2027, 2, 5, 0, 0, 0, 0, time.UTC), finalized.Installments[3].DueDate)
	mockRepo.AssertExpectations(t)
}

func TestFinalize_RejectsNonDraft(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestLifecycle(mockRepo, nil)
	ctx := context.Background()
	tx := &TxMock{}

	mockRepo.On("BeginTx", ctx).Return(tx, nil)
	mockRepo.On("GetAgreementForUpdate", ctx, tx, int64(22)).Return(&Agreement{ID: 22, Status: StatusActive}, nil)
	mockRepo.On("RollbackTx", ctx, tx).Return(nil)

	_, err := service.Finalize(ctx, 22, Terms{PaymentDay: 5, FirstPaymentDate: fixedNow})

	assert.ErrorIs(t, err, apperrors.ErrInvalidStateTransition)
	mockRepo.AssertExpectations(t)
}

func TestFinalize_ExistingScheduleConflicts(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestLifecycle(mockRepo, nil)
	ctx := context.Background()
	tx := &TxMock{}
	a := &Agreement{ID: 23, Status: StatusDraft, InstallmentAmount: 500_000, InstallmentCount: 2, TotalAmount: 1_000_000}

	mockRepo.On("BeginTx", ctx).Return(tx, nil)
	mockRepo.On("GetAgreementForUpdate", ctx, tx, int64(23)).Return(a, nil)
	mockRepo.On("UpdateAgreementTermsInTx", ctx, tx, a).Return(nil)
	mockRepo.On("CountInstallmentsInTx", ctx, tx, int64(23)).Return(2, nil)
	mockRepo.On("RollbackTx", ctx, tx).Return(nil)

	_, err := service.Finalize(ctx, 23, Terms{PaymentDay: 1, FirstPaymentDate: fixedNow})

	assert.ErrorIs(t, err, apperrors.ErrConflict)
	mockRepo.AssertNotCalled(t, "InsertInstallmentsInTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestFinalize_ValidatesTerms(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestLifecycle(mockRepo, nil)

	_, err := service.Finalize(context.Background(), 1, Terms{PaymentDay: 32, FirstPaymentDate: fixedNow})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = service.Finalize(context.Background(), 1, Terms{PaymentDay: 3, FirstPaymentDate: fixedNow, InterestRate: -0.5})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	mockRepo.AssertNotCalled(t, "BeginTx", mock.Anything)
}

func TestActivate_FromDraft(t *testing.T) {
	mockRepo := new(MockRepository)
	mockPub := new(MockStatusPublisher)
	service := newTestLifecycle(mockRepo, mockPub)
	ctx := context.Background()
	tx := &TxMock{}
	first := fixedNow
	a := &Agreement{ID: 31, LenderID: 3, BorrowerPhone: "081234567890", Status: StatusDraft, FirstPaymentDate: &first}

	mockRepo.On("BeginTx", ctx).Return(tx, nil)
	mockRepo.On("GetAgreementForUpdate", ctx, tx, int64(31)).Return(a, nil)
	mockRepo.On("UpdateAgreementStatusInTx", ctx, tx, int64(31), StatusActive, &fixedNow).Return(nil)
	mockRepo.On("CommitTx", ctx, tx).Return(nil)
	mockPub.On("PublishAgreementStatusChanged", ctx, event.AgreementStatusChangedEvent{
		AgreementID:   31,
		LenderID:      3,
		BorrowerPhone: "081234567890",
		OldStatus:     "draft",
		NewStatus:     "active",
		Timestamp:     fixedNow,
	}).Return(nil)

	activated, err := service.Activate(ctx, 31)

	require.NoError(t, err)
	assert.Equal(t, StatusActive, activated.Status)
	require.NotNil(t, activated.SignedAt)
	mockRepo.AssertExpectations(t)
	mockPub.AssertExpectations(t)
}

func TestActivate_AlreadyActiveIsIdempotent(t *testing.T) {
	mockRepo := new(MockRepository)
	mockPub := new(MockStatusPublisher)
	service := newTestLifecycle(mockRepo, mockPub)
	ctx := context.Background()
	tx := &TxMock{}
	signed := fixedNow.Add(-time.Hour)

	mockRepo.On("BeginTx", ctx).Return(tx, nil)
	mockRepo.On("GetAgreementForUpdate", ctx, tx, int64(32)).Return(&Agreement{ID: 32, Status: StatusActive, SignedAt: &signed}, nil)
	mockRepo.On("CommitTx", ctx, tx).Return(nil)

	activated, err := service.Activate(ctx, 32)

	require.NoError(t, err)
	assert.Equal(t, signed, *activated.SignedAt)
	mockRepo.AssertNotCalled(t, "UpdateAgreementStatusInTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mockPub.AssertNotCalled(t, "PublishAgreementStatusChanged", mock.Anything, mock.Anything)
}

func TestActivate_RejectsTerminalStatuses(t *testing.T) {
	for _, status := range []Status{StatusCancelled, StatusCompleted} {
		t.Run(string(status), func(t *testing.T) {
			mockRepo := new(MockRepository)
			service := newTestLifecycle(mockRepo, nil)
			ctx := context.Background()
			tx := &TxMock{}

			mockRepo.On("BeginTx", ctx).Return(tx, nil)
			mockRepo.On("GetAgreementForUpdate", ctx, tx, int64(33)).Return(&Agreement{ID: 33, Status: status, FirstPaymentDate: &fixedNow}, nil)
			mockRepo.On("RollbackTx", ctx, tx).Return(nil)

			_, err := service.Activate(ctx, 33)

			assert.ErrorIs(t, err, apperrors.ErrInvalidStateTransition)
			var te *apperrors.TransitionError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, string(status), te.From)
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestActivate_RequiresFinalizedDraft(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestLifecycle(mockRepo, nil)
	ctx := context.Background()
	tx := &TxMock{}

	mockRepo.On("BeginTx", ctx).Return(tx, nil)
	mockRepo.On("GetAgreementForUpdate", ctx, tx, int64(34)).Return(&Agreement{ID: 34, Status: StatusDraft}, nil)
	mockRepo.On("RollbackTx", ctx, tx).Return(nil)

	_, err := service.Activate(ctx, 34)

	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestCancel(t *testing.T) {
	for _, from := range []Status{StatusDraft, StatusActive} {
		t.Run(string(from), func(t *testing.T) {
			mockRepo := new(MockRepository)
			service := newTestLifecycle(mockRepo, nil)
			ctx := context.Background()
			tx := &TxMock{}

			mockRepo.On("BeginTx", ctx).Return(tx, nil)
			mockRepo.On("GetAgreementForUpdate", ctx, tx, int64(41)).Return(&Agreement{ID: 41, Status: from}, nil)
			mockRepo.On("UpdateAgreementStatusInTx", ctx, tx, int64(41), StatusCancelled, (*time.Time)(nil)).Return(nil)
			mockRepo.On("CommitTx", ctx, tx).Return(nil)

			cancelled, err := service.Cancel(ctx, 41)

			require.NoError(t, err)
			assert.Equal(t, StatusCancelled, cancelled.Status)
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestCancel_AlreadyCancelled(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestLifecycle(mockRepo, nil)
	ctx := context.Background()
	tx := &TxMock{}

	mockRepo.On("BeginTx", ctx).Return(tx, nil)
	mockRepo.On("GetAgreementForUpdate", ctx, tx, int64(42)).Return(&Agreement{ID: 42, Status: StatusCancelled}, nil)
	mockRepo.On("RollbackTx", ctx, tx).Return(nil)

	_, err := service.Cancel(ctx, 42)

	assert.ErrorIs(t, err, apperrors.ErrInvalidStateTransition)
}

func TestGet(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestLifecycle(mockRepo, nil)
	ctx := context.Background()
	schedule := []Installment{{ID: 1, InstallmentNumber: 1}, {ID: 2, InstallmentNumber: 2}}

	mockRepo.On("GetAgreementByID", ctx, int64(51)).Return(&Agreement{ID: 51}, nil)
	mockRepo.On("GetInstallmentsByAgreementID", ctx, int64(51)).Return(schedule, nil)
	mockRepo.On("GetAgreementByID", ctx, int64(52)).Return(nil, fmt.Errorf("%w: agreement 52", apperrors.ErrNotFound))

	a, err := service.Get(ctx, 51)
	require.NoError(t, err)
	assert.Len(t, a.Installments, 2)

	_, err = service.Get(ctx, 52)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestFindPendingByBorrowerPhone_Normalizes(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestLifecycle(mockRepo, nil)
	ctx := context.Background()

	mockRepo.On("FindLatestDraftByBorrowerPhone", ctx, "081234567890").Return(&Agreement{ID: 61}, nil)

	a, err := service.FindPendingByBorrowerPhone(ctx, "0812-3456-7890")

	require.NoError(t, err)
	assert.Equal(t, int64(61), a.ID)
}
