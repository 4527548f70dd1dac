package agreement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"loan-agreement-engine/internal/infrastructure/monitoring"
	"loan-agreement-engine/internal/pkg/apperrors"
	"loan-agreement-engine/internal/pkg/money"

	"github.com/jackc/pgx/v5"
)

type PaymentResult struct {
	Installment        *Installment
	AgreementCompleted bool
}

type Ledger interface {
	GenerateSchedule(ctx context.Context, agreementID int64) ([]Installment, error)
	RecordPayment(ctx context.Context, installmentID int64, amount int64) (*PaymentResult, error)
	GetPaymentHistory(ctx context.Context, agreementID int64) ([]Installment, error)
	GetInstallmentByNumber(ctx context.Context, agreementID int64, number int) (*Installment, error)
	GetPendingInstallments(ctx context.Context, agreementID int64) ([]Installment, error)
	GetOutstanding(ctx context.Context, agreementID int64) (int64, error)
	CountPendingInstallments(ctx context.Context) (int, error)
}

var _ Ledger = (*ledgerService)(nil)

type ledgerService struct {
	repo   Repository
	pub    StatusPublisher
	logger *slog.Logger
	now    func() time.Time
}

func NewLedgerService(repo Repository, pub StatusPublisher, logger *slog.Logger) Ledger {
	if repo == nil {
		panic("agreement repository cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewLedgerService, using default stderr handler")
	}
	return &ledgerService{
		repo:   repo,
		pub:    pub,
		logger: logger.With(slog.String("component", "installmentLedger")),
		now:    time.Now,
	}
}

// generateScheduleInTx inserts the installment rows of a finalized agreement.
// An agreement that already has a schedule is left untouched.
func generateScheduleInTx(ctx context.Context, tx pgx.Tx, repo Repository, a *Agreement) ([]Installment, error) {
	if a.FirstPaymentDate == nil {
		return nil, apperrors.NewValidationError("firstPaymentDate", "is required to generate a schedule")
	}
	if a.InstallmentCount < MinInstallmentCount || a.InstallmentCount > MaxInstallmentCount {
		return nil, apperrors.NewValidationError("installmentCount",
			fmt.Sprintf("must be between %d and %d", MinInstallmentCount, MaxInstallmentCount))
	}

	existing, err := repo.CountInstallmentsInTx(ctx, tx, a.ID)
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, fmt.Errorf("%w: agreement %d already has %d installments", apperrors.ErrConflict, a.ID, existing)
	}

	schedule := BuildSchedule(a.ID, *a.FirstPaymentDate, a.InstallmentCount, a.InstallmentAmount)
	return repo.InsertInstallmentsInTx(ctx, tx, schedule)
}

func (s *ledgerService) GenerateSchedule(ctx context.Context, agreementID int64) ([]Installment, error) {
	s.logger.InfoContext(ctx, "Generating installment schedule", "agreementID", agreementID)

	var schedule []Installment
	err := inTx(ctx, s.repo, s.logger, func(tx pgx.Tx) error {
		a, err := s.repo.GetAgreementForUpdate(ctx, tx, agreementID)
		if err != nil {
			return err
		}
		schedule, err = generateScheduleInTx(ctx, tx, s.repo, a)
		return err
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to generate schedule", "agreementID", agreementID, "error", err)
		return nil, err
	}
	return schedule, nil
}

func (s *ledgerService) RecordPayment(ctx context.Context, installmentID int64, amount int64) (result *PaymentResult, err error) {
	s.logger.InfoContext(ctx, "Recording payment", "installmentID", installmentID, "amount", amount)

	defer func() {
		status := "success"
		switch {
		case err == nil:
		case errors.Is(err, apperrors.ErrInvalidPaymentAmount):
			status = "failure_amount"
		case errors.Is(err, apperrors.ErrNotFound):
			status = "failure_not_found"
		case errors.Is(err, apperrors.ErrInvalidStateTransition):
			status = "failure_state"
		default:
			status = "failure_internal"
		}
		monitoring.RecordPayment(status)
	}()

	if !money.InRange(amount) {
		return nil, fmt.Errorf("%w: payment must be between 1 and %d, got %d", apperrors.ErrInvalidPaymentAmount, money.MaxAmount, amount)
	}

	now := s.now()
	var completed *Agreement
	result = &PaymentResult{}
	err = inTx(ctx, s.repo, s.logger, func(tx pgx.Tx) error {
		inst, err := s.repo.GetInstallmentForUpdate(ctx, tx, installmentID)
		if err != nil {
			return err
		}
		a, err := s.repo.GetAgreementForUpdate(ctx, tx, inst.AgreementID)
		if err != nil {
			return err
		}
		if a.Status == StatusDraft || a.Status == StatusCancelled {
			return fmt.Errorf("%w: agreement %d is %s and does not accept payments",
				apperrors.ErrInvalidStateTransition, a.ID, a.Status)
		}

		if err := inst.ApplyPayment(amount, now); err != nil {
			return err
		}
		if err := s.repo.UpdateInstallmentPaymentInTx(ctx, tx, inst); err != nil {
			return err
		}
		result.Installment = inst

		if a.Status != StatusActive {
			return nil
		}
		total, unpaid, err := s.repo.CountUnpaidInstallmentsInTx(ctx, tx, a.ID)
		if err != nil {
			return err
		}
		if total == 0 || unpaid > 0 {
			return nil
		}
		if err := a.transition(StatusCompleted); err != nil {
			return err
		}
		if err := s.repo.UpdateAgreementStatusInTx(ctx, tx, a.ID, StatusCompleted, nil); err != nil {
			return err
		}
		completed = a
		return nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Payment not recorded", "installmentID", installmentID, "error", err)
		return nil, err
	}

	if completed != nil {
		result.AgreementCompleted = true
		monitoring.RecordAgreement(string(StatusCompleted))
		publishStatus(ctx, s.pub, s.logger, completed, StatusActive, now)
		s.logger.InfoContext(ctx, "Agreement completed", "agreementID", completed.ID)
	}
	s.logger.InfoContext(ctx, "Payment recorded", "installmentID", installmentID,
		"paidAmount", result.Installment.PaidAmount, "status", result.Installment.Status)
	return result, nil
}

func (s *ledgerService) GetPaymentHistory(ctx context.Context, agreementID int64) ([]Installment, error) {
	s.logger.InfoContext(ctx, "Getting payment history", "agreementID", agreementID)
	schedule, err := s.repo.GetInstallmentsByAgreementID(ctx, agreementID)
	if err != nil {
		return nil, err
	}
	if len(schedule) == 0 {
		if _, err := s.repo.GetAgreementByID(ctx, agreementID); err != nil {
			return nil, err
		}
	}
	return schedule, nil
}

func (s *ledgerService) GetInstallmentByNumber(ctx context.Context, agreementID int64, number int) (*Installment, error) {
	if number < 1 {
		return nil, apperrors.NewValidationError("installmentNumber", "must be at least 1")
	}
	inst, err := s.repo.GetInstallmentByNumber(ctx, agreementID, number)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Installment not found", "agreementID", agreementID, "number", number)
		}
		return nil, err
	}
	return inst, nil
}

func (s *ledgerService) GetPendingInstallments(ctx context.Context, agreementID int64) ([]Installment, error) {
	return s.repo.GetPendingInstallments(ctx, agreementID)
}

func (s *ledgerService) GetOutstanding(ctx context.Context, agreementID int64) (int64, error) {
	if _, err := s.repo.GetAgreementByID(ctx, agreementID); err != nil {
		return 0, err
	}
	return s.repo.GetOutstandingAmount(ctx, agreementID)
}

func (s *ledgerService) CountPendingInstallments(ctx context.Context) (int, error) {
	return s.repo.CountPendingInstallments(ctx)
}
