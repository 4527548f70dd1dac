package agreement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"loan-agreement-engine/internal/domain/affordability"
	"loan-agreement-engine/internal/infrastructure/monitoring"
	"loan-agreement-engine/internal/pkg/apperrors"
	"loan-agreement-engine/internal/pkg/money"

	"github.com/jackc/pgx/v5"
)

var phonePattern = regexp.MustCompile(`^\d{10,13}$`)

// NormalizePhone strips separators commonly typed into chat.
func NormalizePhone(s string) string {
	return strings.NewReplacer(" ", "", "-", "", "+", "", ".", "").Replace(strings.TrimSpace(s))
}

func ValidPhone(s string) bool {
	return phonePattern.MatchString(s)
}

type DraftRequest struct {
	LenderID      int64
	BorrowerName  string
	BorrowerPhone string
	TotalAmount   int64
	IncomeSource  IncomeSource
	MonthlyIncome *int64
	OtherDebts    int64
	// Override replaces the recommended schedule, e.g. after the lender
	// amended the installment amount.
	Override *ScheduleOverride
}

type ScheduleOverride struct {
	InstallmentAmount int64
	Months            int
}

type Draft struct {
	Agreement      *Agreement
	Recommendation affordability.Result
}

type Terms struct {
	PaymentDay       int
	FirstPaymentDate time.Time
	InterestRate     float64
}

type LifecycleManager interface {
	CreateDraft(ctx context.Context, req DraftRequest) (*Draft, error)
	Finalize(ctx context.Context, agreementID int64, terms Terms) (*Agreement, error)
	Activate(ctx context.Context, agreementID int64) (*Agreement, error)
	Cancel(ctx context.Context, agreementID int64) (*Agreement, error)
	Get(ctx context.Context, agreementID int64) (*Agreement, error)
	FindPendingByBorrowerPhone(ctx context.Context, phone string) (*Agreement, error)
	ListByLender(ctx context.Context, lenderID int64) ([]Agreement, error)
	CountByStatus(ctx context.Context, status Status) (int, error)
}

var _ LifecycleManager = (*lifecycleService)(nil)

type lifecycleService struct {
	repo   Repository
	pub    StatusPublisher
	logger *slog.Logger
	now    func() time.Time
}

func NewLifecycleService(repo Repository, pub StatusPublisher, logger *slog.Logger) LifecycleManager {
	if repo == nil {
		panic("agreement repository cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewLifecycleService, using default stderr handler")
	}
	return &lifecycleService{
		repo:   repo,
		pub:    pub,
		logger: logger.With(slog.String("component", "agreementLifecycle")),
		now:    time.Now,
	}
}

func (s *lifecycleService) CreateDraft(ctx context.Context, req DraftRequest) (*Draft, error) {
	s.logger.InfoContext(ctx, "Creating draft agreement", "lenderID", req.LenderID, "totalAmount", req.TotalAmount)

	if strings.TrimSpace(req.BorrowerName) == "" {
		return nil, apperrors.NewValidationError("borrowerName", "must not be empty")
	}
	if !ValidPhone(req.BorrowerPhone) {
		return nil, apperrors.NewValidationError("borrowerPhone", "must be 10 to 13 digits")
	}
	if _, ok := ParseIncomeSource(string(req.IncomeSource)); !ok {
		return nil, apperrors.NewValidationError("incomeSource", "must be GAJI, BISNIS or LAINNYA")
	}
	if !money.InRange(req.TotalAmount) {
		return nil, apperrors.NewValidationError("totalAmount", fmt.Sprintf("must be between 1 and %d", money.MaxAmount))
	}
	if req.MonthlyIncome != nil && !money.InRange(*req.MonthlyIncome) {
		return nil, apperrors.NewValidationError("monthlyIncome", fmt.Sprintf("must be between 1 and %d when provided", money.MaxAmount))
	}
	if req.OtherDebts < 0 || req.OtherDebts > money.MaxAmount {
		return nil, apperrors.NewValidationError("otherDebts", fmt.Sprintf("must be between 0 and %d", money.MaxAmount))
	}

	// A skipped income is assessed against the loan amount itself.
	income := req.TotalAmount
	if req.MonthlyIncome != nil {
		income = *req.MonthlyIncome
	}
	rec, err := affordability.Calculate(income, req.OtherDebts, req.TotalAmount)
	if err != nil {
		s.logger.WarnContext(ctx, "Affordability calculation rejected input", "error", err)
		return nil, err
	}

	a := &Agreement{
		LenderID:          req.LenderID,
		BorrowerName:      strings.TrimSpace(req.BorrowerName),
		BorrowerPhone:     req.BorrowerPhone,
		TotalAmount:       req.TotalAmount,
		IncomeSource:      req.IncomeSource,
		MonthlyIncome:     req.MonthlyIncome,
		OtherDebts:        req.OtherDebts,
		InstallmentAmount: rec.InstallmentAmount,
		InstallmentCount:  rec.Months,
		Status:            StatusDraft,
		CreatedAt:         s.now(),
	}
	if req.Override != nil {
		a.InstallmentAmount = req.Override.InstallmentAmount
		a.InstallmentCount = req.Override.Months
	}
	if err := a.validateTerms(); err != nil {
		return nil, err
	}

	var created *Agreement
	err = inTx(ctx, s.repo, s.logger, func(tx pgx.Tx) error {
		var txErr error
		created, txErr = s.repo.CreateAgreementInTx(ctx, tx, a)
		return txErr
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist draft agreement", "error", err)
		return nil, fmt.Errorf("failed to create draft agreement: %w", err)
	}

	monitoring.RecordAgreement(string(StatusDraft))
	s.logger.InfoContext(ctx, "Draft agreement created", "agreementID", created.ID,
		"installmentAmount", created.InstallmentAmount, "installmentCount", created.InstallmentCount)
	return &Draft{Agreement: created, Recommendation: rec}, nil
}

func (s *lifecycleService) Finalize(ctx context.Context, agreementID int64, terms Terms) (*Agreement, error) {
	s.logger.InfoContext(ctx, "Finalizing agreement", "agreementID", agreementID, "paymentDay", terms.PaymentDay)

	if terms.PaymentDay < 1 || terms.PaymentDay > 31 {
		return nil, apperrors.NewValidationError("paymentDay", "must be between 1 and 31")
	}
	if terms.InterestRate < 0 {
		return nil, apperrors.NewValidationError("interestRate", "must not be negative")
	}
	if terms.FirstPaymentDate.IsZero() {
		return nil, apperrors.NewValidationError("firstPaymentDate", "is required")
	}

	var finalized *Agreement
	err := inTx(ctx, s.repo, s.logger, func(tx pgx.Tx) error {
		a, err := s.repo.GetAgreementForUpdate(ctx, tx, agreementID)
		if err != nil {
			return err
		}
		if a.Status != StatusDraft {
			return fmt.Errorf("%w: agreement %d is %s, only drafts can be finalized",
				apperrors.ErrInvalidStateTransition, agreementID, a.Status)
		}

		first := DateOf(terms.FirstPaymentDate)
		a.PaymentDay = terms.PaymentDay
		a.FirstPaymentDate = &first
		a.InterestRate = terms.InterestRate
		if err := s.repo.UpdateAgreementTermsInTx(ctx, tx, a); err != nil {
			return err
		}

		schedule, err := generateScheduleInTx(ctx, tx, s.repo, a)
		if err != nil {
			return err
		}
		a.Installments = schedule
		finalized = a
		return nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to finalize agreement", "agreementID", agreementID, "error", err)
		return nil, fmt.Errorf("failed to finalize agreement %d: %w", agreementID, err)
	}

	s.logger.InfoContext(ctx, "Agreement finalized", "agreementID", agreementID, "installments", len(finalized.Installments))
	return finalized, nil
}

func (s *lifecycleService) Activate(ctx context.Context, agreementID int64) (*Agreement, error) {
	return s.changeStatus(ctx, agreementID, StatusActive)
}

func (s *lifecycleService) Cancel(ctx context.Context, agreementID int64) (*Agreement, error) {
	return s.changeStatus(ctx, agreementID, StatusCancelled)
}

func (s *lifecycleService) changeStatus(ctx context.Context, agreementID int64, to Status) (*Agreement, error) {
	s.logger.InfoContext(ctx, "Changing agreement status", "agreementID", agreementID, "to", to)

	var (
		updated *Agreement
		from    Status
		changed bool
	)
	now := s.now()
	err := inTx(ctx, s.repo, s.logger, func(tx pgx.Tx) error {
		a, err := s.repo.GetAgreementForUpdate(ctx, tx, agreementID)
		if err != nil {
			return err
		}
		updated, from = a, a.Status

		// Duplicate consent replies are absorbed.
		if to == StatusActive && a.Status == StatusActive {
			return nil
		}
		if to == StatusActive && a.FirstPaymentDate == nil {
			return apperrors.NewValidationError("agreement", "has not been finalized")
		}
		if err := a.transition(to); err != nil {
			return err
		}

		var signedAt *time.Time
		if to == StatusActive {
			signedAt = &now
			a.SignedAt = signedAt
		}
		if err := s.repo.UpdateAgreementStatusInTx(ctx, tx, agreementID, to, signedAt); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidStateTransition) {
			s.logger.WarnContext(ctx, "Rejected agreement status change", "agreementID", agreementID, "to", to, "error", err)
		} else {
			s.logger.ErrorContext(ctx, "Failed to change agreement status", "agreementID", agreementID, "error", err)
		}
		return nil, err
	}

	if changed {
		monitoring.RecordAgreement(string(to))
		publishStatus(ctx, s.pub, s.logger, updated, from, now)
		s.logger.InfoContext(ctx, "Agreement status changed", "agreementID", agreementID, "from", from, "to", to)
	}
	return updated, nil
}

func (s *lifecycleService) Get(ctx context.Context, agreementID int64) (*Agreement, error) {
	s.logger.InfoContext(ctx, "Getting agreement", "agreementID", agreementID)
	a, err := s.repo.GetAgreementByID(ctx, agreementID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Agreement not found", "agreementID", agreementID)
		}
		return nil, err
	}

	schedule, err := s.repo.GetInstallmentsByAgreementID(ctx, agreementID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to get agreement schedule", "agreementID", agreementID, "error", err)
		return nil, err
	}
	a.Installments = schedule
	return a, nil
}

func (s *lifecycleService) FindPendingByBorrowerPhone(ctx context.Context, phone string) (*Agreement, error) {
	return s.repo.FindLatestDraftByBorrowerPhone(ctx, NormalizePhone(phone))
}

func (s *lifecycleService) ListByLender(ctx context.Context, lenderID int64) ([]Agreement, error) {
	return s.repo.ListAgreementsByLender(ctx, lenderID)
}

func (s *lifecycleService) CountByStatus(ctx context.Context, status Status) (int, error) {
	return s.repo.CountAgreementsByStatus(ctx, status)
}
