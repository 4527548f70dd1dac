package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"loan-agreement-engine/internal/infrastructure/monitoring"
	"loan-agreement-engine/internal/pkg/apperrors"
	"loan-agreement-engine/internal/pkg/money"
)

type DebtRequest struct {
	OwnerID     int64
	DebtorName  string
	DebtorPhone string
	Amount      int64
	DueInDays   int
}

type DebtStats struct {
	Pending int
	Overdue int
}

// OwnerSummary splits an owner's unpaid debts around today.
type OwnerSummary struct {
	Overdue  []Debt
	Upcoming []Debt
	Total    int64
}

type Engine interface {
	GetDue(ctx context.Context, daysBeforeDue, limit int) ([]Job, error)
	// GetDueByPolicy applies the injected policy windows and batch limit.
	GetDueByPolicy(ctx context.Context) ([]Job, error)
	MarkSent(ctx context.Context, jobID string) error
	CreateDebt(ctx context.Context, req DebtRequest) (*Debt, error)
	MarkDebtPaid(ctx context.Context, debtID int64) error
	DebtStats(ctx context.Context) (DebtStats, error)
	OwnerSummary(ctx context.Context, ownerID int64) (*OwnerSummary, error)
	Policy() Policy
}

var _ Engine = (*engine)(nil)

type engine struct {
	repo   Repository
	policy Policy
	logger *slog.Logger
	now    func() time.Time
}

func NewEngine(repo Repository, policy Policy, logger *slog.Logger) (Engine, error) {
	if repo == nil {
		panic("reminder repository cannot be nil")
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	return &engine{
		repo:   repo,
		policy: policy,
		logger: logger.With(slog.String("component", "reminderEngine")),
		now:    time.Now,
	}, nil
}

func (e *engine) Policy() Policy {
	return e.policy
}

func (e *engine) GetDue(ctx context.Context, daysBeforeDue, limit int) ([]Job, error) {
	return e.collect(ctx, daysBeforeDue, daysBeforeDue, limit)
}

func (e *engine) GetDueByPolicy(ctx context.Context) ([]Job, error) {
	return e.collect(ctx, e.policy.DaysBeforeDue, e.policy.InstallmentDaysBeforeDue, e.policy.BatchLimit)
}

func (e *engine) collect(ctx context.Context, debtDays, installmentDays, limit int) ([]Job, error) {
	if debtDays < 0 || installmentDays < 0 {
		return nil, fmt.Errorf("%w: daysBeforeDue must not be negative", apperrors.ErrInvalidArgument)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", apperrors.ErrInvalidArgument)
	}

	today := dateOf(e.now())
	from := today.AddDate(0, 0, -GraceDays)

	debts, err := e.repo.FindDueDebts(ctx, from, today.AddDate(0, 0, debtDays), limit)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to query due debts", "error", err)
		return nil, fmt.Errorf("failed to query due debts: %w", err)
	}
	installments, err := e.repo.FindDueInstallments(ctx, from, today.AddDate(0, 0, installmentDays), limit)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to query due installments", "error", err)
		return nil, fmt.Errorf("failed to query due installments: %w", err)
	}

	jobs := make([]Job, 0, len(debts)+len(installments))
	for _, c := range append(debts, installments...) {
		jobs = append(jobs, Job{
			ID:        JobID(c.Kind, c.RefID),
			Kind:      c.Kind,
			RefID:     c.RefID,
			Recipient: c.Recipient,
			Name:      c.Name,
			Amount:    c.Amount,
			DueDate:   dateOf(c.DueDate),
			DaysUntil: daysBetween(today, c.DueDate),
		})
	}
	sort.SliceStable(jobs, func(i, j int) bool {
		if !jobs[i].DueDate.Equal(jobs[j].DueDate) {
			return jobs[i].DueDate.Before(jobs[j].DueDate)
		}
		return jobs[i].ID < jobs[j].ID
	})
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}

	counts := map[Kind]int{}
	for _, j := range jobs {
		counts[j.Kind]++
	}
	monitoring.RecordRemindersEligible(string(KindDebt), counts[KindDebt])
	monitoring.RecordRemindersEligible(string(KindInstallment), counts[KindInstallment])
	e.logger.DebugContext(ctx, "Collected due reminders", "count", len(jobs))
	return jobs, nil
}

func (e *engine) MarkSent(ctx context.Context, jobID string) error {
	kind, refID, err := ParseJobID(jobID)
	if err != nil {
		return err
	}

	if kind == KindDebt {
		err = e.repo.MarkDebtReminderSent(ctx, refID)
	} else {
		err = e.repo.MarkInstallmentReminderSent(ctx, refID)
	}
	if err != nil {
		e.logger.WarnContext(ctx, "Failed to mark reminder as sent", "jobID", jobID, "error", err)
		return err
	}
	monitoring.RecordReminderSent(string(kind))
	return nil
}

func (e *engine) CreateDebt(ctx context.Context, req DebtRequest) (*Debt, error) {
	if strings.TrimSpace(req.DebtorName) == "" {
		return nil, apperrors.NewValidationError("debtorName", "must not be empty")
	}
	if strings.TrimSpace(req.DebtorPhone) == "" {
		return nil, apperrors.NewValidationError("debtorPhone", "must not be empty")
	}
	if !money.InRange(req.Amount) {
		return nil, apperrors.NewValidationError("amount", fmt.Sprintf("must be between 1 and %d", money.MaxAmount))
	}
	if req.DueInDays < 0 {
		return nil, apperrors.NewValidationError("days", "must not be negative")
	}

	now := e.now()
	due := dateOf(now).AddDate(0, 0, req.DueInDays)
	remindAt := due.AddDate(0, 0, -1)
	d := &Debt{
		OwnerID:      req.OwnerID,
		DebtorName:   strings.TrimSpace(req.DebtorName),
		DebtorPhone:  strings.TrimSpace(req.DebtorPhone),
		Amount:       req.Amount,
		DueDate:      due,
		Status:       DebtPending,
		ReminderTime: &remindAt,
		CreatedAt:    now,
	}
	if err := e.repo.CreateDebt(ctx, d); err != nil {
		e.logger.ErrorContext(ctx, "Failed to save debt", "error", err)
		return nil, fmt.Errorf("failed to save debt: %w", err)
	}
	e.logger.InfoContext(ctx, "Debt recorded", "debtID", d.ID, "dueDate", d.DueDate.Format(time.DateOnly))
	return d, nil
}

func (e *engine) MarkDebtPaid(ctx context.Context, debtID int64) error {
	return e.repo.MarkDebtPaid(ctx, debtID)
}

func (e *engine) DebtStats(ctx context.Context) (DebtStats, error) {
	pending, err := e.repo.CountPendingDebts(ctx)
	if err != nil {
		return DebtStats{}, err
	}
	overdue, err := e.repo.CountOverdueDebts(ctx, dateOf(e.now()))
	if err != nil {
		return DebtStats{}, err
	}
	return DebtStats{Pending: pending, Overdue: overdue}, nil
}

func (e *engine) OwnerSummary(ctx context.Context, ownerID int64) (*OwnerSummary, error) {
	debts, err := e.repo.FindPendingDebtsByOwner(ctx, ownerID)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to load pending debts", "ownerID", ownerID, "error", err)
		return nil, fmt.Errorf("failed to load pending debts: %w", err)
	}

	today := dateOf(e.now())
	summary := &OwnerSummary{Overdue: []Debt{}, Upcoming: []Debt{}}
	for _, d := range debts {
		total, ok := money.Add(summary.Total, d.Amount)
		if !ok {
			return nil, fmt.Errorf("%w: pending total of owner %d overflows", apperrors.ErrInvalidArgument, ownerID)
		}
		summary.Total = total
		if dateOf(d.DueDate).Before(today) {
			summary.Overdue = append(summary.Overdue, d)
		} else {
			summary.Upcoming = append(summary.Upcoming, d)
		}
	}
	return summary, nil
}
