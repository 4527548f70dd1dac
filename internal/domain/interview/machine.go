package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"loan-agreement-engine/internal/domain/affordability"
	"loan-agreement-engine/internal/domain/agreement"
	"loan-agreement-engine/internal/domain/lender"
	"loan-agreement-engine/internal/infrastructure/monitoring"
	"loan-agreement-engine/internal/pkg/apperrors"
	"loan-agreement-engine/internal/pkg/money"
)

// Sender delivers a chat message to a phone number.
type Sender interface {
	Send(ctx context.Context, to, text string) error
}

const (
	outcomeStarted   = "started"
	outcomeAdvanced  = "advanced"
	outcomeRejected  = "rejected"
	outcomeAmended   = "amended"
	outcomeCompleted = "completed"
	outcomeAbandoned = "abandoned"
	outcomeFailed    = "failed"
)

// Machine runs one sequential interview per initiating identity.
type Machine struct {
	store     SessionStore
	lifecycle agreement.LifecycleManager
	lenders   lender.Service
	sender    Sender
	logger    *slog.Logger
	locks     *keyedMutex
	now       func() time.Time
}

func NewMachine(store SessionStore, lifecycle agreement.LifecycleManager, lenders lender.Service, sender Sender, logger *slog.Logger) *Machine {
	if store == nil || lifecycle == nil || lenders == nil || sender == nil {
		panic("interview machine dependencies cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	return &Machine{
		store:     store,
		lifecycle: lifecycle,
		lenders:   lenders,
		sender:    sender,
		logger:    logger.With(slog.String("component", "interviewMachine")),
		locks:     newKeyedMutex(),
		now:       time.Now,
	}
}

// Start opens a new interview for initiator, replacing any unfinished one.
func (m *Machine) Start(ctx context.Context, initiator, borrowerName string, totalAmount int64) error {
	initiator = agreement.NormalizePhone(initiator)
	borrowerName = strings.TrimSpace(borrowerName)
	if borrowerName == "" {
		return apperrors.NewValidationError("borrowerName", "must not be empty")
	}
	if !money.InRange(totalAmount) {
		return apperrors.NewValidationError("totalAmount", fmt.Sprintf("must be between 1 and %d", money.MaxAmount))
	}

	unlock := m.locks.Lock(initiator)
	defer unlock()

	l, err := m.lenders.GetOrCreateByPhone(ctx, initiator, "")
	if err != nil {
		return fmt.Errorf("failed to resolve lender: %w", err)
	}

	now := m.now()
	req := &LoanRequest{
		Initiator:    initiator,
		LenderID:     l.ID,
		Step:         StepBorrowerPhone,
		BorrowerName: borrowerName,
		TotalAmount:  totalAmount,
		StartedAt:    now,
		UpdatedAt:    now,
	}
	if err := m.store.Save(ctx, req); err != nil {
		return fmt.Errorf("failed to save interview: %w", err)
	}

	monitoring.RecordInterviewTurn(int(StepBorrowerPhone), outcomeStarted)
	m.logger.InfoContext(ctx, "Interview started", "initiator", initiator, "lenderID", l.ID, "totalAmount", totalAmount)
	return m.sender.Send(ctx, initiator, promptStart(req))
}

func (m *Machine) Active(ctx context.Context, initiator string) (bool, error) {
	_, ok, err := m.store.Get(ctx, agreement.NormalizePhone(initiator))
	return ok, err
}

// State returns a copy of the initiator's working state.
func (m *Machine) State(ctx context.Context, initiator string) (*LoanRequest, bool, error) {
	return m.store.Get(ctx, agreement.NormalizePhone(initiator))
}

// OnReply feeds one chat turn into the initiator's interview. It reports
// false when the initiator has no interview in progress.
func (m *Machine) OnReply(ctx context.Context, initiator, text string) (bool, error) {
	initiator = agreement.NormalizePhone(initiator)
	unlock := m.locks.Lock(initiator)
	defer unlock()

	req, ok, err := m.store.Get(ctx, initiator)
	if err != nil {
		return false, fmt.Errorf("failed to load interview: %w", err)
	}
	if !ok {
		return false, nil
	}

	if ParseCommand(text).Type == CommandCancel {
		if err := m.store.Delete(ctx, initiator); err != nil {
			return true, fmt.Errorf("failed to delete interview: %w", err)
		}
		monitoring.RecordInterviewTurn(int(req.Step), outcomeAbandoned)
		m.logger.InfoContext(ctx, "Interview abandoned", "initiator", initiator, "step", req.Step)
		return true, m.sender.Send(ctx, initiator, "Oke, pembuatan perjanjian dibatalkan.")
	}

	step := req.Step
	reply, outcome, err := m.apply(ctx, req, strings.TrimSpace(text))
	monitoring.RecordInterviewTurn(int(step), outcome)
	if err != nil {
		m.logger.ErrorContext(ctx, "Interview step failed", "initiator", initiator, "step", step, "error", err)
		req.UpdatedAt = m.now()
		if saveErr := m.store.Save(ctx, req); saveErr != nil {
			m.logger.ErrorContext(ctx, "Failed to save interview", "error", saveErr)
		}
		_ = m.sender.Send(ctx, initiator, "Maaf, perjanjian gagal disimpan. Silakan ketik SAMA untuk mencoba lagi.")
		return true, err
	}

	if req.Step == StepDone {
		if err := m.store.Delete(ctx, initiator); err != nil {
			return true, fmt.Errorf("failed to delete interview: %w", err)
		}
	} else {
		req.UpdatedAt = m.now()
		if err := m.store.Save(ctx, req); err != nil {
			return true, fmt.Errorf("failed to save interview: %w", err)
		}
	}
	return true, m.sender.Send(ctx, initiator, reply)
}

// apply consumes one input. On invalid input the step stays where it was.
func (m *Machine) apply(ctx context.Context, req *LoanRequest, text string) (string, string, error) {
	reject := func() (string, string, error) {
		m.logger.DebugContext(ctx, "Rejected interview input", "step", req.Step)
		return correction(req.Step) + "\n\n" + prompt(req), outcomeRejected, nil
	}
	advance := func(next Step) (string, string, error) {
		req.Step = next
		return prompt(req), outcomeAdvanced, nil
	}

	switch req.Step {
	case StepBorrowerPhone:
		phone := agreement.NormalizePhone(text)
		if !agreement.ValidPhone(phone) {
			return reject()
		}
		req.BorrowerPhone = phone
		return advance(StepIncomeSource)

	case StepIncomeSource:
		src, ok := agreement.ParseIncomeSource(text)
		if !ok {
			return reject()
		}
		req.IncomeSource = src
		return advance(StepPaymentDay)

	case StepPaymentDay:
		day, err := strconv.Atoi(text)
		if err != nil || day < 1 || day > 31 {
			return reject()
		}
		req.PaymentDay = day
		return advance(StepMonthlyIncome)

	case StepMonthlyIncome:
		if ParseCommand(text).Type == CommandSkip {
			req.MonthlyIncome = nil
			return advance(StepOtherDebts)
		}
		income, ok := ParseAmount(text)
		if !ok {
			return reject()
		}
		req.MonthlyIncome = &income
		return advance(StepOtherDebts)

	case StepOtherDebts:
		debts, ok := ParseAmount(text)
		if !ok {
			if amountOutOfRange(text) {
				return reject()
			}
			debts = 0
		}
		rec, err := affordability.Calculate(req.assessedIncome(), debts, req.TotalAmount)
		if err != nil {
			return "", outcomeFailed, err
		}
		req.OtherDebts = debts
		req.Recommendation = &rec
		req.InstallmentAmount, req.Months, req.Amended = rec.InstallmentAmount, rec.Months, false
		req.Step = StepConfirmation
		return summary(req), outcomeAdvanced, nil

	case StepConfirmation:
		cmd := ParseCommand(text)
		switch cmd.Type {
		case CommandApprove:
			return advance(StepCounterparty)
		case CommandAmend:
			return m.amend(req, cmd.Amount)
		default:
			return reject()
		}

	case StepCounterparty:
		if ParseCommand(text).Type != CommandSame {
			name, phone, ok := parseIdentity(text)
			if !ok {
				return reject()
			}
			req.BorrowerName, req.BorrowerPhone = name, phone
		}
		return m.complete(ctx, req)
	}

	return "", outcomeFailed, fmt.Errorf("%w: interview in unexpected step %d", apperrors.ErrInternalServer, req.Step)
}

// amend replaces the schedule with a user-chosen installment, keeping the
// interview at confirmation.
func (m *Machine) amend(req *LoanRequest, requested int64) (string, string, error) {
	installment := min(requested, req.TotalAmount)
	months := affordability.CeilDiv(req.TotalAmount, installment)
	if months > affordability.MaxMonths {
		minimum := affordability.CeilDiv(req.TotalAmount, affordability.MaxMonths)
		return fmt.Sprintf("Cicilan terlalu kecil, maksimal %d bulan. Minimal %s/bulan.\n\n%s",
			affordability.MaxMonths, FormatRupiah(minimum), prompt(req)), outcomeRejected, nil
	}
	req.InstallmentAmount, req.Months, req.Amended = installment, int(months), true
	return amendedSummary(req), outcomeAmended, nil
}

func (m *Machine) complete(ctx context.Context, req *LoanRequest) (string, string, error) {
	draftReq := agreement.DraftRequest{
		LenderID:      req.LenderID,
		BorrowerName:  req.BorrowerName,
		BorrowerPhone: req.BorrowerPhone,
		TotalAmount:   req.TotalAmount,
		IncomeSource:  req.IncomeSource,
		MonthlyIncome: req.MonthlyIncome,
		OtherDebts:    req.OtherDebts,
	}
	if req.Amended {
		draftReq.Override = &agreement.ScheduleOverride{InstallmentAmount: req.InstallmentAmount, Months: req.Months}
	}

	// A retry after a failed finalize reuses the draft already created.
	if req.AgreementID == 0 {
		draft, err := m.lifecycle.CreateDraft(ctx, draftReq)
		if err != nil {
			return "", outcomeFailed, err
		}
		req.AgreementID = draft.Agreement.ID
	}
	finalized, err := m.lifecycle.Finalize(ctx, req.AgreementID, agreement.Terms{
		PaymentDay:       req.PaymentDay,
		FirstPaymentDate: agreement.FirstPaymentDate(m.now(), req.PaymentDay),
	})
	if err != nil {
		return "", outcomeFailed, err
	}

	req.Step = StepDone
	if err := m.sender.Send(ctx, finalized.BorrowerPhone, borrowerInvitation(finalized)); err != nil {
		m.logger.WarnContext(ctx, "Failed to notify borrower", "agreementID", finalized.ID, "error", err)
	}
	m.logger.InfoContext(ctx, "Interview completed", "initiator", req.Initiator, "agreementID", finalized.ID)
	return lenderConfirmation(finalized), outcomeCompleted, nil
}

// parseIdentity splits "<name...> <phone>".
func parseIdentity(text string) (string, string, bool) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return "", "", false
	}
	phone := agreement.NormalizePhone(fields[len(fields)-1])
	if !agreement.ValidPhone(phone) {
		return "", "", false
	}
	return strings.Join(fields[:len(fields)-1], " "), phone, true
}

// Sweep evicts abandoned interviews and refreshes the active gauge.
func (m *Machine) Sweep(ctx context.Context) (int, error) {
	removed, err := m.store.Sweep(ctx)
	if err != nil {
		return 0, err
	}
	if n, err := m.store.Count(ctx); err == nil {
		monitoring.SetActiveInterviews(n)
	} else if !errors.Is(err, context.Canceled) {
		m.logger.WarnContext(ctx, "Failed to count interviews", "error", err)
	}
	return removed, nil
}
