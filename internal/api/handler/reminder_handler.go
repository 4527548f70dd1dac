package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"loan-agreement-engine/internal/api/handler/dto"
	"loan-agreement-engine/internal/domain/agreement"
	"loan-agreement-engine/internal/domain/reminder"
	"loan-agreement-engine/internal/pkg/apperrors"

	"github.com/go-chi/chi/v5"
)

const maxDueLimit = 1000

type ReminderHandler struct {
	engine    reminder.Engine
	lifecycle agreement.LifecycleManager
	ledger    agreement.Ledger
	logger    *slog.Logger
}

func NewReminderHandler(engine reminder.Engine, lifecycle agreement.LifecycleManager, ledger agreement.Ledger, l *slog.Logger) *ReminderHandler {
	if engine == nil || lifecycle == nil || ledger == nil {
		panic("reminder handler dependencies cannot be nil")
	}
	if l == nil {
		panic("logger cannot be nil")
	}
	return &ReminderHandler{engine: engine, lifecycle: lifecycle, ledger: ledger, logger: l.With("component", "ReminderHandler")}
}

// CreateDebt handles POST /debts
// @Summary Record a one-off debt
// @Description The due date is today plus dueInDays; the reminder time is one day before it.
// @Tags Debts
// @Accept json
// @Produce json
// @Param request body dto.CreateDebtRequest true "Debt"
// @Success 201 {object} dto.DebtResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /debts [post]
func (h *ReminderHandler) CreateDebt(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateDebtRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Rejected debt payload", slog.Any("error", err))
		respondError(w, err)
		return
	}
	amount, err := dto.ParseMoney(req.Amount)
	if err != nil {
		respondError(w, apperrors.NewValidationError("amount", err.Error()))
		return
	}

	debt, err := h.engine.CreateDebt(r.Context(), reminder.DebtRequest{
		OwnerID:     req.OwnerID,
		DebtorName:  req.DebtorName,
		DebtorPhone: agreement.NormalizePhone(req.DebtorPhone),
		Amount:      amount,
		DueInDays:   req.DueInDays,
	})
	if err != nil {
		h.logger.Log(r.Context(), logLevelFor(err), "Failed to create debt", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Debt created", slog.Int64("debtID", debt.ID))
	respondJSON(w, http.StatusCreated, dto.NewDebtResponse(debt))
}

// MarkDebtPaid handles POST /debts/{debtID}/paid
// @Summary Mark a debt as paid
// @Tags Debts
// @Param debtID path int true "Debt ID" Minimum(1)
// @Success 204 "Debt marked paid"
// @Failure 404 {object} dto.ErrorResponse "Debt not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /debts/{debtID}/paid [post]
func (h *ReminderHandler) MarkDebtPaid(w http.ResponseWriter, r *http.Request) {
	debtID, err := getIDFromURL(r, "debtID")
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.engine.MarkDebtPaid(r.Context(), debtID); err != nil {
		h.logger.Log(r.Context(), logLevelFor(err), "Failed to mark debt paid", slog.Int64("debtID", debtID), slog.Any("error", err))
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// GetDue handles GET /reminders/due
// @Summary Reminders due for delivery
// @Description Without query parameters the configured policy is applied. With days and/or limit the same window is used for debts and installments.
// @Tags Reminders
// @Produce json
// @Param days query int false "Days before the due date"
// @Param limit query int false "Maximum number of jobs"
// @Success 200 {array} dto.ReminderJobResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid query parameters"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /reminders/due [get]
func (h *ReminderHandler) GetDue(w http.ResponseWriter, r *http.Request) {
	var (
		jobs []reminder.Job
		err  error
	)

	q := r.URL.Query()
	if !q.Has("days") && !q.Has("limit") {
		jobs, err = h.engine.GetDueByPolicy(r.Context())
	} else {
		policy := h.engine.Policy()
		days, derr := queryInt(r, "days", policy.DaysBeforeDue)
		limit, lerr := queryInt(r, "limit", policy.BatchLimit)
		switch {
		case derr != nil:
			err = derr
		case lerr != nil:
			err = lerr
		case days < 0:
			err = fmt.Errorf("%w: days must not be negative", apperrors.ErrInvalidArgument)
		case limit < 1 || limit > maxDueLimit:
			err = fmt.Errorf("%w: limit must be between 1 and %d", apperrors.ErrInvalidArgument, maxDueLimit)
		default:
			jobs, err = h.engine.GetDue(r.Context(), days, limit)
		}
	}
	if err != nil {
		h.logger.Log(r.Context(), logLevelFor(err), "Failed to get due reminders", slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewReminderJobResponses(jobs))
}

// MarkSent handles POST /reminders/{jobID}/sent
// @Summary Mark a reminder job as delivered
// @Description Accepts debt_<id>, inst_<id> or a bare installment id. Repeating the call is harmless.
// @Tags Reminders
// @Param jobID path string true "Reminder job ID"
// @Success 204 "Reminder marked sent"
// @Failure 400 {object} dto.ErrorResponse "Malformed job ID"
// @Failure 404 {object} dto.ErrorResponse "Reminder row not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /reminders/{jobID}/sent [post]
func (h *ReminderHandler) MarkSent(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if err := h.engine.MarkSent(r.Context(), jobID); err != nil {
		h.logger.Log(r.Context(), logLevelFor(err), "Failed to mark reminder sent", slog.String("jobID", jobID), slog.Any("error", err))
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// SystemStatus handles GET /status
// @Summary Operational counters
// @Tags System
// @Produce json
// @Success 200 {object} dto.SystemStatusResponse
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /status [get]
func (h *ReminderHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.engine.DebtStats(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to read debt stats", slog.Any("error", err))
		respondError(w, err)
		return
	}
	active, err := h.lifecycle.CountByStatus(ctx, agreement.StatusActive)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to count active agreements", slog.Any("error", err))
		respondError(w, err)
		return
	}
	pending, err := h.ledger.CountPendingInstallments(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to count pending installments", slog.Any("error", err))
		respondError(w, err)
		return
	}

	policy := h.engine.Policy()
	respondJSON(w, http.StatusOK, dto.SystemStatusResponse{
		PendingDebts:        stats.Pending,
		OverdueDebts:        stats.Overdue,
		ActiveAgreements:    active,
		PendingInstallments: pending,
		DaysBeforeDue:       policy.DaysBeforeDue,
		CheckIntervalHours:  policy.CheckIntervalHours,
	})
}
