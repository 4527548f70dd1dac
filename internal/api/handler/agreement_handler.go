package handler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"loan-agreement-engine/internal/api/handler/dto"
	"loan-agreement-engine/internal/domain/agreement"
	"loan-agreement-engine/internal/pkg/apperrors"
	"loan-agreement-engine/internal/report"

	"github.com/go-chi/chi/v5"
)

type AgreementHandler struct {
	lifecycle agreement.LifecycleManager
	ledger    agreement.Ledger
	logger    *slog.Logger
}

func NewAgreementHandler(lifecycle agreement.LifecycleManager, ledger agreement.Ledger, l *slog.Logger) *AgreementHandler {
	if lifecycle == nil || ledger == nil {
		panic("agreement services cannot be nil")
	}
	if l == nil {
		panic("logger cannot be nil")
	}
	return &AgreementHandler{lifecycle: lifecycle, ledger: ledger, logger: l.With("component", "AgreementHandler")}
}

// GetAgreement handles GET /agreements/{agreementID}
// @Summary Retrieve an agreement
// @Description Returns the agreement. Add include=installments to embed the schedule.
// @Tags Agreements
// @Produce json
// @Param agreementID path int true "Agreement ID" Minimum(1)
// @Param include query string false "Use 'installments' to embed the schedule"
// @Success 200 {object} dto.AgreementResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid agreement ID"
// @Failure 404 {object} dto.ErrorResponse "Agreement not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /agreements/{agreementID} [get]
func (h *AgreementHandler) GetAgreement(w http.ResponseWriter, r *http.Request) {
	agreementID, err := getIDFromURL(r, "agreementID")
	if err != nil {
		respondError(w, err)
		return
	}

	a, err := h.lifecycle.Get(r.Context(), agreementID)
	if err != nil {
		h.logger.Log(r.Context(), logLevelFor(err), "Failed to get agreement", slog.Int64("agreementID", agreementID), slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewAgreementResponse(a, r.URL.Query().Get("include") == "installments"))
}

// ActivateAgreement handles POST /agreements/{agreementID}/activate
// @Summary Activate a draft agreement
// @Description Records the borrower's consent. Activating an already active agreement is a no-op.
// @Tags Agreements
// @Produce json
// @Param agreementID path int true "Agreement ID" Minimum(1)
// @Success 200 {object} dto.AgreementResponse
// @Failure 404 {object} dto.ErrorResponse "Agreement not found"
// @Failure 409 {object} dto.ErrorResponse "Agreement is cancelled or completed"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /agreements/{agreementID}/activate [post]
func (h *AgreementHandler) ActivateAgreement(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, "activate", h.lifecycle.Activate)
}

// CancelAgreement handles POST /agreements/{agreementID}/cancel
// @Summary Cancel an agreement
// @Tags Agreements
// @Produce json
// @Param agreementID path int true "Agreement ID" Minimum(1)
// @Success 200 {object} dto.AgreementResponse
// @Failure 404 {object} dto.ErrorResponse "Agreement not found"
// @Failure 409 {object} dto.ErrorResponse "Agreement cannot be cancelled from its current status"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /agreements/{agreementID}/cancel [post]
func (h *AgreementHandler) CancelAgreement(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, "cancel", h.lifecycle.Cancel)
}

func (h *AgreementHandler) changeStatus(w http.ResponseWriter, r *http.Request, action string,
	apply func(context.Context, int64) (*agreement.Agreement, error)) {
	agreementID, err := getIDFromURL(r, "agreementID")
	if err != nil {
		respondError(w, err)
		return
	}

	a, err := apply(r.Context(), agreementID)
	if err != nil {
		h.logger.Log(r.Context(), logLevelFor(err), "Agreement status change failed",
			slog.String("action", action), slog.Int64("agreementID", agreementID), slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Agreement status changed", slog.String("action", action),
		slog.Int64("agreementID", agreementID), slog.String("status", string(a.Status)))
	respondJSON(w, http.StatusOK, dto.NewAgreementResponse(a, false))
}

// ListInstallments handles GET /agreements/{agreementID}/installments
// @Summary Payment history
// @Description Returns every installment of the agreement ordered by number.
// @Tags Installments
// @Produce json
// @Param agreementID path int true "Agreement ID" Minimum(1)
// @Success 200 {array} dto.InstallmentResponse
// @Failure 404 {object} dto.ErrorResponse "Agreement not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /agreements/{agreementID}/installments [get]
func (h *AgreementHandler) ListInstallments(w http.ResponseWriter, r *http.Request) {
	agreementID, err := getIDFromURL(r, "agreementID")
	if err != nil {
		respondError(w, err)
		return
	}

	history, err := h.ledger.GetPaymentHistory(r.Context(), agreementID)
	if err != nil {
		h.logger.Log(r.Context(), logLevelFor(err), "Failed to get payment history", slog.Int64("agreementID", agreementID), slog.Any("error", err))
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewInstallmentResponses(history))
}

// GetInstallment handles GET /agreements/{agreementID}/installments/{number}
// @Summary Retrieve one installment by its 1-based number
// @Tags Installments
// @Produce json
// @Param agreementID path int true "Agreement ID" Minimum(1)
// @Param number path int true "Installment number" Minimum(1)
// @Success 200 {object} dto.InstallmentResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid installment number"
// @Failure 404 {object} dto.ErrorResponse "Installment not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /agreements/{agreementID}/installments/{number} [get]
func (h *AgreementHandler) GetInstallment(w http.ResponseWriter, r *http.Request) {
	agreementID, err := getIDFromURL(r, "agreementID")
	if err != nil {
		respondError(w, err)
		return
	}
	raw := chi.URLParam(r, "number")
	number, err := strconv.Atoi(raw)
	if err != nil {
		respondError(w, fmt.Errorf("%w: invalid installment number: %s", apperrors.ErrInvalidArgument, raw))
		return
	}

	inst, err := h.ledger.GetInstallmentByNumber(r.Context(), agreementID, number)
	if err != nil {
		h.logger.Log(r.Context(), logLevelFor(err), "Failed to get installment", slog.Int64("agreementID", agreementID), slog.Int("number", number), slog.Any("error", err))
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewInstallmentResponse(inst))
}

// PendingInstallments handles GET /agreements/{agreementID}/installments/pending
// @Summary Unpaid installments and outstanding balance
// @Tags Installments
// @Produce json
// @Param agreementID path int true "Agreement ID" Minimum(1)
// @Success 200 {object} dto.PendingInstallmentsResponse
// @Failure 404 {object} dto.ErrorResponse "Agreement not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /agreements/{agreementID}/installments/pending [get]
func (h *AgreementHandler) PendingInstallments(w http.ResponseWriter, r *http.Request) {
	agreementID, err := getIDFromURL(r, "agreementID")
	if err != nil {
		respondError(w, err)
		return
	}

	outstanding, err := h.ledger.GetOutstanding(r.Context(), agreementID)
	if err != nil {
		h.logger.Log(r.Context(), logLevelFor(err), "Failed to get outstanding amount", slog.Int64("agreementID", agreementID), slog.Any("error", err))
		respondError(w, err)
		return
	}
	pending, err := h.ledger.GetPendingInstallments(r.Context(), agreementID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to get pending installments", slog.Int64("agreementID", agreementID), slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.PendingInstallmentsResponse{
		AgreementID:  strconv.FormatInt(agreementID, 10),
		Outstanding:  dto.Money(outstanding),
		Installments: dto.NewInstallmentResponses(pending),
	})
}

// ExportInstallments handles GET /agreements/{agreementID}/installments/export
// @Summary Download the payment history as an xlsx workbook
// @Tags Installments
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param agreementID path int true "Agreement ID" Minimum(1)
// @Success 200 {file} file
// @Failure 404 {object} dto.ErrorResponse "Agreement not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /agreements/{agreementID}/installments/export [get]
func (h *AgreementHandler) ExportInstallments(w http.ResponseWriter, r *http.Request) {
	agreementID, err := getIDFromURL(r, "agreementID")
	if err != nil {
		respondError(w, err)
		return
	}

	a, err := h.lifecycle.Get(r.Context(), agreementID)
	if err != nil {
		h.logger.Log(r.Context(), logLevelFor(err), "Failed to load agreement for export", slog.Int64("agreementID", agreementID), slog.Any("error", err))
		respondError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WritePaymentHistory(&buf, a, a.Installments); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to render payment history workbook", slog.Int64("agreementID", agreementID), slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %w", apperrors.ErrInternalServer, err))
		return
	}

	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, report.FileName(agreementID)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// RecordPayment handles POST /installments/{installmentID}/payments
// @Summary Record a payment against one installment
// @Description Adds the amount to the installment. Paying the last open installment completes the agreement.
// @Tags Installments
// @Accept json
// @Produce json
// @Param installmentID path int true "Installment ID" Minimum(1)
// @Param request body dto.RecordPaymentRequest true "Payment amount in whole rupiah"
// @Success 200 {object} dto.PaymentResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid payment amount"
// @Failure 404 {object} dto.ErrorResponse "Installment not found"
// @Failure 409 {object} dto.ErrorResponse "Agreement does not accept payments"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /installments/{installmentID}/payments [post]
func (h *AgreementHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	installmentID, err := getIDFromURL(r, "installmentID")
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.RecordPaymentRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}
	amount, err := dto.ParseMoney(req.Amount)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidPaymentAmount, err))
		return
	}

	result, err := h.ledger.RecordPayment(r.Context(), installmentID, amount)
	if err != nil {
		h.logger.Log(r.Context(), logLevelFor(err), "Failed to record payment", slog.Int64("installmentID", installmentID), slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Payment recorded", slog.Int64("installmentID", installmentID),
		slog.Int64("amount", amount), slog.Bool("agreementCompleted", result.AgreementCompleted))
	respondJSON(w, http.StatusOK, dto.PaymentResponse{
		Installment:        dto.NewInstallmentResponse(result.Installment),
		AgreementCompleted: result.AgreementCompleted,
	})
}

// ListLenderAgreements handles GET /lenders/{lenderID}/agreements
// @Summary Agreements initiated by a lender
// @Tags Agreements
// @Produce json
// @Param lenderID path int true "Lender ID" Minimum(1)
// @Success 200 {array} dto.AgreementResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid lender ID"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /lenders/{lenderID}/agreements [get]
func (h *AgreementHandler) ListLenderAgreements(w http.ResponseWriter, r *http.Request) {
	lenderID, err := getIDFromURL(r, "lenderID")
	if err != nil {
		respondError(w, err)
		return
	}

	list, err := h.lifecycle.ListByLender(r.Context(), lenderID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to list agreements", slog.Int64("lenderID", lenderID), slog.Any("error", err))
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewAgreementResponses(list))
}
