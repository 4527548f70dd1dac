package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"loan-agreement-engine/internal/domain/agreement"
	"loan-agreement-engine/internal/domain/lender"
	"loan-agreement-engine/internal/pkg/apperrors"
)

// BorrowerResponder handles the counterparty's SETUJU / TOLAK reply to a
// draft agreement and notifies both parties.
type BorrowerResponder struct {
	lifecycle agreement.LifecycleManager
	lenders   lender.Service
	sender    Sender
	logger    *slog.Logger
}

func NewBorrowerResponder(lifecycle agreement.LifecycleManager, lenders lender.Service, sender Sender, logger *slog.Logger) *BorrowerResponder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	return &BorrowerResponder{
		lifecycle: lifecycle,
		lenders:   lenders,
		sender:    sender,
		logger:    logger.With(slog.String("component", "borrowerResponder")),
	}
}

// Handle reports false when the phone has no draft awaiting a response and
// the text is not a response keyword.
func (r *BorrowerResponder) Handle(ctx context.Context, borrowerPhone, text string) (bool, error) {
	phone := agreement.NormalizePhone(borrowerPhone)
	cmd := ParseCommand(text)
	isResponse := cmd.Type == CommandApprove || cmd.Type == CommandReject

	pending, err := r.lifecycle.FindPendingByBorrowerPhone(ctx, phone)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return false, fmt.Errorf("failed to look up pending agreement: %w", err)
		}
		if !isResponse {
			return false, nil
		}
		return true, r.sender.Send(ctx, phone, "Maaf, tidak ada perjanjian pending untuk Anda.")
	}

	switch cmd.Type {
	case CommandApprove:
		a, err := r.lifecycle.Activate(ctx, pending.ID)
		if err != nil {
			return true, err
		}
		first := ""
		if a.FirstPaymentDate != nil {
			first = a.FirstPaymentDate.Format("2006-01-02")
		}
		if err := r.sender.Send(ctx, phone, fmt.Sprintf(
			"✅ Perjanjian disetujui!\n\nCicilan pertama jatuh tempo: %s\nAnda akan menerima reminder otomatis sebelum tanggal pembayaran.", first)); err != nil {
			return true, err
		}
		r.notifyLender(ctx, a, fmt.Sprintf("🎉 %s telah MENYETUJUI perjanjian #%d!\n\nCicilan aktif dimulai %s.", a.BorrowerName, a.ID, first))
		r.logger.InfoContext(ctx, "Borrower approved agreement", "agreementID", a.ID)
		return true, nil

	case CommandReject:
		a, err := r.lifecycle.Cancel(ctx, pending.ID)
		if err != nil {
			return true, err
		}
		if err := r.sender.Send(ctx, phone, "Perjanjian ditolak. Tidak ada hutang yang tercatat."); err != nil {
			return true, err
		}
		r.notifyLender(ctx, a, fmt.Sprintf("❌ %s telah MENOLAK perjanjian #%d.", a.BorrowerName, a.ID))
		r.logger.InfoContext(ctx, "Borrower rejected agreement", "agreementID", a.ID)
		return true, nil

	default:
		return true, r.sender.Send(ctx, phone, "Silakan balas dengan SETUJU atau TOLAK untuk merespon perjanjian.")
	}
}

func (r *BorrowerResponder) notifyLender(ctx context.Context, a *agreement.Agreement, text string) {
	l, err := r.lenders.GetLender(ctx, a.LenderID)
	if err != nil {
		r.logger.WarnContext(ctx, "Could not resolve lender for notification", "lenderID", a.LenderID, "error", err)
		return
	}
	if err := r.sender.Send(ctx, l.Phone, text); err != nil {
		r.logger.WarnContext(ctx, "Failed to notify lender", "lenderID", a.LenderID, "error", err)
	}
}
