package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"loan-agreement-engine/internal/domain/agreement"
	"loan-agreement-engine/internal/domain/lender"
	"loan-agreement-engine/internal/domain/reminder"
	"loan-agreement-engine/internal/pkg/apperrors"
)

// OwnerCommands serves the lender keywords outside an interview:
// CICILAN, STATUS, BAYAR CICILAN and PINJAM.
type OwnerCommands struct {
	lifecycle agreement.LifecycleManager
	ledger    agreement.Ledger
	reminders reminder.Engine
	lenders   lender.Service
	sender    Sender
	logger    *slog.Logger
}

func NewOwnerCommands(lifecycle agreement.LifecycleManager, ledger agreement.Ledger, reminders reminder.Engine,
	lenders lender.Service, sender Sender, logger *slog.Logger) *OwnerCommands {
	if lifecycle == nil || ledger == nil || reminders == nil || lenders == nil || sender == nil {
		panic("owner command dependencies cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	return &OwnerCommands{
		lifecycle: lifecycle,
		ledger:    ledger,
		reminders: reminders,
		lenders:   lenders,
		sender:    sender,
		logger:    logger.With(slog.String("component", "ownerCommands")),
	}
}

// Handle reports false when cmd is not an owner keyword.
func (c *OwnerCommands) Handle(ctx context.Context, from string, cmd Command) (bool, error) {
	phone := agreement.NormalizePhone(from)

	switch cmd.Type {
	case CommandMalformed:
		return true, c.sender.Send(ctx, phone, cmd.Usage)
	case CommandRecordDebt:
		return true, c.recordDebt(ctx, phone, cmd)
	case CommandInstallments, CommandStatus, CommandPayInstallment:
	default:
		return false, nil
	}

	owner, err := c.lenders.FindByPhone(ctx, phone)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return true, fmt.Errorf("failed to look up lender: %w", err)
		}
		return true, c.sender.Send(ctx, phone, "Anda belum memiliki perjanjian atau catatan hutang.")
	}

	switch cmd.Type {
	case CommandInstallments:
		return true, c.listInstallments(ctx, owner)
	case CommandStatus:
		return true, c.status(ctx, owner)
	default:
		return true, c.payInstallment(ctx, owner, cmd)
	}
}

func (c *OwnerCommands) activeAgreements(ctx context.Context, owner *lender.Lender) ([]agreement.Agreement, error) {
	all, err := c.lifecycle.ListByLender(ctx, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list agreements: %w", err)
	}
	active := make([]agreement.Agreement, 0, len(all))
	for _, a := range all {
		if a.Status == agreement.StatusActive {
			active = append(active, a)
		}
	}
	return active, nil
}

func (c *OwnerCommands) listInstallments(ctx context.Context, owner *lender.Lender) error {
	agreements, err := c.activeAgreements(ctx, owner)
	if err != nil {
		return err
	}
	entries := make([]activeAgreement, 0, len(agreements))
	for _, a := range agreements {
		pending, err := c.ledger.GetPendingInstallments(ctx, a.ID)
		if err != nil {
			return fmt.Errorf("failed to load installments of agreement %d: %w", a.ID, err)
		}
		e := activeAgreement{Agreement: a}
		if len(pending) > 0 {
			e.Next = &pending[0]
		}
		entries = append(entries, e)
	}
	return c.sender.Send(ctx, owner.Phone, installmentsMessage(entries))
}

func (c *OwnerCommands) status(ctx context.Context, owner *lender.Lender) error {
	summary, err := c.reminders.OwnerSummary(ctx, owner.ID)
	if err != nil {
		return err
	}
	return c.sender.Send(ctx, owner.Phone, statusMessage(summary))
}

// payInstallment settles the outstanding part of one installment. A name is
// only required when the lender has more than one active agreement.
func (c *OwnerCommands) payInstallment(ctx context.Context, owner *lender.Lender, cmd Command) error {
	agreements, err := c.activeAgreements(ctx, owner)
	if err != nil {
		return err
	}
	if cmd.BorrowerName != "" {
		matched := agreements[:0]
		for _, a := range agreements {
			if strings.EqualFold(a.BorrowerName, cmd.BorrowerName) {
				matched = append(matched, a)
			}
		}
		agreements = matched
	}

	switch {
	case len(agreements) == 0:
		return c.sender.Send(ctx, owner.Phone, "Tidak ada perjanjian aktif yang cocok.")
	case len(agreements) > 1:
		return c.sender.Send(ctx, owner.Phone, "Anda memiliki beberapa perjanjian aktif. Sebutkan nama peminjam.\n"+usagePay)
	}
	a := agreements[0]

	inst, err := c.ledger.GetInstallmentByNumber(ctx, a.ID, cmd.InstallmentNumber)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return c.sender.Send(ctx, owner.Phone, fmt.Sprintf("Cicilan ke-%d tidak ditemukan untuk %s.", cmd.InstallmentNumber, a.BorrowerName))
		}
		return err
	}
	if inst.Status == agreement.InstallmentPaid {
		return c.sender.Send(ctx, owner.Phone, fmt.Sprintf("Cicilan ke-%d %s sudah lunas.", inst.InstallmentNumber, a.BorrowerName))
	}

	amount := inst.Outstanding()
	res, err := c.ledger.RecordPayment(ctx, inst.ID, amount)
	if err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "Installment paid over chat", "agreementID", a.ID, "installment", inst.InstallmentNumber)

	msg := paymentRecorded(a, res, amount)
	if err := c.sender.Send(ctx, owner.Phone, msg); err != nil {
		return err
	}
	if err := c.sender.Send(ctx, a.BorrowerPhone, msg); err != nil {
		c.logger.WarnContext(ctx, "Failed to notify borrower of payment", "agreementID", a.ID, "error", err)
	}
	return nil
}

// recordDebt registers the sender as owner when needed. Without a phone
// the reminder goes to the owner.
func (c *OwnerCommands) recordDebt(ctx context.Context, phone string, cmd Command) error {
	owner, err := c.lenders.GetOrCreateByPhone(ctx, phone, "")
	if err != nil {
		return err
	}
	debtorPhone := agreement.NormalizePhone(cmd.DebtorPhone)
	if debtorPhone == "" {
		debtorPhone = owner.Phone
	}

	d, err := c.reminders.CreateDebt(ctx, reminder.DebtRequest{
		OwnerID:     owner.ID,
		DebtorName:  cmd.BorrowerName,
		DebtorPhone: debtorPhone,
		Amount:      cmd.Amount,
		DueInDays:   cmd.Days,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			return c.sender.Send(ctx, phone, "Data hutang tidak valid.\n"+usageDebt)
		}
		return err
	}
	return c.sender.Send(ctx, phone, debtRecorded(d, cmd.Note))
}
