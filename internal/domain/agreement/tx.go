package agreement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"loan-agreement-engine/internal/event"
	"loan-agreement-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

// StatusPublisher receives agreement status changes after they are committed.
type StatusPublisher interface {
	PublishAgreementStatusChanged(ctx context.Context, event event.AgreementStatusChangedEvent) error
}

type txRunner interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	CommitTx(ctx context.Context, tx pgx.Tx) error
	RollbackTx(ctx context.Context, tx pgx.Tx) error
}

// inTx runs fn inside one transaction and rolls back on error or panic.
func inTx(ctx context.Context, repo txRunner, logger *slog.Logger, fn func(tx pgx.Tx) error) (err error) {
	tx, err := repo.BeginTx(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}

	defer func() {
		if p := recover(); p != nil {
			logger.ErrorContext(ctx, "Panic occurred inside transaction", "error", p)
			_ = repo.RollbackTx(ctx, tx)
			panic(p)
		} else if err != nil {
			logger.DebugContext(ctx, "Rolling back transaction", "error", err)
			_ = repo.RollbackTx(ctx, tx)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = repo.CommitTx(ctx, tx); err != nil {
		logger.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		return fmt.Errorf("%w: could not commit transaction: %v", apperrors.ErrInternalServer, err)
	}
	return nil
}

func publishStatus(ctx context.Context, pub StatusPublisher, logger *slog.Logger, a *Agreement, from Status, at time.Time) {
	if pub == nil || a == nil {
		return
	}
	evt := event.AgreementStatusChangedEvent{
		AgreementID:   a.ID,
		LenderID:      a.LenderID,
		BorrowerPhone: a.BorrowerPhone,
		OldStatus:     string(from),
		NewStatus:     string(a.Status),
		Timestamp:     at,
	}
	if err := pub.PublishAgreementStatusChanged(ctx, evt); err != nil {
		logger.WarnContext(ctx, "Failed to publish agreement status event", "agreementID", a.ID, "error", err)
	}
}
