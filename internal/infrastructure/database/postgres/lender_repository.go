package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"loan-agreement-engine/internal/domain/lender"
	"loan-agreement-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

type LenderRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ lender.Repository = (*LenderRepository)(nil)

func NewLenderRepository(db DBPool, logger *slog.Logger) *LenderRepository {
	return &LenderRepository{db: db, logger: logger.With("component", "LenderRepository")}
}

func (r *LenderRepository) findOne(ctx context.Context, name, query string, arg any) (*lender.Lender, error) {
	var l lender.Lender
	start := time.Now()
	err := r.db.QueryRow(ctx, query, arg).Scan(&l.ID, &l.Phone, &l.Name, &l.CreatedAt)
	recordQuery(name, start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to query lender", "query", name, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &l, nil
}

func (r *LenderRepository) FindByPhone(ctx context.Context, phone string) (*lender.Lender, error) {
	return r.findOne(ctx, "FindLenderByPhone", `SELECT id, phone, name, created_at FROM lenders WHERE phone = $1`, phone)
}

func (r *LenderRepository) FindByID(ctx context.Context, lenderID int64) (*lender.Lender, error) {
	return r.findOne(ctx, "FindLenderByID", `SELECT id, phone, name, created_at FROM lenders WHERE id = $1`, lenderID)
}

// Save upserts on phone; a blank stored name is filled from l.Name.
func (r *LenderRepository) Save(ctx context.Context, l *lender.Lender) error {
	query := `
        INSERT INTO lenders (phone, name, created_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (phone) DO UPDATE
            SET name = CASE WHEN lenders.name = '' THEN EXCLUDED.name ELSE lenders.name END
        RETURNING id, name, created_at`

	start := time.Now()
	err := r.db.QueryRow(ctx, query, l.Phone, l.Name).Scan(&l.ID, &l.Name, &l.CreatedAt)
	recordQuery("SaveLender", start, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to save lender", "error", err)
		return fmt.Errorf("%w: failed to save lender: %w", apperrors.ErrDatabase, err)
	}
	r.logger.InfoContext(ctx, "Lender saved in DB", "lender_id", l.ID)
	return nil
}
