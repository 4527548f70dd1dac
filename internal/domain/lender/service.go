package lender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"loan-agreement-engine/internal/domain/agreement"
	"loan-agreement-engine/internal/pkg/apperrors"
)

type Service interface {
	GetOrCreateByPhone(ctx context.Context, phone, name string) (*Lender, error)
	GetLender(ctx context.Context, lenderID int64) (*Lender, error)
	// FindByPhone looks up a registered lender without creating one.
	FindByPhone(ctx context.Context, phone string) (*Lender, error)
}

var _ Service = (*lenderService)(nil)

type lenderService struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) Service {
	if repo == nil {
		panic("lender repository cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to lender.NewService, using default stderr handler")
	}
	return &lenderService{repo: repo, logger: logger.With(slog.String("component", "lenderService"))}
}

func (s *lenderService) GetOrCreateByPhone(ctx context.Context, phone, name string) (*Lender, error) {
	phone = agreement.NormalizePhone(phone)
	if phone == "" {
		return nil, apperrors.NewValidationError("phone", "must not be empty")
	}

	l, err := s.repo.FindByPhone(ctx, phone)
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		s.logger.ErrorContext(ctx, "Repository error finding lender", slog.Any("error", err))
		return nil, fmt.Errorf("failed to find lender: %w", err)
	}

	l = &Lender{Phone: phone, Name: strings.TrimSpace(name)}
	if err := s.repo.Save(ctx, l); err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to save new lender", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save lender: %w", err)
	}
	s.logger.InfoContext(ctx, "Registered new lender", slog.Int64("lenderID", l.ID))
	return l, nil
}

func (s *lenderService) GetLender(ctx context.Context, lenderID int64) (*Lender, error) {
	l, err := s.repo.FindByID(ctx, lenderID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Lender not found", slog.Int64("lenderID", lenderID))
		}
		return nil, err
	}
	return l, nil
}

func (s *lenderService) FindByPhone(ctx context.Context, phone string) (*Lender, error) {
	phone = agreement.NormalizePhone(phone)
	if phone == "" {
		return nil, apperrors.NewValidationError("phone", "must not be empty")
	}
	return s.repo.FindByPhone(ctx, phone)
}
