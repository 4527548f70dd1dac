package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type sessionSweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// InterviewSweepJob evicts interview sessions idle past their time-to-live.
type InterviewSweepJob struct {
	sweeper sessionSweeper
	logger  *slog.Logger
}

func NewInterviewSweepJob(sweeper sessionSweeper, logger *slog.Logger) *InterviewSweepJob {
	if sweeper == nil || logger == nil {
		panic("InterviewSweepJob dependencies cannot be nil")
	}
	return &InterviewSweepJob{sweeper: sweeper, logger: logger.With("job", "InterviewSweep")}
}

func (j *InterviewSweepJob) Run(ctx context.Context) error {
	startTime := time.Now()
	removed, err := j.sweeper.Sweep(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "Interview sweep failed", slog.Any("error", err))
		return fmt.Errorf("interview sweep failed: %w", err)
	}
	j.logger.InfoContext(ctx, "Interview sweep finished.",
		slog.Int("removed", removed), slog.Duration("duration", time.Since(startTime)))
	return nil
}
