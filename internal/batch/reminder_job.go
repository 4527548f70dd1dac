package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"loan-agreement-engine/internal/domain/reminder"
	"loan-agreement-engine/internal/event"
	"loan-agreement-engine/internal/pkg/apperrors"
)

const dispatchWorkers = 5

type reminderPublisher interface {
	PublishReminderDue(ctx context.Context, evt event.ReminderDueEvent) error
}

// ReminderDispatchJob hands every due reminder to the message broker and
// marks it sent once the broker accepted it. A job whose publish fails stays
// eligible for the next run.
type ReminderDispatchJob struct {
	engine    reminder.Engine
	publisher reminderPublisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewReminderDispatchJob(engine reminder.Engine, publisher reminderPublisher, logger *slog.Logger) *ReminderDispatchJob {
	if engine == nil || publisher == nil || logger == nil {
		panic("ReminderDispatchJob dependencies cannot be nil")
	}
	return &ReminderDispatchJob{
		engine:    engine,
		publisher: publisher,
		logger:    logger.With("job", "ReminderDispatch"),
		now:       time.Now,
	}
}

func (j *ReminderDispatchJob) Run(ctx context.Context) error {
	startTime := time.Now()
	j.logger.InfoContext(ctx, "Starting reminder dispatch job.")

	jobs, err := j.engine.GetDueByPolicy(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to fetch due reminders, aborting job.", slog.Any("error", err))
		return fmt.Errorf("cannot run job, failed to get due reminders: %w", err)
	}
	if len(jobs) == 0 {
		j.logger.InfoContext(ctx, "No reminders due.", slog.Duration("duration", time.Since(startTime)))
		return nil
	}

	var (
		wg                   sync.WaitGroup
		sent, skipped, errCt atomic.Int32
	)
	queue := make(chan reminder.Job)

	for range min(dispatchWorkers, len(jobs)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range queue {
				switch err := j.dispatch(ctx, job); {
				case err == nil:
					sent.Add(1)
				case errors.Is(err, apperrors.ErrNotFound):
					skipped.Add(1)
				default:
					errCt.Add(1)
				}
			}
		}()
	}

	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		queue <- job
	}
	close(queue)
	wg.Wait()

	summary := j.logger.With(
		slog.Duration("duration", time.Since(startTime)),
		slog.Int("due", len(jobs)),
		slog.Int("sent", int(sent.Load())),
		slog.Int("skipped", int(skipped.Load())),
		slog.Int("errors_encountered", int(errCt.Load())),
	)
	if n := errCt.Load(); n > 0 {
		summary.WarnContext(ctx, "Reminder dispatch job finished with errors.")
		return fmt.Errorf("job completed with %d errors", n)
	}
	summary.InfoContext(ctx, "Reminder dispatch job finished successfully.")
	return nil
}

func (j *ReminderDispatchJob) dispatch(ctx context.Context, job reminder.Job) error {
	logCtx := j.logger.With(slog.String("job_id", job.ID))

	evt := event.ReminderDueEvent{
		JobID:     job.ID,
		Kind:      string(job.Kind),
		Recipient: job.Recipient,
		Name:      job.Name,
		Amount:    job.Amount,
		DueDate:   job.DueDate.Format(time.DateOnly),
		DaysUntil: job.DaysUntil,
		Timestamp: j.now().UTC(),
	}
	if err := j.publisher.PublishReminderDue(ctx, evt); err != nil {
		logCtx.ErrorContext(ctx, "Failed to publish reminder", slog.Any("error", err))
		return err
	}

	if err := j.engine.MarkSent(ctx, job.ID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logCtx.WarnContext(ctx, "Reminder row disappeared before it could be marked sent")
		} else {
			logCtx.ErrorContext(ctx, "Failed to mark reminder sent", slog.Any("error", err))
		}
		return err
	}
	logCtx.DebugContext(ctx, "Reminder dispatched.")
	return nil
}
