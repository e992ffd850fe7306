package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/oggyb/coffee-chat/internal/logger"
	"github.com/oggyb/coffee-chat/internal/schedule"
)

// Runner executes a gated pairing run.
type Runner interface {
	Run(ctx context.Context, interval schedule.Interval) (schedule.Report, error)
}

// Handler processes TypeRunScheduledPairing tasks.
type Handler struct {
	runner Runner
	loc    *time.Location
	now    func() time.Time
	log    *slog.Logger
}

// NewHandler binds a runner. loc is the zone the cron entries fire in; it
// decides which day of the month a monthly trigger lands on.
func NewHandler(runner Runner, loc *time.Location, log *slog.Logger) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{runner: runner, loc: loc, now: time.Now, log: log}
}

// WithClock replaces the time source used for the monthly check.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

// ProcessTask implements asynq.Handler.
//
// The monthly entry fires every week; only the first occurrence of the
// weekday in a month (day 1-7) is forwarded. Every error is final: the
// trigger fires again on its next tick.
func (h *Handler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	interval, err := ParseRunScheduled(t.Payload())
	if err != nil {
		h.log.Error("dropping malformed pairing task", "err", err)
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	log, runID := logger.ForRun(h.log, "scheduled")
	log = log.With("interval", interval)

	if interval == schedule.Monthly && h.now().In(h.loc).Day() > 7 {
		log.Debug("not the first week of the month, skipping monthly trigger")
		return nil
	}

	started := time.Now()
	log.Info("scheduled pairing triggered")
	report, err := h.runner.Run(ctx, interval)
	if err != nil {
		log.Error("scheduled pairing failed", "err", err, "elapsed", time.Since(started))
		return fmt.Errorf("run %s (%s): %w: %w", interval, runID, err, asynq.SkipRetry)
	}
	log.Info("scheduled pairing done",
		"skipped", report.Skipped,
		"reason", report.Reason,
		"pairs", report.PairingCount,
		"messages_ok", report.MessagesSuccess,
		"messages_failed", report.MessagesFailure,
		"elapsed", time.Since(started),
	)
	return nil
}
