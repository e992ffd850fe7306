package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/oggyb/coffee-chat/internal/config"
	"github.com/oggyb/coffee-chat/internal/schedule"
)

// Registrar is the part of *asynq.Scheduler used to add periodic entries.
type Registrar interface {
	Register(cronspec string, task *asynq.Task, opts ...asynq.Option) (string, error)
}

// RedisOpt maps the shared Redis settings to asynq's connection options.
func RedisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}

// Location resolves the schedule time zone.
func Location(cfg *config.Config) (*time.Location, error) {
	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("schedule timezone %q: %w", cfg.Schedule.Timezone, err)
	}
	return loc, nil
}

// RegisterEntries adds one periodic entry per cadence on cronspec.
// The gate decides at run time which of them actually does work.
func RegisterEntries(r Registrar, cronspec string) ([]string, error) {
	ids := make([]string, 0, len(schedule.Intervals))
	for _, interval := range schedule.Intervals {
		task, err := NewRunScheduledTask(interval)
		if err != nil {
			return nil, err
		}
		id, err := r.Register(cronspec, task)
		if err != nil {
			return nil, fmt.Errorf("register %s trigger: %w", interval, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// NewScheduler builds the periodic trigger with every cadence registered.
func NewScheduler(cfg *config.Config, log *slog.Logger) (*asynq.Scheduler, error) {
	loc, err := Location(cfg)
	if err != nil {
		return nil, err
	}
	s := asynq.NewScheduler(RedisOpt(cfg), &asynq.SchedulerOpts{
		Location: loc,
		Logger:   slogAdapter{log},
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				log.Error("pairing trigger enqueue failed", "err", err)
				return
			}
			log.Debug("pairing trigger enqueued", "task_id", info.ID, "queue", info.Queue)
		},
	})
	if _, err := RegisterEntries(s, cfg.Schedule.Cron); err != nil {
		return nil, err
	}
	return s, nil
}

// NewServer builds the consumer for the pairing queue. Runs are processed one
// at a time.
func NewServer(cfg *config.Config, h *Handler, log *slog.Logger) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(RedisOpt(cfg), asynq.Config{
		Concurrency: 1,
		Queues:      map[string]int{Queue: 1},
		Logger:      slogAdapter{log},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Error("task failed", "type", task.Type(), "err", err)
		}),
	})
	mux := asynq.NewServeMux()
	mux.Handle(TypeRunScheduledPairing, h)
	return srv, mux
}

// slogAdapter satisfies asynq.Logger.
type slogAdapter struct{ l *slog.Logger }

func (a slogAdapter) Debug(args ...any) { a.l.Debug(fmt.Sprint(args...), "component", "asynq") }
func (a slogAdapter) Info(args ...any)  { a.l.Info(fmt.Sprint(args...), "component", "asynq") }
func (a slogAdapter) Warn(args ...any)  { a.l.Warn(fmt.Sprint(args...), "component", "asynq") }
func (a slogAdapter) Error(args ...any) { a.l.Error(fmt.Sprint(args...), "component", "asynq") }
func (a slogAdapter) Fatal(args ...any) {
	a.l.Error(fmt.Sprint(args...), "component", "asynq")
	os.Exit(1)
}
