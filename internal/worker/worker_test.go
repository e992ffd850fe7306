package worker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/coffee-chat/internal/config"
	"github.com/oggyb/coffee-chat/internal/logger"
	"github.com/oggyb/coffee-chat/internal/pairing"
	"github.com/oggyb/coffee-chat/internal/schedule"
	"github.com/oggyb/coffee-chat/internal/worker"
)

type fakeRunner struct {
	calls []schedule.Interval
	err   error
}

func (f *fakeRunner) Run(_ context.Context, interval schedule.Interval) (schedule.Report, error) {
	f.calls = append(f.calls, interval)
	return schedule.Report{Interval: interval, PairingCount: 3}, f.err
}

type fakeRegistrar struct {
	specs []string
	tasks []*asynq.Task
}

func (f *fakeRegistrar) Register(cronspec string, task *asynq.Task, _ ...asynq.Option) (string, error) {
	f.specs = append(f.specs, cronspec)
	f.tasks = append(f.tasks, task)
	return "entry-" + string(task.Payload()), nil
}

func task(t *testing.T, interval schedule.Interval) *asynq.Task {
	t.Helper()
	tk, err := worker.NewRunScheduledTask(interval)
	require.NoError(t, err)
	return tk
}

func handlerAt(r worker.Runner, at time.Time) *worker.Handler {
	return worker.NewHandler(r, time.UTC, logger.Discard()).WithClock(func() time.Time { return at })
}

func TestNewRunScheduledTask(t *testing.T) {
	tk := task(t, schedule.Biweekly)
	assert.Equal(t, worker.TypeRunScheduledPairing, tk.Type())
	assert.JSONEq(t, `{"interval":"biweekly"}`, string(tk.Payload()))

	got, err := worker.ParseRunScheduled(tk.Payload())
	require.NoError(t, err)
	assert.Equal(t, schedule.Biweekly, got)
}

func TestProcessTask_ForwardsToRunner(t *testing.T) {
	r := &fakeRunner{}
	h := handlerAt(r, time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC))

	require.NoError(t, h.ProcessTask(context.Background(), task(t, schedule.Weekly)))
	assert.Equal(t, []schedule.Interval{schedule.Weekly}, r.calls)
}

func TestProcessTask_MonthlyOnlyFirstWeek(t *testing.T) {
	for _, tt := range []struct {
		day  int
		runs bool
	}{{1, true}, {7, true}, {8, false}, {29, false}} {
		r := &fakeRunner{}
		h := handlerAt(r, time.Date(2025, time.September, tt.day, 9, 0, 0, 0, time.UTC))
		require.NoError(t, h.ProcessTask(context.Background(), task(t, schedule.Monthly)))
		assert.Equal(t, tt.runs, len(r.calls) == 1, "day %d", tt.day)
	}
}

func TestProcessTask_MonthlyUsesScheduleZone(t *testing.T) {
	// 23:30 UTC on the 7th is already the 8th in Tokyo
	tokyo := time.FixedZone("JST", 9*60*60)
	r := &fakeRunner{}
	h := worker.NewHandler(r, tokyo, logger.Discard()).
		WithClock(func() time.Time { return time.Date(2025, time.April, 7, 23, 30, 0, 0, time.UTC) })

	require.NoError(t, h.ProcessTask(context.Background(), task(t, schedule.Monthly)))
	assert.Empty(t, r.calls)
}

func TestProcessTask_ErrorsAreNotRetried(t *testing.T) {
	h := handlerAt(&fakeRunner{}, time.Now())
	err := h.ProcessTask(context.Background(), asynq.NewTask(worker.TypeRunScheduledPairing, []byte(`{"interval":"daily"}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = h.ProcessTask(context.Background(), asynq.NewTask(worker.TypeRunScheduledPairing, []byte(`not json`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	r := &fakeRunner{err: pairing.ErrInsufficientUsers}
	err = handlerAt(r, time.Now()).ProcessTask(context.Background(), task(t, schedule.Weekly))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.True(t, errors.Is(err, pairing.ErrInsufficientUsers))
}

func TestRegisterEntries(t *testing.T) {
	reg := &fakeRegistrar{}
	ids, err := worker.RegisterEntries(reg, "0 9 * * 1")
	require.NoError(t, err)
	assert.Len(t, ids, 3)
	assert.Equal(t, []string{"0 9 * * 1", "0 9 * * 1", "0 9 * * 1"}, reg.specs)

	var got []schedule.Interval
	for _, tk := range reg.tasks {
		i, err := worker.ParseRunScheduled(tk.Payload())
		require.NoError(t, err)
		got = append(got, i)
	}
	assert.Equal(t, schedule.Intervals, got)
}

func TestLocation(t *testing.T) {
	cfg := &config.Config{}
	cfg.Schedule.Timezone = "UTC"
	loc, err := worker.Location(cfg)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	cfg.Schedule.Timezone = "Mars/Olympus"
	_, err = worker.Location(cfg)
	assert.Error(t, err)
}
