// Package worker drives scheduled pairing runs through asynq: a periodic
// scheduler enqueues one task per cadence and the server hands it to the gate.
package worker

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/oggyb/coffee-chat/internal/schedule"
)

// TypeRunScheduledPairing is the task name for a cadence-triggered run.
const TypeRunScheduledPairing = "pairing:run_scheduled"

// Queue is where pairing tasks are enqueued and consumed.
const Queue = "pairing"

// RunScheduledPayload is the JSON body of a pairing task.
type RunScheduledPayload struct {
	Interval string `json:"interval"`
}

// NewRunScheduledTask builds the task for one cadence. Scheduled runs are
// never retried by the queue.
func NewRunScheduledTask(interval schedule.Interval) (*asynq.Task, error) {
	payload, err := json.Marshal(RunScheduledPayload{Interval: string(interval)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeRunScheduledPairing, payload, asynq.MaxRetry(0), asynq.Queue(Queue)), nil
}

// ParseRunScheduled decodes and validates a task payload.
func ParseRunScheduled(raw []byte) (schedule.Interval, error) {
	var p RunScheduledPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return "", fmt.Errorf("decode %s payload: %w", TypeRunScheduledPairing, err)
	}
	return schedule.ParseInterval(p.Interval)
}
