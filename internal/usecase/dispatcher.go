package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"AgentRadar/internal/domain"
	"AgentRadar/internal/metrics"
	"AgentRadar/internal/ports"
)

const (
	defaultRetryBase = time.Minute
	defaultRetryMax  = time.Hour
)

// DispatcherDeps wires the queue and delivery side of notifications.
type DispatcherDeps struct {
	Tasks       ports.TaskQueue
	Notifier    ports.Notifier
	Metrics     *metrics.Pipeline
	Logger      *slog.Logger
	BatchSize   int
	MaxAttempts int
	RetryBase   time.Duration
	RetryMax    time.Duration
}

// Dispatcher delivers due notification tasks and reschedules failures.
type Dispatcher struct {
	tasks       ports.TaskQueue
	notifier    ports.Notifier
	metrics     *metrics.Pipeline
	logger      *slog.Logger
	batchSize   int
	maxAttempts int
	retryBase   time.Duration
	retryMax    time.Duration
}

// NewDispatcher applies defaults of 50 tasks per batch and 5 attempts.
func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	d := &Dispatcher{
		tasks:       deps.Tasks,
		notifier:    deps.Notifier,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		batchSize:   deps.BatchSize,
		maxAttempts: deps.MaxAttempts,
		retryBase:   deps.RetryBase,
		retryMax:    deps.RetryMax,
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.batchSize <= 0 {
		d.batchSize = 50
	}
	if d.maxAttempts <= 0 {
		d.maxAttempts = 5
	}
	if d.retryBase <= 0 {
		d.retryBase = defaultRetryBase
	}
	if d.retryMax <= 0 {
		d.retryMax = defaultRetryMax
	}
	return d
}

// DispatchResult counts the outcome of one dispatch pass.
type DispatchResult struct {
	Claimed int `json:"claimed"`
	Sent    int `json:"sent"`
	Retried int `json:"retried"`
	Failed  int `json:"failed"`
}

// DispatchDue claims due tasks and delivers them. Queue errors abort the pass.
func (d *Dispatcher) DispatchDue(ctx context.Context, now time.Time) (DispatchResult, error) {
	var res DispatchResult
	if d.tasks == nil || d.notifier == nil {
		return res, fmt.Errorf("dispatcher is not configured")
	}

	tasks, err := d.tasks.ClaimDue(ctx, now, d.batchSize)
	if err != nil {
		return res, fmt.Errorf("claim due tasks: %w", err)
	}
	res.Claimed = len(tasks)

	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		switch out, err := d.handle(ctx, task, now); {
		case err != nil:
			return res, err
		case out == outcomeSent:
			res.Sent++
		case out == outcomeRetried:
			res.Retried++
		default:
			res.Failed++
		}
	}

	if res.Claimed > 0 {
		d.logger.Info("notifications dispatched",
			"claimed", res.Claimed, "sent", res.Sent, "retried", res.Retried, "failed", res.Failed)
	}
	return res, nil
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeRetried
	outcomeFailed
)

func (d *Dispatcher) handle(ctx context.Context, task domain.Task, now time.Time) (outcome, error) {
	log := d.logger.With("task", task.ID, "attempt", task.Attempts)

	if task.Kind != domain.TaskKindNotify {
		return d.fail(ctx, log, task, fmt.Sprintf("unknown task kind %q", task.Kind))
	}

	var payload domain.NotificationPayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		return d.fail(ctx, log, task, fmt.Sprintf("decode payload: %v", err))
	}

	if err := d.notifier.Notify(ctx, payload); err != nil {
		if task.Attempts >= d.maxAttempts {
			return d.fail(ctx, log, task, err.Error())
		}
		due := now.Add(d.backoff(task.Attempts))
		if qErr := d.tasks.Retry(ctx, task.ID, due, err.Error()); qErr != nil {
			return outcomeRetried, fmt.Errorf("reschedule task %s: %w", task.ID, qErr)
		}
		d.metrics.RecordNotification("retried")
		log.Warn("notification failed, rescheduled", "user", payload.UserID, "due", due, "error", err)
		return outcomeRetried, nil
	}

	if err := d.tasks.Complete(ctx, task.ID); err != nil {
		return outcomeSent, fmt.Errorf("complete task %s: %w", task.ID, err)
	}
	d.metrics.RecordNotification("sent")
	log.Debug("notification sent", "user", payload.UserID, "alert", payload.AlertID)
	return outcomeSent, nil
}

func (d *Dispatcher) fail(ctx context.Context, log *slog.Logger, task domain.Task, cause string) (outcome, error) {
	if err := d.tasks.Fail(ctx, task.ID, cause); err != nil {
		return outcomeFailed, fmt.Errorf("fail task %s: %w", task.ID, err)
	}
	d.metrics.RecordNotification("failed")
	log.Error("notification abandoned", "cause", cause)
	return outcomeFailed, nil
}

// backoff doubles from retryBase per attempt, capped at retryMax.
func (d *Dispatcher) backoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	delay := d.retryBase
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= d.retryMax {
			return d.retryMax
		}
	}
	return delay
}
