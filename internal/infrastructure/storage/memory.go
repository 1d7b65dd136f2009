package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"AgentRadar/internal/domain"
	"AgentRadar/internal/ports"
)

// MemoryRepository keeps alerts in process. Used when no database is configured and in tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	alerts   []domain.AlertRecord
	validate *validator.Validate
	now      func() time.Time
}

var _ ports.AlertRepository = (*MemoryRepository)(nil)

// NewMemoryRepository returns an empty in-process alert store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{validate: validator.New(), now: time.Now}
}

// CreateAlert validates the alert, assigns an identifier and stores it.
func (r *MemoryRepository) CreateAlert(ctx context.Context, alert domain.AlertRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := r.validate.Struct(alert); err != nil {
		return "", fmt.Errorf("invalid alert: %w", err)
	}

	alert.ID = uuid.NewString()
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = r.now().UTC()
	}
	if len(alert.Metadata) == 0 {
		alert.Metadata = []byte("{}")
	}

	r.mu.Lock()
	r.alerts = append(r.alerts, alert)
	r.mu.Unlock()
	return alert.ID, nil
}

// ListRecent returns the newest alerts, optionally for a single region.
func (r *MemoryRepository) ListRecent(ctx context.Context, region string, limit int) ([]domain.AlertRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	r.mu.RLock()
	var out []domain.AlertRecord
	for _, a := range r.alerts {
		if region == "" || a.Region == region {
			out = append(out, a)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// All returns a copy of every stored alert in insertion order.
func (r *MemoryRepository) All() []domain.AlertRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.AlertRecord(nil), r.alerts...)
}

// MemoryTaskQueue is the in-process TaskQueue. Tasks do not survive a restart.
type MemoryTaskQueue struct {
	mu    sync.Mutex
	tasks map[string]*domain.Task
	order []string
	lease time.Duration
	now   func() time.Time
}

var _ ports.TaskQueue = (*MemoryTaskQueue)(nil)

// NewMemoryTaskQueue returns an empty queue with the default lease.
func NewMemoryTaskQueue() *MemoryTaskQueue {
	return &MemoryTaskQueue{
		tasks: make(map[string]*domain.Task),
		lease: DefaultLease,
		now:   time.Now,
	}
}

// Enqueue stores a pending task and returns its identifier.
func (q *MemoryTaskQueue) Enqueue(ctx context.Context, task domain.Task) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := q.now().UTC()
	task.Status = domain.TaskPending
	task.Attempts = 0
	task.LastError = ""
	task.CreatedAt = now
	task.UpdatedAt = now

	q.mu.Lock()
	defer q.mu.Unlock()
	if _, exists := q.tasks[task.ID]; exists {
		return "", fmt.Errorf("task %s already queued", task.ID)
	}
	q.tasks[task.ID] = &task
	q.order = append(q.order, task.ID)
	return task.ID, nil
}

// ClaimDue marks up to limit due or lease-expired tasks as running, oldest due first.
func (q *MemoryTaskQueue) ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	var due []*domain.Task
	leaseCutoff := now.Add(-q.lease)
	for _, id := range q.order {
		t := q.tasks[id]
		switch {
		case t.Status == domain.TaskPending && !t.DueAt.After(now):
			due = append(due, t)
		case t.Status == domain.TaskRunning && !t.UpdatedAt.After(leaseCutoff):
			due = append(due, t)
		}
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].DueAt.Before(due[j].DueAt) })
	if len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]domain.Task, 0, len(due))
	for _, t := range due {
		t.Status = domain.TaskRunning
		t.Attempts++
		t.UpdatedAt = now
		claimed = append(claimed, *t)
	}
	return claimed, nil
}

// Complete marks a task done.
func (q *MemoryTaskQueue) Complete(ctx context.Context, id string) error {
	return q.update(ctx, id, func(t *domain.Task) {
		t.Status = domain.TaskDone
	})
}

// Retry puts a task back to pending with a new due time.
func (q *MemoryTaskQueue) Retry(ctx context.Context, id string, dueAt time.Time, cause string) error {
	return q.update(ctx, id, func(t *domain.Task) {
		t.Status = domain.TaskPending
		t.DueAt = dueAt
		t.LastError = cause
	})
}

// Fail marks a task permanently failed.
func (q *MemoryTaskQueue) Fail(ctx context.Context, id string, cause string) error {
	return q.update(ctx, id, func(t *domain.Task) {
		t.Status = domain.TaskFailed
		t.LastError = cause
	})
}

// Get returns a snapshot of a task.
func (q *MemoryTaskQueue) Get(id string) (domain.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[id]
	if !ok {
		return domain.Task{}, false
	}
	return *t, true
}

// Len reports how many tasks are stored in any state.
func (q *MemoryTaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}

func (q *MemoryTaskQueue) update(ctx context.Context, id string, apply func(*domain.Task)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	apply(t)
	t.UpdatedAt = q.now().UTC()
	return nil
}
