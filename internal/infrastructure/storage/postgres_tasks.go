package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"AgentRadar/internal/domain"
	"AgentRadar/internal/ports"
)

const tasksTable = "agent_tasks"

// claimSQL moves due pending tasks (and running tasks whose lease expired) to running.
const claimSQL = `UPDATE agent_tasks
SET status = 'running', attempts = attempts + 1, updated_at = $1
WHERE id IN (
	SELECT id FROM agent_tasks
	WHERE (status = 'pending' AND due_at <= $1) OR (status = 'running' AND updated_at <= $2)
	ORDER BY due_at
	LIMIT $3
	FOR UPDATE SKIP LOCKED
)
RETURNING id, kind, payload, due_at, attempts, status, last_error, created_at, updated_at`

// DefaultLease is how long a claimed task may stay running before another dispatcher reclaims it.
const DefaultLease = 10 * time.Minute

// PostgresTaskQueue stores delayed tasks with their due times.
type PostgresTaskQueue struct {
	db      *sql.DB
	builder sq.StatementBuilderType
	lease   time.Duration
	now     func() time.Time
}

var _ ports.TaskQueue = (*PostgresTaskQueue)(nil)

// NewPostgresTaskQueue wires a sql.DB implementation.
func NewPostgresTaskQueue(db *sql.DB) *PostgresTaskQueue {
	return &PostgresTaskQueue{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		lease:   DefaultLease,
		now:     time.Now,
	}
}

// Enqueue inserts a pending task and returns its identifier.
func (q *PostgresTaskQueue) Enqueue(ctx context.Context, task domain.Task) (string, error) {
	id := task.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := q.now().UTC()
	payload := string(task.Payload)
	if payload == "" {
		payload = "{}"
	}

	query, args, err := q.builder.Insert(tasksTable).
		Columns("id", "kind", "payload", "due_at", "attempts", "status", "last_error", "created_at", "updated_at").
		Values(id, string(task.Kind), payload, task.DueAt.UTC(), 0, string(domain.TaskPending), "", now, now).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build insert: %w", err)
	}

	if _, err := q.db.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("insert task: %w", err)
	}
	return id, nil
}

// ClaimDue marks up to limit due tasks as running and returns them.
func (q *PostgresTaskQueue) ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.Task, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := q.db.QueryContext(ctx, claimSQL, now.UTC(), now.Add(-q.lease).UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("claim tasks: %w", err)
	}

	var tasks []domain.Task
	for rows.Next() {
		var (
			t            domain.Task
			kind, status string
			payload      []byte
		)
		if err := rows.Scan(&t.ID, &kind, &payload, &t.DueAt, &t.Attempts, &status, &t.LastError, &t.CreatedAt, &t.UpdatedAt); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.Kind = domain.TaskKind(kind)
		t.Status = domain.TaskStatus(status)
		t.Payload = append([]byte(nil), payload...)
		tasks = append(tasks, t)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return tasks, nil
}

// Complete marks a task done.
func (q *PostgresTaskQueue) Complete(ctx context.Context, id string) error {
	return q.update(ctx, id, map[string]any{"status": string(domain.TaskDone)})
}

// Retry puts a task back to pending with a new due time.
func (q *PostgresTaskQueue) Retry(ctx context.Context, id string, dueAt time.Time, cause string) error {
	return q.update(ctx, id, map[string]any{
		"status":     string(domain.TaskPending),
		"due_at":     dueAt.UTC(),
		"last_error": cause,
	})
}

// Fail marks a task permanently failed.
func (q *PostgresTaskQueue) Fail(ctx context.Context, id string, cause string) error {
	return q.update(ctx, id, map[string]any{
		"status":     string(domain.TaskFailed),
		"last_error": cause,
	})
}

func (q *PostgresTaskQueue) update(ctx context.Context, id string, fields map[string]any) error {
	fields["updated_at"] = q.now().UTC()

	query, args, err := q.builder.Update(tasksTable).SetMap(fields).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update task %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}
