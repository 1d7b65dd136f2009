package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AgentRadar/internal/domain"
	"AgentRadar/internal/infrastructure/storage"
	"AgentRadar/internal/logging"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.NotificationPayload
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, p domain.NotificationPayload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, p)
	return nil
}

func enqueueNotify(t *testing.T, q *storage.MemoryTaskQueue, user string, due time.Time) string {
	t.Helper()
	payload, err := json.Marshal(domain.NotificationPayload{UserID: user, AlertID: "a1", Title: "Estate notice"})
	require.NoError(t, err)
	id, err := q.Enqueue(context.Background(), domain.Task{Kind: domain.TaskKindNotify, Payload: payload, DueAt: due})
	require.NoError(t, err)
	return id
}

func newDispatcher(q *storage.MemoryTaskQueue, n *recordingNotifier, maxAttempts int) *Dispatcher {
	return NewDispatcher(DispatcherDeps{
		Tasks:       q,
		Notifier:    n,
		Logger:      logging.Discard(),
		MaxAttempts: maxAttempts,
		RetryBase:   time.Minute,
		RetryMax:    10 * time.Minute,
	})
}

func TestDispatchDueSendsAndCompletes(t *testing.T) {
	t.Parallel()

	q := storage.NewMemoryTaskQueue()
	n := &recordingNotifier{}
	id := enqueueNotify(t, q, "agent-1", runAt)
	enqueueNotify(t, q, "agent-2", runAt.Add(time.Hour))

	res, err := newDispatcher(q, n, 3).DispatchDue(context.Background(), runAt)
	require.NoError(t, err)
	assert.Equal(t, DispatchResult{Claimed: 1, Sent: 1}, res)
	require.Len(t, n.sent, 1)
	assert.Equal(t, "agent-1", n.sent[0].UserID)

	task, ok := q.Get(id)
	require.True(t, ok)
	assert.Equal(t, domain.TaskDone, task.Status)
}

func TestDispatchDueRetriesWithBackoffThenFails(t *testing.T) {
	t.Parallel()

	q := storage.NewMemoryTaskQueue()
	n := &recordingNotifier{err: errors.New("telegram 502")}
	id := enqueueNotify(t, q, "agent-1", runAt)
	d := newDispatcher(q, n, 2)

	res, err := d.DispatchDue(context.Background(), runAt)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Retried)

	task, _ := q.Get(id)
	assert.Equal(t, domain.TaskPending, task.Status)
	assert.Equal(t, runAt.Add(time.Minute), task.DueAt)
	assert.Equal(t, "telegram 502", task.LastError)

	res, err = d.DispatchDue(context.Background(), runAt.Add(30*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Claimed, "not due before backoff elapses")

	res, err = d.DispatchDue(context.Background(), runAt.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)

	task, _ = q.Get(id)
	assert.Equal(t, domain.TaskFailed, task.Status)
	assert.Equal(t, 2, task.Attempts)
}

func TestDispatchDueFailsUndecodableTasks(t *testing.T) {
	t.Parallel()

	q := storage.NewMemoryTaskQueue()
	bad, err := q.Enqueue(context.Background(), domain.Task{Kind: domain.TaskKindNotify, Payload: []byte("{"), DueAt: runAt})
	require.NoError(t, err)
	unknown, err := q.Enqueue(context.Background(), domain.Task{Kind: "reindex", Payload: []byte("{}"), DueAt: runAt})
	require.NoError(t, err)

	res, err := newDispatcher(q, &recordingNotifier{}, 3).DispatchDue(context.Background(), runAt)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Failed)

	for _, id := range []string{bad, unknown} {
		task, _ := q.Get(id)
		assert.Equal(t, domain.TaskFailed, task.Status)
	}
}

func TestDispatcherBackoffIsCapped(t *testing.T) {
	t.Parallel()

	d := newDispatcher(storage.NewMemoryTaskQueue(), &recordingNotifier{}, 10)
	assert.Equal(t, time.Minute, d.backoff(1))
	assert.Equal(t, 2*time.Minute, d.backoff(2))
	assert.Equal(t, 8*time.Minute, d.backoff(4))
	assert.Equal(t, 10*time.Minute, d.backoff(5))
	assert.Equal(t, 10*time.Minute, d.backoff(9))
}

func TestDispatcherRequiresCollaborators(t *testing.T) {
	t.Parallel()

	_, err := NewDispatcher(DispatcherDeps{}).DispatchDue(context.Background(), runAt)
	assert.Error(t, err)
}
