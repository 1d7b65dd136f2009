package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AgentRadar/internal/domain"
)

func TestMemoryRepositoryListRecent(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i, region := range []string{"toronto", "ottawa", "toronto"} {
		a := sampleAlert()
		a.Region = region
		a.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		id, err := repo.CreateAlert(ctx, a)
		require.NoError(t, err)
		assert.NotEmpty(t, id)
	}

	all, err := repo.ListRecent(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	toronto, err := repo.ListRecent(ctx, "toronto", 1)
	require.NoError(t, err)
	require.Len(t, toronto, 1)
	assert.Equal(t, base.Add(2*time.Hour), toronto[0].CreatedAt)
	assert.JSONEq(t, `{}`, string(toronto[0].Metadata))
}

func TestMemoryRepositoryRejectsInvalid(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()
	alert := sampleAlert()
	alert.Title = ""
	_, err := repo.CreateAlert(context.Background(), alert)
	assert.Error(t, err)
	assert.Empty(t, repo.All())
}

func TestMemoryTaskQueueLifecycle(t *testing.T) {
	t.Parallel()

	q := NewMemoryTaskQueue()
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	id, err := q.Enqueue(ctx, domain.Task{Kind: domain.TaskKindNotify, DueAt: now.Add(5 * time.Minute)})
	require.NoError(t, err)

	claimed, err := q.ClaimDue(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, claimed, "task is not due yet")

	claimed, err = q.ClaimDue(ctx, now.Add(5*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, 1, claimed[0].Attempts)

	again, err := q.ClaimDue(ctx, now.Add(6*time.Minute), 10)
	require.NoError(t, err)
	assert.Empty(t, again, "running task is leased")

	require.NoError(t, q.Retry(ctx, id, now.Add(10*time.Minute), "telegram down"))
	task, ok := q.Get(id)
	require.True(t, ok)
	assert.Equal(t, domain.TaskPending, task.Status)
	assert.Equal(t, "telegram down", task.LastError)

	require.NoError(t, q.Complete(ctx, id))
	task, _ = q.Get(id)
	assert.Equal(t, domain.TaskDone, task.Status)

	claimed, err = q.ClaimDue(ctx, now.Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestMemoryTaskQueueReclaimsExpiredLease(t *testing.T) {
	t.Parallel()

	q := NewMemoryTaskQueue()
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	_, err := q.Enqueue(ctx, domain.Task{Kind: domain.TaskKindNotify, DueAt: now})
	require.NoError(t, err)

	first, err := q.ClaimDue(ctx, now, 1)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := q.ClaimDue(ctx, now.Add(DefaultLease), 1)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, 2, second[0].Attempts)
}

func TestMemoryTaskQueueOrdersByDueTimeAndLimits(t *testing.T) {
	t.Parallel()

	q := NewMemoryTaskQueue()
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	late, _ := q.Enqueue(ctx, domain.Task{Kind: domain.TaskKindNotify, DueAt: now.Add(-time.Minute)})
	early, _ := q.Enqueue(ctx, domain.Task{Kind: domain.TaskKindNotify, DueAt: now.Add(-time.Hour)})

	claimed, err := q.ClaimDue(ctx, now, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, early, claimed[0].ID)

	require.NoError(t, q.Fail(ctx, early, "bad chat"))
	err = q.Fail(ctx, "nope", "x")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, 2, q.Len())
	_ = late
}
