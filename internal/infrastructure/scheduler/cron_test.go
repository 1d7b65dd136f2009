package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AgentRadar/internal/logging"
)

func TestScheduleRejectsBadSpec(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(time.UTC, logging.Discard())
	assert.Error(t, s.Schedule("every tuesday-ish", func(time.Time) {}))
	assert.Error(t, s.Schedule("@every 1h", nil))
	require.NoError(t, s.Schedule("@every 6h", func(time.Time) {}))
	require.NoError(t, s.Schedule("0 7 * * *", func(time.Time) {}))
	assert.Equal(t, 2, s.Entries())
}

func TestCronRunsJobs(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(time.UTC, logging.Discard())
	fired := make(chan time.Time, 4)
	require.NoError(t, s.Schedule("@every 1s", func(ts time.Time) {
		select {
		case fired <- ts:
		default:
		}
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Start(ctx), "second start is a no-op")

	select {
	case ts := <-fired:
		assert.Equal(t, time.UTC, ts.Location())
	case <-time.After(3 * time.Second):
		t.Fatal("job did not fire")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, s.Stop(stopCtx))
	require.NoError(t, s.Stop(stopCtx), "stop is idempotent")
}
