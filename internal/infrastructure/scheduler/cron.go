package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"AgentRadar/internal/ports"
)

// CronScheduler runs registered jobs on cron specs ("@every 6h", "0 7 * * *") in one location.
type CronScheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	running bool
	logger  *slog.Logger
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler evaluating specs in loc. Overlapping runs of one job are skipped.
func NewCronScheduler(loc *time.Location, logger *slog.Logger) *CronScheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CronScheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cronLogger{logger}), cron.SkipIfStillRunning(cronLogger{logger})),
		),
		logger: logger,
	}
}

// Schedule registers job; it may be called before or after Start.
func (c *CronScheduler) Schedule(spec string, job func(time.Time)) error {
	if job == nil {
		return fmt.Errorf("schedule %q: nil job", spec)
	}
	loc := c.cron.Location()
	if _, err := c.cron.AddFunc(spec, func() { job(time.Now().In(loc)) }); err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}
	return nil
}

// Start launches the cron loop; it stops when ctx is cancelled or Stop is called.
func (c *CronScheduler) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}
	c.running = true
	c.cron.Start()

	go func() {
		<-ctx.Done()
		_ = c.Stop(context.Background())
	}()
	return nil
}

// Stop halts scheduling and waits for running jobs or ctx, whichever comes first.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	done := c.cron.Stop()
	c.mu.Unlock()

	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Entries reports how many jobs are registered.
func (c *CronScheduler) Entries() int {
	return len(c.cron.Entries())
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
