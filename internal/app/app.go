package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"AgentRadar/internal/config"
	"AgentRadar/internal/domain"
	"AgentRadar/internal/infrastructure/cache"
	"AgentRadar/internal/infrastructure/llm"
	"AgentRadar/internal/infrastructure/lookup"
	"AgentRadar/internal/infrastructure/parser"
	"AgentRadar/internal/infrastructure/propertyapi"
	"AgentRadar/internal/infrastructure/scheduler"
	"AgentRadar/internal/infrastructure/storage"
	"AgentRadar/internal/infrastructure/telegram"
	"AgentRadar/internal/logging"
	"AgentRadar/internal/metrics"
	"AgentRadar/internal/ports"
	"AgentRadar/internal/scanner"
	"AgentRadar/internal/usecase"
	"AgentRadar/internal/validation"
	"AgentRadar/pkg/logger"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg        config.Config
	logger     *slog.Logger
	metrics    *metrics.Pipeline
	db         *sql.DB
	redis      *cache.RedisCache
	repository ports.AlertRepository
	pipeline   *usecase.Pipeline
	dispatcher *usecase.Dispatcher
	scheduler  *usecase.Scheduler
}

// New builds every adapter the configuration asks for. Postgres and Redis are
// optional: without a DSN alerts and tasks stay in memory, without an address
// caching is skipped.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format, nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Application{cfg: cfg, logger: baseLogger, metrics: metrics.NewPipeline()}

	registry := scanner.NewRegistry()
	registry.Register(parser.NewListingScanner(nil))
	registry.Register(parser.NewFeedScanner(nil))
	registry.Register(parser.NewJSONScanner(nil))
	source := parser.NewStrategySource(registry, cfg.Regions, a.metrics, baseLogger.With("component", "source"))

	var tasks ports.TaskQueue
	if cfg.Database.DSN != "" {
		db, err := storage.Open(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.repository = storage.NewPostgresRepository(db)
		tasks = storage.NewPostgresTaskQueue(db)
	} else {
		baseLogger.Warn("no database configured, alerts are kept in memory")
		a.repository = storage.NewMemoryRepository()
		tasks = storage.NewMemoryTaskQueue()
	}

	var alertCache ports.Cache
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCache(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			baseLogger.Warn("redis unavailable, alert cache disabled", "addr", cfg.Redis.Addr, "error", err)
		} else {
			a.redis = rc
			alertCache = rc
		}
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:      source,
		Validator:   newValidator(cfg.PropertyAPI),
		Repository:  a.repository,
		Cache:       alertCache,
		UserMatcher: lookup.NewSubscriberMatcher(subscriptions(cfg.Subscribers)),
		Tasks:       tasks,
		Describer:   newDescriber(cfg.ChatGPT),
		Metrics:     a.metrics,
		Logger:      baseLogger.With("component", "pipeline"),
		Regions:     cfg.RegionNames(),
		Options:     PipelineOptions(cfg),
	})

	dispatcher := usecase.NewDispatcher(usecase.DispatcherDeps{
		Tasks:       tasks,
		Notifier:    newNotifier(cfg.Notifications.Telegram, baseLogger),
		Metrics:     a.metrics,
		Logger:      baseLogger.With("component", "dispatcher"),
		BatchSize:   cfg.Pipeline.DispatchBatch,
		MaxAttempts: cfg.Pipeline.MaxNotifyAttempts,
	})

	schedules := make([]usecase.RegionSchedule, 0, len(cfg.Regions))
	for _, r := range cfg.Regions {
		schedules = append(schedules, usecase.RegionSchedule{Region: r.Name, Spec: r.Schedule})
	}
	driver := scheduler.NewCronScheduler(cfg.Scheduler.Location(), baseLogger.With("component", "cron"))

	a.pipeline = pipeline
	a.dispatcher = dispatcher
	a.scheduler = usecase.NewScheduler(driver, pipeline, dispatcher, schedules, cfg.Scheduler.DispatchSpec,
		baseLogger.With("component", "scheduler"))
	return a, nil
}

func newValidator(cfg config.PropertyAPIConfig) *validation.Validator {
	if cfg.Endpoint == "" {
		return validation.NewValidator(lookup.EchoAddressValidator{}, lookup.NoPropertyMatcher{}, lookup.EchoEntityVerifier{})
	}
	client := propertyapi.NewClient(cfg)
	return validation.NewValidator(client, client, client)
}

func newDescriber(cfg config.ChatGPTConfig) ports.Describer {
	if cfg.APIKey == "" {
		return nil
	}
	return llm.NewChatGPTClient(cfg)
}

func newNotifier(cfg config.TelegramConfig, log *slog.Logger) ports.Notifier {
	if cfg.BotToken == "" {
		log.Warn("telegram is not configured, notifications are only logged")
		return logNotifier{logger: log.With("component", "notifier")}
	}
	return telegram.NewNotifier(cfg.BotToken, cfg.ChatID, cfg.UserChats)
}

func subscriptions(subs []config.SubscriberConfig) []lookup.Subscription {
	out := make([]lookup.Subscription, 0, len(subs))
	for _, s := range subs {
		out = append(out, lookup.Subscription{UserID: s.UserID, Regions: s.Regions, MinScore: s.MinScore})
	}
	return out
}

// PipelineOptions maps configured thresholds and delays onto pipeline options.
func PipelineOptions(cfg config.Config) usecase.Options {
	opts := usecase.DefaultOptions()
	p := cfg.Pipeline
	opts.QualityThreshold = p.QualityThreshold
	opts.NERThreshold = p.NERThreshold
	opts.ValidationThreshold = p.ValidationThreshold
	opts.AlertThreshold = p.AlertThreshold
	opts.CacheThreshold = p.CacheThreshold
	opts.DescribeMinScore = p.DescribeMinScore
	opts.NotificationDelay = p.NotificationDelay
	opts.RegionDelay = cfg.Scheduler.RegionDelay
	if cfg.Redis.TTL > 0 {
		opts.CacheTTL = cfg.Redis.TTL
	}
	return opts
}

// logNotifier stands in for a delivery channel when none is configured.
type logNotifier struct {
	logger *slog.Logger
}

func (n logNotifier) Notify(_ context.Context, p domain.NotificationPayload) error {
	n.logger.Info("notification", "user", p.UserID, "alert", p.AlertID, "priority", p.Priority, "title", p.Title)
	return nil
}

// Pipeline exposes the configured pipeline.
func (a *Application) Pipeline() *usecase.Pipeline { return a.pipeline }

// Dispatcher exposes the notification dispatcher.
func (a *Application) Dispatcher() *usecase.Dispatcher { return a.dispatcher }

// Alerts exposes the alert repository.
func (a *Application) Alerts() ports.AlertRepository { return a.repository }

// Metrics exposes the Prometheus collectors.
func (a *Application) Metrics() *metrics.Pipeline { return a.metrics }

// RunOnce processes every region once and delivers whatever notifications are due.
func (a *Application) RunOnce(ctx context.Context) usecase.RunResult {
	now := time.Now().In(a.cfg.Scheduler.Location())
	res := a.pipeline.Run(ctx, now)
	if _, err := a.dispatcher.DispatchDue(ctx, now.Add(a.cfg.Pipeline.NotificationDelay)); err != nil {
		a.logger.Error("dispatch failed", "error", err)
	}
	return res
}

// Run starts the scheduler and the metrics endpoint, then blocks until ctx is done.
func (a *Application) Run(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("agentradar started", "regions", a.cfg.RegionNames())

	var srv *http.Server
	errCh := make(chan error, 1)
	if a.cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", a.metrics.Handler())
		srv = &http.Server{
			Addr:              a.cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ErrorLog:          logger.New("metrics", a.logger),
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
		a.logger.Info("metrics listening", "addr", a.cfg.Metrics.Addr)
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.scheduler.Stop(shutdownCtx); err != nil {
		a.logger.Error("scheduler stop", "error", err)
	}
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("metrics shutdown", "error", err)
		}
	}
	a.logger.Info("agentradar stopped")
	return runErr
}

// Migrate creates the Postgres schema.
func (a *Application) Migrate(ctx context.Context) error {
	if a.db == nil {
		return fmt.Errorf("migrate: no database configured")
	}
	return storage.EnsureSchema(ctx, a.db)
}

// Close releases database and Redis connections.
func (a *Application) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
