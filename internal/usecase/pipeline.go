package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"AgentRadar/internal/domain"
	"AgentRadar/internal/extract"
	"AgentRadar/internal/infrastructure/llm"
	"AgentRadar/internal/metrics"
	"AgentRadar/internal/normalize"
	"AgentRadar/internal/ports"
	"AgentRadar/internal/scoring"
	"AgentRadar/internal/validation"
)

// Options holds the pipeline thresholds and delays.
type Options struct {
	QualityThreshold    float64
	NERThreshold        float64
	ValidationThreshold float64
	AlertThreshold      float64
	CacheThreshold      float64
	CacheTTL            time.Duration
	DescribeMinScore    float64
	NotificationDelay   time.Duration
	RegionDelay         time.Duration
}

// DefaultOptions mirrors the default configuration.
func DefaultOptions() Options {
	return Options{
		QualityThreshold:    scoring.QualityThreshold,
		NERThreshold:        scoring.NERThreshold,
		ValidationThreshold: validation.Threshold,
		AlertThreshold:      80,
		CacheThreshold:      80,
		CacheTTL:            time.Hour,
		DescribeMinScore:    60,
		NotificationDelay:   0,
		RegionDelay:         5 * time.Second,
	}
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
// Only Source and Repository are required; the rest degrade to no-ops when nil.
type PipelineDeps struct {
	Source      ports.RecordSource
	Validator   *validation.Validator
	Repository  ports.AlertRepository
	Cache       ports.Cache
	UserMatcher ports.UserMatcher
	Tasks       ports.TaskQueue
	Describer   ports.Describer
	Scorer      *scoring.Scorer
	Metrics     *metrics.Pipeline
	Logger      *slog.Logger
	Regions     []string
	Options     Options
}

// Pipeline implements the lead extraction workflow, one region at a time.
type Pipeline struct {
	source      ports.RecordSource
	validator   *validation.Validator
	repository  ports.AlertRepository
	cache       ports.Cache
	userMatcher ports.UserMatcher
	tasks       ports.TaskQueue
	describer   ports.Describer
	scorer      *scoring.Scorer
	metrics     *metrics.Pipeline
	logger      *slog.Logger
	regions     []string
	opts        Options

	runMu sync.Mutex
	stage atomic.Int32
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	scorer := deps.Scorer
	if scorer == nil {
		scorer = scoring.NewScorer(nil)
	}
	validator := deps.Validator
	if validator == nil {
		validator = validation.NewValidator(nil, nil, nil)
	}
	return &Pipeline{
		source:      deps.Source,
		validator:   validator,
		repository:  deps.Repository,
		cache:       deps.Cache,
		userMatcher: deps.UserMatcher,
		tasks:       deps.Tasks,
		describer:   deps.Describer,
		scorer:      scorer,
		metrics:     deps.Metrics,
		logger:      logger,
		regions:     append([]string(nil), deps.Regions...),
		opts:        deps.Options,
	}
}

// RegionResult counts what happened to one region's records.
type RegionResult struct {
	Region    string   `json:"region"`
	Collected int      `json:"collected"`
	Cleaned   int      `json:"cleaned"`
	Extracted int      `json:"extracted"`
	Validated int      `json:"validated"`
	Stored    int      `json:"stored"`
	Cached    int      `json:"cached"`
	Queued    int      `json:"notificationsQueued"`
	Dropped   int      `json:"dropped"`
	AlertIDs  []string `json:"alertIds"`
	Error     string   `json:"error,omitempty"`
}

// RunResult reports a full run. Success is false only when the run itself failed;
// per-source and per-record losses are logged and counted in Regions.
type RunResult struct {
	Success    bool           `json:"success"`
	Error      string         `json:"error,omitempty"`
	Regions    []RegionResult `json:"regions"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
}

// Alerts sums stored alerts across regions.
func (r RunResult) Alerts() int {
	total := 0
	for _, rr := range r.Regions {
		total += rr.Stored
	}
	return total
}

// Stage reports the state machine position of the current run.
func (p *Pipeline) Stage() Stage {
	return Stage(p.stage.Load())
}

// Regions lists the configured regions in run order.
func (p *Pipeline) Regions() []string {
	return append([]string(nil), p.regions...)
}

// Run processes every configured region in order.
func (p *Pipeline) Run(ctx context.Context, now time.Time) RunResult {
	return p.RunRegions(ctx, now, p.regions...)
}

// RunRegions processes the given regions sequentially with the configured delay between them.
func (p *Pipeline) RunRegions(ctx context.Context, now time.Time, regions ...string) (result RunResult) {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	result = RunResult{Success: true, StartedAt: time.Now(), Regions: []RegionResult{}}
	defer func() {
		if r := recover(); r != nil {
			result.Success = false
			result.Error = fmt.Sprintf("pipeline panic: %v", r)
			p.logger.Error("pipeline run failed", "error", result.Error)
		}
		p.setStage(StageIdle)
		result.FinishedAt = time.Now()
		p.metrics.RecordRun(result.Success)
	}()

	if err := p.ready(); err != nil {
		result.Success = false
		result.Error = err.Error()
		return result
	}

	for i, region := range regions {
		if i > 0 && p.opts.RegionDelay > 0 {
			if err := sleep(ctx, p.opts.RegionDelay); err != nil {
				result.Success = false
				result.Error = err.Error()
				return result
			}
		}

		rr, err := p.runRegion(ctx, region, now)
		result.Regions = append(result.Regions, rr)
		if err != nil {
			result.Success = false
			result.Error = err.Error()
			return result
		}
	}

	p.logger.Info("pipeline run finished", "regions", len(result.Regions), "alerts", result.Alerts())
	return result
}

// RunRegion processes a single region and reports its counts.
func (p *Pipeline) RunRegion(ctx context.Context, region string, now time.Time) RegionResult {
	res := p.RunRegions(ctx, now, region)
	if len(res.Regions) == 0 {
		return RegionResult{Region: region, AlertIDs: []string{}, Error: res.Error}
	}
	rr := res.Regions[0]
	if rr.Error == "" {
		rr.Error = res.Error
	}
	return rr
}

func (p *Pipeline) ready() error {
	if p.source == nil {
		return fmt.Errorf("record source is not configured")
	}
	if p.repository == nil {
		return fmt.Errorf("alert repository is not configured")
	}
	return nil
}

// runRegion returns an error only when the run must stop (cancellation).
func (p *Pipeline) runRegion(ctx context.Context, region string, now time.Time) (RegionResult, error) {
	log := p.logger.With("region", region)
	rr := RegionResult{Region: region, AlertIDs: []string{}}

	p.setStage(StageCollecting)
	raws, err := p.source.FetchRegion(ctx, region, now)
	if ctx.Err() != nil {
		return rr, ctx.Err()
	}
	if err != nil {
		// A failed region yields nothing; the others still run.
		rr.Error = err.Error()
		p.metrics.RecordSourceError(region, "region")
		log.Warn("collection failed", "error", err)
	}
	rr.Collected = len(raws)
	p.metrics.RecordStage(region, StageCollecting.metricLabel(), len(raws))

	p.setStage(StageCleaning)
	cleaned := make([]domain.NormalizedRecord, 0, len(raws))
	for _, raw := range raws {
		rec, err := guard(StageCleaning, func() (domain.NormalizedRecord, error) { return p.clean(raw) })
		if err != nil {
			p.drop(log, region, StageCleaning, raw.ID, err)
			rr.Dropped++
			continue
		}
		cleaned = append(cleaned, rec)
	}
	rr.Cleaned = len(cleaned)
	p.metrics.RecordStage(region, StageCleaning.metricLabel(), len(cleaned))

	p.setStage(StageExtracting)
	type extracted struct {
		rec  domain.NormalizedRecord
		ents domain.ExtractedEntities
	}
	withEntities := make([]extracted, 0, len(cleaned))
	for _, rec := range cleaned {
		ents, err := guard(StageExtracting, func() (domain.ExtractedEntities, error) { return p.extract(rec) })
		if err != nil {
			p.drop(log, region, StageExtracting, rec.Raw.ID, err)
			rr.Dropped++
			continue
		}
		withEntities = append(withEntities, extracted{rec: rec, ents: ents})
	}
	rr.Extracted = len(withEntities)
	p.metrics.RecordStage(region, StageExtracting.metricLabel(), len(withEntities))

	p.setStage(StageScoring)
	scored := make([]domain.ScoredRecord, 0, len(withEntities))
	for _, e := range withEntities {
		scored = append(scored, p.scorer.ScoreAt(e.rec, e.ents, now))
	}
	scoring.SortByScore(scored)
	p.metrics.RecordStage(region, StageScoring.metricLabel(), len(scored))

	p.setStage(StageValidating)
	validated := make([]domain.ValidatedRecord, 0, len(scored))
	for _, s := range scored {
		if err := ctx.Err(); err != nil {
			return rr, err
		}
		v, err := guard(StageValidating, func() (domain.ValidatedRecord, error) { return p.validator.Validate(ctx, s) })
		if err != nil {
			p.drop(log, region, StageValidating, s.Record.Raw.ID, err)
			rr.Dropped++
			continue
		}
		if !scoring.PassesQuality(v.ValidationScore, p.opts.ValidationThreshold) {
			p.drop(log, region, StageValidating, s.Record.Raw.ID,
				fmt.Errorf("validation score %.2f below %.2f", v.ValidationScore, p.opts.ValidationThreshold))
			rr.Dropped++
			continue
		}
		validated = append(validated, v)
	}
	rr.Validated = len(validated)
	p.metrics.RecordStage(region, StageValidating.metricLabel(), len(validated))

	p.setStage(StageStoring)
	stored := make([]domain.AlertRecord, 0, len(validated))
	for _, v := range validated {
		if err := ctx.Err(); err != nil {
			return rr, err
		}
		alert, err := guard(StageStoring, func() (domain.AlertRecord, error) { return p.buildAlert(ctx, log, v, region, now) })
		if err != nil {
			p.drop(log, region, StageStoring, v.Scored.Record.Raw.ID, err)
			rr.Dropped++
			continue
		}
		id, err := guard(StageStoring, func() (string, error) { return p.repository.CreateAlert(ctx, alert) })
		if err != nil {
			// Persistence failures lose this alert only.
			p.metrics.RecordDrop(region, StageStoring.metricLabel(), "persist")
			log.Error("alert not persisted", "record", v.Scored.Record.Raw.ID, "error", err)
			rr.Dropped++
			continue
		}
		alert.ID = id
		rr.AlertIDs = append(rr.AlertIDs, id)
		p.metrics.RecordAlert(region, string(alert.Priority), alert.OpportunityScore)

		cached, err := guard(StageStoring, func() (bool, error) { return p.cacheAlert(ctx, log, alert), nil })
		if err != nil {
			log.Warn("cache write failed", "alert", alert.ID, "error", err)
		}
		if cached {
			rr.Cached++
		}
		stored = append(stored, alert)
	}
	rr.Stored = len(stored)

	p.setStage(StageAlerting)
	for _, alert := range stored {
		queued, err := guard(StageAlerting, func() (int, error) { return p.queueNotifications(ctx, log, alert, now), nil })
		if err != nil {
			log.Error("notifications not queued", "alert", alert.ID, "error", err)
		}
		rr.Queued += queued
	}

	log.Info("region processed",
		"collected", rr.Collected, "stored", rr.Stored, "dropped", rr.Dropped, "queued", rr.Queued)
	return rr, nil
}

// clean normalizes a raw record and applies the data-quality gate.
func (p *Pipeline) clean(raw domain.RawRecord) (domain.NormalizedRecord, error) {
	text := normalize.CollapseLines(raw.Content)
	clean := normalize.Normalize(raw.Content)
	dates := extract.Dates(text)

	rec := domain.NormalizedRecord{
		Raw:            raw,
		CleanText:      clean,
		Dates:          dates,
		MonetaryValues: extract.MonetaryValues(text),
		PropertyType:   extract.PropertyType(clean),
		Urgent:         extract.IsUrgent(clean),
		QualityScore:   scoring.DataQuality(raw, dates),
	}
	if !scoring.PassesQuality(rec.QualityScore, p.opts.QualityThreshold) {
		return domain.NormalizedRecord{}, fmt.Errorf("%w: quality %.2f", errLowQuality, rec.QualityScore)
	}
	return rec, nil
}

// extract pulls entities from the case-preserving, line-preserving text and applies the confidence gate.
func (p *Pipeline) extract(rec domain.NormalizedRecord) (domain.ExtractedEntities, error) {
	ents := extract.Entities(normalize.CollapseLines(rec.Raw.Content))
	conf := scoring.NERConfidence(ents)
	if !scoring.PassesQuality(conf, p.opts.NERThreshold) {
		return domain.ExtractedEntities{}, fmt.Errorf("%w: confidence %.2f", errLowConfidence, conf)
	}
	return ents, nil
}

// Assess cleans, extracts and scores one record without touching any store.
// The quality and confidence gates still apply.
func (p *Pipeline) Assess(raw domain.RawRecord, now time.Time) (domain.ScoredRecord, error) {
	rec, err := guard(StageCleaning, func() (domain.NormalizedRecord, error) { return p.clean(raw) })
	if err != nil {
		return domain.ScoredRecord{}, err
	}
	ents, err := guard(StageExtracting, func() (domain.ExtractedEntities, error) { return p.extract(rec) })
	if err != nil {
		return domain.ScoredRecord{}, err
	}
	return p.scorer.ScoreAt(rec, ents, now), nil
}

var (
	errLowQuality    = errors.New("low data quality")
	errLowConfidence = errors.New("low entity confidence")
)

func (p *Pipeline) buildAlert(ctx context.Context, log *slog.Logger, v domain.ValidatedRecord, region string, now time.Time) (domain.AlertRecord, error) {
	raw := v.Scored.Record.Raw
	meta := domain.AlertMetadata{
		RecordID:        raw.ID,
		URL:             raw.URL,
		QualityScore:    v.Scored.Record.QualityScore,
		NERConfidence:   v.Scored.NERConfidence,
		ValidationScore: v.ValidationScore,
		Breakdown:       v.Scored.Breakdown,
		Entities:        v.Scored.Entities,
		Dates:           v.Scored.Record.Dates,
		MonetaryValues:  v.Scored.Record.MonetaryValues,
		PropertyType:    v.Scored.Record.PropertyType,
		Urgent:          v.Scored.Record.Urgent,
		Addresses:       v.Addresses,
		PropertyMatches: v.PropertyMatches,
	}
	if raw.HasDate() {
		published := raw.PublishedAt
		meta.PublishedAt = &published
	}
	metadata, err := json.Marshal(meta)
	if err != nil {
		return domain.AlertRecord{}, fmt.Errorf("marshal metadata: %w", err)
	}

	return domain.AlertRecord{
		Type:             inferAlertType(v.Scored.Record),
		Title:            alertTitle(raw),
		Description:      p.describe(ctx, log, v),
		Address:          v.PrimaryAddress(),
		Region:           region,
		Priority:         v.Scored.Priority(),
		Status:           domain.AlertStatusActive,
		OpportunityScore: v.Scored.Score,
		EstimatedValue:   v.EstimatedValue(),
		Source:           raw.Source,
		Metadata:         metadata,
		CreatedAt:        now.UTC(),
	}, nil
}

// describe prefers the LLM text and falls back to a template.
func (p *Pipeline) describe(ctx context.Context, log *slog.Logger, v domain.ValidatedRecord) string {
	if p.describer == nil || v.Scored.Score < p.opts.DescribeMinScore {
		return templateDescription(v)
	}
	text, err := p.describer.Describe(ctx, v)
	switch {
	case errors.Is(err, llm.ErrBudgetExceeded):
		log.Info("description budget exhausted, using template")
	case err != nil:
		log.Warn("description failed, using template", "record", v.Scored.Record.Raw.ID, "error", err)
	case text != "":
		return text
	}
	return templateDescription(v)
}

func (p *Pipeline) cacheAlert(ctx context.Context, log *slog.Logger, alert domain.AlertRecord) bool {
	if p.cache == nil || alert.OpportunityScore < p.opts.CacheThreshold {
		return false
	}
	payload, err := json.Marshal(alert)
	if err != nil {
		log.Warn("cache encode failed", "alert", alert.ID, "error", err)
		return false
	}
	if err := p.cache.Set(ctx, "alert:"+alert.ID, payload, p.opts.CacheTTL); err != nil {
		log.Warn("cache write failed", "alert", alert.ID, "error", err)
		return false
	}
	return true
}

// queueNotifications enqueues one delayed notify task per matched user.
func (p *Pipeline) queueNotifications(ctx context.Context, log *slog.Logger, alert domain.AlertRecord, now time.Time) int {
	if p.userMatcher == nil || p.tasks == nil || alert.OpportunityScore < p.opts.AlertThreshold {
		return 0
	}

	users, err := p.userMatcher.MatchUsers(ctx, alert)
	if err != nil {
		log.Warn("user matching failed", "alert", alert.ID, "error", err)
		return 0
	}

	queued := 0
	for _, user := range users {
		payload, err := json.Marshal(domain.NotificationPayload{
			UserID:   user,
			AlertID:  alert.ID,
			Title:    alert.Title,
			Address:  alert.Address,
			Region:   alert.Region,
			Priority: alert.Priority,
			Score:    alert.OpportunityScore,
			Value:    alert.EstimatedValue,
			Summary:  alert.Description,
		})
		if err != nil {
			log.Warn("notification encode failed", "alert", alert.ID, "user", user, "error", err)
			continue
		}
		_, err = p.tasks.Enqueue(ctx, domain.Task{
			Kind:    domain.TaskKindNotify,
			Payload: payload,
			DueAt:   now.Add(p.opts.NotificationDelay),
		})
		if err != nil {
			log.Error("notification not queued", "alert", alert.ID, "user", user, "error", err)
			continue
		}
		queued++
	}
	return queued
}

func (p *Pipeline) drop(log *slog.Logger, region string, stage Stage, recordID string, err error) {
	reason := "error"
	switch {
	case errors.Is(err, errLowQuality):
		reason = "low_quality"
	case errors.Is(err, errLowConfidence):
		reason = "low_confidence"
	case stage == StageValidating:
		reason = "validation"
	}
	p.metrics.RecordDrop(region, stage.metricLabel(), reason)
	log.Debug("record dropped", "stage", stage.String(), "record", recordID, "reason", err)
}

// guard turns a panic while processing one record, including one raised by a
// collaborator, into an error for that record.
func guard[T any](stage Stage, fn func() (T, error)) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panic: %v", stage, r)
		}
	}()
	return fn()
}

func (p *Pipeline) setStage(s Stage) {
	p.stage.Store(int32(s))
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
