package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"AgentRadar/internal/ports"
)

// RegionSchedule pairs a region with its cron spec.
type RegionSchedule struct {
	Region string
	Spec   string
}

// Scheduler wires the cron-like driver with the pipeline and the notification dispatcher.
type Scheduler struct {
	driver       ports.Scheduler
	pipeline     *Pipeline
	dispatcher   *Dispatcher
	regions      []RegionSchedule
	dispatchSpec string
	logger       *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring jobs. A nil dispatcher disables delivery.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, dispatcher *Dispatcher, regions []RegionSchedule, dispatchSpec string, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		driver:       driver,
		pipeline:     pipeline,
		dispatcher:   dispatcher,
		regions:      append([]RegionSchedule(nil), regions...),
		dispatchSpec: dispatchSpec,
		logger:       logger,
	}
}

// Start registers one job per region plus the dispatcher job, then starts the driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	for _, rs := range s.regions {
		region := rs.Region
		job := func(trigger time.Time) {
			res := s.pipeline.RunRegions(ctx, trigger, region)
			if !res.Success {
				s.logger.Error("scheduled run failed", "region", region, "error", res.Error)
			}
		}
		if err := s.driver.Schedule(rs.Spec, job); err != nil {
			return fmt.Errorf("region %s: %w", region, err)
		}
		s.logger.Info("region scheduled", "region", region, "spec", rs.Spec)
	}

	if s.dispatcher != nil && s.dispatchSpec != "" {
		job := func(trigger time.Time) {
			if _, err := s.dispatcher.DispatchDue(ctx, trigger); err != nil {
				s.logger.Error("dispatch failed", "error", err)
			}
		}
		if err := s.driver.Schedule(s.dispatchSpec, job); err != nil {
			return fmt.Errorf("dispatcher: %w", err)
		}
	}

	return s.driver.Start(ctx)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
