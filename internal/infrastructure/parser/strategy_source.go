package parser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"AgentRadar/internal/config"
	"AgentRadar/internal/domain"
	"AgentRadar/internal/metrics"
	"AgentRadar/internal/ports"
	"AgentRadar/internal/scanner"
)

// StrategySource implements RecordSource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	regions  map[string]config.RegionConfig
	metrics  *metrics.Pipeline
	logger   *slog.Logger
}

var _ ports.RecordSource = (*StrategySource)(nil)

// NewStrategySource wires the scanner registry with config-defined regions.
func NewStrategySource(reg *scanner.Registry, regions []config.RegionConfig, m *metrics.Pipeline, log *slog.Logger) *StrategySource {
	byName := make(map[string]config.RegionConfig, len(regions))
	for _, r := range regions {
		byName[r.Name] = r
	}
	return &StrategySource{
		registry: reg,
		regions:  byName,
		metrics:  m,
		logger:   log,
	}
}

// FetchRegion runs every source of the region. A failing source is logged and skipped.
func (s *StrategySource) FetchRegion(ctx context.Context, region string, day time.Time) ([]domain.RawRecord, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}
	rc, ok := s.regions[region]
	if !ok {
		return nil, fmt.Errorf("region %s is not configured", region)
	}

	s.debug("fetch region", "region", region, "sources", len(rc.Sources), "day", day.Format(time.DateOnly))

	var aggregated []domain.RawRecord
	for _, src := range rc.Sources {
		if err := ctx.Err(); err != nil {
			return aggregated, err
		}

		results, err := s.scanSource(ctx, region, src, day)
		if err != nil {
			if ctx.Err() != nil {
				return aggregated, ctx.Err()
			}
			s.metrics.RecordSourceError(region, src.Name)
			if s.logger != nil {
				s.logger.Warn("source skipped", "region", region, "source", src.Name, "scanner", src.Scanner, "error", err)
			}
			continue
		}

		for i := range results {
			if results[i].Source == "" {
				results[i].Source = src.Name
			}
			results[i].Region = region
			if results[i].ID == "" {
				results[i].ID = recordID(results[i])
			}
		}
		s.debug("source produced records", "region", region, "source", src.Name, "count", len(results))
		aggregated = append(aggregated, results...)
	}

	s.debug("strategy source done", "region", region, "total_records", len(aggregated))
	return aggregated, nil
}

func (s *StrategySource) scanSource(ctx context.Context, region string, src config.SourceConfig, day time.Time) ([]domain.RawRecord, error) {
	strategy, err := s.registry.Resolve(src.Scanner)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", src.Name, err)
	}

	req := scanner.Request{
		Day:        day,
		Region:     region,
		SourceName: src.Name,
		Options:    src.Options,
		Endpoints:  toScannerEndpoints(src.Endpoints),
	}

	results, err := strategy.Scan(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("scan source %s: %w", src.Name, err)
	}
	return results, nil
}

func toScannerEndpoints(cfg []config.EndpointConfig) []scanner.Endpoint {
	endpoints := make([]scanner.Endpoint, 0, len(cfg))
	for _, ep := range cfg {
		endpoints = append(endpoints, scanner.Endpoint{
			Name: ep.Name,
			URL:  ep.URL,
		})
	}
	return endpoints
}

// recordID derives a stable identifier so the same notice keeps its ID across runs.
func recordID(r domain.RawRecord) string {
	key := r.URL
	if key == "" {
		key = r.Source + "\x00" + r.Title + "\x00" + r.Content
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

func (s *StrategySource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
