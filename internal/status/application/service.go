package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"nowcasting-dashboard/internal/observability/metrics"
	status "nowcasting-dashboard/internal/status/domain"
)

const maxConcurrentReads = 4

// LastUpdatedReader returns when an input source was last pulled.
type LastUpdatedReader interface {
	LastUpdated(ctx context.Context, source string) (*time.Time, error)
}

// ForecastCreatedReader returns when the latest forecast for a region was created.
type ForecastCreatedReader interface {
	LatestForecastCreated(ctx context.Context, scope status.Scope, regionID int) (*time.Time, error)
}

// Clock provides current time.
type Clock interface {
	Now() time.Time
}

// Report is the status tab payload.
type Report struct {
	Consumers   []status.StatusRow `json:"consumers"`
	Forecasts   []status.StatusRow `json:"forecasts"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// Rows returns consumers followed by forecasts.
func (r Report) Rows() []status.StatusRow {
	rows := make([]status.StatusRow, 0, len(r.Consumers)+len(r.Forecasts))
	rows = append(rows, r.Consumers...)
	return append(rows, r.Forecasts...)
}

// Service builds status reports from the last-updated readers.
type Service struct {
	inputs    LastUpdatedReader
	forecasts ForecastCreatedReader
	cfg       Config
	clock     Clock
	logger    zerolog.Logger
}

// NewService constructs a status Service.
func NewService(inputs LastUpdatedReader, forecasts ForecastCreatedReader, cfg Config, clock Clock, logger zerolog.Logger) (*Service, error) {
	if inputs == nil {
		return nil, errors.New("status service: nil last updated reader")
	}
	if forecasts == nil {
		return nil, errors.New("status service: nil forecast reader")
	}
	if clock == nil {
		return nil, errors.New("status service: nil clock")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Service{inputs: inputs, forecasts: forecasts, cfg: cfg, clock: clock, logger: logger}, nil
}

// Report reads every monitored source and builds both status tables.
// A failed read degrades that source to Unknown rather than failing the report.
func (s *Service) Report(ctx context.Context) (Report, error) {
	consumers := s.consumerSources()
	forecasts := s.forecastSources()

	var g errgroup.Group
	g.SetLimit(maxConcurrentReads)
	for i := range consumers {
		source := &consumers[i]
		g.Go(func() error {
			ts, err := s.inputs.LastUpdated(ctx, source.Name)
			s.assign(source, ts, err)
			return nil
		})
	}
	for i := range forecasts {
		source := &forecasts[i]
		g.Go(func() error {
			ts, err := s.forecasts.LatestForecastCreated(ctx, source.Scope, source.RegionID)
			s.assign(source, ts, err)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	now := s.clock.Now().UTC()
	report := Report{
		Consumers:   status.BuildStatusTable(consumers, now),
		Forecasts:   status.BuildStatusTable(forecasts, now),
		GeneratedAt: now,
	}
	s.observe(consumers, now)
	s.observe(forecasts, now)
	return report, nil
}

func (s *Service) assign(source *status.MonitoredSource, ts *time.Time, err error) {
	if err != nil {
		s.logger.Warn().Err(err).Str("source", source.Name).Msg("last updated read failed")
		source.LastUpdated = nil
		return
	}
	if ts != nil {
		utc := ts.UTC()
		ts = &utc
	}
	source.LastUpdated = ts
}

func (s *Service) consumerSources() []status.MonitoredSource {
	sources := make([]status.MonitoredSource, 0, len(InputSources))
	for _, name := range InputSources {
		sources = append(sources, status.MonitoredSource{
			Name:       name,
			Scope:      status.ScopeInput,
			Thresholds: s.cfg.ThresholdsFor(name),
		})
	}
	return sources
}

func (s *Service) forecastSources() []status.MonitoredSource {
	sources := make([]status.MonitoredSource, 0, len(s.cfg.Forecasts.Regions))
	for _, region := range s.cfg.Forecasts.Regions {
		scope := status.ScopeRegional
		if region == 0 {
			scope = status.ScopeNational
		}
		sources = append(sources, status.MonitoredSource{
			Name:       ForecastSourceName(region),
			Scope:      scope,
			RegionID:   region,
			Thresholds: s.cfg.ForecastThresholds(),
		})
	}
	return sources
}

func (s *Service) observe(sources []status.MonitoredSource, now time.Time) {
	for _, source := range sources {
		st := status.Evaluate(source.LastUpdated, source.Thresholds.Warning, source.Thresholds.Error, now)
		age := time.Duration(-1)
		if source.LastUpdated != nil {
			age = now.Sub(*source.LastUpdated)
		}
		metrics.ObserveSourceFreshness(source.Name, int(st), age)
	}
}

// ForecastSourceName labels a monitored forecast row.
func ForecastSourceName(regionID int) string {
	if regionID == 0 {
		return "forecast national"
	}
	return fmt.Sprintf("forecast gsp %d", regionID)
}
