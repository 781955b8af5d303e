package application

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	dashboard "nowcasting-dashboard/internal/dashboard/domain"
	forecast "nowcasting-dashboard/internal/forecast/domain"
	"nowcasting-dashboard/internal/render"
)

// National figure slots, indexed by the "show yesterday" toggle.
const (
	NationalWithHistory = 0
	NationalToday       = 1
)

// SummarySource provides the data behind the summary tab.
type SummarySource interface {
	DetailSource
	AllForecasts(ctx context.Context) (forecast.ManyForecasts, error)
}

// Summary is one complete summary tab refresh.
type Summary struct {
	National [2]render.TimeSeriesFigure                      `json:"national"`
	Map      dashboard.FrameSequence[render.ChoroplethFrame] `json:"map"`
}

// NationalFigure picks the cached national figure for the toggle.
func (s Summary) NationalFigure(showYesterday bool) render.TimeSeriesFigure {
	if showYesterday {
		return s.National[NationalWithHistory]
	}
	return s.National[NationalToday]
}

// SummaryFetcher loads the national series and all-region forecasts together.
// Either failing fails the whole refresh so the slot never mixes refreshes.
func SummaryFetcher(source SummarySource, now func() time.Time) Fetcher[Summary] {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context) (Summary, error) {
		var (
			detail forecast.RegionDetail
			many   forecast.ManyForecasts
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			detail, err = source.RegionDetail(gctx, forecast.NationalRegionID, true)
			return err
		})
		g.Go(func() error {
			var err error
			many, err = source.AllForecasts(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return Summary{}, err
		}

		today := detail.TrimBefore(forecast.StartOfDay(now()))
		return Summary{
			National: [2]render.TimeSeriesFigure{
				NationalWithHistory: render.ForecastFigure(forecast.NationalRegionID, detail),
				NationalToday:       render.ForecastFigure(forecast.NationalRegionID, today),
			},
			Map: render.MapFrames(many),
		}, nil
	}
}
