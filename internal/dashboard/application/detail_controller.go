package application

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	dashboard "nowcasting-dashboard/internal/dashboard/domain"
	forecast "nowcasting-dashboard/internal/forecast/domain"
	"nowcasting-dashboard/internal/observability/metrics"
	"nowcasting-dashboard/internal/render"
)

// Detail outcomes, also used as metric labels.
const (
	DetailClick   = "click"
	DetailClose   = "close"
	DetailDefault = "default"
	DetailNoop    = "noop"
)

// DetailSource fetches the time series shown for one region.
type DetailSource interface {
	RegionDetail(ctx context.Context, regionID int, includeHistory bool) (forecast.RegionDetail, error)
}

// ClickInput is one invocation of the detail overlay.
// Pointers are nil when the corresponding input did not fire.
type ClickInput struct {
	ClickIndex    *int                     `json:"click_index"`
	CloseClicks   *int                     `json:"close_clicks"`
	IsOpen        bool                     `json:"is_open"`
	ShowYesterday bool                     `json:"show_yesterday"`
	Figure        *render.TimeSeriesFigure `json:"figure"`
}

// DetailState is what the overlay should show after an invocation.
type DetailState struct {
	IsOpen   bool                    `json:"is_open"`
	Figure   render.TimeSeriesFigure `json:"figure"`
	RegionID *int                    `json:"region_id,omitempty"`
	Outcome  string                  `json:"outcome"`
	Error    string                  `json:"error,omitempty"`
}

// DetailController maps clicks on aggregate map elements to a detail overlay.
type DetailController struct {
	source  DetailSource
	timeout time.Duration
	logger  zerolog.Logger
}

// NewDetailController constructs a DetailController.
func NewDetailController(source DetailSource, fetchTimeout time.Duration, logger zerolog.Logger) (*DetailController, error) {
	if source == nil {
		return nil, errors.New("detail controller: source is required")
	}
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}
	return &DetailController{
		source:  source,
		timeout: fetchTimeout,
		logger:  logger.With().Str("component", "detail").Logger(),
	}, nil
}

// Handle applies one invocation. A click wins over a close in the same call.
func (c *DetailController) Handle(ctx context.Context, in ClickInput) DetailState {
	var clicked *dashboard.ClickSelection
	if in.ClickIndex != nil {
		sel, err := dashboard.SelectionFromIndex(in.ClickIndex)
		if err != nil {
			c.logger.Debug().Int("index", *in.ClickIndex).Msg("ignoring malformed click")
		} else {
			clicked = &sel
		}
	}

	switch {
	case clicked != nil:
		state := c.render(ctx, clicked.RegionID, in.ShowYesterday)
		state.IsOpen = !in.IsOpen
		state.Outcome = DetailClick
		return c.done(state)
	case in.CloseClicks != nil:
		state := DetailState{IsOpen: !in.IsOpen, Outcome: DetailClose}
		if in.Figure != nil {
			state.Figure = *in.Figure
		} else {
			state.Figure = render.EmptyFigure()
		}
		return c.done(state)
	case in.Figure == nil:
		state := c.render(ctx, dashboard.DefaultDetailRegion, in.ShowYesterday)
		state.IsOpen = in.IsOpen
		state.Outcome = DetailDefault
		return c.done(state)
	default:
		return c.done(DetailState{IsOpen: in.IsOpen, Figure: *in.Figure, Outcome: DetailNoop})
	}
}

func (c *DetailController) render(ctx context.Context, regionID int, includeHistory bool) DetailState {
	region := regionID
	state := DetailState{RegionID: &region}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	detail, err := c.source.RegionDetail(ctx, regionID, includeHistory)
	if err != nil {
		c.logger.Warn().Err(err).Int("region_id", regionID).Msg("region detail unavailable")
		state.Figure = render.EmptyFigure()
		state.Figure.Title = render.ForecastTitle(regionID)
		state.Error = dashboard.ErrDataUnavailable.Error()
		return state
	}
	state.Figure = render.ForecastFigure(regionID, detail)
	return state
}

func (c *DetailController) done(state DetailState) DetailState {
	outcome := state.Outcome
	if state.Error != "" {
		outcome += "_error"
	}
	metrics.IncDetailRequest(outcome)
	return state
}
