package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	forecast "nowcasting-dashboard/internal/forecast/domain"
)

const (
	regimeInDay    = "in-day"
	regimeDayAfter = "day-after"
)

var errNotFound = errors.New("forecast api: not found")

// Client is a minimal forecast API REST client.
type Client struct {
	baseURL string
	client  *http.Client
	now     func() time.Time
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithNow overrides the time source used for today's cut-off.
func WithNow(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient constructs a forecast API client.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("forecast api: empty base url")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("forecast api: invalid base url: %w", err)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Truths returns ground-truth yields for a region and regime.
func (c *Client) Truths(ctx context.Context, regionID int, regime string) ([]forecast.Yield, error) {
	if regionID < 0 {
		return nil, forecast.ErrInvalidRegion
	}
	path := fmt.Sprintf("/v0/GB/solar/gsp/truth/one_gsp/%d/?regime=%s", regionID, url.QueryEscape(regime))
	var yields []forecast.Yield
	if err := c.getJSON(ctx, path, &yields); err != nil {
		return nil, err
	}
	return yields, nil
}

// LatestForecast returns the latest forecast values for a region.
func (c *Client) LatestForecast(ctx context.Context, regionID int) ([]forecast.Value, error) {
	if regionID < 0 {
		return nil, forecast.ErrInvalidRegion
	}
	var values []forecast.Value
	if err := c.getJSON(ctx, fmt.Sprintf("/v0/GB/solar/gsp/forecast/latest/%d", regionID), &values); err != nil {
		return nil, err
	}
	return values, nil
}

// RegionDetail fetches truths and forecast for a region concurrently.
// Without history only readings from today's UTC midnight are kept.
func (c *Client) RegionDetail(ctx context.Context, regionID int, includeHistory bool) (forecast.RegionDetail, error) {
	if regionID < 0 {
		return forecast.RegionDetail{}, forecast.ErrInvalidRegion
	}
	detail := forecast.RegionDetail{RegionID: regionID}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		yields, err := c.Truths(gctx, regionID, regimeInDay)
		detail.TruthInDay = yields
		return err
	})
	g.Go(func() error {
		yields, err := c.Truths(gctx, regionID, regimeDayAfter)
		detail.TruthDayAfter = yields
		return err
	})
	g.Go(func() error {
		values, err := c.LatestForecast(gctx, regionID)
		detail.Forecast = values
		return err
	})
	if err := g.Wait(); err != nil {
		return forecast.RegionDetail{}, err
	}

	if !includeHistory {
		detail = detail.TrimBefore(forecast.StartOfDay(c.now()))
	}
	return detail, nil
}

// AllForecasts returns the latest forecast of every region, sorted by region id.
func (c *Client) AllForecasts(ctx context.Context) (forecast.ManyForecasts, error) {
	var many forecast.ManyForecasts
	if err := c.getJSON(ctx, "/v0/GB/solar/gsp/forecast/all/", &many); err != nil {
		return forecast.ManyForecasts{}, err
	}
	sort.SliceStable(many.Forecasts, func(i, j int) bool {
		return many.Forecasts[i].Location.GSPID < many.Forecasts[j].Location.GSPID
	})
	return many, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("forecast api: http %d for %s", resp.StatusCode, path)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
