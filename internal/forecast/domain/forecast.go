package forecast

import (
	"errors"
	"time"
)

// NationalRegionID is the region id reserved for the national aggregate.
const NationalRegionID = 0

// ErrInvalidRegion is returned for negative region ids.
var ErrInvalidRegion = errors.New("forecast: invalid region id")

// Yield is one ground-truth generation reading.
type Yield struct {
	DatetimeUTC       time.Time `json:"datetime_utc"`
	SolarGenerationKW float64   `json:"solar_generation_kw"`
}

// Value is one forecast horizon step.
type Value struct {
	TargetTime                       time.Time `json:"target_time"`
	ExpectedPowerGenerationMegawatts float64   `json:"expected_power_generation_megawatts"`
}

// Location identifies the region a forecast belongs to.
type Location struct {
	GSPID               int     `json:"gsp_id"`
	Label               string  `json:"label"`
	InstalledCapacityMW float64 `json:"installed_capacity_mw"`
}

// Forecast is the latest forecast for one region.
type Forecast struct {
	Location       Location `json:"location"`
	ForecastValues []Value  `json:"forecast_values"`
}

// ManyForecasts is the all-regions forecast payload.
type ManyForecasts struct {
	Forecasts []Forecast `json:"forecasts"`
}

// RegionDetail is the time series shown for one region.
type RegionDetail struct {
	RegionID      int
	TruthInDay    []Yield
	TruthDayAfter []Yield
	Forecast      []Value
}

// TrimBefore drops readings earlier than start.
func (d RegionDetail) TrimBefore(start time.Time) RegionDetail {
	d.TruthInDay = yieldsFrom(d.TruthInDay, start)
	d.TruthDayAfter = yieldsFrom(d.TruthDayAfter, start)
	values := make([]Value, 0, len(d.Forecast))
	for _, v := range d.Forecast {
		if !v.TargetTime.Before(start) {
			values = append(values, v)
		}
	}
	d.Forecast = values
	return d
}

func yieldsFrom(yields []Yield, start time.Time) []Yield {
	out := make([]Yield, 0, len(yields))
	for _, y := range yields {
		if !y.DatetimeUTC.Before(start) {
			out = append(out, y)
		}
	}
	return out
}

// StartOfDay returns UTC midnight of t's day.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
