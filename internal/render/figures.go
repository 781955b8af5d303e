package render

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	dashboard "nowcasting-dashboard/internal/dashboard/domain"
	forecast "nowcasting-dashboard/internal/forecast/domain"
	pv "nowcasting-dashboard/internal/pv/domain"
)

const (
	timeAxisTitle = "Time [UTC]"

	// MapLayerMegawatts and MapLayerPercent index the two map layers.
	MapLayerMegawatts = 0
	MapLayerPercent   = 1

	mapMaxMegawatts = 500
	mapColorscale   = "solar"
)

// Trace is one line series.
type Trace struct {
	Name  string      `json:"name"`
	Mode  string      `json:"mode"`
	Dash  string      `json:"dash,omitempty"`
	Color string      `json:"color,omitempty"`
	X     []time.Time `json:"x"`
	Y     []float64   `json:"y"`
}

// TimeSeriesFigure is the renderer contract for line charts.
type TimeSeriesFigure struct {
	Title      string  `json:"title"`
	XAxisTitle string  `json:"xaxis_title"`
	YAxisTitle string  `json:"yaxis_title"`
	Traces     []Trace `json:"traces"`
}

// IsEmpty reports whether the figure has no plotted points.
func (f TimeSeriesFigure) IsEmpty() bool {
	for _, tr := range f.Traces {
		if len(tr.X) > 0 {
			return false
		}
	}
	return true
}

// ChoroplethFrame is one map animation step.
type ChoroplethFrame struct {
	Title      string    `json:"title"`
	TargetTime time.Time `json:"target_time"`
	Locations  []int     `json:"locations"`
	Hover      []string  `json:"hovertext"`
	Z          []float64 `json:"z"`
	ZMin       float64   `json:"zmin"`
	ZMax       float64   `json:"zmax"`
	Colorscale string    `json:"colorscale"`
}

// EmptyFigure is the placeholder shown when data is unavailable.
func EmptyFigure() TimeSeriesFigure {
	return TimeSeriesFigure{Traces: []Trace{}}
}

// EmptyMapFrame is the placeholder shown before map data exists.
func EmptyMapFrame() ChoroplethFrame {
	return ChoroplethFrame{
		Locations:  []int{},
		Hover:      []string{},
		Z:          []float64{},
		ZMax:       mapMaxMegawatts,
		Colorscale: mapColorscale,
	}
}

// ForecastTitle names the forecast figure for a region.
func ForecastTitle(regionID int) string {
	if regionID == forecast.NationalRegionID {
		return "National - Forecast and Truths"
	}
	return fmt.Sprintf("GSP %d - Forecast and Truths", regionID)
}

// ForecastFigure plots both truth regimes and the latest forecast in MW.
func ForecastFigure(regionID int, detail forecast.RegionDetail) TimeSeriesFigure {
	inDay := yieldTrace("PV live Truth: in-day", "dash", "blue", detail.TruthInDay)
	dayAfter := yieldTrace("PV live Truth: Day-After", "solid", "blue", detail.TruthDayAfter)

	fc := Trace{Name: "OCF: Forecast", Mode: "lines", Dash: "solid", Color: "green",
		X: make([]time.Time, 0, len(detail.Forecast)),
		Y: make([]float64, 0, len(detail.Forecast)),
	}
	for _, v := range detail.Forecast {
		fc.X = append(fc.X, v.TargetTime.UTC())
		fc.Y = append(fc.Y, v.ExpectedPowerGenerationMegawatts)
	}

	return TimeSeriesFigure{
		Title:      ForecastTitle(regionID),
		XAxisTitle: timeAxisTitle,
		YAxisTitle: "Solar generation [MW]",
		Traces:     []Trace{inDay, dayAfter, fc},
	}
}

func yieldTrace(name, dash, color string, yields []forecast.Yield) Trace {
	tr := Trace{Name: name, Mode: "lines", Dash: dash, Color: color,
		X: make([]time.Time, 0, len(yields)),
		Y: make([]float64, 0, len(yields)),
	}
	for _, y := range yields {
		tr.X = append(tr.X, y.DatetimeUTC.UTC())
		tr.Y = append(tr.Y, y.SolarGenerationKW/1000)
	}
	return tr
}

// MapFrames builds one choropleth frame per forecast horizon step.
// Layer 0 is generation in MW, layer 1 is percent of installed capacity.
// The national aggregate is not drawn on the map.
func MapFrames(many forecast.ManyForecasts) dashboard.FrameSequence[ChoroplethFrame] {
	regions := make([]forecast.Forecast, 0, len(many.Forecasts))
	for _, f := range many.Forecasts {
		if f.Location.GSPID == forecast.NationalRegionID {
			continue
		}
		regions = append(regions, f)
	}
	sort.SliceStable(regions, func(i, j int) bool {
		return regions[i].Location.GSPID < regions[j].Location.GSPID
	})

	steps := 0
	for i, f := range regions {
		if i == 0 || len(f.ForecastValues) < steps {
			steps = len(f.ForecastValues)
		}
	}

	seq := dashboard.FrameSequence[ChoroplethFrame]{
		Layers: [][]ChoroplethFrame{
			make([]ChoroplethFrame, 0, steps),
			make([]ChoroplethFrame, 0, steps),
		},
		Labels: make([]string, 0, steps),
	}
	if len(regions) == 0 {
		return seq
	}

	locations := make([]int, len(regions))
	hover := make([]string, len(regions))
	for i, f := range regions {
		locations[i] = f.Location.GSPID
		hover[i] = " GSP id:" + strconv.Itoa(f.Location.GSPID)
	}

	for step := 0; step < steps; step++ {
		target := regions[0].ForecastValues[step].TargetTime.UTC()
		label := target.Format(time.RFC3339)

		mw := make([]float64, len(regions))
		pct := make([]float64, len(regions))
		for i, f := range regions {
			value := f.ForecastValues[step].ExpectedPowerGenerationMegawatts
			mw[i] = math.Round(value)
			if capacity := f.Location.InstalledCapacityMW; capacity > 0 {
				pct[i] = math.Round(value / capacity * 100)
			}
		}

		seq.Layers[MapLayerMegawatts] = append(seq.Layers[MapLayerMegawatts], ChoroplethFrame{
			Title:      "Solar Generation [MW]: " + label,
			TargetTime: target,
			Locations:  locations,
			Hover:      hover,
			Z:          mw,
			ZMax:       mapMaxMegawatts,
			Colorscale: mapColorscale,
		})
		seq.Layers[MapLayerPercent] = append(seq.Layers[MapLayerPercent], ChoroplethFrame{
			Title:      "Solar Generation [%]: " + label,
			TargetTime: target,
			Locations:  locations,
			Hover:      hover,
			Z:          pct,
			ZMax:       100,
			Colorscale: mapColorscale,
		})
		seq.Labels = append(seq.Labels, label)
	}
	return seq
}

// PVFigure plots one trace per PV system.
func PVFigure(yields []pv.Yield) TimeSeriesFigure {
	fig := TimeSeriesFigure{
		Title:      "PV data",
		XAxisTitle: timeAxisTitle,
		YAxisTitle: "Solar generation [kW]",
		Traces:     []Trace{},
	}
	var current *Trace
	for _, y := range pv.Dedupe(yields) {
		name := strconv.Itoa(y.SystemID)
		if current == nil || current.Name != name {
			fig.Traces = append(fig.Traces, Trace{Name: name, Mode: "lines+markers"})
			current = &fig.Traces[len(fig.Traces)-1]
		}
		current.X = append(current.X, y.DatetimeUTC.UTC())
		current.Y = append(current.Y, y.SolarGenerationKW)
	}
	return fig
}
