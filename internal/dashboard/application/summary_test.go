package application

import (
	"context"
	"errors"
	"testing"
	"time"

	forecast "nowcasting-dashboard/internal/forecast/domain"
)

type fakeSummarySource struct {
	fakeDetailSource
	many    forecast.ManyForecasts
	manyErr error
}

func (f *fakeSummarySource) AllForecasts(ctx context.Context) (forecast.ManyForecasts, error) {
	return f.many, f.manyErr
}

func TestSummaryFetcherBuildsBothNationalFigures(t *testing.T) {
	source := &fakeSummarySource{
		many: forecast.ManyForecasts{Forecasts: []forecast.Forecast{
			{Location: forecast.Location{GSPID: 1}, ForecastValues: []forecast.Value{{TargetTime: testStart}}},
		}},
	}

	fetch := SummaryFetcher(source, func() time.Time { return testStart })
	summary, err := fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(source.calls) != 1 || source.calls[0] != (detailCall{region: 0, history: true}) {
		t.Fatalf("unexpected detail calls %+v", source.calls)
	}
	if summary.NationalFigure(true).Title != "National - Forecast and Truths" {
		t.Fatalf("unexpected title %q", summary.NationalFigure(true).Title)
	}
	if summary.Map.Len() != 1 {
		t.Fatalf("expected one map frame, got %d", summary.Map.Len())
	}
}

func TestSummaryFetcherTodayTrimsHistory(t *testing.T) {
	source := &historySource{}
	fetch := SummaryFetcher(source, func() time.Time { return testStart })
	summary, err := fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got := len(summary.NationalFigure(true).Traces[2].X); got != 2 {
		t.Fatalf("expected both forecast points with history, got %d", got)
	}
	if got := len(summary.NationalFigure(false).Traces[2].X); got != 1 {
		t.Fatalf("expected only today's point, got %d", got)
	}
}

func TestSummaryFetcherFailsAsAWhole(t *testing.T) {
	source := &fakeSummarySource{manyErr: errors.New("api down")}
	fetch := SummaryFetcher(source, nil)
	if _, err := fetch(context.Background()); err == nil {
		t.Fatal("expected error when map data fails")
	}
}

type historySource struct{}

func (historySource) RegionDetail(ctx context.Context, regionID int, includeHistory bool) (forecast.RegionDetail, error) {
	return forecast.RegionDetail{Forecast: []forecast.Value{
		{TargetTime: testStart.Add(-24 * time.Hour), ExpectedPowerGenerationMegawatts: 1},
		{TargetTime: testStart, ExpectedPowerGenerationMegawatts: 2},
	}}, nil
}

func (historySource) AllForecasts(ctx context.Context) (forecast.ManyForecasts, error) {
	return forecast.ManyForecasts{}, nil
}
