package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	forecast "nowcasting-dashboard/internal/forecast/domain"
	"nowcasting-dashboard/internal/render"
)

type detailCall struct {
	region  int
	history bool
}

type fakeDetailSource struct {
	calls []detailCall
	err   error
}

func (f *fakeDetailSource) RegionDetail(ctx context.Context, regionID int, includeHistory bool) (forecast.RegionDetail, error) {
	f.calls = append(f.calls, detailCall{region: regionID, history: includeHistory})
	if f.err != nil {
		return forecast.RegionDetail{}, f.err
	}
	at := time.Date(2022, 6, 2, 10, 0, 0, 0, time.UTC)
	return forecast.RegionDetail{
		RegionID: regionID,
		Forecast: []forecast.Value{{TargetTime: at, ExpectedPowerGenerationMegawatts: 12}},
	}, nil
}

func newDetail(t *testing.T, source DetailSource) *DetailController {
	t.Helper()
	c, err := NewDetailController(source, time.Second, zerolog.Nop())
	if err != nil {
		t.Fatalf("new detail controller: %v", err)
	}
	return c
}

func intPtr(v int) *int { return &v }

func TestDetailClickOpensRegion(t *testing.T) {
	source := &fakeDetailSource{}
	c := newDetail(t, source)

	state := c.Handle(context.Background(), ClickInput{ClickIndex: intPtr(110), IsOpen: false, ShowYesterday: true})
	if !state.IsOpen {
		t.Fatal("expected overlay to open")
	}
	if state.RegionID == nil || *state.RegionID != 111 {
		t.Fatalf("expected region 111, got %v", state.RegionID)
	}
	if state.Figure.Title != "GSP 111 - Forecast and Truths" {
		t.Fatalf("unexpected title %q", state.Figure.Title)
	}
	if len(source.calls) != 1 || source.calls[0] != (detailCall{region: 111, history: true}) {
		t.Fatalf("unexpected fetches %+v", source.calls)
	}
	if state.Outcome != DetailClick {
		t.Fatalf("unexpected outcome %q", state.Outcome)
	}
}

func TestDetailClickTogglesClosed(t *testing.T) {
	c := newDetail(t, &fakeDetailSource{})
	state := c.Handle(context.Background(), ClickInput{ClickIndex: intPtr(0), IsOpen: true})
	if state.IsOpen {
		t.Fatal("expected click on open overlay to close it")
	}
	if *state.RegionID != 1 {
		t.Fatalf("expected region 1, got %d", *state.RegionID)
	}
}

func TestDetailCloseKeepsFigure(t *testing.T) {
	source := &fakeDetailSource{}
	c := newDetail(t, source)
	existing := render.TimeSeriesFigure{Title: "GSP 5 - Forecast and Truths"}

	state := c.Handle(context.Background(), ClickInput{CloseClicks: intPtr(1), IsOpen: true, Figure: &existing})
	if state.IsOpen {
		t.Fatal("expected close to toggle overlay shut")
	}
	if state.Figure.Title != existing.Title {
		t.Fatalf("close replaced figure: %q", state.Figure.Title)
	}
	if len(source.calls) != 0 {
		t.Fatalf("close should not fetch, got %+v", source.calls)
	}
}

func TestDetailClickWinsOverClose(t *testing.T) {
	c := newDetail(t, &fakeDetailSource{})
	state := c.Handle(context.Background(), ClickInput{ClickIndex: intPtr(4), CloseClicks: intPtr(2), IsOpen: false})
	if !state.IsOpen || *state.RegionID != 5 || state.Outcome != DetailClick {
		t.Fatalf("expected click to win, got %+v", state)
	}
}

func TestDetailFirstRenderDefaultsToRegionOne(t *testing.T) {
	source := &fakeDetailSource{}
	c := newDetail(t, source)

	state := c.Handle(context.Background(), ClickInput{IsOpen: false, ShowYesterday: false})
	if state.IsOpen {
		t.Fatal("first render must not open the overlay")
	}
	if state.RegionID == nil || *state.RegionID != 1 || state.Outcome != DetailDefault {
		t.Fatalf("unexpected default state %+v", state)
	}
	if len(source.calls) != 1 || source.calls[0].history {
		t.Fatalf("unexpected fetches %+v", source.calls)
	}
}

func TestDetailSpuriousInvocationIsNoop(t *testing.T) {
	source := &fakeDetailSource{}
	c := newDetail(t, source)
	existing := render.TimeSeriesFigure{
		Title:  "GSP 111 - Forecast and Truths",
		Traces: []render.Trace{{Name: "OCF: Forecast", X: []time.Time{time.Now()}, Y: []float64{1}}},
	}

	state := c.Handle(context.Background(), ClickInput{IsOpen: true, Figure: &existing})
	if !state.IsOpen || state.Figure.Title != existing.Title || state.Figure.IsEmpty() {
		t.Fatalf("spurious call changed state: %+v", state)
	}
	if len(source.calls) != 0 {
		t.Fatalf("spurious call fetched: %+v", source.calls)
	}
	if state.Outcome != DetailNoop {
		t.Fatalf("unexpected outcome %q", state.Outcome)
	}
}

func TestDetailMalformedClickTreatedAsNoClick(t *testing.T) {
	source := &fakeDetailSource{}
	c := newDetail(t, source)
	existing := render.TimeSeriesFigure{Title: "kept"}

	state := c.Handle(context.Background(), ClickInput{ClickIndex: intPtr(-3), IsOpen: false, Figure: &existing})
	if state.IsOpen || state.Figure.Title != "kept" || len(source.calls) != 0 {
		t.Fatalf("malformed click should be a no-op, got %+v", state)
	}
}

func TestDetailFetchFailureShowsPlaceholder(t *testing.T) {
	c := newDetail(t, &fakeDetailSource{err: errors.New("api down")})

	state := c.Handle(context.Background(), ClickInput{ClickIndex: intPtr(9)})
	if !state.IsOpen {
		t.Fatal("overlay should still open on failure")
	}
	if !state.Figure.IsEmpty() || state.Error == "" {
		t.Fatalf("expected placeholder figure with error, got %+v", state)
	}
	if state.Figure.Title != "GSP 10 - Forecast and Truths" {
		t.Fatalf("unexpected placeholder title %q", state.Figure.Title)
	}
}
