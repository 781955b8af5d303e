package application

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	status "nowcasting-dashboard/internal/status/domain"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	pv := cfg.ThresholdsFor(SourcePV)
	if pv.Warning != 10*time.Minute || pv.Error != 20*time.Minute {
		t.Fatalf("unexpected pv thresholds: %+v", pv)
	}
	gsp := cfg.ThresholdsFor(SourceGSP)
	if gsp.Warning != 30*time.Minute || gsp.Error != 24*time.Hour {
		t.Fatalf("unexpected gsp thresholds: %+v", gsp)
	}
	fc := cfg.ForecastThresholds()
	if fc.Warning != 5*time.Minute || fc.Error != 15*time.Minute {
		t.Fatalf("unexpected forecast thresholds: %+v", fc)
	}
}

func TestParseConfigMergesOverrides(t *testing.T) {
	data := []byte(`
sources:
  pv:
    warning: 15m
  nwp:
    warning: 90m
    error: 3h
forecasts:
  thresholds:
    error: 20m
  regions: [0, 5, 12]
`)
	cfg, err := ParseConfig(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := cfg.ThresholdsFor(SourcePV); got.Warning != 15*time.Minute || got.Error != 20*time.Minute {
		t.Fatalf("unexpected pv merge: %+v", got)
	}
	if got := cfg.ThresholdsFor(SourceNWP); got.Warning != 90*time.Minute || got.Error != 3*time.Hour {
		t.Fatalf("unexpected nwp merge: %+v", got)
	}
	if got := cfg.ForecastThresholds(); got.Warning != 5*time.Minute || got.Error != 20*time.Minute {
		t.Fatalf("unexpected forecast merge: %+v", got)
	}
	if !reflect.DeepEqual(cfg.Forecasts.Regions, []int{0, 5, 12}) {
		t.Fatalf("unexpected regions: %v", cfg.Forecasts.Regions)
	}
}

func TestParseConfigRejects(t *testing.T) {
	if _, err := ParseConfig([]byte("sources:\n  radar:\n    warning: 1m\n")); err == nil {
		t.Fatal("expected unknown source error")
	}
	if _, err := ParseConfig([]byte("sources:\n  pv:\n    warning: 1h\n")); !errors.Is(err, status.ErrInvalidThresholds) {
		t.Fatalf("expected invalid thresholds, got %v", err)
	}
	if _, err := ParseConfig([]byte("sources:\n  \"\":\n    warning: 1m\n")); !errors.Is(err, status.ErrEmptySourceName) {
		t.Fatalf("expected empty source name, got %v", err)
	}
	cfg := DefaultConfig()
	cfg.Sources[""] = Thresholds{Warning: time.Minute, Error: time.Hour}
	if err := cfg.Validate(); !errors.Is(err, status.ErrEmptySourceName) {
		t.Fatalf("expected empty source name from Validate, got %v", err)
	}
	if _, err := ParseConfig([]byte("forecasts:\n  regions: [-1]\n")); err == nil {
		t.Fatal("expected invalid region error")
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "status.yaml")
	if err := os.WriteFile(path, []byte("sources:\n  satellite:\n    error: 45m\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("STATUS_CONFIG", path)
	t.Setenv("STATUS_FORECAST_REGIONS", "0, 7")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := cfg.ThresholdsFor(SourceSatellite); got.Error != 45*time.Minute {
		t.Fatalf("unexpected satellite thresholds: %+v", got)
	}
	if !reflect.DeepEqual(cfg.Forecasts.Regions, []int{0, 7}) {
		t.Fatalf("unexpected regions: %v", cfg.Forecasts.Regions)
	}

	t.Setenv("STATUS_FORECAST_REGIONS", "0,abc")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected invalid region error")
	}
}
