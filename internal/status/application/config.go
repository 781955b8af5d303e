package application

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	status "nowcasting-dashboard/internal/status/domain"
)

// Input source names tracked in input_data_last_updated.
const (
	SourcePV        = "pv"
	SourceGSP       = "gsp"
	SourceSatellite = "satellite"
	SourceNWP       = "nwp"
)

// InputSources lists the data consumers in table order.
var InputSources = []string{SourcePV, SourceGSP, SourceSatellite, SourceNWP}

// Thresholds is the YAML form of a source's warning/error ages.
type Thresholds struct {
	Warning time.Duration `yaml:"warning"`
	Error   time.Duration `yaml:"error"`
}

// ForecastConfig lists monitored forecasts.
type ForecastConfig struct {
	Thresholds Thresholds `yaml:"thresholds"`
	Regions    []int      `yaml:"regions"`
}

// Config defines status monitoring configuration.
type Config struct {
	Sources   map[string]Thresholds `yaml:"sources"`
	Forecasts ForecastConfig        `yaml:"forecasts"`
}

// DefaultConfig returns the built-in thresholds.
func DefaultConfig() Config {
	return Config{
		Sources: map[string]Thresholds{
			SourcePV:        {Warning: 10 * time.Minute, Error: 20 * time.Minute},
			SourceGSP:       {Warning: 30 * time.Minute, Error: 24 * time.Hour},
			SourceSatellite: {Warning: 5 * time.Minute, Error: 30 * time.Minute},
			SourceNWP:       {Warning: time.Hour, Error: 2 * time.Hour},
		},
		Forecasts: ForecastConfig{
			Thresholds: Thresholds{Warning: 5 * time.Minute, Error: 15 * time.Minute},
			Regions:    []int{0},
		},
	}
}

// LoadConfig loads config from STATUS_CONFIG yaml and env.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if path := os.Getenv("STATUS_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if cfg, err = ParseConfig(data); err != nil {
			return cfg, err
		}
	}
	if raw := os.Getenv("STATUS_FORECAST_REGIONS"); raw != "" {
		regions, err := parseRegions(raw)
		if err != nil {
			return cfg, err
		}
		cfg.Forecasts.Regions = regions
	}
	return cfg, cfg.Validate()
}

// ParseConfig merges yaml overrides onto the defaults.
func ParseConfig(data []byte) (Config, error) {
	var override Config
	if err := yaml.Unmarshal(data, &override); err != nil {
		return DefaultConfig(), err
	}
	cfg := DefaultConfig()
	for name, th := range override.Sources {
		if strings.TrimSpace(name) == "" {
			return cfg, status.ErrEmptySourceName
		}
		base, ok := cfg.Sources[name]
		if !ok {
			return cfg, fmt.Errorf("status: unknown source %q", name)
		}
		cfg.Sources[name] = mergeThresholds(base, th)
	}
	cfg.Forecasts.Thresholds = mergeThresholds(cfg.Forecasts.Thresholds, override.Forecasts.Thresholds)
	if len(override.Forecasts.Regions) > 0 {
		cfg.Forecasts.Regions = override.Forecasts.Regions
	}
	return cfg, cfg.Validate()
}

// Validate checks every threshold pair and region id.
func (c Config) Validate() error {
	names := make([]string, 0, len(c.Sources))
	for name := range c.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		source := status.MonitoredSource{Name: name, Scope: status.ScopeInput, Thresholds: c.Sources[name].domain()}
		if err := source.Validate(); err != nil {
			return err
		}
	}
	if err := c.Forecasts.Thresholds.domain().Validate(); err != nil {
		return fmt.Errorf("forecast: %w", err)
	}
	for _, region := range c.Forecasts.Regions {
		if region < 0 {
			return fmt.Errorf("status: invalid forecast region %d", region)
		}
	}
	return nil
}

// ThresholdsFor returns thresholds for an input source.
func (c Config) ThresholdsFor(source string) status.Thresholds {
	return c.Sources[source].domain()
}

// ForecastThresholds returns thresholds shared by monitored forecasts.
func (c Config) ForecastThresholds() status.Thresholds {
	return c.Forecasts.Thresholds.domain()
}

func (t Thresholds) domain() status.Thresholds {
	return status.Thresholds{Warning: t.Warning, Error: t.Error}
}

func mergeThresholds(base, override Thresholds) Thresholds {
	if override.Warning != 0 {
		base.Warning = override.Warning
	}
	if override.Error != 0 {
		base.Error = override.Error
	}
	return base
}

func parseRegions(value string) ([]int, error) {
	var regions []int
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("status: invalid forecast region %q", part)
		}
		regions = append(regions, id)
	}
	return regions, nil
}
