package status

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize/english"
)

// TimestampLayout is the UTC layout used for "last updated" cells.
const TimestampLayout = "2006-01-02 15:04:05"

// Scope tells what kind of feed a monitored source is.
type Scope string

const (
	ScopeInput    Scope = "input"
	ScopeNational Scope = "national"
	ScopeRegional Scope = "regional"
)

// MonitoredSource is a data feed or forecast whose freshness is tracked.
type MonitoredSource struct {
	Name        string
	Scope       Scope
	RegionID    int
	LastUpdated *time.Time
	Thresholds  Thresholds
}

// Validate checks the source is named and its thresholds are ordered.
func (s MonitoredSource) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptySourceName
	}
	if err := s.Thresholds.Validate(); err != nil {
		return fmt.Errorf("%s: %w", s.Name, err)
	}
	return nil
}

// StatusRow is one rendered line of the status table.
type StatusRow struct {
	SourceName       string          `json:"source_name"`
	LastUpdated      string          `json:"last_updated"`
	Status           FreshnessStatus `json:"status"`
	WarningThreshold string          `json:"warning_threshold"`
	ErrorThreshold   string          `json:"error_threshold"`
}

// BuildStatusTable evaluates every source and returns rows in input order.
func BuildStatusTable(sources []MonitoredSource, now time.Time) []StatusRow {
	rows := make([]StatusRow, 0, len(sources))
	for _, source := range sources {
		rows = append(rows, StatusRow{
			SourceName:       source.Name,
			LastUpdated:      FormatTimestamp(source.LastUpdated),
			Status:           Evaluate(source.LastUpdated, source.Thresholds.Warning, source.Thresholds.Error, now),
			WarningThreshold: HumanizeDuration(source.Thresholds.Warning),
			ErrorThreshold:   HumanizeDuration(source.Thresholds.Error),
		})
	}
	return rows
}

// FormatTimestamp renders ts in UTC, or "" when absent.
func FormatTimestamp(ts *time.Time) string {
	if ts == nil {
		return ""
	}
	return ts.UTC().Format(TimestampLayout)
}

var durationUnits = []struct {
	size time.Duration
	name string
}{
	{24 * time.Hour, "day"},
	{time.Hour, "hour"},
	{time.Minute, "minute"},
	{time.Second, "second"},
}

// HumanizeDuration renders a threshold exactly, such as "5 minutes" or
// "1 hour 30 minutes". Sub-second remainders are dropped.
func HumanizeDuration(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	if d < time.Second {
		return d.String()
	}
	parts := make([]string, 0, len(durationUnits))
	for _, unit := range durationUnits {
		n := d / unit.size
		if n == 0 {
			continue
		}
		parts = append(parts, english.Plural(int(n), unit.name, ""))
		d -= n * unit.size
	}
	return strings.Join(parts, " ")
}

// Worst returns the most severe status among rows; Unknown ranks below Error.
func Worst(rows []StatusRow) FreshnessStatus {
	worst := StatusOK
	for _, row := range rows {
		if severity(row.Status) > severity(worst) {
			worst = row.Status
		}
	}
	return worst
}

func severity(s FreshnessStatus) int {
	switch s {
	case StatusOK:
		return 0
	case StatusWarning:
		return 1
	case StatusUnknown:
		return 2
	case StatusError:
		return 3
	default:
		return 0
	}
}
