package pv

import (
	"errors"
	"sort"
	"time"
)

// MaxSelection caps how many systems one plot shows.
const MaxSelection = 10

// YieldWindow is how far back yields are plotted.
const YieldWindow = 24 * time.Hour

// DefaultSystemIDs are plotted before anything has been selected.
var DefaultSystemIDs = []int{10003, 10020, 10033, 10041, 10078, 10334, 10427, 10510, 10903, 11144}

// ErrNoSystems is returned when a random pick is requested from an empty list.
var ErrNoSystems = errors.New("pv: no systems available")

// ErrTooManySystems is returned when a selection exceeds MaxSelection.
var ErrTooManySystems = errors.New("pv: too many systems selected")

// Yield is one reading from a PV system.
type Yield struct {
	SystemID          int       `json:"pv_system_id"`
	DatetimeUTC       time.Time `json:"datetime_utc"`
	SolarGenerationKW float64   `json:"solar_generation_kw"`
}

// Dedupe keeps the last reading per (system, time), ordered by system then time.
func Dedupe(yields []Yield) []Yield {
	type key struct {
		system int
		at     int64
	}
	index := make(map[key]int, len(yields))
	out := make([]Yield, 0, len(yields))
	for _, y := range yields {
		k := key{system: y.SystemID, at: y.DatetimeUTC.UnixNano()}
		if i, ok := index[k]; ok {
			out[i] = y
			continue
		}
		index[k] = len(out)
		out = append(out, y)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SystemID != out[j].SystemID {
			return out[i].SystemID < out[j].SystemID
		}
		return out[i].DatetimeUTC.Before(out[j].DatetimeUTC)
	})
	return out
}

// ValidateSelection rejects empty-after-filter or oversized selections.
func ValidateSelection(ids []int) ([]int, error) {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) > MaxSelection {
		return nil, ErrTooManySystems
	}
	return out, nil
}
