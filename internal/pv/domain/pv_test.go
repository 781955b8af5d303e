package pv

import (
	"errors"
	"testing"
	"time"
)

func TestDedupeKeepsLastReading(t *testing.T) {
	at := time.Date(2022, 6, 1, 10, 0, 0, 0, time.UTC)
	out := Dedupe([]Yield{
		{SystemID: 2, DatetimeUTC: at, SolarGenerationKW: 1},
		{SystemID: 1, DatetimeUTC: at.Add(time.Minute), SolarGenerationKW: 5},
		{SystemID: 1, DatetimeUTC: at, SolarGenerationKW: 3},
		{SystemID: 2, DatetimeUTC: at, SolarGenerationKW: 7},
	})
	if len(out) != 3 {
		t.Fatalf("expected 3 readings, got %d", len(out))
	}
	if out[0].SystemID != 1 || !out[0].DatetimeUTC.Equal(at) {
		t.Fatalf("unexpected order: %+v", out)
	}
	if out[2].SystemID != 2 || out[2].SolarGenerationKW != 7 {
		t.Fatalf("expected last duplicate to win, got %+v", out[2])
	}
}

func TestValidateSelection(t *testing.T) {
	out, err := ValidateSelection([]int{3, 3, -1, 0, 4})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(out) != 2 || out[0] != 3 || out[1] != 4 {
		t.Fatalf("unexpected selection %v", out)
	}
	many := make([]int, MaxSelection+1)
	for i := range many {
		many[i] = i + 1
	}
	if _, err := ValidateSelection(many); !errors.Is(err, ErrTooManySystems) {
		t.Fatalf("expected too many systems, got %v", err)
	}
}
