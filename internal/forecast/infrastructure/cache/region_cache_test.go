package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	forecast "nowcasting-dashboard/internal/forecast/domain"
)

type countingSource struct {
	calls atomic.Int32
	err   error
}

func (s *countingSource) RegionDetail(_ context.Context, regionID int, includeHistory bool) (forecast.RegionDetail, error) {
	s.calls.Add(1)
	if s.err != nil {
		return forecast.RegionDetail{}, s.err
	}
	detail := forecast.RegionDetail{RegionID: regionID}
	if includeHistory {
		detail.TruthDayAfter = []forecast.Yield{{}}
	}
	return detail, nil
}

func TestRegionCacheHitsByRegionAndHistory(t *testing.T) {
	source := &countingSource{}
	c, err := NewRegionCache(source, 0, time.Minute)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}

	for i := 0; i < 3; i++ {
		detail, err := c.RegionDetail(context.Background(), 111, true)
		if err != nil || detail.RegionID != 111 || len(detail.TruthDayAfter) != 1 {
			t.Fatalf("unexpected detail %+v err=%v", detail, err)
		}
	}
	if got := source.calls.Load(); got != 1 {
		t.Fatalf("expected one upstream call, got %d", got)
	}

	detail, err := c.RegionDetail(context.Background(), 111, false)
	if err != nil || len(detail.TruthDayAfter) != 0 {
		t.Fatalf("expected separate entry without history, got %+v err=%v", detail, err)
	}
	if got := source.calls.Load(); got != 2 || c.Len() != 2 {
		t.Fatalf("expected 2 calls and 2 entries, got %d and %d", got, c.Len())
	}

	c.Purge()
	if _, err := c.RegionDetail(context.Background(), 111, true); err != nil {
		t.Fatalf("refetch: %v", err)
	}
	if got := source.calls.Load(); got != 3 {
		t.Fatalf("expected refetch after purge, got %d calls", got)
	}
}

func TestRegionCacheDoesNotCacheErrors(t *testing.T) {
	source := &countingSource{err: errors.New("upstream down")}
	c, err := NewRegionCache(source, 4, time.Minute)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := c.RegionDetail(context.Background(), 5, false); err == nil {
			t.Fatal("expected error")
		}
	}
	if got := source.calls.Load(); got != 2 || c.Len() != 0 {
		t.Fatalf("expected errors to bypass cache, got %d calls %d entries", got, c.Len())
	}
}

func TestRegionCacheExpires(t *testing.T) {
	source := &countingSource{}
	c, err := NewRegionCache(source, 4, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	if _, err := c.RegionDetail(context.Background(), 1, false); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	time.Sleep(60 * time.Millisecond)
	if _, err := c.RegionDetail(context.Background(), 1, false); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got := source.calls.Load(); got != 2 {
		t.Fatalf("expected refetch after ttl, got %d calls", got)
	}
}

func TestNewRegionCacheValidation(t *testing.T) {
	if _, err := NewRegionCache(nil, 1, time.Minute); err == nil {
		t.Fatal("expected error for nil source")
	}
	if _, err := NewRegionCache(&countingSource{}, 1, 0); err == nil {
		t.Fatal("expected error for zero ttl")
	}
}
