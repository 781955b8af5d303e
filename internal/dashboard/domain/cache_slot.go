package dashboard

import (
	"sync/atomic"
	"time"
)

// RefreshedLayout formats the "last refreshed" marker.
const RefreshedLayout = "2006-01-02 15:04:05"

// Snapshot is one complete refresh result held by a cache slot.
type Snapshot[T any] struct {
	Value       T
	RefreshedAt time.Time
	Seq         uint64
}

// Marker returns the human-readable "last refreshed" text.
func (s Snapshot[T]) Marker() string {
	if s.RefreshedAt.IsZero() {
		return ""
	}
	return "Last refreshed at " + s.RefreshedAt.UTC().Format(RefreshedLayout) + " [UTC]"
}

// CacheSlot holds the latest good snapshot for one tab.
// Readers see either the previous or the new snapshot, never a mix.
type CacheSlot[T any] struct {
	current atomic.Pointer[Snapshot[T]]
}

// NewCacheSlot returns an empty slot.
func NewCacheSlot[T any]() *CacheSlot[T] {
	return &CacheSlot[T]{}
}

// Load returns the current snapshot and whether the slot is populated.
func (s *CacheSlot[T]) Load() (Snapshot[T], bool) {
	if s == nil {
		return Snapshot[T]{}, false
	}
	snap := s.current.Load()
	if snap == nil {
		return Snapshot[T]{}, false
	}
	return *snap, true
}

// Store replaces the snapshot when snap.Seq is newer than the cached one.
func (s *CacheSlot[T]) Store(snap Snapshot[T]) error {
	next := &snap
	for {
		prev := s.current.Load()
		if prev != nil && prev.Seq >= snap.Seq {
			return ErrStaleSnapshot
		}
		if s.current.CompareAndSwap(prev, next) {
			return nil
		}
	}
}
