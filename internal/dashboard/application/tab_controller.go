package application

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	dashboard "nowcasting-dashboard/internal/dashboard/domain"
	"nowcasting-dashboard/internal/observability/metrics"
)

const (
	defaultFetchTimeout = 30 * time.Second
	refreshKey          = "refresh"
)

// Trigger names what started a refresh.
type Trigger string

const (
	TriggerManual  Trigger = "manual"
	TriggerTimer   Trigger = "timer"
	TriggerInitial Trigger = "initial"
)

// State is the refresh state of one tab.
type State int32

const (
	StateIdle State = iota
	StateRefreshing
)

func (s State) String() string {
	if s == StateRefreshing {
		return "refreshing"
	}
	return "idle"
}

// Fetcher produces a complete tab result.
type Fetcher[T any] func(ctx context.Context) (T, error)

// TabConfig configures a TabController.
type TabConfig struct {
	Name         string
	Interval     time.Duration
	FetchTimeout time.Duration
}

// Outcome is the result delivered to every trigger source.
// Snapshot holds whatever the slot serves after the refresh attempt.
type Outcome[T any] struct {
	Snapshot  dashboard.Snapshot[T]
	Populated bool
	Trigger   Trigger
	Collapsed bool
	Err       error
}

// TabController owns one tab's cache slot and serialises its refreshes.
type TabController[T any] struct {
	name      string
	interval  time.Duration
	timeout   time.Duration
	fetch     Fetcher[T]
	slot      *dashboard.CacheSlot[T]
	clock     Clock
	publisher Publisher
	logger    zerolog.Logger

	group singleflight.Group
	seq   atomic.Uint64
	state atomic.Int32
}

// NewTabController constructs a TabController with an empty slot.
func NewTabController[T any](cfg TabConfig, fetch Fetcher[T], clock Clock, publisher Publisher, logger zerolog.Logger) (*TabController[T], error) {
	if cfg.Name == "" {
		return nil, errors.New("tab controller: name is required")
	}
	if fetch == nil {
		return nil, errors.New("tab controller: fetcher is required")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("tab controller %s: interval must be positive", cfg.Name)
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	if clock == nil {
		clock = SystemClock()
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &TabController[T]{
		name:      cfg.Name,
		interval:  cfg.Interval,
		timeout:   cfg.FetchTimeout,
		fetch:     fetch,
		slot:      dashboard.NewCacheSlot[T](),
		clock:     clock,
		publisher: publisher,
		logger:    logger.With().Str("tab", cfg.Name).Logger(),
	}, nil
}

// Name returns the tab name.
func (c *TabController[T]) Name() string {
	return c.name
}

// State reports whether a fetch is in flight.
func (c *TabController[T]) State() State {
	return State(c.state.Load())
}

// Snapshot returns the cached snapshot without fetching.
func (c *TabController[T]) Snapshot() (dashboard.Snapshot[T], bool) {
	return c.slot.Load()
}

// Refresh fetches fresh data, or joins the fetch already in flight.
// A cancelled ctx abandons the wait but not the shared fetch.
func (c *TabController[T]) Refresh(ctx context.Context, trigger Trigger) Outcome[T] {
	led := false
	ch := c.group.DoChan(refreshKey, func() (any, error) {
		led = true
		return c.refresh(trigger), nil
	})

	select {
	case <-ctx.Done():
		snap, ok := c.slot.Load()
		return Outcome[T]{Snapshot: snap, Populated: ok, Trigger: trigger, Err: ctx.Err()}
	case res := <-ch:
		out := res.Val.(Outcome[T])
		if !led {
			out.Collapsed = true
			out.Trigger = trigger
			metrics.IncTabRefreshCollapsed(c.name)
		}
		return out
	}
}

// Current returns the cached snapshot, fetching synchronously on first use.
func (c *TabController[T]) Current(ctx context.Context) (dashboard.Snapshot[T], error) {
	if snap, ok := c.slot.Load(); ok {
		return snap, nil
	}
	out := c.Refresh(ctx, TriggerInitial)
	if !out.Populated {
		if out.Err == nil {
			return out.Snapshot, dashboard.ErrDataUnavailable
		}
		return out.Snapshot, out.Err
	}
	return out.Snapshot, nil
}

// Run refreshes once, then on every interval tick until ctx is done.
func (c *TabController[T]) Run(ctx context.Context) {
	if c == nil {
		return
	}
	if _, ok := c.slot.Load(); !ok {
		c.Refresh(ctx, TriggerInitial)
	}

	ticker := c.clock.Ticker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			c.Refresh(ctx, TriggerTimer)
		}
	}
}

func (c *TabController[T]) refresh(trigger Trigger) Outcome[T] {
	c.state.Store(int32(StateRefreshing))
	defer c.state.Store(int32(StateIdle))

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	start := time.Now()
	value, err := c.safeFetch(ctx)
	elapsed := time.Since(start)
	ctx = context.WithoutCancel(ctx)

	if err != nil {
		metrics.ObserveTabRefresh(c.name, string(trigger), metrics.ResultError, elapsed)
		return c.failed(ctx, trigger, err)
	}

	snap := dashboard.Snapshot[T]{
		Value:       value,
		RefreshedAt: c.clock.Now().UTC(),
		Seq:         c.seq.Add(1),
	}
	if err := c.slot.Store(snap); err != nil {
		// Only reachable if the slot was written outside this controller.
		c.logger.Warn().Err(err).Uint64("seq", snap.Seq).Msg("refresh result discarded")
		current, ok := c.slot.Load()
		return Outcome[T]{Snapshot: current, Populated: ok, Trigger: trigger, Err: err}
	}
	metrics.ObserveTabRefresh(c.name, string(trigger), metrics.ResultSuccess, elapsed)

	c.logger.Debug().
		Str("trigger", string(trigger)).
		Uint64("seq", snap.Seq).
		Dur("took", elapsed).
		Msg("tab refreshed")

	if err := c.publisher.Publish(ctx, TabRefreshed{
		ID:          newEventID(),
		Tab:         c.name,
		Trigger:     trigger,
		Seq:         snap.Seq,
		RefreshedAt: snap.RefreshedAt,
		Marker:      snap.Marker(),
	}); err != nil {
		c.logger.Warn().Err(err).Msg("publish refresh event")
	}

	return Outcome[T]{Snapshot: snap, Populated: true, Trigger: trigger}
}

func (c *TabController[T]) safeFetch(ctx context.Context) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetch panicked: %v", r)
		}
	}()
	return c.fetch(ctx)
}

func (c *TabController[T]) failed(ctx context.Context, trigger Trigger, cause error) Outcome[T] {
	snap, ok := c.slot.Load()
	var err error
	if ok {
		err = fmt.Errorf("%w: %w", dashboard.ErrStaleCache, cause)
	} else {
		err = fmt.Errorf("%w: %w", dashboard.ErrDataUnavailable, cause)
	}

	c.logger.Warn().
		Err(cause).
		Str("trigger", string(trigger)).
		Bool("stale", ok).
		Msg("tab refresh failed")

	if perr := c.publisher.Publish(ctx, TabRefreshFailed{
		ID:       newEventID(),
		Tab:      c.name,
		Trigger:  trigger,
		Error:    cause.Error(),
		Stale:    ok,
		FailedAt: c.clock.Now().UTC(),
	}); perr != nil {
		c.logger.Warn().Err(perr).Msg("publish refresh failure event")
	}

	return Outcome[T]{Snapshot: snap, Populated: ok, Trigger: trigger, Err: err}
}
