package application

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	dashboard "nowcasting-dashboard/internal/dashboard/domain"
	"nowcasting-dashboard/internal/observability/metrics"
)

// DefaultFrameInterval matches the map animation's default speed.
const DefaultFrameInterval = 3 * time.Second

// FrameSource returns the frame sequence currently cached for a tab.
type FrameSource[F any] func() (dashboard.FrameSequence[F], bool)

// Frame is one rendered animation step.
type Frame[F any] struct {
	Tick        uint64 `json:"tick"`
	Step        int    `json:"step"`
	Steps       int    `json:"steps"`
	Label       string `json:"label"`
	Placeholder bool   `json:"placeholder"`
	Value       F      `json:"frame"`
}

// FrameCycler advances an animation counter and selects frames from the
// latest cached sequence at each tick.
type FrameCycler[F any] struct {
	name        string
	interval    time.Duration
	source      FrameSource[F]
	placeholder F
	clock       Clock
	tick        atomic.Uint64
}

// NewFrameCycler constructs a FrameCycler. placeholder is shown when no frame exists.
func NewFrameCycler[F any](name string, interval time.Duration, source FrameSource[F], placeholder F, clock Clock) (*FrameCycler[F], error) {
	if source == nil {
		return nil, errors.New("frame cycler: source is required")
	}
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &FrameCycler[F]{
		name:        name,
		interval:    interval,
		source:      source,
		placeholder: placeholder,
		clock:       clock,
	}, nil
}

// FrameAt selects Layers[layer][tick mod N] from the current sequence.
func (c *FrameCycler[F]) FrameAt(tick uint64, layer int) Frame[F] {
	seq, ok := c.source()
	if !ok {
		return Frame[F]{Tick: tick, Placeholder: true, Value: c.placeholder}
	}
	frame, ok := seq.Frame(tick, layer)
	if !ok {
		return Frame[F]{Tick: tick, Placeholder: true, Value: c.placeholder}
	}
	steps := len(seq.Layers[layer])
	return Frame[F]{
		Tick:  tick,
		Step:  int(tick % uint64(steps)),
		Steps: steps,
		Label: seq.Label(tick),
		Value: frame,
	}
}

// Current renders the frame at the cycler's own tick counter.
func (c *FrameCycler[F]) Current(layer int) Frame[F] {
	return c.FrameAt(c.tick.Load(), layer)
}

// Tick returns the current counter value.
func (c *FrameCycler[F]) Tick() uint64 {
	return c.tick.Load()
}

// Advance increments the counter and returns the new value.
func (c *FrameCycler[F]) Advance() uint64 {
	metrics.IncFrameTick(c.name)
	return c.tick.Add(1)
}

// Run advances the counter on every interval tick until ctx is done.
func (c *FrameCycler[F]) Run(ctx context.Context) {
	if c == nil {
		return
	}
	ticker := c.clock.Ticker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			c.Advance()
		}
	}
}
