package application

import (
	"context"
	"sync"
	"time"

	"nowcasting-dashboard/internal/eventbus"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	ticker *fakeTicker
	made   chan struct{}
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now, made: make(chan struct{}, 1)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) Ticker(time.Duration) Ticker {
	c.mu.Lock()
	c.ticker = &fakeTicker{ch: make(chan time.Time)}
	t := c.ticker
	c.mu.Unlock()
	select {
	case c.made <- struct{}{}:
	default:
	}
	return t
}

// tick blocks until the loop has received the tick.
func (c *fakeClock) tick() {
	c.mu.Lock()
	t := c.ticker
	now := c.now
	c.mu.Unlock()
	t.ch <- now
}

type fakeTicker struct {
	ch      chan time.Time
	stopped bool
}

func (t *fakeTicker) Chan() <-chan time.Time { return t.ch }
func (t *fakeTicker) Stop()                  { t.stopped = true }

type recordingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventName())
	}
	return out
}
