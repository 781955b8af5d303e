package application

import (
	"context"
	"time"

	"github.com/google/uuid"

	"nowcasting-dashboard/internal/eventbus"
)

// Event names published by tab controllers.
const (
	EventTabRefreshed     = "tab.refreshed"
	EventTabRefreshFailed = "tab.refresh_failed"
)

// Publisher publishes dashboard events.
type Publisher interface {
	Publish(ctx context.Context, event eventbus.Event) error
}

// TabRefreshed is published after a tab's cache slot was replaced.
type TabRefreshed struct {
	ID          string    `json:"id"`
	Tab         string    `json:"tab"`
	Trigger     Trigger   `json:"trigger"`
	Seq         uint64    `json:"seq"`
	RefreshedAt time.Time `json:"refreshed_at"`
	Marker      string    `json:"marker"`
}

// EventName implements eventbus.Event.
func (TabRefreshed) EventName() string { return EventTabRefreshed }

// EventID is the stream id of this event.
func (e TabRefreshed) EventID() string { return e.ID }

// TabRefreshFailed is published when a fetch failed; the slot is unchanged.
type TabRefreshFailed struct {
	ID       string    `json:"id"`
	Tab      string    `json:"tab"`
	Trigger  Trigger   `json:"trigger"`
	Error    string    `json:"error"`
	Stale    bool      `json:"stale"`
	FailedAt time.Time `json:"failed_at"`
}

// EventName implements eventbus.Event.
func (TabRefreshFailed) EventName() string { return EventTabRefreshFailed }

// EventID is the stream id of this event.
func (e TabRefreshFailed) EventID() string { return e.ID }

func newEventID() string {
	return uuid.NewString()
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, eventbus.Event) error { return nil }
