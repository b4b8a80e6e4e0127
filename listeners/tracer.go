package listeners

import (
	"context"
	"log/slog"
	"sync"

	"github.com/c360studio/semwire/host/eventbus"
)

// EventTracer logs every bundled event on development servers and keeps
// the most recent ones for inspection.
//
//semwire:listener dev
type EventTracer struct {
	logger *slog.Logger

	mu     sync.Mutex
	recent []eventbus.Event
	limit  int
}

// NewEventTracer creates a tracer that keeps the last 64 events.
func NewEventTracer() *EventTracer {
	return &EventTracer{logger: slog.Default().With("listener", "EventTracer"), limit: 64}
}

// Subscriptions implements eventbus.Listener.
func (t *EventTracer) Subscriptions() []eventbus.Subscription {
	topics := []string{TopicPlayerJoin, TopicPlayerQuit, TopicPlayerGreeted}
	subs := make([]eventbus.Subscription, len(topics))
	for i, topic := range topics {
		subs[i] = eventbus.Subscription{Topic: topic, Handle: t.trace}
	}
	return subs
}

func (t *EventTracer) trace(_ context.Context, ev eventbus.Event) error {
	t.logger.Debug("Event", "topic", ev.Topic, "id", ev.ID, "payload", string(ev.Payload))

	t.mu.Lock()
	defer t.mu.Unlock()
	t.recent = append(t.recent, ev)
	if len(t.recent) > t.limit {
		t.recent = t.recent[len(t.recent)-t.limit:]
	}
	return nil
}

// Recent returns the traced events, oldest first.
func (t *EventTracer) Recent() []eventbus.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]eventbus.Event(nil), t.recent...)
}
