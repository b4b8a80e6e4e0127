package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
)

// LocalBus dispatches events synchronously within the process. Handlers for
// a topic run in registration order.
type LocalBus struct {
	mu        sync.RWMutex
	handlers  map[string][]Handler
	listeners map[Listener]struct{}
	logger    *slog.Logger
}

// NewLocalBus creates an empty in-process bus.
func NewLocalBus(logger *slog.Logger) *LocalBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalBus{
		handlers:  make(map[string][]Handler),
		listeners: make(map[Listener]struct{}),
		logger:    logger,
	}
}

// RegisterListener subscribes every subscription of l.
func (b *LocalBus) RegisterListener(_ context.Context, l Listener) error {
	subs, err := subscriptionsOf(l)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if reflect.TypeOf(l).Comparable() {
		if _, dup := b.listeners[l]; dup {
			return fmt.Errorf("%w: %T", ErrAlreadyRegistered, l)
		}
		b.listeners[l] = struct{}{}
	}
	for _, sub := range subs {
		b.handlers[sub.Topic] = append(b.handlers[sub.Topic], sub.Handle)
	}
	b.logger.Debug("Listener registered", "listener", fmt.Sprintf("%T", l), "subscriptions", len(subs))
	return nil
}

// Publish creates an event and delivers it.
func (b *LocalBus) Publish(ctx context.Context, topic string, payload any) error {
	ev, err := NewEvent(topic, payload)
	if err != nil {
		return err
	}
	return b.Deliver(ctx, ev)
}

// Deliver hands ev to every handler of its topic. A failing handler does not
// stop delivery; all handler errors are logged and returned joined.
func (b *LocalBus) Deliver(ctx context.Context, ev Event) error {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[ev.Topic]...)
	b.mu.RUnlock()

	var errs []error
	for _, h := range handlers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := invoke(ctx, h, ev); err != nil {
			b.logger.Warn("Event handler failed", "topic", ev.Topic, "event_id", ev.ID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Topics returns the number of handlers per subscribed topic.
func (b *LocalBus) Topics() map[string]int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	topics := make(map[string]int, len(b.handlers))
	for topic, hs := range b.handlers {
		topics[topic] = len(hs)
	}
	return topics
}
