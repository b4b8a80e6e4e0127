package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/c360studio/semstreams/natsclient"
	"github.com/nats-io/nats.go"
)

// DefaultSubjectPrefix prefixes every topic when no prefix is configured.
const DefaultSubjectPrefix = "semwire.events"

// messageTimeout bounds the handling of one message.
const messageTimeout = 30 * time.Second

// Conn is the NATS transport used by NATSBus.
type Conn interface {
	Subscribe(ctx context.Context, subject string, handler func(context.Context, []byte)) (Unsubscriber, error)
	Publish(ctx context.Context, subject string, data []byte) error
}

// Unsubscriber cancels one subscription. *nats.Subscription satisfies it.
type Unsubscriber interface {
	Unsubscribe() error
}

// ClientConn adapts a semstreams natsclient.Client to Conn. Subscriptions are
// made on the underlying connection so that each one can be cancelled.
type ClientConn struct {
	Client *natsclient.Client
}

// Subscribe implements Conn.
func (c ClientConn) Subscribe(ctx context.Context, subject string, handler func(context.Context, []byte)) (Unsubscriber, error) {
	nc := c.Client.GetConnection()
	if nc == nil || !nc.IsConnected() {
		return nil, natsclient.ErrNotConnected
	}

	sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
		msgCtx, cancel := context.WithTimeout(ctx, messageTimeout)
		defer cancel()

		handler(msgCtx, msg.Data)
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Publish implements Conn.
func (c ClientConn) Publish(ctx context.Context, subject string, data []byte) error {
	return c.Client.Publish(ctx, subject, data)
}

// NATSBus publishes events as JSON on "<prefix>.<topic>" subjects.
type NATSBus struct {
	conn   Conn
	prefix string
	logger *slog.Logger

	mu        sync.Mutex
	listeners map[Listener]struct{}
}

// NewNATSBus creates a bus over conn.
func NewNATSBus(conn Conn, prefix string, logger *slog.Logger) *NATSBus {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSBus{
		conn:      conn,
		prefix:    prefix,
		logger:    logger,
		listeners: make(map[Listener]struct{}),
	}
}

// Subject returns the NATS subject for a topic.
func (b *NATSBus) Subject(topic string) string {
	return b.prefix + "." + topic
}

// RegisterListener subscribes each subscription of l. Message handling
// contexts derive from ctx, so ctx should live as long as the subscription.
// When any subscription fails, those already made for l are cancelled.
func (b *NATSBus) RegisterListener(ctx context.Context, l Listener) error {
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
	}

	live := make([]Unsubscriber, 0, len(subs))
	for _, sub := range subs {
		subject := b.Subject(sub.Topic)
		handle, err := b.conn.Subscribe(ctx, subject, b.handlerFor(sub))
		if err != nil {
			b.unsubscribe(live)
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		live = append(live, handle)
	}
	if reflect.TypeOf(l).Comparable() {
		b.listeners[l] = struct{}{}
	}
	return nil
}

func (b *NATSBus) unsubscribe(handles []Unsubscriber) {
	for _, h := range handles {
		if err := h.Unsubscribe(); err != nil {
			b.logger.Warn("Failed to cancel subscription", "error", err)
		}
	}
}

func (b *NATSBus) handlerFor(sub Subscription) func(context.Context, []byte) {
	return func(ctx context.Context, data []byte) {
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			b.logger.Warn("Dropping malformed event", "topic", sub.Topic, "error", err)
			return
		}
		if err := invoke(ctx, sub.Handle, ev); err != nil {
			b.logger.Warn("Event handler failed", "topic", ev.Topic, "event_id", ev.ID, "error", err)
		}
	}
}

// Publish creates an event and sends it.
func (b *NATSBus) Publish(ctx context.Context, topic string, payload any) error {
	ev, err := NewEvent(topic, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := b.conn.Publish(ctx, b.Subject(topic), data); err != nil {
		return fmt.Errorf("publish %s: %w", b.Subject(topic), err)
	}
	return nil
}
