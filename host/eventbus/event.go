// Package eventbus delivers plugin events to listeners. LocalBus dispatches
// in-process; NATSBus carries events over NATS subjects.
//
// Both buses satisfy the listener registry used by the listener registration
// pipeline: every discovered Listener is registered unconditionally.
package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// ErrAlreadyRegistered is returned when the same listener instance is
// registered twice with a bus.
var ErrAlreadyRegistered = errors.New("listener already registered")

// Event is a published plugin event.
type Event struct {
	ID      string          `json:"id"`
	Topic   string          `json:"topic"`
	Time    time.Time       `json:"time"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEvent creates an event with a fresh ID and a JSON-encoded payload.
func NewEvent(topic string, payload any) (Event, error) {
	if err := ValidateTopic(topic); err != nil {
		return Event{}, err
	}
	ev := Event{ID: uuid.NewString(), Topic: topic, Time: time.Now().UTC()}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("encode %s payload: %w", topic, err)
		}
		ev.Payload = data
	}
	return ev, nil
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("event %s has no payload", e.ID)
	}
	return json.Unmarshal(e.Payload, v)
}

// Handler processes one event.
type Handler func(ctx context.Context, ev Event) error

// Subscription binds a handler to a topic.
type Subscription struct {
	Topic  string
	Handle Handler
}

// Listener is the capability of components that react to events.
type Listener interface {
	Subscriptions() []Subscription
}

// ValidateTopic checks that topic is a dot-separated name usable as a NATS
// subject token sequence. Wildcards are not allowed.
func ValidateTopic(topic string) error {
	if topic == "" {
		return fmt.Errorf("%w: empty topic", nats.ErrBadSubject)
	}
	if strings.ContainsAny(topic, "*> \t\r\n") {
		return fmt.Errorf("%w: %q", nats.ErrBadSubject, topic)
	}
	for _, token := range strings.Split(topic, ".") {
		if token == "" {
			return fmt.Errorf("%w: %q has an empty token", nats.ErrBadSubject, topic)
		}
	}
	return nil
}

// subscriptionsOf validates every subscription of l before any is used, so a
// bad listener is rejected as a whole.
func subscriptionsOf(l Listener) ([]Subscription, error) {
	if l == nil {
		return nil, errors.New("listener is nil")
	}
	subs := l.Subscriptions()
	if len(subs) == 0 {
		return nil, fmt.Errorf("%T has no subscriptions", l)
	}
	for i, sub := range subs {
		if err := ValidateTopic(sub.Topic); err != nil {
			return nil, fmt.Errorf("%T subscription %d: %w", l, i, err)
		}
		if sub.Handle == nil {
			return nil, fmt.Errorf("%T subscription %d (%s): handler is nil", l, i, sub.Topic)
		}
	}
	return subs, nil
}

// invoke runs a handler, turning a panic into an error.
func invoke(ctx context.Context, h Handler, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h(ctx, ev)
}
