package registration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/c360studio/semwire/catalog"
)

// ErrMissingKey is returned when a command candidate's marker has no key.
var ErrMissingKey = errors.New("marker has no registration key")

// Candidate describes an accepted type on its way to a host registry.
type Candidate struct {
	Identifier string
	Namespace  string
	Name       string
	Marker     catalog.Marker
	HasMarker  bool
}

func newCandidate(info *catalog.TypeInfo) Candidate {
	c := Candidate{
		Identifier: info.Identifier(),
		Namespace:  info.Namespace,
		Name:       info.Name,
	}
	if info.Marker != nil {
		c.Marker = *info.Marker
		c.HasMarker = true
	}
	return c
}

// Sink hands built instances to a host registry and reports the outcome.
type Sink[C any] interface {
	Bind(ctx context.Context, candidate Candidate, instance C) Outcome
}

// SlotRegistry is a host registry of pre-declared named slots.
// BindSlot reports found=false, without error, when no slot has that name;
// it never creates slots.
type SlotRegistry[C any] interface {
	BindSlot(name string, instance C) (found bool, err error)
}

// ListenerRegistry is a host registry that accepts any listener.
type ListenerRegistry[C any] interface {
	RegisterListener(ctx context.Context, instance C) error
}

// CommandSink binds instances to the slot named by the marker key.
type CommandSink[C any] struct {
	Slots SlotRegistry[C]
}

// Bind implements Sink.
func (s CommandSink[C]) Bind(_ context.Context, candidate Candidate, instance C) Outcome {
	out := Outcome{Identifier: candidate.Identifier, Dev: candidate.Marker.DevOnly}

	key := strings.TrimSpace(candidate.Marker.Key)
	out.Name = key
	if key == "" {
		out.Kind = Failed
		out.Err = fmt.Errorf("%s: %w", candidate.Identifier, ErrMissingKey)
		return out
	}

	found, err := s.Slots.BindSlot(key, instance)
	switch {
	case err != nil:
		out.Kind = Failed
		out.Err = fmt.Errorf("bind %s to %q: %w", candidate.Identifier, key, err)
	case !found:
		out.Kind = SkippedNoTarget
	default:
		out.Kind = Registered
	}
	return out
}

// ListenerSink registers every instance with the host's listener registry.
type ListenerSink[C any] struct {
	Registry ListenerRegistry[C]
}

// Bind implements Sink.
func (s ListenerSink[C]) Bind(ctx context.Context, candidate Candidate, instance C) Outcome {
	out := Outcome{Identifier: candidate.Identifier, Name: candidate.Name, Dev: candidate.Marker.DevOnly}
	if err := s.Registry.RegisterListener(ctx, instance); err != nil {
		out.Kind = Failed
		out.Err = fmt.Errorf("register listener %s: %w", candidate.Identifier, err)
		return out
	}
	out.Kind = Registered
	return out
}
