package listeners

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semwire/catalog"
	"github.com/c360studio/semwire/host/eventbus"
	"github.com/c360studio/semwire/host/plugin"
	"github.com/c360studio/semwire/registration"
)

// recordingRegistry forwards to a bus and keeps the registered instances.
type recordingRegistry struct {
	bus       *eventbus.LocalBus
	instances []eventbus.Listener
}

func (r *recordingRegistry) RegisterListener(ctx context.Context, l eventbus.Listener) error {
	r.instances = append(r.instances, l)
	return r.bus.RegisterListener(ctx, l)
}

func setup(t *testing.T, devMode bool) (*eventbus.LocalBus, *recordingRegistry, *registration.Report) {
	t.Helper()
	bus := eventbus.NewLocalBus(nil)
	p, err := plugin.New(&plugin.Descriptor{Name: "demo", Version: "1"}, plugin.Options{DevMode: devMode, Events: bus})
	require.NoError(t, err)

	registry := &recordingRegistry{bus: bus}
	pipeline := registration.NewListenerPipeline[eventbus.Listener](
		catalog.NewScanner(catalog.Default), catalog.Default, registry,
		registration.Options{DevMode: devMode})
	report, err := pipeline.Register(context.Background(), p, "listeners")
	require.NoError(t, err)
	return bus, registry, report
}

func TestRegistration(t *testing.T) {
	_, registry, report := setup(t, false)
	assert.Equal(t, []registration.Kind{registration.SkippedNotDev, registration.Registered}, report.Kinds())
	require.Len(t, registry.instances, 1)
	assert.IsType(t, &JoinGreeter{}, registry.instances[0])

	_, registry, report = setup(t, true)
	assert.Equal(t, 2, report.Count(registration.Registered))
	assert.Len(t, registry.instances, 2)
}

func TestJoinGreeter(t *testing.T) {
	bus, registry, _ := setup(t, true)
	tracer := registry.instances[0].(*EventTracer)

	require.NoError(t, bus.Publish(context.Background(), TopicPlayerJoin, PlayerEvent{Player: "alex"}))

	recent := tracer.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, TopicPlayerJoin, recent[0].Topic)
	assert.Equal(t, TopicPlayerGreeted, recent[1].Topic)

	var greeting Greeting
	require.NoError(t, recent[1].Decode(&greeting))
	assert.Equal(t, Greeting{Player: "alex", Message: "Welcome to demo, alex!"}, greeting)
}

func TestJoinGreeter_BadPayload(t *testing.T) {
	bus, _, _ := setup(t, false)
	assert.Error(t, bus.Publish(context.Background(), TopicPlayerJoin, nil))
	assert.Error(t, bus.Publish(context.Background(), TopicPlayerJoin, PlayerEvent{}))
}

func TestEventTracer_Limit(t *testing.T) {
	tracer := NewEventTracer()
	tracer.limit = 3
	for i := 0; i < 5; i++ {
		ev, err := eventbus.NewEvent(TopicPlayerQuit, PlayerEvent{Player: "p"})
		require.NoError(t, err)
		require.NoError(t, tracer.trace(context.Background(), ev))
	}
	assert.Len(t, tracer.Recent(), 3)
	assert.Len(t, tracer.Subscriptions(), 3)
}
