package plugin

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitFor returns the first reload matching ok. A single write can surface as
// more than one reload when it straddles the debounce tick.
func waitFor(t *testing.T, w *Watcher, ok func(DescriptorEvent) bool) DescriptorEvent {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, open := <-w.Events():
			require.True(t, open, "events channel closed")
			if ok(ev) {
				return ev
			}
		case <-deadline:
			t.Fatal("no matching descriptor reload")
			return DescriptorEvent{}
		}
	}
}

func TestWatcher_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DescriptorFile)
	require.NoError(t, os.WriteFile(path, []byte("name: demo\nversion: 1\n"), 0644))

	w, err := NewWatcher(WatcherConfig{Path: path, DebounceDelay: 20 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	require.NoError(t, os.WriteFile(path, []byte("name: demo\nversion: 2\ncommands:\n  ping: {}\n"), 0644))
	ev := waitFor(t, w, func(ev DescriptorEvent) bool { return ev.Err == nil })
	assert.Equal(t, "2", ev.Descriptor.Version)
	assert.Contains(t, ev.Descriptor.Commands, "ping")

	require.NoError(t, os.WriteFile(path, []byte("version: 3\n"), 0644))
	ev = waitFor(t, w, func(ev DescriptorEvent) bool { return ev.Err != nil })
	assert.ErrorIs(t, ev.Err, ErrInvalidDescriptor)
	assert.Nil(t, ev.Descriptor)

	require.NoError(t, w.Stop())
	select {
	case _, ok := <-w.Events():
		for ok {
			_, ok = <-w.Events()
		}
	case <-time.After(5 * time.Second):
		t.Fatal("events channel not closed after Stop")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DescriptorFile)
	require.NoError(t, os.WriteFile(path, []byte("name: demo\nversion: 1\n"), 0644))

	w, err := NewWatcher(WatcherConfig{Path: path, DebounceDelay: 20 * time.Millisecond})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0644))

	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected reload: %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}
