package plugin

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatcherConfig configures a descriptor watcher
type WatcherConfig struct {
	// Path is the descriptor file to watch
	Path string

	// DebounceDelay is how long to wait for more changes before reloading
	DebounceDelay time.Duration

	Logger *slog.Logger
}

// DescriptorEvent is a reload of the watched descriptor. Err is set when the
// changed file could not be loaded; Descriptor is nil then.
type DescriptorEvent struct {
	Descriptor *Descriptor
	Err        error
}

// Watcher reloads a descriptor whenever its file changes
type Watcher struct {
	config  WatcherConfig
	path    string
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	pendingMu sync.Mutex
	pending   bool

	events chan DescriptorEvent
}

// NewWatcher creates a new descriptor watcher
func NewWatcher(config WatcherConfig) (*Watcher, error) {
	path, err := filepath.Abs(config.Path)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.DebounceDelay == 0 {
		config.DebounceDelay = 100 * time.Millisecond
	}

	return &Watcher{
		config:  config,
		path:    path,
		watcher: fsw,
		logger:  logger,
		events:  make(chan DescriptorEvent, 8),
	}, nil
}

// Events returns the channel of reloads. It is closed when the watcher stops.
func (w *Watcher) Events() <-chan DescriptorEvent {
	return w.events
}

// Start begins watching. The descriptor's directory is watched so that
// editors replacing the file by rename are noticed.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("Descriptor watcher started",
		"path", w.path,
		"debounce", w.config.DebounceDelay)
	return nil
}

// Stop stops the watcher
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// processEvents handles fsnotify events with debouncing
func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)

	ticker := time.NewTicker(w.config.DebounceDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	w.pendingMu.Lock()
	w.pending = true
	w.pendingMu.Unlock()
}

func (w *Watcher) flush(ctx context.Context) {
	w.pendingMu.Lock()
	pending := w.pending
	w.pending = false
	w.pendingMu.Unlock()
	if !pending {
		return
	}

	d, err := LoadDescriptor(w.path)
	if err != nil {
		w.logger.Warn("Descriptor reload failed", "path", w.path, "error", err)
	} else {
		w.logger.Debug("Descriptor reloaded", "path", w.path, "commands", len(d.Commands))
	}

	select {
	case w.events <- DescriptorEvent{Descriptor: d, Err: err}:
	case <-ctx.Done():
	}
}
