// Package watch regenerates a protocol whenever its volume sheet changes.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"primerpal/internal/logging"
	"primerpal/internal/volume"
)

// DefaultDebounce is how long the sheet must stay quiet before a rebuild.
const DefaultDebounce = 250 * time.Millisecond

// Handler receives the volume map read from the sheet.
type Handler func(ctx context.Context, vm volume.Map) error

// Options tune a SheetWatcher.
type Options struct {
	Debounce time.Duration
}

// Stats counts watcher activity.
type Stats struct {
	Events      int
	Generations int
	Errors      int
	LastEvent   time.Time
	LastError   string
}

// SheetWatcher watches one volume sheet and calls its handler with the
// sheet's contents at start and after every settled change.
type SheetWatcher struct {
	mu       sync.Mutex
	path     string
	dir      string
	base     string
	handler  Handler
	debounce time.Duration
	running  bool
	stats    Stats

	ready     chan struct{}
	readyOnce sync.Once
}

// NewSheetWatcher creates a watcher for the sheet at path.
func NewSheetWatcher(path string, handler Handler, opts Options) (*SheetWatcher, error) {
	if handler == nil {
		return nil, errors.New("sheet watcher requires a handler")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve sheet path: %w", err)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	return &SheetWatcher{
		path:     abs,
		dir:      filepath.Dir(abs),
		base:     filepath.Base(abs),
		handler:  handler,
		debounce: opts.Debounce,
		ready:    make(chan struct{}),
	}, nil
}

// Path returns the watched sheet.
func (sw *SheetWatcher) Path() string { return sw.path }

// Ready is closed once the sheet is being watched and the initial
// generation has finished, successfully or not.
func (sw *SheetWatcher) Ready() <-chan struct{} { return sw.ready }

// Stats returns a copy of the activity counters.
func (sw *SheetWatcher) Stats() Stats {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.stats
}

// Run watches until ctx is cancelled. It returns nil on cancellation and an
// error only when the watch itself cannot be set up.
func (sw *SheetWatcher) Run(ctx context.Context) error {
	sw.mu.Lock()
	if sw.running {
		sw.mu.Unlock()
		return errors.New("sheet watcher already running")
	}
	sw.running = true
	sw.mu.Unlock()
	defer func() {
		sw.mu.Lock()
		sw.running = false
		sw.mu.Unlock()
	}()

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Close()

	// The directory is watched so editors that replace the file on save
	// are still seen.
	if err := fw.Add(sw.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", sw.dir, err)
	}
	logging.Watch("watching sheet: %s", sw.path)

	triggers := make(chan struct{}, 1)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sw.watchLoop(gctx, fw, triggers)
	})
	g.Go(func() error {
		return sw.generateLoop(gctx, triggers)
	})

	err = g.Wait()
	logging.Watch("sheet watcher stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// watchLoop turns bursts of filesystem events into single triggers.
func (sw *SheetWatcher) watchLoop(ctx context.Context, fw *fsnotify.Watcher, triggers chan<- struct{}) error {
	tick := sw.debounce / 5
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	var (
		pending   bool
		lastEvent time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return errors.New("file watcher event channel closed")
			}
			if !sw.relevant(event) {
				continue
			}
			logging.Get(logging.CategoryWatch).Debug("%s event for %s", event.Op, event.Name)
			pending, lastEvent = true, time.Now()
			sw.mu.Lock()
			sw.stats.Events++
			sw.stats.LastEvent = lastEvent
			sw.mu.Unlock()

		case err, ok := <-fw.Errors:
			if !ok {
				return errors.New("file watcher error channel closed")
			}
			sw.recordError(fmt.Errorf("file watcher: %w", err))

		case <-ticker.C:
			if !pending || time.Since(lastEvent) < sw.debounce {
				continue
			}
			pending = false
			select {
			case triggers <- struct{}{}:
			default: // a rebuild is already queued
			}
		}
	}
}

func (sw *SheetWatcher) relevant(event fsnotify.Event) bool {
	if filepath.Base(event.Name) != sw.base {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0
}

func (sw *SheetWatcher) generateLoop(ctx context.Context, triggers <-chan struct{}) error {
	sw.generate(ctx)
	sw.readyOnce.Do(func() { close(sw.ready) })
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-triggers:
			sw.generate(ctx)
		}
	}
}

func (sw *SheetWatcher) generate(ctx context.Context) {
	m, err := volume.LoadSheet(sw.path)
	if err != nil {
		sw.recordError(err)
		return
	}
	if err := sw.handler(ctx, m.Snapshot()); err != nil {
		sw.recordError(err)
		return
	}
	sw.mu.Lock()
	sw.stats.Generations++
	sw.mu.Unlock()
	logging.Watch("regenerated from %s (%d samples)", sw.base, m.Count())
}

func (sw *SheetWatcher) recordError(err error) {
	logging.Get(logging.CategoryWatch).Error("sheet watcher: %v", err)
	sw.mu.Lock()
	sw.stats.Errors++
	sw.stats.LastError = err.Error()
	sw.mu.Unlock()
}
