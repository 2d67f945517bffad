// Package daemon runs the long-lived bookmark mirror loop.
//
// The daemon:
// 1. Logs how many bookmarks the folder holds at startup
// 2. Optionally reconciles the whole folder once
// 3. Polls the places database for changes and runs a pass per change
// 4. Optionally reconciles again on a fixed interval
// 5. Stops between passes when its context is cancelled
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	gosync "sync"
	"time"

	"github.com/bookmirror/bookmirror/internal/bookmark"
	"github.com/bookmirror/bookmirror/internal/sync"
)

// Config holds configuration for the daemon.
type Config struct {
	// Folder is the mirrored folder, used in startup logging.
	Folder string

	// PollInterval is how often the detector is checked.
	PollInterval time.Duration

	// ReconcileOnStart runs a full pass before polling begins.
	ReconcileOnStart bool

	// ReconcileInterval forces a full pass this often. Zero disables it.
	ReconcileInterval time.Duration

	// FastPath answers a change with SyncLatest instead of SyncAll.
	// It assumes at most one bookmark was added between polls and never
	// removes files.
	FastPath bool

	// WatchFS wakes the loop on file system events in the profile
	// directory instead of waiting for the next tick.
	WatchFS bool

	// Logger for daemon activity
	Logger *log.Logger

	// Notifier, if set, is told about every detected change.
	Notifier ChangeNotifier
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Folder:       "R",
		PollInterval: time.Second,
		Logger:       log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// ChangeNotifier receives detected changes before the pass that handles them.
type ChangeNotifier interface {
	OnChange(change Change)
}

// Counter reports how many bookmarks a folder holds.
type Counter interface {
	Count(ctx context.Context, folder string) (int, error)
}

// Daemon drives a Syncer from a Detector.
type Daemon struct {
	syncer   sync.Syncer
	detector *Detector
	counter  Counter
	config   *Config

	// wake holds at most one pending early wake-up.
	wake chan struct{}
}

// New creates a daemon. counter may be nil to skip the startup count.
func New(syncer sync.Syncer, detector *Detector, counter Counter, config *Config) (*Daemon, error) {
	if syncer == nil {
		return nil, fmt.Errorf("syncer cannot be nil")
	}
	if detector == nil {
		return nil, fmt.Errorf("detector cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %v", config.PollInterval)
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[daemon] ", log.LstdFlags)
	}

	return &Daemon{
		syncer:   syncer,
		detector: detector,
		counter:  counter,
		config:   config,
		wake:     make(chan struct{}, 1),
	}, nil
}

// Run blocks until ctx is cancelled. It returns an error only when the
// bootstrap pass cannot read the database or the directory; later pass
// failures are logged and retried on the next poll.
//
// Passes run one at a time on the calling goroutine. A pass that has
// started runs to completion even if ctx is cancelled meanwhile.
func (d *Daemon) Run(ctx context.Context) error {
	logger := d.config.Logger

	if d.counter != nil {
		d.logExisting(ctx)
	}

	if d.config.ReconcileOnStart {
		if _, err := d.syncer.SyncAll(context.WithoutCancel(ctx)); err != nil {
			if bookmark.IsFatal(err) {
				return fmt.Errorf("startup failed: %w", err)
			}
			logger.Printf("Sync pass failed, retrying on next poll: %v", err)
		}
	}

	if d.config.WatchFS {
		stop := d.startWatcher()
		defer stop()
	}

	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()

	var reconcile <-chan time.Time
	if d.config.ReconcileInterval > 0 {
		t := time.NewTicker(d.config.ReconcileInterval)
		defer t.Stop()
		reconcile = t.C
	}

	logger.Printf("Monitoring %s every %v", d.detector.Path(), d.config.PollInterval)

	for {
		select {
		case <-ctx.Done():
			logger.Println("Shutdown signal received")
			return nil

		// select picks at random among ready cases, so a tick can win over
		// a pending shutdown.
		case <-ticker.C:
			if ctx.Err() == nil {
				d.Poll(ctx)
			}

		case <-d.wake:
			if ctx.Err() == nil {
				d.Poll(ctx)
			}

		case <-reconcile:
			if ctx.Err() == nil {
				d.runPass(ctx, sync.ModeFull)
			}
		}
	}
}

// Wake asks the loop to poll before the next tick.
// Repeated calls before the loop gets to it collapse into one.
func (d *Daemon) Wake() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Poll checks the detector once and, when the database changed, runs a
// pass. It reports whether a pass ran and succeeded. The change is only
// acknowledged after a successful pass.
func (d *Daemon) Poll(ctx context.Context) bool {
	change, changed, err := d.detector.Check()
	if err != nil {
		d.config.Logger.Printf("Error checking %s: %v", d.detector.Path(), err)
		return false
	}
	if !changed {
		return false
	}

	d.config.Logger.Printf("Change detected in %s (modified %s)",
		filepath.Base(d.detector.Path()), change.Observed.Format(time.RFC3339))
	if d.config.Notifier != nil {
		d.config.Notifier.OnChange(change)
	}

	mode := sync.ModeFull
	if d.config.FastPath {
		mode = sync.ModeLatest
	}
	if !d.runPass(ctx, mode) {
		return false
	}

	d.detector.Ack(change)
	return true
}

func (d *Daemon) logExisting(ctx context.Context) {
	n, err := d.counter.Count(ctx, d.config.Folder)
	switch {
	case err != nil:
		d.config.Logger.Printf("Error logging existing bookmarks: %v", err)
	case n > 0:
		d.config.Logger.Printf("Found %d existing bookmarks in '%s' folder", n, d.config.Folder)
	default:
		d.config.Logger.Printf("NO EXISTING bookmarks found in '%s' folder", d.config.Folder)
	}
}

// runPass runs one pass on a context that ignores cancellation of ctx.
func (d *Daemon) runPass(ctx context.Context, mode sync.Mode) bool {
	passCtx := context.WithoutCancel(ctx)

	var err error
	switch mode {
	case sync.ModeLatest:
		_, err = d.syncer.SyncLatest(passCtx)
	default:
		_, err = d.syncer.SyncAll(passCtx)
	}
	if err != nil {
		d.config.Logger.Printf("Sync pass failed, retrying on next poll: %v", err)
		return false
	}
	return true
}

// startWatcher wakes the loop on database file events. If the watcher
// cannot start, the daemon falls back to polling alone.
func (d *Daemon) startWatcher() (stop func()) {
	logger := d.config.Logger

	fw, err := NewFileWatcher(d.detector.Path())
	if err != nil {
		logger.Printf("Warning: file watching disabled: %v", err)
		return func() {}
	}
	if err := fw.Start(filepath.Dir(d.detector.Path())); err != nil {
		logger.Printf("Warning: file watching disabled: %v", err)
		fw.Stop()
		return func() {}
	}

	var wg gosync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case _, ok := <-fw.Events():
				if !ok {
					return
				}
				d.Wake()

			case err, ok := <-fw.Errors():
				if !ok {
					return
				}
				logger.Printf("Watcher error: %v", err)
			}
		}
	}()

	return func() {
		if err := fw.Stop(); err != nil {
			logger.Printf("Error closing watcher: %v", err)
		}
		wg.Wait()
	}
}
