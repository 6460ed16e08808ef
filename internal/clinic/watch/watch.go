// Package watch runs a backup whenever the clinic database file changes.
//
// Changes are debounced: a burst of writes produces a single backup once the
// file has been quiet for the configured interval.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// BackupFunc produces one backup. Errors are logged and the watcher keeps
// running.
type BackupFunc func(ctx context.Context) error

// Config holds configuration for the watcher.
type Config struct {
	// Debounce is how long the database must be quiet before a backup runs.
	Debounce time.Duration

	// BackupOnStart runs one backup before watching.
	BackupOnStart bool

	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Debounce: 30 * time.Second,
		Logger:   slog.Default(),
	}
}

// Watcher orchestrates file watching and debounced backups.
type Watcher struct {
	dbPath string
	backup BackupFunc
	config *Config

	watcher *fsnotify.Watcher

	mu         sync.Mutex
	pending    bool
	lastChange time.Time
	runs       int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a watcher for the database file at dbPath.
func New(dbPath string, backup BackupFunc, config *Config) (*Watcher, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("dbPath cannot be empty")
	}
	if backup == nil {
		return nil, fmt.Errorf("backup cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultConfig().Debounce
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	abs, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dbPath, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		dbPath:  abs,
		backup:  backup,
		config:  config,
		watcher: watcher,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Start watches until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if w.config.BackupOnStart {
		w.runBackup()
	}

	// The directory is watched, not the file: SQLite writes land in the
	// -wal sibling and editors replace files by rename.
	dir := filepath.Dir(w.dbPath)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.config.Logger.Info("watching database for changes", "path", w.dbPath, "debounce", w.config.Debounce)

	w.wg.Add(2)
	go w.watchFileEvents()
	go w.processChanges()

	select {
	case <-ctx.Done():
		return w.Stop()
	case <-w.ctx.Done():
		return nil
	}
}

// Stop shuts the watcher down and waits for its goroutines. A change still
// waiting for its debounce interval is backed up before returning.
func (w *Watcher) Stop() error {
	w.cancel()

	if err := w.watcher.Close(); err != nil {
		w.config.Logger.Warn("error closing watcher", "error", err)
	}
	w.wg.Wait()

	w.mu.Lock()
	pending := w.pending
	w.pending = false
	w.mu.Unlock()
	if pending {
		w.runBackup()
	}
	return nil
}

// Runs returns how many backups have been attempted.
func (w *Watcher) Runs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.runs
}

func (w *Watcher) watchFileEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !w.isDatabaseFile(event.Name) {
				continue
			}
			w.config.Logger.Debug("database changed", "op", event.Op.String(), "file", filepath.Base(event.Name))
			w.queueChange()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.config.Logger.Warn("watcher error", "error", err)
		}
	}
}

// isDatabaseFile matches the database itself and its WAL. Shared-memory
// and rollback-journal files change on reads too and are ignored.
func (w *Watcher) isDatabaseFile(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	return abs == w.dbPath || abs == w.dbPath+"-wal"
}

func (w *Watcher) queueChange() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = true
	w.lastChange = time.Now()
}

func (w *Watcher) processChanges() {
	defer w.wg.Done()

	tick := w.config.Debounce / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			if w.due(time.Now()) {
				w.runBackup()
			}
		}
	}
}

// due reports whether a pending change has been quiet long enough, and
// claims it if so.
func (w *Watcher) due(now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.pending || now.Sub(w.lastChange) < w.config.Debounce {
		return false
	}
	w.pending = false
	return true
}

func (w *Watcher) runBackup() {
	w.mu.Lock()
	w.runs++
	w.mu.Unlock()

	start := time.Now()
	// Backups run to completion even during shutdown.
	if err := w.backup(context.WithoutCancel(w.ctx)); err != nil {
		w.config.Logger.Error("backup failed", "error", err)
		return
	}
	w.config.Logger.Info("backup written", "elapsed", time.Since(start).Round(time.Millisecond))
}
