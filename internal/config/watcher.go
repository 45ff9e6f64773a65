package config

import (
	"crypto/sha256"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Watcher monitors the shared settings file and keeps the latest valid
// snapshot available. It uses polling (mtime + content hash) rather than
// fsnotify: the file is tiny, edits are rare, and the external automation
// scripts poll it the same way.
//
// The coordinator calls [Watcher.Current] once per utterance, so a settings
// change made through the web page applies from the next queued item onward.
type Watcher struct {
	path     string
	interval time.Duration
	onChange func(old, new *Settings)

	mu      sync.Mutex
	current *Settings

	done     chan struct{}
	stopOnce sync.Once

	// last known file state for change detection
	lastMtime time.Time
	lastHash  [sha256.Size]byte
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. The default is 2 seconds.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithOnChange registers a callback invoked with the old and new snapshot
// whenever the file changes to a valid new state.
func WithOnChange(fn func(old, new *Settings)) WatcherOption {
	return func(w *Watcher) {
		w.onChange = fn
	}
}

// NewWatcher creates a settings watcher. It loads the initial snapshot
// immediately (a missing file yields defaults) and starts polling in a
// background goroutine. Call [Watcher.Stop] to shut the goroutine down.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: 2 * time.Second,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	s, err := LoadSettings(path)
	if err != nil {
		return nil, err
	}
	w.current = s
	w.lastMtime, w.lastHash = fileState(path)

	go w.poll()
	return w, nil
}

// Current returns the most recently loaded valid settings snapshot.
func (w *Watcher) Current() *Settings {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Stop stops the polling goroutine. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
}

// poll re-reads the file whenever its mtime or content hash changes.
func (w *Watcher) poll() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
		}

		mtime, hash := fileState(w.path)
		if mtime.Equal(w.lastMtime) && hash == w.lastHash {
			continue
		}

		s, err := LoadSettings(w.path)
		if err != nil {
			// Keep serving the previous snapshot; a half-saved file will be
			// picked up on the next tick.
			slog.Warn("settings reload failed, keeping previous snapshot",
				"path", w.path, "err", err)
			w.lastMtime, w.lastHash = mtime, hash
			continue
		}

		w.mu.Lock()
		old := w.current
		w.current = s
		w.mu.Unlock()
		w.lastMtime, w.lastHash = mtime, hash

		slog.Info("settings reloaded", "path", w.path)
		if w.onChange != nil {
			w.onChange(old, s)
		}
	}
}

// fileState returns the mtime and content hash of path. A missing or
// unreadable file yields zero values, which simply compare unequal once the
// file appears.
func fileState(path string) (time.Time, [sha256.Size]byte) {
	var zero [sha256.Size]byte
	fi, err := os.Stat(path)
	if err != nil {
		return time.Time{}, zero
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fi.ModTime(), zero
	}
	return fi.ModTime(), sha256.Sum256(data)
}
