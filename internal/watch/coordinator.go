// Package watch implements the auto-rebuild loops: a poll-based
// single-file coordinator driven by the shared advisory registry, and an
// fsnotify-based directory watcher.
package watch

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/winds-ai/iatf/internal/models"
	"github.com/winds-ai/iatf/internal/registry"
)

// RebuildFunc validates and rebuilds one document. Failures are recorded
// by the caller's loop, never fatal to it.
type RebuildFunc func(path string) error

// Coordinator runs the registered poll-and-rebuild loop for single files.
//
// State machine per watched path: Unregistered, Watching, Rebuilding, back
// to Watching, eventually Unregistered. Transitions out of Watching happen on ctx
// cancellation (compare-and-delete of our own registry entry), on external
// removal of the entry (cooperative unwatch, no cleanup needed), on the
// registry becoming unreadable, or on the file disappearing.
type Coordinator struct {
	store    registry.Store
	rebuild  RebuildFunc
	logger   *slog.Logger
	interval time.Duration
	debounce time.Duration
}

// NewCoordinator wires a coordinator. interval is the poll tick; debounce
// is how long after the last observed change the rebuild fires.
func NewCoordinator(store registry.Store, rebuild RebuildFunc, logger *slog.Logger, interval, debounce time.Duration) *Coordinator {
	if interval <= 0 {
		interval = time.Second
	}
	return &Coordinator{
		store:    store,
		rebuild:  rebuild,
		logger:   logger,
		interval: interval,
		debounce: debounce,
	}
}

// Run registers path (which must be absolute) and polls until stopped.
// It returns nil on every cooperative exit; only registration itself can
// fail hard.
func (c *Coordinator) Run(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	pid := os.Getpid()
	entry := models.WatchEntry{
		Started:      time.Now().Format(time.RFC3339),
		LastModified: float64(info.ModTime().Unix()),
		PID:          pid,
	}
	if err := c.store.Register(path, entry); err != nil {
		return err
	}

	c.logger.Info("watch: started", slog.String("path", path))

	lastMod := info.ModTime()
	var due time.Time // zero when no rebuild is pending

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := c.store.DeregisterIfOwned(path, pid); err != nil {
				c.logger.Warn("watch: cleanup failed", slog.String("error", err.Error()))
			}
			c.logger.Info("watch: stopped", slog.String("path", path))
			return nil

		case now := <-ticker.C:
			state, err := c.store.List()
			if err != nil {
				// Registry unreadable or corrupt: clean up and exit.
				_ = c.store.DeregisterIfOwned(path, pid)
				c.logger.Warn("watch: registry unreadable, stopping",
					slog.String("path", path), slog.String("error", err.Error()))
				return nil
			}
			if _, ok := state[path]; !ok {
				// Removed externally via unwatch; nothing to clean up.
				c.logger.Info("watch: stopped via unwatch", slog.String("path", path))
				return nil
			}

			current, err := os.Stat(path)
			if err != nil {
				_ = c.store.DeregisterIfOwned(path, pid)
				c.logger.Warn("watch: file no longer exists", slog.String("path", path))
				return nil
			}

			if current.ModTime().After(lastMod) {
				lastMod = current.ModTime()
				due = now.Add(c.debounce)
				c.logger.Debug("watch: change detected", slog.String("path", path))
			}

			if !due.IsZero() && !now.Before(due) {
				due = time.Time{}
				if err := c.rebuild(path); err != nil {
					// Recorded, never fatal: the next tick continues.
					c.logger.Warn("watch: rebuild failed",
						slog.String("path", path), slog.String("error", err.Error()))
				} else {
					c.logger.Info("watch: rebuilt", slog.String("path", path))
				}
			}
		}
	}
}
