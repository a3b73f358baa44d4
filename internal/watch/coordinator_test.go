package watch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/winds-ai/iatf/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func tempFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.iatf")
	if err := os.WriteFile(path, []byte(":::IATF\n===CONTENT===\n{#a}\ntext\n{/a}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestCoordinator_MissingFile(t *testing.T) {
	c := NewCoordinator(testutil.NewFakeStore(), func(string) error { return nil },
		discardLogger(), 10*time.Millisecond, 0)
	if err := c.Run(context.Background(), filepath.Join(t.TempDir(), "nope.iatf")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestCoordinator_ExternalDeregisterStops(t *testing.T) {
	path := tempFile(t)
	store := testutil.NewFakeStore()
	c := NewCoordinator(store, func(string) error { return nil },
		discardLogger(), 10*time.Millisecond, 0)

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background(), path) }()

	waitFor(t, 2*time.Second, func() bool {
		_, ok, _ := store.Get(path)
		return ok
	})
	if _, err := store.Deregister(path); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("coordinator did not stop after unwatch")
	}
}

func TestCoordinator_CancelCleansUpOwnEntry(t *testing.T) {
	path := tempFile(t)
	store := testutil.NewFakeStore()
	c := NewCoordinator(store, func(string) error { return nil },
		discardLogger(), 10*time.Millisecond, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, path) }()

	waitFor(t, 2*time.Second, func() bool {
		entry, ok, _ := store.Get(path)
		return ok && entry.PID == os.Getpid()
	})
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("coordinator did not stop on cancel")
	}
	if _, ok, _ := store.Get(path); ok {
		t.Error("registry entry survived shutdown")
	}
}

func TestCoordinator_RebuildsOnChange(t *testing.T) {
	path := tempFile(t)
	store := testutil.NewFakeStore()

	var rebuilds atomic.Int32
	c := NewCoordinator(store, func(string) error {
		rebuilds.Add(1)
		return nil
	}, discardLogger(), 10*time.Millisecond, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, path) }()

	waitFor(t, 2*time.Second, func() bool {
		_, ok, _ := store.Get(path)
		return ok
	})

	// Bump mtime well past the recorded value.
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	waitFor(t, 2*time.Second, func() bool { return rebuilds.Load() > 0 })
	cancel()
	<-done
}

func TestCoordinator_RebuildFailureKeepsWatching(t *testing.T) {
	path := tempFile(t)
	store := testutil.NewFakeStore()

	var calls atomic.Int32
	c := NewCoordinator(store, func(string) error {
		calls.Add(1)
		return errors.New("validation failed")
	}, discardLogger(), 10*time.Millisecond, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, path) }()

	waitFor(t, 2*time.Second, func() bool {
		_, ok, _ := store.Get(path)
		return ok
	})
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}
	waitFor(t, 2*time.Second, func() bool { return calls.Load() > 0 })

	// Still registered after the failed rebuild.
	if _, ok, _ := store.Get(path); !ok {
		t.Error("coordinator deregistered after rebuild failure")
	}
	cancel()
	<-done
}

func TestCoordinator_RegistryErrorStops(t *testing.T) {
	path := tempFile(t)
	store := testutil.NewFakeStore()
	c := NewCoordinator(store, func(string) error { return nil },
		discardLogger(), 10*time.Millisecond, 0)

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background(), path) }()

	waitFor(t, 2*time.Second, func() bool {
		_, ok, _ := store.Get(path)
		return ok
	})
	store.SetErr(errors.New("registry unreadable"))

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("coordinator did not stop on registry error")
	}
}
