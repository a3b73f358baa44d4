// Package testutil provides shared test helpers for writing temporary
// documents and faking the watch registry.
package testutil

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/winds-ai/iatf/internal/models"
	"github.com/winds-ai/iatf/internal/registry"
)

// WriteDocument writes content to name inside a fresh temp directory and
// returns the full path. The directory is cleaned up with the test.
func WriteDocument(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// FakeStore is an in-memory registry.Store for tests.
type FakeStore struct {
	mu      sync.Mutex
	entries map[string]models.WatchEntry
	err     error
}

// NewFakeStore returns an empty in-memory store.
func NewFakeStore() *FakeStore {
	return &FakeStore{entries: make(map[string]models.WatchEntry)}
}

// SetErr makes every subsequent operation fail with err.
func (s *FakeStore) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Register records an entry for path.
func (s *FakeStore) Register(path string, entry models.WatchEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries[path] = entry
	return nil
}

// Deregister removes path and reports whether it was present.
func (s *FakeStore) Deregister(path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	_, ok := s.entries[path]
	delete(s.entries, path)
	return ok, nil
}

// DeregisterIfOwned removes path only when its entry carries pid.
func (s *FakeStore) DeregisterIfOwned(path string, pid int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if entry, ok := s.entries[path]; ok && entry.PID == pid {
		delete(s.entries, path)
	}
	return nil
}

// Get returns the entry for path.
func (s *FakeStore) Get(path string) (models.WatchEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return models.WatchEntry{}, false, s.err
	}
	entry, ok := s.entries[path]
	return entry, ok, nil
}

// List returns a copy of all entries.
func (s *FakeStore) List() (map[string]models.WatchEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string]models.WatchEntry, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out, nil
}

var _ registry.Store = (*FakeStore)(nil)
