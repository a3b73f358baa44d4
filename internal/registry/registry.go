// Package registry implements the shared advisory watch registry: one JSON
// file mapping absolute document paths to the process watching them.
//
// There is no locking. Reads and writes are last-writer-wins; correctness
// against races relies on the cooperative protocol in the watch
// coordinator (compare-and-delete on pid for cleanup, polling re-read to
// detect external unwatch), not on atomic file operations.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/winds-ai/iatf/internal/models"
)

// Store is the narrow interface every registry consumer goes through, so
// the advisory-lock semantics stay isolated and testable with a fake.
type Store interface {
	// Register records or replaces the entry for path.
	Register(path string, entry models.WatchEntry) error
	// Deregister removes path unconditionally, reporting whether it was
	// present. The owning watch loop observes the removal on its next
	// poll tick and exits.
	Deregister(path string) (bool, error)
	// DeregisterIfOwned removes path only when its recorded pid matches.
	DeregisterIfOwned(path string, pid int) error
	// Get returns the entry for path.
	Get(path string) (models.WatchEntry, bool, error)
	// List returns a snapshot of all entries.
	List() (map[string]models.WatchEntry, error)
}

// FileStore is the JSON-file Store used in production.
type FileStore struct {
	path string
}

var _ Store = (*FileStore)(nil)

// DefaultPath returns the per-tool registry location, ~/.iatf/watch.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("registry: resolve home: %w", err)
	}
	return filepath.Join(home, ".iatf", "watch.json"), nil
}

// NewFileStore creates a Store backed by the JSON file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) load() (map[string]models.WatchEntry, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]models.WatchEntry), nil
		}
		return nil, fmt.Errorf("registry: read %s: %w", f.path, err)
	}
	var state map[string]models.WatchEntry
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("registry: parse %s: %w", f.path, err)
	}
	if state == nil {
		state = make(map[string]models.WatchEntry)
	}
	return state, nil
}

func (f *FileStore) save(state map[string]models.WatchEntry) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("registry: mkdir: %w", err)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("registry: encode: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o644); err != nil {
		return fmt.Errorf("registry: write %s: %w", f.path, err)
	}
	return nil
}

// Register records or replaces the entry for path.
func (f *FileStore) Register(path string, entry models.WatchEntry) error {
	state, err := f.load()
	if err != nil {
		return err
	}
	state[path] = entry
	return f.save(state)
}

// Deregister removes path unconditionally.
func (f *FileStore) Deregister(path string) (bool, error) {
	state, err := f.load()
	if err != nil {
		return false, err
	}
	if _, ok := state[path]; !ok {
		return false, nil
	}
	delete(state, path)
	return true, f.save(state)
}

// DeregisterIfOwned removes path only when the recorded pid matches.
// Best effort: another process replacing the entry between load and save
// wins, which is the advisory protocol working as intended.
func (f *FileStore) DeregisterIfOwned(path string, pid int) error {
	state, err := f.load()
	if err != nil {
		return err
	}
	entry, ok := state[path]
	if !ok || entry.PID != pid {
		return nil
	}
	delete(state, path)
	return f.save(state)
}

// Get returns the entry for path.
func (f *FileStore) Get(path string) (models.WatchEntry, bool, error) {
	state, err := f.load()
	if err != nil {
		return models.WatchEntry{}, false, err
	}
	entry, ok := state[path]
	return entry, ok, nil
}

// List returns a snapshot of all entries.
func (f *FileStore) List() (map[string]models.WatchEntry, error) {
	return f.load()
}
