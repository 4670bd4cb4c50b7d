// Package manifest implements the Job Manifest Store (spec §4.1): a
// durable, crash-recoverable map of audio stem to JobEntry. The filesystem
// is authoritative; the manifest is a derived cache, fully reconstructible
// by Rebuild.
package manifest

import (
	"fmt"
	"os"
	"sync"

	"voicekeep/internal/fsutil"
	"voicekeep/internal/model"
	"voicekeep/pkg/logger"
)

// Store is a crash-safe, in-memory-plus-on-disk JobManifest.
type Store struct {
	path string

	mu      sync.RWMutex
	entries model.JobManifest
}

// New creates a Store backed by the manifest file at path. Callers must
// call Load (or Rebuild) before relying on GetAll.
func New(path string) *Store {
	return &Store{path: path, entries: model.JobManifest{}}
}

// Load reads the on-disk manifest. A missing or malformed file degrades to
// an empty map (spec §4.1: "read parse errors degrade to empty map — the
// next scan will recreate entries") rather than failing startup.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var m model.JobManifest
	if err := fsutil.ReadJSON(s.path, &m); err != nil {
		if os.IsNotExist(err) {
			s.entries = model.JobManifest{}
			return nil
		}
		logger.Warn("manifest: failed to parse, starting from empty", "path", s.path, "error", err)
		s.entries = model.JobManifest{}
		return nil
	}
	if m == nil {
		m = model.JobManifest{}
	}
	s.entries = m
	return nil
}

// Save writes the current manifest atomically (temp file + rename). Write
// failures are fatal only for the current cycle; the filesystem remains
// authoritative and the next cycle will retry (spec §4.1 invariant 2,
// failure semantics).
func (s *Store) Save() error {
	s.mu.RLock()
	snapshot := make(model.JobManifest, len(s.entries))
	for k, v := range s.entries {
		snapshot[k] = v
	}
	s.mu.RUnlock()

	if err := fsutil.WriteJSONAtomic(s.path, snapshot); err != nil {
		return fmt.Errorf("save manifest: %w", err)
	}
	return nil
}

// GetAll returns a snapshot copy of every entry.
func (s *Store) GetAll() model.JobManifest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(model.JobManifest, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

// Get returns the entry for stem, if present.
func (s *Store) Get(stem string) (model.JobEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[stem]
	return e, ok
}

// Upsert inserts or replaces the entry for stem.
func (s *Store) Upsert(stem string, e model.JobEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[stem] = e
}

// Delete removes the entry for stem, if present.
func (s *Store) Delete(stem string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, stem)
}
