package watchfolder

import (
	"sync"
	"time"

	"voicekeep/internal/fsutil"
)

// LedgerEntry records one file the ingester has already processed.
type LedgerEntry struct {
	Hash           string    `json:"hash"`
	ProcessedAt    time.Time `json:"processed_at"`
	SourcePath     string    `json:"source_path"`
	SourceFilename string    `json:"source_filename"`
	InboxFilename  string    `json:"inbox_filename"`
}

// Ledger is the atomic, monotone JSON store at processed_audio_log.json,
// keyed by the original source basename (spec §4.4 step 8). Entries are
// never deleted by the ingester.
type Ledger struct {
	path string

	mu      sync.RWMutex
	entries map[string]LedgerEntry
}

// NewLedger creates a Ledger backed by path. Call Load before use.
func NewLedger(path string) *Ledger {
	return &Ledger{path: path, entries: map[string]LedgerEntry{}}
}

// Load reads the on-disk ledger, degrading to empty on missing/malformed
// content (same recovery principle as the Job Manifest).
func (l *Ledger) Load() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var m map[string]LedgerEntry
	if err := fsutil.ReadJSON(l.path, &m); err != nil {
		l.entries = map[string]LedgerEntry{}
		return nil
	}
	if m == nil {
		m = map[string]LedgerEntry{}
	}
	l.entries = m
	return nil
}

// HasBasename reports whether basename has already been processed.
func (l *Ledger) HasBasename(basename string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.entries[basename]
	return ok
}

// HasHash reports whether any entry already carries this content hash —
// the ingester's dedup check (spec §4.4 step 5, property 4).
func (l *Ledger) HasHash(hash string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, e := range l.entries {
		if e.Hash == hash {
			return true
		}
	}
	return false
}

// Append records a successful ingestion and persists the ledger
// atomically (spec §4.4 step 8: "persist after every successful
// ingestion").
func (l *Ledger) Append(basename string, entry LedgerEntry) error {
	l.mu.Lock()
	l.entries[basename] = entry
	snapshot := make(map[string]LedgerEntry, len(l.entries))
	for k, v := range l.entries {
		snapshot[k] = v
	}
	l.mu.Unlock()

	return fsutil.WriteJSONAtomic(l.path, snapshot)
}
