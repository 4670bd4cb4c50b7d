package curator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"voicekeep/internal/fslayout"
	"voicekeep/internal/fsutil"
	"voicekeep/internal/model"
)

// Writer produces the curator's canonical JSON for a transcript and places
// it in the correct date directory, handling re-sync from pending and name
// collisions (spec §4.7).
type Writer struct {
	Layout fslayout.Layout
}

func NewWriter(layout fslayout.Layout) *Writer {
	return &Writer{Layout: layout}
}

// Write builds the curator document for stem, selects its destination path
// (reusing a matching pending/active file if one exists, otherwise
// allocating a fresh name), writes the JSON durably, and returns the final
// path (rooted at the layout's curator root). The caller creates the SyncMarker only after this
// returns without error.
func (w *Writer) Write(ctx context.Context, stem string, doc *model.TranscriptDocument) (string, error) {
	audioPath := stem + ".wav"
	built := Build(doc, audioPath)

	activeDir := w.Layout.ActiveDateDir(doc.Timestamp)
	pendingDir := w.Layout.PendingDateDir(doc.Timestamp)

	if existing, ok := findByAudioPath(activeDir, audioPath); ok {
		if err := fsutil.WriteJSONAtomic(existing, built); err != nil {
			return "", fmt.Errorf("curator: rewrite existing active document: %w", err)
		}
		return existing, nil
	}

	if existing, ok := findByAudioPath(pendingDir, audioPath); ok {
		if err := os.MkdirAll(activeDir, 0o755); err != nil {
			return "", fmt.Errorf("curator: create active directory: %w", err)
		}
		dest := resolveCollision(activeDir, filepath.Base(existing), audioPath)
		if err := fsutil.WriteJSONAtomic(dest, built); err != nil {
			return "", fmt.Errorf("curator: write promoted document: %w", err)
		}
		if err := os.Remove(existing); err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("curator: remove pending document after promotion: %w", err)
		}
		return dest, nil
	}

	name := baseName(doc)
	dest := resolveCollision(activeDir, name, audioPath)
	if err := fsutil.WriteJSONAtomic(dest, built); err != nil {
		return "", fmt.Errorf("curator: write document: %w", err)
	}
	return dest, nil
}

// Locate finds the curator copy of stem, checking the active date
// directory first and then pending, without writing anything. Used by the
// Speaker Identity Service to find a transcript's curator copy (spec
// §4.5.1) ahead of deciding whether a re-sync is needed.
func (w *Writer) Locate(timestamp time.Time, stem string) (path string, ok bool) {
	audioPath := stem + ".wav"
	if p, ok := findByAudioPath(w.Layout.ActiveDateDir(timestamp), audioPath); ok {
		return p, true
	}
	return findByAudioPath(w.Layout.PendingDateDir(timestamp), audioPath)
}

func baseName(doc *model.TranscriptDocument) string {
	t := doc.Timestamp.UTC()
	name := fmt.Sprintf("%02d-%02d-%02d", t.Hour(), t.Minute(), t.Second())
	if doc.Diarization {
		name += "-diarized"
	}
	return name + ".json"
}

// resolveCollision returns the path within dir to use for name, appending
// "-<N>" before the extension for the smallest N that either doesn't exist
// or already belongs to audioPath.
func resolveCollision(dir, name, audioPath string) string {
	candidate := filepath.Join(dir, name)
	if sameAudio(candidate, audioPath) {
		return candidate
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 1; ; n++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s-%d%s", stem, n, ext))
		if sameAudio(candidate, audioPath) {
			return candidate
		}
	}
}

func sameAudio(path, audioPath string) bool {
	if !fsutil.Exists(path) {
		return true
	}
	var existing Document
	if err := fsutil.ReadJSON(path, &existing); err != nil {
		return false
	}
	return existing.AudioPath == audioPath
}

// findByAudioPath scans dir (non-recursively) for a curator document whose
// audio_path matches audioPath, returning its path.
func findByAudioPath(dir, audioPath string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		var doc Document
		if err := fsutil.ReadJSON(path, &doc); err != nil {
			continue
		}
		if doc.AudioPath == audioPath {
			return path, true
		}
	}
	return "", false
}
