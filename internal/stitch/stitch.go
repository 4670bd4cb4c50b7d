// Package stitch supplies the conversation-stitching step invoked by the
// Orchestrator's Phase F (spec §4.3, §9). The core spec deliberately
// delegates stitching semantics to an external helper; Default is this
// module's own minimal, swappable implementation: it groups the stems
// touched in a scan cycle by calendar day and refreshes a per-day index.
package stitch

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"voicekeep/internal/curator"
	"voicekeep/internal/fslayout"
	"voicekeep/internal/fsutil"
)

// Func is the pluggable signature the Orchestrator calls in Phase F.
type Func func(ctx context.Context, layout fslayout.Layout, touched []string) error

// DayIndex is the per-day conversation summary written alongside a date
// directory's published transcripts.
type DayIndex struct {
	Stems         []string  `json:"stems"`
	Speakers      []string  `json:"speakers"`
	TotalDuration int       `json:"total_duration"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Default groups touched curator documents by the calendar day of their
// own directory (the date-partitioned active tree already groups by day;
// this just indexes what's in each touched day directory) and writes
// "_conversation.json" listing every stem, speaker, and total duration
// known for that day. Pending (unsynced) documents are not indexed since
// they aren't part of any conversation yet.
//
// touched stems that no longer have an active curator file (deleted,
// still pending) are simply absent from the refreshed index — Default
// always rebuilds a day's index from what it finds on disk rather than
// accumulating state across calls.
func Default(ctx context.Context, layout fslayout.Layout, touched []string) error {
	dayDirs := map[string]struct{}{}
	for _, stem := range touched {
		dir, ok := findActiveDirForStem(layout, stem)
		if !ok {
			continue
		}
		dayDirs[dir] = struct{}{}
	}

	for dir := range dayDirs {
		if err := refreshDayIndex(dir); err != nil {
			return err
		}
	}
	return nil
}

func refreshDayIndex(dir string) error {
	docs, err := listDayDocuments(dir)
	if err != nil {
		return err
	}

	idx := DayIndex{UpdatedAt: time.Now().UTC()}
	speakerSet := map[string]struct{}{}
	for stem, doc := range docs {
		idx.Stems = append(idx.Stems, stem)
		idx.TotalDuration += doc.Duration
		for _, sp := range doc.Speakers {
			speakerSet[sp.Name] = struct{}{}
		}
	}
	sort.Strings(idx.Stems)
	for sp := range speakerSet {
		idx.Speakers = append(idx.Speakers, sp)
	}
	sort.Strings(idx.Speakers)

	return fsutil.WriteJSONAtomic(filepath.Join(dir, "_conversation.json"), idx)
}

func listDayDocuments(dir string) (map[string]curator.Document, error) {
	entries, err := fsutil.ListJSONFiles(dir)
	if err != nil {
		return nil, err
	}
	out := make(map[string]curator.Document, len(entries))
	for _, name := range entries {
		if name == "_conversation.json" {
			continue
		}
		var doc curator.Document
		if err := fsutil.ReadJSON(filepath.Join(dir, name), &doc); err != nil {
			continue
		}
		stem := strings.TrimSuffix(doc.AudioPath, ".wav")
		if stem == "" {
			stem = strings.TrimSuffix(name, ".json")
		}
		out[stem] = doc
	}
	return out, nil
}

// findActiveDirForStem reads the timestamp from done/<stem>.json and
// returns the active date directory for that day, the same directory the
// Curator Writer picks. It reports false when the document is unreadable
// or the directory does not exist; it does not check that stem's own
// curator file is in that directory.
func findActiveDirForStem(layout fslayout.Layout, stem string) (string, bool) {
	var doc struct {
		Timestamp time.Time `json:"timestamp"`
	}
	if err := fsutil.ReadJSON(layout.DoneJSON(stem), &doc); err != nil {
		return "", false
	}
	dir := layout.ActiveDateDir(doc.Timestamp)
	if !fsutil.Exists(dir) {
		return "", false
	}
	return dir, true
}
