// Package orchestrator implements the Pipeline Orchestrator (spec §4.3):
// the single-threaded cooperative scheduler that owns the Job Manifest,
// applies transcript state, disposes of audio, admits finished transcripts
// to the curator, cleans up orphans, and triggers conversation stitching.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"voicekeep/internal/curator"
	"voicekeep/internal/fslayout"
	"voicekeep/internal/fsutil"
	"voicekeep/internal/gate"
	"voicekeep/internal/index"
	"voicekeep/internal/manifest"
	"voicekeep/internal/model"
	"voicekeep/internal/stitch"
	"voicekeep/pkg/logger"
)

// Orchestrator runs the periodic scan cycle described in spec §4.3.
type Orchestrator struct {
	Layout   fslayout.Layout
	Manifest *manifest.Store
	Writer   *curator.Writer
	Stitch   stitch.Func
	Index    *index.Index // optional; nil disables incremental index maintenance

	PollInterval   time.Duration
	MinPlayback    time.Duration
	OrphanAge      time.Duration
}

// New builds an Orchestrator with the given collaborators and timings.
// Stitch is set to stitch.Default; callers may replace the field.
func New(layout fslayout.Layout, m *manifest.Store, w *curator.Writer, idx *index.Index, pollInterval, minPlayback, orphanAge time.Duration) *Orchestrator {
	return &Orchestrator{
		Layout:       layout,
		Manifest:     m,
		Writer:       w,
		Stitch:       stitch.Default,
		Index:        idx,
		PollInterval: pollInterval,
		MinPlayback:  minPlayback,
		OrphanAge:    orphanAge,
	}
}

// Run rebuilds the manifest from the filesystem, then loops RunOnce at
// PollInterval until ctx is canceled.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.Manifest.Rebuild(o.Layout); err != nil {
		return fmt.Errorf("orchestrator: initial rebuild: %w", err)
	}
	if err := o.Manifest.Save(); err != nil {
		logger.Warn("orchestrator: failed to persist post-rebuild manifest", "error", err)
	}
	if o.Index != nil {
		if err := o.Index.Rebuild(o.Layout); err != nil {
			logger.Warn("orchestrator: index rebuild failed", "error", err)
		}
	}

	ticker := time.NewTicker(o.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			mutated, touched, err := o.runOnceInternal()
			if err != nil {
				logger.Error("orchestrator: scan cycle failed", "error", err)
			}
			logger.ScanCycle(time.Since(start), mutated, len(touched))
		}
	}
}

// RunOnce executes a single scan cycle (phases A–G) and reports whether
// any mutation occurred. Exported for tests.
func (o *Orchestrator) RunOnce() (mutated bool, err error) {
	mutated, _, err = o.runOnceInternal()
	return mutated, err
}

func (o *Orchestrator) runOnceInternal() (mutated bool, touched []string, err error) {
	var touchedSet = map[string]struct{}{}
	mark := func(stem string) { touchedSet[stem] = struct{}{} }

	if o.phaseDiscover(mark) {
		mutated = true
	}
	if o.phaseApplyDocuments(mark) {
		mutated = true
	}
	if o.phaseAudioDisposition(mark) {
		mutated = true
	}
	if o.phaseCuratorAdmission(mark) {
		mutated = true
	}
	if o.phaseOrphanCleanup(mark) {
		mutated = true
	}

	for stem := range touchedSet {
		touched = append(touched, stem)
	}

	if mutated {
		o.phaseStitch(touched)
	}

	if mutated {
		if saveErr := o.Manifest.Save(); saveErr != nil {
			logger.Error("orchestrator: failed to save manifest", "error", saveErr)
		}
	}

	return mutated, touched, nil
}

// phaseDiscover (Phase A): every *.wav in inbox/ without a manifest entry
// becomes a queued JobEntry.
func (o *Orchestrator) phaseDiscover(mark func(string)) bool {
	entries, err := os.ReadDir(o.Layout.InboxDir())
	if err != nil {
		return false
	}

	mutated := false
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".wav") {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), ".wav")
		if _, ok := o.Manifest.Get(stem); ok {
			continue
		}
		now := time.Now()
		o.Manifest.Upsert(stem, model.JobEntry{
			Source:    sourceForStem(stem),
			AudioFile: e.Name(),
			CreatedAt: now,
			Status:    model.StatusQueued,
			Stages:    model.Stages{Ingested: &now},
		})
		mark(stem)
		mutated = true
	}
	return mutated
}

// phaseApplyDocuments (Phase B): for every done/<stem>.json, derive the
// new status and refresh the entry, preserving stage timestamps and
// forcing re-evaluation when a prior sync marker has disappeared.
func (o *Orchestrator) phaseApplyDocuments(mark func(string)) bool {
	entries, err := os.ReadDir(o.Layout.DoneDir())
	if err != nil {
		return false
	}

	mutated := false
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") || strings.Contains(name, ".error.") {
			continue
		}
		stem := strings.TrimSuffix(name, ".json")

		var doc model.TranscriptDocument
		if err := fsutil.ReadJSON(o.Layout.DoneJSON(stem), &doc); err != nil {
			logger.Warn("orchestrator: unreadable transcript, skipping this cycle", "stem", stem, "error", err)
			continue
		}

		old, hadOld := o.Manifest.Get(stem)
		newStatus := manifest.DeriveStatus(&doc)

		markerGone := hadOld && old.Status == model.StatusCuratorSynced && !fsutil.Exists(o.Layout.SyncMarker(stem))

		// A curator_synced entry is a stable terminal state (the derivation
		// table never produces it directly — Phase D is what promotes into
		// it). Leave it alone unless the marker disappeared out from under
		// it, which is the re-open signal operator actions use.
		if hadOld && old.Status == model.StatusCuratorSynced && !markerGone {
			continue
		}
		if old.Status == newStatus {
			continue
		}

		next := old
		if !hadOld {
			next = model.JobEntry{
				Source:    sourceForStem(stem),
				AudioFile: stem + ".wav",
				CreatedAt: time.Now(),
			}
		}
		next.SpeakerIdentification = doc.SpeakerIdentification
		now := time.Now()
		if next.Stages.Transcribed == nil {
			next.Stages.Transcribed = &now
		}
		switch doc.PipelineStatus {
		case model.PipelineComplete, model.PipelineCompleteNoSpeakerID, model.PipelineSpeakerIDFailed:
			if next.Stages.SpeakerID == nil {
				next.Stages.SpeakerID = &now
			}
		}
		if doc.AssemblyAI.Status == "error" {
			msg := "ASR reported an error"
			next.Error = &msg
		}

		if markerGone {
			next.Status = newStatus
			next.Stages.CuratorSynced = nil
			next.CuratorPath = nil
		} else {
			next.Status = newStatus
		}

		o.Manifest.Upsert(stem, next)
		mark(stem)
		mutated = true
	}
	return mutated
}

// phaseAudioDisposition (Phase C): for any stem that left {queued,
// processing}, move inbox WAV to playback/ if long enough, else delete.
func (o *Orchestrator) phaseAudioDisposition(mark func(string)) bool {
	mutated := false
	all := o.Manifest.GetAll()
	for stem, entry := range all {
		if entry.Status == model.StatusQueued || entry.Status == model.StatusProcessing {
			continue
		}
		inboxPath := o.Layout.InboxWAV(stem)
		if !fsutil.Exists(inboxPath) {
			continue
		}

		var doc model.TranscriptDocument
		duration := 0.0
		if err := fsutil.ReadJSON(o.Layout.DoneJSON(stem), &doc); err == nil {
			duration = doc.Duration()
		}

		if duration >= o.MinPlayback.Seconds() {
			dest := o.Layout.PlaybackWAV(stem)
			if err := os.MkdirAll(o.Layout.PlaybackDir(), 0o755); err != nil {
				logger.Error("orchestrator: create playback dir", "error", err)
				continue
			}
			if err := os.Rename(inboxPath, dest); err != nil {
				logger.Warn("orchestrator: move to playback failed, retrying next cycle", "stem", stem, "error", err)
				continue
			}
			entry.PlaybackFile = &dest
			o.Manifest.Upsert(stem, entry)
			mutated = true
		} else {
			if err := os.Remove(inboxPath); err != nil && !os.IsNotExist(err) {
				logger.Warn("orchestrator: delete short-audio inbox file failed", "stem", stem, "error", err)
				continue
			}
		}
		mark(stem)
	}
	return mutated
}

// phaseCuratorAdmission (Phase D): publish any stem in StatusComplete
// whose sync marker is absent.
func (o *Orchestrator) phaseCuratorAdmission(mark func(string)) bool {
	mutated := false
	all := o.Manifest.GetAll()
	for stem, entry := range all {
		if entry.Status != model.StatusComplete {
			continue
		}
		if fsutil.Exists(o.Layout.SyncMarker(stem)) {
			continue
		}

		var doc model.TranscriptDocument
		if err := fsutil.ReadJSON(o.Layout.DoneJSON(stem), &doc); err != nil {
			logger.Warn("orchestrator: unreadable transcript during admission", "stem", stem, "error", err)
			continue
		}
		if !gate.Admit(&doc) {
			continue
		}

		curatorPath, err := o.Writer.Write(context.Background(), stem, &doc)
		if err != nil {
			logger.Error("orchestrator: curator write failed, retrying next cycle", "stem", stem, "error", err)
			continue
		}
		if err := fsutil.WriteFileAtomic(o.Layout.SyncMarker(stem), nil, 0o644); err != nil {
			logger.Error("orchestrator: marker creation failed", "stem", stem, "error", err)
			continue
		}

		now := time.Now()
		entry.CuratorPath = &curatorPath
		entry.Stages.CuratorSynced = &now
		entry.Status = model.StatusCuratorSynced
		o.Manifest.Upsert(stem, entry)

		if o.Index != nil {
			o.refreshIndexRecord(stem, curatorPath, &doc, false)
		}

		mark(stem)
		mutated = true
	}
	return mutated
}

// phaseOrphanCleanup (Phase E): delete inbox WAVs with no transcript
// older than OrphanAge, marking the entry (if any) failed.
func (o *Orchestrator) phaseOrphanCleanup(mark func(string)) bool {
	entries, err := os.ReadDir(o.Layout.InboxDir())
	if err != nil {
		return false
	}

	mutated := false
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".wav") {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), ".wav")
		if fsutil.Exists(o.Layout.DoneJSON(stem)) {
			continue
		}

		info, err := e.Info()
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) < o.OrphanAge {
			continue
		}

		path := o.Layout.InboxWAV(stem)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warn("orchestrator: orphan delete failed", "stem", stem, "error", err)
			continue
		}

		if entry, ok := o.Manifest.Get(stem); ok {
			msg := fmt.Sprintf("Orphaned: no transcript after %dh", int(o.OrphanAge.Hours()))
			entry.Status = model.StatusFailed
			entry.Error = &msg
			o.Manifest.Upsert(stem, entry)
		}
		mark(stem)
		mutated = true
	}
	return mutated
}

// phaseStitch (Phase F): best-effort conversation stitching over the
// stems touched this cycle. Errors are logged, never fatal.
func (o *Orchestrator) phaseStitch(touched []string) {
	if o.Stitch == nil || len(touched) == 0 {
		return
	}
	if err := o.Stitch(context.Background(), o.Layout, touched); err != nil {
		logger.Warn("orchestrator: stitching failed", "error", err)
	}
}

func (o *Orchestrator) refreshIndexRecord(stem, curatorPath string, doc *model.TranscriptDocument, pending bool) {
	built := curator.Build(doc, stem+".wav")
	names := make([]string, 0, len(built.Speakers))
	for _, sp := range built.Speakers {
		names = append(names, sp.Name)
	}
	rec := index.IndexRecord{
		Stem:            stem,
		Timestamp:       doc.Timestamp,
		NumSpeakers:     built.NumSpeakers,
		Speakers:        strings.Join(names, ","),
		FullTextPreview: previewText(built.FullText, 240),
		CuratorPath:     curatorPath,
		Pending:         pending,
	}
	if err := o.Index.Upsert(rec); err != nil {
		logger.Warn("orchestrator: index upsert failed", "stem", stem, "error", err)
	}
}

func previewText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func sourceForStem(stem string) model.Source {
	if strings.HasPrefix(stem, "gdrive_") {
		return model.SourceWatchFolder
	}
	return model.SourceMicrophone
}
