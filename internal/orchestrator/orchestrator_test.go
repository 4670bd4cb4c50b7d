package orchestrator

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicekeep/internal/curator"
	"voicekeep/internal/fslayout"
	"voicekeep/internal/fsutil"
	"voicekeep/internal/manifest"
	"voicekeep/internal/model"
)

func newTestOrchestrator(t *testing.T) (*Orchestrator, fslayout.Layout) {
	root := t.TempDir()
	layout := fslayout.Layout{
		AudioRoot:   filepath.Join(root, "audio"),
		CuratorRoot: filepath.Join(root, "curator"),
		ProfileRoot: filepath.Join(root, "profiles"),
		StateRoot:   filepath.Join(root, "state"),
	}
	m := manifest.New(layout.ManifestPath())
	require.NoError(t, m.Load())
	w := curator.NewWriter(layout)
	o := New(layout, m, w, nil, time.Second, 10*time.Second, 24*time.Hour)
	return o, layout
}

func writeInboxWAV(t *testing.T, layout fslayout.Layout, stem string) {
	t.Helper()
	require.NoError(t, fsutil.WriteFileAtomic(layout.InboxWAV(stem), []byte("wav"), 0o644))
}

func writeDoc(t *testing.T, layout fslayout.Layout, stem string, doc model.TranscriptDocument) {
	t.Helper()
	require.NoError(t, fsutil.WriteJSONAtomic(layout.DoneJSON(stem), doc))
}

// S1 — happy path, single speaker.
func TestS1HappyPathSingleSpeaker(t *testing.T) {
	o, layout := newTestOrchestrator(t)
	stem := "rec_20260301_090000"
	name := "fred"

	writeInboxWAV(t, layout, stem)
	writeDoc(t, layout, stem, model.TranscriptDocument{
		Timestamp:      time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		PipelineStatus: model.PipelineComplete,
		SpeakerIdentification: model.SpeakerIdentification{
			Identified: map[string]string{"SPEAKER_00": "fred"},
		},
		Segments: []model.Segment{
			{Start: 0, End: 42, Text: "hi", Speaker: "SPEAKER_00", SpeakerName: &name},
		},
	})

	mutated, err := o.RunOnce()
	require.NoError(t, err)
	assert.True(t, mutated)

	assert.False(t, fsutil.Exists(layout.InboxWAV(stem)))
	assert.True(t, fsutil.Exists(layout.PlaybackWAV(stem)))

	entry, ok := o.Manifest.Get(stem)
	require.True(t, ok)
	assert.Equal(t, model.StatusCuratorSynced, entry.Status)

	curatorFile := filepath.Join(layout.ActiveDateDir(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)), "09-00-00.json")
	assert.True(t, fsutil.Exists(curatorFile))
	assert.True(t, fsutil.Exists(layout.SyncMarker(stem)))

	var doc curator.Document
	require.NoError(t, fsutil.ReadJSON(curatorFile, &doc))
	assert.Equal(t, 1, doc.NumSpeakers)
}

// S2 — skipped short audio.
func TestS2SkippedShortAudio(t *testing.T) {
	o, layout := newTestOrchestrator(t)
	stem := "rec_20260301_090100"

	writeInboxWAV(t, layout, stem)
	writeDoc(t, layout, stem, model.TranscriptDocument{
		Timestamp:      time.Date(2026, 3, 1, 9, 1, 0, 0, time.UTC),
		PipelineStatus: model.PipelineSkippedTooShort,
		AssemblyAI:     model.AssemblyAIInfo{AudioDuration: 3},
	})

	mutated, err := o.RunOnce()
	require.NoError(t, err)
	assert.True(t, mutated)

	assert.False(t, fsutil.Exists(layout.InboxWAV(stem)))
	assert.False(t, fsutil.Exists(layout.PlaybackWAV(stem)))
	assert.False(t, fsutil.Exists(layout.SyncMarker(stem)))

	entry, ok := o.Manifest.Get(stem)
	require.True(t, ok)
	assert.Equal(t, model.StatusSkipped, entry.Status)
}

// S3 — pending then labeled.
func TestS3PendingThenLabeled(t *testing.T) {
	o, layout := newTestOrchestrator(t)
	stem := "rec_20260301_090200"

	writeInboxWAV(t, layout, stem)
	writeDoc(t, layout, stem, model.TranscriptDocument{
		Timestamp:      time.Date(2026, 3, 1, 9, 2, 0, 0, time.UTC),
		PipelineStatus: model.PipelineComplete,
		SpeakerIdentification: model.SpeakerIdentification{
			Unidentified: []string{"SPEAKER_01"},
		},
		Segments: []model.Segment{{Start: 0, End: 42, Text: "hi", Speaker: "SPEAKER_01"}},
	})

	mutated, err := o.RunOnce()
	require.NoError(t, err)
	assert.True(t, mutated)

	assert.True(t, fsutil.Exists(layout.PlaybackWAV(stem)))
	entry, ok := o.Manifest.Get(stem)
	require.True(t, ok)
	assert.Equal(t, model.StatusPendingCurator, entry.Status)
	assert.False(t, fsutil.Exists(layout.SyncMarker(stem)))

	// Label action: external identification clears unidentified.
	name := "fred"
	writeDoc(t, layout, stem, model.TranscriptDocument{
		Timestamp:      time.Date(2026, 3, 1, 9, 2, 0, 0, time.UTC),
		PipelineStatus: model.PipelineComplete,
		SpeakerIdentification: model.SpeakerIdentification{
			Identified: map[string]string{"SPEAKER_01": "fred"},
		},
		Segments: []model.Segment{{Start: 0, End: 42, Text: "hi", Speaker: "SPEAKER_01", SpeakerName: &name}},
	})

	mutated, err = o.RunOnce()
	require.NoError(t, err)
	assert.True(t, mutated)

	entry, ok = o.Manifest.Get(stem)
	require.True(t, ok)
	assert.Equal(t, model.StatusCuratorSynced, entry.Status)
	assert.True(t, fsutil.Exists(layout.SyncMarker(stem)))
}

// S6 — crash recovery: manifest rebuilt cold from filesystem alone.
func TestS6CrashRecovery(t *testing.T) {
	o, layout := newTestOrchestrator(t)

	writeInboxWAV(t, layout, "a")
	writeDoc(t, layout, "a", model.TranscriptDocument{
		Timestamp:      time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		PipelineStatus: model.PipelineComplete,
		Segments:       []model.Segment{{Start: 0, End: 20, Text: "hi", Speaker: "s0"}},
	})
	writeInboxWAV(t, layout, "b")
	writeDoc(t, layout, "b", model.TranscriptDocument{
		Timestamp:      time.Date(2026, 3, 1, 8, 5, 0, 0, time.UTC),
		PipelineStatus: model.PipelineComplete,
		Segments:       []model.Segment{{Start: 0, End: 20, Text: "hi", Speaker: "s0"}},
	})
	writeInboxWAV(t, layout, "c")
	writeDoc(t, layout, "c", model.TranscriptDocument{
		Timestamp:  time.Date(2026, 3, 1, 8, 10, 0, 0, time.UTC),
		AssemblyAI: model.AssemblyAIInfo{Status: "error"},
	})

	require.NoError(t, os.RemoveAll(layout.ManifestPath()))
	require.NoError(t, o.Manifest.Rebuild(layout))

	mutated, err := o.RunOnce()
	require.NoError(t, err)
	assert.True(t, mutated)

	a, ok := o.Manifest.Get("a")
	require.True(t, ok)
	assert.Equal(t, model.StatusCuratorSynced, a.Status)

	c, ok := o.Manifest.Get("c")
	require.True(t, ok)
	assert.Equal(t, model.StatusFailed, c.Status)
}

// Idempotent scan (property 6): a second RunOnce with no external change
// reports no mutation.
func TestIdempotentScan(t *testing.T) {
	o, layout := newTestOrchestrator(t)
	stem := "rec_20260301_093000"

	writeInboxWAV(t, layout, stem)
	writeDoc(t, layout, stem, model.TranscriptDocument{
		Timestamp:      time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		PipelineStatus: model.PipelineComplete,
		Segments:       []model.Segment{{Start: 0, End: 42, Text: "hi", Speaker: "s0"}},
	})

	mutated, err := o.RunOnce()
	require.NoError(t, err)
	assert.True(t, mutated)

	mutated, err = o.RunOnce()
	require.NoError(t, err)
	assert.False(t, mutated)
}

// Marker invariant (property 7).
func TestMarkerInvariant(t *testing.T) {
	o, layout := newTestOrchestrator(t)
	stem := "rec_20260301_094000"

	writeInboxWAV(t, layout, stem)
	writeDoc(t, layout, stem, model.TranscriptDocument{
		Timestamp:      time.Date(2026, 3, 1, 9, 40, 0, 0, time.UTC),
		PipelineStatus: model.PipelineComplete,
		Segments:       []model.Segment{{Start: 0, End: 42, Text: "hi", Speaker: "s0"}},
	})

	_, err := o.RunOnce()
	require.NoError(t, err)

	entry, ok := o.Manifest.Get(stem)
	require.True(t, ok)
	assert.Equal(t, fsutil.Exists(layout.SyncMarker(stem)), entry.Status == model.StatusCuratorSynced)
}
