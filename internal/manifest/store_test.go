package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicekeep/internal/fslayout"
	"voicekeep/internal/model"
)

func testLayout(t *testing.T) fslayout.Layout {
	root := t.TempDir()
	layout := fslayout.Layout{
		AudioRoot:   filepath.Join(root, "audio"),
		CuratorRoot: filepath.Join(root, "curator"),
		ProfileRoot: filepath.Join(root, "profiles"),
		StateRoot:   filepath.Join(root, "state"),
	}
	require.NoError(t, os.MkdirAll(layout.InboxDir(), 0o755))
	require.NoError(t, os.MkdirAll(layout.DoneDir(), 0o755))
	require.NoError(t, os.MkdirAll(layout.PlaybackDir(), 0o755))
	return layout
}

func writeFixture(t *testing.T, layout fslayout.Layout) {
	require.NoError(t, os.WriteFile(layout.InboxWAV("queued_clip"), []byte("wav"), 0o644))

	require.NoError(t, os.WriteFile(layout.InboxWAV("done_clip"), []byte("wav"), 0o644))
	doc := `{"pipeline_status":"complete","speaker_identification":{"identified":{"SPEAKER_00":"Alice"}},"segments":[{"text":"hi"}]}`
	require.NoError(t, os.WriteFile(layout.DoneJSON("done_clip"), []byte(doc), 0o644))
	require.NoError(t, os.WriteFile(layout.PlaybackWAV("done_clip"), []byte("wav"), 0o644))
	require.NoError(t, os.WriteFile(layout.SyncMarker("done_clip"), []byte("{}"), 0o644))
}

// statuses returns just the entries' status keyed by stem, the part of a
// JobEntry that is deterministic across rebuilds (CreatedAt/Stages carry
// wall-clock timestamps taken during derivation).
func statuses(m model.JobManifest) map[string]model.JobStatus {
	out := make(map[string]model.JobStatus, len(m))
	for stem, e := range m {
		out[stem] = e.Status
	}
	return out
}

// Property 2 — rebuild() equals scan(rebuild(), ∅): reconstructing the
// manifest from the filesystem alone reproduces the same keyed set of
// entries and statuses no matter what the in-memory map held before the
// call, and repeated rebuilds from the same filesystem state converge to
// the same result.
func TestRebuildIsFullyReconstructibleFromFilesystem(t *testing.T) {
	layout := testLayout(t)
	writeFixture(t, layout)

	empty := New(layout.ManifestPath())
	require.NoError(t, empty.Rebuild(layout))

	stale := New(layout.ManifestPath())
	stale.Upsert("queued_clip", model.JobEntry{Status: model.StatusFailed})
	stale.Upsert("ghost_stem_no_longer_on_disk", model.JobEntry{Status: model.StatusComplete})
	require.NoError(t, stale.Rebuild(layout))

	emptyEntries := empty.GetAll()
	staleEntries := stale.GetAll()

	assert.Equal(t, statuses(emptyEntries), statuses(staleEntries),
		"rebuild must converge to the same statuses regardless of prior in-memory state")
	assert.NotContains(t, staleEntries, "ghost_stem_no_longer_on_disk",
		"rebuild must discard entries with no filesystem evidence")

	require.Contains(t, staleEntries, "queued_clip")
	assert.Equal(t, model.StatusQueued, staleEntries["queued_clip"].Status)

	require.Contains(t, staleEntries, "done_clip")
	assert.Equal(t, model.StatusCuratorSynced, staleEntries["done_clip"].Status)
	require.NotNil(t, staleEntries["done_clip"].PlaybackFile)

	// Rebuilding again from the already-rebuilt store over the same
	// filesystem state must be idempotent.
	require.NoError(t, stale.Rebuild(layout))
	assert.Equal(t, statuses(staleEntries), statuses(stale.GetAll()))
}

func TestRebuildSkipsErrorJSONFiles(t *testing.T) {
	layout := testLayout(t)
	require.NoError(t, os.WriteFile(layout.InboxWAV("broken_clip"), []byte("wav"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(layout.DoneDir(), "broken_clip.error.json"), []byte("{}"), 0o644))

	s := New(layout.ManifestPath())
	require.NoError(t, s.Rebuild(layout))

	entries := s.GetAll()
	require.Contains(t, entries, "broken_clip")
	assert.Equal(t, model.StatusQueued, entries["broken_clip"].Status,
		"an .error.json sidecar must not be mistaken for a done document")
}
