package index

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicekeep/internal/curator"
	"voicekeep/internal/fslayout"
	"voicekeep/internal/fsutil"
)

func TestRebuildAndSearch(t *testing.T) {
	root := t.TempDir()
	layout := fslayout.Layout{
		AudioRoot:   filepath.Join(root, "audio"),
		CuratorRoot: filepath.Join(root, "curator"),
		ProfileRoot: filepath.Join(root, "profiles"),
		StateRoot:   filepath.Join(root, "state"),
	}

	doc := curator.Document{
		Timestamp:   "2026-05-01T09:00:00Z",
		AudioPath:   "rec1.wav",
		FullText:    "hello world",
		Duration:    5,
		NumSpeakers: 1,
		Speakers:    []curator.Speaker{{ID: "spk_0", Name: "Alice"}},
	}
	dest := filepath.Join(layout.CuratorRoot, "voice", "2026", "05", "01", "09-00-00.json")
	require.NoError(t, fsutil.WriteJSONAtomic(dest, doc))

	ix, err := Open(filepath.Join(root, "state", "index.db"))
	require.NoError(t, err)
	defer ix.Close()

	require.NoError(t, ix.Rebuild(layout))

	results, err := ix.Search(SearchQuery{Speaker: "Alice"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "rec1", results[0].Stem)
	assert.False(t, results[0].Pending)

	require.NoError(t, ix.Remove("rec1"))
	results, err = ix.Search(SearchQuery{})
	require.NoError(t, err)
	assert.Len(t, results, 0)
}
