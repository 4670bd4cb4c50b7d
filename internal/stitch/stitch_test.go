package stitch

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicekeep/internal/fslayout"
	"voicekeep/internal/fsutil"
)

func TestDefaultGroupsByDay(t *testing.T) {
	root := t.TempDir()
	layout := fslayout.Layout{
		AudioRoot:   filepath.Join(root, "audio"),
		CuratorRoot: filepath.Join(root, "curator"),
		ProfileRoot: filepath.Join(root, "profiles"),
		StateRoot:   filepath.Join(root, "state"),
	}

	ts := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, fsutil.WriteFileAtomic(layout.DoneJSON("rec1"), []byte(`{"timestamp":"2026-05-01T09:00:00Z"}`), 0o644))

	activeDir := layout.ActiveDateDir(ts)
	require.NoError(t, os.MkdirAll(activeDir, 0o755))
	doc := map[string]any{
		"audio_path":   "rec1.wav",
		"duration":     42,
		"num_speakers": 1,
		"speakers":     []map[string]any{{"id": "spk_0", "name": "Alice", "utterances": []any{}}},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, fsutil.WriteFileAtomic(filepath.Join(activeDir, "09-00-00.json"), data, 0o644))

	require.NoError(t, Default(context.Background(), layout, []string{"rec1"}))

	var idx DayIndex
	require.NoError(t, fsutil.ReadJSON(filepath.Join(activeDir, "_conversation.json"), &idx))
	assert.Equal(t, []string{"rec1"}, idx.Stems)
	assert.Equal(t, []string{"Alice"}, idx.Speakers)
	assert.Equal(t, 42, idx.TotalDuration)
}

func TestDefaultSkipsStemsWithoutActiveDoc(t *testing.T) {
	root := t.TempDir()
	layout := fslayout.Layout{
		AudioRoot:   filepath.Join(root, "audio"),
		CuratorRoot: filepath.Join(root, "curator"),
		ProfileRoot: filepath.Join(root, "profiles"),
		StateRoot:   filepath.Join(root, "state"),
	}
	require.NoError(t, Default(context.Background(), layout, []string{"nope"}))
}
