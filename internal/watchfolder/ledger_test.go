package watchfolder

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicekeep/internal/fslayout"
)

func testLayout(t *testing.T) fslayout.Layout {
	root := t.TempDir()
	return fslayout.Layout{
		AudioRoot:   filepath.Join(root, "audio"),
		CuratorRoot: filepath.Join(root, "curator"),
		ProfileRoot: filepath.Join(root, "profiles"),
		StateRoot:   filepath.Join(root, "state"),
	}
}

func TestLedgerAppendAndDedup(t *testing.T) {
	layout := testLayout(t)
	l := NewLedger(layout.LedgerPath())
	require.NoError(t, l.Load())

	assert.False(t, l.HasBasename("foo.mp3"))
	require.NoError(t, l.Append("foo.mp3", LedgerEntry{Hash: "sha256:abc", SourceFilename: "foo.mp3", InboxFilename: "gdrive_foo.wav"}))

	assert.True(t, l.HasBasename("foo.mp3"))
	assert.True(t, l.HasHash("sha256:abc"))
	assert.False(t, l.HasHash("sha256:def"))

	reloaded := NewLedger(layout.LedgerPath())
	require.NoError(t, reloaded.Load())
	assert.True(t, reloaded.HasBasename("foo.mp3"))
}

// S5 — watch-folder dedup: a byte-identical copy under a different
// basename is never ingested a second time.
func TestS5WatchFolderDedup(t *testing.T) {
	layout := testLayout(t)
	watchDir := t.TempDir()
	require.NoError(t, os.MkdirAll(watchDir, 0o755))

	content := []byte("identical audio bytes")
	require.NoError(t, os.WriteFile(filepath.Join(watchDir, "foo.wav"), content, 0o644))

	in, err := New(Config{
		WatchDir:             watchDir,
		PollInterval:         time.Second,
		StableChecks:         1,
		StableInterval:       time.Millisecond,
		MaxStabilityAttempts: 5,
		TranscodeTimeout:     5 * time.Second,
	}, layout)
	require.NoError(t, err)

	require.NoError(t, in.ScanOnce(context.Background()))

	entries, err := os.ReadDir(layout.InboxDir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, in.ledger.HasBasename("foo.wav"))

	// Byte-identical copy under a different basename.
	require.NoError(t, os.WriteFile(filepath.Join(watchDir, "bar.wav"), content, 0o644))
	require.NoError(t, in.ScanOnce(context.Background()))

	entries, err = os.ReadDir(layout.InboxDir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "duplicate content must not be inboxed a second time")
	assert.False(t, in.ledger.HasBasename("bar.wav"), "dedup must not add a second ledger entry for bar.wav")
}

func TestAllocateInboxNameCollision(t *testing.T) {
	layout := testLayout(t)
	require.NoError(t, os.MkdirAll(layout.InboxDir(), 0o755))
	require.NoError(t, os.WriteFile(layout.InboxWAV("gdrive_clip"), []byte("x"), 0o644))

	name := allocateInboxName(layout.InboxDir(), "clip")
	assert.Equal(t, "gdrive_clip_1.wav", name)
}
