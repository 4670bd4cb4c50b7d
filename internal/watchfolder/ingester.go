// Package watchfolder implements the Watch-Folder Ingester (spec §4.4):
// it brings externally-provided audio files into the inbox, canonicalized
// to 16 kHz mono WAV, deduplicated by content hash, and auditable via a
// monotone ledger. Runs as its own single-threaded periodic poller,
// independent of the Orchestrator's loop (spec §5).
package watchfolder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"voicekeep/internal/fslayout"
	"voicekeep/internal/fsutil"
	"voicekeep/pkg/logger"
)

var supportedExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".m4a":  true,
	".ogg":  true,
	".flac": true,
}

// Config holds the Ingester's tunables (spec §6).
type Config struct {
	WatchDir             string
	PollInterval         time.Duration
	StableChecks         int
	StableInterval       time.Duration
	MaxStabilityAttempts int
	TranscodeTimeout     time.Duration
}

// Ingester is the Watch-Folder Ingester.
type Ingester struct {
	cfg    Config
	layout fslayout.Layout
	ledger *Ledger
}

// New builds an Ingester and loads its ledger before returning.
func New(cfg Config, layout fslayout.Layout) (*Ingester, error) {
	ledger := NewLedger(layout.LedgerPath())
	if err := ledger.Load(); err != nil {
		return nil, fmt.Errorf("watchfolder: load ledger: %w", err)
	}
	return &Ingester{cfg: cfg, layout: layout, ledger: ledger}, nil
}

// Run loops ScanOnce at cfg.PollInterval until ctx is canceled.
func (in *Ingester) Run(ctx context.Context) error {
	ticker := time.NewTicker(in.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := in.ScanOnce(ctx); err != nil {
				logger.Error("watchfolder: scan failed", "error", err)
			}
		}
	}
}

// Pause sets the on-disk state file to inactive.
func (in *Ingester) Pause() error {
	return SaveState(in.layout.WatchStatePath(), StateFile{Active: false})
}

// Resume sets the on-disk state file to active.
func (in *Ingester) Resume() error {
	return SaveState(in.layout.WatchStatePath(), StateFile{Active: true})
}

// ScanOnce performs one pass over the watched directory, ingesting every
// regular file not already present in the ledger (spec §4.4 steps 1–8).
// Per-file failures and an unreadable watched directory are logged and do
// not fail the scan; ScanOnce returns an error only if the state file
// cannot be loaded.
func (in *Ingester) ScanOnce(ctx context.Context) error {
	state, err := LoadState(in.layout.WatchStatePath())
	if err != nil {
		return err
	}
	_ = writeCurrent(in.layout.WatchCurrentPath(), CurrentFile{Status: CurrentIdle})

	entries, err := os.ReadDir(in.cfg.WatchDir)
	if err != nil {
		logger.Warn("watchfolder: watched directory unreadable", "dir", in.cfg.WatchDir, "error", err)
		return nil
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !state.Active {
			break
		}

		name := e.Name()
		if in.ledger.HasBasename(name) {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if !supportedExtensions[ext] {
			continue
		}

		if err := in.ingestOne(ctx, name); err != nil {
			logger.Warn("watchfolder: ingest failed, will retry next scan", "file", name, "error", err)
		}
		_ = writeCurrent(in.layout.WatchCurrentPath(), CurrentFile{Status: CurrentIdle})
	}

	_ = writeCurrent(in.layout.WatchCurrentPath(), CurrentFile{Status: CurrentIdle})
	return nil
}

func (in *Ingester) ingestOne(ctx context.Context, basename string) error {
	sourcePath := filepath.Join(in.cfg.WatchDir, basename)

	_ = writeCurrent(in.layout.WatchCurrentPath(), CurrentFile{CurrentFile: basename, Status: CurrentDownloading})

	stagingPath := filepath.Join(in.layout.TempDir(), basename)
	if err := copyFile(sourcePath, stagingPath); err != nil {
		return fmt.Errorf("copy to staging: %w", err)
	}

	_ = writeCurrent(in.layout.WatchCurrentPath(), CurrentFile{CurrentFile: basename, Status: CurrentWaiting})
	if err := waitForStability(stagingPath, in.cfg.StableChecks, in.cfg.StableInterval, in.cfg.MaxStabilityAttempts); err != nil {
		os.Remove(stagingPath)
		return fmt.Errorf("stability wait: %w", err)
	}

	hash, err := hashFile(stagingPath)
	if err != nil {
		os.Remove(stagingPath)
		return fmt.Errorf("hash staging file: %w", err)
	}

	if in.ledger.HasHash(hash) {
		os.Remove(stagingPath)
		logger.IngestEvent(basename, "deduped", "hash", hash)
		return nil
	}

	ext := strings.ToLower(filepath.Ext(basename))
	var canonicalSource string
	if ext == ".wav" {
		canonicalSource = stagingPath
	} else {
		_ = writeCurrent(in.layout.WatchCurrentPath(), CurrentFile{CurrentFile: basename, Status: CurrentConverting})
		converted := stagingPath + ".converted.wav"
		if err := transcodeToWAV(ctx, stagingPath, converted, in.cfg.TranscodeTimeout); err != nil {
			os.Remove(stagingPath)
			os.Remove(converted)
			return fmt.Errorf("transcode: %w", err)
		}
		os.Remove(stagingPath)
		canonicalSource = converted
	}

	stem := sanitizeStem(strings.TrimSuffix(basename, filepath.Ext(basename)))
	inboxName := allocateInboxName(in.layout.InboxDir(), stem)
	inboxPath := filepath.Join(in.layout.InboxDir(), inboxName)
	if err := os.MkdirAll(in.layout.InboxDir(), 0o755); err != nil {
		return fmt.Errorf("create inbox dir: %w", err)
	}
	if err := os.Rename(canonicalSource, inboxPath); err != nil {
		return fmt.Errorf("move into inbox: %w", err)
	}

	if err := in.ledger.Append(basename, LedgerEntry{
		Hash:           hash,
		ProcessedAt:    time.Now(),
		SourcePath:     sourcePath,
		SourceFilename: basename,
		InboxFilename:  inboxName,
	}); err != nil {
		return fmt.Errorf("persist ledger: %w", err)
	}

	logger.IngestEvent(basename, "ingested", "inbox_filename", inboxName)
	return nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

func waitForStability(path string, stableChecks int, interval time.Duration, maxAttempts int) error {
	var lastSize int64 = -1
	stableCount := 0

	for attempt := 0; attempt < maxAttempts; attempt++ {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		size := info.Size()
		if size > 0 && size == lastSize {
			stableCount++
			if stableCount >= stableChecks {
				return nil
			}
		} else {
			stableCount = 0
		}
		lastSize = size
		time.Sleep(interval)
	}
	return fmt.Errorf("file did not stabilize after %d attempts", maxAttempts)
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return "sha256:" + hex.EncodeToString(h.Sum(nil)), nil
}

func transcodeToWAV(ctx context.Context, src, dst string, timeout time.Duration) error {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, "ffmpeg",
		"-i", src,
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		"-y",
		dst,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, string(output))
	}
	return nil
}

func sanitizeStem(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// allocateInboxName returns "gdrive_<stem>.wav", appending "_<N>" on
// collision (spec §4.4 step 7).
func allocateInboxName(inboxDir, stem string) string {
	base := "gdrive_" + stem + ".wav"
	if !fsutil.Exists(filepath.Join(inboxDir, base)) {
		return base
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("gdrive_%s_%d.wav", stem, n)
		if !fsutil.Exists(filepath.Join(inboxDir, candidate)) {
			return candidate
		}
	}
}
