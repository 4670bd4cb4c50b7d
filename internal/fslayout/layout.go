// Package fslayout centralizes every filesystem root and derived path used
// across the pipeline, so the directory contract in spec §6 is defined in
// exactly one place.
package fslayout

import (
	"fmt"
	"path/filepath"
	"time"
)

// Layout holds the configured root directories for one pipeline instance.
type Layout struct {
	AudioRoot   string // inbox/, done/, playback/, temp/, jobs.json
	CuratorRoot string // <curator-root>/voice/...
	ProfileRoot string // profiles/, candidates/
	StateRoot   string // watch-folder-state.json, ledger, index.db
}

func (l Layout) InboxDir() string    { return filepath.Join(l.AudioRoot, "inbox") }
func (l Layout) DoneDir() string     { return filepath.Join(l.AudioRoot, "done") }
func (l Layout) PlaybackDir() string { return filepath.Join(l.AudioRoot, "playback") }
func (l Layout) TempDir() string     { return filepath.Join(l.AudioRoot, "temp") }
func (l Layout) ManifestPath() string {
	return filepath.Join(l.AudioRoot, "jobs.json")
}

func (l Layout) InboxWAV(stem string) string    { return filepath.Join(l.InboxDir(), stem+".wav") }
func (l Layout) PlaybackWAV(stem string) string { return filepath.Join(l.PlaybackDir(), stem+".wav") }
func (l Layout) DoneJSON(stem string) string     { return filepath.Join(l.DoneDir(), stem+".json") }
func (l Layout) SyncMarker(stem string) string   { return l.DoneJSON(stem) + ".synced" }

func (l Layout) VoiceRoot() string { return filepath.Join(l.CuratorRoot, "voice") }

// ActiveDateDir returns <curator-root>/voice/<YYYY>/<MM>/<DD> for t.
func (l Layout) ActiveDateDir(t time.Time) string {
	return dateDir(l.VoiceRoot(), t)
}

// PendingDateDir returns <curator-root>/voice/_pending/<YYYY>/<MM>/<DD> for t.
func (l Layout) PendingDateDir(t time.Time) string {
	return dateDir(filepath.Join(l.VoiceRoot(), "_pending"), t)
}

func dateDir(root string, t time.Time) string {
	u := t.UTC()
	return filepath.Join(root,
		fmt.Sprintf("%04d", u.Year()),
		fmt.Sprintf("%02d", u.Month()),
		fmt.Sprintf("%02d", u.Day()))
}

func (l Layout) ProfilesDir() string   { return filepath.Join(l.ProfileRoot, "profiles") }
func (l Layout) CandidatesDir() string { return filepath.Join(l.ProfileRoot, "candidates") }

func (l Layout) ProfilePath(name string) string {
	return filepath.Join(l.ProfilesDir(), name+".json")
}
func (l Layout) CandidatePath(speakerID string) string {
	return filepath.Join(l.CandidatesDir(), speakerID+".json")
}

func (l Layout) WatchStatePath() string {
	return filepath.Join(l.StateRoot, "watch-folder-state.json")
}
func (l Layout) WatchCurrentPath() string {
	return filepath.Join(l.StateRoot, "watch-folder-current.json")
}
func (l Layout) LedgerPath() string {
	return filepath.Join(l.StateRoot, "processed_audio_log.json")
}
func (l Layout) IndexDBPath() string {
	return filepath.Join(l.StateRoot, "index.db")
}
