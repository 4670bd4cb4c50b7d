package manifest

import (
	"os"
	"strings"
	"time"

	"voicekeep/internal/fslayout"
	"voicekeep/internal/fsutil"
	"voicekeep/internal/model"
	"voicekeep/pkg/logger"
)

// Rebuild discovers every stem present in inbox/, done/, playback/, and
// sync markers, derives a fresh JobEntry per stem, and overwrites the
// in-memory manifest. This is the operation that makes the manifest fully
// reconstructible from the filesystem at any time (spec §4.1 invariant 1,
// §7 "recovery principle", property 2).
func (s *Store) Rebuild(layout fslayout.Layout) error {
	stems := map[string]struct{}{}

	collectWAVStems(layout.InboxDir(), stems)
	collectWAVStems(layout.PlaybackDir(), stems)
	collectDocStems(layout.DoneDir(), stems)

	fresh := make(model.JobManifest, len(stems))
	for stem := range stems {
		fresh[stem] = deriveEntry(layout, stem)
	}

	s.mu.Lock()
	s.entries = fresh
	s.mu.Unlock()
	return nil
}

func collectWAVStems(dir string, out map[string]struct{}) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".wav") {
			continue
		}
		out[strings.TrimSuffix(e.Name(), ".wav")] = struct{}{}
	}
}

func collectDocStems(dir string, out map[string]struct{}) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if strings.HasSuffix(name, ".json.synced") {
			out[strings.TrimSuffix(name, ".json.synced")] = struct{}{}
			continue
		}
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		if strings.Contains(name, ".error.") {
			continue
		}
		out[strings.TrimSuffix(name, ".json")] = struct{}{}
	}
}

// deriveEntry builds a JobEntry for stem purely from filesystem evidence,
// used by Rebuild.
func deriveEntry(layout fslayout.Layout, stem string) model.JobEntry {
	entry := model.JobEntry{
		Source:    sourceForStem(stem),
		AudioFile: stem + ".wav",
		CreatedAt: time.Now(),
		Status:    model.StatusQueued,
	}

	if fsutil.Exists(layout.InboxWAV(stem)) {
		now := time.Now()
		entry.Stages.Ingested = &now
	}

	var doc model.TranscriptDocument
	if err := fsutil.ReadJSON(layout.DoneJSON(stem), &doc); err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("manifest: malformed transcript during rebuild", "stem", stem, "error", err)
		}
		if fsutil.Exists(layout.PlaybackWAV(stem)) {
			playback := layout.PlaybackWAV(stem)
			entry.PlaybackFile = &playback
		}
		return entry
	}

	entry.Status = DeriveStatus(&doc)
	entry.SpeakerIdentification = doc.SpeakerIdentification
	now := time.Now()
	entry.Stages.Transcribed = &now
	switch doc.PipelineStatus {
	case model.PipelineComplete, model.PipelineCompleteNoSpeakerID, model.PipelineSpeakerIDFailed:
		entry.Stages.SpeakerID = &now
	}

	if fsutil.Exists(layout.PlaybackWAV(stem)) {
		playback := layout.PlaybackWAV(stem)
		entry.PlaybackFile = &playback
	}

	if entry.Status == model.StatusComplete && fsutil.Exists(layout.SyncMarker(stem)) {
		entry.Status = model.StatusCuratorSynced
		entry.Stages.CuratorSynced = &now
	}

	if doc.AssemblyAI.Status == "error" {
		msg := "ASR reported an error"
		entry.Error = &msg
	}

	return entry
}

func sourceForStem(stem string) model.Source {
	if strings.HasPrefix(stem, "gdrive_") {
		return model.SourceWatchFolder
	}
	return model.SourceMicrophone
}
