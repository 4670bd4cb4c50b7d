package watchfolder

import (
	"time"

	"voicekeep/internal/fsutil"
)

// StateFile is the pause/resume flag at watch-folder-state.json.
type StateFile struct {
	Active bool `json:"active"`
}

// LoadState reads the pause/resume state, defaulting to active when the
// file is absent (an ingester with no state file has never been paused).
func LoadState(path string) (StateFile, error) {
	var s StateFile
	if err := fsutil.ReadJSON(path, &s); err != nil {
		return StateFile{Active: true}, nil
	}
	return s, nil
}

func SaveState(path string, s StateFile) error {
	return fsutil.WriteJSONAtomic(path, s)
}

// CurrentStatus is the observability state of the file currently (or most
// recently) being ingested.
type CurrentStatus string

const (
	CurrentIdle       CurrentStatus = "idle"
	CurrentDownloading CurrentStatus = "downloading"
	CurrentWaiting    CurrentStatus = "waiting"
	CurrentConverting CurrentStatus = "converting"
)

// CurrentFile is the small observability record at
// watch-folder-current.json, cleared to idle at the start and end of
// every file (spec §4.4 "Observability").
type CurrentFile struct {
	CurrentFile string        `json:"currentFile"`
	Status      CurrentStatus `json:"status"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

func writeCurrent(path string, cf CurrentFile) error {
	cf.UpdatedAt = time.Now()
	return fsutil.WriteJSONAtomic(path, cf)
}
