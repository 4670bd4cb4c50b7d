package model

import "time"

// JobStatus is the Orchestrator's derived lifecycle status for a stem,
// distinct from the ASR's own PipelineStatus.
type JobStatus string

const (
	StatusQueued            JobStatus = "queued"
	StatusProcessing        JobStatus = "processing"
	StatusSpeakerIDPending  JobStatus = "speaker_id_pending"
	StatusSpeakerIDFailed   JobStatus = "speaker_id_failed"
	StatusComplete          JobStatus = "complete"
	StatusPendingCurator    JobStatus = "pending_curator"
	StatusCuratorSynced     JobStatus = "curator_synced"
	StatusSkipped           JobStatus = "skipped"
	StatusFailed            JobStatus = "failed"
)

// Source identifies which ingester originated an AudioFile.
type Source string

const (
	SourceMicrophone Source = "microphone"
	SourceWatchFolder Source = "watch_folder"
)

// Stages records when each lifecycle milestone was first observed. A nil
// pointer means the milestone has not yet happened.
type Stages struct {
	Ingested      *time.Time `json:"ingested,omitempty"`
	Transcribed   *time.Time `json:"transcribed,omitempty"`
	SpeakerID     *time.Time `json:"speaker_id,omitempty"`
	CuratorSynced *time.Time `json:"curator_synced,omitempty"`
}

// JobEntry is the in-memory and on-disk record for one audio stem.
type JobEntry struct {
	Source    Source    `json:"source"`
	AudioFile string    `json:"audio_file"`
	CreatedAt time.Time `json:"created_at"`
	Status    JobStatus `json:"status"`
	Stages    Stages    `json:"stages"`

	SpeakerIdentification SpeakerIdentification `json:"speaker_identification"`

	PlaybackFile *string `json:"playback_file,omitempty"`
	CuratorPath  *string `json:"curator_path,omitempty"`
	Error        *string `json:"error,omitempty"`
}

// JobManifest is the entire keyed set of JobEntry values, keyed by stem.
// The filesystem is authoritative; this is a derived cache (spec §3/§9).
type JobManifest map[string]JobEntry
