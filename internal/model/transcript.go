package model

import "time"

// PipelineStatus is the ASR-reported lifecycle stage of a TranscriptDocument,
// as written by the external transcription service. Distinct from JobStatus,
// which is the orchestrator's own derived status.
type PipelineStatus string

const (
	PipelineEmpty                  PipelineStatus = ""
	PipelineTranscribed            PipelineStatus = "transcribed"
	PipelineComplete               PipelineStatus = "complete"
	PipelineCompleteNoSpeakerID    PipelineStatus = "complete_no_speaker_id"
	PipelineSpeakerIDFailed        PipelineStatus = "speaker_id_failed"
	PipelineSkippedTooShort        PipelineStatus = "skipped_too_short"
)

// Segment is a single ordered utterance within a transcript.
type Segment struct {
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Text        string  `json:"text"`
	Speaker     string  `json:"speaker"`
	SpeakerName *string `json:"speaker_name,omitempty"`
}

// SpeakerIdentification reflects the ASR/identity service's current
// knowledge of who spoke in a transcript.
type SpeakerIdentification struct {
	Identified   map[string]string `json:"identified"`
	Unidentified []string          `json:"unidentified"`
	// StableIDs maps a speaker slot to a long-lived speaker/candidate id,
	// used by the retroactive re-tag on candidate approval (spec §4.5.2).
	StableIDs map[string]string `json:"stable_ids,omitempty"`
}

// AssemblyAIInfo carries the subset of the external ASR's own metadata the
// core consumes. Named after the field path in spec §3 ("assemblyai.*");
// the provider producing it is out of scope for this module.
type AssemblyAIInfo struct {
	AudioDuration float64 `json:"audio_duration"`
	Status        string  `json:"status"`
}

// TranscriptDocument is the JSON document at done/<stem>.json, produced by
// the external ASR and thereafter mutated only by this module (speaker
// labels, merges) — never rewritten wholesale by the producer.
type TranscriptDocument struct {
	Timestamp             time.Time             `json:"timestamp"`
	PipelineStatus        PipelineStatus        `json:"pipeline_status"`
	SpeakerIdentification SpeakerIdentification `json:"speaker_identification"`
	Segments              []Segment             `json:"segments"`
	AssemblyAI            AssemblyAIInfo        `json:"assemblyai"`
	Diarization           bool                  `json:"diarization"`

	// AudioPath is the source audio this transcript was produced from,
	// used by the Curator Writer's re-sync name-reuse rule (spec §4.3/§4.7).
	AudioPath string `json:"audio_path,omitempty"`
}

// IsFullyIdentified reports whether no speaker slot still lacks a name.
func (d *TranscriptDocument) IsFullyIdentified() bool {
	return len(d.SpeakerIdentification.Unidentified) == 0
}

// Duration returns the transcript's audio duration, falling back to the
// maximum segment end time when assemblyai.audio_duration is absent, per
// spec §4.3 Phase C.
func (d *TranscriptDocument) Duration() float64 {
	if d.AssemblyAI.AudioDuration > 0 {
		return d.AssemblyAI.AudioDuration
	}
	var maxEnd float64
	for _, seg := range d.Segments {
		if seg.End > maxEnd {
			maxEnd = seg.End
		}
	}
	return maxEnd
}
