package model

import "time"

// CandidateStatus is the lifecycle state of a SpeakerCandidate.
type CandidateStatus string

const (
	CandidatePendingReview CandidateStatus = "pending_review"
	CandidateApproved      CandidateStatus = "approved"
	CandidateRejected      CandidateStatus = "rejected"
	CandidateMerged        CandidateStatus = "merged"
)

// SampleMetadata describes one audio sample that contributed to a candidate.
type SampleMetadata struct {
	Timestamp  time.Time `json:"timestamp"`
	Transcript string    `json:"transcript"`
	AudioFile  *string   `json:"audio_file,omitempty"`
}

// SpeakerCandidate is a not-yet-named voice cluster produced by the external
// embedding service at candidates/<speaker-id>.json. Created outside this
// module; state-transitioned only by the Speaker Identity Service.
type SpeakerCandidate struct {
	SpeakerID      string           `json:"speaker_id"`
	CreatedAt      time.Time        `json:"created_at"`
	NumSamples     int              `json:"num_samples"`
	Variance       float64          `json:"variance"`
	AvgEmbedding   []float64        `json:"avg_embedding"`
	SampleMetadata []SampleMetadata `json:"sample_metadata"`
	Status         CandidateStatus  `json:"status"`

	RejectedAt *time.Time `json:"rejected_at,omitempty"`
	MergedAt   *time.Time `json:"merged_at,omitempty"`
	MergedInto *string    `json:"merged_into,omitempty"`
}

// EnrollmentMethod records how a SpeakerProfile came to exist.
type EnrollmentMethod string

const (
	EnrollmentManual    EnrollmentMethod = "manual"
	EnrollmentAutomatic EnrollmentMethod = "automatic"
	EnrollmentMerged    EnrollmentMethod = "merged"
)

// ProfileMetadata traces a profile's provenance back to the candidates or
// samples that produced it.
type ProfileMetadata struct {
	SourceCandidateIDs []string `json:"source_candidate_ids,omitempty"`
	Note               string   `json:"note,omitempty"`
}

// SpeakerProfile is a named, embedded voice identity at profiles/<name>.json.
// Created and deleted only by the Speaker Identity Service.
type SpeakerProfile struct {
	Name             string           `json:"name"`
	EnrolledAt       time.Time        `json:"enrolledAt"`
	EnrollmentMethod EnrollmentMethod `json:"enrollmentMethod"`
	NumSamples       int              `json:"numSamples"`
	Embeddings       [][]float64      `json:"embeddings"`
	Threshold        float64          `json:"threshold"`
	Metadata         ProfileMetadata  `json:"metadata"`
}

// DefaultProfileThreshold is the per-profile match threshold used when one
// isn't explicitly configured (spec §3).
const DefaultProfileThreshold = 0.25
