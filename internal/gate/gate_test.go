package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"voicekeep/internal/model"
)

func fullyIdentified() model.SpeakerIdentification {
	return model.SpeakerIdentification{Identified: map[string]string{"SPEAKER_00": "Alice"}}
}

func partiallyIdentified() model.SpeakerIdentification {
	return model.SpeakerIdentification{
		Identified:   map[string]string{"SPEAKER_00": "Alice"},
		Unidentified: []string{"SPEAKER_01"},
	}
}

// S1/S7 — gate soundness: Admit is true iff every speaker is identified and
// the document is terminal (complete, complete_no_speaker_id, or a legacy
// document already carrying segments).
func TestAdmitFullyIdentifiedTerminalStatuses(t *testing.T) {
	for _, status := range []model.PipelineStatus{model.PipelineComplete, model.PipelineCompleteNoSpeakerID} {
		doc := &model.TranscriptDocument{
			PipelineStatus:        status,
			SpeakerIdentification: fullyIdentified(),
			Segments:              []model.Segment{{Text: "hi"}},
		}
		assert.True(t, Admit(doc), "status %q should be admitted", status)
	}
}

func TestAdmitLegacyDocumentWithSegments(t *testing.T) {
	doc := &model.TranscriptDocument{
		PipelineStatus:        model.PipelineEmpty,
		SpeakerIdentification: fullyIdentified(),
		Segments:              []model.Segment{{Text: "hi"}},
	}
	assert.True(t, Admit(doc), "legacy document with segments and no pipeline_status must be admitted")
}

func TestAdmitRejectsUnidentifiedSpeakers(t *testing.T) {
	for _, status := range []model.PipelineStatus{model.PipelineComplete, model.PipelineCompleteNoSpeakerID, model.PipelineEmpty} {
		doc := &model.TranscriptDocument{
			PipelineStatus:        status,
			SpeakerIdentification: partiallyIdentified(),
			Segments:              []model.Segment{{Text: "hi"}},
		}
		assert.False(t, Admit(doc), "status %q with an unidentified speaker must never be admitted", status)
	}
}

func TestAdmitRejectsNonTerminalStatuses(t *testing.T) {
	for _, status := range []model.PipelineStatus{model.PipelineTranscribed, model.PipelineSpeakerIDFailed, model.PipelineSkippedTooShort} {
		doc := &model.TranscriptDocument{
			PipelineStatus:        status,
			SpeakerIdentification: fullyIdentified(),
			Segments:              []model.Segment{{Text: "hi"}},
		}
		assert.False(t, Admit(doc), "non-terminal status %q must not be admitted even when fully identified", status)
	}
}

func TestAdmitRejectsEmptyStatusWithoutSegments(t *testing.T) {
	doc := &model.TranscriptDocument{
		PipelineStatus:        model.PipelineEmpty,
		SpeakerIdentification: fullyIdentified(),
	}
	assert.False(t, Admit(doc), "empty status with no segments is not a legacy document and must be held")
}
