package manifest

import "voicekeep/internal/model"

// DeriveStatus maps a TranscriptDocument onto a JobStatus, following the
// ordered rules in spec §4.3 "Status derivation". Rules are evaluated in
// order; the first match wins.
func DeriveStatus(doc *model.TranscriptDocument) model.JobStatus {
	switch {
	case doc.PipelineStatus == model.PipelineSkippedTooShort:
		return model.StatusSkipped
	case doc.PipelineStatus == model.PipelineTranscribed:
		return model.StatusSpeakerIDPending
	case doc.PipelineStatus == model.PipelineSpeakerIDFailed:
		return model.StatusSpeakerIDFailed
	case doc.AssemblyAI.Status == "error":
		return model.StatusFailed
	case doc.PipelineStatus == model.PipelineComplete || doc.PipelineStatus == model.PipelineCompleteNoSpeakerID:
		if doc.IsFullyIdentified() {
			return model.StatusComplete
		}
		return model.StatusPendingCurator
	case doc.PipelineStatus == model.PipelineEmpty && len(doc.Segments) > 0:
		// Legacy documents written before pipeline_status existed.
		return model.StatusComplete
	default:
		return model.StatusProcessing
	}
}
