// Package gate implements the Curator Gate (spec §4.2): an absolute,
// stateless admission predicate over a TranscriptDocument. The gate has no
// effect of its own — the Orchestrator and Speaker Identity Service realize
// it by creating/observing sync markers.
package gate

import "voicekeep/internal/model"

// Admit reports whether doc is admissible to the curator: every speaker
// must be identified, and the document's pipeline status must be terminal
// (complete or complete_no_speaker_id), or a legacy document (no
// pipeline_status at all, but already carrying segments) — the same
// terminal set the Orchestrator's status derivation treats as "complete"
// (spec §4.3 rules 5 and 6). Skipped and failed documents are never
// admitted; a document with an empty unidentified list but some other
// non-terminal status is held until the terminal status arrives.
func Admit(doc *model.TranscriptDocument) bool {
	if !doc.IsFullyIdentified() {
		return false
	}
	switch {
	case doc.PipelineStatus == model.PipelineComplete, doc.PipelineStatus == model.PipelineCompleteNoSpeakerID:
		return true
	case doc.PipelineStatus == model.PipelineEmpty && len(doc.Segments) > 0:
		return true
	default:
		return false
	}
}
