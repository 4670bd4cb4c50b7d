// Package curator implements the Curator Writer (spec §4.7): it turns an
// admitted TranscriptDocument into the curator's canonical, date-partitioned
// JSON and manages the active/pending split and re-sync.
package curator

import "voicekeep/internal/model"

// Speaker is one grouped speaker entry in a curator document.
type Speaker struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Utterances []Utterance `json:"utterances"`
}

// Utterance is one timed span of speech.
type Utterance struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// FlatUtterance is an entry in the document's top-level, segment-ordered
// utterances list, labeled by name when known, otherwise by speaker id.
type FlatUtterance struct {
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// Document is the curator's canonical on-disk shape for one transcript.
type Document struct {
	Timestamp   string          `json:"timestamp"`
	AudioPath   string          `json:"audio_path"`
	Diarization bool            `json:"diarization"`
	FullText    string          `json:"full_text"`
	Duration    int             `json:"duration"`
	NumSpeakers int             `json:"num_speakers"`
	Speakers    []Speaker       `json:"speakers"`
	Utterances  []FlatUtterance `json:"utterances"`
}

// Build transforms doc into the curator's canonical Document shape per
// spec §4.7's transformation rules.
func Build(doc *model.TranscriptDocument, audioPath string) Document {
	out := Document{
		Timestamp:   doc.Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
		AudioPath:   audioPath,
		Diarization: doc.Diarization,
	}

	var b []byte
	maxEnd := 0.0
	speakerOrder := make([]string, 0)
	grouped := make(map[string]*Speaker)

	for _, seg := range doc.Segments {
		if len(b) > 0 {
			b = append(b, ' ')
		}
		b = append(b, []byte(seg.Text)...)

		if seg.End > maxEnd {
			maxEnd = seg.End
		}

		sp, ok := grouped[seg.Speaker]
		if !ok {
			sp = &Speaker{ID: seg.Speaker}
			grouped[seg.Speaker] = sp
			speakerOrder = append(speakerOrder, seg.Speaker)
		}
		if sp.Name == "" && seg.SpeakerName != nil && *seg.SpeakerName != "" {
			sp.Name = *seg.SpeakerName
		}
		sp.Utterances = append(sp.Utterances, Utterance{Text: seg.Text, Start: seg.Start, End: seg.End})

		label := seg.Speaker
		if seg.SpeakerName != nil && *seg.SpeakerName != "" {
			label = *seg.SpeakerName
		}
		out.Utterances = append(out.Utterances, FlatUtterance{Speaker: label, Text: seg.Text, Start: seg.Start, End: seg.End})
	}

	out.FullText = string(b)
	out.Duration = int(maxEnd + 0.5)
	out.NumSpeakers = len(speakerOrder)
	for _, id := range speakerOrder {
		sp := grouped[id]
		if sp.Name == "" {
			sp.Name = sp.ID
		}
		out.Speakers = append(out.Speakers, *sp)
	}

	return out
}
