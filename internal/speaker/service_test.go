package speaker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicekeep/internal/curator"
	"voicekeep/internal/embedclient"
	"voicekeep/internal/fslayout"
	"voicekeep/internal/fsutil"
	"voicekeep/internal/manifest"
	"voicekeep/internal/model"
)

type fakeEmbedClient struct {
	labelErr error
	labelFn  func(embedclient.LabelSpeakerRequest)
}

func (f *fakeEmbedClient) LabelSpeaker(ctx context.Context, req embedclient.LabelSpeakerRequest) (embedclient.LabelSpeakerResponse, error) {
	if f.labelFn != nil {
		f.labelFn(req)
	}
	if f.labelErr != nil {
		return embedclient.LabelSpeakerResponse{}, f.labelErr
	}
	return embedclient.LabelSpeakerResponse{ProfileUpdated: true}, nil
}

func (f *fakeEmbedClient) EnrollSpeaker(ctx context.Context, req embedclient.EnrollSpeakerRequest) (embedclient.EnrollSpeakerResponse, error) {
	return embedclient.EnrollSpeakerResponse{}, nil
}

func (f *fakeEmbedClient) Health(ctx context.Context) (embedclient.HealthResponse, error) {
	return embedclient.HealthResponse{Status: "ok"}, nil
}

func testLayout(t *testing.T) fslayout.Layout {
	root := t.TempDir()
	return fslayout.Layout{
		AudioRoot:   filepath.Join(root, "audio"),
		CuratorRoot: filepath.Join(root, "curator"),
		ProfileRoot: filepath.Join(root, "profiles"),
		StateRoot:   filepath.Join(root, "state"),
	}
}

func newTestService(t *testing.T, embed embedclient.Client) (*Service, fslayout.Layout) {
	layout := testLayout(t)
	m := manifest.New(layout.ManifestPath())
	require.NoError(t, m.Load())
	w := curator.NewWriter(layout)
	return New(layout, m, w, embed), layout
}

func writeTranscript(t *testing.T, layout fslayout.Layout, stem string, doc model.TranscriptDocument) {
	t.Helper()
	require.NoError(t, fsutil.WriteJSONAtomic(layout.DoneJSON(stem), doc))
}

func TestLabelSpeakerClearsMarkerAndUpdatesManifest(t *testing.T) {
	ts := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	doc := model.TranscriptDocument{
		Timestamp:      ts,
		PipelineStatus: model.PipelineCompleteNoSpeakerID,
		SpeakerIdentification: model.SpeakerIdentification{
			Unidentified: []string{"SPEAKER_00"},
		},
		Segments:  []model.Segment{{Start: 0, End: 1, Text: "hi", Speaker: "SPEAKER_00"}},
		AudioPath: "clip.wav",
	}

	embed := &fakeEmbedClient{
		labelFn: func(req embedclient.LabelSpeakerRequest) {
			// No-op; replaced below once the transcript is on disk.
		},
	}
	svc, layout := newTestService(t, embed)
	writeTranscript(t, layout, "clip", doc)
	require.NoError(t, os.MkdirAll(filepath.Dir(layout.SyncMarker("clip")), 0o755))
	require.NoError(t, os.WriteFile(layout.SyncMarker("clip"), []byte("{}"), 0o644))

	svc.manifest.Upsert("clip", model.JobEntry{Status: model.StatusPendingCurator})

	// The embed client's side effect (identifying the speaker) is
	// simulated by rewriting the transcript before LabelSpeaker reloads it.
	embed.labelFn = func(req embedclient.LabelSpeakerRequest) {
		updated := doc
		updated.PipelineStatus = model.PipelineComplete
		updated.SpeakerIdentification.Unidentified = nil
		writeTranscript(t, layout, "clip", updated)
	}

	err := svc.LabelSpeaker(context.Background(), "clip", "SPEAKER_00", "Alice")
	require.NoError(t, err)

	assert.False(t, fsutil.Exists(layout.SyncMarker("clip")), "marker must be removed on successful label")

	entry, ok := svc.manifest.Get("clip")
	require.True(t, ok)
	assert.Equal(t, model.StatusComplete, entry.Status)
}

func TestLabelSpeakerRejectsInvalidSpeakerID(t *testing.T) {
	svc, _ := newTestService(t, &fakeEmbedClient{})
	err := svc.LabelSpeaker(context.Background(), "clip", "bad id!", "alice")
	assert.Error(t, err)
}

func TestLabelSpeakerSkipsMarkerRemovalOnFailure(t *testing.T) {
	ts := time.Now()
	doc := model.TranscriptDocument{Timestamp: ts, AudioPath: "clip.wav"}
	embed := &fakeEmbedClient{labelErr: assertErr("boom")}
	svc, layout := newTestService(t, embed)
	writeTranscript(t, layout, "clip", doc)
	require.NoError(t, os.MkdirAll(filepath.Dir(layout.SyncMarker("clip")), 0o755))
	require.NoError(t, os.WriteFile(layout.SyncMarker("clip"), []byte("{}"), 0o644))

	err := svc.LabelSpeaker(context.Background(), "clip", "SPEAKER_00", "alice")
	require.Error(t, err)
	assert.True(t, fsutil.Exists(layout.SyncMarker("clip")), "marker must survive a failed label call")
}

func TestApproveCandidateCreatesProfileAndRetags(t *testing.T) {
	svc, layout := newTestService(t, &fakeEmbedClient{})

	cand := model.SpeakerCandidate{
		SpeakerID:    "spk-123",
		AvgEmbedding: []float64{0.1, 0.2, 0.3},
		Status:       model.CandidatePendingReview,
	}
	require.NoError(t, fsutil.WriteJSONAtomic(layout.CandidatePath("spk-123"), cand))

	doc := model.TranscriptDocument{
		Timestamp: time.Now(),
		AudioPath: "clip.wav",
		SpeakerIdentification: model.SpeakerIdentification{
			Unidentified: []string{"SPEAKER_00"},
			StableIDs:    map[string]string{"SPEAKER_00": "spk-123"},
		},
	}
	writeTranscript(t, layout, "clip", doc)
	require.NoError(t, os.MkdirAll(filepath.Dir(layout.SyncMarker("clip")), 0o755))
	require.NoError(t, os.WriteFile(layout.SyncMarker("clip"), []byte("{}"), 0o644))

	err := svc.ApproveCandidate(context.Background(), "spk-123", "Bob")
	require.NoError(t, err)

	var profile model.SpeakerProfile
	require.NoError(t, fsutil.ReadJSON(layout.ProfilePath("bob"), &profile))
	assert.Equal(t, model.EnrollmentAutomatic, profile.EnrollmentMethod)
	assert.Equal(t, [][]float64{{0.1, 0.2, 0.3}}, profile.Embeddings)

	var reloadedCand model.SpeakerCandidate
	require.NoError(t, fsutil.ReadJSON(layout.CandidatePath("spk-123"), &reloadedCand))
	assert.Equal(t, model.CandidateApproved, reloadedCand.Status)

	assert.False(t, fsutil.Exists(layout.SyncMarker("clip")), "marker referencing the approved candidate must be retagged")
}

func TestMergeCandidatesNewProfileUnweightedMean(t *testing.T) {
	svc, layout := newTestService(t, &fakeEmbedClient{})

	c1 := model.SpeakerCandidate{AvgEmbedding: []float64{1, 0, 0}, Status: model.CandidatePendingReview}
	c2 := model.SpeakerCandidate{AvgEmbedding: []float64{0, 1, 0}, Status: model.CandidatePendingReview}
	require.NoError(t, fsutil.WriteJSONAtomic(layout.CandidatePath("c1"), c1))
	require.NoError(t, fsutil.WriteJSONAtomic(layout.CandidatePath("c2"), c2))

	require.NoError(t, os.MkdirAll(layout.DoneDir(), 0o755))
	require.NoError(t, os.WriteFile(layout.SyncMarker("unrelated"), []byte("{}"), 0o644))
	writeTranscript(t, layout, "unrelated", model.TranscriptDocument{Timestamp: time.Now()})

	err := svc.MergeCandidates(context.Background(), []string{"c1", "c2"}, MergeTarget{Type: "new", Name: "Carol"})
	require.NoError(t, err)

	var profile model.SpeakerProfile
	require.NoError(t, fsutil.ReadJSON(layout.ProfilePath("carol"), &profile))
	require.Len(t, profile.Embeddings, 1)
	merged := profile.Embeddings[0]
	// mean of (1,0,0) and (0,1,0) is (0.5,0.5,0); L2-normalized is
	// (1/sqrt(2), 1/sqrt(2), 0).
	assert.InDelta(t, 0.7071, merged[0], 0.001)
	assert.InDelta(t, 0.7071, merged[1], 0.001)
	assert.InDelta(t, 0, merged[2], 0.001)

	assert.False(t, fsutil.Exists(layout.SyncMarker("unrelated")), "merge must invalidate every marker, not just related ones")
}

func TestMergeCandidatesRejectsMismatchedDimensions(t *testing.T) {
	svc, layout := newTestService(t, &fakeEmbedClient{})
	require.NoError(t, fsutil.WriteJSONAtomic(layout.CandidatePath("c1"), model.SpeakerCandidate{AvgEmbedding: []float64{1, 0}}))
	require.NoError(t, fsutil.WriteJSONAtomic(layout.CandidatePath("c2"), model.SpeakerCandidate{AvgEmbedding: []float64{1, 0, 0}}))

	err := svc.MergeCandidates(context.Background(), []string{"c1", "c2"}, MergeTarget{Type: "new", Name: "x"})
	assert.Error(t, err)
}

func TestRenameProfileRefusesCollision(t *testing.T) {
	svc, layout := newTestService(t, &fakeEmbedClient{})
	require.NoError(t, fsutil.WriteJSONAtomic(layout.ProfilePath("alice"), model.SpeakerProfile{Name: "alice"}))
	require.NoError(t, fsutil.WriteJSONAtomic(layout.ProfilePath("bob"), model.SpeakerProfile{Name: "bob"}))

	err := svc.RenameProfile(context.Background(), "alice", "bob")
	assert.Error(t, err)
}

func TestRenameProfileMovesContent(t *testing.T) {
	svc, layout := newTestService(t, &fakeEmbedClient{})
	require.NoError(t, fsutil.WriteJSONAtomic(layout.ProfilePath("alice"), model.SpeakerProfile{Name: "alice", NumSamples: 3}))

	require.NoError(t, svc.RenameProfile(context.Background(), "alice", "alicia"))

	assert.False(t, fsutil.Exists(layout.ProfilePath("alice")))
	var renamed model.SpeakerProfile
	require.NoError(t, fsutil.ReadJSON(layout.ProfilePath("alicia"), &renamed))
	assert.Equal(t, "alicia", renamed.Name)
	assert.Equal(t, 3, renamed.NumSamples)
}

func TestDeleteProfileLeavesTranscriptsUnmutated(t *testing.T) {
	svc, layout := newTestService(t, &fakeEmbedClient{})
	require.NoError(t, fsutil.WriteJSONAtomic(layout.ProfilePath("alice"), model.SpeakerProfile{Name: "alice"}))

	require.NoError(t, svc.DeleteProfile(context.Background(), "alice"))
	assert.False(t, fsutil.Exists(layout.ProfilePath("alice")))
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
