// Package speaker implements the Speaker Identity Service (spec §4.5):
// the operator-facing actions that name speakers, approve or reject
// candidate voice clusters, merge candidates into profiles, and rename or
// delete profiles. Every action mutates the filesystem in ways the
// Orchestrator observes and reacts to on its next cycle; this service
// never writes the manifest's curator_synced state directly, it only
// removes sync markers to force re-evaluation.
package speaker

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"voicekeep/internal/curator"
	"voicekeep/internal/embedclient"
	"voicekeep/internal/fslayout"
	"voicekeep/internal/fsutil"
	"voicekeep/internal/gate"
	"voicekeep/internal/manifest"
	"voicekeep/internal/model"
	"voicekeep/pkg/logger"
)

// retagFanout bounds concurrent marker inspection during the retroactive
// re-tag scan (spec §4.5.2) and the broad-invalidation sweep (§4.5.4) —
// both one-shot administrative operations, not part of the Orchestrator's
// single-threaded loop (spec §5).
const retagFanout = 8

// MergeTarget describes where a candidate merge's resulting embedding
// should land (spec §4.5.4).
type MergeTarget struct {
	// Type is "new" or "existing".
	Type string
	// Name is the profile name to create, when Type == "new".
	Name string
	// ProfileName is the existing profile to append to, when
	// Type == "existing".
	ProfileName string
}

// Service is the Speaker Identity Service.
type Service struct {
	layout   fslayout.Layout
	manifest *manifest.Store
	writer   *curator.Writer
	embed    embedclient.Client
	locks    *keyedMutex
}

// New builds a Service.
func New(layout fslayout.Layout, m *manifest.Store, w *curator.Writer, embed embedclient.Client) *Service {
	return &Service{layout: layout, manifest: m, writer: w, embed: embed, locks: newKeyedMutex()}
}

// LabelSpeaker names one speaker slot within a transcript (spec §4.5.1).
func (s *Service) LabelSpeaker(ctx context.Context, transcriptID, speakerID, name string) error {
	if err := ValidateSpeakerID(speakerID); err != nil {
		return err
	}
	lowered, err := ValidateName(name)
	if err != nil {
		return err
	}

	unlock := s.locks.lock("transcript:" + transcriptID)
	defer unlock()

	donePath := s.layout.DoneJSON(transcriptID)
	var doc model.TranscriptDocument
	if err := fsutil.ReadJSON(donePath, &doc); err != nil {
		return fmt.Errorf("speaker: read transcript %s: %w", transcriptID, err)
	}

	// Locating the curator copy establishes that this transcript has a
	// curator-side representation at all; the document itself is not
	// rewritten here, only by the Orchestrator's next admission phase.
	s.writer.Locate(doc.Timestamp, transcriptID)

	_, err = s.embed.LabelSpeaker(ctx, embedclient.LabelSpeakerRequest{
		TranscriptFile: transcriptID,
		SpeakerID:      speakerID,
		Name:           lowered,
	})
	if err != nil {
		// Marker removal is skipped on failure so the gate re-opens only
		// on real identification (spec §4.5.1).
		return fmt.Errorf("speaker: label speaker via embedding service: %w", err)
	}

	var reloaded model.TranscriptDocument
	if err := fsutil.ReadJSON(donePath, &reloaded); err != nil {
		return fmt.Errorf("speaker: reload transcript %s after labeling: %w", transcriptID, err)
	}

	markerPath := s.layout.SyncMarker(transcriptID)
	if fsutil.Exists(markerPath) {
		if err := os.Remove(markerPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("speaker: remove sync marker for %s: %w", transcriptID, err)
		}
	}

	newStatus := manifest.DeriveStatus(&reloaded)
	if gate.Admit(&reloaded) {
		newStatus = model.StatusComplete
	} else if newStatus == model.StatusComplete {
		newStatus = model.StatusPendingCurator
	}

	if entry, ok := s.manifest.Get(transcriptID); ok {
		entry.Status = newStatus
		entry.SpeakerIdentification = reloaded.SpeakerIdentification
		s.manifest.Upsert(transcriptID, entry)
		if err := s.manifest.Save(); err != nil {
			return fmt.Errorf("speaker: save manifest after labeling %s: %w", transcriptID, err)
		}
	}

	logger.SpeakerAction("label", transcriptID, "speaker_id", speakerID, "name", lowered)
	return nil
}

// ApproveCandidate promotes a pending speaker candidate into a named
// profile and retroactively re-tags any synced transcript that referenced
// it via stable_ids (spec §4.5.2).
func (s *Service) ApproveCandidate(ctx context.Context, candidateID, name string) error {
	lowered, err := ValidateName(name)
	if err != nil {
		return err
	}

	unlock := s.locks.lock("candidate:" + candidateID)
	defer unlock()

	candPath := s.layout.CandidatePath(candidateID)
	var cand model.SpeakerCandidate
	if err := fsutil.ReadJSON(candPath, &cand); err != nil {
		return fmt.Errorf("speaker: read candidate %s: %w", candidateID, err)
	}
	if cand.Status != model.CandidatePendingReview {
		return fmt.Errorf("speaker: candidate %s is not pending review (status=%s)", candidateID, cand.Status)
	}

	profileUnlock := s.locks.lock("profile:" + lowered)
	profilePath := s.layout.ProfilePath(lowered)
	if fsutil.Exists(profilePath) {
		profileUnlock()
		return fmt.Errorf("speaker: profile %q already exists", lowered)
	}

	profile := model.SpeakerProfile{
		Name:             lowered,
		EnrolledAt:       time.Now(),
		EnrollmentMethod: model.EnrollmentAutomatic,
		NumSamples:       1,
		Embeddings:       [][]float64{cand.AvgEmbedding},
		Threshold:        model.DefaultProfileThreshold,
		Metadata:         model.ProfileMetadata{SourceCandidateIDs: []string{candidateID}},
	}
	werr := fsutil.WriteJSONAtomic(profilePath, profile)
	profileUnlock()
	if werr != nil {
		return fmt.Errorf("speaker: write profile %q: %w", lowered, werr)
	}

	cand.Status = model.CandidateApproved
	if err := fsutil.WriteJSONAtomic(candPath, cand); err != nil {
		return fmt.Errorf("speaker: mark candidate %s approved: %w", candidateID, err)
	}

	if err := s.retagMarkersForCandidate(ctx, candidateID); err != nil {
		return fmt.Errorf("speaker: retroactive re-tag after approving %s: %w", candidateID, err)
	}

	logger.SpeakerAction("approve_candidate", candidateID, "profile", lowered)
	return nil
}

// RejectCandidate marks a candidate as rejected (spec §4.5.3).
func (s *Service) RejectCandidate(ctx context.Context, candidateID string) error {
	unlock := s.locks.lock("candidate:" + candidateID)
	defer unlock()

	candPath := s.layout.CandidatePath(candidateID)
	var cand model.SpeakerCandidate
	if err := fsutil.ReadJSON(candPath, &cand); err != nil {
		return fmt.Errorf("speaker: read candidate %s: %w", candidateID, err)
	}

	now := time.Now()
	cand.Status = model.CandidateRejected
	cand.RejectedAt = &now
	if err := fsutil.WriteJSONAtomic(candPath, cand); err != nil {
		return fmt.Errorf("speaker: mark candidate %s rejected: %w", candidateID, err)
	}
	logger.SpeakerAction("reject_candidate", candidateID)
	return nil
}

// MergeCandidates combines two or more candidates' embeddings into either a
// new or an existing profile by unweighted arithmetic mean followed by
// L2-normalization, then invalidates every sync marker so the Orchestrator
// re-evaluates the full corpus (spec §4.5.4).
func (s *Service) MergeCandidates(ctx context.Context, candidateIDs []string, target MergeTarget) error {
	if len(candidateIDs) < 2 {
		return fmt.Errorf("speaker: merge requires at least 2 candidates, got %d", len(candidateIDs))
	}

	candidates := make([]model.SpeakerCandidate, 0, len(candidateIDs))
	var dim int
	for i, id := range candidateIDs {
		var cand model.SpeakerCandidate
		if err := fsutil.ReadJSON(s.layout.CandidatePath(id), &cand); err != nil {
			return fmt.Errorf("speaker: read candidate %s: %w", id, err)
		}
		if i == 0 {
			dim = len(cand.AvgEmbedding)
		} else if len(cand.AvgEmbedding) != dim {
			return fmt.Errorf("speaker: candidate %s has embedding length %d, expected %d", id, len(cand.AvgEmbedding), dim)
		}
		candidates = append(candidates, cand)
	}

	merged, err := arithmeticMeanL2Normalize(candidates)
	if err != nil {
		return fmt.Errorf("speaker: merge embeddings: %w", err)
	}

	switch target.Type {
	case "existing":
		lowered, err := ValidateName(target.ProfileName)
		if err != nil {
			return err
		}
		unlock := s.locks.lock("profile:" + lowered)
		defer unlock()

		profilePath := s.layout.ProfilePath(lowered)
		var profile model.SpeakerProfile
		if err := fsutil.ReadJSON(profilePath, &profile); err != nil {
			return fmt.Errorf("speaker: read target profile %q: %w", lowered, err)
		}
		profile.Embeddings = append(profile.Embeddings, merged)
		profile.NumSamples += len(candidateIDs)
		if err := fsutil.WriteJSONAtomic(profilePath, profile); err != nil {
			return fmt.Errorf("speaker: write target profile %q: %w", lowered, err)
		}
	case "new":
		lowered, err := ValidateName(target.Name)
		if err != nil {
			return err
		}
		unlock := s.locks.lock("profile:" + lowered)
		defer unlock()

		profilePath := s.layout.ProfilePath(lowered)
		if fsutil.Exists(profilePath) {
			return fmt.Errorf("speaker: profile %q already exists", lowered)
		}
		profile := model.SpeakerProfile{
			Name:             lowered,
			EnrolledAt:       time.Now(),
			EnrollmentMethod: model.EnrollmentMerged,
			NumSamples:       len(candidateIDs),
			Embeddings:       [][]float64{merged},
			Threshold:        model.DefaultProfileThreshold,
			Metadata:         model.ProfileMetadata{SourceCandidateIDs: append([]string{}, candidateIDs...)},
		}
		if err := fsutil.WriteJSONAtomic(profilePath, profile); err != nil {
			return fmt.Errorf("speaker: write merged profile %q: %w", lowered, err)
		}
	default:
		return fmt.Errorf("speaker: unknown merge target type %q", target.Type)
	}

	now := time.Now()
	mergedInto := target.Name
	if target.Type == "existing" {
		mergedInto = target.ProfileName
	}
	for i, id := range candidateIDs {
		unlock := s.locks.lock("candidate:" + id)
		c := candidates[i]
		c.Status = model.CandidateMerged
		c.MergedAt = &now
		c.MergedInto = &mergedInto
		werr := fsutil.WriteJSONAtomic(s.layout.CandidatePath(id), c)
		unlock()
		if werr != nil {
			return fmt.Errorf("speaker: mark candidate %s merged: %w", id, werr)
		}
	}

	if err := s.invalidateAllMarkers(ctx); err != nil {
		return fmt.Errorf("speaker: invalidate sync markers after merge: %w", err)
	}

	logger.SpeakerAction("merge_candidates", mergedInto, "candidates", candidateIDs)
	return nil
}

// RenameProfile atomically renames a profile, refusing name collisions
// (spec §4.5.5).
func (s *Service) RenameProfile(ctx context.Context, oldName, newName string) error {
	oldLowered, err := ValidateName(oldName)
	if err != nil {
		return err
	}
	newLowered, err := ValidateName(newName)
	if err != nil {
		return err
	}
	if oldLowered == newLowered {
		return nil
	}

	unlockOld := s.locks.lock("profile:" + oldLowered)
	defer unlockOld()
	unlockNew := s.locks.lock("profile:" + newLowered)
	defer unlockNew()

	oldPath := s.layout.ProfilePath(oldLowered)
	newPath := s.layout.ProfilePath(newLowered)

	var profile model.SpeakerProfile
	if err := fsutil.ReadJSON(oldPath, &profile); err != nil {
		return fmt.Errorf("speaker: read profile %q: %w", oldLowered, err)
	}
	if fsutil.Exists(newPath) {
		return fmt.Errorf("speaker: profile %q already exists", newLowered)
	}

	profile.Name = newLowered
	if err := fsutil.WriteJSONAtomic(newPath, profile); err != nil {
		return fmt.Errorf("speaker: write renamed profile %q: %w", newLowered, err)
	}
	if err := os.Remove(oldPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("speaker: remove old profile %q: %w", oldLowered, err)
	}

	logger.SpeakerAction("rename_profile", newLowered, "old", oldLowered)
	return nil
}

// DeleteProfile removes a profile file. Transcripts currently tagged with
// this name are left unmutated — they simply refer to a name no profile
// backs (spec §4.5.5).
func (s *Service) DeleteProfile(ctx context.Context, name string) error {
	lowered, err := ValidateName(name)
	if err != nil {
		return err
	}

	unlock := s.locks.lock("profile:" + lowered)
	defer unlock()

	path := s.layout.ProfilePath(lowered)
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("speaker: delete profile %q: %w", lowered, err)
	}
	logger.SpeakerAction("delete_profile", lowered)
	return nil
}

// retagMarkersForCandidate scans every done/*.json.synced marker and
// deletes the ones whose transcript's stable_ids map an unidentified
// speaker to candidateID, forcing the Orchestrator to re-evaluate them
// (spec §4.5.2).
func (s *Service) retagMarkersForCandidate(ctx context.Context, candidateID string) error {
	return s.scanMarkers(ctx, func(doc *model.TranscriptDocument) bool {
		for _, unidentified := range doc.SpeakerIdentification.Unidentified {
			if doc.SpeakerIdentification.StableIDs[unidentified] == candidateID {
				return true
			}
		}
		return false
	})
}

// invalidateAllMarkers deletes every sync marker unconditionally (spec
// §4.5.4's broad invalidation).
func (s *Service) invalidateAllMarkers(ctx context.Context) error {
	return s.scanMarkers(ctx, func(*model.TranscriptDocument) bool { return true })
}

// scanMarkers fans out over every done/*.json.synced marker with bounded
// concurrency and deletes the ones for which shouldDelete returns true.
// This is a one-shot administrative sweep, not part of the Orchestrator's
// cooperative loop, so bounded parallel fan-out is appropriate here (spec
// §5).
func (s *Service) scanMarkers(ctx context.Context, shouldDelete func(*model.TranscriptDocument) bool) error {
	entries, err := os.ReadDir(s.layout.DoneDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("list %s: %w", s.layout.DoneDir(), err)
	}

	var stems []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json.synced") {
			continue
		}
		stems = append(stems, strings.TrimSuffix(e.Name(), ".json.synced"))
	}

	sem := make(chan struct{}, retagFanout)
	g, gctx := errgroup.WithContext(ctx)
	for _, stem := range stems {
		stem := stem
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			var doc model.TranscriptDocument
			if err := fsutil.ReadJSON(s.layout.DoneJSON(stem), &doc); err != nil {
				logger.Warn("speaker: skipping unreadable transcript during marker scan", "stem", stem, "error", err)
				return nil
			}
			if !shouldDelete(&doc) {
				return nil
			}
			marker := s.layout.SyncMarker(stem)
			if err := os.Remove(marker); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("remove marker %s: %w", marker, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// arithmeticMeanL2Normalize computes the unweighted arithmetic mean of
// every candidate's avg_embedding and L2-normalizes the result, per
// spec §4.5.4 (deliberately not the recency-weighted update some
// embedding stores use for streaming enrollment).
func arithmeticMeanL2Normalize(candidates []model.SpeakerCandidate) ([]float64, error) {
	dim := len(candidates[0].AvgEmbedding)
	sum := make([]float64, dim)
	for _, c := range candidates {
		for i, v := range c.AvgEmbedding {
			sum[i] += v
		}
	}
	mean := make([]float64, dim)
	for i := range sum {
		mean[i] = sum[i] / float64(len(candidates))
	}

	var normSq float64
	for _, v := range mean {
		normSq += v * v
	}
	norm := math.Sqrt(normSq)
	if norm == 0 {
		return nil, fmt.Errorf("merged embedding has zero norm")
	}
	for i := range mean {
		mean[i] /= norm
	}
	return mean, nil
}
