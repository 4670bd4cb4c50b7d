package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"voicekeep/internal/speaker"
)

// LabelSpeakerRequest is the body for LabelSpeaker.
type LabelSpeakerRequest struct {
	TranscriptID string `json:"transcript_id" binding:"required"`
	SpeakerID    string `json:"speaker_id" binding:"required"`
	Name         string `json:"name" binding:"required"`
}

// LabelSpeaker names one speaker slot within a transcript.
// @Summary Label a speaker
// @Description Assigns a name to a speaker slot within a transcript
// @Tags speakers
// @Accept json
// @Produce json
// @Param request body LabelSpeakerRequest true "Label request"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /api/v1/speakers/label [post]
func (h *Handler) LabelSpeaker(c *gin.Context) {
	var req LabelSpeakerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if err := h.speaker.LabelSpeaker(c.Request.Context(), req.TranscriptID, req.SpeakerID, req.Name); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "labeled"})
}

// ApproveCandidateRequest is the body for ApproveCandidate.
type ApproveCandidateRequest struct {
	Name string `json:"name" binding:"required"`
}

// ApproveCandidate promotes a speaker candidate to a named profile.
// @Summary Approve a speaker candidate
// @Description Creates a profile from a pending candidate and retroactively re-tags affected transcripts
// @Tags candidates
// @Accept json
// @Produce json
// @Param id path string true "Candidate ID"
// @Param request body ApproveCandidateRequest true "Profile name"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /api/v1/candidates/{id}/approve [post]
func (h *Handler) ApproveCandidate(c *gin.Context) {
	id := c.Param("id")
	var req ApproveCandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if err := h.speaker.ApproveCandidate(c.Request.Context(), id, req.Name); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "approved"})
}

// RejectCandidate marks a candidate as rejected.
// @Summary Reject a speaker candidate
// @Tags candidates
// @Produce json
// @Param id path string true "Candidate ID"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /api/v1/candidates/{id}/reject [post]
func (h *Handler) RejectCandidate(c *gin.Context) {
	id := c.Param("id")
	if err := h.speaker.RejectCandidate(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rejected"})
}

// MergeCandidatesRequest is the body for MergeCandidates.
type MergeCandidatesRequest struct {
	CandidateIDs []string `json:"candidate_ids" binding:"required"`
	Target       struct {
		Type        string `json:"type" binding:"required"`
		Name        string `json:"name"`
		ProfileName string `json:"profile_name"`
	} `json:"target" binding:"required"`
}

// MergeCandidates merges two or more candidates into a profile.
// @Summary Merge speaker candidates
// @Description Computes an unweighted arithmetic mean of the candidates' embeddings and merges into a new or existing profile
// @Tags candidates
// @Accept json
// @Produce json
// @Param request body MergeCandidatesRequest true "Merge request"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /api/v1/candidates/merge [post]
func (h *Handler) MergeCandidates(c *gin.Context) {
	var req MergeCandidatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	target := speaker.MergeTarget{
		Type:        req.Target.Type,
		Name:        req.Target.Name,
		ProfileName: req.Target.ProfileName,
	}
	if err := h.speaker.MergeCandidates(c.Request.Context(), req.CandidateIDs, target); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "merged"})
}

// RenameProfileRequest is the body for RenameProfile.
type RenameProfileRequest struct {
	NewName string `json:"new_name" binding:"required"`
}

// RenameProfile renames a speaker profile.
// @Summary Rename a speaker profile
// @Tags profiles
// @Accept json
// @Produce json
// @Param name path string true "Current profile name"
// @Param request body RenameProfileRequest true "New name"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /api/v1/profiles/{name}/rename [post]
func (h *Handler) RenameProfile(c *gin.Context) {
	name := c.Param("name")
	var req RenameProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if err := h.speaker.RenameProfile(c.Request.Context(), name, req.NewName); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "renamed"})
}

// DeleteProfile deletes a speaker profile.
// @Summary Delete a speaker profile
// @Description Removes a profile; transcripts already tagged with its name are left unmutated
// @Tags profiles
// @Produce json
// @Param name path string true "Profile name"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /api/v1/profiles/{name} [delete]
func (h *Handler) DeleteProfile(c *gin.Context) {
	name := c.Param("name")
	if err := h.speaker.DeleteProfile(c.Request.Context(), name); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
