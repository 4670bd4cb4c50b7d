package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"voicekeep/internal/fsutil"
	"voicekeep/internal/gate"
	"voicekeep/internal/index"
	"voicekeep/internal/model"
)

// ListTranscripts lists curator transcripts via the index, filterable by
// speaker name and pending state.
// @Summary List transcripts
// @Description Lists transcripts from the curator index, with optional speaker and pending filters
// @Tags transcripts
// @Produce json
// @Param speaker query string false "Filter by speaker name"
// @Param pending query bool false "Filter by pending state"
// @Param limit query int false "Maximum number of results"
// @Success 200 {array} index.IndexRecord
// @Failure 500 {object} map[string]string
// @Router /api/v1/transcripts [get]
func (h *Handler) ListTranscripts(c *gin.Context) {
	q := index.SearchQuery{Speaker: c.Query("speaker")}
	if v := c.Query("pending"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pending value"})
			return
		}
		q.Pending = &b
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit value"})
			return
		}
		q.Limit = n
	}

	records, err := h.index.Search(q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to search transcripts"})
		return
	}
	c.JSON(http.StatusOK, records)
}

// GetTranscript returns the full done/<stem>.json document for one stem.
// @Summary Get a transcript
// @Description Reads the underlying transcript document for a stem
// @Tags transcripts
// @Produce json
// @Param stem path string true "Audio stem"
// @Success 200 {object} model.TranscriptDocument
// @Failure 404 {object} map[string]string
// @Router /api/v1/transcripts/{stem} [get]
func (h *Handler) GetTranscript(c *gin.Context) {
	stem := c.Param("stem")
	var doc model.TranscriptDocument
	if err := fsutil.ReadJSON(h.layout.DoneJSON(stem), &doc); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "transcript not found"})
		return
	}
	c.JSON(http.StatusOK, doc)
}

// SegmentEditRequest is the body for PatchSegment.
type SegmentEditRequest struct {
	Text string `json:"text" binding:"required"`
}

// PatchSegment edits one segment's text in place. If the gate already
// admits the transcript, the curator copy is rewritten immediately so the
// edit doesn't wait for the Orchestrator's next cycle.
// @Summary Edit a transcript segment
// @Description Updates the text of one utterance within a transcript
// @Tags transcripts
// @Accept json
// @Produce json
// @Param stem path string true "Audio stem"
// @Param i path int true "Segment index"
// @Param request body SegmentEditRequest true "New segment text"
// @Success 200 {object} model.TranscriptDocument
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/transcripts/{stem}/segments/{i} [patch]
func (h *Handler) PatchSegment(c *gin.Context) {
	stem := c.Param("stem")
	idx, err := strconv.Atoi(c.Param("i"))
	if err != nil || idx < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid segment index"})
		return
	}

	var req SegmentEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	donePath := h.layout.DoneJSON(stem)
	var doc model.TranscriptDocument
	if err := fsutil.ReadJSON(donePath, &doc); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "transcript not found"})
		return
	}
	if idx >= len(doc.Segments) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "segment index out of range"})
		return
	}

	doc.Segments[idx].Text = req.Text
	if err := fsutil.WriteJSONAtomic(donePath, doc); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save transcript"})
		return
	}

	if gate.Admit(&doc) {
		if _, err := h.writer.Write(c.Request.Context(), stem, &doc); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "edit saved but curator resync failed: " + err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, doc)
}
