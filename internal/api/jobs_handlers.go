package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"voicekeep/internal/model"
)

// JobResponse is the wire shape for one manifest entry.
type JobResponse struct {
	Stem string `json:"stem"`
	model.JobEntry
}

// ListJobs returns the entire job manifest.
// @Summary List jobs
// @Description Returns every entry currently tracked by the job manifest
// @Tags jobs
// @Produce json
// @Success 200 {array} JobResponse
// @Router /api/v1/jobs [get]
func (h *Handler) ListJobs(c *gin.Context) {
	all := h.manifest.GetAll()
	out := make([]JobResponse, 0, len(all))
	for stem, entry := range all {
		out = append(out, JobResponse{Stem: stem, JobEntry: entry})
	}
	c.JSON(http.StatusOK, out)
}
