// Package api exposes the operator action surface (spec §6) over HTTP:
// job/transcript listing, speaker labeling, candidate review, profile
// management, and watch-folder pause/resume. No authentication middleware
// is installed — auth is an explicit Non-goal for this module.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"voicekeep/internal/curator"
	"voicekeep/internal/fslayout"
	"voicekeep/internal/index"
	"voicekeep/internal/manifest"
	"voicekeep/internal/speaker"
	"voicekeep/internal/watchfolder"
)

// Handler holds every dependency the route handlers need.
type Handler struct {
	layout   fslayout.Layout
	manifest *manifest.Store
	index    *index.Index
	writer   *curator.Writer
	speaker  *speaker.Service
	ingester *watchfolder.Ingester
}

// NewHandler builds a Handler.
func NewHandler(layout fslayout.Layout, m *manifest.Store, ix *index.Index, w *curator.Writer, svc *speaker.Service, in *watchfolder.Ingester) *Handler {
	return &Handler{layout: layout, manifest: m, index: ix, writer: w, speaker: svc, ingester: in}
}

// HealthCheck reports process liveness.
// @Summary Health check
// @Description Reports that the daemon is running
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
