package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PauseWatchfolder pauses the watch-folder ingester ahead of its next scan.
// @Summary Pause the watch-folder ingester
// @Tags watchfolder
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/watchfolder/pause [post]
func (h *Handler) PauseWatchfolder(c *gin.Context) {
	if err := h.ingester.Pause(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "paused"})
}

// ResumeWatchfolder resumes the watch-folder ingester.
// @Summary Resume the watch-folder ingester
// @Tags watchfolder
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/watchfolder/resume [post]
func (h *Handler) ResumeWatchfolder(c *gin.Context) {
	if err := h.ingester.Resume(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "active"})
}
