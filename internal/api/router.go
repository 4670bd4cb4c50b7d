package api

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"voicekeep/pkg/logger"
	"voicekeep/pkg/middleware"
)

// SetupRoutes builds the gin engine and registers every route in the
// operator action surface (spec §6). No auth middleware is installed —
// authentication is an explicit Non-goal for this module.
func SetupRoutes(handler *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	logger.SetGinOutput()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(logger.GinLogger())
	router.Use(middleware.Compression())

	router.GET("/health", handler.HealthCheck)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/jobs", handler.ListJobs)

		v1.GET("/transcripts", handler.ListTranscripts)
		v1.GET("/transcripts/:stem", handler.GetTranscript)
		v1.PATCH("/transcripts/:stem/segments/:i", handler.PatchSegment)

		v1.POST("/speakers/label", handler.LabelSpeaker)

		candidates := v1.Group("/candidates")
		{
			candidates.POST("/:id/approve", handler.ApproveCandidate)
			candidates.POST("/:id/reject", handler.RejectCandidate)
			candidates.POST("/merge", handler.MergeCandidates)
		}

		profiles := v1.Group("/profiles")
		{
			profiles.POST("/:name/rename", handler.RenameProfile)
			profiles.DELETE("/:name", handler.DeleteProfile)
		}

		watchfolder := v1.Group("/watchfolder")
		{
			watchfolder.POST("/pause", handler.PauseWatchfolder)
			watchfolder.POST("/resume", handler.ResumeWatchfolder)
		}
	}

	return router
}
