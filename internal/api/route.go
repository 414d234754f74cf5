package api

import (
	"Postpilot/internal/api/middleware"
	"Postpilot/internal/pkg/logger"
	"Postpilot/internal/pkg/security"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRouter(group *HandlersGroup) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AuditMiddleware("/api/ping", "/metrics"))
	r.Use(middleware.CORSMiddleware())
	logger.SetupGin(r)

	r.GET("/metrics", group.Metrics.Handler())

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"code":    200,
				"message": "pong",
				"data":    nil,
			})
		})

		authGroup := apiGroup.Group("")
		authGroup.Use(middleware.AuthMiddleware(group.Verifier, group.Revoked))
		{
			postGroup := authGroup.Group("/posts")
			{
				postGroup.GET("", group.PostHandler.ListPosts)
				postGroup.GET("/:post_id", group.PostHandler.GetPost)
				postGroup.GET("/:post_id/events", group.PostHandler.ListEvents)
				postGroup.POST("/:post_id/cancel", group.PostHandler.CancelPost)
				postGroup.POST("/:post_id/publish", group.PostHandler.PublishPost)
				postGroup.POST("/:post_id/retry", group.PostHandler.RetryPost)
			}

			draftGroup := authGroup.Group("/drafts")
			{
				draftGroup.GET("", group.DraftHandler.ListDrafts)
				draftGroup.POST("/:draft_id/approve", group.DraftHandler.Approve)
				draftGroup.POST("/:draft_id/reject", group.DraftHandler.Reject)
			}

			authGroup.POST("/tweets/generate", group.GenerationHandler.Generate)
			authGroup.GET("/usage", group.UsageHandler.Current)

			// login & ADMIN role
			cronGroup := authGroup.Group("/cron")
			cronGroup.Use(middleware.CheckRoles(security.RoleAdmin))
			{
				cronGroup.GET("/generator", group.JobHandler.Status)
				cronGroup.POST("/generator", group.JobHandler.Control)
			}
		}
	}

	return r
}
