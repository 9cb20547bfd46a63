package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/polarad/portal/internal/handlers"
	"github.com/polarad/portal/internal/middleware"
	"github.com/polarad/portal/internal/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter() *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     types.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(middleware.MetricsMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)

		auth := api.Group("/auth")
		{
			auth.POST("/signup", handlers.Signup)
			auth.POST("/login", handlers.Login)
			auth.POST("/logout", handlers.Logout)
			auth.GET("/me", middleware.AuthMiddleware(), handlers.Me)
		}

		authed := api.Group("", middleware.AuthMiddleware())
		{
			authed.GET("/user/profile", handlers.Profile)

			authed.GET("/dashboard", handlers.GetDashboard)
			authed.GET("/analytics", handlers.GetAnalytics)

			authed.GET("/submissions", handlers.GetSubmission)
			authed.PUT("/submissions", handlers.SaveSubmission)
			authed.POST("/submissions/edit-mode", handlers.EnableEditMode)

			authed.POST("/upload", handlers.UploadFile)

			authed.GET("/workflows", handlers.ListWorkflows)
			authed.GET("/workflows/:id", handlers.GetWorkflow)
			authed.PATCH("/workflows/:id", handlers.UpdateWorkflow)

			authed.GET("/designs", handlers.ListDesigns)
			authed.GET("/designs/:id", handlers.GetDesign)
			authed.POST("/designs/:id/actions", handlers.DesignAction)

			authed.GET("/packages", handlers.ListPackages)

			authed.GET("/contracts", handlers.ListContracts)
			authed.POST("/contracts", handlers.CreateContract)
			authed.GET("/contracts/:id", handlers.GetContract)
			authed.PATCH("/contracts/:id/sign", handlers.SignContract)
			authed.GET("/contracts/:id/pdf", handlers.DownloadContractPDF)

			authed.GET("/communications", handlers.ListThreads)
			authed.POST("/communications", handlers.CreateThread)
			authed.GET("/communications/:id", handlers.GetThread)
			authed.POST("/communications/:id/messages", handlers.CreateMessage)
		}
	}

	return r
}
