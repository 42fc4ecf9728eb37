package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"sitegen/internal/api/middleware"
	"sitegen/internal/auth"
	"sitegen/internal/database"
	"sitegen/internal/generation"
)

// Deps 汇总路由所需的依赖。Objects、Scanner、UserDeleter、Redis 可为空。
type Deps struct {
	Store          *database.Store
	Pipeline       *generation.Pipeline
	Verifier       auth.Verifier
	UserDeleter    UserDeleter
	Redis          redis.UniversalClient
	Objects        ObjectStore
	Scanner        ContentScanner
	Logger         *slog.Logger
	AllowedOrigins []string
	DefaultCredits int
	RateLimit      int
}

// RegisterRoutes 注册 /api 下的全部业务路由。
func RegisterRoutes(router *gin.Engine, deps Deps) {
	authMiddleware := middleware.AuthMiddleware(deps.Verifier)
	activeAccount := middleware.RequireActiveAccountMiddleware(deps.Store)
	adminOnly := middleware.RequireAdminMiddleware(deps.Store)

	profileHandler := NewProfileHandler(deps.Store, deps.DefaultCredits, deps.Logger)
	aiHandler := NewAIHandler(deps.Pipeline, deps.Redis, deps.RateLimit, deps.Logger)
	projectHandler := NewProjectHandler(deps.Store, deps.Objects, deps.Scanner, deps.Logger)
	communityHandler := NewCommunityHandler(deps.Store, deps.Objects, deps.Logger)
	adminHandler := NewAdminHandler(deps.Store, deps.UserDeleter, deps.Objects, deps.Scanner, deps.Logger)

	apiGroup := router.Group("/api")
	{
		if deps.Redis != nil {
			wsHandler := NewWsHandler(deps.Redis, deps.Verifier, deps.Logger, deps.AllowedOrigins)
			apiGroup.GET("/ws", wsHandler.HandleConnection)
		}

		authGroup := apiGroup.Group("/auth")
		authGroup.Use(authMiddleware)
		{
			authGroup.GET("/profile", profileHandler.GetProfile)
			authGroup.PUT("/profile", profileHandler.SyncProfile)
		}

		aiGroup := apiGroup.Group("/ai")
		aiGroup.Use(authMiddleware, activeAccount)
		{
			aiGroup.POST("/generate/:projectId", aiHandler.Generate)
			aiGroup.POST("/edit/:projectId", aiHandler.Edit)
		}

		projectGroup := apiGroup.Group("/projects")
		projectGroup.Use(authMiddleware, activeAccount)
		{
			projectGroup.POST("", projectHandler.CreateProject)
			projectGroup.GET("", projectHandler.ListProjects)
			projectGroup.GET("/:id", projectHandler.GetProject)
			projectGroup.PATCH("/:id", projectHandler.UpdateProject)
			projectGroup.DELETE("/:id", projectHandler.DeleteProject)
			projectGroup.GET("/:id/versions", projectHandler.ListVersions)
			projectGroup.POST("/:id/versions", projectHandler.SaveVersion)
			projectGroup.POST("/:id/versions/:versionId/restore", projectHandler.RestoreVersion)
		}

		communityGroup := apiGroup.Group("/community")
		{
			communityGroup.GET("", communityHandler.ListProjects)
			communityGroup.GET("/:id", communityHandler.GetProject)
		}

		adminGroup := apiGroup.Group("/admin")
		adminGroup.Use(authMiddleware, adminOnly)
		{
			adminGroup.GET("/stats", adminHandler.Stats)
			adminGroup.GET("/users", adminHandler.ListUsers)
			adminGroup.PATCH("/users/:id/credits", adminHandler.SetCredits)
			adminGroup.PATCH("/users/:id/ban", adminHandler.SetBan)
			adminGroup.DELETE("/users/:id", adminHandler.DeleteUser)
			adminGroup.GET("/projects", adminHandler.ListProjects)
			adminGroup.PATCH("/projects/:id/publish", adminHandler.SetPublish)
			adminGroup.DELETE("/projects/:id", adminHandler.DeleteProject)
			adminGroup.GET("/logs", adminHandler.ListLogs)
		}
	}
}
