package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"sitegen/internal/api/middleware"
	"sitegen/internal/database"
)

const (
	adminUsersDefaultLimit    = 20
	adminProjectsDefaultLimit = 20
	adminLogsDefaultLimit     = 50
	adminMaxLimit             = 100
)

// UserDeleter removes an identity from the hosted auth service.
type UserDeleter interface {
	DeleteUser(ctx context.Context, userID string) error
}

// AdminHandler 提供后台统计与用户/项目/日志管理。
type AdminHandler struct {
	store   *database.Store
	users   UserDeleter
	objects ObjectStore
	scanner ContentScanner
	logger  *slog.Logger
}

// NewAdminHandler 构造 AdminHandler。users、objects、scanner 均可为空。
func NewAdminHandler(store *database.Store, users UserDeleter, objects ObjectStore, scanner ContentScanner, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{store: store, users: users, objects: objects, scanner: scanner, logger: logger}
}

type setCreditsRequest struct {
	Credits *int `json:"credits" binding:"required,min=0"`
}

type setBanRequest struct {
	Ban *bool `json:"ban" binding:"required"`
}

type setPublishRequest struct {
	IsPublic *bool `json:"is_public" binding:"required"`
}

func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context())
	if err != nil {
		h.log(c).Error("collect stats", slog.Any("error", err))
		Internal(c, "failed to collect stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	page := pageFromQuery(c, adminUsersDefaultLimit, adminMaxLimit)
	users, total, err := h.store.ListProfiles(c.Request.Context(), page)
	if err != nil {
		h.log(c).Error("list users", slog.Any("error", err))
		Internal(c, "failed to list users")
		return
	}
	c.JSON(http.StatusOK, pageResponse("users", users, total, page))
}

// SetCredits 直接覆盖用户余额。
func (h *AdminHandler) SetCredits(c *gin.Context) {
	var req setCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "credits must be a non-negative integer")
		return
	}
	userID, ok := uuidParam(c, "id", "User")
	if !ok {
		return
	}
	profile, err := h.store.SetCredits(c.Request.Context(), userID, *req.Credits)
	if err != nil {
		h.storeFailure(c, err, "User", "set credits")
		return
	}
	h.log(c).Info("credits updated", slog.String("target_user_id", profile.ID), slog.Int("credits", profile.Credits))
	c.JSON(http.StatusOK, profile)
}

func (h *AdminHandler) SetBan(c *gin.Context) {
	var req setBanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "ban is required")
		return
	}
	userID, ok := uuidParam(c, "id", "User")
	if !ok {
		return
	}
	if *req.Ban && userID == c.GetString(middleware.UserIDKey) {
		BadRequest(c, "cannot ban yourself")
		return
	}
	profile, err := h.store.SetBanned(c.Request.Context(), userID, *req.Ban)
	if err != nil {
		h.storeFailure(c, err, "User", "set ban")
		return
	}
	h.log(c).Info("ban updated", slog.String("target_user_id", profile.ID), slog.Bool("banned", profile.IsBanned))
	c.JSON(http.StatusOK, profile)
}

// DeleteUser 先删除认证服务中的身份，再删除资料（项目与版本级联）及其缩略图。
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	ctx := c.Request.Context()
	userID, ok := uuidParam(c, "id", "User")
	if !ok {
		return
	}
	log := h.log(c).With(slog.String("target_user_id", userID))

	if userID == c.GetString(middleware.UserIDKey) {
		BadRequest(c, "cannot delete yourself")
		return
	}

	if h.users != nil {
		if err := h.users.DeleteUser(ctx, userID); err != nil {
			log.Error("delete auth user", slog.Any("error", err))
			Error(c, http.StatusBadGateway, "failed to delete user")
			return
		}
	}

	err := h.store.DeleteProfile(ctx, userID)
	switch {
	case errors.Is(err, database.ErrNotFound) && h.users != nil:
		// identity existed only in the auth service
	case err != nil:
		h.storeFailure(c, err, "User", "delete profile")
		return
	}

	if h.objects != nil {
		if err := h.objects.DeleteUserThumbnails(ctx, userID); err != nil {
			log.Warn("delete user thumbnails", slog.Any("error", err))
		}
	}
	log.Info("user deleted")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AdminHandler) ListProjects(c *gin.Context) {
	page := pageFromQuery(c, adminProjectsDefaultLimit, adminMaxLimit)
	projects, total, err := h.store.ListAllProjects(c.Request.Context(), page)
	if err != nil {
		h.log(c).Error("list all projects", slog.Any("error", err))
		Internal(c, "failed to list projects")
		return
	}
	resolveThumbnails(c.Request.Context(), h.objects, h.log(c), projectPointers(projects)...)
	c.JSON(http.StatusOK, pageResponse("projects", projects, total, page))
}

// SetPublish 切换项目在社区中的可见性，公开前同样需要扫描。
func (h *AdminHandler) SetPublish(c *gin.Context) {
	var req setPublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "is_public is required")
		return
	}
	projectID, ok := uuidParam(c, "id", "Project")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if *req.IsPublic {
		project, err := h.store.GetProjectByID(ctx, projectID)
		if err != nil {
			h.storeFailure(c, err, "Project", "load project for publish")
			return
		}
		if !scanForPublish(c, h.scanner, project.HTMLContent, h.log(c)) {
			return
		}
	}

	project, err := h.store.SetProjectPublic(ctx, projectID, *req.IsPublic)
	if err != nil {
		h.storeFailure(c, err, "Project", "set project public")
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *AdminHandler) DeleteProject(c *gin.Context) {
	projectID, ok := uuidParam(c, "id", "Project")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	project, err := h.store.GetProjectByID(ctx, projectID)
	if err != nil {
		h.storeFailure(c, err, "Project", "load project for delete")
		return
	}
	if err := h.store.AdminDeleteProject(ctx, project.ID); err != nil {
		h.storeFailure(c, err, "Project", "delete project")
		return
	}
	if h.objects != nil && project.ThumbnailKey != "" {
		if err := h.objects.DeleteObject(ctx, project.ThumbnailKey); err != nil {
			h.log(c).Warn("delete thumbnail", slog.String("key", project.ThumbnailKey), slog.Any("error", err))
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AdminHandler) ListLogs(c *gin.Context) {
	page := pageFromQuery(c, adminLogsDefaultLimit, adminMaxLimit)
	logs, total, err := h.store.ListAiLogs(c.Request.Context(), page)
	if err != nil {
		h.log(c).Error("list ai logs", slog.Any("error", err))
		Internal(c, "failed to list logs")
		return
	}
	c.JSON(http.StatusOK, pageResponse("logs", logs, total, page))
}

func (h *AdminHandler) storeFailure(c *gin.Context, err error, what, op string) {
	if !storeError(c, err, what) {
		h.log(c).Error(op, slog.Any("error", err))
	}
}

func (h *AdminHandler) log(c *gin.Context) *slog.Logger {
	return middleware.LoggerFromContextOr(c, h.logger)
}
