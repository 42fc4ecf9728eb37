package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"sitegen/internal/api/middleware"
	"sitegen/internal/database"
)

// ProjectHandler 负责项目 CRUD 与版本历史。
type ProjectHandler struct {
	store   *database.Store
	objects ObjectStore
	scanner ContentScanner
	logger  *slog.Logger
}

// NewProjectHandler 构造 ProjectHandler，objects 与 scanner 可为空。
func NewProjectHandler(store *database.Store, objects ObjectStore, scanner ContentScanner, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{store: store, objects: objects, scanner: scanner, logger: logger}
}

type createProjectRequest struct {
	Prompt string `json:"prompt" binding:"required,max=8000"`
	Title  string `json:"title" binding:"max=255"`
}

type updateProjectRequest struct {
	Title        *string `json:"title" binding:"omitempty,max=255"`
	HTMLContent  *string `json:"html_content"`
	IsPublic     *bool   `json:"is_public"`
	ThumbnailURL *string `json:"thumbnail_url" binding:"omitempty,max=1024"`
}

type saveVersionRequest struct {
	HTMLContent string `json:"html_content" binding:"required"`
	Label       string `json:"label" binding:"max=255"`
}

// CreateProject 创建一个空项目，内容由后续生成写入。
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Prompt is required")
		return
	}
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	project, err := h.store.CreateProject(c.Request.Context(), userID, req.Prompt, req.Title)
	if err != nil {
		h.log(c).Error("create project", slog.Any("error", err))
		Internal(c, "failed to create project")
		return
	}
	c.JSON(http.StatusCreated, project)
}

// ListProjects 返回当前用户的项目，按更新时间倒序。
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	projects, err := h.store.ListProjects(c.Request.Context(), userID)
	if err != nil {
		h.log(c).Error("list projects", slog.Any("error", err))
		Internal(c, "failed to list projects")
		return
	}
	resolveThumbnails(c.Request.Context(), h.objects, h.log(c), projectPointers(projects)...)
	c.JSON(http.StatusOK, projects)
}

func (h *ProjectHandler) GetProject(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	projectID, ok := uuidParam(c, "id", "Project")
	if !ok {
		return
	}

	project, err := h.store.GetProject(c.Request.Context(), projectID, userID)
	if err != nil {
		h.storeFailure(c, err, "get project")
		return
	}
	resolveThumbnails(c.Request.Context(), h.objects, h.log(c), project)
	c.JSON(http.StatusOK, project)
}

// UpdateProject 部分更新项目；公开发布前会对 HTML 做病毒扫描。
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	var req updateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body")
		return
	}
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	projectID, ok := uuidParam(c, "id", "Project")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if req.IsPublic != nil && *req.IsPublic {
		html := ""
		if req.HTMLContent != nil {
			html = *req.HTMLContent
		} else {
			current, err := h.store.GetProject(ctx, projectID, userID)
			if err != nil {
				h.storeFailure(c, err, "load project for publish")
				return
			}
			html = current.HTMLContent
		}
		if !scanForPublish(c, h.scanner, html, h.log(c)) {
			return
		}
	}

	project, err := h.store.UpdateProject(ctx, projectID, userID, database.ProjectUpdate{
		Title:        req.Title,
		HTMLContent:  req.HTMLContent,
		IsPublic:     req.IsPublic,
		ThumbnailURL: req.ThumbnailURL,
	})
	if err != nil {
		h.storeFailure(c, err, "update project")
		return
	}
	resolveThumbnails(ctx, h.objects, h.log(c), project)
	c.JSON(http.StatusOK, project)
}

// DeleteProject 删除项目及其版本，缩略图清理失败只记录日志。
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	projectID, ok := uuidParam(c, "id", "Project")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	project, err := h.store.GetProject(ctx, projectID, userID)
	if err != nil {
		h.storeFailure(c, err, "load project for delete")
		return
	}
	if err := h.store.DeleteProject(ctx, project.ID, userID); err != nil {
		h.storeFailure(c, err, "delete project")
		return
	}
	if h.objects != nil && project.ThumbnailKey != "" {
		if err := h.objects.DeleteObject(ctx, project.ThumbnailKey); err != nil {
			h.log(c).Warn("delete thumbnail", slog.String("key", project.ThumbnailKey), slog.Any("error", err))
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *ProjectHandler) ListVersions(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	projectID, ok := uuidParam(c, "id", "Project")
	if !ok {
		return
	}

	versions, err := h.store.ListVersions(c.Request.Context(), projectID, userID)
	if err != nil {
		h.storeFailure(c, err, "list versions")
		return
	}
	c.JSON(http.StatusOK, versions)
}

// SaveVersion 手动保存一个快照，编号顺延。
func (h *ProjectHandler) SaveVersion(c *gin.Context) {
	var req saveVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "html_content is required")
		return
	}
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	projectID, ok := uuidParam(c, "id", "Project")
	if !ok {
		return
	}

	version, err := h.store.SaveVersion(c.Request.Context(), projectID, userID, req.HTMLContent, req.Label)
	if err != nil {
		h.storeFailure(c, err, "save version")
		return
	}
	c.JSON(http.StatusCreated, version)
}

// RestoreVersion 把历史版本的 HTML 写回项目，不删除任何版本。
func (h *ProjectHandler) RestoreVersion(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	projectID, ok := uuidParam(c, "id", "Project")
	if !ok {
		return
	}
	versionID, ok := uuidParam(c, "versionId", "Version")
	if !ok {
		return
	}

	project, err := h.store.RestoreVersion(c.Request.Context(), projectID, userID, versionID)
	if err != nil {
		h.storeFailure(c, err, "restore version")
		return
	}
	resolveThumbnails(c.Request.Context(), h.objects, h.log(c), project)
	c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) storeFailure(c *gin.Context, err error, op string) {
	if !storeError(c, err, "Project") {
		h.log(c).Error(op, slog.Any("error", err))
	}
}

func (h *ProjectHandler) log(c *gin.Context) *slog.Logger {
	return middleware.LoggerFromContextOr(c, h.logger)
}

// scanForPublish 在内容公开前扫描，返回 false 表示已写出错误响应。
func scanForPublish(c *gin.Context, scanner ContentScanner, html string, log *slog.Logger) bool {
	if scanner == nil || html == "" {
		return true
	}
	err := scanner.Scan(c.Request.Context(), html)
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrMaliciousContent):
		log.Warn("publish blocked by scanner", slog.Any("error", err))
		Error(c, http.StatusUnprocessableEntity, "content failed security scan")
	default:
		log.Error("scan content", slog.Any("error", err))
		Error(c, http.StatusBadGateway, "failed to scan content")
	}
	return false
}
