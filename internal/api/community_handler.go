package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sitegen/internal/api/middleware"
	"sitegen/internal/database"
)

const (
	communityDefaultLimit = 12
	communityMaxLimit     = 50
)

// PublicAuthor 是社区接口对外暴露的全部作者信息，不含额度、角色与封禁状态。
type PublicAuthor struct {
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url"`
}

type communityProject struct {
	ID           string        `json:"id"`
	UserID       string        `json:"user_id"`
	Title        string        `json:"title"`
	Prompt       string        `json:"prompt"`
	HTMLContent  string        `json:"html_content"`
	IsPublic     bool          `json:"is_public"`
	ThumbnailURL string        `json:"thumbnail_url"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	Author       *PublicAuthor `json:"profiles,omitempty"`
}

func toCommunityProject(p *database.Project) communityProject {
	out := communityProject{
		ID:           p.ID,
		UserID:       p.UserID,
		Title:        p.Title,
		Prompt:       p.Prompt,
		HTMLContent:  p.HTMLContent,
		IsPublic:     p.IsPublic,
		ThumbnailURL: p.ThumbnailURL,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if p.Author != nil {
		out.Author = &PublicAuthor{FullName: p.Author.FullName, AvatarURL: p.Author.AvatarURL}
	}
	return out
}

// CommunityHandler 提供公开作品的匿名浏览接口。
type CommunityHandler struct {
	store   *database.Store
	objects ObjectStore
	logger  *slog.Logger
}

func NewCommunityHandler(store *database.Store, objects ObjectStore, logger *slog.Logger) *CommunityHandler {
	return &CommunityHandler{store: store, objects: objects, logger: logger}
}

// ListProjects 分页返回公开项目及作者信息。
func (h *CommunityHandler) ListProjects(c *gin.Context) {
	log := middleware.LoggerFromContextOr(c, h.logger)
	page := pageFromQuery(c, communityDefaultLimit, communityMaxLimit)

	projects, total, err := h.store.ListPublicProjects(c.Request.Context(), page)
	if err != nil {
		log.Error("list community projects", slog.Any("error", err))
		Internal(c, "failed to list projects")
		return
	}
	resolveThumbnails(c.Request.Context(), h.objects, log, projectPointers(projects)...)
	items := make([]communityProject, 0, len(projects))
	for i := range projects {
		items = append(items, toCommunityProject(&projects[i]))
	}
	c.JSON(http.StatusOK, pageResponse("projects", items, total, page))
}

// GetProject 返回单个公开项目，非公开项目一律视为不存在。
func (h *CommunityHandler) GetProject(c *gin.Context) {
	log := middleware.LoggerFromContextOr(c, h.logger)

	projectID, ok := uuidParam(c, "id", "Project")
	if !ok {
		return
	}
	project, err := h.store.GetPublicProject(c.Request.Context(), projectID)
	if err != nil {
		if !storeError(c, err, "Project") {
			log.Error("get community project", slog.Any("error", err))
		}
		return
	}
	resolveThumbnails(c.Request.Context(), h.objects, log, project)
	c.JSON(http.StatusOK, toCommunityProject(project))
}
