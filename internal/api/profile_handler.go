package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"sitegen/internal/api/middleware"
	"sitegen/internal/database"
)

// ProfileHandler 同步认证服务中的身份到本地资料表。
type ProfileHandler struct {
	store          *database.Store
	defaultCredits int
	logger         *slog.Logger
}

func NewProfileHandler(store *database.Store, defaultCredits int, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{store: store, defaultCredits: defaultCredits, logger: logger}
}

type syncProfileRequest struct {
	FullName  string `json:"full_name" binding:"max=255"`
	AvatarURL string `json:"avatar_url" binding:"omitempty,url,max=512"`
}

// GetProfile 返回当前用户资料，首次访问时以默认额度创建。
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	h.upsert(c, syncProfileRequest{})
}

// SyncProfile 更新显示名与头像，空字段保持原值。
func (h *ProfileHandler) SyncProfile(c *gin.Context) {
	var req syncProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body")
		return
	}
	h.upsert(c, req)
}

func (h *ProfileHandler) upsert(c *gin.Context, req syncProfileRequest) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	profile, err := h.store.UpsertProfile(c.Request.Context(), userID, req.FullName, req.AvatarURL, h.defaultCredits)
	if err != nil {
		middleware.LoggerFromContextOr(c, h.logger).Error("upsert profile", slog.Any("error", err))
		Internal(c, "failed to load profile")
		return
	}
	c.JSON(http.StatusOK, profile)
}
