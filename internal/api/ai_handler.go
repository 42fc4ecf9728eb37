package api

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"sitegen/internal/api/middleware"
	"sitegen/internal/generation"
)

// AIHandler 负责把生成/编辑请求接入生成管线并以 SSE 返回。
type AIHandler struct {
	pipeline       *generation.Pipeline
	redisClient    redis.UniversalClient
	limitPerHour   int
	fallbackLogger *slog.Logger
}

// NewAIHandler 构造 AIHandler。limitPerHour <= 0 或 redisClient 为空时不限流。
func NewAIHandler(pipeline *generation.Pipeline, redisClient redis.UniversalClient, limitPerHour int, logger *slog.Logger) *AIHandler {
	return &AIHandler{
		pipeline:       pipeline,
		redisClient:    redisClient,
		limitPerHour:   limitPerHour,
		fallbackLogger: logger,
	}
}

type generateRequest struct {
	Prompt string `json:"prompt" binding:"required,max=8000"`
}

type editRequest struct {
	Prompt          string `json:"prompt" binding:"required,max=8000"`
	SelectedElement string `json:"selected_element"`
	CurrentHTML     string `json:"current_html"`
}

// Generate 从零生成网站。
func (h *AIHandler) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Prompt is required")
		return
	}
	h.stream(c, generation.Request{Prompt: req.Prompt})
}

// Edit 在现有 HTML 上按提示修改。
func (h *AIHandler) Edit(c *gin.Context) {
	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Prompt is required")
		return
	}
	h.stream(c, generation.Request{
		Prompt:          req.Prompt,
		IsEdit:          true,
		SelectedElement: req.SelectedElement,
		CurrentHTML:     req.CurrentHTML,
	})
}

func (h *AIHandler) stream(c *gin.Context, req generation.Request) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	projectID, ok := uuidParam(c, "projectId", "Project")
	if !ok {
		return
	}
	log := middleware.LoggerFromContextOr(c, h.fallbackLogger)
	ctx := c.Request.Context()

	req.UserID = userID
	req.ProjectID = projectID
	req.CorrelationID = middleware.GetCorrelationID(c)

	job, err := h.pipeline.Admit(ctx, req, log)
	if err != nil {
		switch {
		case errors.Is(err, generation.ErrInsufficientCredits):
			Forbidden(c, generation.InsufficientCreditsMessage)
		case errors.Is(err, generation.ErrBanned):
			Forbidden(c, "account is suspended")
		default:
			if !storeError(c, err, "Project") {
				log.Error("admit generation", slog.Any("error", err))
			}
		}
		return
	}

	// 只有通过准入的请求才计入小时配额。
	if !h.allow(c, userID, log) {
		TooManyRequests(c, "rate limit exceeded")
		return
	}

	_ = job.Run(ctx, startEventStream(c))
}

// allow 以小时为窗口计数，redis 故障时放行。
func (h *AIHandler) allow(c *gin.Context, userID string, log *slog.Logger) bool {
	if h.redisClient == nil || h.limitPerHour <= 0 {
		return true
	}
	key := fmt.Sprintf("rate:generate:%s:%s", userID, time.Now().UTC().Format("2006010215"))
	count, err := incrWithTTL(c.Request.Context(), h.redisClient, key, time.Hour)
	if err != nil {
		log.Warn("rate limit counter unavailable", slog.Any("error", err))
		return true
	}
	return count <= int64(h.limitPerHour)
}
