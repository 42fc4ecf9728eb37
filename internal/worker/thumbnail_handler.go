package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"sitegen/internal/database"
	"sitegen/internal/errcode"
	"sitegen/internal/tasks"
)

// ProjectStore is the part of database.Store the worker reads and writes.
type ProjectStore interface {
	GetProjectByID(ctx context.Context, projectID string) (*database.Project, error)
	SetThumbnailKey(ctx context.Context, projectID, key string) error
}

// ObjectStore persists rendered thumbnails.
type ObjectStore interface {
	PutThumbnail(ctx context.Context, userID, projectID string, image []byte) (string, error)
	PresignedURL(ctx context.Context, objectKey string) (string, error)
}

// ThumbnailTaskHandler 负责消费项目缩略图任务。
type ThumbnailTaskHandler struct {
	store       ProjectStore
	objects     ObjectStore
	renderer    Renderer
	redisClient redis.UniversalClient
	logger      *slog.Logger
}

// NewThumbnailTaskHandler 创建任务处理器。
func NewThumbnailTaskHandler(store ProjectStore, objects ObjectStore, renderer Renderer, redisClient redis.UniversalClient, logger *slog.Logger) *ThumbnailTaskHandler {
	return &ThumbnailTaskHandler{
		store:       store,
		objects:     objects,
		renderer:    renderer,
		redisClient: redisClient,
		logger:      logger,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *ThumbnailTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.ProjectThumbnailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return errors.Join(err, asynq.SkipRetry)
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.String("project_id", payload.ProjectID),
	)

	project, err := h.store.GetProjectByID(ctx, payload.ProjectID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			log.Warn("project not found, skipping task")
			return nil
		}
		log.Error("query project failed", slog.Any("error", err))
		return err
	}

	log = log.With(slog.String("user_id", project.UserID))

	if strings.TrimSpace(project.HTMLContent) == "" {
		log.Info("project has no content yet, skipping task")
		notify := ThumbnailNotifyMessage{
			Status:        "skipped",
			ProjectID:     project.ID,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     errcode.EmptyContent,
			ErrorMessage:  "project has no html content",
		}
		if err := publishNotify(ctx, h.redisClient, project.UserID, notify); err != nil {
			log.Warn("publish skip notification failed", slog.Any("error", err))
		}
		return nil
	}

	defer func() {
		if retErr == nil || !isFinalAsynqAttempt(ctx) {
			return
		}
		notify := ThumbnailNotifyMessage{
			Status:        "error",
			ProjectID:     project.ID,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     errcode.SystemError,
			ErrorMessage:  strings.TrimSpace(retErr.Error()),
		}
		if err := publishNotify(ctx, h.redisClient, project.UserID, notify); err != nil {
			log.Error("publish thumbnail error notification failed", slog.Any("error", err))
		}
	}()

	image, err := h.renderer.Screenshot(ctx, project.HTMLContent)
	if err != nil {
		log.Error("render project failed", slog.Any("error", err))
		return err
	}

	key, err := h.objects.PutThumbnail(ctx, project.UserID, project.ID, image)
	if err != nil {
		log.Error("upload thumbnail to minio failed", slog.Any("error", err))
		return err
	}

	if err := h.store.SetThumbnailKey(ctx, project.ID, key); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			log.Warn("project deleted while rendering, dropping thumbnail")
			return nil
		}
		log.Error("update project thumbnail failed", slog.Any("error", err))
		return err
	}

	notify := ThumbnailNotifyMessage{
		Status:        "completed",
		ProjectID:     project.ID,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
	}
	if url, err := h.objects.PresignedURL(ctx, key); err == nil {
		notify.ThumbnailURL = url
	} else {
		log.Warn("presign thumbnail failed", slog.Any("error", err))
	}
	if err := publishNotify(ctx, h.redisClient, project.UserID, notify); err != nil {
		log.Error("publish redis notification failed", slog.Any("error", err))
	}

	log.Info("thumbnail task completed", slog.Int("bytes", len(image)))
	return nil
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
