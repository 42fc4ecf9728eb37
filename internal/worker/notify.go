package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"sitegen/internal/tasks"
)

// 统一的 WebSocket 消息协议（通过 Redis Pub/Sub 转发给前端）。
// 注意：这里的字段名与前端解析保持一致。
type ThumbnailNotifyMessage struct {
	Type          string `json:"type"`
	Status        string `json:"status"`
	ProjectID     string `json:"project_id"`
	CorrelationID string `json:"correlation_id"`
	ThumbnailURL  string `json:"thumbnail_url,omitempty"`
	ErrorCode     int    `json:"error_code"`
	ErrorMessage  string `json:"error_message"`
}

const notifyTypeThumbnail = "thumbnail"

func publishNotify(ctx context.Context, client redis.UniversalClient, userID string, msg ThumbnailNotifyMessage) error {
	msg.Type = notifyTypeThumbnail
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := tasks.NotifyChannel(userID)
	if err := client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}
