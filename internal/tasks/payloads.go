package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeProjectThumbnail = "project:thumbnail"
)

// NotifyChannel 返回某个用户的通知频道，worker 发布、API 的 WebSocket 端订阅。
func NotifyChannel(userID string) string {
	return "user_notify:" + userID
}

// ProjectThumbnailPayload 描述生成项目缩略图所需的最小信息。
type ProjectThumbnailPayload struct {
	ProjectID     string `json:"project_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewProjectThumbnailTask 构造一个新的项目缩略图任务。
func NewProjectThumbnailTask(projectID, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ProjectThumbnailPayload{
		ProjectID:     projectID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeProjectThumbnail, payload, asynq.MaxRetry(3)), nil
}

// Enqueuer 把缩略图任务投递到 asynq 队列。
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer wraps an asynq client.
func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

// EnqueueThumbnail schedules a thumbnail render for projectID.
func (e *Enqueuer) EnqueueThumbnail(projectID, correlationID string) error {
	task, err := NewProjectThumbnailTask(projectID, correlationID)
	if err != nil {
		return err
	}
	_, err = e.client.Enqueue(task)
	return err
}
