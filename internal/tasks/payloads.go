package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeSnapshotArchive = "snapshot:archive"
)

// SnapshotArchivePayload 描述归档一个页面快照所需的信息。
// Snapshot 是入队时刻的快照内容，worker 不需要访问编辑会话。
type SnapshotArchivePayload struct {
	PageKey       string          `json:"page_key"`
	CorrelationID string          `json:"correlation_id"`
	Snapshot      json.RawMessage `json:"snapshot"`
}

// NewSnapshotArchiveTask 构造一个新的快照归档任务。
func NewSnapshotArchiveTask(page, correlationID string, blob []byte) (*asynq.Task, error) {
	payload, err := json.Marshal(SnapshotArchivePayload{
		PageKey:       page,
		CorrelationID: correlationID,
		Snapshot:      json.RawMessage(blob),
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSnapshotArchive, payload, asynq.MaxRetry(5)), nil
}
