package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"gorm.io/gorm"

	"pagecraft/internal/database"
	"pagecraft/internal/errcode"
	"pagecraft/internal/notify"
	"pagecraft/internal/snapshot"
	"pagecraft/internal/storage"
	"pagecraft/internal/tasks"
)

type objectUploader interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
}

// Notifier 将归档结果推送给订阅该页面的客户端。
type Notifier interface {
	Notify(ctx context.Context, page string, msg notify.Message) error
}

// SnapshotArchiveHandler 负责消费快照归档任务。
type SnapshotArchiveHandler struct {
	db       *gorm.DB
	objects  objectUploader
	notifier Notifier
	logger   *slog.Logger
}

// NewSnapshotArchiveHandler 创建任务处理器。
func NewSnapshotArchiveHandler(db *gorm.DB, objects objectUploader, notifier Notifier, logger *slog.Logger) *SnapshotArchiveHandler {
	return &SnapshotArchiveHandler{
		db:       db,
		objects:  objects,
		notifier: notifier,
		logger:   logger,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *SnapshotArchiveHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.SnapshotArchivePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.String("page", payload.PageKey),
	)
	log.Info("Starting snapshot archive task...")

	if strings.TrimSpace(payload.PageKey) == "" {
		log.Warn("archive task without page key, skipping")
		return nil
	}

	// 内容损坏时重试没有意义，直接通知失败。
	if _, _, err := snapshot.Decode(payload.Snapshot); err != nil {
		log.Error("archive payload is not a valid snapshot", slog.Any("error", err))
		h.publish(ctx, log, payload.PageKey, notify.Message{
			Event:         notify.EventArchiveFailed,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     errcode.MalformedSnapshot,
			ErrorMessage:  err.Error(),
		})
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	defer func() {
		if retErr == nil {
			return
		}
		if !isFinalAsynqAttempt(ctx) {
			return
		}
		h.publish(ctx, log, payload.PageKey, notify.Message{
			Event:         notify.EventArchiveFailed,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     errcode.SystemError,
			ErrorMessage:  strings.TrimSpace(retErr.Error()),
		})
	}()

	objectKey, err := storage.UploadArchive(ctx, h.objects, payload.PageKey, payload.Snapshot)
	if err != nil {
		log.Error("upload snapshot archive to minio failed", slog.Any("error", err))
		return err
	}

	archive := &database.SnapshotArchive{
		PageKey:       payload.PageKey,
		ObjectKey:     objectKey,
		SizeBytes:     len(payload.Snapshot),
		CorrelationID: payload.CorrelationID,
	}
	if err := database.RecordArchive(ctx, h.db, archive); err != nil {
		log.Error("record snapshot archive failed", slog.Any("error", err))
		return err
	}

	h.publish(ctx, log, payload.PageKey, notify.Message{
		Event:         notify.EventArchived,
		CorrelationID: payload.CorrelationID,
		ObjectKey:     objectKey,
		ErrorCode:     errcode.OK,
	})

	log.Info("Snapshot archive task completed successfully.", slog.String("object_key", objectKey))
	return nil
}

func (h *SnapshotArchiveHandler) publish(ctx context.Context, log *slog.Logger, page string, msg notify.Message) {
	if h.notifier == nil {
		return
	}
	if err := h.notifier.Notify(ctx, page, msg); err != nil {
		log.Error("publish archive notification failed", slog.Any("error", err))
	}
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
