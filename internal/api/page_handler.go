package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"pagecraft/internal/api/middleware"
	"pagecraft/internal/block"
	"pagecraft/internal/document"
	"pagecraft/internal/editor"
	"pagecraft/internal/errcode"
	"pagecraft/internal/tasks"
)

type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// PageHandler 负责页面级别的读取、页面设置、选区与归档。
type PageHandler struct {
	manager     *editor.Manager
	asynqClient taskEnqueuer
}

// NewPageHandler 构造 PageHandler，asynqClient 为空时归档接口不可用。
func NewPageHandler(manager *editor.Manager, asynqClient taskEnqueuer) *PageHandler {
	return &PageHandler{manager: manager, asynqClient: asynqClient}
}

type resetRequest struct {
	Template string `json:"template"`
}

type selectRequest struct {
	BlockID string `json:"blockId" binding:"required"`
}

// openSession 根据路径参数打开页面会话。
func openSession(c *gin.Context, manager *editor.Manager) (*editor.Session, context.Context, bool) {
	ctx := c.Request.Context()
	s, err := manager.Session(ctx, c.Param("page"))
	if err != nil {
		middleware.LoggerFromContext(c).Warn("open page session failed", slog.Any("error", err))
		respondError(c, err)
		return nil, nil, false
	}
	return s, ctx, true
}

// GetPage 返回页面文档、当前选区以及恢复提示。
func (h *PageHandler) GetPage(c *gin.Context) {
	s, _, ok := openSession(c, h.manager)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.View())
}

// UpdatePageSettings 局部更新页面标题与描述。
func (h *PageHandler) UpdatePageSettings(c *gin.Context) {
	var req document.PageSettingsPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	s, ctx, ok := openSession(c, h.manager)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"pageSettings": s.UpdatePageSettings(ctx, req)})
}

// ResetPage 用内置模板重新初始化页面，body 可省略。
func (h *PageHandler) ResetPage(c *gin.Context) {
	var req resetRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, err.Error())
			return
		}
	}
	s, ctx, ok := openSession(c, h.manager)
	if !ok {
		return
	}
	if err := s.Reset(ctx, req.Template); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.View())
}

// SelectBlock 将指定区块设为当前编辑目标。
func (h *PageHandler) SelectBlock(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	s, _, ok := openSession(c, h.manager)
	if !ok {
		return
	}
	if err := s.Select(req.BlockID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"selectedBlockId": req.BlockID})
}

// Deselect 清除选区。
func (h *PageHandler) Deselect(c *gin.Context) {
	s, _, ok := openSession(c, h.manager)
	if !ok {
		return
	}
	s.Deselect()
	c.Status(http.StatusNoContent)
}

// EditSelectedContent 将内容补丁转发给当前选中的区块。
func (h *PageHandler) EditSelectedContent(c *gin.Context) {
	var partial block.Content
	if err := c.ShouldBindJSON(&partial); err != nil {
		BadRequest(c, err.Error())
		return
	}
	s, ctx, ok := openSession(c, h.manager)
	if !ok {
		return
	}
	id, err := s.EditSelectedContent(ctx, partial)
	if err != nil {
		respondError(c, err)
		return
	}
	respondBlock(c, s, id, http.StatusOK)
}

// EditSelectedSettings 将样式补丁转发给当前选中的区块。
func (h *PageHandler) EditSelectedSettings(c *gin.Context) {
	var patch block.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		BadRequest(c, err.Error())
		return
	}
	s, ctx, ok := openSession(c, h.manager)
	if !ok {
		return
	}
	id, err := s.EditSelectedSettings(ctx, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	respondBlock(c, s, id, http.StatusOK)
}

// ArchivePage 将当前快照投递到异步队列，由 worker 写入对象存储。
func (h *PageHandler) ArchivePage(c *gin.Context) {
	if h.asynqClient == nil {
		Error(c, http.StatusServiceUnavailable, errcode.SystemError, "archive queue unavailable")
		return
	}
	s, ctx, ok := openSession(c, h.manager)
	if !ok {
		return
	}
	blob, err := s.Encode()
	if err != nil {
		middleware.LoggerFromContext(c).Error("encode snapshot failed", slog.Any("error", err))
		Internal(c, "failed to encode snapshot")
		return
	}

	correlationID := middleware.GetCorrelationID(c)
	task, err := tasks.NewSnapshotArchiveTask(s.Page(), correlationID, blob)
	if err != nil {
		Internal(c, "failed to create archive task")
		return
	}

	enqueueCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	info, err := h.asynqClient.EnqueueContext(enqueueCtx, task)
	if err != nil {
		middleware.LoggerFromContext(c).Error("enqueue archive task failed", slog.Any("error", err))
		Internal(c, "failed to enqueue archive task")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"taskId":        info.ID,
		"correlationId": correlationID,
	})
}
