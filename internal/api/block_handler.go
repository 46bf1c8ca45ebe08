package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pagecraft/internal/block"
	"pagecraft/internal/document"
	"pagecraft/internal/editor"
)

// BlockHandler 负责区块的增删改、移动与复制。
type BlockHandler struct {
	manager *editor.Manager
}

func NewBlockHandler(manager *editor.Manager) *BlockHandler {
	return &BlockHandler{manager: manager}
}

type addBlockRequest struct {
	Type block.Type `json:"type" binding:"required"`
}

type moveBlockRequest struct {
	Direction string `json:"direction" binding:"required"`
}

// respondBlock 返回区块的最新状态及其位置。
func respondBlock(c *gin.Context, s *editor.Session, id string, status int) {
	view := s.View()
	for i, b := range view.Blocks {
		if b.ID == id {
			c.JSON(status, gin.H{"block": b, "index": i})
			return
		}
	}
	NotFound(c, "block not found")
}

// ListBlockTypes 返回区块目录及各类型的字段结构，供属性面板使用。
func (h *BlockHandler) ListBlockTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"types":  block.Catalog(),
		"shapes": block.Shapes(),
	})
}

// AddBlock 在页面末尾追加一个带默认内容的区块。
// 未注册的类型同样会被追加，内容为空。
func (h *BlockHandler) AddBlock(c *gin.Context) {
	var req addBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	s, ctx, ok := openSession(c, h.manager)
	if !ok {
		return
	}
	id := s.AddBlock(ctx, req.Type)
	respondBlock(c, s, id, http.StatusCreated)
}

// UpdateContent 浅合并内容补丁。
func (h *BlockHandler) UpdateContent(c *gin.Context) {
	var partial block.Content
	if err := c.ShouldBindJSON(&partial); err != nil {
		BadRequest(c, err.Error())
		return
	}
	s, ctx, ok := openSession(c, h.manager)
	if !ok {
		return
	}
	id := c.Param("id")
	if err := s.UpdateContent(ctx, id, partial); err != nil {
		respondError(c, err)
		return
	}
	respondBlock(c, s, id, http.StatusOK)
}

// UpdateSettings 浅合并样式补丁。
func (h *BlockHandler) UpdateSettings(c *gin.Context) {
	var patch block.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		BadRequest(c, err.Error())
		return
	}
	s, ctx, ok := openSession(c, h.manager)
	if !ok {
		return
	}
	id := c.Param("id")
	if err := s.UpdateSettings(ctx, id, patch); err != nil {
		respondError(c, err)
		return
	}
	respondBlock(c, s, id, http.StatusOK)
}

func (h *BlockHandler) DeleteBlock(c *gin.Context) {
	s, ctx, ok := openSession(c, h.manager)
	if !ok {
		return
	}
	if err := s.DeleteBlock(ctx, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MoveBlock 与相邻区块交换位置；在边界处返回 moved=false。
func (h *BlockHandler) MoveBlock(c *gin.Context) {
	var req moveBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	dir, err := document.ParseDirection(req.Direction)
	if err != nil {
		respondError(c, err)
		return
	}
	s, ctx, ok := openSession(c, h.manager)
	if !ok {
		return
	}
	id := c.Param("id")
	moved, err := s.MoveBlock(ctx, id, dir)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"moved": moved, "index": indexOf(s, id)})
}

// DuplicateBlock 在原区块之后插入一份深拷贝。
func (h *BlockHandler) DuplicateBlock(c *gin.Context) {
	s, ctx, ok := openSession(c, h.manager)
	if !ok {
		return
	}
	id, err := s.DuplicateBlock(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondBlock(c, s, id, http.StatusCreated)
}

func indexOf(s *editor.Session, id string) int {
	for i, b := range s.View().Blocks {
		if b.ID == id {
			return i
		}
	}
	return -1
}
