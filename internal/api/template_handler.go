package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pagecraft/internal/document"
)

// TemplateHandler 负责模板相关的 API。
type TemplateHandler struct{}

func NewTemplateHandler() *TemplateHandler {
	return &TemplateHandler{}
}

// GET /v1/templates
// 列表：内置模板，默认模板在前。
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, document.Templates())
}
