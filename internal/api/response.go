package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pagecraft/internal/document"
	"pagecraft/internal/editor"
	"pagecraft/internal/errcode"
)

func Error(c *gin.Context, status, code int, msg string) {
	c.JSON(status, gin.H{"error": msg, "code": code})
}

func BadRequest(c *gin.Context, msg string) { Error(c, http.StatusBadRequest, errcode.InvalidRequest, msg) }
func Forbidden(c *gin.Context, msg string)  { Error(c, http.StatusForbidden, errcode.InvalidRequest, msg) }
func NotFound(c *gin.Context, msg string)   { Error(c, http.StatusNotFound, errcode.ResourceMissing, msg) }
func Conflict(c *gin.Context, msg string)   { Error(c, http.StatusConflict, errcode.NoSelection, msg) }
func Internal(c *gin.Context, msg string)   { Error(c, http.StatusInternalServerError, errcode.SystemError, msg) }

// respondError 将领域错误映射为 HTTP 状态码与错误码。
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, document.ErrNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, editor.ErrNoSelection):
		Conflict(c, err.Error())
	case errors.Is(err, document.ErrInvalidContent),
		errors.Is(err, document.ErrInvalidSettings),
		errors.Is(err, document.ErrInvalidDirection),
		errors.Is(err, document.ErrUnknownTemplate),
		errors.Is(err, editor.ErrInvalidPage):
		BadRequest(c, err.Error())
	default:
		Internal(c, "internal error")
	}
}
