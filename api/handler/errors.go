package handler

import (
	"errors"
	"fmt"

	"github.com/fyerfyer/slideai/api/middleware"
	"github.com/fyerfyer/slideai/internal/editor"
	"github.com/fyerfyer/slideai/internal/gateway"
	"github.com/fyerfyer/slideai/internal/services"
	"github.com/fyerfyer/slideai/pkg/storage"
	"github.com/fyerfyer/slideai/pkg/taskqueue"
	"github.com/gin-gonic/gin"
)

// 失败时返回给客户端的消息前缀
const (
	msgLoadFailed   = "Failed to load presentations"
	msgExportFailed = "Failed to export presentation"
)

// respondError 把服务层错误转换为应用错误
// action为失败操作的提示，网关错误的消息原样附在其后
func respondError(c *gin.Context, err error, action string) {
	var gwErr *gateway.Error

	switch {
	case errors.Is(err, gateway.ErrNotFound):
		middleware.HandleError(c, middleware.NewNotFoundError("Presentation not found"))
	case errors.Is(err, gateway.ErrConflict):
		middleware.HandleError(c, middleware.NewConflictError(
			fmt.Sprintf("%s: presentation was changed elsewhere, reload and try again", action)))
	case errors.Is(err, editor.ErrSaveInProgress):
		middleware.HandleError(c, middleware.NewConflictError(
			fmt.Sprintf("%s: an earlier save is still in progress", action)))
	case errors.Is(err, editor.ErrSessionNotFound):
		middleware.HandleError(c, middleware.NewNotFoundError("Editing session not found"))
	case errors.Is(err, taskqueue.ErrTaskNotFound):
		middleware.HandleError(c, middleware.NewNotFoundError("Task not found"))
	case errors.Is(err, storage.ErrNotFound):
		middleware.HandleError(c, middleware.NewNotFoundError("Export not found"))
	case errors.Is(err, services.ErrInvalidSettings):
		middleware.HandleError(c, middleware.NewValidationError("Invalid request parameters", err.Error()))
	case errors.Is(err, services.ErrEmptyUpdate):
		middleware.HandleError(c, middleware.NewBusinessError(err.Error()))
	case errors.As(err, &gwErr):
		middleware.HandleError(c, middleware.NewUpstreamError(fmt.Sprintf("%s: %s", action, gwErr.Message)))
	default:
		middleware.HandleError(c, middleware.NewInternalError(action, err.Error()))
	}
}

// invalidRequest 请求参数校验失败
func invalidRequest(c *gin.Context, err error) {
	middleware.HandleError(c, middleware.NewValidationError("Invalid request parameters", err.Error()))
}
