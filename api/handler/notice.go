package handler

import (
	"net/http"

	"github.com/fyerfyer/slideai/api/middleware"
	"github.com/fyerfyer/slideai/api/model"
	"github.com/fyerfyer/slideai/internal/services"
	"github.com/gin-gonic/gin"
)

// NoticeHandler 返回待展示的用户通知
type NoticeHandler struct {
	board *services.NoticeBoard
}

// NewNoticeHandler 创建通知处理器
func NewNoticeHandler(board *services.NoticeBoard) *NoticeHandler {
	return &NoticeHandler{board: board}
}

// Drain 取走当前用户的通知
// GET /api/notices
func (h *NoticeHandler) Drain(c *gin.Context) {
	notices := h.board.Drain(middleware.UserID(c))
	if notices == nil {
		notices = []services.Notice{}
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse(model.NoticeListResponse{Notices: notices}))
}
