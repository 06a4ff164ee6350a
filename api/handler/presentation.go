package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/fyerfyer/slideai/api/middleware"
	"github.com/fyerfyer/slideai/api/model"
	"github.com/fyerfyer/slideai/internal/editor"
	"github.com/fyerfyer/slideai/internal/gateway"
	"github.com/fyerfyer/slideai/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// PresentationHandler 处理文稿相关的API请求
type PresentationHandler struct {
	presentations *services.PresentationService // 文稿服务
	exports       *services.ExportService       // 导出服务
	logger        *logrus.Logger                // 日志记录器
}

// NewPresentationHandler 创建文稿处理器
func NewPresentationHandler(presentations *services.PresentationService, exports *services.ExportService) *PresentationHandler {
	return &PresentationHandler{
		presentations: presentations,
		exports:       exports,
		logger:        middleware.GetLogger(),
	}
}

// List 获取当前用户的文稿列表
// GET /api/presentations
func (h *PresentationHandler) List(c *gin.Context) {
	list, err := h.presentations.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err, msgLoadFailed)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.NewPresentationListResponse(list)))
}

// Create 创建文稿
// POST /api/presentations
func (h *PresentationHandler) Create(c *gin.Context) {
	var req model.CreatePresentationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = editor.DefaultTitle
	}

	p, err := h.presentations.Create(c.Request.Context(), middleware.UserID(c), gateway.NewPresentation{
		Title:    title,
		Markdown: req.Markdown,
		Settings: req.Settings,
	})
	if err != nil {
		respondError(c, err, services.MsgCreateFailed)
		return
	}

	c.JSON(http.StatusCreated, model.NewSuccessResponse(model.NewPresentationResponse(p)))
}

// Get 获取文稿详情
// GET /api/presentations/:id
func (h *PresentationHandler) Get(c *gin.Context) {
	p, err := h.presentations.Get(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err, msgLoadFailed)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.NewPresentationResponse(p)))
}

// Update 部分更新文稿
// PATCH /api/presentations/:id
func (h *PresentationHandler) Update(c *gin.Context) {
	var req model.UpdatePresentationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	p, err := h.presentations.Update(c.Request.Context(), middleware.UserID(c), c.Param("id"), gateway.Patch{
		Title:    req.Title,
		Markdown: req.Markdown,
		Settings: req.Settings,
		Version:  req.Version,
	})
	if err != nil {
		respondError(c, err, services.MsgSaveFailed)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.NewPresentationResponse(p)))
}

// Delete 删除文稿
// DELETE /api/presentations/:id
func (h *PresentationHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.presentations.Delete(c.Request.Context(), middleware.UserID(c), id); err != nil {
		respondError(c, err, services.MsgDeleteFailed)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.DeleteResponse{
		Success: true,
		ID:      id,
	}))
}

// Download 以附件形式下载Markdown原文
// GET /api/presentations/:id/download
func (h *PresentationHandler) Download(c *gin.Context) {
	artifact, err := h.exports.Download(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err, msgExportFailed)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, artifact.Filename))
	c.Data(http.StatusOK, artifact.ContentType, artifact.Data)
}
