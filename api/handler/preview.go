package handler

import (
	"net/http"

	"github.com/fyerfyer/slideai/api/model"
	"github.com/fyerfyer/slideai/internal/slides"
	"github.com/gin-gonic/gin"
)

// PreviewHandler 无状态预览
type PreviewHandler struct {
	renderer *slides.Renderer
}

// NewPreviewHandler 创建预览处理器
func NewPreviewHandler(renderer *slides.Renderer) *PreviewHandler {
	if renderer == nil {
		renderer = slides.NewRenderer()
	}
	return &PreviewHandler{renderer: renderer}
}

// Preview 渲染第一张幻灯片
// POST /api/preview
func (h *PreviewHandler) Preview(c *gin.Context) {
	var req model.PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.PreviewResponse{
		Slides: slides.Count(*req.Markdown),
		HTML:   h.renderer.Preview(*req.Markdown),
	}))
}
