package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fyerfyer/slideai/api/middleware"
	"github.com/fyerfyer/slideai/api/model"
	"github.com/fyerfyer/slideai/internal/export"
	"github.com/fyerfyer/slideai/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	defaultWaitTimeout = 10 * time.Second
	maxWaitTimeout     = time.Minute
)

// ExportHandler 处理导出和任务查询请求
type ExportHandler struct {
	exports       *services.ExportService
	defaultFormat string // 请求未指定格式时使用
	logger        *logrus.Logger
}

// NewExportHandler 创建导出处理器
func NewExportHandler(exports *services.ExportService, defaultFormat string) *ExportHandler {
	if defaultFormat == "" {
		defaultFormat = string(export.FormatHTML)
	}
	return &ExportHandler{
		exports:       exports,
		defaultFormat: defaultFormat,
		logger:        middleware.GetLogger(),
	}
}

// Export 导出文稿
// POST /api/presentations/:id/exports
// 启用队列时返回202和任务ID，否则直接返回导出结果
func (h *ExportHandler) Export(c *gin.Context) {
	var req model.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		invalidRequest(c, err)
		return
	}
	if req.Format == "" {
		req.Format = h.defaultFormat
	}

	format, err := export.ParseFormat(req.Format)
	if err != nil {
		invalidRequest(c, err)
		return
	}

	job, err := h.exports.Export(c.Request.Context(), middleware.UserID(c), c.Param("id"), format)
	if err != nil {
		respondError(c, err, msgExportFailed)
		return
	}

	status := http.StatusOK
	if job.TaskID != "" {
		status = http.StatusAccepted
	}
	c.JSON(status, model.NewSuccessResponse(model.ExportResponse(*job)))
}

// GetTask 查询导出任务状态
// GET /api/tasks/:id
func (h *ExportHandler) GetTask(c *gin.Context) {
	info, err := h.exports.Task(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to get task status")
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.TaskResponse(*info)))
}

// ListTasks 列出文稿的导出任务
// GET /api/presentations/:id/exports
func (h *ExportHandler) ListTasks(c *gin.Context) {
	infos, err := h.exports.Tasks(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to list export tasks")
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(infos))
}

// WaitTask 等待导出任务结束
// GET /api/tasks/:id/wait?timeout=10s
func (h *ExportHandler) WaitTask(c *gin.Context) {
	timeout := defaultWaitTimeout
	if raw := c.Query("timeout"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 || d > maxWaitTimeout {
			invalidRequest(c, fmt.Errorf("timeout must be a duration between 0 and %s", maxWaitTimeout))
			return
		}
		timeout = d
	}

	info, err := h.exports.Wait(c.Request.Context(), middleware.UserID(c), c.Param("id"), timeout)
	if err != nil {
		respondError(c, err, "Failed to get task status")
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.TaskResponse(*info)))
}

// CancelTask 取消导出任务
// DELETE /api/tasks/:id
func (h *ExportHandler) CancelTask(c *gin.Context) {
	id := c.Param("id")
	if err := h.exports.Cancel(c.Request.Context(), middleware.UserID(c), id); err != nil {
		respondError(c, err, "Failed to cancel task")
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.DeleteResponse{Success: true, ID: id}))
}

// DownloadExport 下载导出的文件
// GET /api/exports/:file_id
func (h *ExportHandler) DownloadExport(c *gin.Context) {
	fileID := c.Param("file_id")
	rc, info, err := h.exports.Open(c.Request.Context(), fileID)
	if err != nil {
		respondError(c, err, msgExportFailed)
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, info.Name))
	c.Header("Content-Type", info.MimeType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		h.logger.WithFields(logrus.Fields{
			"file_id":             fileID,
			middleware.FieldError: err.Error(),
		}).Warn("Failed to stream export")
	}
}
