package model

import (
	"time"

	"github.com/fyerfyer/slideai/internal/editor"
	"github.com/fyerfyer/slideai/internal/gateway"
	"github.com/fyerfyer/slideai/internal/services"
	"github.com/fyerfyer/slideai/pkg/taskqueue"
	"gorm.io/datatypes"
)

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`               // 响应状态码，0表示成功
	Message string      `json:"message"`            // 响应消息
	Data    interface{} `json:"data,omitempty"`     // 响应数据，可能为空
	TraceID string      `json:"trace_id,omitempty"` // 调用链追踪ID
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string) *Response {
	return &Response{
		Code:    code,
		Message: message,
	}
}

// PreviewResponse 预览响应
type PreviewResponse struct {
	Slides int    `json:"slides"` // 幻灯片数量
	HTML   string `json:"html"`   // 第一张幻灯片的渲染结果
}

// PresentationSummary 文稿列表项
type PresentationSummary struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	SlideCount int       `json:"slide_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PresentationListResponse 文稿列表响应
type PresentationListResponse struct {
	Total         int                   `json:"total"`
	Presentations []PresentationSummary `json:"presentations"`
}

// NewPresentationListResponse 由网关摘要构造列表响应
func NewPresentationListResponse(list []gateway.Summary) PresentationListResponse {
	items := make([]PresentationSummary, len(list))
	for i, s := range list {
		items[i] = PresentationSummary{
			ID:         s.ID,
			Title:      s.Title,
			SlideCount: s.Slides,
			CreatedAt:  s.CreatedAt,
			UpdatedAt:  s.UpdatedAt,
		}
	}
	return PresentationListResponse{Total: len(items), Presentations: items}
}

// PresentationResponse 文稿详情
type PresentationResponse struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Markdown   string         `json:"markdown"`
	Version    int64          `json:"version"`
	SlideCount int            `json:"slide_count"`
	Settings   datatypes.JSON `json:"settings,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// NewPresentationResponse 由网关记录构造响应
func NewPresentationResponse(p *gateway.Presentation) PresentationResponse {
	return PresentationResponse{
		ID:         p.ID,
		Title:      p.Title,
		Markdown:   p.Markdown,
		Version:    p.Version,
		SlideCount: gateway.Summarize(p).Slides,
		Settings:   p.Settings,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

// DeleteResponse 删除响应
type DeleteResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

// SessionResponse 编辑会话状态
type SessionResponse = editor.Snapshot

// ExportResponse 导出响应
type ExportResponse = services.ExportJob

// TaskResponse 任务状态响应
type TaskResponse = taskqueue.TaskInfo

// NoticeListResponse 通知列表响应
type NoticeListResponse struct {
	Notices []services.Notice `json:"notices"`
}
