package taskqueue

import (
	"encoding/json"
	"time"
)

// TaskType 任务类型
type TaskType string

const (
	// TaskExportDeck 文稿导出任务
	TaskExportDeck TaskType = "presentation:export"
)

// TaskStatus 任务状态
type TaskStatus string

const (
	// StatusPending 等待处理
	StatusPending TaskStatus = "pending"
	// StatusProcessing 处理中
	StatusProcessing TaskStatus = "processing"
	// StatusCompleted 已完成
	StatusCompleted TaskStatus = "completed"
	// StatusFailed 处理失败
	StatusFailed TaskStatus = "failed"
)

// Task 任务基础结构
type Task struct {
	ID             string          `json:"id"`              // 任务唯一标识符
	Type           TaskType        `json:"type"`            // 任务类型
	PresentationID string          `json:"presentation_id"` // 关联的文稿ID
	UserID         string          `json:"user_id"`         // 发起任务的用户
	Status         TaskStatus      `json:"status"`          // 任务状态
	Payload        json.RawMessage `json:"payload"`         // 任务载荷数据
	Result         json.RawMessage `json:"result"`          // 任务结果数据
	Error          string          `json:"error"`           // 错误信息（如果处理失败）
	CreatedAt      time.Time       `json:"created_at"`      // 创建时间
	UpdatedAt      time.Time       `json:"updated_at"`      // 更新时间
	StartedAt      *time.Time      `json:"started_at"`      // 开始处理时间
	CompletedAt    *time.Time      `json:"completed_at"`    // 完成时间
	Attempts       int             `json:"attempts"`        // 尝试次数
	MaxRetries     int             `json:"max_retries"`     // 最大重试次数
}

// Done 任务是否已结束
func (t *Task) Done() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}

// ExportPayload 导出任务载荷
// 入队时保存文稿快照，导出结果与发起时的内容一致
type ExportPayload struct {
	PresentationID string `json:"presentation_id"` // 文稿ID
	Version        int64  `json:"version"`         // 文稿版本
	Format         string `json:"format"`          // 导出格式: markdown, html, pdf
	Title          string `json:"title"`           // 标题
	Markdown       string `json:"markdown"`        // Markdown文本
}

// ExportResult 导出任务结果
type ExportResult struct {
	FileID      string `json:"file_id"`      // 存储中的文件ID
	Filename    string `json:"filename"`     // 下载文件名
	ContentType string `json:"content_type"` // MIME类型
	Size        int64  `json:"size"`         // 文件大小
	Slides      int    `json:"slides"`       // 幻灯片数量
	Pages       int    `json:"pages"`        // PDF页数
	Warning     string `json:"warning,omitempty"`
}
