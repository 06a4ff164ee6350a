package model

import "gorm.io/datatypes"

// PreviewRequest 预览请求
// 空文本是合法输入，会得到占位内容
type PreviewRequest struct {
	Markdown *string `json:"markdown" binding:"required"` // 完整Markdown文本
}

// CreatePresentationRequest 创建文稿请求
type CreatePresentationRequest struct {
	Title    string         `json:"title" binding:"omitempty,max=200"` // 标题，为空时使用默认标题
	Markdown string         `json:"markdown"`                          // Markdown文本
	Settings datatypes.JSON `json:"settings"`                          // 编辑器设置
}

// UpdatePresentationRequest 部分更新文稿请求
type UpdatePresentationRequest struct {
	Title    *string        `json:"title" binding:"omitempty,notblank,max=200"` // 新标题
	Markdown *string        `json:"markdown"`                                   // 新文本
	Settings datatypes.JSON `json:"settings"`                                   // 新设置，整体替换
	Version  *int64         `json:"version" binding:"omitempty,min=1"`          // 客户端持有的版本号
}

// ExportRequest 导出请求
type ExportRequest struct {
	Format string `json:"format" binding:"omitempty,oneof=html pdf markdown md"` // 导出格式，为空时使用默认格式
}

// OpenSessionRequest 打开编辑会话请求
type OpenSessionRequest struct {
	PresentationID string `json:"presentation_id"` // 为空时新建文稿
}

// SessionTextRequest 编辑器变更请求
type SessionTextRequest struct {
	Markdown *string `json:"markdown" binding:"required"` // 编辑后的完整文本
}

// RenameSessionRequest 修改标题请求
type RenameSessionRequest struct {
	Title string `json:"title" binding:"required,notblank,max=200"` // 新标题
}
