// Package gateway 定义文稿持久化网关
// 编辑器核心只通过该接口读写文稿，具体存储可以是本地数据库或托管的REST后端
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fyerfyer/slideai/internal/slides"
	"gorm.io/datatypes"
)

var (
	// ErrNotFound 文稿不存在
	ErrNotFound = errors.New("presentation not found")

	// ErrConflict 更新携带的版本号已过期
	ErrConflict = errors.New("presentation version conflict")
)

// Error 网关调用失败
// 网络、鉴权、校验等错误统一包装为带消息的不透明错误
type Error struct {
	Op      string // 失败的操作：list, get, create, update, delete
	Message string // 错误消息
}

// Error 实现error接口
func (e *Error) Error() string {
	return e.Message
}

// newError 创建网关错误
func newError(op string, format string, args ...interface{}) *Error {
	return &Error{
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// Presentation 持久化的文稿记录
type Presentation struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Markdown  string         `json:"markdown"`
	UserID    string         `json:"user_id"`
	Version   int64          `json:"version"`
	Settings  datatypes.JSON `json:"settings,omitempty"` // 编辑器设置，JSON对象
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Summary 文稿列表项
type Summary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Slides    int       `json:"slides"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPresentation 创建文稿的载荷，其余字段由服务端分配
type NewPresentation struct {
	Title    string         `json:"title"`
	Markdown string         `json:"markdown"`
	Settings datatypes.JSON `json:"settings,omitempty"`
}

// Patch 部分更新载荷
// Version非空时作为乐观锁令牌，与当前版本不一致则返回ErrConflict
// Settings为nil时保持不变，非nil时整体替换
type Patch struct {
	Title    *string        `json:"title,omitempty"`
	Markdown *string        `json:"markdown,omitempty"`
	Settings datatypes.JSON `json:"settings,omitempty"`
	Version  *int64         `json:"-"`
}

// Empty 判断是否没有需要更新的字段
func (p Patch) Empty() bool {
	return p.Title == nil && p.Markdown == nil && p.Settings == nil
}

// ValidSettings 设置必须是JSON对象
func ValidSettings(raw datatypes.JSON) bool {
	var obj map[string]interface{}
	return json.Unmarshal(raw, &obj) == nil && obj != nil
}

// Gateway 文稿持久化网关
type Gateway interface {
	// List 列出用户的文稿，按更新时间倒序
	List(ctx context.Context, userID string) ([]Summary, error)

	// Get 获取单个文稿，不存在时返回ErrNotFound
	Get(ctx context.Context, userID, id string) (*Presentation, error)

	// Create 创建文稿
	Create(ctx context.Context, userID string, p NewPresentation) (*Presentation, error)

	// Update 部分更新文稿
	Update(ctx context.Context, userID, id string, patch Patch) (*Presentation, error)

	// Delete 删除文稿，不存在时返回ErrNotFound
	Delete(ctx context.Context, userID, id string) error
}

// Summarize 从完整记录生成列表项
func Summarize(p *Presentation) Summary {
	return Summary{
		ID:        p.ID,
		Title:     p.Title,
		Slides:    slides.Count(p.Markdown),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
