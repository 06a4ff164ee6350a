package repository

import (
	"context"

	"github.com/fyerfyer/slideai/internal/models"
	"gorm.io/datatypes"
)

// PresentationUpdate 文稿的部分更新
// 为nil的字段保持不变
type PresentationUpdate struct {
	Title           *string        // 新标题
	Markdown        *string        // 新的Markdown文本
	Settings        datatypes.JSON // 新的设置
	ExpectedVersion *int64         // 期望的当前版本，不匹配时返回ErrVersionConflict
}

// Empty 判断更新是否没有任何字段
func (u PresentationUpdate) Empty() bool {
	return u.Title == nil && u.Markdown == nil && u.Settings == nil
}

// PresentationRepository 文稿仓储接口
// 所有查询都限定在用户范围内
type PresentationRepository interface {
	// Create 创建文稿记录
	Create(p *models.Presentation) error

	// GetByID 根据ID获取文稿
	GetByID(userID, id string) (*models.Presentation, error)

	// List 列出用户的文稿，按更新时间倒序；limit<=0表示不限制
	List(userID string, offset, limit int) ([]*models.Presentation, int64, error)

	// Update 部分更新文稿并返回更新后的记录
	Update(userID, id string, update PresentationUpdate) (*models.Presentation, error)

	// Delete 删除文稿
	Delete(userID, id string) error

	// WithContext 创建带有上下文的仓储
	WithContext(ctx context.Context) PresentationRepository
}
