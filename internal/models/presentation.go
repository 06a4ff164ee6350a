package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Presentation 演示文稿数据模型
type Presentation struct {
	ID        string         `gorm:"primaryKey;size:36"`     // 文稿ID，主键
	UserID    string         `gorm:"not null;index;size:64"` // 所属用户
	Title     string         `gorm:"not null"`               // 标题
	Markdown  string         `gorm:"type:text"`              // Markdown源文本
	Version   int64          `gorm:"not null;default:1"`     // 乐观锁版本号，每次更新加一
	Settings  datatypes.JSON `gorm:"type:json"`              // 编辑器设置（主题等），JSON格式
	CreatedAt time.Time      `gorm:"not null;index"`         // 创建时间
	UpdatedAt time.Time      `gorm:"not null;index"`         // 更新时间
}

// BeforeCreate GORM的钩子函数，创建记录前自动设置时间和初始版本
func (p *Presentation) BeforeCreate(tx *gorm.DB) (err error) {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if p.Version == 0 {
		p.Version = 1
	}
	return nil
}

// TableName 明确指定表名
func (Presentation) TableName() string {
	return "presentations"
}
