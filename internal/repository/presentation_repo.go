package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fyerfyer/slideai/internal/database"
	"github.com/fyerfyer/slideai/internal/models"
	"gorm.io/gorm"
)

// presentationRepo 文稿仓储实现
type presentationRepo struct {
	db *gorm.DB // 数据库连接
}

// NewPresentationRepository 使用全局数据库连接创建文稿仓储
func NewPresentationRepository() PresentationRepository {
	return &presentationRepo{
		db: database.MustDB(),
	}
}

// NewPresentationRepositoryWithDB 使用指定的数据库连接创建文稿仓储
func NewPresentationRepositoryWithDB(db *gorm.DB) PresentationRepository {
	if db == nil {
		db = database.MustDB()
	}
	return &presentationRepo{
		db: db,
	}
}

// WithContext 创建带有上下文的仓储
func (r *presentationRepo) WithContext(ctx context.Context) PresentationRepository {
	return &presentationRepo{
		db: r.db.WithContext(ctx),
	}
}

// Create 创建文稿记录
func (r *presentationRepo) Create(p *models.Presentation) error {
	if p.ID == "" {
		return errors.New("presentation ID cannot be empty")
	}
	if p.UserID == "" {
		return errors.New("presentation user ID cannot be empty")
	}

	return r.db.Create(p).Error
}

// GetByID 根据ID获取文稿
func (r *presentationRepo) GetByID(userID, id string) (*models.Presentation, error) {
	var p models.Presentation
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrPresentationNotFound, id)
		}
		return nil, err
	}
	return &p, nil
}

// List 列出用户的文稿
func (r *presentationRepo) List(userID string, offset, limit int) ([]*models.Presentation, int64, error) {
	var items []*models.Presentation
	var total int64

	query := r.db.Model(&models.Presentation{}).Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("updated_at DESC").Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&items).Error; err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// Update 部分更新文稿
// 版本号检查和自增在同一条UPDATE语句中完成
func (r *presentationRepo) Update(userID, id string, update PresentationUpdate) (*models.Presentation, error) {
	var updated *models.Presentation

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var current models.Presentation
		err := tx.Where("id = ? AND user_id = ?", id, userID).First(&current).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", models.ErrPresentationNotFound, id)
			}
			return err
		}

		if update.ExpectedVersion != nil && *update.ExpectedVersion != current.Version {
			return fmt.Errorf("%w: expected version %d, current %d",
				models.ErrVersionConflict, *update.ExpectedVersion, current.Version)
		}

		fields := map[string]interface{}{
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		}
		if update.Title != nil {
			fields["title"] = *update.Title
		}
		if update.Markdown != nil {
			fields["markdown"] = *update.Markdown
		}
		if update.Settings != nil {
			fields["settings"] = update.Settings
		}

		result := tx.Model(&models.Presentation{}).
			Where("id = ? AND user_id = ? AND version = ?", id, userID, current.Version).
			Updates(fields)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", models.ErrVersionConflict, id)
		}

		var fresh models.Presentation
		if err := tx.Where("id = ?", id).First(&fresh).Error; err != nil {
			return err
		}
		updated = &fresh
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// Delete 删除文稿
func (r *presentationRepo) Delete(userID, id string) error {
	result := r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Presentation{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", models.ErrPresentationNotFound, id)
	}
	return nil
}
