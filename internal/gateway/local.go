package gateway

import (
	"context"
	"errors"

	"github.com/fyerfyer/slideai/internal/models"
	"github.com/fyerfyer/slideai/internal/repository"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// LocalGateway 基于本地数据库仓储的网关实现
type LocalGateway struct {
	repo repository.PresentationRepository
}

// NewLocalGateway 创建本地网关
func NewLocalGateway(repo repository.PresentationRepository) *LocalGateway {
	return &LocalGateway{repo: repo}
}

// List 列出用户的文稿
func (g *LocalGateway) List(ctx context.Context, userID string) ([]Summary, error) {
	items, _, err := g.repo.WithContext(ctx).List(userID, 0, 0)
	if err != nil {
		return nil, translate("list", err)
	}

	summaries := make([]Summary, 0, len(items))
	for _, item := range items {
		p := fromModel(item)
		summaries = append(summaries, Summarize(p))
	}
	return summaries, nil
}

// Get 获取单个文稿
func (g *LocalGateway) Get(ctx context.Context, userID, id string) (*Presentation, error) {
	item, err := g.repo.WithContext(ctx).GetByID(userID, id)
	if err != nil {
		return nil, translate("get", err)
	}
	return fromModel(item), nil
}

// Create 创建文稿，ID和时间戳由本地分配
func (g *LocalGateway) Create(ctx context.Context, userID string, p NewPresentation) (*Presentation, error) {
	item := &models.Presentation{
		ID:       uuid.New().String(),
		UserID:   userID,
		Title:    p.Title,
		Markdown: p.Markdown,
		Settings: p.Settings,
	}
	if err := g.repo.WithContext(ctx).Create(item); err != nil {
		return nil, translate("create", err)
	}
	return fromModel(item), nil
}

// Update 部分更新文稿
func (g *LocalGateway) Update(ctx context.Context, userID, id string, patch Patch) (*Presentation, error) {
	item, err := g.repo.WithContext(ctx).Update(userID, id, repository.PresentationUpdate{
		Title:           patch.Title,
		Markdown:        patch.Markdown,
		Settings:        patch.Settings,
		ExpectedVersion: patch.Version,
	})
	if err != nil {
		return nil, translate("update", err)
	}
	return fromModel(item), nil
}

// Delete 删除文稿
func (g *LocalGateway) Delete(ctx context.Context, userID, id string) error {
	if err := g.repo.WithContext(ctx).Delete(userID, id); err != nil {
		return translate("delete", err)
	}
	return nil
}

// translate 将仓储错误转换为网关错误
func translate(op string, err error) error {
	switch {
	case errors.Is(err, models.ErrPresentationNotFound):
		return ErrNotFound
	case errors.Is(err, models.ErrVersionConflict):
		return ErrConflict
	default:
		return newError(op, "%s presentation failed: %v", op, err)
	}
}

func fromModel(m *models.Presentation) *Presentation {
	return &Presentation{
		ID:        m.ID,
		Title:     m.Title,
		Markdown:  m.Markdown,
		UserID:    m.UserID,
		Version:   m.Version,
		Settings:  settingsOrNil(m.Settings),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// settingsOrNil 空列读出的null视为未设置
func settingsOrNil(raw datatypes.JSON) datatypes.JSON {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}
