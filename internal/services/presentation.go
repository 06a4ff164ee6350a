package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fyerfyer/slideai/internal/cache"
	"github.com/fyerfyer/slideai/internal/editor"
	"github.com/fyerfyer/slideai/internal/gateway"
	"github.com/sirupsen/logrus"
)

var (
	// ErrEmptyUpdate 更新请求没有任何字段
	ErrEmptyUpdate = errors.New("no fields to update")
	// ErrInvalidSettings 设置不是JSON对象
	ErrInvalidSettings = errors.New("settings must be a JSON object")
)

// PresentationService 文稿服务
// 负责协调持久化网关、缓存和用户通知，网关错误原样返回给调用方
type PresentationService struct {
	gateway  gateway.Gateway          // 持久化网关
	cache    *cache.PresentationCache // 文稿缓存，可为空
	notifier Notifier                 // 用户通知
	logger   *logrus.Logger           // 日志记录器
}

// PresentationOption 文稿服务配置选项
type PresentationOption func(*PresentationService)

// NewPresentationService 创建文稿服务
func NewPresentationService(gw gateway.Gateway, opts ...PresentationOption) *PresentationService {
	srv := &PresentationService{
		gateway: gw,
		logger:  logrus.New(),
	}

	for _, opt := range opts {
		opt(srv)
	}

	if srv.notifier == nil {
		srv.notifier = NewLogNotifier(srv.logger)
	}
	return srv
}

// WithPresentationCache 设置文稿缓存
func WithPresentationCache(c *cache.PresentationCache) PresentationOption {
	return func(s *PresentationService) {
		s.cache = c
	}
}

// WithNotifier 设置通知器
func WithNotifier(n Notifier) PresentationOption {
	return func(s *PresentationService) {
		s.notifier = n
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) PresentationOption {
	return func(s *PresentationService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// List 列出用户的文稿，按更新时间倒序
func (s *PresentationService) List(ctx context.Context, userID string) ([]gateway.Summary, error) {
	if s.cache != nil {
		if list, found := s.cache.GetList(userID); found {
			return list, nil
		}
	}

	list, err := s.gateway.List(ctx, userID)
	if err != nil {
		s.logger.WithField("user_id", userID).Errorf("Error fetching presentations: %v", err)
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetList(userID, list); err != nil {
			s.logger.Warnf("Failed to cache presentation list: %v", err)
		}
	}
	return list, nil
}

// Get 获取单个文稿
func (s *PresentationService) Get(ctx context.Context, userID, id string) (*gateway.Presentation, error) {
	if s.cache != nil {
		if p, found := s.cache.Get(userID, id); found {
			return p, nil
		}
	}

	p, err := s.gateway.Get(ctx, userID, id)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"user_id":         userID,
			"presentation_id": id,
		}).Errorf("Error fetching presentation: %v", err)
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(p); err != nil {
			s.logger.Warnf("Failed to cache presentation: %v", err)
		}
	}
	return p, nil
}

// Create 创建文稿
func (s *PresentationService) Create(ctx context.Context, userID string, np gateway.NewPresentation) (*gateway.Presentation, error) {
	if np.Settings != nil && !gateway.ValidSettings(np.Settings) {
		return nil, ErrInvalidSettings
	}

	p, err := s.gateway.Create(ctx, userID, np)
	if err != nil {
		s.logger.WithField("user_id", userID).Errorf("Error creating presentation: %v", err)
		s.notify(userID, NoticeError, fmt.Sprintf("%s: %s", MsgCreateFailed, err.Error()))
		return nil, err
	}

	s.invalidateList(userID)
	s.logger.WithFields(logrus.Fields{
		"user_id":         userID,
		"presentation_id": p.ID,
	}).Info("Presentation created")
	s.notify(userID, NoticeSuccess, MsgCreated)
	return p, nil
}

// Update 部分更新文稿
func (s *PresentationService) Update(ctx context.Context, userID, id string, patch gateway.Patch) (*gateway.Presentation, error) {
	if patch.Empty() {
		return nil, ErrEmptyUpdate
	}
	if patch.Settings != nil && !gateway.ValidSettings(patch.Settings) {
		return nil, ErrInvalidSettings
	}

	p, err := s.gateway.Update(ctx, userID, id, patch)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"user_id":         userID,
			"presentation_id": id,
		}).Errorf("Error updating presentation: %v", err)
		s.notify(userID, NoticeError, fmt.Sprintf("%s: %s", MsgSaveFailed, err.Error()))
		// 冲突说明缓存中的记录可能已过期
		if errors.Is(err, gateway.ErrConflict) {
			s.invalidate(userID, id)
		}
		return nil, err
	}

	s.invalidate(userID, id)
	s.invalidateList(userID)
	s.logger.WithFields(logrus.Fields{
		"user_id":         userID,
		"presentation_id": id,
		"version":         p.Version,
	}).Info("Presentation updated")
	s.notify(userID, NoticeSuccess, MsgSaved)
	return p, nil
}

// Delete 删除文稿
func (s *PresentationService) Delete(ctx context.Context, userID, id string) error {
	if err := s.gateway.Delete(ctx, userID, id); err != nil {
		s.logger.WithFields(logrus.Fields{
			"user_id":         userID,
			"presentation_id": id,
		}).Errorf("Error deleting presentation: %v", err)
		s.notify(userID, NoticeError, fmt.Sprintf("%s: %s", MsgDeleteFailed, err.Error()))
		return err
	}

	s.invalidate(userID, id)
	s.invalidateList(userID)
	s.logger.WithFields(logrus.Fields{
		"user_id":         userID,
		"presentation_id": id,
	}).Info("Presentation deleted")
	s.notify(userID, NoticeSuccess, MsgDeleted)
	return nil
}

// Save 保存编辑会话
// 新文稿走创建，已有文稿携带版本号更新；失败时会话内容保持不变
func (s *PresentationService) Save(ctx context.Context, session *editor.Session) (editor.Snapshot, error) {
	ticket, err := session.BeginSave()
	if err != nil {
		return session.Snapshot(), err
	}
	userID := session.UserID()

	var p *gateway.Presentation
	if ticket.PresentationID == "" {
		p, err = s.Create(ctx, userID, gateway.NewPresentation{
			Title:    ticket.Title,
			Markdown: ticket.Markdown,
		})
	} else {
		version := ticket.Version
		p, err = s.Update(ctx, userID, ticket.PresentationID, gateway.Patch{
			Title:    &ticket.Title,
			Markdown: &ticket.Markdown,
			Version:  &version,
		})
	}
	if err != nil {
		session.AbortSave(ticket)
		return session.Snapshot(), err
	}

	snap := session.CompleteSave(ticket, p.ID, p.Version)
	s.logger.WithFields(logrus.Fields{
		"session_id":      session.ID(),
		"presentation_id": p.ID,
		"dirty":           snap.Dirty,
	}).Debug("Session saved")
	return snap, nil
}

// Open 为已保存的文稿打开编辑会话
func (s *PresentationService) Open(ctx context.Context, manager *editor.Manager, userID, id string) (*editor.Session, error) {
	p, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return manager.Open(userID, p.ID, p.Title, p.Markdown, p.Version), nil
}

func (s *PresentationService) notify(userID string, level NoticeLevel, message string) {
	s.notifier.Notify(Notice{
		Level:   level,
		Message: message,
		UserID:  userID,
		Time:    time.Now(),
	})
}

func (s *PresentationService) invalidate(userID, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(userID, id); err != nil {
		s.logger.Warnf("Failed to invalidate presentation cache: %v", err)
	}
}

func (s *PresentationService) invalidateList(userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateList(userID); err != nil {
		s.logger.Warnf("Failed to invalidate presentation list cache: %v", err)
	}
}
