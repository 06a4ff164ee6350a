package editor

import (
	"errors"
	"time"

	"github.com/fyerfyer/slideai/internal/slides"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

var (
	// ErrSessionNotFound 会话不存在或已过期
	ErrSessionNotFound = errors.New("editing session not found")
	// ErrSaveInProgress 新文稿的首次保存还未完成
	ErrSaveInProgress = errors.New("presentation is still being created")
)

// ManagerConfig 会话管理配置
type ManagerConfig struct {
	IdleTTL         time.Duration // 会话空闲过期时间
	CleanupInterval time.Duration // 过期清理间隔
	Sanitize        bool          // 预览是否净化
}

// DefaultManagerConfig 返回默认配置
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		IdleTTL:         2 * time.Hour,
		CleanupInterval: 10 * time.Minute,
	}
}

// Manager 编辑会话管理器，会话只存在于内存中
type Manager struct {
	sessions *gocache.Cache
	renderer *slides.Renderer
	ttl      time.Duration
}

// NewManager 创建会话管理器
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 2 * time.Hour
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 10 * time.Minute
	}

	return &Manager{
		sessions: gocache.New(cfg.IdleTTL, cfg.CleanupInterval),
		renderer: slides.NewRenderer(slides.WithSanitize(cfg.Sanitize)),
		ttl:      cfg.IdleTTL,
	}
}

// Create 为新文稿打开会话，文档为欢迎内容
func (m *Manager) Create(userID string) *Session {
	s := newSession(uuid.New().String(), userID, m.renderer, "", DefaultTitle, WelcomeDeck, 0)
	m.sessions.Set(s.ID(), s, m.ttl)
	return s
}

// Open 为已保存的文稿打开会话
func (m *Manager) Open(userID, presentationID, title, markdown string, version int64) *Session {
	s := newSession(uuid.New().String(), userID, m.renderer, presentationID, title, markdown, version)
	m.sessions.Set(s.ID(), s, m.ttl)
	return s
}

// Get 获取会话并刷新过期时间
// 不属于该用户的会话同样视为不存在
func (m *Manager) Get(id, userID string) (*Session, error) {
	v, found := m.sessions.Get(id)
	if !found {
		return nil, ErrSessionNotFound
	}
	s, ok := v.(*Session)
	if !ok || s.UserID() != userID {
		return nil, ErrSessionNotFound
	}

	m.sessions.Set(id, s, m.ttl)
	return s, nil
}

// Close 关闭会话
func (m *Manager) Close(id, userID string) error {
	if _, err := m.Get(id, userID); err != nil {
		return err
	}
	m.sessions.Delete(id)
	return nil
}

// Count 返回当前会话数量
func (m *Manager) Count() int {
	return m.sessions.ItemCount()
}
