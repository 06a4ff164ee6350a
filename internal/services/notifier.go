package services

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// NoticeLevel 通知级别
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// 用户可见的通知消息
const (
	MsgCreated      = "Presentation created successfully"
	MsgSaved        = "Presentation saved successfully"
	MsgDeleted      = "Presentation deleted successfully"
	MsgCreateFailed = "Failed to create presentation"
	MsgSaveFailed   = "Failed to save presentation"
	MsgDeleteFailed = "Failed to delete presentation"
)

// Notice 一条短暂的用户通知
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
	UserID  string      `json:"-"`
	Time    time.Time   `json:"time"`
}

// Notifier 通知发送接口
type Notifier interface {
	Notify(n Notice)
}

// LogNotifier 将通知写入日志
type LogNotifier struct {
	logger *logrus.Logger
}

// NewLogNotifier 创建日志通知器
func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogNotifier{logger: logger}
}

// Notify 记录通知
func (n *LogNotifier) Notify(notice Notice) {
	entry := n.logger.WithFields(logrus.Fields{
		"user_id": notice.UserID,
		"notice":  notice.Level,
	})
	if notice.Level == NoticeError {
		entry.Warn(notice.Message)
		return
	}
	entry.Info(notice.Message)
}

// MultiNotifier 把通知分发给多个通知器
type MultiNotifier []Notifier

// Notify 依次发送通知
func (m MultiNotifier) Notify(notice Notice) {
	for _, n := range m {
		n.Notify(notice)
	}
}

// NoticeBoard 按用户暂存最近的通知，客户端取走后清空
type NoticeBoard struct {
	mu       sync.Mutex
	notices  *gocache.Cache
	capacity int
}

// NewNoticeBoard 创建通知板，ttl内未被取走的通知会过期
func NewNoticeBoard(ttl time.Duration, capacity int) *NoticeBoard {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if capacity <= 0 {
		capacity = 20
	}
	return &NoticeBoard{
		notices:  gocache.New(ttl, ttl*2),
		capacity: capacity,
	}
}

// Notify 暂存通知，超过容量时丢弃最早的一条
func (b *NoticeBoard) Notify(notice Notice) {
	if notice.UserID == "" {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var list []Notice
	if v, found := b.notices.Get(notice.UserID); found {
		list = v.([]Notice)
	}
	list = append(list, notice)
	if len(list) > b.capacity {
		list = list[len(list)-b.capacity:]
	}
	b.notices.SetDefault(notice.UserID, list)
}

// Drain 取走用户的全部通知
func (b *NoticeBoard) Drain(userID string) []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()

	v, found := b.notices.Get(userID)
	if !found {
		return []Notice{}
	}
	b.notices.Delete(userID)
	return v.([]Notice)
}
