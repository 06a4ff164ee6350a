package editor

import (
	"strings"
	"sync"
	"time"

	"github.com/fyerfyer/slideai/internal/slides"
)

// DefaultTitle 新建演示文稿的默认标题
const DefaultTitle = "Untitled Presentation"

// WelcomeDeck 新会话的初始文档
const WelcomeDeck = "# Welcome to SlideAI\n\n" +
	"## Create beautiful presentations with Markdown\n\n" +
	"- Write in **Markdown**\n" +
	"- Get beautiful slides\n" +
	"- Enhanced by AI\n\n" +
	"---\n\n" +
	"## Features\n\n" +
	"- Code highlighting\n" +
	"- Math equations\n" +
	"- Diagrams\n" +
	"- AI enhancements\n\n" +
	"```javascript\n" +
	"// Here's some code\n" +
	"function greet() {\n" +
	"  return \"Hello, world!\";\n" +
	"}\n" +
	"```\n\n" +
	"---\n\n" +
	"## Get Started\n\n" +
	"1. Write your content in Markdown\n" +
	"2. Use --- to separate slides\n" +
	"3. Use AI to enhance your presentation\n" +
	"4. Export and share"

// Snapshot 会话状态快照
type Snapshot struct {
	ID             string    `json:"id"`
	PresentationID string    `json:"presentation_id,omitempty"`
	Title          string    `json:"title"`
	Markdown       string    `json:"markdown"`
	Preview        string    `json:"preview"`
	Slides         int       `json:"slides"`
	Revision       uint64    `json:"revision"`
	Version        int64     `json:"version"`
	Dirty          bool      `json:"dirty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SaveTicket 一次保存开始时的会话内容
type SaveTicket struct {
	Revision       uint64
	PresentationID string
	Title          string
	Markdown       string
	Version        int64
}

// Session 编辑会话
// 编辑器是文档的唯一来源，每次编辑都会同步重新计算预览
type Session struct {
	mu sync.Mutex

	id             string
	userID         string
	presentationID string
	title          string
	version        int64

	editor     *Editor
	renderer   *slides.Renderer
	preview    string
	slideCount int

	revision      uint64 // 每次编辑或改名加一
	savedRevision uint64 // 最近一次成功保存对应的revision
	creating      bool   // 新文稿的创建请求尚未返回
	updatedAt     time.Time
}

// newSession 创建会话，初始文本视为已保存状态
func newSession(id, userID string, renderer *slides.Renderer, presentationID, title, markdown string, version int64) *Session {
	if renderer == nil {
		renderer = slides.NewRenderer()
	}
	if strings.TrimSpace(title) == "" {
		title = DefaultTitle
	}

	s := &Session{
		id:             id,
		userID:         userID,
		presentationID: presentationID,
		title:          title,
		version:        version,
		renderer:       renderer,
		updatedAt:      time.Now(),
	}
	s.editor = New(markdown, s.render)

	// 尚未保存过的新文稿从一开始就是脏的
	if presentationID == "" {
		s.revision = 1
	}
	return s
}

// render 编辑器回调，重新计算第一张幻灯片的预览
func (s *Session) render(markdown string) {
	s.preview = s.renderer.Preview(markdown)
	s.slideCount = slides.Count(markdown)
}

// ID 返回会话ID
func (s *Session) ID() string {
	return s.id
}

// UserID 返回会话所属用户
func (s *Session) UserID() string {
	return s.userID
}

// Edit 处理一次编辑事件
func (s *Session) Edit(markdown string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.editor.SetText(markdown)
	s.revision++
	s.updatedAt = time.Now()
	return s.snapshotLocked()
}

// Rename 修改标题
func (s *Session) Rename(title string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if title != s.title {
		s.title = title
		s.revision++
		s.updatedAt = time.Now()
	}
	return s.snapshotLocked()
}

// Snapshot 返回当前状态
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// BeginSave 记录保存开始时的内容，保存请求期间允许继续编辑
// 新文稿同一时间只允许一个创建请求，否则返回ErrSaveInProgress
func (s *Session) BeginSave() (SaveTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.presentationID == "" {
		if s.creating {
			return SaveTicket{}, ErrSaveInProgress
		}
		s.creating = true
	}

	return SaveTicket{
		Revision:       s.revision,
		PresentationID: s.presentationID,
		Title:          s.title,
		Markdown:       s.editor.Text(),
		Version:        s.version,
	}, nil
}

// AbortSave 保存失败时释放创建占用
func (s *Session) AbortSave(ticket SaveTicket) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ticket.PresentationID == "" {
		s.creating = false
	}
}

// CompleteSave 保存成功后更新会话
// 保存期间若有新的编辑，会话仍保持脏状态，旧响应不会覆盖新内容
func (s *Session) CompleteSave(ticket SaveTicket, presentationID string, version int64) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ticket.PresentationID == "" {
		s.creating = false
	}
	s.presentationID = presentationID
	if version > s.version {
		s.version = version
	}
	if ticket.Revision > s.savedRevision {
		s.savedRevision = ticket.Revision
	}
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		ID:             s.id,
		PresentationID: s.presentationID,
		Title:          s.title,
		Markdown:       s.editor.Text(),
		Preview:        s.preview,
		Slides:         s.slideCount,
		Revision:       s.revision,
		Version:        s.version,
		Dirty:          s.revision != s.savedRevision,
		UpdatedAt:      s.updatedAt,
	}
}
