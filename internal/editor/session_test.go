package editor

import (
	"testing"
	"time"

	"github.com/fyerfyer/slideai/internal/slides"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_Create(t *testing.T) {
	m := NewManager(DefaultManagerConfig())

	s := m.Create("user-1")
	snap := s.Snapshot()

	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, DefaultTitle, snap.Title)
	assert.Equal(t, WelcomeDeck, snap.Markdown)
	assert.Equal(t, 3, snap.Slides)
	assert.Equal(t, slides.Preview(WelcomeDeck), snap.Preview)
	assert.Contains(t, snap.Preview, "<h1>Welcome to SlideAI</h1>")
	assert.True(t, snap.Dirty)
	assert.Equal(t, 1, m.Count())
}

func TestManager_GetChecksOwner(t *testing.T) {
	m := NewManager(DefaultManagerConfig())
	s := m.Create("user-1")

	got, err := m.Get(s.ID(), "user-1")
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = m.Get(s.ID(), "user-2")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = m.Get("missing", "user-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.ErrorIs(t, m.Close(s.ID(), "user-2"), ErrSessionNotFound)
	require.NoError(t, m.Close(s.ID(), "user-1"))
	_, err = m.Get(s.ID(), "user-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_Expiry(t *testing.T) {
	m := NewManager(ManagerConfig{IdleTTL: 50 * time.Millisecond, CleanupInterval: 10 * time.Millisecond})
	s := m.Create("user-1")

	time.Sleep(120 * time.Millisecond)
	_, err := m.Get(s.ID(), "user-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSession_EditRecomputesPreview(t *testing.T) {
	m := NewManager(DefaultManagerConfig())
	s := m.Open("user-1", "p-1", "Deck", "# Old", 3)

	snap := s.Snapshot()
	assert.Equal(t, "<h1>Old</h1>", snap.Preview)
	assert.False(t, snap.Dirty)
	assert.Equal(t, int64(3), snap.Version)

	snap = s.Edit("Slide A\n---\nSlide B")
	assert.Equal(t, "Slide A", snap.Preview)
	assert.Equal(t, 2, snap.Slides)
	assert.True(t, snap.Dirty)

	snap = s.Edit("   ")
	assert.Equal(t, slides.Preview(""), snap.Preview)
	assert.Equal(t, 0, snap.Slides)
}

func TestSession_OpenWithBlankTitle(t *testing.T) {
	m := NewManager(DefaultManagerConfig())
	s := m.Open("user-1", "p-1", "  ", "x", 1)
	assert.Equal(t, DefaultTitle, s.Snapshot().Title)
}

// TestSession_SaveRace 保存期间的新编辑不会被保存响应标记为已保存
func TestSession_SaveRace(t *testing.T) {
	m := NewManager(DefaultManagerConfig())
	s := m.Open("user-1", "p-1", "Deck", "v1", 1)

	s.Edit("v2")
	ticket, err := s.BeginSave()
	require.NoError(t, err)
	assert.Equal(t, "v2", ticket.Markdown)
	assert.Equal(t, int64(1), ticket.Version)

	// 保存请求还在进行时继续编辑
	s.Edit("v3")

	snap := s.CompleteSave(ticket, "p-1", 2)
	assert.True(t, snap.Dirty)
	assert.Equal(t, "v3", snap.Markdown)
	assert.Equal(t, int64(2), snap.Version)

	ticket, err = s.BeginSave()
	require.NoError(t, err)
	snap = s.CompleteSave(ticket, "p-1", 3)
	assert.False(t, snap.Dirty)
	assert.Equal(t, int64(3), snap.Version)
}

func TestSession_SaveAssignsPresentationID(t *testing.T) {
	m := NewManager(DefaultManagerConfig())
	s := m.Create("user-1")

	snap := s.Rename("My Deck")
	assert.Equal(t, "My Deck", snap.Title)

	ticket, err := s.BeginSave()
	require.NoError(t, err)
	assert.Empty(t, ticket.PresentationID)

	snap = s.CompleteSave(ticket, "p-new", 1)
	assert.Equal(t, "p-new", snap.PresentationID)
	assert.False(t, snap.Dirty)

	// 同名改名不算修改
	snap = s.Rename("My Deck")
	assert.False(t, snap.Dirty)
}

// TestSession_SingleCreateInFlight 新文稿的创建请求未返回前不能再次保存
func TestSession_SingleCreateInFlight(t *testing.T) {
	m := NewManager(DefaultManagerConfig())
	s := m.Create("user-1")

	first, err := s.BeginSave()
	require.NoError(t, err)

	_, err = s.BeginSave()
	assert.ErrorIs(t, err, ErrSaveInProgress)

	// 创建失败后可以重新保存
	s.AbortSave(first)
	retry, err := s.BeginSave()
	require.NoError(t, err)

	s.CompleteSave(retry, "p-1", 1)

	// 已有文稿的更新可以并行，由版本号兜底
	a, err := s.BeginSave()
	require.NoError(t, err)
	b, err := s.BeginSave()
	require.NoError(t, err)
	assert.Equal(t, "p-1", a.PresentationID)
	assert.Equal(t, "p-1", b.PresentationID)
}

func TestManager_SanitizedPreview(t *testing.T) {
	m := NewManager(ManagerConfig{Sanitize: true})
	s := m.Open("user-1", "p-1", "Deck", "# Hi\n<script>x()</script>", 1)
	assert.NotContains(t, s.Snapshot().Preview, "<script>")
}
