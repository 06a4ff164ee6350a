package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fyerfyer/slideai/api/handler"
	"github.com/fyerfyer/slideai/api/middleware"
	"github.com/fyerfyer/slideai/internal/cache"
	"github.com/fyerfyer/slideai/internal/database"
	"github.com/fyerfyer/slideai/internal/editor"
	"github.com/fyerfyer/slideai/internal/gateway"
	"github.com/fyerfyer/slideai/internal/repository"
	"github.com/fyerfyer/slideai/internal/services"
	"github.com/fyerfyer/slideai/internal/slides"
	"github.com/fyerfyer/slideai/pkg/storage"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// 测试环境
type testEnv struct {
	Router   *gin.Engine
	Sessions *editor.Manager
	Board    *services.NoticeBoard
}

// envelope 通用响应结构，data延迟解析
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	TraceID string          `json:"trace_id"`
}

func setupTestEnv(t *testing.T) *testEnv {
	gin.SetMode(gin.TestMode)
	middleware.GetLogger().SetOutput(io.Discard)

	dsn := fmt.Sprintf("file:api_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	backend, err := cache.NewMemoryCache(cache.DefaultConfig())
	require.NoError(t, err)
	board := services.NewNoticeBoard(time.Minute, 20)

	gw := gateway.NewLocalGateway(repository.NewPresentationRepositoryWithDB(db))
	presentations := services.NewPresentationService(gw,
		services.WithPresentationCache(cache.NewPresentationCache(backend, time.Minute)),
		services.WithNotifier(services.MultiNotifier{services.NewLogNotifier(logger), board}),
		services.WithLogger(logger),
	)

	store, err := storage.NewLocalStorage(storage.LocalConfig{Path: t.TempDir()})
	require.NoError(t, err)
	exports := services.NewExportService(presentations, store, services.WithExportLogger(logger))

	sessions := editor.NewManager(editor.DefaultManagerConfig())
	router, err := SetupRouter(Handlers{
		Preview:       handler.NewPreviewHandler(slides.NewRenderer()),
		Presentations: handler.NewPresentationHandler(presentations, exports),
		Sessions:      handler.NewSessionHandler(sessions, presentations),
		Exports:       handler.NewExportHandler(exports, "pdf"),
		Notices:       handler.NewNoticeHandler(board),
	})
	require.NoError(t, err)

	return &testEnv{Router: router, Sessions: sessions, Board: board}
}

// do 发送请求，userID为空时不带用户头
func (e *testEnv) do(t *testing.T, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set(middleware.UserHeader, userID)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// decode 解析响应信封并把data解到out中
func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) envelope {
	t.Helper()
	var resp envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	if out != nil && len(resp.Data) > 0 {
		require.NoError(t, json.Unmarshal(resp.Data, out))
	}
	return resp
}

type presentationBody struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Markdown   string          `json:"markdown"`
	Version    int64           `json:"version"`
	SlideCount int             `json:"slide_count"`
	Settings   json.RawMessage `json:"settings"`
}

func (e *testEnv) createPresentation(t *testing.T, userID, title, markdown string) presentationBody {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/presentations", userID, map[string]string{
		"title":    title,
		"markdown": markdown,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var p presentationBody
	decode(t, w, &p)
	return p
}

func TestHealth(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
}

func TestPreview(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/preview", "", map[string]string{
		"markdown": "# Hello **world**\n- a\n- b\n---\n# Second",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var preview struct {
		Slides int    `json:"slides"`
		HTML   string `json:"html"`
	}
	resp := decode(t, w, &preview)
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, 2, preview.Slides)
	assert.Equal(t, "<h1>Hello <strong>world</strong></h1>\n<ul><li>a</li>\n<li>b</li></ul>", preview.HTML)
}

func TestPreview_EmptyDocumentShowsPlaceholder(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/preview", "", map[string]string{"markdown": ""})
	require.Equal(t, http.StatusOK, w.Code)

	var preview struct {
		Slides int    `json:"slides"`
		HTML   string `json:"html"`
	}
	decode(t, w, &preview)
	assert.Equal(t, 0, preview.Slides)
	assert.Equal(t, slides.Render(slides.Placeholder), preview.HTML)
}

func TestPreview_MissingMarkdown(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/preview", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	resp := decode(t, w, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "Invalid request parameters", resp.Message)
	assert.Equal(t, w.Header().Get("X-Trace-ID"), resp.TraceID)
}

func TestRequireUser(t *testing.T) {
	env := setupTestEnv(t)

	for _, path := range []string{"/api/presentations", "/api/notices"} {
		w := env.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		resp := decode(t, w, nil)
		assert.Equal(t, "missing X-User-ID header", resp.Message)
	}
}

func TestPresentationCRUD(t *testing.T) {
	env := setupTestEnv(t)

	created := env.createPresentation(t, "alice", "Quarterly Review", "# One\n---\n# Two\n---\n# Three")
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 3, created.SlideCount)
	assert.Equal(t, int64(1), created.Version)

	// 列表
	w := env.do(t, http.MethodGet, "/api/presentations", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Total         int `json:"total"`
		Presentations []struct {
			ID         string `json:"id"`
			Title      string `json:"title"`
			SlideCount int    `json:"slide_count"`
		} `json:"presentations"`
	}
	decode(t, w, &list)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, created.ID, list.Presentations[0].ID)
	assert.Equal(t, 3, list.Presentations[0].SlideCount)

	// 其他用户看不到
	w = env.do(t, http.MethodGet, "/api/presentations/"+created.ID, "bob", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 更新标题
	w = env.do(t, http.MethodPatch, "/api/presentations/"+created.ID, "alice", map[string]interface{}{
		"title":   "Q3 Review",
		"version": created.Version,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated presentationBody
	decode(t, w, &updated)
	assert.Equal(t, "Q3 Review", updated.Title)
	assert.Equal(t, created.Markdown, updated.Markdown)
	assert.Equal(t, int64(2), updated.Version)

	// 读到的是更新后的内容
	w = env.do(t, http.MethodGet, "/api/presentations/"+created.ID, "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var fetched presentationBody
	decode(t, w, &fetched)
	assert.Equal(t, "Q3 Review", fetched.Title)

	// 删除
	w = env.do(t, http.MethodDelete, "/api/presentations/"+created.ID, "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/presentations/"+created.ID, "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodDelete, "/api/presentations/"+created.ID, "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPresentationCreate_DefaultTitle(t *testing.T) {
	env := setupTestEnv(t)

	created := env.createPresentation(t, "alice", "  ", "# Hi")
	assert.Equal(t, editor.DefaultTitle, created.Title)
}

func TestPresentationUpdate_Conflict(t *testing.T) {
	env := setupTestEnv(t)
	created := env.createPresentation(t, "alice", "Deck", "# A")

	w := env.do(t, http.MethodPatch, "/api/presentations/"+created.ID, "alice", map[string]interface{}{
		"markdown": "# B",
		"version":  created.Version,
	})
	require.Equal(t, http.StatusOK, w.Code)

	// 使用过期的版本号
	w = env.do(t, http.MethodPatch, "/api/presentations/"+created.ID, "alice", map[string]interface{}{
		"markdown": "# C",
		"version":  created.Version,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	resp := decode(t, w, nil)
	assert.True(t, strings.HasPrefix(resp.Message, services.MsgSaveFailed), resp.Message)

	w = env.do(t, http.MethodGet, "/api/presentations/"+created.ID, "alice", nil)
	var fetched presentationBody
	decode(t, w, &fetched)
	assert.Equal(t, "# B", fetched.Markdown)
}

func TestPresentationUpdate_Validation(t *testing.T) {
	env := setupTestEnv(t)
	created := env.createPresentation(t, "alice", "Deck", "# A")

	w := env.do(t, http.MethodPatch, "/api/presentations/"+created.ID, "alice", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w, nil)
	assert.Equal(t, services.ErrEmptyUpdate.Error(), resp.Message)

	w = env.do(t, http.MethodPatch, "/api/presentations/"+created.ID, "alice", map[string]interface{}{
		"title": "   ",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPresentationSettings(t *testing.T) {
	env := setupTestEnv(t)
	created := env.createPresentation(t, "alice", "Deck", "# A")
	assert.Empty(t, created.Settings)

	w := env.do(t, http.MethodPatch, "/api/presentations/"+created.ID, "alice", map[string]interface{}{
		"settings": map[string]string{"theme": "dark"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/presentations/"+created.ID, "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got presentationBody
	decode(t, w, &got)
	assert.JSONEq(t, `{"theme":"dark"}`, string(got.Settings))
	assert.Equal(t, "# A", got.Markdown)

	w = env.do(t, http.MethodPatch, "/api/presentations/"+created.ID, "alice", map[string]interface{}{
		"settings": []string{"dark"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w, nil)
	assert.Equal(t, "Invalid request parameters", resp.Message)
}

func TestPresentationDownload(t *testing.T) {
	env := setupTestEnv(t)
	created := env.createPresentation(t, "alice", "My Talk: v2", "# A\n---\n# B")

	w := env.do(t, http.MethodGet, "/api/presentations/"+created.ID+"/download", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="MyTalkv2.md"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "# A\n---\n# B", w.Body.String())
}

func TestSessionFlow(t *testing.T) {
	env := setupTestEnv(t)

	// 新会话从欢迎内容开始
	w := env.do(t, http.MethodPost, "/api/sessions", "alice", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var snap editor.Snapshot
	decode(t, w, &snap)
	assert.Equal(t, editor.DefaultTitle, snap.Title)
	assert.Equal(t, editor.WelcomeDeck, snap.Markdown)
	assert.True(t, snap.Dirty)
	sessionPath := "/api/sessions/" + snap.ID

	// 编辑后预览同步更新
	w = env.do(t, http.MethodPut, sessionPath+"/text", "alice", map[string]string{
		"markdown": "# Intro\n---\n# Details",
	})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &snap)
	assert.Equal(t, "<h1>Intro</h1>", snap.Preview)
	assert.Equal(t, 2, snap.Slides)

	w = env.do(t, http.MethodPut, sessionPath+"/title", "alice", map[string]string{"title": "Kickoff"})
	require.Equal(t, http.StatusOK, w.Code)

	// 保存新文稿
	w = env.do(t, http.MethodPost, sessionPath+"/save", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &snap)
	assert.NotEmpty(t, snap.PresentationID)
	assert.False(t, snap.Dirty)
	presentationID := snap.PresentationID

	w = env.do(t, http.MethodGet, "/api/presentations/"+presentationID, "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var saved presentationBody
	decode(t, w, &saved)
	assert.Equal(t, "Kickoff", saved.Title)
	assert.Equal(t, "# Intro\n---\n# Details", saved.Markdown)

	// 再次编辑并保存走更新
	w = env.do(t, http.MethodPut, sessionPath+"/text", "alice", map[string]string{"markdown": "# Updated"})
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodPost, sessionPath+"/save", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &snap)
	assert.Equal(t, presentationID, snap.PresentationID)
	assert.Equal(t, int64(2), snap.Version)

	// 会话只对所属用户可见
	w = env.do(t, http.MethodGet, sessionPath, "bob", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodDelete, sessionPath, "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodGet, sessionPath, "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionOpenExisting(t *testing.T) {
	env := setupTestEnv(t)
	created := env.createPresentation(t, "alice", "Deck", "# Saved")

	w := env.do(t, http.MethodPost, "/api/sessions", "alice", map[string]string{
		"presentation_id": created.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var snap editor.Snapshot
	decode(t, w, &snap)
	assert.Equal(t, created.ID, snap.PresentationID)
	assert.Equal(t, "# Saved", snap.Markdown)
	assert.Equal(t, "<h1>Saved</h1>", snap.Preview)
	assert.False(t, snap.Dirty)

	w = env.do(t, http.MethodPost, "/api/sessions", "bob", map[string]string{
		"presentation_id": created.ID,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionSave_StaleVersion(t *testing.T) {
	env := setupTestEnv(t)
	created := env.createPresentation(t, "alice", "Deck", "# A")

	w := env.do(t, http.MethodPost, "/api/sessions", "alice", map[string]string{"presentation_id": created.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	var snap editor.Snapshot
	decode(t, w, &snap)

	// 文稿在别处被修改
	w = env.do(t, http.MethodPatch, "/api/presentations/"+created.ID, "alice", map[string]interface{}{
		"markdown": "# Elsewhere",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPut, "/api/sessions/"+snap.ID+"/text", "alice", map[string]string{"markdown": "# Mine"})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/sessions/"+snap.ID+"/save", "alice", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// 会话内容保留
	w = env.do(t, http.MethodGet, "/api/sessions/"+snap.ID, "alice", nil)
	decode(t, w, &snap)
	assert.Equal(t, "# Mine", snap.Markdown)
	assert.True(t, snap.Dirty)
}

func TestExportInline(t *testing.T) {
	env := setupTestEnv(t)
	created := env.createPresentation(t, "alice", "Deck", "# A\n---\n# B")

	w := env.do(t, http.MethodPost, "/api/presentations/"+created.ID+"/exports", "alice", map[string]string{
		"format": "html",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var job services.ExportJob
	decode(t, w, &job)
	require.NotNil(t, job.Result)
	assert.Equal(t, "Deck.html", job.Result.Filename)

	w = env.do(t, http.MethodGet, "/api/exports/"+job.Result.FileID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="Deck.html"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, 2, strings.Count(w.Body.String(), `<section class="slide"`))

	// 同步模式下没有任务
	w = env.do(t, http.MethodGet, "/api/tasks/whatever", "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportInline_DefaultFormat(t *testing.T) {
	env := setupTestEnv(t)
	created := env.createPresentation(t, "alice", "Deck", "# A\n---\n# B\n---\n# C")

	w := env.do(t, http.MethodPost, "/api/presentations/"+created.ID+"/exports", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var job services.ExportJob
	decode(t, w, &job)
	require.NotNil(t, job.Result)
	assert.Equal(t, "Deck.pdf", job.Result.Filename)
	assert.Equal(t, 3, job.Result.Pages)

	w = env.do(t, http.MethodGet, "/api/exports/"+job.Result.FileID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))
}

func TestExport_Errors(t *testing.T) {
	env := setupTestEnv(t)
	created := env.createPresentation(t, "alice", "Deck", "# A")

	w := env.do(t, http.MethodPost, "/api/presentations/"+created.ID+"/exports", "alice", map[string]string{
		"format": "docx",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/presentations/missing/exports", "alice", map[string]string{
		"format": "pdf",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/exports/not-a-file", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportTasks_WithoutQueue(t *testing.T) {
	env := setupTestEnv(t)
	created := env.createPresentation(t, "alice", "Deck", "# A")

	w := env.do(t, http.MethodGet, "/api/presentations/"+created.ID+"/exports", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tasks []map[string]interface{}
	decode(t, w, &tasks)
	assert.Empty(t, tasks)

	w = env.do(t, http.MethodGet, "/api/tasks/t1", "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodDelete, "/api/tasks/t1", "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/tasks/t1/wait?timeout=forever", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/tasks/t1/wait?timeout=1s", "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNotices(t *testing.T) {
	env := setupTestEnv(t)
	env.createPresentation(t, "alice", "Deck", "# A")

	w := env.do(t, http.MethodGet, "/api/notices", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var notices struct {
		Notices []services.Notice `json:"notices"`
	}
	decode(t, w, &notices)
	require.Len(t, notices.Notices, 1)
	assert.Equal(t, services.NoticeSuccess, notices.Notices[0].Level)
	assert.Equal(t, services.MsgCreated, notices.Notices[0].Message)

	// 取走后清空
	w = env.do(t, http.MethodGet, "/api/notices", "alice", nil)
	decode(t, w, &notices)
	assert.Empty(t, notices.Notices)
}
