package services

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fyerfyer/slideai/internal/export"
	"github.com/fyerfyer/slideai/internal/gateway"
	"github.com/fyerfyer/slideai/pkg/storage"
	"github.com/fyerfyer/slideai/pkg/taskqueue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupExportService(t *testing.T, async bool) (*ExportService, *gateway.MockGateway, taskqueue.Queue) {
	t.Helper()
	presentations, gw, _ := setupPresentationService(t)

	store, err := storage.NewLocalStorage(storage.LocalConfig{Path: t.TempDir()})
	require.NoError(t, err)

	opts := []ExportOption{WithExportLogger(quietLogger())}
	var queue taskqueue.Queue
	if async {
		mr := miniredis.RunT(t)
		cfg := taskqueue.DefaultConfig()
		cfg.RedisAddr = mr.Addr()
		q, err := taskqueue.NewRedisQueue(cfg, quietLogger())
		require.NoError(t, err)
		t.Cleanup(func() { q.Close() })
		queue = q
		opts = append(opts, WithQueue(q))
	}

	return NewExportService(presentations, store, opts...), gw, queue
}

func readArtifact(t *testing.T, srv *ExportService, fileID string) (string, storage.FileInfo) {
	t.Helper()
	rc, info, err := srv.Open(context.Background(), fileID)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data), info
}

func TestExportService_Download(t *testing.T) {
	srv, gw, _ := setupExportService(t, false)
	p := samplePresentation("p1", 1)
	p.Title = "Q3 Review!"
	gw.On("Get", mock.Anything, "user-1", "p1").Return(p, nil).Once()

	artifact, err := srv.Download(context.Background(), "user-1", "p1")
	require.NoError(t, err)
	assert.Equal(t, "Q3Review.md", artifact.Filename)
	assert.Equal(t, p.Markdown, string(artifact.Data))
}

func TestExportService_DownloadNotFound(t *testing.T) {
	srv, gw, _ := setupExportService(t, false)
	gw.On("Get", mock.Anything, "user-1", "missing").Return(nil, gateway.ErrNotFound).Once()

	_, err := srv.Download(context.Background(), "user-1", "missing")
	assert.ErrorIs(t, err, gateway.ErrNotFound)
}

func TestExportService_InlineHTML(t *testing.T) {
	srv, gw, _ := setupExportService(t, false)
	assert.False(t, srv.Async())
	gw.On("Get", mock.Anything, "user-1", "p1").Return(samplePresentation("p1", 1), nil).Once()

	job, err := srv.Export(context.Background(), "user-1", "p1", export.FormatHTML)
	require.NoError(t, err)
	assert.Equal(t, taskqueue.StatusCompleted, job.Status)
	assert.Empty(t, job.TaskID)
	require.NotNil(t, job.Result)
	assert.Equal(t, "Deck.html", job.Result.Filename)
	assert.Equal(t, 2, job.Result.Slides)

	body, info := readArtifact(t, srv, job.Result.FileID)
	assert.Equal(t, "Deck.html", info.Name)
	assert.Equal(t, 2, strings.Count(body, `class="slide"`))

	// 同步模式下没有任务可查
	_, err = srv.Task(context.Background(), "user-1", "any")
	assert.ErrorIs(t, err, taskqueue.ErrTaskNotFound)
}

func TestExportService_InlinePDF(t *testing.T) {
	srv, gw, _ := setupExportService(t, false)
	gw.On("Get", mock.Anything, "user-1", "p1").Return(samplePresentation("p1", 1), nil).Once()

	job, err := srv.Export(context.Background(), "user-1", "p1", export.FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "Deck.pdf", job.Result.Filename)
	assert.Equal(t, 2, job.Result.Pages)
	assert.Equal(t, "application/pdf", job.Result.ContentType)

	body, _ := readArtifact(t, srv, job.Result.FileID)
	assert.True(t, strings.HasPrefix(body, "%PDF"))
	assert.Empty(t, job.Result.Warning)
}

func TestExportService_PDFWarnsAboutUnsupportedCharacters(t *testing.T) {
	srv, gw, _ := setupExportService(t, false)
	p := samplePresentation("p1", 1)
	p.Markdown = "# 季度回顾"
	gw.On("Get", mock.Anything, "user-1", "p1").Return(p, nil).Once()

	job, err := srv.Export(context.Background(), "user-1", "p1", export.FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "4 characters cannot be shown in PDF and were replaced: 季度回顾", job.Result.Warning)
}

func TestExportService_AsyncExport(t *testing.T) {
	srv, gw, queue := setupExportService(t, true)
	assert.True(t, srv.Async())
	ctx := context.Background()
	gw.On("Get", mock.Anything, "user-1", "p1").Return(samplePresentation("p1", 4), nil).Once()

	job, err := srv.Export(ctx, "user-1", "p1", export.FormatHTML)
	require.NoError(t, err)
	assert.Equal(t, taskqueue.StatusPending, job.Status)
	assert.Nil(t, job.Result)
	require.NotEmpty(t, job.TaskID)

	info, err := srv.Task(ctx, "user-1", job.TaskID)
	require.NoError(t, err)
	assert.Equal(t, taskqueue.StatusPending, info.Status)
	assert.Equal(t, "p1", info.PresentationID)

	// 其他用户看不到该任务
	_, err = srv.Task(ctx, "user-2", job.TaskID)
	assert.ErrorIs(t, err, taskqueue.ErrTaskNotFound)

	// 模拟工作者处理任务
	task, err := queue.GetTask(ctx, job.TaskID)
	require.NoError(t, err)
	var payload taskqueue.ExportPayload
	require.NoError(t, taskqueue.UnmarshalPayload(task.Payload, &payload))
	assert.Equal(t, int64(4), payload.Version)

	out, err := srv.Handler().ProcessTask(ctx, task)
	require.NoError(t, err)
	result, ok := out.(*taskqueue.ExportResult)
	require.True(t, ok)
	require.NoError(t, queue.UpdateTaskStatus(ctx, job.TaskID, taskqueue.StatusCompleted, result, ""))

	info, err = srv.Task(ctx, "user-1", job.TaskID)
	require.NoError(t, err)
	assert.Equal(t, taskqueue.StatusCompleted, info.Status)

	var stored taskqueue.ExportResult
	require.NoError(t, json.Unmarshal(info.Result, &stored))
	assert.Equal(t, result.FileID, stored.FileID)

	body, _ := readArtifact(t, srv, stored.FileID)
	assert.Contains(t, body, "<h1")
}

func TestExportService_HandlerRejectsBadPayload(t *testing.T) {
	srv, _, _ := setupExportService(t, false)

	_, err := srv.Handler().ProcessTask(context.Background(), &taskqueue.Task{ID: "t"})
	assert.ErrorIs(t, err, taskqueue.ErrInvalidPayload)

	_, err = srv.Handler().ProcessTask(context.Background(), &taskqueue.Task{
		ID:        "t",
		Payload:   json.RawMessage(`{"format":"docx","title":"x","markdown":"y"}`),
		CreatedAt: time.Now(),
	})
	assert.Error(t, err)
}

func TestExportService_TasksWaitCancel(t *testing.T) {
	srv, gw, queue := setupExportService(t, true)
	ctx := context.Background()
	gw.On("Get", mock.Anything, "user-1", "p1").Return(samplePresentation("p1", 2), nil).Once()

	first, err := srv.Export(ctx, "user-1", "p1", export.FormatHTML)
	require.NoError(t, err)
	second, err := srv.Export(ctx, "user-1", "p1", export.FormatMarkdown)
	require.NoError(t, err)

	infos, err := srv.Tasks(ctx, "user-1", "p1")
	require.NoError(t, err)
	assert.Len(t, infos, 2)

	infos, err = srv.Tasks(ctx, "user-2", "p1")
	require.NoError(t, err)
	assert.Empty(t, infos)

	// 未完成的任务等待超时后返回当前状态
	info, err := srv.Wait(ctx, "user-1", first.TaskID, 200*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, taskqueue.StatusPending, info.Status)

	require.NoError(t, queue.UpdateTaskStatus(ctx, first.TaskID, taskqueue.StatusCompleted, &taskqueue.ExportResult{FileID: "f1"}, ""))
	info, err = srv.Wait(ctx, "user-1", first.TaskID, time.Second)
	require.NoError(t, err)
	assert.Equal(t, taskqueue.StatusCompleted, info.Status)

	assert.ErrorIs(t, srv.Cancel(ctx, "user-2", second.TaskID), taskqueue.ErrTaskNotFound)
	require.NoError(t, srv.Cancel(ctx, "user-1", second.TaskID))

	_, err = srv.Task(ctx, "user-1", second.TaskID)
	assert.ErrorIs(t, err, taskqueue.ErrTaskNotFound)

	infos, err = srv.Tasks(ctx, "user-1", "p1")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, first.TaskID, infos[0].ID)
}

func TestExportService_TasksWithoutQueue(t *testing.T) {
	srv, _, _ := setupExportService(t, false)
	ctx := context.Background()

	infos, err := srv.Tasks(ctx, "user-1", "p1")
	require.NoError(t, err)
	assert.Empty(t, infos)

	assert.ErrorIs(t, srv.Cancel(ctx, "user-1", "t1"), taskqueue.ErrTaskNotFound)
}
