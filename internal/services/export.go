package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/fyerfyer/slideai/internal/export"
	"github.com/fyerfyer/slideai/pkg/storage"
	"github.com/fyerfyer/slideai/pkg/taskqueue"
	"github.com/sirupsen/logrus"
)

// ExportJob 导出请求的处理结果
// 同步导出时Result直接可用，异步导出时通过TaskID查询进度
type ExportJob struct {
	TaskID string                  `json:"task_id,omitempty"`
	Status taskqueue.TaskStatus    `json:"status"`
	Result *taskqueue.ExportResult `json:"result,omitempty"`
}

// ExportService 文稿导出服务
type ExportService struct {
	presentations *PresentationService
	storage       storage.Storage
	queue         taskqueue.Queue // 为空时同步导出
	logger        *logrus.Logger
}

// ExportOption 导出服务配置选项
type ExportOption func(*ExportService)

// WithQueue 启用异步导出
func WithQueue(q taskqueue.Queue) ExportOption {
	return func(s *ExportService) {
		s.queue = q
	}
}

// WithExportLogger 设置日志记录器
func WithExportLogger(logger *logrus.Logger) ExportOption {
	return func(s *ExportService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewExportService 创建导出服务
func NewExportService(presentations *PresentationService, store storage.Storage, opts ...ExportOption) *ExportService {
	srv := &ExportService{
		presentations: presentations,
		storage:       store,
		logger:        logrus.New(),
	}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

// Async 是否通过任务队列导出
func (s *ExportService) Async() bool {
	return s.queue != nil
}

// Download 生成Markdown下载文件，不写入存储
func (s *ExportService) Download(ctx context.Context, userID, id string) (*export.Artifact, error) {
	p, err := s.presentations.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return export.Markdown(export.Deck{Title: p.Title, Markdown: p.Markdown}), nil
}

// Export 导出文稿
// 入队时保存文稿快照，之后的编辑不影响本次导出
func (s *ExportService) Export(ctx context.Context, userID, id string, format export.Format) (*ExportJob, error) {
	p, err := s.presentations.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	payload := taskqueue.ExportPayload{
		PresentationID: p.ID,
		Version:        p.Version,
		Format:         string(format),
		Title:          p.Title,
		Markdown:       p.Markdown,
	}

	if s.queue == nil {
		result, err := s.render(ctx, payload)
		if err != nil {
			return nil, err
		}
		return &ExportJob{Status: taskqueue.StatusCompleted, Result: result}, nil
	}

	taskID, err := s.queue.Enqueue(ctx, taskqueue.TaskExportDeck, taskqueue.Owner{
		UserID:         userID,
		PresentationID: p.ID,
	}, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue export: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"task_id":         taskID,
		"presentation_id": p.ID,
		"format":          format,
	}).Info("Export task enqueued")
	return &ExportJob{TaskID: taskID, Status: taskqueue.StatusPending}, nil
}

// Task 查询导出任务，只能查询自己发起的任务
func (s *ExportService) Task(ctx context.Context, userID, taskID string) (*taskqueue.TaskInfo, error) {
	if s.queue == nil {
		return nil, taskqueue.ErrTaskNotFound
	}

	task, err := s.queue.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.UserID != userID {
		return nil, taskqueue.ErrTaskNotFound
	}
	return taskqueue.NewTaskInfo(task), nil
}

// Wait 等待导出任务结束
// 超时后返回任务当前状态，不视为错误
func (s *ExportService) Wait(ctx context.Context, userID, taskID string, timeout time.Duration) (*taskqueue.TaskInfo, error) {
	info, err := s.Task(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if _, err := s.queue.WaitForTask(ctx, taskID, timeout); err != nil && !errors.Is(err, taskqueue.ErrTaskTimeout) {
		return nil, err
	}
	if latest, err := s.Task(ctx, userID, taskID); err == nil {
		info = latest
	}
	return info, nil
}

// Tasks 列出文稿的导出任务，按创建时间倒序
func (s *ExportService) Tasks(ctx context.Context, userID, presentationID string) ([]*taskqueue.TaskInfo, error) {
	if s.queue == nil {
		return []*taskqueue.TaskInfo{}, nil
	}

	tasks, err := s.queue.GetTasksByPresentation(ctx, presentationID)
	if err != nil {
		return nil, err
	}

	infos := make([]*taskqueue.TaskInfo, 0, len(tasks))
	for _, task := range tasks {
		if task.UserID == userID {
			infos = append(infos, taskqueue.NewTaskInfo(task))
		}
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.After(infos[j].CreatedAt)
	})
	return infos, nil
}

// Cancel 删除导出任务，正在处理的任务仍会执行完毕
func (s *ExportService) Cancel(ctx context.Context, userID, taskID string) error {
	if _, err := s.Task(ctx, userID, taskID); err != nil {
		return err
	}
	return s.queue.DeleteTask(ctx, taskID)
}

// Open 打开已导出的文件
func (s *ExportService) Open(ctx context.Context, fileID string) (io.ReadCloser, storage.FileInfo, error) {
	return s.storage.Open(ctx, fileID)
}

// Handler 返回导出任务的处理器，供工作者注册
func (s *ExportService) Handler() taskqueue.Handler {
	return taskqueue.HandlerFunc(func(ctx context.Context, task *taskqueue.Task) (interface{}, error) {
		var payload taskqueue.ExportPayload
		if err := taskqueue.UnmarshalPayload(task.Payload, &payload); err != nil {
			return nil, fmt.Errorf("%w: %v", taskqueue.ErrInvalidPayload, err)
		}
		return s.render(ctx, payload)
	})
}

// render 渲染文稿并写入存储
func (s *ExportService) render(ctx context.Context, payload taskqueue.ExportPayload) (*taskqueue.ExportResult, error) {
	format, err := export.ParseFormat(payload.Format)
	if err != nil {
		return nil, err
	}

	artifact, err := export.Export(format, export.Deck{Title: payload.Title, Markdown: payload.Markdown})
	if err != nil {
		return nil, fmt.Errorf("failed to render %s export: %w", format, err)
	}

	info, err := s.storage.Save(ctx, bytes.NewReader(artifact.Data), artifact.Filename, artifact.ContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store export: %w", err)
	}

	log := s.logger.WithFields(logrus.Fields{
		"presentation_id": payload.PresentationID,
		"file_id":         info.ID,
		"format":          format,
		"size":            info.Size,
	})
	log.Info("Presentation exported")

	result := &taskqueue.ExportResult{
		FileID:      info.ID,
		Filename:    artifact.Filename,
		ContentType: artifact.ContentType,
		Size:        info.Size,
		Slides:      artifact.Slides,
		Pages:       artifact.Pages,
	}
	if len(artifact.Unsupported) > 0 {
		result.Warning = fmt.Sprintf("%d characters cannot be shown in PDF and were replaced: %s",
			len(artifact.Unsupported), string(artifact.Unsupported))
		log.WithField("characters", string(artifact.Unsupported)).Warn("PDF export replaced unsupported characters")
	}
	return result, nil
}
