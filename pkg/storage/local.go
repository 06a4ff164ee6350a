package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// LocalStorage 本地文件存储实现
type LocalStorage struct {
	basePath string // 基础存储路径
}

// LocalConfig 本地存储配置
type LocalConfig struct {
	Path string // 本地存储路径
}

// NewLocalStorage 创建本地存储实例
func NewLocalStorage(cfg LocalConfig) (*LocalStorage, error) {
	if cfg.Path == "" {
		cfg.Path = "data/exports"
	}
	absPath, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %v", err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %v", err)
	}

	return &LocalStorage{
		basePath: absPath,
	}, nil
}

// Save 保存文件到本地存储
func (s *LocalStorage) Save(ctx context.Context, reader io.Reader, filename, contentType string) (FileInfo, error) {
	id := uuid.New().String()
	name := cleanName(filename)

	dirPath := filepath.Join(s.basePath, id)
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return FileInfo{}, fmt.Errorf("failed to create directory: %v", err)
	}

	filePath := filepath.Join(dirPath, name)
	file, err := os.Create(filePath)
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to create file: %v", err)
	}
	defer file.Close()

	size, err := io.Copy(file, reader)
	if err != nil {
		os.RemoveAll(dirPath)
		return FileInfo{}, fmt.Errorf("failed to write file: %v", err)
	}

	if contentType == "" {
		contentType = getMimeType(name)
	}
	saved := FileInfo{
		ID:       id,
		Name:     name,
		Size:     size,
		MimeType: contentType,
		Path:     filepath.Join(id, name),
	}
	if fi, err := file.Stat(); err == nil {
		saved.CreatedAt = fi.ModTime()
	}
	return saved, nil
}

// Open 打开文件
func (s *LocalStorage) Open(ctx context.Context, id string) (io.ReadCloser, FileInfo, error) {
	info, err := s.stat(id)
	if err != nil {
		return nil, FileInfo{}, err
	}

	file, err := os.Open(filepath.Join(s.basePath, info.Path))
	if err != nil {
		return nil, FileInfo{}, fmt.Errorf("failed to open file: %v", err)
	}
	return file, info, nil
}

// Delete 删除文件
func (s *LocalStorage) Delete(ctx context.Context, id string) error {
	if _, err := s.stat(id); err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(s.basePath, id)); err != nil {
		return fmt.Errorf("failed to delete file: %v", err)
	}
	return nil
}

// List 列出所有文件
func (s *LocalStorage) List(ctx context.Context) ([]FileInfo, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %v", err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := s.stat(entry.Name())
		if err != nil {
			continue
		}
		files = append(files, info)
	}
	return files, nil
}

// Exists 检查文件是否存在
func (s *LocalStorage) Exists(ctx context.Context, id string) (bool, error) {
	if _, err := s.stat(id); err != nil {
		if errorsIsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// stat 读取ID目录下唯一文件的元数据
func (s *LocalStorage) stat(id string) (FileInfo, error) {
	if err := validateID(id); err != nil {
		return FileInfo{}, err
	}

	entries, err := os.ReadDir(filepath.Join(s.basePath, id))
	if err != nil {
		if os.IsNotExist(err) {
			return FileInfo{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return FileInfo{}, fmt.Errorf("error searching for file: %v", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			return FileInfo{}, fmt.Errorf("error reading file info: %v", err)
		}
		return FileInfo{
			ID:        id,
			Name:      entry.Name(),
			Size:      fi.Size(),
			MimeType:  getMimeType(entry.Name()),
			Path:      filepath.Join(id, entry.Name()),
			CreatedAt: fi.ModTime(),
		}, nil
	}
	return FileInfo{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}
