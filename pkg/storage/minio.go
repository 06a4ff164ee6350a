package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStorage MinIO存储实现
type MinioStorage struct {
	client     *minio.Client // MinIO客户端
	bucketName string        // 存储桶名称
	prefix     string        // 对象名前缀
}

// MinioConfig MinIO存储配置
type MinioConfig struct {
	Endpoint  string // MinIO服务端点
	AccessKey string // 访问密钥ID
	SecretKey string // 秘密访问密钥
	UseSSL    bool   // 是否使用SSL
	Bucket    string // 存储桶名称
	Prefix    string // 对象名前缀，默认exports
}

// NewMinioStorage 创建MinIO存储实例
func NewMinioStorage(cfg MinioConfig) (*MinioStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %v", err)
	}

	// 检查存储桶是否存在，不存在则创建
	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket exists: %v", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %v", err)
		}
	}

	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix == "" {
		prefix = "exports"
	}

	return &MinioStorage{
		client:     client,
		bucketName: cfg.Bucket,
		prefix:     prefix,
	}, nil
}

// Save 上传文件
// 导出文件体积不大，先读入内存以便提供准确的大小
func (s *MinioStorage) Save(ctx context.Context, reader io.Reader, filename, contentType string) (FileInfo, error) {
	id := uuid.New().String()
	name := cleanName(filename)
	objectName := path.Join(s.prefix, id, name)

	content, err := io.ReadAll(reader)
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to read file content: %v", err)
	}
	if contentType == "" {
		contentType = getMimeType(name)
	}

	uploaded, err := s.client.PutObject(ctx, s.bucketName, objectName,
		bytes.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to upload file: %v", err)
	}

	return FileInfo{
		ID:        id,
		Name:      name,
		Size:      uploaded.Size,
		MimeType:  contentType,
		Path:      objectName,
		CreatedAt: uploaded.LastModified,
	}, nil
}

// Open 获取MinIO中的文件
func (s *MinioStorage) Open(ctx context.Context, id string) (io.ReadCloser, FileInfo, error) {
	info, err := s.stat(ctx, id)
	if err != nil {
		return nil, FileInfo{}, err
	}

	obj, err := s.client.GetObject(ctx, s.bucketName, info.Path, minio.GetObjectOptions{})
	if err != nil {
		return nil, FileInfo{}, fmt.Errorf("failed to get object: %v", err)
	}
	return obj, info, nil
}

// Delete 从MinIO中删除文件
func (s *MinioStorage) Delete(ctx context.Context, id string) error {
	info, err := s.stat(ctx, id)
	if err != nil {
		return err
	}

	if err := s.client.RemoveObject(ctx, s.bucketName, info.Path, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object: %v", err)
	}
	return nil
}

// List 列出前缀下的所有文件
func (s *MinioStorage) List(ctx context.Context) ([]FileInfo, error) {
	var files []FileInfo

	objectCh := s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:    s.prefix + "/",
		Recursive: true,
	})
	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("error listing objects: %v", object.Err)
		}
		files = append(files, s.fromObject(object))
	}
	return files, nil
}

// Exists 检查MinIO中是否存在指定ID的文件
func (s *MinioStorage) Exists(ctx context.Context, id string) (bool, error) {
	if _, err := s.stat(ctx, id); err != nil {
		if errorsIsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// stat 按ID前缀查找对象
func (s *MinioStorage) stat(ctx context.Context, id string) (FileInfo, error) {
	if err := validateID(id); err != nil {
		return FileInfo{}, err
	}

	// 提前返回时取消列举，避免后台协程阻塞
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objectCh := s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:    path.Join(s.prefix, id) + "/",
		Recursive: true,
		MaxKeys:   1,
	})
	for object := range objectCh {
		if object.Err != nil {
			return FileInfo{}, fmt.Errorf("error listing objects: %v", object.Err)
		}
		return s.fromObject(object), nil
	}
	return FileInfo{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (s *MinioStorage) fromObject(object minio.ObjectInfo) FileInfo {
	rel := strings.TrimPrefix(object.Key, s.prefix+"/")
	id, name, _ := strings.Cut(rel, "/")
	contentType := object.ContentType
	if contentType == "" {
		contentType = getMimeType(name)
	}
	return FileInfo{
		ID:        id,
		Name:      name,
		Size:      object.Size,
		MimeType:  contentType,
		Path:      object.Key,
		CreatedAt: object.LastModified,
	}
}
