package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, r io.ReadCloser) string {
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}

// exerciseStorage 对任意实现执行相同的行为检查
func exerciseStorage(t *testing.T, s Storage) {
	ctx := context.Background()

	info, err := s.Save(ctx, strings.NewReader("# Deck\n---\n# Two"), "MyDeck.md", "")
	require.NoError(t, err)
	assert.NotEmpty(t, info.ID)
	assert.Equal(t, "MyDeck.md", info.Name)
	assert.Equal(t, int64(16), info.Size)
	assert.Equal(t, "text/markdown; charset=utf-8", info.MimeType)

	rc, opened, err := s.Open(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, "# Deck\n---\n# Two", readAll(t, rc))
	assert.Equal(t, "MyDeck.md", opened.Name, "下载时还原文件名")
	assert.Equal(t, info.ID, opened.ID)

	exists, err := s.Exists(ctx, info.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	pdf, err := s.Save(ctx, strings.NewReader("%PDF-1.3"), "../../escape/MyDeck.pdf", "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "MyDeck.pdf", pdf.Name, "文件名中的目录被去掉")
	assert.Equal(t, "application/pdf", pdf.MimeType)

	files, err := s.List(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(files))
	for _, f := range files {
		ids = append(ids, f.ID)
	}
	assert.Contains(t, ids, info.ID)
	assert.Contains(t, ids, pdf.ID)

	require.NoError(t, s.Delete(ctx, info.ID))
	exists, err = s.Exists(ctx, info.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	_, _, err = s.Open(ctx, info.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, info.ID), ErrNotFound)

	// 非uuid的ID直接视为不存在
	_, _, err = s.Open(ctx, "../etc/passwd")
	assert.ErrorIs(t, err, ErrNotFound)
	exists, err = s.Exists(ctx, "not-an-id")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.Delete(ctx, pdf.ID))
}

func TestLocalStorage(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(LocalConfig{Path: filepath.Join(dir, "exports")})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "exports"))
	require.NoError(t, err, "存储目录已创建")

	exerciseStorage(t, s)
}

// TestMinioStorage 需要本地运行MinIO服务
func TestMinioStorage(t *testing.T) {
	endpoint := os.Getenv("MINIO_TEST_ENDPOINT")
	if endpoint == "" {
		t.Skip("MINIO_TEST_ENDPOINT not set, skipping MinIO tests")
	}

	s, err := NewMinioStorage(MinioConfig{
		Endpoint:  endpoint,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "slideai-test",
		Prefix:    "test-exports",
	})
	require.NoError(t, err)

	exerciseStorage(t, s)
}

func TestNew(t *testing.T) {
	s, err := New(Config{Type: "local", Local: LocalConfig{Path: t.TempDir()}})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, s)

	_, err = New(Config{Type: "s3"})
	assert.Error(t, err)
}

func TestCleanName(t *testing.T) {
	assert.Equal(t, "a.md", cleanName("a.md"))
	assert.Equal(t, "a.md", cleanName("x/y/a.md"))
	assert.Equal(t, "a.md", cleanName(`x\y\a.md`))
	assert.Equal(t, "file", cleanName(""))
}
