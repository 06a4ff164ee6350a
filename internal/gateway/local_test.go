package gateway

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/fyerfyer/slideai/internal/database"
	"github.com/fyerfyer/slideai/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newLocalGateway(t *testing.T) *LocalGateway {
	dsn := fmt.Sprintf("file:gateway_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewLocalGateway(repository.NewPresentationRepositoryWithDB(db))
}

func TestLocalGateway_CRUD(t *testing.T) {
	gw := newLocalGateway(t)
	ctx := context.Background()

	created, err := gw.Create(ctx, "user-1", NewPresentation{
		Title:    "Untitled Presentation",
		Markdown: "# A\n---\n# B",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "user-1", created.UserID)
	assert.Equal(t, int64(1), created.Version)

	got, err := gw.Get(ctx, "user-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "# A\n---\n# B", got.Markdown)

	list, err := gw.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
	assert.Equal(t, 2, list[0].Slides)

	title := "Renamed"
	updated, err := gw.Update(ctx, "user-1", created.ID, Patch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, int64(2), updated.Version)

	require.NoError(t, gw.Delete(ctx, "user-1", created.ID))
	_, err = gw.Get(ctx, "user-1", created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalGateway_Settings(t *testing.T) {
	gw := newLocalGateway(t)
	ctx := context.Background()

	created, err := gw.Create(ctx, "user-1", NewPresentation{
		Title:    "Deck",
		Markdown: "# A",
		Settings: []byte(`{"theme":"dark"}`),
	})
	require.NoError(t, err)

	got, err := gw.Get(ctx, "user-1", created.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"theme":"dark"}`, string(got.Settings))

	// 只改标题时设置保持不变
	title := "Renamed"
	updated, err := gw.Update(ctx, "user-1", created.ID, Patch{Title: &title})
	require.NoError(t, err)
	assert.JSONEq(t, `{"theme":"dark"}`, string(updated.Settings))

	updated, err = gw.Update(ctx, "user-1", created.ID, Patch{Settings: []byte(`{"theme":"light"}`)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"theme":"light"}`, string(updated.Settings))
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, int64(3), updated.Version)
}

func TestValidSettings(t *testing.T) {
	assert.True(t, ValidSettings([]byte(`{"theme":"dark"}`)))
	assert.True(t, ValidSettings([]byte(`{}`)))
	assert.False(t, ValidSettings([]byte(`["dark"]`)))
	assert.False(t, ValidSettings([]byte(`"dark"`)))
	assert.False(t, ValidSettings([]byte(`null`)))
	assert.False(t, ValidSettings([]byte(`{broken`)))
}

func TestLocalGateway_Errors(t *testing.T) {
	gw := newLocalGateway(t)
	ctx := context.Background()

	_, err := gw.Get(ctx, "user-1", "missing")
	assert.Equal(t, ErrNotFound, err)
	assert.Equal(t, ErrNotFound, gw.Delete(ctx, "user-1", "missing"))

	created, err := gw.Create(ctx, "user-1", NewPresentation{Title: "T"})
	require.NoError(t, err)

	// 其他用户看不到该文稿
	_, err = gw.Get(ctx, "user-2", created.ID)
	assert.Equal(t, ErrNotFound, err)

	stale := int64(7)
	body := "x"
	_, err = gw.Update(ctx, "user-1", created.ID, Patch{Markdown: &body, Version: &stale})
	assert.Equal(t, ErrConflict, err)

	// 创建时缺少用户ID，仓储报错被包装为不透明错误
	_, err = gw.Create(ctx, "", NewPresentation{Title: "T"})
	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "create", gwErr.Op)
	assert.Contains(t, gwErr.Error(), "user ID cannot be empty")
}

func TestSummarize(t *testing.T) {
	now := time.Now()
	s := Summarize(&Presentation{
		ID:        "p",
		Title:     "T",
		Markdown:  "one\n---\ntwo\n---\n\n",
		CreatedAt: now,
		UpdatedAt: now,
	})
	assert.Equal(t, 2, s.Slides)
	assert.Equal(t, "T", s.Title)

	assert.True(t, Patch{}.Empty())
	v := int64(1)
	assert.True(t, Patch{Version: &v}.Empty())
}
