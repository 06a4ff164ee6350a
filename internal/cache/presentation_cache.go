package cache

import (
	"encoding/json"
	"time"

	"github.com/fyerfyer/slideai/internal/gateway"
)

const (
	listPrefix   = "presentations"
	recordPrefix = "presentation"
)

// PresentationCache 按用户和文稿ID组织的缓存
// 写操作之后由调用方显式失效，不依赖查询标签
type PresentationCache struct {
	cache Cache
	ttl   time.Duration
}

// NewPresentationCache 创建文稿缓存
func NewPresentationCache(c Cache, ttl time.Duration) *PresentationCache {
	return &PresentationCache{cache: c, ttl: ttl}
}

// ListKey 用户文稿列表的缓存键
func ListKey(userID string) string {
	return GenerateCacheKey(listPrefix, userID)
}

// RecordKey 单个文稿的缓存键
func RecordKey(userID, id string) string {
	return GenerateCacheKey(recordPrefix, userID, id)
}

// GetList 读取缓存的文稿列表
func (c *PresentationCache) GetList(userID string) ([]gateway.Summary, bool) {
	var list []gateway.Summary
	if !c.load(ListKey(userID), &list) {
		return nil, false
	}
	return list, true
}

// SetList 缓存文稿列表
func (c *PresentationCache) SetList(userID string, list []gateway.Summary) error {
	return c.store(ListKey(userID), list)
}

// Get 读取缓存的文稿
func (c *PresentationCache) Get(userID, id string) (*gateway.Presentation, bool) {
	var p gateway.Presentation
	if !c.load(RecordKey(userID, id), &p) {
		return nil, false
	}
	return &p, true
}

// Set 缓存文稿
func (c *PresentationCache) Set(p *gateway.Presentation) error {
	return c.store(RecordKey(p.UserID, p.ID), p)
}

// Invalidate 使单个文稿的缓存失效
func (c *PresentationCache) Invalidate(userID, id string) error {
	return c.cache.Delete(RecordKey(userID, id))
}

// InvalidateList 使用户文稿列表的缓存失效
func (c *PresentationCache) InvalidateList(userID string) error {
	return c.cache.Delete(ListKey(userID))
}

// load 读取并解码，缓存错误按未命中处理
func (c *PresentationCache) load(key string, v interface{}) bool {
	raw, found, err := c.cache.Get(key)
	if err != nil || !found {
		return false
	}
	return json.Unmarshal([]byte(raw), v) == nil
}

func (c *PresentationCache) store(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.cache.Set(key, string(data), c.ttl)
}
