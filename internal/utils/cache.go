package utils

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CacheItem 包装缓存数据和过期时间
type CacheItem struct {
	Data      interface{}
	ExpiresAt time.Time
}

// TTLCache is an LRU with per-entry expiry. Keys can be grouped into
// namespaces; bumping a namespace's generation makes all of its existing
// entries unreachable without scanning the LRU.
type TTLCache struct {
	lruCache *lru.Cache[string, CacheItem]
	now      func() time.Time

	mu          sync.Mutex
	generations map[string]uint64
}

// NewTTLCache creates a cache holding at most size entries.
func NewTTLCache(size int) (*TTLCache, error) {
	l, err := lru.New[string, CacheItem](size)
	if err != nil {
		return nil, err
	}
	return &TTLCache{
		lruCache:    l,
		now:         time.Now,
		generations: make(map[string]uint64),
	}, nil
}

// Set 设置缓存，TTL 为过期时间
func (c *TTLCache) Set(key string, data interface{}, ttl time.Duration) {
	c.lruCache.Add(key, CacheItem{
		Data:      data,
		ExpiresAt: c.now().Add(ttl),
	})
}

// Get 获取缓存，若不存在或已过期则返回 nil
func (c *TTLCache) Get(key string) interface{} {
	val, ok := c.lruCache.Get(key)
	if !ok {
		return nil
	}

	if c.now().After(val.ExpiresAt) {
		c.lruCache.Remove(key)
		return nil
	}

	return val.Data
}

// Delete 删除指定缓存
func (c *TTLCache) Delete(key string) {
	c.lruCache.Remove(key)
}

// Key builds a key inside namespace ns at its current generation.
// Read the key before loading the data it will hold.
func (c *TTLCache) Key(ns string, parts ...interface{}) string {
	c.mu.Lock()
	gen := c.generations[ns]
	c.mu.Unlock()

	key := fmt.Sprintf("%s:g%d", ns, gen)
	for _, p := range parts {
		key += fmt.Sprintf(":%v", p)
	}
	return key
}

// Invalidate retires every entry of namespace ns.
func (c *TTLCache) Invalidate(ns string) {
	c.mu.Lock()
	c.generations[ns]++
	c.mu.Unlock()
}

// Len reports the number of entries, expired ones included.
func (c *TTLCache) Len() int {
	return c.lruCache.Len()
}
