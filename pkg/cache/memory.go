package cache

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// MemoryItem stores cached value with expiration.
type MemoryItem struct {
	Value    interface{}
	ExpireAt time.Time
	// Sliding entries (Store) get their expiry pushed forward on every Load.
	Sliding time.Duration
}

// IsExpired checks if item has expired.
func (m *MemoryItem) IsExpired(now time.Time) bool {
	return now.After(m.ExpireAt)
}

type evicted struct {
	key   string
	value interface{}
}

// MemoryCache implements Service using in-memory storage with LRU eviction.
// Besides the JSON-encoded Service API it can hold live Go values via
// Store/Load, which is how dashboard sessions are kept.
type MemoryCache struct {
	data       map[string]*MemoryItem
	access     map[string]time.Time
	mutex      sync.Mutex
	maxSize    int
	defaultTTL time.Duration
	onEvict    EvictFunc
	now        func() time.Time

	cleanupTicker *time.Ticker
	done          chan struct{}
	closeOnce     sync.Once
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:         1000,
		CleanupInterval: time.Minute,
		DefaultTTL:      24 * time.Hour,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		data:          make(map[string]*MemoryItem),
		access:        make(map[string]time.Time),
		maxSize:       cfg.MaxSize,
		defaultTTL:    cfg.DefaultTTL,
		onEvict:       cfg.OnEvict,
		now:           time.Now,
		cleanupTicker: time.NewTicker(cfg.CleanupInterval),
		done:          make(chan struct{}),
	}

	go mc.cleanupExpired()
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	mc.put(key, data, expiration, 0)
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	item, ok := mc.lookup(key)
	if !ok {
		return ErrCacheMiss
	}

	data, ok := item.Value.([]byte)
	if !ok {
		return fmt.Errorf("cache: %s holds a live value, use Load", key)
	}
	return json.Unmarshal(data, dest)
}

// Store keeps value as-is. ttl is an idle timeout: each Load renews it.
func (mc *MemoryCache) Store(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = mc.defaultTTL
	}
	mc.put(key, value, ttl, ttl)
}

// Load returns a value put with Store and renews its idle timeout.
func (mc *MemoryCache) Load(key string) (interface{}, bool) {
	item, ok := mc.lookup(key)
	if !ok {
		return nil, false
	}
	return item.Value, true
}

func (mc *MemoryCache) put(key string, value interface{}, expiration, sliding time.Duration) {
	if expiration <= 0 {
		expiration = mc.defaultTTL
	}

	var gone []evicted
	mc.mutex.Lock()
	now := mc.now()
	if old, exists := mc.data[key]; exists {
		gone = append(gone, evicted{key, old.Value})
	} else if len(mc.data) >= mc.maxSize {
		if e, ok := mc.evictLRU(); ok {
			gone = append(gone, e)
		}
	}
	mc.data[key] = &MemoryItem{
		Value:    value,
		ExpireAt: now.Add(expiration),
		Sliding:  sliding,
	}
	mc.access[key] = now
	mc.mutex.Unlock()

	mc.notify(gone)
}

func (mc *MemoryCache) lookup(key string) (*MemoryItem, bool) {
	var gone []evicted
	mc.mutex.Lock()
	now := mc.now()
	item, exists := mc.data[key]
	if exists && item.IsExpired(now) {
		gone = append(gone, evicted{key, item.Value})
		mc.remove(key)
		exists = false
	}
	if exists {
		mc.access[key] = now
		if item.Sliding > 0 {
			item.ExpireAt = now.Add(item.Sliding)
		}
	}
	mc.mutex.Unlock()

	mc.notify(gone)
	return item, exists
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	var gone []evicted
	mc.mutex.Lock()
	for _, key := range keys {
		if item, ok := mc.data[key]; ok {
			gone = append(gone, evicted{key, item.Value})
			mc.remove(key)
		}
	}
	mc.mutex.Unlock()

	mc.notify(gone)
	return nil
}

// DeleteByPattern removes keys matching a glob pattern ("history:*").
func (mc *MemoryCache) DeleteByPattern(_ context.Context, pattern string) error {
	if _, err := path.Match(pattern, ""); err != nil {
		return fmt.Errorf("cache: bad pattern %q: %w", pattern, err)
	}

	var gone []evicted
	mc.mutex.Lock()
	for key, item := range mc.data {
		if ok, _ := path.Match(pattern, key); ok {
			gone = append(gone, evicted{key, item.Value})
			mc.remove(key)
		}
	}
	mc.mutex.Unlock()

	mc.notify(gone)
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	now := mc.now()
	for _, key := range keys {
		if item, ok := mc.data[key]; ok && !item.IsExpired(now) {
			return true, nil
		}
	}
	return false, nil
}

// Len returns the number of entries, expired ones included until swept.
func (mc *MemoryCache) Len() int {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()
	return len(mc.data)
}

// evictLRU must be called with the lock held.
func (mc *MemoryCache) evictLRU() (evicted, bool) {
	var oldestKey string
	var oldestTime time.Time

	for key, accessTime := range mc.access {
		if oldestKey == "" || accessTime.Before(oldestTime) {
			oldestTime = accessTime
			oldestKey = key
		}
	}

	if oldestKey == "" {
		return evicted{}, false
	}
	e := evicted{oldestKey, mc.data[oldestKey].Value}
	mc.remove(oldestKey)
	return e, true
}

func (mc *MemoryCache) remove(key string) {
	delete(mc.data, key)
	delete(mc.access, key)
}

func (mc *MemoryCache) notify(gone []evicted) {
	if mc.onEvict == nil {
		return
	}
	for _, e := range gone {
		mc.onEvict(e.key, e.value)
	}
}

// Sweep drops expired entries now.
func (mc *MemoryCache) Sweep() {
	var gone []evicted
	mc.mutex.Lock()
	now := mc.now()
	for key, item := range mc.data {
		if item.IsExpired(now) {
			gone = append(gone, evicted{key, item.Value})
			mc.remove(key)
		}
	}
	mc.mutex.Unlock()

	mc.notify(gone)
}

func (mc *MemoryCache) cleanupExpired() {
	for {
		select {
		case <-mc.cleanupTicker.C:
			mc.Sweep()
		case <-mc.done:
			return
		}
	}
}

// Close stops the cleanup goroutine.
func (mc *MemoryCache) Close() error {
	mc.closeOnce.Do(func() {
		mc.cleanupTicker.Stop()
		close(mc.done)
	})
	return nil
}
