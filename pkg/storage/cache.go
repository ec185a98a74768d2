package storage

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/vjranagit/spinrtt/internal/metrics"
	"github.com/vjranagit/spinrtt/pkg/types"
)

// ResultCache implements an LRU cache for computed distributions
type ResultCache struct {
	capacity int
	ttl      time.Duration
	mu       sync.Mutex
	cache    map[string]*cacheEntry
	lru      *list.List
}

// cacheEntry represents a cached distribution
type cacheEntry struct {
	key       string
	result    *types.ECDF
	timestamp time.Time
	element   *list.Element
}

// NewResultCache creates a new result cache. A non-positive ttl never expires entries.
func NewResultCache(capacity int, ttl time.Duration) *ResultCache {
	return &ResultCache{
		capacity: capacity,
		ttl:      ttl,
		cache:    make(map[string]*cacheEntry),
		lru:      list.New(),
	}
}

// Get retrieves a cached distribution
func (rc *ResultCache) Get(key string) (*types.ECDF, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	entry, exists := rc.cache[key]
	if !exists {
		return nil, false
	}

	if rc.expired(entry) {
		rc.removeLocked(key)
		return nil, false
	}

	rc.lru.MoveToFront(entry.element)

	return entry.result, true
}

// Put stores a distribution in the cache
func (rc *ResultCache) Put(key string, result *types.ECDF) {
	if rc.capacity <= 0 {
		return
	}

	rc.mu.Lock()
	defer rc.mu.Unlock()

	if entry, exists := rc.cache[key]; exists {
		entry.result = result
		entry.timestamp = time.Now()
		rc.lru.MoveToFront(entry.element)
		return
	}

	entry := &cacheEntry{
		key:       key,
		result:    result,
		timestamp: time.Now(),
	}
	entry.element = rc.lru.PushFront(entry)
	rc.cache[key] = entry

	// Evict least recently used entry if cache is full
	if rc.lru.Len() > rc.capacity {
		if oldest := rc.lru.Back(); oldest != nil {
			rc.removeLocked(oldest.Value.(*cacheEntry).key)
		}
	}
}

// InvalidatePrefix drops every entry whose key starts with prefix
func (rc *ResultCache) InvalidatePrefix(prefix string) int {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	removed := 0
	for key := range rc.cache {
		if strings.HasPrefix(key, prefix) {
			rc.removeLocked(key)
			removed++
		}
	}
	return removed
}

func (rc *ResultCache) expired(entry *cacheEntry) bool {
	return rc.ttl > 0 && time.Since(entry.timestamp) > rc.ttl
}

// removeLocked removes an entry from the cache (must hold lock)
func (rc *ResultCache) removeLocked(key string) {
	if entry, exists := rc.cache[key]; exists {
		rc.lru.Remove(entry.element)
		delete(rc.cache, key)
	}
}

// Clear clears all cache entries
func (rc *ResultCache) Clear() {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.cache = make(map[string]*cacheEntry)
	rc.lru = list.New()
}

// Size returns the current cache size
func (rc *ResultCache) Size() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.cache)
}

// Stats returns cache statistics
func (rc *ResultCache) Stats() CacheStats {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	expired := 0
	for _, entry := range rc.cache {
		if rc.expired(entry) {
			expired++
		}
	}

	return CacheStats{
		Size:     len(rc.cache),
		Capacity: rc.capacity,
		Expired:  expired,
	}
}

// CacheStats contains cache statistics
type CacheStats struct {
	Size     int
	Capacity int
	Expired  int
}

func cacheKey(runID, key string) string {
	return runID + "/" + key
}

// CachedStorage wraps a storage with result caching
type CachedStorage struct {
	Storage
	cache  *ResultCache
	hits   uint64
	misses uint64
	mu     sync.RWMutex
}

// NewCachedStorage creates a cached storage wrapper
func NewCachedStorage(storage Storage, cacheCapacity int, cacheTTL time.Duration) *CachedStorage {
	return &CachedStorage{
		Storage: storage,
		cache:   NewResultCache(cacheCapacity, cacheTTL),
	}
}

// PutRun stores the run and forgets every cached result computed from it
func (cs *CachedStorage) PutRun(ctx context.Context, run *types.Run) error {
	if err := cs.Storage.PutRun(ctx, run); err != nil {
		return err
	}
	cs.cache.InvalidatePrefix(run.ID + "/")
	return nil
}

// PutResult writes through to the underlying storage and the cache
func (cs *CachedStorage) PutResult(ctx context.Context, runID, key string, ecdf *types.ECDF) error {
	if err := cs.Storage.PutResult(ctx, runID, key, ecdf); err != nil {
		return err
	}
	cs.cache.Put(cacheKey(runID, key), ecdf)
	return nil
}

// GetResult checks the cache before reading storage
func (cs *CachedStorage) GetResult(ctx context.Context, runID, key string) (*types.ECDF, error) {
	if result, ok := cs.cache.Get(cacheKey(runID, key)); ok {
		cs.mu.Lock()
		cs.hits++
		cs.mu.Unlock()
		metrics.CacheLookups.WithLabelValues(metrics.SourceCache).Inc()
		return result, nil
	}

	cs.mu.Lock()
	cs.misses++
	cs.mu.Unlock()

	result, err := cs.Storage.GetResult(ctx, runID, key)
	if err != nil {
		return nil, err
	}

	cs.cache.Put(cacheKey(runID, key), result)

	return result, nil
}

// Close drops every cached result and closes the underlying storage
func (cs *CachedStorage) Close() error {
	cs.cache.Clear()
	return cs.Storage.Close()
}

// CacheStats returns cache statistics
func (cs *CachedStorage) CacheStats() (CacheStats, uint64, uint64) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.cache.Stats(), cs.hits, cs.misses
}

// CacheHitRate returns the cache hit rate as a percentage
func (cs *CachedStorage) CacheHitRate() float64 {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	total := cs.hits + cs.misses
	if total == 0 {
		return 0.0
	}

	return float64(cs.hits) / float64(total) * 100.0
}
