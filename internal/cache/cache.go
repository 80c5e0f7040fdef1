// Package cache keeps recently fetched page bodies in memory.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Page is a cached response body.
type Page struct {
	URL       string
	Body      []byte
	FetchedAt time.Time
}

type entry struct {
	key       string
	page      Page
	expiresAt time.Time
}

// MemoryCache is a size-bounded LRU cache with per-entry TTL.
// Expired entries are dropped lazily on access or eviction.
type MemoryCache struct {
	mu      sync.Mutex
	store   map[string]*list.Element
	lru     *list.List
	maxSize int64
	size    int64
	ttl     time.Duration
	now     func() time.Time

	hits, misses uint64
}

// NewMemoryCache creates a cache holding at most maxSizeBytes of bodies.
func NewMemoryCache(maxSizeBytes int64, ttl time.Duration) *MemoryCache {
	if maxSizeBytes <= 0 {
		maxSizeBytes = 32 * 1024 * 1024
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &MemoryCache{
		store:   make(map[string]*list.Element),
		lru:     list.New(),
		maxSize: maxSizeBytes,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the page cached under key, if present and not expired.
func (mc *MemoryCache) Get(key string) (Page, bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	el, ok := mc.store[key]
	if !ok {
		mc.misses++
		return Page{}, false
	}
	e := el.Value.(*entry)
	if mc.now().After(e.expiresAt) {
		mc.misses++
		mc.removeLocked(el)
		return Page{}, false
	}

	mc.lru.MoveToFront(el)
	mc.hits++
	log.Debug().Str("key", key).Msg("Cache hit")
	return e.page, true
}

// Set stores page under key. Bodies larger than the whole cache are not stored.
func (mc *MemoryCache) Set(key string, page Page) {
	size := int64(len(page.Body))
	if size > mc.maxSize {
		return
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if el, ok := mc.store[key]; ok {
		mc.removeLocked(el)
	}
	for mc.size+size > mc.maxSize && mc.lru.Len() > 0 {
		victim := mc.lru.Back()
		log.Debug().Str("key", victim.Value.(*entry).key).Msg("Evicted from cache")
		mc.removeLocked(victim)
	}

	el := mc.lru.PushFront(&entry{key: key, page: page, expiresAt: mc.now().Add(mc.ttl)})
	mc.store[key] = el
	mc.size += size
}

// Delete removes key from the cache.
func (mc *MemoryCache) Delete(key string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if el, ok := mc.store[key]; ok {
		mc.removeLocked(el)
	}
}

// Len returns the number of cached entries.
func (mc *MemoryCache) Len() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.lru.Len()
}

// Stats returns hit and miss counters.
func (mc *MemoryCache) Stats() (hits, misses uint64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.hits, mc.misses
}

func (mc *MemoryCache) removeLocked(el *list.Element) {
	e := el.Value.(*entry)
	mc.lru.Remove(el)
	delete(mc.store, e.key)
	mc.size -= int64(len(e.page.Body))
}
