package paysim

import (
	"container/list"
	"sync"
	"time"
)

// KeyLock serializes business processing for a single idempotency key.
// It is a longer-held resource than the cache's internal mutex: the cache
// mutex guards map bookkeeping only, while a KeyLock is held for the whole
// simulated processing of one transfer.
//
// There is no acquisition timeout: if the holder never releases, all
// duplicates for the key block. That mirrors the modeled system and is a
// documented limitation, not an oversight.
type KeyLock struct {
	mu sync.Mutex
}

// Acquire blocks until the caller holds exclusive processing rights for
// the key.
func (l *KeyLock) Acquire() { l.mu.Lock() }

// Release gives up exclusive processing rights. Must be called on every
// exit path after a successful Acquire.
func (l *KeyLock) Release() { l.mu.Unlock() }

// CacheEntry is a recorded transfer outcome keyed by idempotency key.
// Entries are owned by the cache; Lookup returns copies.
type CacheEntry struct {
	Key        string
	Outcome    Outcome
	StatusCode int
	InsertedAt time.Time
}

// IdempotencyCache caches transfer outcomes per idempotency key with TTL
// expiry and LRU eviction, and owns the per-key lock registry.
//
// Eviction policy is true LRU: both Lookup hits and Record move the entry
// to the most-recently-used position, and eviction always removes the
// least-recently-touched entry. Evicting or expiring an entry also removes
// its KeyLock from the registry, so the registry cannot outgrow the cache.
//
// All methods are safe for concurrent use. The internal mutex is held only
// for map and list bookkeeping, never across a sleep or a KeyLock wait.
type IdempotencyCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = most recently used
	locks   map[string]*KeyLock
	maxSize int
	ttl     time.Duration
	clock   Clock
}

// CacheOption configures an IdempotencyCache.
type CacheOption func(*IdempotencyCache)

// WithCacheClock sets the clock used to stamp and expire entries.
func WithCacheClock(clock Clock) CacheOption {
	return func(c *IdempotencyCache) {
		c.clock = clock
	}
}

// NewIdempotencyCache creates a cache bounded to maxSize entries whose
// entries expire ttl after insertion.
func NewIdempotencyCache(maxSize int, ttl time.Duration, opts ...CacheOption) *IdempotencyCache {
	c := &IdempotencyCache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		locks:   make(map[string]*KeyLock),
		maxSize: maxSize,
		ttl:     ttl,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.clock == nil {
		c.clock = NewSystemClock()
	}
	return c
}

// Lock returns the per-key exclusivity handle, creating one if absent.
// Only the handle fetch is done under the cache mutex; the caller acquires
// the handle itself outside, so handle waits never block the cache.
func (c *IdempotencyCache) Lock(key string) *KeyLock {
	c.mu.Lock()
	defer c.mu.Unlock()

	lock, ok := c.locks[key]
	if !ok {
		lock = &KeyLock{}
		c.locks[key] = lock
	}
	return lock
}

// Lookup returns a copy of the stored entry if present and not expired.
// Expired entries are deleted as a side effect, along with their lock
// handle, and reported as a miss. A hit re-ranks the entry as most
// recently used.
func (c *IdempotencyCache) Lookup(key string) (CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return CacheEntry{}, false
	}

	entry := elem.Value.(*CacheEntry)
	if c.clock.Now().Sub(entry.InsertedAt) >= c.ttl {
		c.removeLocked(key, elem)
		return CacheEntry{}, false
	}

	c.order.MoveToFront(elem)
	return *entry, true
}

// Record inserts or overwrites the outcome for key, stamps it with the
// current time, and ranks it most recently used. Inserting a new key at
// capacity first evicts the least-recently-touched entry and its lock
// handle.
func (c *IdempotencyCache) Record(key string, outcome Outcome, statusCode int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*CacheEntry)
		entry.Outcome = outcome
		entry.StatusCode = statusCode
		entry.InsertedAt = c.clock.Now()
		c.order.MoveToFront(elem)
		return
	}

	if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		if oldest := c.order.Back(); oldest != nil {
			c.removeLocked(oldest.Value.(*CacheEntry).Key, oldest)
		}
	}

	elem := c.order.PushFront(&CacheEntry{
		Key:        key,
		Outcome:    outcome,
		StatusCode: statusCode,
		InsertedAt: c.clock.Now(),
	})
	c.entries[key] = elem
}

// Len returns the number of cached entries.
func (c *IdempotencyCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// HasLock reports whether a lock handle is registered for key.
func (c *IdempotencyCache) HasLock(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.locks[key]
	return ok
}

// removeLocked deletes an entry and its lock handle. Must be called with
// c.mu held.
func (c *IdempotencyCache) removeLocked(key string, elem *list.Element) {
	c.order.Remove(elem)
	delete(c.entries, key)
	delete(c.locks, key)
}
