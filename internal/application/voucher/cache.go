package voucher

import (
	"fmt"
	"sync"

	"github.com/tesoreria/backend/internal/domain/document"
)

// Cache is the shared state between resolution runs and the view layer: the
// signed-URL cache keyed by "bucket|key" and the discovered income-original
// key cache keyed by (folder, sequence).
//
// Each resolution run holds a generation token from Begin. Writes carry the
// token and are dropped when a newer run has started, so a superseded run can
// finish quietly without clobbering fresher results. Upload refreshes bypass
// the token: an upload owns its exact entry regardless of what resolution is
// doing.
type Cache struct {
	mu         sync.Mutex
	generation uint64
	urls       map[string]document.Reference
	incomeKeys map[string]string
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{
		urls:       make(map[string]document.Reference),
		incomeKeys: make(map[string]string),
	}
}

// Begin starts a new resolution generation and returns its token. Any run
// holding an older token becomes stale immediately.
func (c *Cache) Begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	return c.generation
}

// Current reports whether the token still identifies the newest run.
func (c *Cache) Current(token uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return token == c.generation
}

// Put stores a reference for bucket|key if the run is still current. It
// returns false when the write was discarded as stale.
func (c *Cache) Put(token uint64, bucket, key string, ref document.Reference) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.generation {
		return false
	}
	c.urls[document.CacheKey(bucket, key)] = ref
	return true
}

// Refresh overwrites the entry for bucket|key unconditionally. Used by
// uploads, which own their own entry and nothing else.
func (c *Cache) Refresh(bucket, key string, ref document.Reference) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.urls[document.CacheKey(bucket, key)] = ref
}

// Get returns the cached reference for bucket|key. Unknown entries are
// Pending: resolution has not reached them yet.
func (c *Cache) Get(bucket, key string) document.Reference {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ref, ok := c.urls[document.CacheKey(bucket, key)]; ok {
		return ref
	}
	return document.Pending()
}

func incomeKeyID(folder string, sequenceNumber int64) string {
	return fmt.Sprintf("%s|%d", folder, sequenceNumber)
}

// PutIncomeOriginalKey remembers a discovered income original key if the run
// is still current.
func (c *Cache) PutIncomeOriginalKey(token uint64, folder string, sequenceNumber int64, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.generation {
		return false
	}
	c.incomeKeys[incomeKeyID(folder, sequenceNumber)] = key
	return true
}

// IncomeOriginalKey returns a previously discovered income original key, so
// callers can reuse the exact key instead of re-listing the folder.
func (c *Cache) IncomeOriginalKey(folder string, sequenceNumber int64) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key, ok := c.incomeKeys[incomeKeyID(folder, sequenceNumber)]
	return key, ok
}

// RememberIncomeOriginalKey records a key outside any resolution run, for
// the upload path that just created the object.
func (c *Cache) RememberIncomeOriginalKey(folder string, sequenceNumber int64, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.incomeKeys[incomeKeyID(folder, sequenceNumber)] = key
}
