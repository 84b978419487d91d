// Package doccache is a meeting-scoped, in-memory cache of extracted PDF
// text keyed by URL. It exists so that a document shared across several
// agenda items within the same meeting (a common packet appendix, for
// instance) is extracted exactly once per meeting processing run rather than once per
// item that references it. Unlike a TTL'd cache, this one drops the TTL
// entirely (a meeting's processing run is short-lived) in favor of an
// explicit Release the processor calls once the meeting completes, since
// its memory footprint is the dominant resource consumer during
// item-level processing and needs to be freed promptly.
package doccache

import (
	"sync"

	"github.com/civicsync/civicsync/pkg/extract"
)

// Cache holds extraction results for one meeting's processing run.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]extract.Result
}

// New creates an empty cache for a single meeting's processing run.
func New() *Cache {
	return &Cache{entries: make(map[string]extract.Result)}
}

// Get returns a previously stored extraction result for url, if any.
func (c *Cache) Get(url string) (extract.Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.entries[url]
	return r, ok
}

// Put stores an extraction result for url, overwriting any prior entry.
func (c *Cache) Put(url string, r extract.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[url] = r
}

// Len reports how many URLs are currently cached.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// ReferenceCounts tallies, for each cached URL, how many of the given
// non-skipped items reference it — used to partition the cache into
// shared (referenced by 2+ items) versus single-item documents (spec
// §4.7.1 step 6).
func ReferenceCounts(itemURLs [][]string) map[string]int {
	counts := make(map[string]int)
	for _, urls := range itemURLs {
		seen := make(map[string]bool, len(urls))
		for _, u := range urls {
			if seen[u] {
				continue
			}
			seen[u] = true
			counts[u]++
		}
	}
	return counts
}

// Release drops every entry, freeing the extracted text for GC. Must be
// called once a meeting finishes processing; the cache must not
// outlive a single processMeeting call.
func (c *Cache) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
}
