package store

import lru "github.com/hashicorp/golang-lru/v2"

// DefaultTagCacheSize comfortably covers a full ingestion run's tag
// vocabulary (three sources yield a few thousand distinct lemmas).
const DefaultTagCacheSize = 16384

// TagCache memoizes tag name -> id during a bulk ingestion run so each
// tag is looked up or inserted at most once. Safe for concurrent use.
type TagCache struct {
	c *lru.Cache[string, int64]
}

// NewTagCache creates a cache holding up to size entries; size <= 0
// uses DefaultTagCacheSize.
func NewTagCache(size int) *TagCache {
	if size <= 0 {
		size = DefaultTagCacheSize
	}
	// lru.New only fails for non-positive sizes, which we excluded.
	c, err := lru.New[string, int64](size)
	if err != nil {
		panic("store: tag cache: " + err.Error())
	}
	return &TagCache{c: c}
}

// Get returns the cached id for a tag name.
func (tc *TagCache) Get(name string) (int64, bool) {
	if tc == nil {
		return 0, false
	}
	return tc.c.Get(name)
}

// Put records a tag name -> id pair.
func (tc *TagCache) Put(name string, id int64) {
	if tc == nil {
		return
	}
	tc.c.Add(name, id)
}

// Warm preloads the cache from an existing name -> id mapping.
func (tc *TagCache) Warm(ids map[string]int64) {
	if tc == nil {
		return
	}
	for name, id := range ids {
		tc.c.Add(name, id)
	}
}

// Len returns the number of cached tags.
func (tc *TagCache) Len() int {
	if tc == nil {
		return 0
	}
	return tc.c.Len()
}
