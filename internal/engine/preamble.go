package engine

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	sitter "github.com/smacker/go-tree-sitter"
)

// defaultCacheEntries bounds the number of header trees a Cache keeps.
const defaultCacheEntries = 256

// Cache shares parsed preamble headers between the units of one index.
// Entries are keyed by dialect, path and content, so an edited header
// misses instead of serving a stale tree.
type Cache struct {
	mu      sync.Mutex
	max     int
	entries map[uint64]*sitter.Tree
	order   []uint64
	hits    uint64
	misses  uint64
}

// NewCache returns an empty cache holding at most max trees; max <= 0
// selects the default.
func NewCache(max int) *Cache {
	if max <= 0 {
		max = defaultCacheEntries
	}
	return &Cache{max: max, entries: make(map[uint64]*sitter.Tree)}
}

func (c *Cache) key(l Lang, name string, content []byte) uint64 {
	d := xxhash.New()
	_, _ = d.Write([]byte{byte(l)})
	_, _ = d.WriteString(cleanPath(name))
	_, _ = d.Write([]byte{0})
	_, _ = d.Write(content)
	return d.Sum64()
}

// get returns a private copy of the tree stored under key, or nil.
func (c *Cache) get(key uint64) *sitter.Tree {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil
	}
	c.hits++
	return t.Copy()
}

// put stores t, which the cache now owns.
func (c *Cache) put(key uint64, t *sitter.Tree) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.entries[key]; ok {
		old.Close()
		c.entries[key] = t
		return
	}
	for len(c.order) >= c.max {
		oldest := c.order[0]
		c.order = c.order[1:]
		if old, ok := c.entries[oldest]; ok {
			old.Close()
			delete(c.entries, oldest)
		}
	}
	c.entries[key] = t
	c.order = append(c.order, key)
}

// Len is the number of cached trees.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns the hit and miss counts.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Purge releases every cached tree.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, t := range c.entries {
		t.Close()
		delete(c.entries, k)
	}
	c.order = nil
}
