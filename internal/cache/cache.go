package cache

import (
	"sync"

	"github.com/phototrip/phototrip/internal/exif"
)

// TagCache keeps extracted EXIF tags in memory so reloads skip re-reading
// image bytes.
type TagCache struct {
	m    sync.Mutex
	tags map[string]exif.Tags
}

func NewTagCache() *TagCache {
	return &TagCache{
		m:    sync.Mutex{},
		tags: make(map[string]exif.Tags),
	}
}

func (c *TagCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.tags = make(map[string]exif.Tags)
}

func (c *TagCache) Get(fileRef string) (exif.Tags, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	if t, ok := c.tags[fileRef]; ok {
		return t, true
	}
	return exif.Tags{}, false
}

func (c *TagCache) Put(fileRef string, tags exif.Tags) {
	c.m.Lock()
	defer c.m.Unlock()
	c.tags[fileRef] = tags
}

func (c *TagCache) Len() int {
	c.m.Lock()
	defer c.m.Unlock()
	return len(c.tags)
}

// Snapshot returns a copy of every cached entry.
func (c *TagCache) Snapshot() map[string]exif.Tags {
	c.m.Lock()
	defer c.m.Unlock()
	out := make(map[string]exif.Tags, len(c.tags))
	for k, v := range c.tags {
		out[k] = v
	}
	return out
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}
