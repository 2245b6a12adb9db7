package cache

import (
	"slices"
	"sync"
)

// MarkerCache maps rendered marker IDs to the layer they were added to
type MarkerCache struct {
	mu      sync.RWMutex
	markers map[string]string
}

// NewMarkerCache creates a new MarkerCache
func NewMarkerCache() *MarkerCache {
	return &MarkerCache{
		markers: make(map[string]string),
	}
}

// Get retrieves the layer of a marker by ID
func (c *MarkerCache) Get(id string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	layer, ok := c.markers[id]
	return layer, ok
}

// Set records that marker id was added to layer
func (c *MarkerCache) Set(id string, layer string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markers[id] = layer
}

// Delete removes a marker by ID
func (c *MarkerCache) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.markers, id)
}

// Len returns the number of tracked markers
func (c *MarkerCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.markers)
}

// All returns the tracked marker IDs in sorted order
func (c *MarkerCache) All() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.markers))
	for id := range c.markers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Reset clears all markers from the cache
func (c *MarkerCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markers = make(map[string]string)
}
