package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkerCache_NewMarkerCache(t *testing.T) {
	cache := NewMarkerCache()

	require.NotNil(t, cache)
	assert.NotNil(t, cache.markers)
}

func TestMarkerCache_SetAndGet(t *testing.T) {
	cache := NewMarkerCache()

	cache.Set("m1", "clustered")

	layer, ok := cache.Get("m1")
	require.True(t, ok, "expected to find m1")
	assert.Equal(t, "clustered", layer)
}

func TestMarkerCache_Get_NotFound(t *testing.T) {
	cache := NewMarkerCache()

	_, ok := cache.Get("nonexistent")
	assert.False(t, ok, "expected not to find nonexistent marker")
}

func TestMarkerCache_Delete(t *testing.T) {
	cache := NewMarkerCache()

	cache.Set("m1", "plain")
	cache.Set("m2", "plain")

	cache.Delete("m1")

	_, ok := cache.Get("m1")
	assert.False(t, ok, "expected not to find m1 after delete")

	_, ok = cache.Get("m2")
	assert.True(t, ok, "expected m2 to still exist")

	// Should not panic when deleting non-existent marker
	cache.Delete("nonexistent")
}

func TestMarkerCache_AllIsSorted(t *testing.T) {
	cache := NewMarkerCache()

	cache.Set("m3", "plain")
	cache.Set("m1", "clustered")
	cache.Set("m2", "plain")

	assert.Equal(t, []string{"m1", "m2", "m3"}, cache.All())
	assert.Equal(t, 3, cache.Len())
}

func TestMarkerCache_Reset(t *testing.T) {
	cache := NewMarkerCache()

	cache.Set("m1", "plain")
	cache.Set("m2", "plain")

	cache.Reset()

	assert.Empty(t, cache.All())

	// Verify we can still add markers after reset
	cache.Set("m4", "clustered")
	_, ok := cache.Get("m4")
	assert.True(t, ok, "expected to find m4 after reset")
}

func TestMarkerCache_OverwriteExisting(t *testing.T) {
	cache := NewMarkerCache()

	cache.Set("m1", "plain")
	cache.Set("m1", "clustered")

	layer, ok := cache.Get("m1")
	require.True(t, ok)
	assert.Equal(t, "clustered", layer)
}

func TestMarkerCache_ConcurrentReadWrite(t *testing.T) {
	cache := NewMarkerCache()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(3)

		go func(id int) {
			defer wg.Done()
			cache.Set(fmt.Sprintf("m%d", id%26), "plain")
		}(i)

		go func(id int) {
			defer wg.Done()
			cache.Get(fmt.Sprintf("m%d", id%26))
		}(i)

		go func() {
			defer wg.Done()
			cache.All()
		}()
	}

	wg.Wait()
}
