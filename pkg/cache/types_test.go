package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefixedCacheIsolation(t *testing.T) {
	c := New()
	defer c.Close()

	trees := NewPrefixedCache(c, "nav:tree")
	other := NewPrefixedCache(c, "other")

	trees.Set("main", []string{"Home"}, time.Minute)
	other.Set("main", []string{"unrelated"}, time.Minute)

	var got []string
	require.True(t, trees.Get("main", &got))
	assert.Equal(t, []string{"Home"}, got)

	trees.Clear()
	assert.False(t, trees.Get("main", &got))
	require.True(t, other.Get("main", &got))
}

func TestHashCacheConcurrentWrites(t *testing.T) {
	c := New()
	defer c.Close()

	h := NewHashCache(c, "settings:public")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			h.HSet(fmt.Sprintf("key-%d", n), n)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, h.HLen())
}

func TestHashCacheSnapshotUnaffectedByLaterWrites(t *testing.T) {
	c := New()
	defer c.Close()

	h := NewHashCache(c, "settings:public")
	h.HSet("hotline", "123")

	snapshot := h.HGetAll()
	h.HSet("hotline", "456")
	h.HDel("hotline")

	assert.Equal(t, "123", snapshot["hotline"])
}

func TestSetCacheConcurrentAdds(t *testing.T) {
	c := New()
	defer c.Close()

	s := NewSetCache(c, "social:seen")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.Add(fmt.Sprintf("post-%d", n))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, s.Len())
}

func TestSetCacheAddReportsNewMembers(t *testing.T) {
	c := New()
	defer c.Close()

	s := NewSetCache(c, "social:seen")

	assert.Equal(t, 2, s.Add("a", "b"))
	assert.Equal(t, 1, s.Add("b", "c"))
	assert.True(t, s.Has("a"))

	s.Remove("a")
	assert.False(t, s.Has("a"))
	assert.Equal(t, 2, s.Len())
}
