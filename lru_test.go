package linkbridge

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLRU_EvictsOldestOnOverflow(t *testing.T) {
	var evicted []int
	cache := NewLRU[string, int](2, func(v int) { evicted = append(evicted, v) })

	cache.Put("a", 1)
	cache.Put("b", 2)
	cache.Put("c", 3) // evicts "a", the least recently used

	require.Equal(t, []int{1}, evicted)

	_, ok := cache.Get("a")
	require.False(t, ok)

	v, ok := cache.Get("b")
	require.True(t, ok)
	require.Equal(t, 2, v)

	v, ok = cache.Get("c")
	require.True(t, ok)
	require.Equal(t, 3, v)
}

func TestLRU_GetRefreshesRecency(t *testing.T) {
	cache := NewLRU[string, int](2, nil)
	cache.Put("a", 1)
	cache.Put("b", 2)

	cache.Get("a")     // "a" is now most recently used
	cache.Put("c", 3)  // evicts "b", not "a"

	_, ok := cache.Get("b")
	require.False(t, ok)

	_, ok = cache.Get("a")
	require.True(t, ok)
}

func TestLRU_RemoveAndClearSkipEviction(t *testing.T) {
	fired := false
	cache := NewLRU[string, int](4, func(int) { fired = true })
	cache.Put("a", 1)
	cache.Put("b", 2)

	cache.Remove("a")
	_, ok := cache.Get("a")
	require.False(t, ok)
	require.Equal(t, 1, cache.Len())

	cache.Clear()
	require.Equal(t, 0, cache.Len())
	require.False(t, fired, "Remove and Clear must not invoke the eviction callback")
}
