package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hashInt(k int) uint32 { return uint32(k) }

func TestSetGetDelete(t *testing.T) {
	tb := New[int, string](hashInt)

	isNew := tb.Set(1, "one")
	assert.True(t, isNew)
	isNew = tb.Set(1, "uno")
	assert.False(t, isNew, "overwriting an existing key is not a new insertion")

	v, ok := tb.Get(1)
	require.True(t, ok)
	assert.Equal(t, "uno", v)

	_, ok = tb.Get(2)
	assert.False(t, ok)

	assert.True(t, tb.Delete(1))
	assert.False(t, tb.Delete(1), "deleting twice reports absence the second time")
	_, ok = tb.Get(1)
	assert.False(t, ok)
}

func TestTombstoneProbingFindsKeysPastDeletedSlots(t *testing.T) {
	tb := New[int, string](func(int) uint32 { return 0 }) // force every key into one bucket chain
	tb.Set(1, "a")
	tb.Set(2, "b")
	tb.Set(3, "c")

	require.True(t, tb.Delete(2))

	v, ok := tb.Get(3)
	require.True(t, ok, "a tombstone in the probe chain must not hide a later key")
	assert.Equal(t, "c", v)
}

func TestLenTracksLiveEntriesOnly(t *testing.T) {
	tb := New[int, string](hashInt)
	for i := 0; i < 20; i++ {
		tb.Set(i, "x")
	}
	assert.Equal(t, 20, tb.Len())

	for i := 0; i < 10; i++ {
		tb.Delete(i)
	}
	assert.Equal(t, 10, tb.Len())
}

func TestGrowthPreservesAllLiveEntries(t *testing.T) {
	tb := New[int, int](hashInt)
	const n = 500
	for i := 0; i < n; i++ {
		tb.Set(i, i*i)
	}
	assert.Equal(t, n, tb.Len())
	for i := 0; i < n; i++ {
		v, ok := tb.Get(i)
		require.True(t, ok)
		assert.Equal(t, i*i, v)
	}
}

func TestFindMatchLocatesByHashAndPredicateBeforeKeyExists(t *testing.T) {
	tb := New[string, int](func(s string) uint32 {
		var h uint32 = 2166136261
		for _, c := range []byte(s) {
			h ^= uint32(c)
			h *= 16777619
		}
		return h
	})
	tb.Set("hello", 1)

	hash := tb.hash("hello")
	found, ok := tb.FindMatch(hash, func(k string) bool { return k == "hello" })
	require.True(t, ok)
	assert.Equal(t, "hello", found)

	_, ok = tb.FindMatch(hash, func(k string) bool { return k == "nope" })
	assert.False(t, ok)
}

func TestAddAllCopiesLiveEntriesOnly(t *testing.T) {
	src := New[int, string](hashInt)
	src.Set(1, "a")
	src.Set(2, "b")
	src.Delete(2)

	dst := New[int, string](hashInt)
	dst.Set(1, "preexisting")
	src.AddAll(dst)

	v, ok := dst.Get(1)
	require.True(t, ok)
	assert.Equal(t, "a", v, "AddAll overwrites matching keys")

	_, ok = dst.Get(2)
	assert.False(t, ok, "a tombstoned source entry must not be copied")
}

func TestDeleteIfRemovesMatchingEntries(t *testing.T) {
	tb := New[int, int](hashInt)
	for i := 0; i < 10; i++ {
		tb.Set(i, i)
	}
	tb.DeleteIf(func(k, v int) bool { return v%2 == 0 })
	assert.Equal(t, 5, tb.Len())
	for i := 1; i < 10; i += 2 {
		_, ok := tb.Get(i)
		assert.True(t, ok)
	}
}
