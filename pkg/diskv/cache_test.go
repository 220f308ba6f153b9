package diskv

import (
	"bytes"
	"testing"
)

func newTestCache(maxSize int) *cache {
	return newCache(maxSize, nil)
}

func requireCached(t *testing.T, c *cache, key string, want []byte) {
	t.Helper()

	got, ok := c.get(key)
	if !ok {
		t.Fatalf("key %q missing from cache", key)
	}

	if !bytes.Equal(got, want) {
		t.Fatalf("cached value for %q = %q, want %q", key, got, want)
	}
}

func requireMissing(t *testing.T, c *cache, key string) {
	t.Helper()

	if _, ok := c.get(key); ok {
		t.Fatalf("key %q unexpectedly cached", key)
	}
}

func requireSize(t *testing.T, c *cache, want int) {
	t.Helper()

	if c.size != want {
		t.Fatalf("cache size = %d, want %d", c.size, want)
	}

	sum := 0
	for _, v := range c.entries {
		sum += len(v)
	}

	if sum != c.size {
		t.Fatalf("size accounting drifted: tracked %d, actual %d", c.size, sum)
	}

	if len(c.order) != len(c.entries) {
		t.Fatalf("order list has %d keys, entries map has %d", len(c.order), len(c.entries))
	}

	if c.size > c.maxSize {
		t.Fatalf("cache size %d exceeds ceiling %d", c.size, c.maxSize)
	}
}

func Test_Cache_Roundtrips_Value_Through_Put_Overwrite_Delete(t *testing.T) {
	t.Parallel()

	c := newTestCache(10)
	requireMissing(t, c, "k1")

	c.put("k1", []byte("abcd"))
	requireCached(t, c, "k1", []byte("abcd"))

	c.put("k1", []byte("pqrs"))
	requireCached(t, c, "k1", []byte("pqrs"))
	requireSize(t, c, 4)

	c.delete("k1")
	requireMissing(t, c, "k1")
	requireSize(t, c, 0)
}

func Test_Cache_Overwrite_Changes_Size_By_Length_Delta(t *testing.T) {
	t.Parallel()

	c := newTestCache(100)

	c.put("k1", []byte("0123456789")) // 10 bytes
	requireSize(t, c, 10)

	c.put("k1", []byte("abc")) // overwrite with 3 bytes: delta -7
	requireSize(t, c, 3)

	c.put("k1", []byte("abcdefgh")) // overwrite with 8 bytes: delta +5
	requireSize(t, c, 8)
}

func Test_Cache_Overwrite_At_Ceiling_Reuses_Released_Space(t *testing.T) {
	t.Parallel()

	// Overwriting a key must release the old entry's bytes before the space
	// check, so a same-size overwrite at a full cache fits without eviction.
	c := newTestCache(10)

	c.put("k1", []byte("0123456789"))
	c.put("k1", []byte("9876543210"))
	requireCached(t, c, "k1", []byte("9876543210"))
	requireSize(t, c, 10)
}

func Test_Cache_Rejects_Value_Larger_Than_Ceiling(t *testing.T) {
	t.Parallel()

	c := newTestCache(10)

	c.put("k1", []byte("abcdpqrsxy")) // 10 bytes, exactly the ceiling
	requireCached(t, c, "k1", []byte("abcdpqrsxy"))

	c.put("k1", []byte("abcdpqrsxyz")) // 11 bytes, rejected as a no-op
	requireCached(t, c, "k1", []byte("abcdpqrsxy"))
	requireSize(t, c, 10)
}

func Test_Cache_Evicts_Oldest_Entries_Until_Insert_Fits(t *testing.T) {
	t.Parallel()

	c := newTestCache(10)

	c.put("k1", []byte("0123456")) // 7 bytes
	c.put("k2", []byte("789"))     // 3 bytes, cache exactly full
	requireSize(t, c, 10)

	c.put("k3", []byte("abcdabcd")) // 8 bytes: needs 8 free, evicts k1 (7) then k2 (3)
	requireCached(t, c, "k3", []byte("abcdabcd"))
	requireMissing(t, c, "k1")
	requireMissing(t, c, "k2")
	requireSize(t, c, 8)
}

func Test_Cache_Evicts_No_More_Than_Needed(t *testing.T) {
	t.Parallel()

	c := newTestCache(10)

	c.put("k1", []byte("aaaa")) // 4 bytes, oldest
	c.put("k2", []byte("bbbb")) // 4 bytes
	requireSize(t, c, 8)

	// 6 bytes need 4 free: evicting k1 alone crosses the threshold, so k2
	// must survive.
	c.put("k3", []byte("cccccc"))
	requireMissing(t, c, "k1")
	requireCached(t, c, "k2", []byte("bbbb"))
	requireCached(t, c, "k3", []byte("cccccc"))
	requireSize(t, c, 10)
}

func Test_Cache_Eviction_Order_Is_Insertion_Order(t *testing.T) {
	t.Parallel()

	c := newTestCache(9)

	c.put("a", []byte("111"))
	c.put("b", []byte("222"))
	c.put("c", []byte("333"))

	// Overwriting "a" moves it to the back of the insertion order, so "b"
	// is now the eviction candidate.
	c.put("a", []byte("444"))

	c.put("d", []byte("555"))
	requireMissing(t, c, "b")
	requireCached(t, c, "a", []byte("444"))
	requireCached(t, c, "c", []byte("333"))
	requireCached(t, c, "d", []byte("555"))
}

func Test_Cache_Delete_Is_Noop_When_Key_Absent(t *testing.T) {
	t.Parallel()

	c := newTestCache(10)

	c.put("k1", []byte("abc"))
	c.delete("missing")

	requireCached(t, c, "k1", []byte("abc"))
	requireSize(t, c, 3)
}

func Test_Cache_Get_Returns_Copy_Not_Alias(t *testing.T) {
	t.Parallel()

	c := newTestCache(10)

	val := []byte("abc")
	c.put("k1", val)

	// Mutating the caller's slice must not leak into the cache.
	val[0] = 'X'
	requireCached(t, c, "k1", []byte("abc"))

	// Mutating a returned value must not leak either.
	got, _ := c.get("k1")
	got[0] = 'Y'
	requireCached(t, c, "k1", []byte("abc"))
}

func Test_Cache_Zero_Length_Value_Is_Cached_For_Free(t *testing.T) {
	t.Parallel()

	c := newTestCache(10)

	c.put("empty", nil)
	requireCached(t, c, "empty", nil)
	requireSize(t, c, 0)
}
