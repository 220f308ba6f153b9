package diskv

import "slices"

// cache is the in-memory bounded value cache.
//
// It tracks the byte length of every held value in size and keeps
// size <= maxSize at every observable point. Key lengths are never counted.
// Eviction walks entries oldest-insertion-first (FIFO) and frees no more
// than the pending insert needs.
//
// cache is not safe for concurrent use. Diskv guards it with its
// reader-writer mutex: mutations only under the exclusive lock, lookups
// under at least the shared lock.
type cache struct {
	entries map[string][]byte
	order   []string // insertion order, oldest first; drives eviction
	size    int      // sum of len(v) over entries; must never drift
	maxSize int
	debugf  func(format string, args ...any)
}

func newCache(maxSize int, debugf func(format string, args ...any)) *cache {
	if debugf == nil {
		debugf = func(string, ...any) {}
	}

	return &cache{
		entries: make(map[string][]byte),
		maxSize: maxSize,
		debugf:  debugf,
	}
}

// put inserts a copy of val under key, evicting older entries as needed.
//
// Values longer than maxSize are never cached; the put is a silent no-op
// rather than an error, since the disk copy is authoritative either way.
// Note the no-op also leaves any previously cached value for key in place;
// that stale entry keeps serving reads until a delete invalidates it.
// Otherwise an existing entry for key is removed first so overwrites change
// size by exactly the length delta.
func (c *cache) put(key string, val []byte) {
	if len(val) > c.maxSize {
		c.debugf("cache: value for key %q too large (%d > %d bytes), not cached", key, len(val), c.maxSize)

		return
	}

	c.delete(key)

	if c.size+len(val) > c.maxSize {
		c.evict(c.size + len(val) - c.maxSize)
	}

	if c.size+len(val) > c.maxSize {
		// Unreachable: val fits under maxSize and evict frees at least the
		// requested bytes. Reaching this means size accounting has drifted.
		panic("diskv: cache accounting inconsistent after eviction")
	}

	c.entries[key] = slices.Clone(val)
	c.order = append(c.order, key)
	c.size += len(val)

	c.debugf("cache: stored key %q (%d bytes), size %d/%d", key, len(val), c.size, c.maxSize)
}

// get returns a copy of the cached value, or (nil, false) on a miss.
// A miss does not mutate the cache.
func (c *cache) get(key string) ([]byte, bool) {
	val, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	return slices.Clone(val), true
}

// delete removes key if present, releasing exactly its value length.
func (c *cache) delete(key string) {
	val, ok := c.entries[key]
	if !ok {
		return
	}

	delete(c.entries, key)
	c.size -= len(val)

	if i := slices.Index(c.order, key); i >= 0 {
		c.order = slices.Delete(c.order, i, i+1)
	}
}

// evict frees at least needed bytes by removing entries oldest-first.
//
// It stops as soon as the freed total crosses the threshold - never more
// than one entry past it. Order is FIFO by insertion for testability; no
// recency or frequency ranking is involved.
func (c *cache) evict(needed int) {
	freed := 0

	for len(c.order) > 0 && freed < needed {
		oldest := c.order[0]
		freed += len(c.entries[oldest])

		c.debugf("cache: evicting key %q (%d bytes)", oldest, len(c.entries[oldest]))
		c.delete(oldest)
	}
}

func (c *cache) len() int {
	return len(c.entries)
}
