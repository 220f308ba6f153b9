// Package diskv is an embedded key/value store backed by the filesystem.
//
// Values are durably persisted as one file per key under a base directory,
// with an in-memory size-bounded cache accelerating repeated reads. The
// filesystem is the source of truth; the cache is a throwaway side channel
// that is rebuilt on demand and never persisted across restarts.
//
// # Basic Usage
//
//	store, err := diskv.New(diskv.Options{
//	    BasePath:     "/var/lib/myapp/data",
//	    CacheSizeMax: 1 << 20, // 1 MiB of cached values
//	})
//	if err != nil {
//	    // handle [ErrLocked] if another process owns the base path
//	}
//	defer store.Close()
//
//	err = store.Put("alpha", []byte("value"))
//
//	val, err := store.Get("alpha") // val == nil means not found
//
//	err = store.Delete("alpha")
//
// # Concurrency
//
// A Diskv is safe for concurrent use by multiple goroutines. One store-wide
// reader-writer mutex guards the cache: Put and Delete take it exclusively,
// a Get that hits the cache takes it shared. The lock is store-wide rather
// than per-key, so writes to distinct keys serialize against each other -
// a deliberate trade-off favoring simple, checkable size accounting over
// write throughput.
//
// Cross-process exclusion is separate: [New] takes an exclusive flock on a
// lock file under the base path so two processes never mutate the same
// store. In-process coordination never touches the kernel.
//
// # Caching
//
// The cache holds up to [Options.CacheSizeMax] bytes of values (key lengths
// are not counted). Values larger than the ceiling are persisted but never
// cached. When an insert needs room, entries are evicted in insertion order
// (FIFO) until enough bytes are free - there is no recency or frequency
// tracking; eviction order is a simplicity trade-off, not an LRU.
//
// # Error Handling
//
// "Not found" is not an error: Get returns a nil value and Delete succeeds.
// Every other I/O failure is wrapped in [*Error] with key/path context and
// returned unmodified otherwise - no retries, no backoff. Retry policy, if
// any, belongs to the caller.
//
// # Keys Are Paths
//
// Keys map to file names verbatim, with no escaping or validation. A key
// containing a path separator or ".." can address files outside the base
// path. Sanitizing keys is the caller's responsibility.
package diskv
