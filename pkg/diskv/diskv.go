package diskv

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
)

const basePathPerm = 0o755

// Options configure a [Diskv] store. BasePath and CacheSizeMax are required;
// there are no defaults for either. Options are immutable after [New].
type Options struct {
	// BasePath is the root directory for persisted values. It is created
	// recursively if absent; New fails if creation is impossible.
	//
	// Keys name files under BasePath verbatim. No sanitization is applied -
	// see the package docs before accepting untrusted keys.
	BasePath string

	// CacheSizeMax is the cache ceiling in bytes of cached values. It must
	// be > 0; pick a value consistent with expected value sizes, since any
	// single value larger than the ceiling is never cached at all.
	CacheSizeMax int

	// Store overrides the blob store. Defaults to a [DiskStore] rooted at
	// BasePath. Mainly useful for tests and fault injection.
	Store BlobStore

	// Debugf, when set, receives cache-event chatter (stores, hits, misses,
	// evictions). Informational only; defaults to discarding everything.
	Debugf func(format string, args ...any)
}

// Diskv is the store handle. Create one with [New]; it is safe for
// concurrent use. See the package docs for the locking model.
type Diskv struct {
	opts   Options
	store  BlobStore
	lock   *dirLock
	closed atomic.Bool

	// mu guards cache. Put, Delete, and the miss-repopulation path of Get
	// hold it exclusively; a Get that can be served from cache holds it
	// shared. Blob store calls for Put/Delete happen while the exclusive
	// lock is held (write-through under the lock); the miss-path disk read
	// happens with no lock held at all.
	mu    sync.RWMutex
	cache *cache
}

// New constructs a store for the configured base path.
//
// The base path is created recursively if needed, then exclusively flocked;
// New returns [ErrLocked] if another process already owns it. The cache
// starts empty - it is never persisted across restarts.
func New(opts Options) (*Diskv, error) {
	if opts.BasePath == "" {
		return nil, errors.New("diskv: Options.BasePath is required")
	}

	if opts.CacheSizeMax <= 0 {
		return nil, errors.New("diskv: Options.CacheSizeMax must be > 0")
	}

	err := os.MkdirAll(opts.BasePath, basePathPerm)
	if err != nil {
		return nil, withContext(fmt.Errorf("creating base path: %w", err), "", opts.BasePath)
	}

	lockPath := filepath.Join(opts.BasePath, lockFileName)

	lock, err := acquireDirLock(lockPath)
	if err != nil {
		if errors.Is(err, ErrLocked) {
			return nil, err
		}

		return nil, withContext(err, "", lockPath)
	}

	store := opts.Store
	if store == nil {
		store = NewDiskStore(opts.BasePath)
	}

	return &Diskv{
		opts:  opts,
		store: store,
		lock:  lock,
		cache: newCache(opts.CacheSizeMax, opts.Debugf),
	}, nil
}

// Put durably persists val under key, then updates the cache.
//
// The blob write is the operation: if it fails, the error is returned and
// the cache is left untouched. If it succeeds, the cache update can still
// be silently skipped (value larger than the ceiling) - a cache rejection
// never turns a successful durable write into an error. A skipped update
// leaves any previously cached value for key in place, so reads can see
// the older value until a Delete invalidates it.
func (d *Diskv) Put(key string, val []byte) error {
	if d.closed.Load() {
		return ErrClosed
	}

	if key == "" {
		return ErrEmptyKey
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.store.Write(key, val)
	if err != nil {
		return withContext(err, key, "")
	}

	d.cache.put(key, val)

	return nil
}

// Get returns the value stored under key, or nil if no value exists.
// Absence is not an error.
//
// A cache hit returns a copy without touching the blob store. A miss reads
// the blob store and, when the key exists, goes through [Diskv.Put] to
// repopulate the cache before returning.
//
// Between the shared-lock miss and the exclusive-lock repopulation another
// Get for the same key can race through the same window; both then read the
// blob store and repopulate. That costs one redundant disk read and nothing
// else - the blob store is authoritative and population is idempotent.
func (d *Diskv) Get(key string) ([]byte, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}

	if key == "" {
		return nil, ErrEmptyKey
	}

	if val, ok := d.cachedGet(key); ok {
		return val, nil
	}

	val, found, err := d.store.Read(key)
	if err != nil {
		return nil, withContext(err, key, "")
	}

	if !found {
		return nil, nil
	}

	err = d.Put(key, val)
	if err != nil {
		return nil, err
	}

	return val, nil
}

// cachedGet is the shared-lock fast path.
func (d *Diskv) cachedGet(key string) ([]byte, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	val, ok := d.cache.get(key)
	if ok {
		d.debugf("cache: hit key %q", key)
	} else {
		d.debugf("cache: miss key %q", key)
	}

	return val, ok
}

// Delete removes key from the blob store and the cache. Deleting a missing
// key succeeds.
//
// On any blob store failure other than absence the error is returned and
// the cache is left untouched, so the cached value keeps serving reads
// until a later Delete succeeds.
func (d *Diskv) Delete(key string) error {
	if d.closed.Load() {
		return ErrClosed
	}

	if key == "" {
		return ErrEmptyKey
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.store.Remove(key)
	if err != nil {
		return withContext(err, key, "")
	}

	d.cache.delete(key)

	return nil
}

// Keys lists all persisted keys, when the blob store supports enumeration
// (the default [DiskStore] does via [KeyLister]).
func (d *Diskv) Keys() ([]string, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}

	lister, ok := d.store.(KeyLister)
	if !ok {
		return nil, errors.New("diskv: blob store does not support key listing")
	}

	keys, err := lister.Keys()
	if err != nil {
		return nil, withContext(err, "", "")
	}

	return keys, nil
}

// CacheLen returns the number of cached entries.
func (d *Diskv) CacheLen() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.cache.len()
}

// CacheSize returns the total bytes of cached values. It is always
// <= [Options.CacheSizeMax].
func (d *Diskv) CacheSize() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.cache.size
}

// Close releases the base path lock and marks the store closed. It waits
// for in-flight operations, is idempotent, and all later operations return
// [ErrClosed]. The cache is discarded, not persisted.
func (d *Diskv) Close() error {
	if d.closed.Swap(true) {
		return nil
	}

	// Wait for in-flight readers and writers before dropping the flock.
	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.lock.release()
	if err != nil {
		return withContext(err, "", filepath.Join(d.opts.BasePath, lockFileName))
	}

	return nil
}

// String renders a human-readable diagnostic: the configured base path and
// the cache's occupancy. Informational only - never parse it.
func (d *Diskv) String() string {
	if d.closed.Load() {
		return fmt.Sprintf("diskv(%q, closed)", d.opts.BasePath)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	return fmt.Sprintf(
		"diskv(%q, cache %d/%d bytes in %d entries)",
		d.opts.BasePath, d.cache.size, d.opts.CacheSizeMax, d.cache.len(),
	)
}

func (d *Diskv) debugf(format string, args ...any) {
	if d.opts.Debugf != nil {
		d.opts.Debugf(format, args...)
	}
}
