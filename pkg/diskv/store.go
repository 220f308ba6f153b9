package diskv

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/natefinch/atomic"
)

// BlobStore is the durable backing store for values.
//
// Implementations persist one opaque blob per string key. Diskv treats the
// blob store as the sole source of truth; the cache only shadows it.
//
// Absence is not an error: Read reports it via the found flag and Remove of
// a missing key returns nil. Implementations must be safe for concurrent
// use to the extent the backing medium's per-call atomicity allows - Diskv
// applies no additional locking around blob store calls beyond what guards
// its own cache.
type BlobStore interface {
	// Write durably persists val under key, replacing any previous blob.
	Write(key string, val []byte) error

	// Read returns the blob stored under key. found is false when no blob
	// exists; that is not an error.
	Read(key string) (val []byte, found bool, err error)

	// Remove deletes the blob stored under key. Removing a missing key is
	// a no-op returning nil.
	Remove(key string) error
}

// KeyLister is an optional [BlobStore] extension for enumerating stored keys.
type KeyLister interface {
	Keys() ([]string, error)
}

// DiskStore persists blobs as plain files directly under a root directory.
//
// Each key names its file verbatim - no escaping, no length limiting. Keys
// containing separators or traversal sequences address paths outside the
// root; callers own key hygiene (see the package docs).
//
// Writes go through a temp-file-and-rename so readers and crashes never
// observe a torn value.
type DiskStore struct {
	dir string
}

// NewDiskStore returns a DiskStore rooted at dir. The directory must already
// exist; [New] creates it when constructing the default store.
func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{dir: dir}
}

func (s *DiskStore) Write(key string, val []byte) error {
	path := filepath.Join(s.dir, key)

	err := atomic.WriteFile(path, bytes.NewReader(val))
	if err != nil {
		return withContext(fmt.Errorf("writing blob: %w", err), key, path)
	}

	return nil
}

func (s *DiskStore) Read(key string) ([]byte, bool, error) {
	path := filepath.Join(s.dir, key)

	val, err := os.ReadFile(path) //nolint:gosec // keys map to paths by contract
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}

		return nil, false, withContext(fmt.Errorf("reading blob: %w", err), key, path)
	}

	return val, true, nil
}

func (s *DiskStore) Remove(key string) error {
	path := filepath.Join(s.dir, key)

	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return withContext(fmt.Errorf("removing blob: %w", err), key, path)
	}

	return nil
}

// Keys returns all stored keys in lexical order.
//
// Dotfiles are skipped: the store's own lock file lives under the root.
// atomic.WriteFile uses a temp file + rename in the same directory, so a
// listing that races a write can transiently include a temp file named
// after the key with a random suffix.
func (s *DiskStore) Keys() ([]string, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, withContext(fmt.Errorf("listing blobs: %w", err), "", s.dir)
	}

	keys := make([]string, 0, len(dirEntries))

	for _, entry := range dirEntries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		keys = append(keys, entry.Name())
	}

	slices.Sort(keys)

	return keys, nil
}
