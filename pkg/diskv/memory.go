package diskv

import (
	"slices"
	"sync"
)

// MemStore is an in-memory [BlobStore].
//
// It doubles as a reference implementation of the BlobStore contract and as
// a scripted fault injector for tests: setting one of the *Err fields makes
// the corresponding operation fail without touching stored blobs. Set them
// via [MemStore.FailWrites] and friends, not concurrently with operations
// you expect to observe the change.
//
// MemStore is safe for concurrent use. Nothing persists, so a Diskv backed
// by a MemStore loses everything on restart - useful for tests, wrong for
// production.
type MemStore struct {
	mu    sync.Mutex
	blobs map[string][]byte

	writeErr  error
	readErr   error
	removeErr error
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{blobs: make(map[string][]byte)}
}

// FailWrites makes every subsequent Write return err. Pass nil to restore
// normal behavior.
func (s *MemStore) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.writeErr = err
}

// FailReads makes every subsequent Read return err. Pass nil to restore
// normal behavior.
func (s *MemStore) FailReads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.readErr = err
}

// FailRemoves makes every subsequent Remove return err. Pass nil to restore
// normal behavior.
func (s *MemStore) FailRemoves(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeErr = err
}

func (s *MemStore) Write(key string, val []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeErr != nil {
		return s.writeErr
	}

	s.blobs[key] = slices.Clone(val)

	return nil
}

func (s *MemStore) Read(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.readErr != nil {
		return nil, false, s.readErr
	}

	val, ok := s.blobs[key]
	if !ok {
		return nil, false, nil
	}

	return slices.Clone(val), true, nil
}

func (s *MemStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.removeErr != nil {
		return s.removeErr
	}

	delete(s.blobs, key)

	return nil
}

// Keys returns all stored keys in lexical order.
func (s *MemStore) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.blobs))
	for key := range s.blobs {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	return keys, nil
}

// Len returns the number of stored blobs.
func (s *MemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.blobs)
}
