package diskv

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
)

// ErrInjected marks a failure injected by [ChaosStore].
//
// Tests use errors.Is(err, ErrInjected) to tell injected faults apart from
// real I/O failures.
var ErrInjected = errors.New("diskv: injected fault")

// ChaosConfig controls fault injection probabilities.
// Each rate is a float64 from 0.0 (never) to 1.0 (always).
type ChaosConfig struct {
	WriteFailRate  float64
	ReadFailRate   float64
	RemoveFailRate float64

	// Seed makes the injection sequence deterministic and reproducible.
	Seed uint64
}

// DefaultChaosConfig returns rates that fail a few percent of operations -
// enough to exercise every error path in a few hundred ops.
func DefaultChaosConfig(seed uint64) ChaosConfig {
	return ChaosConfig{
		WriteFailRate:  0.05,
		ReadFailRate:   0.05,
		RemoveFailRate: 0.05,
		Seed:           seed,
	}
}

// ChaosStore wraps a [BlobStore] and injects seeded random failures.
//
// Failures fire before the wrapped operation runs, so an injected write
// failure really does leave the underlying store unmodified - the same
// contract a failed disk write has. All injected errors wrap [ErrInjected].
//
// ChaosStore is safe for concurrent use; a mutex serializes draws from the
// PRNG (math/rand/v2 generators are not concurrency-safe).
type ChaosStore struct {
	inner BlobStore
	cfg   ChaosConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// NewChaosStore wraps inner with seeded fault injection.
func NewChaosStore(inner BlobStore, cfg ChaosConfig) *ChaosStore {
	return &ChaosStore{
		inner: inner,
		cfg:   cfg,
		rng:   rand.New(rand.NewPCG(cfg.Seed, cfg.Seed)),
	}
}

func (s *ChaosStore) Write(key string, val []byte) error {
	if s.trip(s.cfg.WriteFailRate) {
		return fmt.Errorf("%w: write %q", ErrInjected, key)
	}

	return s.inner.Write(key, val)
}

func (s *ChaosStore) Read(key string) ([]byte, bool, error) {
	if s.trip(s.cfg.ReadFailRate) {
		return nil, false, fmt.Errorf("%w: read %q", ErrInjected, key)
	}

	return s.inner.Read(key)
}

func (s *ChaosStore) Remove(key string) error {
	if s.trip(s.cfg.RemoveFailRate) {
		return fmt.Errorf("%w: remove %q", ErrInjected, key)
	}

	return s.inner.Remove(key)
}

func (s *ChaosStore) trip(rate float64) bool {
	if rate <= 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rng.Float64() < rate
}
