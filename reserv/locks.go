package reserv

import (
	"sync"

	"golang.org/x/sys/cpu"
)

// / StripeLock_t is one entry of the striped lock array (spec.md §4.D):
// / a plain mutex padded to its own cache line so that unrelated
// / reservations hashing to adjacent stripes don't false-share.
type StripeLock_t struct {
	mu  sync.Mutex
	_   cpu.CacheLinePad
}

// / Lock acquires the stripe lock, potentially blocking.
func (s *StripeLock_t) Lock() { s.mu.Lock() }

// / Unlock releases the stripe lock.
func (s *StripeLock_t) Unlock() { s.mu.Unlock() }

// / TryLock attempts to acquire the stripe lock without blocking.
func (s *StripeLock_t) TryLock() bool { return s.mu.TryLock() }

// / AssertOwned panics if the calling goroutine does not (as far as a
// / best-effort check can tell) hold the lock. It works by attempting
// / a non-blocking acquire: if that succeeds, nobody held the lock, so
// / it is released immediately and the assertion fails.
func (s *StripeLock_t) AssertOwned() {
	if s.mu.TryLock() {
		s.mu.Unlock()
		panic("reserv: stripe lock assertion failed: lock not held")
	}
}

// / Locks_t is the fixed-size striped lock array shared by every
// / reservation in a table. A reservation maps to
// / locks.For(index_in_table).
type Locks_t struct {
	stripes [StripeCount]StripeLock_t
}

// / NewLocks allocates a fresh striped lock array.
func NewLocks() *Locks_t {
	return &Locks_t{}
}

// / For returns the stripe lock guarding the reservation at the given
// / table index.
func (l *Locks_t) For(tableIndex int) *StripeLock_t {
	return &l.stripes[tableIndex%StripeCount]
}
