package reserv

import "github.com/pkg/errors"

// All recoverable failures surface as (value, bool) or (value, error)
// returns, never panics or exceptions — spec.md §7. These sentinels
// name the recoverable cases so callers and tests can tell them apart
// without parsing a message string.
var (
	// / ErrNeighborConflict means a fresh reservation at the computed
	// / base offset would overlap an existing left or right neighbor.
	ErrNeighborConflict = errors.New("reserv: neighbor reservation conflict")
	// / ErrVnodeSpeculation means the request would extend a
	// / reservation past a vnode-backed object's size.
	ErrVnodeSpeculation = errors.New("reserv: refusing to speculate past vnode-backed object size")
	// / ErrAllocExhausted means the physical allocator could not
	// / satisfy the requested run.
	ErrAllocExhausted = errors.New("reserv: physical allocator exhausted")
	// / ErrConstraintUnsatisfiable means the alignment/boundary
	// / constraints of a contiguous request can provably never be met.
	ErrConstraintUnsatisfiable = errors.New("reserv: alignment/boundary constraints unsatisfiable")
	// / ErrOutOfRange means pindex falls outside the object's size.
	ErrOutOfRange = errors.New("reserv: pindex out of object range")
	// / ErrStalePath means an optimistic fast-path lookup observed a
	// / torn or mismatched sequence snapshot and the caller should
	// / retry or fall back to the locked path.
	ErrStalePath = errors.New("reserv: stale fast-path lookup")
)

// / PhysAllocator is the external physical page allocator this manager
// / calls into for fresh superpage runs and returns freed runs to.
// / Implementations are assumed to return suitable (e.g. NUMA-local)
// / memory; placement policy is out of scope (spec.md §1 Non-goals).
type PhysAllocator interface {
	// / AllocRun requests 1<<order physically-contiguous base pages
	// / satisfying alignment and
	// / boundary (both powers of two, boundary 0 meaning "no boundary
	// / constraint") and the half-open range [low, high) in bytes.
	// / ok is false if no run could be produced.
	AllocRun(order int, low, high Pa_t, alignment, boundary uintptr) (base Pa_t, ok bool)
	// / FreeRun returns a run of 1<<order base pages starting at base
	// / to the allocator; used when an entire superpage-order run
	// / becomes free at once (spec.md §4.I FreePage's popcnt->0 case).
	FreeRun(base Pa_t, order int)
	// / FreeRange returns an arbitrary-length contiguous run of npages
	// / base pages starting at base; used by Break to hand back the
	// / maximal zero-runs swept out of a shattered reservation's
	// / popmap, which need not be a power-of-two length (spec.md
	// / §4.I Break).
	FreeRange(base Pa_t, npages int)
}

// / Object is the external memory-object collaborator: a page-cache-like
// / container mapping indices to base pages. Its write lock is the
// / reference serialization point for object-owned metadata (spec.md
// / §1); this package never acquires or checks it. Callers hold it where
// / the contract (spec.md §6) requires it.
type Object interface {
	// / ID distinguishes this object from any other. Two Object values
	// / with the same ID are the same object.
	ID() uint64
	// / Size returns the object's size in base-page indices.
	Size() int
	// / VnodeBacked reports whether this object (or an object it is
	// / backed by, e.g. a shadow chain) is a filesystem-vnode pager.
	// / Speculation past end-of-object is refused for such objects
	// / (spec.md §4.G step 5, §8 property 5).
	VnodeBacked() bool
}
