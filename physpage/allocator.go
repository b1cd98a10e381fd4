// Package physpage provides a minimal reference physical page allocator
// satisfying reserv.PhysAllocator: a single mutex-protected free list of
// address-ordered contiguous runs, extended with the alignment/boundary
// constraint checks a superpage-aware caller needs.
package physpage

import (
	"sync"

	"github.com/oichkatzel/vmreserv/reserv"
)

const pageSize = 1 << 12

// / Pa_t is a physical address, re-exported for callers constructing an
// / Allocator_t without importing reserv directly.
type Pa_t = reserv.Pa_t

// run is one maximal free contiguous span, kept address-sorted.
type run struct {
	base  Pa_t
	pages int
}

// / Allocator_t is a free-list-of-runs physical page allocator. The
// / zero value is not usable; construct with New.
type Allocator_t struct {
	mu   sync.Mutex
	free []run
}

// / New constructs an Allocator_t whose entire address space is free
// / from base for npages base pages.
func New(base Pa_t, npages int) *Allocator_t {
	return &Allocator_t{free: []run{{base: base, pages: npages}}}
}

// / AllocRun requests 1<<order contiguous base pages within
// / [low, high) (high == 0 meaning unbounded) satisfying alignment and
// / boundary, implementing reserv.PhysAllocator. It is first-fit over
// / the address-ordered free list; ok is false if no run qualifies.
func (a *Allocator_t) AllocRun(order int, low, high Pa_t, alignment, boundary uintptr) (base Pa_t, ok bool) {
	npages := 1 << order
	size := uintptr(npages) * pageSize

	a.mu.Lock()
	defer a.mu.Unlock()

	for i, r := range a.free {
		rEnd := r.base + Pa_t(r.pages)*pageSize
		candBase := r.base
		if low > candBase {
			candBase = low
		}
		if alignment != 0 {
			rem := uint64(candBase) % uint64(alignment)
			if rem != 0 {
				candBase += Pa_t(uint64(alignment) - rem)
			}
		}
		candEnd := candBase + Pa_t(size)
		if candEnd > rEnd {
			continue
		}
		if high != 0 && candEnd > high {
			continue
		}
		if !reserv.CheckBoundary(candBase, size, boundary) {
			continue
		}

		a.carve(i, candBase, npages)
		return candBase, true
	}
	return 0, false
}

// carve removes [base, base+npages) from free run i, splitting off
// whatever remains on either side. Caller holds a.mu.
func (a *Allocator_t) carve(i int, base Pa_t, npages int) {
	r := a.free[i]
	rEnd := r.base + Pa_t(r.pages)*pageSize
	allocEnd := base + Pa_t(npages)*pageSize

	var replacement []run
	if base > r.base {
		replacement = append(replacement, run{base: r.base, pages: int((base - r.base) / pageSize)})
	}
	if allocEnd < rEnd {
		replacement = append(replacement, run{base: allocEnd, pages: int((rEnd - allocEnd) / pageSize)})
	}

	a.free = append(a.free[:i], append(replacement, a.free[i+1:]...)...)
}

// / FreeRun returns a run of 1<<order base pages starting at base,
// / implementing reserv.PhysAllocator.
func (a *Allocator_t) FreeRun(base Pa_t, order int) {
	a.FreeRange(base, 1<<order)
}

// / FreeRange returns an arbitrary-length contiguous run of npages base
// / pages starting at base, implementing reserv.PhysAllocator. Adjacent
// / free runs are coalesced.
func (a *Allocator_t) FreeRange(base Pa_t, npages int) {
	if npages <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	newRun := run{base: base, pages: npages}
	idx := len(a.free)
	for i, r := range a.free {
		if newRun.base < r.base {
			idx = i
			break
		}
	}
	a.free = append(a.free, run{})
	copy(a.free[idx+1:], a.free[idx:])
	a.free[idx] = newRun

	a.coalesce(idx)
}

// coalesce merges the run at idx with its immediate neighbors if they
// are address-contiguous. Caller holds a.mu.
func (a *Allocator_t) coalesce(idx int) {
	if idx+1 < len(a.free) {
		cur := a.free[idx]
		next := a.free[idx+1]
		if cur.base+Pa_t(cur.pages)*pageSize == next.base {
			a.free[idx].pages += next.pages
			a.free = append(a.free[:idx+1], a.free[idx+2:]...)
		}
	}
	if idx > 0 {
		prev := a.free[idx-1]
		cur := a.free[idx]
		if prev.base+Pa_t(prev.pages)*pageSize == cur.base {
			a.free[idx-1].pages += cur.pages
			a.free = append(a.free[:idx], a.free[idx+1:]...)
		}
	}
}

// / FreePages returns the total number of currently free base pages,
// / for diagnostics and tests.
func (a *Allocator_t) FreePages() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, r := range a.free {
		n += r.pages
	}
	return n
}
