package reserv

// / CheckAlignment reports whether pa satisfies a power-of-two
// / alignment constraint (0 meaning "unconstrained"). The reference
// / physical allocator (physpage) does not call it; it rounds candidate
// / addresses up to the alignment itself.
func CheckAlignment(pa Pa_t, alignment uintptr) bool {
	if alignment == 0 {
		return true
	}
	return uint64(pa)%uint64(alignment) == 0
}

// / CheckBoundary reports whether the half-open range [pa, pa+size)
// / never crosses a multiple of boundary (0 meaning "unconstrained"),
// / per spec.md §8 property 4: (pa XOR (pa+size-1)) & ~(boundary-1) == 0.
// / Exported so the reference physical allocator (physpage) shares this
// / exact check rather than carrying its own copy.
func CheckBoundary(pa Pa_t, size uintptr, boundary uintptr) bool {
	if boundary == 0 {
		return true
	}
	end := pa + Pa_t(size) - 1
	mask := ^uint64(boundary - 1)
	return (uint64(pa) ^ uint64(end)) & mask == 0
}

func roundupInt(v, b int) int {
	return ((v + b - 1) / b) * b
}

// / AllocContig implements the contiguous allocator of spec.md §4.H.
// / Per spec.md §6's external-interface table, the caller already
// / holds both object's write lock and the manager's free-page lock;
// / AllocContig therefore mutates object linkage and LRU membership
// / directly rather than acquiring them itself. alignment and
// / boundary are powers of
// / two in bytes (0 meaning unconstrained); the returned run satisfies
// / low <= start, start+npages*PageSize <= high,
// / start mod alignment == 0, and [start, start+size) never crosses a
// / boundary multiple.
func (m *Manager_t) AllocContig(object Object, pindex, npages int, low, high Pa_t, alignment, boundary uintptr, mpred *PageHandle) (PageHandle, error) {
	if pindex < 0 || npages <= 0 || pindex+npages > object.Size() {
		return PageHandle{}, ErrOutOfRange
	}

	first := pindex - (pindex % N)
	indexInRv := pindex - first

	// Reject requests whose constraints are already provably
	// unsatisfiable given the fixed low-order bits a page at
	// indexInRv within any superpage must have.
	impliedLow := uintptr(indexInRv) << PageShift
	if alignment != 0 && alignment <= SuperpageSize {
		if impliedLow%alignment != 0 {
			return PageHandle{}, ErrConstraintUnsatisfiable
		}
	}

	// Neighbor fast path: if mpred's reservation already claims
	// (object, pindex), try to land the whole request inside it. Only
	// mpred's reservation is consulted; no successor page is looked up.
	if mpred != nil && mpred.Rv != nil && mpred.Rv.Claims(object, pindex) {
		if h, ok := m.tryContigInExisting(mpred.Rv, object, pindex, npages, low, high, alignment, boundary); ok {
			return h, nil
		}
		return PageHandle{}, ErrNeighborConflict
	}

	maxpages := roundupInt(indexInRv+npages, N)
	minpages := indexInRv + npages
	needed := maxpages
	if first+maxpages > object.Size()+N {
		// Rounding up would reach past anything reasonable; fall back
		// to the tight request. (Space-vs-neighbor trimming is the
		// caller's responsibility via mpred/msucc in the single-page
		// path; here we only guard the degenerate case.)
		needed = minpages
	}

	if needed+first > object.Size() && object.VnodeBacked() {
		return PageHandle{}, ErrVnodeSpeculation
	}

	effAlignment := alignment
	if effAlignment < SuperpageSize {
		effAlignment = SuperpageSize
	}
	effBoundary := uintptr(0)
	if boundary > SuperpageSize {
		effBoundary = boundary
	}

	order := Order
	for (1 << order) < needed {
		order++
	}

	base, ok := m.phys.AllocRun(order, low, high, effAlignment, effBoundary)
	if !ok {
		return PageHandle{}, ErrAllocExhausted
	}

	runPages := 1 << order
	var result PageHandle
	remaining := npages
	curPindex := pindex
	for off := 0; off < runPages; off += N {
		supBase := base + Pa_t(off*PageSize)
		rv := m.table.FromAddr(supBase)
		if rv == nil {
			invariantf(nil, "physical allocator returned address %d with no table entry", supBase)
		}
		supFirst := first + off

		startIdx := 0
		if off == 0 {
			startIdx = indexInRv
		}
		endIdx := N
		take := endIdx - startIdx
		if take > remaining {
			take = remaining
		}

		rv.lock.Lock()
		m.linkToObject(object, rv)
		rv.Publish(object, supFirst)
		for i := 0; i < take; i++ {
			rv.popmap.Set(startIdx + i)
		}
		rv.popcnt += int32(take)
		rv.syncPsind()
		m.updateLru(rv, object, AllocStep)
		rv.lock.Unlock()

		if off == 0 {
			result = PageHandle{Pindex: curPindex, Rv: rv}
		}
		curPindex += take
		remaining -= take
		if remaining <= 0 {
			break
		}
	}

	return result, nil
}

// tryContigInExisting attempts to land a contiguous request entirely
// inside an existing reservation that already covers pindex: the
// bit-run must be all-clear and the fixed physical address of
// &pages[index] must still satisfy alignment/boundary.
func (m *Manager_t) tryContigInExisting(rv *Reservation_t, object Object, pindex, npages int, low, high Pa_t, alignment, boundary uintptr) (PageHandle, bool) {
	rv.lock.Lock()
	defer rv.lock.Unlock()

	obj, first := rv.LockedIdentity()
	if obj == nil || obj.ID() != object.ID() {
		return PageHandle{}, false
	}
	idx := pindex - first
	if idx < 0 || idx+npages > N {
		return PageHandle{}, false
	}
	for i := 0; i < npages; i++ {
		if rv.popmap.IsSet(idx + i) {
			return PageHandle{}, false
		}
	}
	pa := rv.pages.Base + Pa_t(idx*PageSize)
	size := uintptr(npages * PageSize)
	if pa < low || (high != 0 && pa+Pa_t(size) > high) {
		return PageHandle{}, false
	}
	if !CheckAlignment(pa, alignment) || !CheckBoundary(pa, size, boundary) {
		return PageHandle{}, false
	}

	for i := 0; i < npages; i++ {
		rv.popmap.Set(idx + i)
	}
	rv.popcnt += int32(npages)
	rv.syncPsind()
	m.updateLru(rv, object, AllocStep)

	return PageHandle{Pindex: pindex, Rv: rv}, true
}
