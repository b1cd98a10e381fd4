package reserv

// / FreePage implements spec.md §4.I's free_page: if p's reservation is
// / currently unpopulated at p.Pindex, it returns false (the page was
// / never reserved and the caller must route the free through the
// / physical allocator directly). Otherwise it depopulates the bit and
// / returns true. The caller holds the owning object's write lock;
// / FreePage takes rv's stripe lock and then the free-page lock
// / internally.
func (m *Manager_t) FreePage(p PageHandle) bool {
	rv := p.Rv
	if rv == nil {
		return false
	}

	rv.lock.Lock()
	defer rv.lock.Unlock()

	obj, first := rv.LockedIdentity()
	if obj == nil {
		return false
	}
	idx := p.Pindex - first
	if idx < 0 || idx >= N || rv.popmap.IsClear(idx) {
		return false
	}

	m.freeLock.Lock()
	m.depopulate(rv, obj, idx)
	m.freeLock.Unlock()
	m.freedCount.Add(1)
	return true
}

// depopulate implements spec.md §4.I's depopulate(rv, i). Caller holds
// rv's stripe lock and the free-page lock.
func (m *Manager_t) depopulate(rv *Reservation_t, obj Object, i int) {
	if rv.popmap.IsClear(i) {
		invariantf(rv, "depopulate of already-clear bit %d", i)
	}
	rv.popmap.Clear(i)
	rv.popcnt--
	rv.syncPsind()
	m.updateLru(rv, obj, DepopStep)
}

// / Break implements spec.md §4.I's break(rv, keep_page): it destroys a
// / reservation, returning its free pages to the physical allocator as
// / one or more contiguous runs, optionally retaining a single page
// / (keepIdx >= 0) the caller still owns. The caller holds the
// / free-page lock and rv's stripe lock, and rv must not currently be a
// / member of either PARTPOP LRU.
func (m *Manager_t) Break(rv *Reservation_t, keepIdx int) {
	if rv.flags&(FlagActive|FlagInactive) != 0 {
		invariantf(rv, "break of reservation still in a PARTPOP queue")
	}

	obj, _ := rv.LockedIdentity()
	if obj != nil {
		m.unlinkFromObject(obj, rv)
	}
	rv.Unpublish()

	// The reservation is being torn down in full: every page it backs,
	// populated or not, returns to the physical allocator except the
	// one the caller is keeping. Reset the popmap first and re-set only
	// keepIdx, abusing it to exclude that one page from the sweep below
	// (spec.md §4.I), rather than sweeping the pre-break popmap's
	// already-clear bits.
	rv.popmap.Reset()
	if keepIdx >= 0 {
		rv.popmap.Set(keepIdx)
		rv.popcnt = 1
	} else {
		rv.popcnt = 0
	}

	base := rv.pages.Base
	for bit := 0; bit < N; {
		begin, ok := rv.popmap.NextZero(bit)
		if !ok {
			break
		}
		end := N
		if next, ok := rv.popmap.NextOne(begin); ok {
			end = next
		}
		m.phys.FreeRange(base+Pa_t(begin*PageSize), end-begin)
		bit = end
	}

	rv.syncPsind()
	m.brokenCount.Add(1)
}

// / BreakAll implements spec.md §4.I's break_all(object): it iterates
// / object's reservation list under the free-page lock, breaking every
// / member reservation wholesale. On stripe-lock contention it drops
// / the free-page lock, acquires the stripe lock, reacquires the
// / free-page lock, and re-verifies the entry is still object's before
// / proceeding, opportunistically chaining into the next list head
// / while its stripe lock matches the one already held. The caller
// / holds object's write lock.
func (m *Manager_t) BreakAll(object Object) {
	m.freeLock.Lock()
	defer m.freeLock.Unlock()

	for {
		q, ok := m.objLists[object.ID()]
		if !ok || q.Empty() {
			return
		}
		rv := q.Head()

		if !rv.lock.TryLock() {
			m.freeLock.Unlock()
			rv.lock.Lock()
			m.freeLock.Lock()
			if obj, _ := rv.LockedIdentity(); obj == nil || obj.ID() != object.ID() {
				rv.lock.Unlock()
				continue
			}
		}

		for rv != nil {
			obj, _ := rv.LockedIdentity()
			if obj == nil || obj.ID() != object.ID() {
				rv.lock.Unlock()
				break
			}
			if rv.flags&(FlagActive|FlagInactive) != 0 {
				m.domainLRU(rv.domain).dequeuePartpop(rv)
			}
			next := rv.objNext
			m.Break(rv, -1)

			if next == nil || next.lock != rv.lock {
				rv.lock.Unlock()
				break
			}
			rv = next
		}
	}
}

// / ReclaimInactive implements spec.md §4.I's reclaim_inactive(): it
// / chooses the LRU-head reservation of INACTIVE, falling back to
// / ACTIVE (skipping the MARKER) if INACTIVE is empty, breaks it, and
// / returns true. It returns false if both queues are empty. The
// / caller holds the free-page lock.
func (m *Manager_t) ReclaimInactive() bool {
	for _, d := range m.domains {
		if m.reclaimInactiveFrom(d) {
			return true
		}
	}
	return false
}

func (m *Manager_t) reclaimInactiveFrom(d *domainLRU_t) bool {
	rv := d.inactive.Head()
	if rv == nil {
		rv = d.active.Head()
		for rv != nil && rv.IsMarker() {
			rv = rv.lruNext
		}
	}
	if rv == nil {
		return false
	}

	if !rv.lock.TryLock() {
		m.freeLock.Unlock()
		rv.lock.Lock()
		m.freeLock.Lock()
	}
	defer rv.lock.Unlock()

	if rv.flags&(FlagActive|FlagInactive) == 0 {
		// Lost the race while the free-page lock was dropped.
		return false
	}

	d.dequeuePartpop(rv)
	m.Break(rv, -1)
	m.reclaimedCount.Add(1)
	return true
}

// / ReclaimContig implements spec.md §4.I's reclaim_contig(npages, low,
// / high, alignment, boundary): it walks INACTIVE in LRU order looking
// / for a reservation containing a free run satisfying the alignment
// / and boundary constraints, breaks it, and returns true. It is a
// / latent capability per the spec's note that contig reclaim may
// / instead be left to the caller's retry strategy; this package
// / exports it but never calls it internally. The caller holds the
// / free-page lock.
func (m *Manager_t) ReclaimContig(npages int, low, high Pa_t, alignment, boundary uintptr) bool {
	for _, d := range m.domains {
		if m.reclaimContigFrom(d, npages, low, high, alignment, boundary) {
			return true
		}
	}
	return false
}

func (m *Manager_t) reclaimContigFrom(d *domainLRU_t, npages int, low, high Pa_t, alignment, boundary uintptr) bool {
	for rv := d.inactive.Head(); rv != nil; rv = rv.lruNext {
		lo := rv.pages.Base
		hi := rv.pages.Base + SuperpageSize
		if hi <= low || (high != 0 && lo >= high) {
			continue
		}

		start := 0
		if low > lo {
			start = int((low - lo) / PageSize)
		}

		if !rv.lock.TryLock() {
			continue
		}

		found := false
		for bit := start; bit < N; {
			zbegin, ok := rv.popmap.NextZero(bit)
			if !ok {
				break
			}
			zend := N
			if next, ok := rv.popmap.NextOne(zbegin); ok {
				zend = next
			}
			pa := rv.pages.Base + Pa_t(zbegin*PageSize)
			if zend-zbegin >= npages && CheckAlignment(pa, alignment) &&
				CheckBoundary(pa, uintptr(npages*PageSize), boundary) {
				found = true
				break
			}
			bit = zend
		}

		if !found {
			rv.lock.Unlock()
			continue
		}

		if rv.flags&(FlagActive|FlagInactive) != 0 {
			m.domainLRU(rv.domain).dequeuePartpop(rv)
		}
		m.Break(rv, -1)
		rv.lock.Unlock()
		m.reclaimedCount.Add(1)
		return true
	}
	return false
}
