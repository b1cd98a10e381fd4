package reserv

// / AllocPage implements the single-page allocator of spec.md §4.G.
// / The caller must hold object's write lock. mpred, if non-nil, is the
// / greatest allocated page of object with an index strictly less than
// / pindex; msucc, if non-nil, is object's successor page to pindex (or
// / its first page if mpred is nil). AllocPage returns the allocated
// / page handle, or a zero value and a non-nil error identifying the
// / recoverable failure, per spec.md §7.
func (m *Manager_t) AllocPage(object Object, pindex int, mpred, msucc *PageHandle) (PageHandle, error) {
	if pindex < 0 || pindex >= object.Size() {
		return PageHandle{}, ErrOutOfRange
	}

	first := pindex - (pindex % N)

	// Left lookup: if mpred falls in an existing reservation that
	// already claims (object, pindex), use it directly (fast path).
	// Otherwise derive leftcap, the lowest index a fresh reservation
	// at `first` must not encroach on.
	if mpred != nil && mpred.Rv != nil {
		rv := mpred.Rv
		if rv.Claims(object, pindex) {
			return m.populateFound(rv, object, pindex)
		}
		var leftcap int
		if obj, _, ok := rv.TryReadIdentity(); ok && obj != nil && obj.ID() == object.ID() {
			leftcap = rv.End()
		} else {
			leftcap = mpred.Pindex + 1
		}
		if leftcap > first {
			return PageHandle{}, ErrNeighborConflict
		}
	}

	// Right lookup: same dance against msucc.
	if msucc != nil && msucc.Rv != nil {
		rv := msucc.Rv
		if rv.Claims(object, pindex) {
			return m.populateFound(rv, object, pindex)
		}
		var rightcap int
		if obj, rvPindex, ok := rv.TryReadIdentity(); ok && obj != nil && obj.ID() == object.ID() {
			rightcap = rvPindex
		} else {
			rightcap = msucc.Pindex
		}
		if first+N > rightcap {
			return PageHandle{}, ErrNeighborConflict
		}
	}

	// Never over-speculate on file-backed memory past end-of-object.
	if first+N > object.Size() && object.VnodeBacked() {
		return PageHandle{}, ErrVnodeSpeculation
	}

	base, ok := m.phys.AllocRun(Order, 0, 0, SuperpageSize, 0)
	if !ok {
		return PageHandle{}, ErrAllocExhausted
	}

	rv := m.table.FromAddr(base)
	if rv == nil {
		invariantf(nil, "physical allocator returned address %d with no table entry", base)
	}

	rv.lock.Lock()
	m.freeLock.Lock()
	m.linkToObject(object, rv)
	m.freeLock.Unlock()
	rv.Publish(object, first)
	rv.lock.Unlock()

	return m.populateFound(rv, object, pindex)
}

// populateFound implements the "Found" step of spec.md §4.G: under
// rv's stripe lock, populate index (pindex-first) unless a racing
// rename already occupied it.
func (m *Manager_t) populateFound(rv *Reservation_t, object Object, pindex int) (PageHandle, error) {
	rv.lock.Lock()
	defer rv.lock.Unlock()

	obj, first := rv.LockedIdentity()
	if obj == nil || obj.ID() != object.ID() {
		return PageHandle{}, ErrStalePath
	}
	idx := pindex - first
	if idx < 0 || idx >= N {
		return PageHandle{}, ErrStalePath
	}
	if rv.popmap.IsSet(idx) {
		return PageHandle{}, ErrNeighborConflict
	}

	rv.popmap.Set(idx)
	rv.popcnt++
	rv.syncPsind()

	m.freeLock.Lock()
	m.updateLru(rv, object, AllocStep)
	m.freeLock.Unlock()

	return PageHandle{Pindex: pindex, Rv: rv}, nil
}
