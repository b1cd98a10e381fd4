package reserv

import (
	"sync/atomic"

	"github.com/oichkatzel/vmreserv/popmap"
)

// / Reservation_t is the per-superpage metadata record of spec.md §3.
// / (object, pindex) is published and cleared under the sequence
// / counter protocol of §4.B; popmap/popcnt/actcnt/flags are protected
// / by the stripe lock this reservation hashes to; the object and LRU
// / link fields are protected by the manager's free-page lock.
type Reservation_t struct {
	lock *StripeLock_t

	// seq is even iff (object, pindex) is stable; odd iff a writer
	// holds the stripe lock mid-update (spec.md §3 invariant 6). Read
	// and written only via the helpers below.
	seq atomic.Uint32

	object Object
	pindex int

	// pages is immutable: NewReservation sets it and nothing changes
	// it afterwards.
	pages PageRun
	index int // index into the owning table
	domain int

	popmap *popmap.Popmap_t
	popcnt int32

	// psind mirrors "pages[0].psind" of spec.md invariant 3: the pmap
	// promotion hint this manager maintains on the backing page run's
	// behalf. 1 iff popcnt == N, 0 otherwise. The real pmap layer is
	// an external collaborator out of scope; this field is the only
	// part of that hint this package itself owns.
	psind int32

	actcnt int32
	flags  Flags_t

	objPrev, objNext *Reservation_t
	lruPrev, lruNext *Reservation_t
}

// / NewReservation allocates an unpublished, unpopulated reservation
// / record backed by the given page run, hashed to lock and living at
// / table index idx in NUMA domain domain.
func NewReservation(lock *StripeLock_t, pages PageRun, idx, domain int) *Reservation_t {
	return &Reservation_t{
		lock:   lock,
		pages:  pages,
		index:  idx,
		domain: domain,
		popmap: popmap.New(N),
	}
}

// / Index returns this reservation's slot in the reservation table.
func (rv *Reservation_t) Index() int { return rv.index }

// / Domain returns the NUMA domain this reservation's backing memory
// / belongs to.
func (rv *Reservation_t) Domain() int { return rv.domain }

// / Pages returns the immutable backing page run.
func (rv *Reservation_t) Pages() PageRun { return rv.pages }

// / Popcnt returns the current population count. Callers needing a
// / consistent snapshot must hold the stripe lock.
func (rv *Reservation_t) Popcnt() int { return int(rv.popcnt) }

// / Flags returns the current LRU membership flags.
func (rv *Reservation_t) Flags() Flags_t { return rv.flags }

// / IsMarker reports whether this is the persistent clock-hand
// / sentinel rather than a real reservation (spec.md §4.F/§9).
func (rv *Reservation_t) IsMarker() bool { return rv.flags&FlagMarker != 0 }

// / Psind returns the pmap promotion hint: 1 iff this reservation is
// / fully populated, 0 otherwise. Callers needing a consistent snapshot
// / must hold the stripe lock.
func (rv *Reservation_t) Psind() int32 { return rv.psind }

// syncPsind recomputes psind from the current popcnt. Caller holds the
// stripe lock.
func (rv *Reservation_t) syncPsind() {
	if rv.popcnt == N {
		rv.psind = 1
	} else {
		rv.psind = 0
	}
}

// beginWrite increments seq from even to odd, asserting the stripe
// lock is held and the counter was not already mid-update.
func (rv *Reservation_t) beginWrite() {
	rv.lock.AssertOwned()
	old := rv.seq.Load()
	if old%2 != 0 {
		invariantf(rv, "sequence counter %d already odd at write start", old)
	}
	rv.seq.Store(old + 1)
}

// endWrite increments seq from odd back to even, publishing the write.
func (rv *Reservation_t) endWrite() {
	old := rv.seq.Load()
	if old%2 != 1 {
		invariantf(rv, "sequence counter %d not odd at write end", old)
	}
	rv.seq.Store(old + 1)
}

// / Publish sets (object, pindex) under the sequence-counter protocol.
// / The caller must hold both the owning object's write lock (spec.md
// / §5) and this reservation's stripe lock.
func (rv *Reservation_t) Publish(object Object, pindex int) {
	rv.beginWrite()
	rv.object = object
	rv.pindex = pindex
	rv.endWrite()
}

// / Unpublish clears (object, pindex). The caller must hold the stripe
// / lock; the object write lock is not required to detach a
// / reservation that has dropped to zero population (spec.md §5).
func (rv *Reservation_t) Unpublish() {
	rv.beginWrite()
	rv.object = nil
	rv.pindex = 0
	rv.endWrite()
}

// / LockedIdentity returns (object, pindex) under the stripe lock; the
// / caller must already hold it.
func (rv *Reservation_t) LockedIdentity() (Object, int) {
	rv.lock.AssertOwned()
	return rv.object, rv.pindex
}

// / TryReadIdentity is the lock-free optimistic reader of §4.B: it
// / snapshots seq, reads (object, pindex), and re-reads seq. The read
// / is accepted (ok=true) iff both snapshots are equal and even;
// / otherwise the caller must retry or fall back to the locked path
// / (ErrStalePath).
func (rv *Reservation_t) TryReadIdentity() (object Object, pindex int, ok bool) {
	s1 := rv.seq.Load()
	if s1%2 != 0 {
		return nil, 0, false
	}
	object = rv.object
	pindex = rv.pindex
	s2 := rv.seq.Load()
	if s1 != s2 {
		return nil, 0, false
	}
	return object, pindex, true
}

// / Claims reports, via the optimistic path, whether this reservation's
// / index window currently covers (object, want): its published object
// / is object and want falls in [pindex, pindex+N). It retries the
// / lock-free read up to a small bound and then falls back to a read
// / under the stripe lock, as a fast-path neighbor lookup in §4.G/§4.H
// / would.
func (rv *Reservation_t) Claims(object Object, want int) bool {
	for i := 0; i < 8; i++ {
		obj, pindex, ok := rv.TryReadIdentity()
		if !ok {
			continue
		}
		if obj == nil {
			return false
		}
		return obj.ID() == object.ID() && want >= pindex && want < pindex+N
	}
	// Contended past the retry bound: fall back to the locked read,
	// which always observes a coherent value.
	rv.lock.Lock()
	obj, pindex := rv.LockedIdentity()
	rv.lock.Unlock()
	return obj != nil && obj.ID() == object.ID() && want >= pindex && want < pindex+N
}

// / End returns the exclusive end index (pindex + N) this reservation
// / would occupy in its object, valid only while the identity is known
// / to be stable (i.e. under the stripe lock or immediately after a
// / successful Claims/TryReadIdentity).
func (rv *Reservation_t) End() int { return rv.pindex + N }
