package reserv

// ObjQueue_t is the unordered set of reservations belonging to one
// memory object (spec.md §3/§4.E "reservation queue"), backed by the
// objPrev/objNext intrusive link pair. Membership is mutated only
// under the manager's free-page lock.
type ObjQueue_t struct {
	head, tail *Reservation_t
}

// / Empty reports whether the object currently owns no reservations.
func (q *ObjQueue_t) Empty() bool { return q.head == nil }

// / Insert adds rv to the object's reservation set.
func (q *ObjQueue_t) Insert(rv *Reservation_t) {
	if rv.objPrev != nil || rv.objNext != nil || q.head == rv {
		invariantf(rv, "double-insert into object reservation queue")
	}
	rv.objPrev = q.tail
	rv.objNext = nil
	if q.tail != nil {
		q.tail.objNext = rv
	} else {
		q.head = rv
	}
	q.tail = rv
}

// / Remove unlinks rv from the object's reservation set. rv must
// / currently be a member.
func (q *ObjQueue_t) Remove(rv *Reservation_t) {
	if rv.objPrev != nil {
		rv.objPrev.objNext = rv.objNext
	} else if q.head == rv {
		q.head = rv.objNext
	} else {
		invariantf(rv, "remove of reservation not in this object queue")
	}
	if rv.objNext != nil {
		rv.objNext.objPrev = rv.objPrev
	} else if q.tail == rv {
		q.tail = rv.objPrev
	}
	rv.objPrev, rv.objNext = nil, nil
}

// / Head returns an arbitrary member to start a walk from, or nil.
func (q *ObjQueue_t) Head() *Reservation_t { return q.head }

// objLink returns the object reservation queue for obj, creating one
// on first use. Caller must hold the free-page lock.
func (m *Manager_t) objLink(obj Object) *ObjQueue_t {
	q, ok := m.objLists[obj.ID()]
	if !ok {
		q = &ObjQueue_t{}
		m.objLists[obj.ID()] = q
	}
	return q
}

// linkToObject inserts rv into obj's reservation queue, immediately
// after allocating a fresh superpage and before (object, pindex) is
// published, per spec.md §4.E. Caller holds the free-page lock.
func (m *Manager_t) linkToObject(obj Object, rv *Reservation_t) {
	m.objLink(obj).Insert(rv)
}

// unlinkFromObject removes rv from its (now former) object's queue and
// garbage-collects the queue if it becomes empty. Caller holds the
// free-page lock.
func (m *Manager_t) unlinkFromObject(obj Object, rv *Reservation_t) {
	q, ok := m.objLists[obj.ID()]
	if !ok {
		invariantf(rv, "unlink from object with no reservation queue")
	}
	q.Remove(rv)
	if q.Empty() {
		delete(m.objLists, obj.ID())
	}
}

// / Rename relinks rv from old's reservation queue to new's, and
// / republishes (new, newPindex) under the sequence protocol, per
// / spec.md §4.E and the "Rename" scenario of §8. The caller must hold
// / new's write lock (spec.md §6); rv's stripe lock and then the
// / free-page lock are acquired internally.
func (m *Manager_t) Rename(rv *Reservation_t, newObj Object, newPindex int) {
	rv.lock.Lock()
	defer rv.lock.Unlock()

	m.freeLock.Lock()
	defer m.freeLock.Unlock()

	oldObj, _ := rv.LockedIdentity()
	if oldObj != nil {
		m.unlinkFromObject(oldObj, rv)
	}
	m.linkToObject(newObj, rv)
	rv.Publish(newObj, newPindex)
}
