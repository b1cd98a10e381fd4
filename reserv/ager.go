package reserv

import "golang.org/x/sync/errgroup"

// / Scan implements spec.md §4.J's scan(domain, target): it advances
// / the persistent MARKER through the ACTIVE LRU of domain, starting
// / from where it last stopped. For each non-MARKER reservation it
// / trylocks; if actcnt <= DEC it demotes the reservation to INACTIVE
// / and decrements target, otherwise it decrements actcnt by DEC. The
// / scan terminates when target reaches 0 or the queue ends, leaving
// / the MARKER positioned immediately before the cursor so the next
// / call resumes in FIFO order. Scan acquires the free-page lock
// / internally.
func (m *Manager_t) Scan(domain int, target int) {
	m.freeLock.Lock()
	defer m.freeLock.Unlock()

	d := m.domainLRU(domain)
	d.active.Remove(d.marker)

	cursor := d.active.Head()
	for cursor != nil && target > 0 {
		if !cursor.lock.TryLock() {
			m.freeLock.Unlock()
			cursor.lock.Lock()
			m.freeLock.Lock()
		}

		// Re-verify cursor is still ACTIVE: dropping the free-page lock
		// above (for this cursor's own contention, or an earlier
		// cursor's, since freeLock may have been dropped and
		// reacquired one or more times since this walk began) lets a
		// concurrent alloc/free/break dequeue any reservation out from
		// under this walk, including one already cached as "next".
		// Once dequeued, a reservation's own lruNext is no longer a
		// queue link, so fall back to the current ACTIVE head instead
		// of trusting it.
		if cursor.flags&FlagActive == 0 {
			cursor.lock.Unlock()
			cursor = d.active.Head()
			continue
		}

		// Safe to read only now: we hold both the free-page lock and
		// cursor's own lock without any gap since the check above, so
		// no concurrent mutator could have touched cursor's links.
		next := cursor.lruNext

		if cursor.actcnt <= Dec {
			d.active.Remove(cursor)
			cursor.actcnt = 0
			cursor.flags &^= FlagActive
			cursor.flags |= FlagInactive
			d.inactive.PushTail(cursor)
			target--
		} else {
			cursor.actcnt -= Dec
		}
		cursor.lock.Unlock()

		cursor = next
	}

	if cursor != nil {
		insertBeforeActive(d, cursor, d.marker)
	} else {
		d.active.PushTail(d.marker)
	}
}

// insertBeforeActive splices marker into domain d's ACTIVE queue
// immediately before at, so the next Scan resumes its walk starting at
// at. Caller holds the free-page lock.
func insertBeforeActive(d *domainLRU_t, at, marker *Reservation_t) {
	before := at.lruPrev
	marker.lruNext = at
	marker.lruPrev = before
	if before != nil {
		before.lruNext = marker
	} else {
		d.active.head = marker
	}
	at.lruPrev = marker
}

// / ScanAll runs Scan(domain, target) concurrently across every domain
// / named in targets, per SPEC_FULL.md's per-domain ager decision. It
// / waits for every domain's scan to finish before returning.
func (m *Manager_t) ScanAll(targets map[int]int) error {
	var g errgroup.Group
	for domain, target := range targets {
		domain, target := domain, target
		g.Go(func() error {
			m.Scan(domain, target)
			return nil
		})
	}
	return g.Wait()
}
