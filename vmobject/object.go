// Package vmobject provides a minimal reference memory object
// satisfying reserv.Object: an index-to-page map guarded by the
// object's own write lock, the same lock a reservation manager's
// alloc/free/rename/break_all operations are documented to require the
// caller already hold.
package vmobject

import (
	"sync"
	"sync/atomic"

	"github.com/oichkatzel/vmreserv/reserv"
)

var nextID atomic.Uint64

// / Object_t is a page-cache-like container mapping object-relative
// / page indices to base pages, implementing reserv.Object. Embedding
// / sync.Mutex makes Lock/Unlock the object write lock the reserv
// / package's contracts refer to.
type Object_t struct {
	sync.Mutex

	id          uint64
	size        int
	vnodeBacked bool

	pages map[int]reserv.Pa_t
}

// / New constructs an Object_t of the given size in base-page indices.
// / vnodeBacked marks it (or a shadow chain it is backed by) as a
// / filesystem-vnode pager, per reserv.Object.VnodeBacked.
func New(size int, vnodeBacked bool) *Object_t {
	return &Object_t{
		id:          nextID.Add(1),
		size:        size,
		vnodeBacked: vnodeBacked,
		pages:       make(map[int]reserv.Pa_t),
	}
}

// / ID implements reserv.Object.
func (o *Object_t) ID() uint64 { return o.id }

// / Size implements reserv.Object.
func (o *Object_t) Size() int { return o.size }

// / VnodeBacked implements reserv.Object.
func (o *Object_t) VnodeBacked() bool { return o.vnodeBacked }

// / Insert records that page index i is now backed by pa. The caller
// / must hold the object's write lock.
func (o *Object_t) Insert(i int, pa reserv.Pa_t) {
	o.pages[i] = pa
}

// / Remove forgets page index i's mapping. The caller must hold the
// / object's write lock.
func (o *Object_t) Remove(i int) {
	delete(o.pages, i)
}

// / Lookup returns the base page backing index i, if any. The caller
// / must hold the object's write lock.
func (o *Object_t) Lookup(i int) (reserv.Pa_t, bool) {
	pa, ok := o.pages[i]
	return pa, ok
}

// / Resize grows or shrinks the object's size in base-page indices. The
// / caller must hold the object's write lock.
func (o *Object_t) Resize(size int) {
	o.size = size
}
