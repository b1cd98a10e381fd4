// Package reserv implements the superpage reservation manager: the
// subsystem that speculatively clusters base pages into aligned,
// contiguous runs ("superpages") on behalf of a memory object, so a
// surrounding pmap layer may later promote them.
//
// The package never talks to real hardware. It calls out to two
// externally supplied collaborators through the PhysAllocator and
// Object interfaces, exactly as spec'd: a physical page allocator that
// hands out order-aligned runs, and a memory object whose write lock
// is the reference serialization point for object-owned metadata.
package reserv

import "fmt"

// / PageShift is the base-2 exponent of the base page size.
const PageShift = 12

// / PageSize is the size in bytes of a single base page.
const PageSize = 1 << PageShift

// / Order is the base-2 exponent of the number of base pages per
// / superpage: a superpage backs N = 1<<Order base pages.
const Order = 9

// / N is the number of base pages in a single superpage (2MiB worth of
// / 4KiB base pages on the reference configuration).
const N = 1 << Order

// / SuperpageSize is the size in bytes of a single superpage.
const SuperpageSize = N * PageSize

// / ActMax is the saturating ceiling of a reservation's activation
// / counter.
const ActMax = 64

// / ActInit is the activation count a reservation receives the moment
// / it transitions into the ACTIVE queue.
const ActInit = 5

// / Dec is the amount the ager decrements actcnt by on each sweep that
// / does not demote a reservation to INACTIVE.
const Dec = 1

// / DepopStep is the LRU "advance" argument update_lru receives when a
// / page is freed (as opposed to allocated), per spec.md §4.I.
const DepopStep = 1

// / AllocStep is the LRU "advance" argument update_lru receives when a
// / page is populated (allocated) into an already-ACTIVE reservation.
const AllocStep = ActInit

// / StripeCount is the number of padded mutexes in the striped lock
// / array (spec.md §4.D).
const StripeCount = 256

// / Pa_t is a physical address, named after the teacher's mem.Pa_t.
type Pa_t uint64

// / Flags_t is the set of mutually-exclusive-or-combinable reservation
// / flags from spec.md §3: ACTIVE, INACTIVE, MARKER.
type Flags_t uint8

const (
	// / FlagActive marks a reservation as living in the ACTIVE LRU.
	FlagActive Flags_t = 1 << iota
	// / FlagInactive marks a reservation as living in the INACTIVE LRU.
	FlagInactive
	// / FlagMarker marks the persistent clock-hand sentinel; never set
	// / together with FlagActive or FlagInactive on a real reservation.
	FlagMarker
)

func (f Flags_t) String() string {
	s := ""
	if f&FlagActive != 0 {
		s += "A"
	}
	if f&FlagInactive != 0 {
		s += "I"
	}
	if f&FlagMarker != 0 {
		s += "M"
	}
	if s == "" {
		return "-"
	}
	return s
}

// / PageRun describes the N consecutive base pages backing a
// / reservation. NewTable builds every reservation with Present true;
// / table slots for unbacked physical address space hold no
// / reservation at all.
type PageRun struct {
	Base    Pa_t
	Present bool
}

// / Segment describes one contiguous span of RAM-backed physical
// / address space, as supplied to the reservation table builder at
// / startup (spec.md §4.C).
type Segment struct {
	Start Pa_t
	End   Pa_t
}

// / PageHandle identifies a single base page of an object: the
// / reservation that backs it (nil if untracked) and its index within
// / that reservation's owning object. It stands in for the "mpred"/
// / "msucc" neighbor-page arguments of spec.md §4.G/§4.H and for the
// / page returned by a successful allocation.
type PageHandle struct {
	Pindex int
	Rv     *Reservation_t
}

// invariantf panics with a diagnostic identifying the reservation and
// the violated invariant, per spec.md §7: invariant violations are
// fatal and must abort with a diagnostic.
func invariantf(rv *Reservation_t, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if rv == nil {
		panic(fmt.Sprintf("reserv: invariant violated: %s", msg))
	}
	panic(fmt.Sprintf("reserv: invariant violated on reservation idx=%d pindex=%d popcnt=%d flags=%s: %s",
		rv.index, rv.pindex, rv.popcnt, rv.flags, msg))
}
