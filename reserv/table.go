package reserv

import "github.com/pkg/errors"

// / Table_t is the dense array of spec.md §4.C, indexed by
// / paddr >> (Order+PageShift). Entries whose physical range is not
// / backed by RAM are nil and are skipped by every caller.
type Table_t struct {
	entries []*Reservation_t
	locks   *Locks_t
	lowPa   Pa_t
}

// / IndexForAddr returns the table index for the superpage containing
// / physical address pa.
func IndexForAddr(pa Pa_t) int {
	return int(pa >> (Order + PageShift))
}

// / NewTable builds the reservation table from the physical-memory
// / segment list, per spec.md §4.C: for each segment, superpage-aligned
// / slots are allocated a latent Reservation_t with Pages().Present
// / true; addresses outside any segment are left nil (skipped by
// / table walkers). domainOf assigns a NUMA domain to each superpage
// / base address; pass a constant-0 function if domains don't matter.
func NewTable(segments []Segment, highWater Pa_t, locks *Locks_t, domainOf func(Pa_t) int) (*Table_t, error) {
	if highWater == 0 {
		return nil, errors.New("reserv: table sizing requires a nonzero high-water physical address")
	}
	nslots := IndexForAddr(highWater-1) + 1
	t := &Table_t{
		entries: make([]*Reservation_t, nslots),
		locks:   locks,
	}
	for _, seg := range segments {
		if seg.End <= seg.Start {
			return nil, errors.Errorf("reserv: malformed segment [%d, %d)", seg.Start, seg.End)
		}
		start := roundupPa(seg.Start, SuperpageSize)
		end := rounddownPa(seg.End, SuperpageSize)
		for pa := start; pa+SuperpageSize <= end; pa += SuperpageSize {
			idx := IndexForAddr(pa)
			if idx >= len(t.entries) {
				break
			}
			dom := 0
			if domainOf != nil {
				dom = domainOf(pa)
			}
			t.entries[idx] = NewReservation(locks.For(idx), PageRun{Base: pa, Present: true}, idx, dom)
		}
	}
	return t, nil
}

func roundupPa(v, b Pa_t) Pa_t {
	return ((v + b - 1) / b) * b
}

func rounddownPa(v, b Pa_t) Pa_t {
	return (v / b) * b
}

// / At returns the latent or live reservation at table index idx, or
// / nil if idx is out of range or unbacked.
func (t *Table_t) At(idx int) *Reservation_t {
	if idx < 0 || idx >= len(t.entries) {
		return nil
	}
	return t.entries[idx]
}

// / FromAddr returns the reservation backing the superpage containing
// / physical address pa (vm_reserv_from_page in spec.md §4.C), or nil
// / if that range is unbacked.
func (t *Table_t) FromAddr(pa Pa_t) *Reservation_t {
	return t.At(IndexForAddr(pa))
}

// / Len returns the number of slots in the table.
func (t *Table_t) Len() int { return len(t.entries) }
