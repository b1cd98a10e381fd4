package reserv_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oichkatzel/vmreserv/reserv"
	"github.com/oichkatzel/vmreserv/vmobject"
)

// Testable property 3 of spec.md §8: starting from an empty physical
// allocator of P pages, any sequence of alloc_page, free_page,
// break_all, reclaim_inactive, and rename, followed by draining every
// object, leaves exactly P pages available and zero reservations.
func TestRoundTripConservationAcrossMixedOps(t *testing.T) {
	const nsup = 3
	m, phys := newTestManager(t, nsup)
	total := phys.FreePages()

	o1 := vmobject.New(reserv.N, false)
	o2 := vmobject.New(reserv.N, false)
	o3 := vmobject.New(reserv.N, false)

	h1, err := m.AllocPage(o1, 0, nil, nil)
	require.NoError(t, err)
	h2, err := m.AllocPage(o1, 1, &h1, nil)
	require.NoError(t, err)

	h3, err := m.AllocPage(o2, 0, nil, nil)
	require.NoError(t, err)

	_, err = m.AllocPage(o3, 0, nil, nil)
	require.NoError(t, err)

	// Free one page back out of o1's reservation.
	require.True(t, m.FreePage(h2))

	// Rename o2's reservation into o3's list at a disjoint window.
	m.Rename(h3.Rv, o3, reserv.N)

	// Age the two reservations now owned by o3 into INACTIVE. The
	// reclaim loop drains INACTIVE and then falls back to ACTIVE, so it
	// destroys o1's reservation too; the break_all calls then find
	// nothing left to break.
	for i := 0; i < reserv.ActInit+1; i++ {
		m.Scan(0, 1)
	}
	for m.ReclaimInactive() {
	}

	m.BreakAll(o1)
	m.BreakAll(o3)

	require.Equal(t, total, phys.FreePages())
	require.Equal(t, 0, m.FullCount())
	active, inactive := m.PartpopSummary(0)
	require.Equal(t, 0, active)
	require.Equal(t, 0, inactive)
}
