package reserv_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oichkatzel/vmreserv/physpage"
	"github.com/oichkatzel/vmreserv/reserv"
	"github.com/oichkatzel/vmreserv/vmobject"
)

func TestScanDemotesExhaustedReservation(t *testing.T) {
	m, _ := newTestManager(t, 1)
	obj := vmobject.New(reserv.N, false)

	h, err := m.AllocPage(obj, 0, nil, nil)
	require.NoError(t, err)
	require.NotEqual(t, reserv.Flags_t(0), h.Rv.Flags()&0x1)

	for i := 0; i < reserv.ActInit+1; i++ {
		m.Scan(0, 1)
	}

	active, inactive := m.PartpopSummary(0)
	require.Equal(t, 0, active)
	require.Equal(t, 1, inactive)
}

func TestScanLeavesFreshlyActivatedReservationAlone(t *testing.T) {
	m, _ := newTestManager(t, 1)
	obj := vmobject.New(reserv.N, false)

	_, err := m.AllocPage(obj, 0, nil, nil)
	require.NoError(t, err)

	m.Scan(0, 1)

	active, inactive := m.PartpopSummary(0)
	require.Equal(t, 1, active)
	require.Equal(t, 0, inactive)
}

func TestScanAllCoversEveryDomain(t *testing.T) {
	locks := reserv.NewLocks()
	highWater := reserv.Pa_t(2) * reserv.SuperpageSize
	domainOf := func(pa reserv.Pa_t) int {
		if pa == 0 {
			return 0
		}
		return 1
	}
	tbl, err := reserv.NewTable([]reserv.Segment{{Start: 0, End: highWater}}, highWater, locks, domainOf)
	require.NoError(t, err)

	phys := physpage.New(0, 2*reserv.N)
	m := reserv.NewManager(tbl, locks, phys, []int{0, 1})

	obj0 := vmobject.New(reserv.N, false)
	obj1 := vmobject.New(reserv.N, false)
	_, err = m.AllocPage(obj0, 0, nil, nil)
	require.NoError(t, err)
	_, err = m.AllocPage(obj1, 0, nil, nil)
	require.NoError(t, err)

	err = m.ScanAll(map[int]int{0: 1, 1: 1})
	require.NoError(t, err)

	active0, _ := m.PartpopSummary(0)
	active1, _ := m.PartpopSummary(1)
	require.Equal(t, 1, active0)
	require.Equal(t, 1, active1)
}
