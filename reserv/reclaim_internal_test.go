package reserv

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fakePhys is a trivial bump allocator recording every freed run, for
// white-box tests that need to inspect exactly what Break hands back.
type fakePhys struct {
	next       Pa_t
	freedRuns  [][2]int // [base/PageSize, npages]
	freedOrder []int
}

func (f *fakePhys) AllocRun(order int, low, high Pa_t, alignment, boundary uintptr) (Pa_t, bool) {
	base := f.next
	f.next += Pa_t(1<<order) * PageSize
	return base, true
}

func (f *fakePhys) FreeRun(base Pa_t, order int) {
	f.freedOrder = append(f.freedOrder, order)
}

func (f *fakePhys) FreeRange(base Pa_t, npages int) {
	f.freedRuns = append(f.freedRuns, [2]int{int(base / PageSize), npages})
}

func newInternalTestManager(t *testing.T, nsup int) (*Manager_t, *fakePhys) {
	t.Helper()
	locks := NewLocks()
	highWater := Pa_t(nsup) * SuperpageSize
	tbl, err := NewTable([]Segment{{Start: 0, End: highWater}}, highWater, locks, nil)
	require.NoError(t, err)
	phys := &fakePhys{}
	m := NewManager(tbl, locks, phys, []int{0})
	return m, phys
}

func TestBreakWithKeptPageYieldsTwoRuns(t *testing.T) {
	m, phys := newInternalTestManager(t, 1)
	obj := &fakeObject{id: 1, size: N}

	var last PageHandle
	for i := 0; i < 4; i++ {
		var mpred *PageHandle
		if i > 0 {
			mpred = &last
		}
		h, err := m.AllocPage(obj, i, mpred, nil)
		require.NoError(t, err)
		last = h
	}
	require.Equal(t, 4, last.Rv.Popcnt())

	rv := last.Rv
	rv.lock.Lock()
	m.freeLock.Lock()
	m.domainLRU(rv.Domain()).dequeuePartpop(rv)
	m.Break(rv, 2)
	m.freeLock.Unlock()
	rv.lock.Unlock()

	require.Equal(t, 1, rv.Popcnt())
	require.Len(t, phys.freedRuns, 2)
	require.Equal(t, [2]int{0, 2}, phys.freedRuns[0])
	require.Equal(t, [2]int{3, N - 3}, phys.freedRuns[1])
}

func TestDepopulateDemotesPsindOnNToNMinus1(t *testing.T) {
	m, _ := newInternalTestManager(t, 1)
	obj := &fakeObject{id: 1, size: N}

	var last PageHandle
	for i := 0; i < N; i++ {
		var mpred *PageHandle
		if i > 0 {
			mpred = &last
		}
		h, err := m.AllocPage(obj, i, mpred, nil)
		require.NoError(t, err)
		last = h
	}
	rv := last.Rv
	require.Equal(t, int32(1), rv.Psind())

	require.True(t, m.FreePage(last))
	require.Equal(t, int32(0), rv.Psind())
}

func TestReclaimInactiveFallsBackToActive(t *testing.T) {
	m, phys := newInternalTestManager(t, 1)
	obj := &fakeObject{id: 1, size: N}

	h, err := m.AllocPage(obj, 0, nil, nil)
	require.NoError(t, err)
	require.True(t, h.Rv.Flags()&FlagActive != 0)

	require.True(t, m.ReclaimInactive())
	require.Equal(t, uint64(1), m.CumulativeReclaimed())
	require.Len(t, phys.freedRuns, 1)
}
