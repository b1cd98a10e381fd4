package physpage_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oichkatzel/vmreserv/physpage"
)

const pageSize = 1 << 12

func TestAllocRunFirstFit(t *testing.T) {
	a := physpage.New(0, 16)
	base, ok := a.AllocRun(2, 0, 0, 0, 0) // 4 pages
	require.True(t, ok)
	require.Equal(t, physpage.Pa_t(0), base)
	require.Equal(t, 12, a.FreePages())
}

func TestAllocRunRespectsAlignment(t *testing.T) {
	a := physpage.New(0, 16)
	// Consume one page so the natural next slot (1) is misaligned for
	// a 4-page-aligned request.
	_, ok := a.AllocRun(0, 0, 0, 0, 0)
	require.True(t, ok)

	alignment := uintptr(4 * pageSize)
	base, ok := a.AllocRun(0, 0, 0, alignment, 0)
	require.True(t, ok)
	require.Equal(t, uint64(0), uint64(base)%uint64(alignment))
}

func TestAllocRunExhaustion(t *testing.T) {
	a := physpage.New(0, 4)
	_, ok := a.AllocRun(2, 0, 0, 0, 0)
	require.True(t, ok)
	_, ok = a.AllocRun(0, 0, 0, 0, 0)
	require.False(t, ok)
}

func TestFreeRangeCoalescesAdjacentRuns(t *testing.T) {
	a := physpage.New(0, 8)
	base, ok := a.AllocRun(3, 0, 0, 0, 0) // all 8 pages
	require.True(t, ok)
	require.Equal(t, 0, a.FreePages())

	a.FreeRange(base, 4)
	a.FreeRange(base+4*pageSize, 4)
	require.Equal(t, 8, a.FreePages())

	// Coalesced back into one run spanning the whole region, so a
	// subsequent full-width allocation must succeed again.
	_, ok = a.AllocRun(3, 0, 0, 0, 0)
	require.True(t, ok)
}

func TestFreeRunDelegatesToFreeRange(t *testing.T) {
	a := physpage.New(0, 2)
	base, ok := a.AllocRun(1, 0, 0, 0, 0)
	require.True(t, ok)
	a.FreeRun(base, 1)
	require.Equal(t, 2, a.FreePages())
}
