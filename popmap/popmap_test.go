package popmap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetClearPopCount(t *testing.T) {
	p := New(130)
	require.Equal(t, 0, p.PopCount())
	p.Set(0)
	p.Set(63)
	p.Set(64)
	p.Set(129)
	require.Equal(t, 4, p.PopCount())
	require.True(t, p.IsSet(64))
	p.Clear(64)
	require.True(t, p.IsClear(64))
	require.Equal(t, 3, p.PopCount())
}

func TestBoundaryWordMask(t *testing.T) {
	p := New(65)
	require.Equal(t, 2, p.Nwords())
	for i := 0; i < 65; i++ {
		p.Set(i)
	}
	require.Equal(t, 65, p.PopCount())
	require.True(t, p.Full())
}

func TestNextZeroOne(t *testing.T) {
	p := New(128)
	p.Set(0)
	p.Set(1)
	p.Set(2)
	p.Set(70)
	bit, ok := p.NextZero(0)
	require.True(t, ok)
	require.Equal(t, 3, bit)

	bit, ok = p.NextOne(3)
	require.True(t, ok)
	require.Equal(t, 70, bit)

	p2 := New(64)
	for i := 0; i < 64; i++ {
		p2.Set(i)
	}
	_, ok = p2.NextZero(0)
	require.False(t, ok)
}

func TestOutOfRangePanics(t *testing.T) {
	p := New(8)
	require.Panics(t, func() { p.Set(8) })
	require.Panics(t, func() { p.Set(-1) })
}
