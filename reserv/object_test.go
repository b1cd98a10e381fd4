package reserv_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oichkatzel/vmreserv/reserv"
	"github.com/oichkatzel/vmreserv/vmobject"
)

func TestRenameRelinksAndRepublishes(t *testing.T) {
	m, _ := newTestManager(t, 1)
	oldObj := vmobject.New(reserv.N, false)
	newObj := vmobject.New(reserv.N, false)

	h, err := m.AllocPage(oldObj, 5, nil, nil)
	require.NoError(t, err)

	m.Rename(h.Rv, newObj, 9)

	gotObj, gotPindex, ok := h.Rv.TryReadIdentity()
	require.True(t, ok)
	require.Equal(t, newObj, gotObj)
	require.Equal(t, 9, gotPindex)
}
