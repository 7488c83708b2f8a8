package core

import (
	"testing"

	"github.com/encodeous/nbrd/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableFillsToCapacity(t *testing.T) {
	tab := NewNeighbourTable(50)
	for i := range 50 {
		slot, err := tab.Allocate(state.PeerId(i))
		require.NoError(t, err)
		assert.Equal(t, Slot(i), slot)
	}
	assert.Equal(t, 50, tab.Len())

	_, err := tab.Allocate(50)
	assert.ErrorIs(t, err, ErrTableFull)
	assert.Equal(t, 50, tab.Len())
	_, ok := tab.Find(50)
	assert.False(t, ok)
}

func TestTableZeroIdIsValid(t *testing.T) {
	tab := NewNeighbourTable(3)
	_, ok := tab.Find(0)
	assert.False(t, ok)

	slot, err := tab.Allocate(0)
	require.NoError(t, err)
	found, ok := tab.Find(0)
	require.True(t, ok)
	assert.Equal(t, slot, found)
	assert.Equal(t, state.PeerId(0), tab.Get(slot).Id)
}

func TestTableFreeAndReuse(t *testing.T) {
	tab := NewNeighbourTable(3)
	for _, id := range []state.PeerId{10, 11, 12} {
		_, err := tab.Allocate(id)
		require.NoError(t, err)
	}
	slot, ok := tab.Find(11)
	require.True(t, ok)
	tab.Get(slot).Confirmed = true
	tab.Get(slot).FirstSeenAt = 99

	tab.Free(slot)
	tab.Free(slot)
	assert.Equal(t, 2, tab.Len())
	assert.Nil(t, tab.Get(slot))
	_, ok = tab.Find(11)
	assert.False(t, ok)

	// first free slot is reused and starts zeroed
	again, err := tab.Allocate(13)
	require.NoError(t, err)
	assert.Equal(t, slot, again)
	assert.Equal(t, Neighbour{Id: 13}, *tab.Get(again))
}

func TestTableOccupiedScansEverySlot(t *testing.T) {
	tab := NewNeighbourTable(5)
	for _, id := range []state.PeerId{1, 2, 3, 4} {
		_, err := tab.Allocate(id)
		require.NoError(t, err)
	}
	s2, _ := tab.Find(2)
	tab.Free(s2)

	var ids []state.PeerId
	for slot, n := range tab.Occupied() {
		ids = append(ids, n.Id)
		if n.Id == 3 {
			tab.Free(slot)
		}
	}
	assert.Equal(t, []state.PeerId{1, 3, 4}, ids)
	assert.Equal(t, 2, tab.Len())
	assert.Equal(t, 5, tab.Cap())

	count := 0
	for range tab.Occupied() {
		count++
		break
	}
	assert.Equal(t, 1, count)
}
