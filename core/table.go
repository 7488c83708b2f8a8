package core

import (
	"errors"
	"iter"

	"github.com/encodeous/nbrd/state"
)

var ErrTableFull = errors.New("neighbour table is full")

// Neighbour is the presence record kept for one peer.
type Neighbour struct {
	Id               state.PeerId
	Confirmed        bool
	SeenThisCycle    bool
	FirstSeenAt      state.Seconds // start of the current detection streak
	DetectedDuration state.Seconds
	Absent           bool // a silence streak has started
	FirstAbsentAt    state.Seconds
	AbsentDuration   state.Seconds
}

type Slot int

type tableEntry struct {
	used bool
	Neighbour
}

// NeighbourTable is a fixed capacity store of neighbour records. Storage is
// allocated once, a slot is occupied only while its used flag is set, so every
// peer id including zero is representable.
type NeighbourTable struct {
	entries []tableEntry
	count   int
}

func NewNeighbourTable(capacity int) *NeighbourTable {
	return &NeighbourTable{
		entries: make([]tableEntry, capacity),
	}
}

func (t *NeighbourTable) Find(id state.PeerId) (Slot, bool) {
	for i := range t.entries {
		if t.entries[i].used && t.entries[i].Id == id {
			return Slot(i), true
		}
	}
	return -1, false
}

// Allocate claims the first free slot for id. The caller must have checked
// that id is not already present.
func (t *NeighbourTable) Allocate(id state.PeerId) (Slot, error) {
	if t.count == len(t.entries) {
		return -1, ErrTableFull
	}
	for i := range t.entries {
		if !t.entries[i].used {
			t.entries[i] = tableEntry{used: true, Neighbour: Neighbour{Id: id}}
			t.count++
			return Slot(i), nil
		}
	}
	return -1, ErrTableFull
}

func (t *NeighbourTable) Get(slot Slot) *Neighbour {
	e := &t.entries[slot]
	if !e.used {
		return nil
	}
	return &e.Neighbour
}

func (t *NeighbourTable) Free(slot Slot) {
	if !t.entries[slot].used {
		return
	}
	t.entries[slot] = tableEntry{}
	t.count--
}

// Occupied yields every occupied slot in slot order. The whole table is
// scanned, freeing the current slot during iteration is allowed.
func (t *NeighbourTable) Occupied() iter.Seq2[Slot, *Neighbour] {
	return func(yield func(Slot, *Neighbour) bool) {
		for i := range t.entries {
			if !t.entries[i].used {
				continue
			}
			if !yield(Slot(i), &t.entries[i].Neighbour) {
				return
			}
		}
	}
}

func (t *NeighbourTable) Len() int {
	return t.count
}

func (t *NeighbourTable) Cap() int {
	return len(t.entries)
}
