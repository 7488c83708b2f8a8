package core

import (
	"fmt"
	"slices"

	"github.com/encodeous/nbrd/state"
)

// Grid lays a discovery cycle out as a Rows x Cols matrix of slots. A node is
// awake on one full row and one full column of the matrix. Any row of one node
// crosses any column of another, so two nodes share at least one awake slot
// every cycle, even when their cycles are offset by a whole number of slots.
type Grid struct {
	Rows int
	Cols int
	buf  []int
}

func NewGrid(rows, cols int) *Grid {
	return &Grid{
		Rows: rows,
		Cols: cols,
		buf:  make([]int, 0, rows+cols-1),
	}
}

func (g *Grid) CycleLen() int {
	return g.Rows * g.Cols
}

// Size is the number of awake slots in a cycle.
func (g *Grid) Size() int {
	return g.Rows + g.Cols - 1
}

// Schedule is the ascending set of awake slots for one cycle.
type Schedule struct {
	Row   int
	Col   int
	Slots []int
}

// Generate draws a random row and column. The returned schedule shares its
// backing storage with the grid and is only valid until the next Generate or Build.
func (g *Grid) Generate(rng state.Rand) Schedule {
	row := rng.IntN(g.Rows)
	col := rng.IntN(g.Cols)
	return g.Build(row, col)
}

func (g *Grid) Build(row, col int) Schedule {
	slots := g.buf[:0]
	base := row * g.Cols
	for i := range g.Cols {
		slots = append(slots, base+i)
	}
	cross := base + col
	for i := range g.Rows {
		s := col + i*g.Cols
		if s == cross {
			continue
		}
		slots = append(slots, s)
	}
	slices.Sort(slots)
	g.buf = slots
	return Schedule{Row: row, Col: col, Slots: slots}
}

func (s Schedule) IsAwake(slot int) bool {
	_, ok := slices.BinarySearch(s.Slots, slot)
	return ok
}

func (s Schedule) String() string {
	return fmt.Sprintf("row=%d col=%d slots=%v", s.Row, s.Col, s.Slots)
}
