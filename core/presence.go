package core

import (
	"log/slog"

	"github.com/encodeous/nbrd/state"
)

// Tracker is the per-neighbour presence state machine. Hits extend a
// detection streak, sweeps at every cycle boundary age the silence streak.
// A peer is confirmed after DetectThreshold seconds of unbroken hits and
// released after AbsentThreshold seconds of unbroken silence.
type Tracker struct {
	Table           *NeighbourTable
	DetectThreshold state.Seconds
	AbsentThreshold state.Seconds
	Sink            state.EventSink
	Log             *slog.Logger
}

func NewTracker(cfg state.PresenceCfg, sink state.EventSink, log *slog.Logger) *Tracker {
	return &Tracker{
		Table:           NewNeighbourTable(cfg.Capacity),
		DetectThreshold: cfg.DetectThreshold,
		AbsentThreshold: cfg.AbsentThreshold,
		Sink:            sink,
		Log:             log,
	}
}

// Hit records a qualifying reception from id. ErrTableFull is returned, and
// nothing is changed, when id is unknown and there is no room for it.
func (t *Tracker) Hit(id state.PeerId, now state.Seconds) error {
	slot, ok := t.Table.Find(id)
	if !ok {
		slot, err := t.Table.Allocate(id)
		if err != nil {
			return err
		}
		n := t.Table.Get(slot)
		n.FirstSeenAt = now
		n.SeenThisCycle = true
		t.Log.Debug("new neighbour", "peer", id, "slot", slot, "at", now)
		return nil
	}
	n := t.Table.Get(slot)
	n.SeenThisCycle = true
	streak := elapsed(n.FirstSeenAt, now)
	n.DetectedDuration = streak
	if streak >= t.DetectThreshold && !n.Confirmed {
		n.Confirmed = true
		t.Sink.Emit(state.Event{Kind: state.EventDetect, At: n.FirstSeenAt, Peer: id})
	}
	return nil
}

// Sweep runs the cycle boundary check over every occupied record.
func (t *Tracker) Sweep(now state.Seconds) {
	for slot, n := range t.Table.Occupied() {
		if n.SeenThisCycle {
			n.SeenThisCycle = false
			n.Absent = false
			n.FirstAbsentAt = 0
			n.AbsentDuration = 0
			continue
		}
		if !n.Confirmed {
			// a streak that never reached confirmation does not survive a silent cycle
			t.Log.Debug("dropping unconfirmed neighbour", "peer", n.Id, "first_seen", n.FirstSeenAt)
			t.Table.Free(slot)
			continue
		}
		if !n.Absent {
			n.Absent = true
			n.FirstAbsentAt = now
		}
		silence := elapsed(n.FirstAbsentAt, now)
		n.AbsentDuration = silence
		if silence >= t.AbsentThreshold {
			ev := state.Event{Kind: state.EventAbsent, At: n.FirstAbsentAt, Peer: n.Id}
			n.Confirmed = false
			t.Table.Free(slot)
			t.Sink.Emit(ev)
		}
	}
}

func (t *Tracker) Confirmed(id state.PeerId) bool {
	slot, ok := t.Table.Find(id)
	return ok && t.Table.Get(slot).Confirmed
}

func (t *Tracker) Lookup(id state.PeerId) (Neighbour, bool) {
	slot, ok := t.Table.Find(id)
	if !ok {
		return Neighbour{}, false
	}
	return *t.Table.Get(slot), true
}

// Neighbours returns a copy of every occupied record in slot order.
func (t *Tracker) Neighbours() []Neighbour {
	out := make([]Neighbour, 0, t.Table.Len())
	for _, n := range t.Table.Occupied() {
		out = append(out, *n)
	}
	return out
}

// ConfirmedCount is the number of neighbours currently considered present.
func (t *Tracker) ConfirmedCount() int {
	c := 0
	for _, n := range t.Table.Occupied() {
		if n.Confirmed {
			c++
		}
	}
	return c
}

// elapsed is now - since, clamped at zero.
func elapsed(since, now state.Seconds) state.Seconds {
	if now < since {
		return 0
	}
	return now - since
}
