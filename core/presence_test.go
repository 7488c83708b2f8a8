package core

import (
	"testing"

	"github.com/encodeous/nbrd/state"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(capacity int) (*Tracker, *EventRecorder) {
	rec := &EventRecorder{}
	cfg := state.PresenceCfg{
		DetectThreshold: 15,
		AbsentThreshold: 30,
		Capacity:        capacity,
	}
	return NewTracker(cfg, rec, quietLog()), rec
}

func assertEvents(t *testing.T, want []state.Event, rec *EventRecorder) {
	t.Helper()
	if diff := cmp.Diff(want, rec.Events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

// A cycle lasts one second here: every hit at t is followed by the sweep closing that cycle.
func TestDetectThenAbsent(t *testing.T) {
	tr, rec := newTestTracker(50)
	const p = state.PeerId(12)
	for now := state.Seconds(0); now <= 15; now++ {
		require.NoError(t, tr.Hit(p, now))
		if now < 15 {
			assert.Empty(t, rec.Events, "t=%d", now)
		}
		tr.Sweep(now)
	}
	assertEvents(t, []state.Event{detect(0, p)}, rec)
	assert.True(t, tr.Confirmed(p))

	for now := state.Seconds(16); now <= 45; now++ {
		tr.Sweep(now)
	}
	n, ok := tr.Lookup(p)
	require.True(t, ok)
	assert.True(t, n.Absent)
	assert.Equal(t, state.Seconds(16), n.FirstAbsentAt)
	assert.Equal(t, state.Seconds(29), n.AbsentDuration)
	assert.Len(t, rec.Events, 1)

	tr.Sweep(46)
	assertEvents(t, []state.Event{detect(0, p), absent(16, p)}, rec)
	_, ok = tr.Lookup(p)
	assert.False(t, ok)
	assert.Zero(t, tr.Table.Len())
}

func TestDetectEmittedOnce(t *testing.T) {
	tr, rec := newTestTracker(50)
	for now := state.Seconds(0); now <= 40; now++ {
		require.NoError(t, tr.Hit(5, now))
		require.NoError(t, tr.Hit(5, now))
		tr.Sweep(now)
	}
	assertEvents(t, []state.Event{detect(0, 5)}, rec)
	n, _ := tr.Lookup(5)
	assert.Equal(t, state.Seconds(40), n.DetectedDuration)
}

func TestUnconfirmedDroppedOnSilence(t *testing.T) {
	tr, rec := newTestTracker(50)
	for now := state.Seconds(0); now <= 10; now++ {
		require.NoError(t, tr.Hit(3, now))
		tr.Sweep(now)
	}
	tr.Sweep(11)
	_, ok := tr.Lookup(3)
	assert.False(t, ok)
	assert.Zero(t, tr.Table.Len())
	assert.Empty(t, rec.Events)

	// the streak starts over
	for now := state.Seconds(12); now <= 27; now++ {
		require.NoError(t, tr.Hit(3, now))
		tr.Sweep(now)
	}
	assertEvents(t, []state.Event{detect(12, 3)}, rec)
}

func TestHitEndsSilenceStreak(t *testing.T) {
	tr, rec := newTestTracker(50)
	for now := state.Seconds(0); now <= 15; now++ {
		require.NoError(t, tr.Hit(8, now))
		tr.Sweep(now)
	}
	for now := state.Seconds(16); now <= 40; now++ {
		tr.Sweep(now)
	}
	require.NoError(t, tr.Hit(8, 41))
	tr.Sweep(41)
	n, _ := tr.Lookup(8)
	assert.False(t, n.Absent)
	assert.Zero(t, n.FirstAbsentAt)
	assert.True(t, n.Confirmed)

	for now := state.Seconds(42); now <= 71; now++ {
		tr.Sweep(now)
	}
	assert.Len(t, rec.Events, 1)
	tr.Sweep(72)
	assertEvents(t, []state.Event{detect(0, 8), absent(42, 8)}, rec)
}

func TestSweepIsIdempotent(t *testing.T) {
	tr, rec := newTestTracker(50)
	tr.Sweep(0)
	tr.Sweep(0)

	for now := state.Seconds(0); now <= 15; now++ {
		require.NoError(t, tr.Hit(1, now))
		require.NoError(t, tr.Hit(2, now))
		tr.Sweep(now)
	}
	for range 3 {
		tr.Sweep(100)
	}
	for range 3 {
		tr.Sweep(200)
	}
	assertEvents(t, []state.Event{detect(0, 1), detect(0, 2), absent(100, 1), absent(100, 2)}, rec)
}

func TestHitOnFullTable(t *testing.T) {
	tr, _ := newTestTracker(50)
	for i := range 50 {
		require.NoError(t, tr.Hit(state.PeerId(i+1), 0))
	}
	err := tr.Hit(51, 0)
	assert.ErrorIs(t, err, ErrTableFull)
	assert.Equal(t, 50, tr.Table.Len())
	_, ok := tr.Lookup(51)
	assert.False(t, ok)

	// known peers are still tracked
	require.NoError(t, tr.Hit(1, 1))
}

func TestClockBeforeStreakStart(t *testing.T) {
	tr, rec := newTestTracker(50)
	require.NoError(t, tr.Hit(4, 10))
	require.NoError(t, tr.Hit(4, 5))
	n, _ := tr.Lookup(4)
	assert.Zero(t, n.DetectedDuration)
	assert.Empty(t, rec.Events)
}

func TestSnapshots(t *testing.T) {
	tr, _ := newTestTracker(50)
	for now := state.Seconds(0); now <= 15; now++ {
		require.NoError(t, tr.Hit(0, now))
		tr.Sweep(now)
	}
	require.NoError(t, tr.Hit(9, 15))

	ns := tr.Neighbours()
	require.Len(t, ns, 2)
	assert.Equal(t, state.PeerId(0), ns[0].Id)
	assert.True(t, ns[0].Confirmed)
	assert.False(t, ns[1].Confirmed)
	assert.Equal(t, 1, tr.ConfirmedCount())
	assert.True(t, tr.Confirmed(0))
	assert.False(t, tr.Confirmed(9))
	assert.False(t, tr.Confirmed(77))
}
