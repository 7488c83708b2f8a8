package core

import (
	"testing"
	"time"

	"github.com/encodeous/nbrd/protocol"
	"github.com/encodeous/nbrd/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type receiverHarness struct {
	*Receiver
	rec *EventRecorder
	now state.Seconds
	seq map[state.PeerId]uint32
}

func newReceiverHarness(capacity int) *receiverHarness {
	return newReceiverHarnessWindow(capacity, 4*capacity)
}

func newReceiverHarnessWindow(capacity, dedupCap int) *receiverHarness {
	tr, rec := newTestTracker(capacity)
	h := &receiverHarness{rec: rec, seq: make(map[state.PeerId]uint32)}
	rssi := state.RssiCfg{EntryThreshold: -60, HoldThreshold: -70}
	h.Receiver = NewReceiver(100, tr, rssi, func() state.Seconds { return h.now }, time.Minute, dedupCap, quietLog())
	return h
}

// beacon returns the next frame from sender.
func (h *receiverHarness) beacon(sender state.PeerId) []byte {
	h.seq[sender]++
	return protocol.Encode(protocol.Beacon{Sender: sender, Seq: h.seq[sender], Timestamp: uint32(h.now) * 128})
}

// confirm feeds one strong frame per second until sender is confirmed.
func (h *receiverHarness) confirm(t *testing.T, sender state.PeerId) {
	for range 16 {
		require.NoError(t, h.Handle(h.beacon(sender), -40))
		h.Tracker.Sweep(h.now)
		h.now++
	}
	require.True(t, h.Tracker.Confirmed(sender))
}

func TestEntryThresholdForUnknownPeer(t *testing.T) {
	h := newReceiverHarness(50)
	assert.Equal(t, -60, h.Threshold(1))

	assert.ErrorIs(t, h.Handle(h.beacon(1), -60), ErrWeakSignal)
	assert.ErrorIs(t, h.Handle(h.beacon(1), -65), ErrWeakSignal)
	_, ok := h.Tracker.Lookup(1)
	assert.False(t, ok)

	assert.NoError(t, h.Handle(h.beacon(1), -59))
	_, ok = h.Tracker.Lookup(1)
	assert.True(t, ok)
}

func TestHoldThresholdForConfirmedPeer(t *testing.T) {
	h := newReceiverHarness(50)
	h.confirm(t, 7)
	assert.Equal(t, -70, h.Threshold(7))
	assert.Equal(t, -60, h.Threshold(8))

	assert.NoError(t, h.Handle(h.beacon(7), -69))
	assert.ErrorIs(t, h.Handle(h.beacon(7), -70), ErrWeakSignal)
	assert.ErrorIs(t, h.Handle(h.beacon(8), -65), ErrWeakSignal)
}

func TestWeakFramesLetPeerGoAbsent(t *testing.T) {
	h := newReceiverHarness(50)
	h.confirm(t, 7)
	start := h.now
	for h.now < start+31 {
		assert.ErrorIs(t, h.Handle(h.beacon(7), -75), ErrWeakSignal)
		h.Tracker.Sweep(h.now)
		h.now++
	}
	assertEvents(t, []state.Event{detect(0, 7), absent(start, 7)}, h.rec)
}

func TestRejectsDuplicateAndOwnFrames(t *testing.T) {
	h := newReceiverHarness(50)
	frame := h.beacon(3)
	require.NoError(t, h.Handle(frame, -40))
	assert.ErrorIs(t, h.Handle(frame, -40), ErrDuplicate)

	assert.ErrorIs(t, h.Handle(h.beacon(100), -30), ErrOwnBeacon)
	_, ok := h.Tracker.Lookup(100)
	assert.False(t, ok)

	h.Expire()
	assert.ErrorIs(t, h.Handle(frame, -40), ErrDuplicate)
}

func TestDedupWindowIsBoundedByCapacity(t *testing.T) {
	// with a TTL that never elapses, only the capacity ages frames out
	h := newReceiverHarnessWindow(50, 3)
	first := h.beacon(1)
	require.NoError(t, h.Handle(first, -40))
	assert.ErrorIs(t, h.Handle(first, -40), ErrDuplicate)

	for range 3 {
		require.NoError(t, h.Handle(h.beacon(2), -40))
	}
	assert.NoError(t, h.Handle(first, -40))
}

func TestRejectsMalformedFrames(t *testing.T) {
	h := newReceiverHarness(50)
	assert.ErrorIs(t, h.Handle(nil, -40), protocol.ErrMalformed)
	assert.ErrorIs(t, h.Handle([]byte("not a beacon at all"), -40), protocol.ErrMalformed)
	assert.Zero(t, h.Tracker.Table.Len())
}

func TestTableFullPropagates(t *testing.T) {
	h := newReceiverHarness(1)
	require.NoError(t, h.Handle(h.beacon(1), -40))
	assert.ErrorIs(t, h.Handle(h.beacon(2), -40), ErrTableFull)
	assert.NoError(t, h.Handle(h.beacon(1), -40))
}
