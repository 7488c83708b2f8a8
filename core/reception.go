package core

import (
	"errors"
	"log/slog"
	"time"

	"github.com/encodeous/nbrd/perf"
	"github.com/encodeous/nbrd/protocol"
	"github.com/encodeous/nbrd/state"
	"github.com/jellydator/ttlcache/v3"
)

var (
	ErrWeakSignal = errors.New("rssi below threshold")
	ErrDuplicate  = errors.New("duplicate beacon")
	ErrOwnBeacon  = errors.New("own beacon")
)

type beaconKey struct {
	Sender state.PeerId
	Seq    uint32
}

// Receiver qualifies inbound beacons. A confirmed peer only needs to clear the
// hold threshold, anyone else must clear the stricter entry threshold.
type Receiver struct {
	Self    state.PeerId
	Tracker *Tracker
	Rssi    state.RssiCfg
	Now     func() state.Seconds
	Log     *slog.Logger
	dedup   *ttlcache.Cache[beaconKey, struct{}]
}

// NewReceiver creates a receiver that suppresses repeated (sender, seq) frames
// for dedupTTL of wall time, remembering at most dedupCap frames. Under virtual
// time the TTL never elapses, so dedupCap alone bounds the window.
func NewReceiver(self state.PeerId, tracker *Tracker, rssi state.RssiCfg, now func() state.Seconds, dedupTTL time.Duration, dedupCap int, log *slog.Logger) *Receiver {
	return &Receiver{
		Self:    self,
		Tracker: tracker,
		Rssi:    rssi,
		Now:     now,
		Log:     log,
		dedup: ttlcache.New[beaconKey, struct{}](
			ttlcache.WithTTL[beaconKey, struct{}](dedupTTL),
			ttlcache.WithDisableTouchOnHit[beaconKey, struct{}](),
			ttlcache.WithCapacity[beaconKey, struct{}](uint64(max(dedupCap, 1))),
		),
	}
}

// Threshold returns the rssi a frame from id has to exceed.
func (r *Receiver) Threshold(id state.PeerId) int {
	if r.Tracker.Confirmed(id) {
		return r.Rssi.HoldThreshold
	}
	return r.Rssi.EntryThreshold
}

// Handle processes one received frame. A nil return means the frame counted as a hit.
func (r *Receiver) Handle(payload []byte, rssi int) error {
	err := r.handle(payload, rssi)
	if err != nil {
		perf.RxDropped.Add(1)
	} else {
		perf.RxQualified.Add(1)
	}
	return err
}

func (r *Receiver) handle(payload []byte, rssi int) error {
	b, err := protocol.Decode(payload)
	if err != nil {
		return err
	}
	if b.Sender == r.Self {
		return ErrOwnBeacon
	}
	key := beaconKey{b.Sender, b.Seq}
	if r.dedup.Get(key) != nil {
		return ErrDuplicate
	}
	r.dedup.Set(key, struct{}{}, ttlcache.DefaultTTL)

	threshold := r.Threshold(b.Sender)
	if rssi <= threshold {
		return ErrWeakSignal
	}
	r.Log.Debug("rx", "peer", b.Sender, "seq", b.Seq, "ts", b.Timestamp, "rssi", rssi, "threshold", threshold)
	err = r.Tracker.Hit(b.Sender, r.Now())
	if errors.Is(err, ErrTableFull) {
		perf.TableFull.Add(1)
		r.Log.Warn("dropping beacon, neighbour table is full", "peer", b.Sender, "capacity", r.Tracker.Table.Cap())
	}
	return err
}

// Expire evicts stale dedup entries.
func (r *Receiver) Expire() {
	r.dedup.DeleteExpired()
}
