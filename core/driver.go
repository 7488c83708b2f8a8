package core

import (
	"log/slog"
	"time"

	"github.com/encodeous/nbrd/perf"
	"github.com/encodeous/nbrd/protocol"
	"github.com/encodeous/nbrd/state"
)

// Driver is the duty-cycle state machine. Advance is its only entry point: the
// host timer invokes it once per tick and it re-arms itself before returning.
type Driver struct {
	Id      state.PeerId
	Timing  state.TimingCfg
	TxPower int
	Grid    *Grid
	Radio   state.Radio
	Timer   state.Timer
	Clock   state.Clock
	Rand    state.Rand
	Tracker *Tracker
	Log     *slog.Logger
	// OnCycle runs after the absence sweep at every cycle boundary
	OnCycle func(now state.Seconds)

	gen       uint64
	slot      int
	cycles    uint64
	seq       uint32
	sleepLeft int
	schedule  Schedule
	stopped   bool
	buf       []byte
}

// Start arms the first tick. The first tick opens cycle 1 at slot 0.
// Restarting resets the cycle state. Ticks armed before the restart are
// ignored when they fire, the beacon sequence keeps counting.
func (d *Driver) Start() {
	d.gen++
	d.slot = -1
	d.cycles = 0
	d.sleepLeft = 0
	d.schedule = Schedule{}
	d.stopped = false
	d.buf = make([]byte, 0, protocol.BeaconSize)
	d.arm(d.Timing.StartDelay)
}

func (d *Driver) arm(delay state.Ticks) {
	gen := d.gen
	d.Timer.Schedule(func() {
		if gen == d.gen {
			d.Advance()
		}
	}, delay)
}

// Stop makes the next Advance return without re-arming.
func (d *Driver) Stop() {
	d.stopped = true
}

func (d *Driver) Advance() {
	if d.stopped {
		return
	}
	start := time.Now()
	defer func() {
		perf.AdvanceLatency.Add(float64(time.Since(start).Microseconds()))
	}()

	// asleep slots may be made of several chained sleep ticks
	if d.sleepLeft > 0 {
		d.sleepLeft--
		d.arm(d.Timing.SleepSlot)
		return
	}

	d.slot++
	if d.slot >= d.Grid.CycleLen() {
		d.slot = 0
	}
	if d.slot == 0 {
		d.startCycle()
	}

	if d.schedule.IsAwake(d.slot) {
		d.beacon()
		d.arm(d.Timing.WakeTime)
	} else {
		if err := d.Radio.Off(); err != nil {
			d.radioError("off", err)
		}
		d.sleepLeft = d.Timing.SleepChain - 1
		d.arm(d.Timing.SleepSlot)
	}
}

func (d *Driver) startCycle() {
	if d.cycles > 0 {
		start := time.Now()
		now := d.Timing.Seconds(d.Clock.Now())
		d.Tracker.Sweep(now)
		if d.OnCycle != nil {
			d.OnCycle(now)
		}
		perf.SweepLatency.Add(float64(time.Since(start).Microseconds()))
	}
	d.cycles++
	d.schedule = d.Grid.Generate(d.Rand)
	d.Log.Debug("new cycle", "cycle", d.cycles, "schedule", d.schedule.String())
}

func (d *Driver) beacon() {
	if err := d.Radio.On(); err != nil {
		d.radioError("on", err)
		return
	}
	if err := d.Radio.SetTxPower(d.TxPower); err != nil {
		d.radioError("set tx power", err)
	}
	d.seq++
	d.buf = protocol.AppendBeacon(d.buf[:0], protocol.Beacon{
		Sender:    d.Id,
		Seq:       d.seq,
		Timestamp: uint32(d.Clock.Now()),
	})
	if err := d.Radio.Send(d.buf); err != nil {
		d.radioError("send", err)
		return
	}
	perf.BeaconsSent.Add(1)
}

func (d *Driver) radioError(op string, err error) {
	perf.RadioErrors.Add(1)
	d.Log.Warn("radio error", "op", op, "slot", d.slot, "error", err)
}

// Slot is the index of the current slot within the cycle, -1 before the first tick.
func (d *Driver) Slot() int {
	return d.slot
}

// Cycles is the number of cycles started so far.
func (d *Driver) Cycles() uint64 {
	return d.cycles
}

// Seq is the sequence number of the last beacon sent.
func (d *Driver) Seq() uint32 {
	return d.seq
}

func (d *Driver) Schedule() Schedule {
	return d.schedule
}
