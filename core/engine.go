package core

import (
	"errors"
	"log/slog"
	"time"

	"github.com/encodeous/nbrd/protocol"
	"github.com/encodeous/nbrd/state"
)

// Engine wires the neighbour table, presence tracker, receiver and duty-cycle
// driver of one node. It is not safe for concurrent use: the timer callbacks
// and Receive must run on the same execution context.
type Engine struct {
	Cfg      state.LocalCfg
	Hw       state.Hardware
	Tracker  *Tracker
	Receiver *Receiver
	Driver   *Driver
	Log      *slog.Logger
	// Observe is called at every cycle boundary, after the sweep
	Observe func(now state.Seconds, tracked, confirmed int)
}

func NewEngine(cfg state.LocalCfg, hw state.Hardware, timer state.Timer, sink state.EventSink, log *slog.Logger) *Engine {
	e := &Engine{
		Cfg: cfg,
		Hw:  hw,
		Log: log,
	}
	e.Tracker = NewTracker(cfg.Presence, sink, log)
	e.Receiver = NewReceiver(cfg.Id, e.Tracker, cfg.Rssi, e.Now, cycleDuration(cfg), cycleFrames(cfg), log)
	e.Driver = &Driver{
		Id:      cfg.Id,
		Timing:  cfg.Timing,
		TxPower: cfg.Radio.TxPower,
		Grid:    NewGrid(cfg.Grid.Rows, cfg.Grid.Cols),
		Radio:   hw.Radio,
		Timer:   timer,
		Clock:   hw.Clock,
		Rand:    hw.Rand,
		Tracker: e.Tracker,
		Log:     log,
		OnCycle: e.onCycle,
	}
	return e
}

// Now is the node clock in whole seconds.
func (e *Engine) Now() state.Seconds {
	return e.Cfg.Timing.Seconds(e.Hw.Clock.Now())
}

// Start powers the radio down and arms the driver.
func (e *Engine) Start() error {
	if err := e.Hw.Radio.Off(); err != nil {
		return err
	}
	e.Log.Info("starting discovery", "id", e.Cfg.Id, "grid", e.Driver.Grid.CycleLen(), "awake", e.Driver.Grid.Size(), "packet", protocol.BeaconSize)
	e.Driver.Start()
	return nil
}

func (e *Engine) Stop() error {
	e.Driver.Stop()
	return e.Hw.Radio.Off()
}

// Receive is the radio receive callback.
func (e *Engine) Receive(payload []byte, rssi int) {
	if err := e.Receiver.Handle(payload, rssi); err != nil && !isExpectedDrop(err) {
		e.Log.Debug("dropped frame", "len", len(payload), "rssi", rssi, "error", err)
	}
}

// isExpectedDrop reports whether err is part of normal reception filtering.
// The table full case is already logged by the receiver.
func isExpectedDrop(err error) bool {
	return errors.Is(err, ErrWeakSignal) ||
		errors.Is(err, ErrDuplicate) ||
		errors.Is(err, ErrOwnBeacon) ||
		errors.Is(err, ErrTableFull)
}

func (e *Engine) onCycle(now state.Seconds) {
	e.Receiver.Expire()
	if e.Observe != nil {
		e.Observe(now, e.Tracker.Table.Len(), e.Tracker.ConfirmedCount())
	}
}

// cycleFrames is the most distinct beacons a full table of neighbours can send
// in one cycle, one per awake slot each.
func cycleFrames(cfg state.LocalCfg) int {
	return cfg.Presence.Capacity * (cfg.Grid.Rows + cfg.Grid.Cols - 1)
}

// cycleDuration is an upper bound on the wall time of one discovery cycle.
func cycleDuration(cfg state.LocalCfg) time.Duration {
	wake, sleep := cfg.Timing.SlotDuration()
	return time.Duration(cfg.Grid.CycleLen()) * max(wake, sleep)
}
