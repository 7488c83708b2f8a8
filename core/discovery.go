package core

import (
	"os"
	"slices"

	"github.com/encodeous/nbrd/eventlog"
	"github.com/encodeous/nbrd/state"
	"github.com/encodeous/nbrd/telemetry"
)

// Discovery runs an Engine on the host runtime. Timer callbacks and radio
// receptions are both dispatched onto the main loop, so the neighbour table
// is only ever touched from one goroutine.
type Discovery struct {
	*Engine
	store *eventlog.Store
}

func (d *Discovery) Init(s *state.State) error {
	s.Log.Debug("init discovery")

	sink := LogSink{Log: s.Log}
	if s.Serial {
		sink.Serial = os.Stdout
	}
	sinks := Sinks{sink}

	if s.EventDb != "" {
		store, err := eventlog.Open(s.EventDb)
		if err != nil {
			return err
		}
		d.store = store
		sinks = append(sinks, store.Sink(s.Id, s.Log))
	}

	node := s.Id.String()
	sinks = append(sinks, telemetry.Presence(node))

	d.Engine = NewEngine(s.LocalCfg, s.Hardware, s.Env, sinks, s.Log)
	d.Engine.Observe = func(_ state.Seconds, tracked, confirmed int) {
		telemetry.ObserveTable(node, tracked, confirmed)
	}

	s.Hardware.Radio.OnReceive(func(payload []byte, rssi int) {
		// the radio owns payload once the callback returns
		frame := slices.Clone(payload)
		s.Dispatch(func(s *state.State) error {
			d.Receive(frame, rssi)
			return nil
		})
	})
	if err := d.Start(); err != nil {
		return err
	}
	s.RepeatTask(func(s *state.State) error {
		d.snapshot(s, node)
		return nil
	}, state.SnapshotInterval)
	return nil
}

func (d *Discovery) snapshot(s *state.State, node string) {
	tracked, confirmed := d.Tracker.Table.Len(), d.Tracker.ConfirmedCount()
	telemetry.SetTable(node, tracked, confirmed)
	s.Log.Debug("neighbour table", "tracked", tracked, "confirmed", confirmed, "cycles", d.Driver.Cycles())
}

func (d *Discovery) Cleanup(s *state.State) error {
	if d.Engine != nil {
		if err := d.Stop(); err != nil {
			s.Log.Warn("failed to power down radio", "error", err)
		}
	}
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}
