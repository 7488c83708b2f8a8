package core

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/encodeous/nbrd/state"
)

func quietLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// EventRecorder collects emitted events in order.
type EventRecorder struct {
	Events []state.Event
}

func (r *EventRecorder) Emit(e state.Event) {
	r.Events = append(r.Events, e)
}

func detect(at state.Seconds, peer state.PeerId) state.Event {
	return state.Event{Kind: state.EventDetect, At: at, Peer: peer}
}

func absent(at state.Seconds, peer state.PeerId) state.Event {
	return state.Event{Kind: state.EventAbsent, At: at, Peer: peer}
}

// HarnessRadio records every operation and keeps a copy of every frame sent.
type HarnessRadio struct {
	mu     sync.Mutex
	Ops    []string
	Frames [][]byte
	on     bool
	recv   func(payload []byte, rssi int)
	// Fail makes the named operation return an error
	Fail map[string]error
}

func (r *HarnessRadio) op(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Ops = append(r.Ops, name)
	return r.Fail[name]
}

func (r *HarnessRadio) On() error {
	if err := r.op("on"); err != nil {
		return err
	}
	r.mu.Lock()
	r.on = true
	r.mu.Unlock()
	return nil
}

func (r *HarnessRadio) Off() error {
	if err := r.op("off"); err != nil {
		return err
	}
	r.mu.Lock()
	r.on = false
	r.mu.Unlock()
	return nil
}

func (r *HarnessRadio) SetTxPower(dBm int) error {
	return r.op(fmt.Sprintf("tx %d", dBm))
}

func (r *HarnessRadio) Send(payload []byte) error {
	if err := r.op("send"); err != nil {
		return err
	}
	r.mu.Lock()
	r.Frames = append(r.Frames, append([]byte(nil), payload...))
	r.mu.Unlock()
	return nil
}

func (r *HarnessRadio) OnReceive(fn func(payload []byte, rssi int)) {
	r.mu.Lock()
	r.recv = fn
	r.mu.Unlock()
}

// Deliver hands a frame to the registered receive callback.
func (r *HarnessRadio) Deliver(payload []byte, rssi int) {
	r.mu.Lock()
	fn := r.recv
	r.mu.Unlock()
	fn(payload, rssi)
}

func (r *HarnessRadio) IsOn() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.on
}

func (r *HarnessRadio) Sent() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Frames)
}

// TakeOps returns and clears the recorded operations.
func (r *HarnessRadio) TakeOps() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := r.Ops
	r.Ops = nil
	return ops
}

// HarnessTimer queues callbacks in the order they were armed. Delays are
// recorded but not simulated.
type HarnessTimer struct {
	Delays  []state.Ticks
	pending []func()
}

func (t *HarnessTimer) Schedule(fn func(), delay state.Ticks) {
	t.Delays = append(t.Delays, delay)
	t.pending = append(t.pending, fn)
}

func (t *HarnessTimer) Pending() int {
	return len(t.pending)
}

// Fire runs the oldest pending callback and reports whether there was one.
func (t *HarnessTimer) Fire() bool {
	if len(t.pending) == 0 {
		return false
	}
	fn := t.pending[0]
	t.pending = t.pending[1:]
	fn()
	return true
}

type HarnessClock struct {
	Ticks uint64
}

func (c *HarnessClock) Now() uint64 {
	return c.Ticks
}

// FixedRand replays Values in order, wrapping around.
type FixedRand struct {
	Values []int
	i      int
}

func (r *FixedRand) IntN(n int) int {
	v := r.Values[r.i%len(r.Values)]
	r.i++
	return v % n
}
