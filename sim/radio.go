package sim

import (
	"errors"
	"sync"

	"github.com/encodeous/nbrd/state"
)

var ErrRadioOff = errors.New("radio is off")

// VirtualRadio is a state.Radio attached to a Medium.
type VirtualRadio struct {
	Id  state.PeerId
	Pos func() Position

	medium *Medium

	mu      sync.Mutex
	on      bool
	txPower int
	recv    func(payload []byte, rssi int)
	sent    uint64
	heard   uint64
}

func (r *VirtualRadio) On() error {
	r.mu.Lock()
	r.on = true
	r.mu.Unlock()
	return nil
}

func (r *VirtualRadio) Off() error {
	r.mu.Lock()
	r.on = false
	r.mu.Unlock()
	return nil
}

func (r *VirtualRadio) IsOn() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.on
}

func (r *VirtualRadio) SetTxPower(dBm int) error {
	r.mu.Lock()
	r.txPower = dBm
	r.mu.Unlock()
	return nil
}

func (r *VirtualRadio) Send(payload []byte) error {
	r.mu.Lock()
	on, tx := r.on, r.txPower
	if on {
		r.sent++
	}
	r.mu.Unlock()
	if !on {
		return ErrRadioOff
	}
	r.medium.transmit(r, tx, payload)
	return nil
}

func (r *VirtualRadio) OnReceive(fn func(payload []byte, rssi int)) {
	r.mu.Lock()
	r.recv = fn
	r.mu.Unlock()
}

// Stats returns the number of frames sent and delivered to the receive callback.
func (r *VirtualRadio) Stats() (sent, heard uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent, r.heard
}

func (r *VirtualRadio) deliver(frame []byte, rssi int) {
	r.mu.Lock()
	fn := r.recv
	ok := r.on && fn != nil
	if ok {
		r.heard++
	}
	r.mu.Unlock()
	if ok {
		fn(frame, rssi)
	}
}

// VirtualClock reads a node's clock off the loop, counting from the node's boot tick.
type VirtualClock struct {
	Loop   *Loop
	Timing state.TimingCfg
	Boot   uint64
}

func (c VirtualClock) Now() uint64 {
	now := c.Loop.Now()
	if now < c.Boot {
		return 0
	}
	elapsed := now - c.Boot
	return elapsed * uint64(c.Timing.ClockRate) / uint64(c.Timing.TimerRate)
}
