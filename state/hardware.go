package state

// Timer re-arms a callback after a delay. The callback must run on the same
// execution context as every other access to the discovery state.
type Timer interface {
	Schedule(fn func(), delay Ticks)
}

// Radio is the transceiver used for beaconing. Received frames are delivered
// whole, together with the RSSI of the reception in dBm. Send must not
// retain the payload after it returns.
type Radio interface {
	On() error
	Off() error
	SetTxPower(dBm int) error
	Send(payload []byte) error
	OnReceive(fn func(payload []byte, rssi int))
}

// Clock returns a monotonic tick count, Timing.ClockRate ticks per second.
// It must never be reset while the node is running.
type Clock interface {
	Now() uint64
}

// Rand returns a uniform integer in [0, n). *math/rand/v2.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

type Hardware struct {
	Radio Radio
	Clock Clock
	Rand  Rand
}
