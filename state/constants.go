package state

import "time"

var (
	// grid quorum dimensions, a cycle is Rows*Cols slots
	DefaultRows = 10
	DefaultCols = 10

	DetectThreshold = Seconds(15) // streak before a peer is confirmed present
	AbsentThreshold = Seconds(30) // silence before a confirmed peer is reported absent
	MaxNeighbours   = 50

	// rssi hysteresis, a confirmed peer only needs to clear the lower hold threshold
	EntryThreshold = -60
	HoldThreshold  = -70

	DefaultTxPower = -4

	// timer and clock, modeled on a 16-bit 65536 Hz rtimer and a 128 Hz system clock
	TimerRate  = uint32(65536)
	TimerBits  = uint8(16)
	ClockRate  = uint32(128)
	WakeTime   = Ticks(TimerRate / 65) // ~15ms
	SleepSlot  = Ticks(TimerRate / 65) // kept short so a single interval never overflows the timer
	SleepChain = 1
	StartDelay = Ticks(TimerRate / 1000)

	// how often the host runtime refreshes the table gauges between cycle boundaries
	SnapshotInterval = 5 * time.Second

	DefaultNodeConfigPath = "node.yaml"
	DefaultScenarioPath   = "scenario.yaml"
)
