package state

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

type GridCfg struct {
	Rows int `yaml:"rows"`
	Cols int `yaml:"cols"`
}

// CycleLen is the number of slots in one discovery cycle.
func (g GridCfg) CycleLen() int {
	return g.Rows * g.Cols
}

type PresenceCfg struct {
	DetectThreshold Seconds `yaml:"detect_threshold"`
	AbsentThreshold Seconds `yaml:"absent_threshold"`
	Capacity        int     `yaml:"capacity"` // neighbour table size, allocated once at startup
}

type RssiCfg struct {
	EntryThreshold int `yaml:"entry_threshold"` // an unconfirmed peer must be heard above this
	HoldThreshold  int `yaml:"hold_threshold"`  // a confirmed peer must be heard above this
}

type RadioCfg struct {
	TxPower int `yaml:"tx_power"` // dBm, 0 is a valid setting
}

type TimingCfg struct {
	TimerRate  uint32 `yaml:"timer_rate"`  // real-time timer ticks per second
	TimerBits  uint8  `yaml:"timer_bits"`  // width of the real-time timer counter
	ClockRate  uint32 `yaml:"clock_rate"`  // clock ticks per second
	WakeTime   Ticks  `yaml:"wake_time"`   // length of an awake slot
	SleepSlot  Ticks  `yaml:"sleep_slot"`  // length of one sleep tick
	SleepChain int    `yaml:"sleep_chain"` // sleep ticks chained into one asleep slot
	StartDelay Ticks  `yaml:"start_delay"`
}

// Duration converts timer ticks to wall time.
func (t TimingCfg) Duration(ticks Ticks) time.Duration {
	return time.Duration(uint64(ticks) * uint64(time.Second) / uint64(t.TimerRate))
}

// Seconds truncates a clock reading to whole seconds.
func (t TimingCfg) Seconds(clock uint64) Seconds {
	return Seconds(clock / uint64(t.ClockRate))
}

// MaxInterval is the largest delay that can be added to the timer counter
// without wrapping past the next comparison.
func (t TimingCfg) MaxInterval() Ticks {
	return Ticks(uint64(1)<<(t.TimerBits-1) - 1)
}

// SlotDuration is the wall time of an awake and an asleep slot respectively.
func (t TimingCfg) SlotDuration() (time.Duration, time.Duration) {
	return t.Duration(t.WakeTime), t.Duration(t.SleepSlot) * time.Duration(t.SleepChain)
}

// LocalCfg represents the configuration of a single discovery node
type LocalCfg struct {
	Id          PeerId      `yaml:"id"`
	Seed        uint64      `yaml:"seed,omitempty"` // schedule rng seed, 0 derives one from the clock
	Grid        GridCfg     `yaml:"grid"`
	Presence    PresenceCfg `yaml:"presence"`
	Rssi        RssiCfg     `yaml:"rssi"`
	Radio       RadioCfg    `yaml:"radio"`
	Timing      TimingCfg   `yaml:"timing"`
	LogPath     string      `yaml:"log_path,omitempty"`     // if not empty, logs are also written to this file
	Serial      bool        `yaml:"serial,omitempty"`       // print presence events in the serial line format to stdout
	EventDb     string      `yaml:"event_db,omitempty"`     // sqlite database receiving presence events
	MetricsAddr string      `yaml:"metrics_addr,omitempty"` // prometheus listen address
}

// DefaultLocalCfg returns a fully populated configuration for the node id.
func DefaultLocalCfg(id PeerId) LocalCfg {
	cfg := LocalCfg{
		Id:     id,
		Radio:  RadioCfg{TxPower: DefaultTxPower},
		Serial: true,
	}
	ApplyDefaults(&cfg)
	return cfg
}

// ApplyDefaults fills every unset numeric field except the transmit power.
func ApplyDefaults(cfg *LocalCfg) {
	setDefault(&cfg.Grid.Rows, DefaultRows)
	setDefault(&cfg.Grid.Cols, DefaultCols)
	setDefault(&cfg.Presence.DetectThreshold, DetectThreshold)
	setDefault(&cfg.Presence.AbsentThreshold, AbsentThreshold)
	setDefault(&cfg.Presence.Capacity, MaxNeighbours)
	setDefault(&cfg.Rssi.EntryThreshold, EntryThreshold)
	setDefault(&cfg.Rssi.HoldThreshold, HoldThreshold)
	setDefault(&cfg.Timing.TimerRate, TimerRate)
	setDefault(&cfg.Timing.TimerBits, TimerBits)
	setDefault(&cfg.Timing.ClockRate, ClockRate)
	setDefault(&cfg.Timing.WakeTime, WakeTime)
	setDefault(&cfg.Timing.SleepSlot, SleepSlot)
	setDefault(&cfg.Timing.SleepChain, SleepChain)
	setDefault(&cfg.Timing.StartDelay, StartDelay)
}

func setDefault[T comparable](v *T, def T) {
	var zero T
	if *v == zero {
		*v = def
	}
}

func ReadNodeConfig(path string) (*LocalCfg, error) {
	var cfg LocalCfg
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	err = yaml.Unmarshal(file, &cfg)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}
