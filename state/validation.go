package state

import (
	"errors"
	"fmt"
	"os"
	"path"
)

// ErrIntervalOverflow is returned when a configured delay cannot be added to
// the real-time timer counter without wrapping. It is a fatal configuration error.
var ErrIntervalOverflow = errors.New("interval overflows the timer counter")

func PathValidator(s string) error {
	_, err := os.Stat(path.Dir(s))
	return err
}

func IntervalValidator(name string, v Ticks, t TimingCfg) error {
	if v == 0 {
		return fmt.Errorf("timing.%s must be positive", name)
	}
	if v > t.MaxInterval() {
		return fmt.Errorf("timing.%s = %d > %d: %w", name, v, t.MaxInterval(), ErrIntervalOverflow)
	}
	return nil
}

func NodeConfigValidator(cfg *LocalCfg) error {
	if cfg.Grid.Rows < 1 || cfg.Grid.Cols < 1 {
		return fmt.Errorf("grid must be at least 1x1, got %dx%d", cfg.Grid.Rows, cfg.Grid.Cols)
	}
	if cfg.Presence.Capacity < 1 {
		return fmt.Errorf("presence.capacity must be positive, got %d", cfg.Presence.Capacity)
	}
	if cfg.Presence.DetectThreshold == 0 || cfg.Presence.AbsentThreshold == 0 {
		return fmt.Errorf("presence thresholds must be positive")
	}
	if cfg.Rssi.HoldThreshold > cfg.Rssi.EntryThreshold {
		return fmt.Errorf("rssi.hold_threshold (%d) must not exceed rssi.entry_threshold (%d)", cfg.Rssi.HoldThreshold, cfg.Rssi.EntryThreshold)
	}
	t := cfg.Timing
	if t.TimerRate == 0 || t.ClockRate == 0 {
		return fmt.Errorf("timing rates must be positive")
	}
	if t.TimerBits < 2 || t.TimerBits > 32 {
		return fmt.Errorf("timing.timer_bits must be within [2, 32], got %d", t.TimerBits)
	}
	if t.SleepChain < 1 {
		return fmt.Errorf("timing.sleep_chain must be at least 1, got %d", t.SleepChain)
	}
	for _, iv := range []Pair[string, Ticks]{
		{"wake_time", t.WakeTime},
		{"sleep_slot", t.SleepSlot},
		{"start_delay", t.StartDelay},
	} {
		if err := IntervalValidator(iv.V1, iv.V2, t); err != nil {
			return err
		}
	}
	if cfg.LogPath != "" {
		if err := PathValidator(cfg.LogPath); err != nil {
			return fmt.Errorf("log_path: %w", err)
		}
	}
	if cfg.EventDb != "" {
		if err := PathValidator(cfg.EventDb); err != nil {
			return fmt.Errorf("event_db: %w", err)
		}
	}
	return nil
}
