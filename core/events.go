package core

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/encodeous/nbrd/state"
)

// Sinks fans an event out to every sink in order.
type Sinks []state.EventSink

func (s Sinks) Emit(e state.Event) {
	for _, sink := range s {
		sink.Emit(e)
	}
}

// EventFunc adapts a function to an EventSink.
type EventFunc func(e state.Event)

func (f EventFunc) Emit(e state.Event) {
	f(e)
}

// LogSink writes events to the logger, and in the serial line format to Serial when it is set.
type LogSink struct {
	Log    *slog.Logger
	Serial io.Writer
}

func (l LogSink) Emit(e state.Event) {
	l.Log.Info("presence", "event", e.Kind.String(), "peer", e.Peer, "at", e.At)
	if l.Serial != nil {
		_, err := fmt.Fprintf(l.Serial, "%s\r\n", e)
		if err != nil {
			l.Log.Warn("failed to write event to serial", "error", err)
		}
	}
}
