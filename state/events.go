package state

import "fmt"

type EventKind uint8

const (
	EventDetect EventKind = iota + 1
	EventAbsent
)

func (k EventKind) String() string {
	switch k {
	case EventDetect:
		return "DETECT"
	case EventAbsent:
		return "ABSENT"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// ParseEventKind is the inverse of EventKind.String.
func ParseEventKind(s string) (EventKind, error) {
	switch s {
	case "DETECT":
		return EventDetect, nil
	case "ABSENT":
		return EventAbsent, nil
	}
	return 0, fmt.Errorf("unknown event kind %q", s)
}

// Event is a confirmed presence transition. At is the start of the streak
// that caused it: the first hit for DETECT, the first silent cycle for ABSENT.
type Event struct {
	Kind EventKind
	At   Seconds
	Peer PeerId
}

// String renders the event in the serial line format, e.g. "0 DETECT 12".
func (e Event) String() string {
	return fmt.Sprintf("%d %s %d", e.At, e.Kind, e.Peer)
}

type EventSink interface {
	Emit(e Event)
}
