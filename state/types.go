package state

import "fmt"

// PeerId identifies a node on the air. Every value, including zero, is a valid id.
type PeerId uint32

func (p PeerId) String() string {
	return fmt.Sprintf("%d", uint32(p))
}

// Seconds is a whole-second timestamp or duration measured on the node clock.
type Seconds uint32

// Ticks is a delay in real-time timer ticks.
type Ticks uint32
