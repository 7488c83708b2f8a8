package core

import (
	"math/rand/v2"
	"time"

	"github.com/encodeous/nbrd/state"
)

// HostClock is a monotonic clock derived from the host's monotonic time source.
type HostClock struct {
	Rate  uint32
	start time.Time
}

func NewHostClock(rate uint32) *HostClock {
	return &HostClock{
		Rate:  rate,
		start: time.Now(),
	}
}

func (c *HostClock) Now() uint64 {
	d := time.Since(c.start)
	s := uint64(d / time.Second)
	r := uint64(d % time.Second)
	return s*uint64(c.Rate) + r*uint64(c.Rate)/uint64(time.Second)
}

// NewRand returns the schedule rng of a node. A zero seed is replaced by one
// derived from the wall clock, so two nodes booted together still diverge.
func NewRand(seed uint64, id state.PeerId) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, uint64(id)))
}
