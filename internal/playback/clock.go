package playback

import (
	"math"
	"sync/atomic"
)

// Clock is a float64 seconds value written by the pump thread and read
// best-effort from anywhere. Reads are not linearizable with writes;
// callers use the value as an advisory position, never transactionally.
type Clock struct {
	bits atomic.Uint64
}

func (c *Clock) Set(sec float64) {
	c.bits.Store(math.Float64bits(sec))
}

func (c *Clock) Get() float64 {
	return math.Float64frombits(c.bits.Load())
}
