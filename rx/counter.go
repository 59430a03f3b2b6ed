package rx

import (
	"sync/atomic"
	"time"
)

// Counter tallies blocks and samples moving through a chain, for measuring
// the effective delivery rate against the nominal one.
type Counter struct {
	blocks  atomic.Uint64
	samples atomic.Uint64
	start   time.Time
}

func NewCounter() *Counter {
	return &Counter{start: time.Now()}
}

func (c *Counter) ReceiveSamples(I, Q []float32, _ float64) {
	c.blocks.Add(1)
	c.samples.Add(uint64(len(I)))
}

func (c *Counter) Blocks() uint64  { return c.blocks.Load() }
func (c *Counter) Samples() uint64 { return c.samples.Load() }

// Rate reports samples per second since the counter started.
func (c *Counter) Rate() float64 {
	secs := time.Since(c.start).Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(c.samples.Load()) / secs
}
