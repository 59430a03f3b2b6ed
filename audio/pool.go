// Package audio delivers demodulated samples to the sound device at a
// steady rate.
package audio

import "sync"

// FramePool hands out fixed-size float32 frames and recycles returned ones,
// keeping the per-block path free of allocation.
type FramePool struct {
	mu   sync.Mutex
	size int
	free [][]float32
}

func NewFramePool(frameSize int) *FramePool {
	return &FramePool{size: frameSize}
}

func (p *FramePool) FrameSize() int { return p.size }

func (p *FramePool) Get() []float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(p.free); n > 0 {
		f := p.free[n-1]
		p.free = p.free[:n-1]
		return f
	}
	return make([]float32, p.size)
}

// Put returns a frame for reuse. Undersized frames are dropped.
func (p *FramePool) Put(f []float32) {
	if cap(f) < p.size {
		return
	}
	p.mu.Lock()
	p.free = append(p.free, f[:p.size])
	p.mu.Unlock()
}
