package audio

import (
	"encoding/binary"
	"math"
	"sync"
)

// Ring buffers interleaved stereo float32 between the demodulator and the
// sound device. Writing past capacity drops the oldest audio; reading past
// the fill hands out silence, so playback timing never stalls on either
// side.
type Ring struct {
	mu        sync.Mutex
	buf       []float32
	r, w      uint64 // absolute sample positions
	underruns uint64
	overruns  uint64
	scratch   []float32
}

// NewRing holds up to frames stereo frames.
func NewRing(frames int) *Ring {
	return &Ring{buf: make([]float32, 2*frames)}
}

// Write queues one stereo block.
func (rb *Ring) Write(left, right []float32) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	n := uint64(len(rb.buf))
	for i := range left {
		if rb.w-rb.r == n {
			rb.r += 2
			rb.overruns++
		}
		rb.buf[rb.w%n] = left[i]
		rb.buf[(rb.w+1)%n] = right[i]
		rb.w += 2
	}
}

// ReadSamples fills p with queued samples, zero-filling whatever the ring
// lacks, and reports how many real samples were copied.
func (rb *Ring) ReadSamples(p []float32) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.readLocked(p)
}

func (rb *Ring) readLocked(p []float32) int {
	n := uint64(len(rb.buf))
	avail := rb.w - rb.r
	want := uint64(len(p))
	real := avail
	if real > want {
		real = want
	}
	for i := uint64(0); i < real; i++ {
		p[i] = rb.buf[(rb.r+i)%n]
	}
	rb.r += real
	if real < want {
		for i := real; i < want; i++ {
			p[i] = 0
		}
		rb.underruns += want - real
	}
	return int(real)
}

// Read hands the sound device little-endian float32 frames.
func (rb *Ring) Read(p []byte) (int, error) {
	n := len(p) / 4
	rb.mu.Lock()
	if cap(rb.scratch) < n {
		rb.scratch = make([]float32, n)
	}
	samps := rb.scratch[:n]
	rb.readLocked(samps)
	rb.mu.Unlock()
	for i, v := range samps {
		binary.LittleEndian.PutUint32(p[4*i:], math.Float32bits(v))
	}
	return n * 4, nil
}

// Buffered counts queued samples.
func (rb *Ring) Buffered() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return int(rb.w - rb.r)
}

// Underruns counts samples of silence handed out on an empty ring.
func (rb *Ring) Underruns() uint64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.underruns
}

// Overruns counts samples dropped on a full ring.
func (rb *Ring) Overruns() uint64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.overruns
}
