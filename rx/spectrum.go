package rx

import (
	"math"
	"math/cmplx"
	"sync"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// Spectrum is a chain receiver that keeps a live windowed FFT view of the
// incoming band. Frames are windowed with Hamming and ordered with the
// lowest frequency in bin 0.
type Spectrum struct {
	bins int
	win  []float64
	buf  []complex128
	fill int

	mu     sync.Mutex
	last   []float64
	peak   []float64
	frames uint64
}

func NewSpectrum(bins int) *Spectrum {
	s := &Spectrum{
		bins: bins,
		win:  window.Hamming(bins),
		buf:  make([]complex128, bins),
		peak: make([]float64, bins),
	}
	for i := range s.peak {
		s.peak[i] = math.Inf(-1)
	}
	return s
}

func (s *Spectrum) ReceiveSamples(I, Q []float32, _ float64) {
	for i := range I {
		s.buf[s.fill] = complex(float64(I[i])*s.win[s.fill], float64(Q[i])*s.win[s.fill])
		s.fill++
		if s.fill == s.bins {
			s.flush()
		}
	}
}

func (s *Spectrum) flush() {
	s.fill = 0
	frame := make([]float64, s.bins)
	for i, v := range fft.FFT(s.buf) {
		idx := i + s.bins/2
		if i >= s.bins/2 {
			idx = i - s.bins/2
		}
		frame[idx] = 20 * math.Log10(cmplx.Abs(v)+1e-12)
	}
	s.mu.Lock()
	s.last = frame
	for i, v := range frame {
		if v > s.peak[i] {
			s.peak[i] = v
		}
	}
	s.frames++
	s.mu.Unlock()
}

// Frame returns the latest dB frame, or nil before the first full window.
func (s *Spectrum) Frame() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	out := make([]float64, len(s.last))
	copy(out, s.last)
	return out
}

// PeakHold returns the running per-bin maximum.
func (s *Spectrum) PeakHold() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float64, len(s.peak))
	copy(out, s.peak)
	return out
}

func (s *Spectrum) Frames() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}
