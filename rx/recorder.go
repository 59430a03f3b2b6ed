package rx

import (
	"os"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/jtarrio/radiorx/demod"
)

// Recorder is a Sink that writes demodulated audio to a 16-bit stereo wav.
type Recorder struct {
	mu      sync.Mutex
	f       *os.File
	enc     *wav.Encoder
	err     error
	samples uint64
}

func NewRecorder(path string) (*Recorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	return &Recorder{
		f:   f,
		enc: wav.NewEncoder(f, demod.AudioRate, 16, 2, 1),
	}, nil
}

func (r *Recorder) Push(left, right []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.enc == nil || r.err != nil {
		return
	}
	data := make([]int, 2*len(left))
	for i := range left {
		data[2*i] = clampS16(left[i])
		data[2*i+1] = clampS16(right[i])
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: demod.AudioRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := r.enc.Write(buf); err != nil {
		r.err = err
		return
	}
	r.samples += uint64(len(left))
}

// Samples counts stereo frames written so far.
func (r *Recorder) Samples() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.samples
}

// Err reports the first write failure; the recorder stops after one.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.enc == nil {
		return r.err
	}
	err := r.enc.Close()
	if cerr := r.f.Close(); err == nil {
		err = cerr
	}
	r.enc = nil
	if r.err == nil {
		r.err = err
	}
	return err
}

func clampS16(v float32) int {
	x := int(v * 32767)
	if x > 32767 {
		return 32767
	}
	if x < -32768 {
		return -32768
	}
	return x
}
