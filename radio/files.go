package radio

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var ErrBadFormat = errors.New("bad sample format")

// OpenIQR opens an I/Q sample source: "-" for stdin, a .wav recording, or a
// raw u8 file. A wav's recorded rate overrides hzb's width.
func OpenIQR(path string, hzb HzBand) (*MixerIQReader, func(), error) {
	if path == "-" || path == "-.iq8" {
		return NewMixerIQReader(os.Stdin, hzb), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	if strings.HasSuffix(path, ".wav") {
		r, err := newWavIQReader(f)
		if err != nil {
			f.Close()
			return nil, nil, err
		}
		hzb = HzBand{Center: hzb.Center, Width: uint64(r.rate)}
		return NewMixerIQReader(r, hzb), func() { f.Close() }, nil
	}
	return NewMixerIQReader(f, hzb), func() { f.Close() }, nil
}

// OpenIQW opens an I/Q sample sink: "-" for stdout, .wav, or raw u8.
func OpenIQW(path string, hzb HzBand) (*IQWriter, func(), error) {
	if path == "-" || path == "-.iq8" {
		return NewIQWriter(os.Stdout), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0644)
	if err != nil {
		return nil, nil, err
	}
	if strings.HasSuffix(path, ".wav") {
		enc := wav.NewEncoder(f, int(hzb.Width), 8, 2, 1)
		closer := func() {
			enc.Close()
			f.Close()
		}
		return NewIQWriter(&wavU8Writer{enc: enc}), closer, nil
	}
	return NewIQWriter(f), func() { f.Close() }, nil
}

// wavIQReader replays a 2-channel wav recording as interleaved u8 bytes.
type wavIQReader struct {
	dec  *wav.Decoder
	buf  *audio.IntBuffer
	pend []byte
	rate int
}

func newWavIQReader(rs io.ReadSeeker) (*wavIQReader, error) {
	dec := wav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrBadFormat
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, err
	}
	if dec.NumChans != 2 {
		return nil, ErrBadFormat
	}
	switch dec.BitDepth {
	case 8, 16:
	default:
		return nil, ErrBadFormat
	}
	return &wavIQReader{
		dec:  dec,
		buf:  &audio.IntBuffer{Format: dec.Format(), Data: make([]int, 16384)},
		rate: int(dec.SampleRate),
	}, nil
}

func (w *wavIQReader) Read(p []byte) (int, error) {
	if len(w.pend) == 0 {
		n, err := w.dec.PCMBuffer(w.buf)
		if n == 0 {
			if err == nil {
				err = io.EOF
			}
			return 0, err
		}
		w.pend = make([]byte, n)
		for i, v := range w.buf.Data[:n] {
			if w.dec.BitDepth == 16 {
				w.pend[i] = byte((v >> 8) + 128)
			} else {
				w.pend[i] = byte(v)
			}
		}
	}
	n := copy(p, w.pend)
	w.pend = w.pend[n:]
	return n, nil
}

// wavU8Writer frames interleaved u8 bytes into an 8-bit 2-channel wav.
type wavU8Writer struct{ enc *wav.Encoder }

func (w *wavU8Writer) Write(p []byte) (int, error) {
	ints := make([]int, len(p))
	for i, b := range p {
		ints[i] = int(b)
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: w.enc.SampleRate},
		Data:           ints,
		SourceBitDepth: 8,
	}
	if err := w.enc.Write(buf); err != nil {
		return 0, err
	}
	return len(p), nil
}
