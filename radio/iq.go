package radio

import (
	"context"
	"io"
	"math"
)

// iqBias centers a u8 sample near zero. raw/128 - iqBias spans roughly
// [-0.995, 1.004].
const iqBias = 0.995

// ConvertU8 converts interleaved u8 I/Q bytes into planar floats.
// I and Q must each hold len(raw)/2 entries.
func ConvertU8(raw []byte, I, Q []float32) {
	n := len(raw) / 2
	for i := 0; i < n; i++ {
		I[i] = float32(raw[2*i])/128 - iqBias
		Q[i] = float32(raw[2*i+1])/128 - iqBias
	}
}

func u8FromFloat(v float32) byte {
	x := math.Round(float64(v+iqBias) * 128)
	if x < 0 {
		x = 0
	} else if x > 255 {
		x = 255
	}
	return byte(x)
}

type IQReader struct {
	r   io.Reader
	err error
}

type MixerIQReader struct {
	HzBand
	*IQReader
}

// NewIQReader takes a reader that uses u8 I/Q samples.
func NewIQReader(r io.Reader) *IQReader {
	if r == nil {
		panic("nil reader")
	}
	return &IQReader{r: r}
}

func NewMixerIQReader(r io.Reader, hzb HzBand) *MixerIQReader {
	return &MixerIQReader{
		HzBand:   hzb,
		IQReader: NewIQReader(r),
	}
}

func (iq *IQReader) Batch64(batch, limit int) <-chan []complex64 {
	return iq.BatchStream64(context.Background(), batch, limit)
}

func (iq *IQReader) BatchStream64(ctx context.Context, batch, limit int) <-chan []complex64 {
	ch := make(chan []complex64, 1)
	go func() {
		defer close(ch)
		for raw := range iq.BatchStreamBytes(ctx, batch, limit) {
			samps := make([]complex64, batch)
			for i := 0; i < len(samps); i++ {
				samps[i] = complex(
					float32(raw[2*i])/128-iqBias,
					float32(raw[2*i+1])/128-iqBias)
			}
			select {
			case ch <- samps:
			case <-ctx.Done():
			}
		}
	}()
	return ch
}

// BatchStreamBytes streams raw interleaved blocks of batch sample pairs.
func (iq *IQReader) BatchStreamBytes(ctx context.Context, batch, limit int) <-chan []byte {
	ch := make(chan []byte, 1)
	go func() {
		defer close(ch)
		i := 0
		for {
			if limit > 0 && i >= limit {
				return
			}
			i++
			iq8buf := make([]byte, batch*2)
			sumBytes := 0
			for sumBytes != len(iq8buf) {
				readBytes := 0
				if readBytes, iq.err = iq.r.Read(iq8buf[sumBytes:]); iq.err != nil {
					return
				}
				sumBytes += readBytes
			}
			select {
			case ch <- iq8buf:
			case <-ctx.Done():
			}
		}
	}()
	return ch
}

type IQWriter struct{ w io.Writer }

func NewIQWriter(w io.Writer) *IQWriter { return &IQWriter{w} }

func (iq *IQWriter) Write64(out []complex64) error {
	buf := make([]byte, 2*len(out))
	for i := range out {
		buf[2*i] = u8FromFloat(real(out[i]))
		buf[2*i+1] = u8FromFloat(imag(out[i]))
	}
	_, err := iq.w.Write(buf)
	return err
}

// WriteFloats writes planar I/Q samples back out as interleaved u8.
func (iq *IQWriter) WriteFloats(I, Q []float32) error {
	buf := make([]byte, 2*len(I))
	for i := range I {
		buf[2*i] = u8FromFloat(I[i])
		buf[2*i+1] = u8FromFloat(Q[i])
	}
	_, err := iq.w.Write(buf)
	return err
}
