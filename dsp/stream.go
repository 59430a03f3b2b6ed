package dsp

import "context"

// Channel stages wrap the block primitives for the pipe tools. Each stage
// owns its filter state, so a stream fed block by block comes out identical
// to one processed whole.

func SplitIQ(samps []complex64, I, Q []float32) {
	for i, v := range samps {
		I[i], Q[i] = real(v), imag(v)
	}
}

func JoinIQ(I, Q []float32) []complex64 {
	out := make([]complex64, len(I))
	for i := range out {
		out[i] = complex(I[i], Q[i])
	}
	return out
}

// ShiftStream mixes the stream by freqHz.
func ShiftStream(ctx context.Context, freqHz float64, sampHz int, sigc <-chan []complex64) <-chan []complex64 {
	shifter := NewFrequencyShifter(float64(sampHz))
	outc := make(chan []complex64, 1)
	go func() {
		defer close(outc)
		for samps := range sigc {
			I := make([]float32, len(samps))
			Q := make([]float32, len(samps))
			SplitIQ(samps, I, Q)
			shifter.InPlace(I, Q, freqHz)
			select {
			case outc <- JoinIQ(I, Q):
			case <-ctx.Done():
				return
			}
		}
	}()
	return outc
}

// LowpassStream filters the stream at cutoffHz and decimates by decRate.
func LowpassStream(ctx context.Context, cutoffHz float64, sampHz, decRate int, sigc <-chan []complex64) <-chan []complex64 {
	if decRate <= 0 {
		panic("bad decimation")
	}
	coefs := LowPassKernel(float64(sampHz), cutoffHz, 65)
	d := NewComplexDownsampler(float64(sampHz), float64(sampHz)/float64(decRate), coefs)
	outc := make(chan []complex64, 1)
	go func() {
		defer close(outc)
		for samps := range sigc {
			I := make([]float32, len(samps))
			Q := make([]float32, len(samps))
			SplitIQ(samps, I, Q)
			fi, fq := d.Downsample(I, Q)
			select {
			case outc <- JoinIQ(fi, fq):
			case <-ctx.Done():
				return
			}
		}
	}()
	return outc
}

// FMDemodStream turns the stream into demodulated audio at the input rate.
func FMDemodStream(ctx context.Context, sampHz int, maxDevHz float64, sigc <-chan []complex64) <-chan []float32 {
	dem := NewFMDemodulator(float64(sampHz), maxDevHz)
	outc := make(chan []float32, 1)
	go func() {
		defer close(outc)
		for samps := range sigc {
			I := make([]float32, len(samps))
			Q := make([]float32, len(samps))
			SplitIQ(samps, I, Q)
			out := make([]float32, len(samps))
			dem.Demodulate(I, Q, out)
			select {
			case outc <- out:
			case <-ctx.Done():
				return
			}
		}
	}()
	return outc
}

// ResampleStream converts real samples from inHz to outHz.
func ResampleStream(ctx context.Context, inHz, outHz int, sigc <-chan []float32) <-chan []float32 {
	cutoff := float64(outHz) * 0.45
	d := NewDownsampler(float64(inHz), float64(outHz), LowPassKernel(float64(inHz), cutoff, 151))
	outc := make(chan []float32, 1)
	go func() {
		defer close(outc)
		for samps := range sigc {
			select {
			case outc <- d.Downsample(samps):
			case <-ctx.Done():
				return
			}
		}
	}()
	return outc
}
