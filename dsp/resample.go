package dsp

// Downsampler filters an oversampled stream and strides through the filtered
// output at fractional positions to reach the target rate. Output index i
// reads the filtered value at floor(i*inRate/outRate).
type Downsampler struct {
	filter  *FIRFilter
	inRate  float64
	outRate float64
	rateMul float64
}

func NewDownsampler(inRate, outRate float64, coefs []float32) *Downsampler {
	return &Downsampler{
		filter:  NewFIRFilter(coefs),
		inRate:  inRate,
		outRate: outRate,
		rateMul: inRate / outRate,
	}
}

func (d *Downsampler) Downsample(samples []float32) []float32 {
	d.filter.LoadSamples(samples)
	out := make([]float32, int(float64(len(samples))*d.outRate/d.inRate))
	for i := range out {
		out[i] = d.filter.Get(int(float64(i) * d.rateMul))
	}
	return out
}

// SetCoefficients swaps the anti-alias kernel without a break in the stream.
func (d *Downsampler) SetCoefficients(coefs []float32) {
	d.filter.SetCoefficients(coefs)
}

// ComplexDownsampler downsamples the I and Q rails with an identical stride,
// so both stay sampled at the same time instants.
type ComplexDownsampler struct {
	di *Downsampler
	dq *Downsampler
}

func NewComplexDownsampler(inRate, outRate float64, coefs []float32) *ComplexDownsampler {
	return &ComplexDownsampler{
		di: NewDownsampler(inRate, outRate, coefs),
		dq: NewDownsampler(inRate, outRate, coefs),
	}
}

func (d *ComplexDownsampler) Downsample(I, Q []float32) ([]float32, []float32) {
	return d.di.Downsample(I), d.dq.Downsample(Q)
}

// SetCoefficients swaps both rails' kernels without a break in the stream.
func (d *ComplexDownsampler) SetCoefficients(coefs []float32) {
	d.di.SetCoefficients(coefs)
	d.dq.SetCoefficients(coefs)
}
