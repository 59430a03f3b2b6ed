package dsp

// FIRFilter convolves a coefficient kernel against a sample stream. It keeps
// the last len(coefs)-1 samples of every call ahead of the next block, so
// output is continuous across block boundaries.
type FIRFilter struct {
	coefs  []float32
	buf    []float32
	offset int
	center int
}

func NewFIRFilter(coefs []float32) *FIRFilter {
	coefs = padOdd(coefs)
	f := &FIRFilter{
		coefs:  coefs,
		offset: len(coefs) - 1,
		center: len(coefs) / 2,
	}
	f.buf = make([]float32, f.offset)
	return f
}

// padOdd widens an even kernel by one zero tap so there is a center tap.
func padOdd(coefs []float32) []float32 {
	if len(coefs)%2 == 1 {
		return coefs
	}
	padded := make([]float32, len(coefs)+1)
	copy(padded, coefs)
	return padded
}

// SetCoefficients swaps the kernel without dropping the sample history. The
// samples of the current block are fed back in under the new offset so the
// next block starts from consistent state.
func (f *FIRFilter) SetCoefficients(coefs []float32) {
	coefs = padOdd(coefs)
	cur := make([]float32, len(f.buf)-f.offset)
	copy(cur, f.buf[f.offset:])
	f.coefs = coefs
	f.offset = len(coefs) - 1
	f.center = len(coefs) / 2
	f.buf = make([]float32, f.offset)
	f.LoadSamples(cur)
}

// LoadSamples makes a block available to Get and GetDelayed, prefixed by the
// retained history from the previous call.
func (f *FIRFilter) LoadSamples(samples []float32) {
	n := len(samples) + f.offset
	buf := f.buf
	if cap(buf) < n {
		buf = make([]float32, n)
	} else {
		buf = buf[:n]
	}
	copy(buf[:f.offset], f.buf[len(f.buf)-f.offset:])
	copy(buf[f.offset:], samples)
	f.buf = buf
}

// Get computes the filtered value for output index i of the loaded block.
func (f *FIRFilter) Get(i int) float32 {
	sum := 0.0
	for j, c := range f.coefs {
		sum += float64(c) * float64(f.buf[i+j])
	}
	return float32(sum)
}

// GetDelayed returns the raw sample at index i delayed by the filter's group
// delay, for aligning an unfiltered branch with a filtered one.
func (f *FIRFilter) GetDelayed(i int) float32 {
	return f.buf[i+f.center]
}

// InPlace filters the whole block and overwrites it.
func (f *FIRFilter) InPlace(samples []float32) {
	f.LoadSamples(samples)
	for i := range samples {
		samples[i] = f.Get(i)
	}
}
