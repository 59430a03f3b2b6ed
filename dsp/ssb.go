package dsp

// SSBDemodulator recovers one sideband by the phasing method: the Q rail goes
// through a Hilbert transformer, the I rail through a plain delay matching
// the transformer's group delay, and their sum or difference cancels the
// unwanted sideband. A low-pass at the sideband width cleans up the rest.
type SSBDemodulator struct {
	sampleRate float64
	sideLen    int
	delay      *FIRFilter
	hilbert    *FIRFilter
	side       *FIRFilter
	hilbertMul float32
	prePower   float64
	postPower  float64
}

const ssbHilbertLen = 151

func NewSSBDemodulator(sampleRate, bandwidth float64, upper bool) *SSBDemodulator {
	mul := float32(1)
	if upper {
		mul = -1
	}
	kernel := HilbertKernel(ssbHilbertLen)
	return &SSBDemodulator{
		sampleRate: sampleRate,
		sideLen:    ssbHilbertLen,
		delay:      NewFIRFilter(kernel),
		hilbert:    NewFIRFilter(kernel),
		side:       NewFIRFilter(LowPassKernel(sampleRate, bandwidth, ssbHilbertLen)),
		hilbertMul: mul,
	}
}

// SetBandwidth swaps the sideband filter for a new width mid-stream.
func (d *SSBDemodulator) SetBandwidth(bandwidth float64) {
	d.side.SetCoefficients(LowPassKernel(d.sampleRate, bandwidth, d.sideLen))
}

func (d *SSBDemodulator) Demodulate(I, Q, out []float32) {
	d.delay.LoadSamples(I)
	d.hilbert.LoadSamples(Q)
	for i := range out {
		out[i] = d.delay.GetDelayed(i) + d.hilbertMul*d.hilbert.Get(i)
	}
	if len(out) == 0 {
		return
	}
	d.prePower = PowerR(out)
	d.side.InPlace(out)
	d.postPower = PowerR(out)
}

// RelSignalLevel compares the power inside the sideband filter to the power
// entering it, compressed into [0,1] for squelch use.
func (d *SSBDemodulator) RelSignalLevel() float32 {
	return PowerRatioLevel(d.postPower, d.prePower)
}
