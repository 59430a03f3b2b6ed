package dsp

import "math"

// AMDemodulator detects the envelope of an AM signal. The I and Q rails are
// DC-blocked first so a residual carrier offset does not bias the envelope,
// and the envelope itself is DC-blocked to strip the carrier level.
type AMDemodulator struct {
	dcI *DCBlocker
	dcQ *DCBlocker
	dcA *DCBlocker
}

func NewAMDemodulator(sampleRate float64) *AMDemodulator {
	return &AMDemodulator{
		dcI: NewDCBlocker(sampleRate),
		dcQ: NewDCBlocker(sampleRate),
		dcA: NewDCBlocker(sampleRate),
	}
}

// Demodulate overwrites I and Q while detecting; out receives the audio.
func (d *AMDemodulator) Demodulate(I, Q, out []float32) {
	d.dcI.InPlace(I)
	d.dcQ.InPlace(Q)
	for i := range out {
		vi, vq := float64(I[i]), float64(Q[i])
		out[i] = float32(math.Sqrt(vi*vi + vq*vq))
	}
	d.dcA.InPlace(out)
}
