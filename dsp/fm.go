package dsp

import "math"

// FMDemodulator recovers the modulating signal from the phase difference
// between consecutive I/Q samples, scaled so that full deviation maps to 1.
type FMDemodulator struct {
	amplConv float64
	lI, lQ   float64
	lOut     float64
	level    float64
}

func NewFMDemodulator(sampleRate, maxDeviation float64) *FMDemodulator {
	return &FMDemodulator{amplConv: sampleRate / (2 * math.Pi * maxDeviation)}
}

// Demodulate writes one output sample per input pair into out. It also
// refreshes the relative signal level from the roughness of the output: clean
// FM audio moves smoothly from sample to sample, noise jumps all over.
func (d *FMDemodulator) Demodulate(I, Q, out []float32) {
	lI, lQ, lOut := d.lI, d.lQ, d.lOut
	difSqrSum := 0.0
	for i := range I {
		ci, cq := float64(I[i]), float64(Q[i])
		re := lI*ci + lQ*cq
		im := lI*cq - ci*lQ
		v := fastAtan2(im, re) * d.amplConv
		out[i] = float32(v)
		dif := v - lOut
		difSqrSum += dif * dif
		lI, lQ, lOut = ci, cq, v
	}
	d.lI, d.lQ, d.lOut = lI, lQ, lOut
	if len(I) > 0 {
		level := 1 - math.Sqrt(difSqrSum/float64(len(I)))
		if level < 0 {
			level = 0
		}
		d.level = level
	}
}

// RelSignalLevel reports the signal quality estimate for the last block.
func (d *FMDemodulator) RelSignalLevel() float32 {
	return float32(d.level)
}

// SetMaxDeviation adjusts the output scale for a new deviation.
func (d *FMDemodulator) SetMaxDeviation(sampleRate, maxDeviation float64) {
	d.amplConv = sampleRate / (2 * math.Pi * maxDeviation)
}

// fastAtan2 approximates atan2 with one division and a rational correction
// term, accurate to about 0.005 radians. Both inputs zero yields zero.
func fastAtan2(y, x float64) float64 {
	sgn, circ, ang := 1.0, 0.0, 0.0
	if x < 0 {
		sgn, x, circ = -sgn, -x, math.Pi
	}
	if y < 0 {
		sgn, y, circ = -sgn, -y, -circ
	}
	var div float64
	switch {
	case x > y:
		div = y / x
	case x < y:
		ang, div, sgn = -math.Pi/2, x/y, -sgn
	case x == 0:
		return 0
	default:
		div = 1
	}
	return circ + sgn*(ang+div/(1+0.28*div*div))
}
