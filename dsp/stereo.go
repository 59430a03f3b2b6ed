package dsp

import "math"

// StereoSeparator recovers the L-R difference band from a demodulated WBFM
// signal. A lookup-table PLL tracks the 19 kHz pilot within +-40 Hz: each
// sample nudges the local oscillator by a clamped correction derived from the
// pilot's quadrature amplitude, and the 38 kHz subcarrier reference comes for
// free as sin*cos*2 of the tracked phase.
type StereoSeparator struct {
	sin, cos float64
	sinTable []float64
	cosTable []float64
	iavg     *ExpAverage
	qavg     *ExpAverage
	cavg     *ExpAverage
}

// StereoSignal carries the demodulated difference band and whether the pilot
// was locked while producing it.
type StereoSignal struct {
	Found bool
	Diff  []float32
}

const (
	stereoTableSize = 8001
	stereoMaxCorr   = 4
	stereoStdThres  = 400
)

func NewStereoSeparator(sampleRate, pilotHz float64) *StereoSeparator {
	s := &StereoSeparator{
		cos:      1,
		sinTable: make([]float64, stereoTableSize),
		cosTable: make([]float64, stereoTableSize),
		iavg:     NewExpAverage(9999, false),
		qavg:     NewExpAverage(9999, false),
		cavg:     NewExpAverage(49999, true),
	}
	for i := 0; i < stereoTableSize; i++ {
		theta := (pilotHz + float64(i)/100 - 40) * 2 * math.Pi / sampleRate
		s.sinTable[i] = math.Sin(theta)
		s.cosTable[i] = math.Cos(theta)
	}
	return s
}

// Separate demodulates the difference band out of the block. The input is
// copied; the caller's samples are left untouched.
func (s *StereoSeparator) Separate(samples []float32) StereoSignal {
	out := make([]float32, len(samples))
	copy(out, samples)
	for i, v := range out {
		fv := float64(v)
		hdev := s.iavg.Add(fv * s.sin)
		vdev := s.qavg.Add(fv * s.cos)
		out[i] = float32(fv * s.sin * s.cos * 2)
		var corr float64
		switch {
		case hdev > 0:
			corr = math.Max(-stereoMaxCorr, math.Min(stereoMaxCorr, vdev/hdev))
		case vdev > 0:
			corr = stereoMaxCorr
		case vdev < 0:
			corr = -stereoMaxCorr
		}
		idx := int(math.Round((corr + stereoMaxCorr) * 1000))
		newSin := s.sin*s.cosTable[idx] + s.cos*s.sinTable[idx]
		s.cos = s.cos*s.cosTable[idx] - s.sin*s.sinTable[idx]
		s.sin = newSin
		s.cavg.Add(corr * 1000)
	}
	return StereoSignal{Found: s.cavg.Std() < stereoStdThres, Diff: out}
}
