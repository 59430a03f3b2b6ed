package dsp

import "math"

// FrequencyShifter rotates I/Q pairs by a persistent phase that advances by
// 2*pi*freq/sampleRate per sample. The rotation vector is carried across
// calls via the angle-addition recurrence, so the hot loop needs no
// trigonometry.
type FrequencyShifter struct {
	sampleRate float64
	cosine     float64
	sine       float64
}

func NewFrequencyShifter(sampleRate float64) *FrequencyShifter {
	return &FrequencyShifter{sampleRate: sampleRate, cosine: 1}
}

// InPlace shifts the block by freq Hz, overwriting I and Q.
func (s *FrequencyShifter) InPlace(I, Q []float32, freq float64) {
	deltaCos := math.Cos(2 * math.Pi * freq / s.sampleRate)
	deltaSin := math.Sin(2 * math.Pi * freq / s.sampleRate)
	cosine, sine := s.cosine, s.sine
	for i := range I {
		vi, vq := float64(I[i]), float64(Q[i])
		I[i] = float32(vi*cosine - vq*sine)
		Q[i] = float32(vi*sine + vq*cosine)
		newSine := cosine*deltaSin + sine*deltaCos
		cosine = cosine*deltaCos - sine*deltaSin
		sine = newSine
	}
	s.cosine, s.sine = cosine, sine
}
