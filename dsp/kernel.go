package dsp

import "math"

// LowPassKernel builds a windowed-sinc low-pass FIR kernel with a half-amplitude
// point at halfAmplFreq. An even length is widened by one to keep a center tap.
// The kernel is normalized to unity gain at DC.
func LowPassKernel(sampleRate, halfAmplFreq float64, length int) []float32 {
	length += (length + 1) % 2
	freq := halfAmplFreq / sampleRate
	center := length / 2
	coefs := make([]float32, length)
	sum := 0.0
	for i := 0; i < length; i++ {
		var val float64
		if i == center {
			val = 2 * math.Pi * freq
		} else {
			x := float64(i - center)
			val = math.Sin(2*math.Pi*freq*x) / x
			// Hamming window
			val *= 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(length-1))
		}
		sum += val
		coefs[i] = float32(val)
	}
	for i := range coefs {
		coefs[i] = float32(float64(coefs[i]) / sum)
	}
	return coefs
}

// HilbertKernel builds a truncated Hilbert transformer. Taps sit at odd
// distances from the center; the rest, center included, stay zero. An even
// length is widened by one.
func HilbertKernel(length int) []float32 {
	length += (length + 1) % 2
	center := length / 2
	coefs := make([]float32, length)
	for i := range coefs {
		if k := center - i; k%2 != 0 {
			coefs[i] = float32(2 / (math.Pi * float64(k)))
		}
	}
	return coefs
}
