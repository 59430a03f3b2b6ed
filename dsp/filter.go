package dsp

import "math"

// DCBlocker subtracts a slow-moving average from the signal, removing the DC
// component while leaving the audio band alone.
type DCBlocker struct {
	alpha float64
	avg   float64
}

func NewDCBlocker(sampleRate float64) *DCBlocker {
	return &DCBlocker{alpha: 1 - math.Exp(-1/(sampleRate*0.05))}
}

func (b *DCBlocker) InPlace(samples []float32) {
	for i, v := range samples {
		b.avg += b.alpha * (float64(v) - b.avg)
		samples[i] = float32(float64(v) - b.avg)
	}
}

// Deemphasizer is the single-pole low-pass that undoes FM transmit
// pre-emphasis. The time constant is given in microseconds.
type Deemphasizer struct {
	alpha float64
	val   float64
}

func NewDeemphasizer(sampleRate, timeConstantMicros float64) *Deemphasizer {
	return &Deemphasizer{alpha: 1 / (1 + sampleRate*timeConstantMicros/1e6)}
}

// SetTimeConstant changes the pole without resetting the accumulator, so the
// stream keeps its level across the change.
func (d *Deemphasizer) SetTimeConstant(sampleRate, timeConstantMicros float64) {
	d.alpha = 1 / (1 + sampleRate*timeConstantMicros/1e6)
}

func (d *Deemphasizer) InPlace(samples []float32) {
	for i, v := range samples {
		d.val += d.alpha * (float64(v) - d.val)
		samples[i] = float32(d.val)
	}
}

// AGC scales the signal toward a peak amplitude of 1, tracking the largest
// recent sample power and letting it decay with the given time constant.
type AGC struct {
	decay    float64
	maxPower float64
}

const agcMaxGain = 100

func NewAGC(sampleRate, timeConstantSeconds float64) *AGC {
	return &AGC{decay: math.Exp(-1 / (sampleRate * timeConstantSeconds))}
}

func (a *AGC) InPlace(samples []float32) {
	for i, v := range samples {
		power := float64(v) * float64(v)
		a.maxPower *= a.decay
		if power > a.maxPower {
			a.maxPower = power
		}
		gain := float64(agcMaxGain)
		if a.maxPower*agcMaxGain*agcMaxGain > 1 {
			gain = 1 / math.Sqrt(a.maxPower)
		}
		samples[i] = float32(float64(v) * gain)
	}
}

// ExpAverage is a weight-parameterized IIR average. With variance tracking
// enabled it also maintains the moving deviation of its input.
type ExpAverage struct {
	weight        float64
	avg           float64
	variance      float64
	trackVariance bool
}

func NewExpAverage(weight float64, trackVariance bool) *ExpAverage {
	return &ExpAverage{weight: weight, trackVariance: trackVariance}
}

func (e *ExpAverage) Add(v float64) float64 {
	e.avg = (e.weight*e.avg + v) / (e.weight + 1)
	if e.trackVariance {
		d := v - e.avg
		e.variance = (e.weight*e.variance + d*d) / (e.weight + 1)
	}
	return e.avg
}

func (e *ExpAverage) Avg() float64 { return e.avg }

// Std returns the moving standard deviation of the inputs.
func (e *ExpAverage) Std() float64 { return math.Sqrt(e.variance) }

// Power sums the squared magnitude of an I/Q block.
func Power(I, Q []float32) float64 {
	sum := 0.0
	for i := range I {
		sum += float64(I[i])*float64(I[i]) + float64(Q[i])*float64(Q[i])
	}
	return sum
}

// PowerR sums the squared magnitude of a real block.
func PowerR(samples []float32) float64 {
	sum := 0.0
	for _, v := range samples {
		sum += float64(v) * float64(v)
	}
	return sum
}

// PowerRatioLevel compresses an in-band/total power ratio into a [0,1]
// squelch score. The exponent keeps weak but real signals well above the
// noise floor reading.
func PowerRatioLevel(signal, total float64) float32 {
	if total < 1e-10 {
		total = 1e-10
	}
	r := signal / total
	if r < 0 {
		r = 0
	} else if r > 1 {
		r = 1
	}
	return float32(math.Pow(r, 0.17))
}
