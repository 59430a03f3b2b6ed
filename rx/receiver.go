// Package rx drives the receive path: arriving sample blocks fan out to an
// ordered receiver chain and feed a demodulator whose audio goes to a sink.
package rx

// A SampleReceiver is handed every arriving block of baseband samples.
// Receivers must not mutate I or Q unless they run last in a chain, and
// must not retain the slices past the call.
type SampleReceiver interface {
	ReceiveSamples(I, Q []float32, freqOffset float64)
}

// Chain broadcasts each block to an ordered list of receivers.
type Chain []SampleReceiver

func (c Chain) ReceiveSamples(I, Q []float32, freqOffset float64) {
	for _, r := range c {
		r.ReceiveSamples(I, Q, freqOffset)
	}
}

// A Sink consumes demodulated stereo audio frames.
type Sink interface {
	Push(left, right []float32)
}

// MultiSink pushes each frame to every sink in order.
type MultiSink []Sink

func (m MultiSink) Push(left, right []float32) {
	for _, s := range m {
		s.Push(left, right)
	}
}
