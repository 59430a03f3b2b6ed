package demod

import "github.com/jtarrio/radiorx/dsp"

// cwToneFreq is the audible beat the carrier is shifted onto.
const cwToneFreq = 600

// cw receives Morse carriers as an upper sideband, with the extra shift
// that turns a dead carrier into a cwToneFreq beat tone.
type cw struct {
	mode        Mode
	shifter     *dsp.FrequencyShifter
	downsampler *dsp.ComplexDownsampler
	demod       *dsp.SSBDemodulator
	deemph      *dsp.Deemphasizer
	agc         *dsp.AGC
}

func newCW(inRate int, m Mode) *cw {
	coefs := dsp.LowPassKernel(float64(inRate), ssbChannelCutoff, 151)
	return &cw{
		mode:        m,
		shifter:     dsp.NewFrequencyShifter(float64(inRate)),
		downsampler: dsp.NewComplexDownsampler(float64(inRate), AudioRate, coefs),
		demod:       dsp.NewSSBDemodulator(AudioRate, cwToneFreq+m.Bandwidth/2, true),
		deemph:      dsp.NewDeemphasizer(AudioRate, 50),
		agc:         dsp.NewAGC(AudioRate, 3),
	}
}

func (d *cw) Demodulate(I, Q []float32, freqOffset float64) Demodulated {
	d.shifter.InPlace(I, Q, cwToneFreq-freqOffset)
	ci, cq := d.downsampler.Downsample(I, Q)
	out := make([]float32, len(ci))
	d.demod.Demodulate(ci, cq, out)
	d.deemph.InPlace(out)
	d.agc.InPlace(out)
	right := append([]float32(nil), out...)
	return Demodulated{Left: out, Right: right, SignalLevel: d.demod.RelSignalLevel()}
}

func (d *cw) SetMode(m Mode) error {
	if m.Scheme != SchemeCW {
		return ErrSchemeChange
	}
	if err := m.Validate(); err != nil {
		return err
	}
	if m.Bandwidth != d.mode.Bandwidth {
		d.demod.SetBandwidth(cwToneFreq + m.Bandwidth/2)
	}
	d.mode = m
	return nil
}

func (d *cw) Mode() Mode { return d.mode }
