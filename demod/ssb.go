package demod

import "github.com/jtarrio/radiorx/dsp"

// ssb demodulates a single sideband, upper or lower per the mode tag.
type ssb struct {
	mode        Mode
	shifter     *dsp.FrequencyShifter
	downsampler *dsp.ComplexDownsampler
	demod       *dsp.SSBDemodulator
	agc         *dsp.AGC
}

// ssbChannelCutoff keeps the downsampler passband to voice bandwidths.
const ssbChannelCutoff = 10000

func newSSB(inRate int, m Mode) *ssb {
	coefs := dsp.LowPassKernel(float64(inRate), ssbChannelCutoff, 151)
	return &ssb{
		mode:        m,
		shifter:     dsp.NewFrequencyShifter(float64(inRate)),
		downsampler: dsp.NewComplexDownsampler(float64(inRate), AudioRate, coefs),
		demod:       dsp.NewSSBDemodulator(AudioRate, m.Bandwidth, m.Scheme == SchemeUSB),
		agc:         dsp.NewAGC(AudioRate, 3),
	}
}

func (d *ssb) Demodulate(I, Q []float32, freqOffset float64) Demodulated {
	d.shifter.InPlace(I, Q, -freqOffset)
	ci, cq := d.downsampler.Downsample(I, Q)
	out := make([]float32, len(ci))
	d.demod.Demodulate(ci, cq, out)
	d.agc.InPlace(out)
	right := append([]float32(nil), out...)
	return Demodulated{Left: out, Right: right, SignalLevel: d.demod.RelSignalLevel()}
}

func (d *ssb) SetMode(m Mode) error {
	if m.Scheme != d.mode.Scheme {
		return ErrSchemeChange
	}
	if err := m.Validate(); err != nil {
		return err
	}
	if m.Bandwidth != d.mode.Bandwidth {
		d.demod.SetBandwidth(m.Bandwidth)
	}
	d.mode = m
	return nil
}

func (d *ssb) Mode() Mode { return d.mode }
