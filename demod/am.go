package demod

import "github.com/jtarrio/radiorx/dsp"

const amChannelTaps = 151

// am demodulates amplitude modulation. Signal level is the share of
// near-band power that falls inside the channel filter.
type am struct {
	mode        Mode
	shifter     *dsp.FrequencyShifter
	downsampler *dsp.ComplexDownsampler
	filterI     *dsp.FIRFilter
	filterQ     *dsp.FIRFilter
	demod       *dsp.AMDemodulator
	agc         *dsp.AGC
	level       float32
}

func newAM(inRate int, m Mode) *am {
	coefs := dsp.LowPassKernel(AudioRate, m.Bandwidth/2, amChannelTaps)
	antiAlias := dsp.LowPassKernel(float64(inRate), AudioRate/2, 151)
	return &am{
		mode:        m,
		shifter:     dsp.NewFrequencyShifter(float64(inRate)),
		downsampler: dsp.NewComplexDownsampler(float64(inRate), AudioRate, antiAlias),
		filterI:     dsp.NewFIRFilter(coefs),
		filterQ:     dsp.NewFIRFilter(coefs),
		demod:       dsp.NewAMDemodulator(AudioRate),
		agc:         dsp.NewAGC(AudioRate, 3),
	}
}

func (d *am) Demodulate(I, Q []float32, freqOffset float64) Demodulated {
	d.shifter.InPlace(I, Q, -freqOffset)
	ci, cq := d.downsampler.Downsample(I, Q)
	pre := dsp.Power(ci, cq)
	d.filterI.InPlace(ci)
	d.filterQ.InPlace(cq)
	post := dsp.Power(ci, cq)
	if len(ci) > 0 {
		d.level = dsp.PowerRatioLevel(post, pre)
	}
	out := make([]float32, len(ci))
	d.demod.Demodulate(ci, cq, out)
	d.agc.InPlace(out)
	right := append([]float32(nil), out...)
	return Demodulated{Left: out, Right: right, SignalLevel: d.level}
}

func (d *am) SetMode(m Mode) error {
	if m.Scheme != SchemeAM {
		return ErrSchemeChange
	}
	if err := m.Validate(); err != nil {
		return err
	}
	if m.Bandwidth != d.mode.Bandwidth {
		coefs := dsp.LowPassKernel(AudioRate, m.Bandwidth/2, amChannelTaps)
		d.filterI.SetCoefficients(coefs)
		d.filterQ.SetCoefficients(coefs)
	}
	d.mode = m
	return nil
}

func (d *am) Mode() Mode { return d.mode }
