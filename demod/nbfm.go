package demod

import "github.com/jtarrio/radiorx/dsp"

const (
	nbfmChannelTaps = 351
	nbfmCutoffRatio = 0.8
)

// nbfm demodulates narrowband FM at audio rate, with a channel filter
// sized to the configured deviation.
type nbfm struct {
	mode        Mode
	shifter     *dsp.FrequencyShifter
	downsampler *dsp.ComplexDownsampler
	filterI     *dsp.FIRFilter
	filterQ     *dsp.FIRFilter
	demod       *dsp.FMDemodulator
}

func newNBFM(inRate int, m Mode) *nbfm {
	coefs := dsp.LowPassKernel(AudioRate, m.MaxDeviation*nbfmCutoffRatio, nbfmChannelTaps)
	antiAlias := dsp.LowPassKernel(float64(inRate), AudioRate/2, 151)
	return &nbfm{
		mode:        m,
		shifter:     dsp.NewFrequencyShifter(float64(inRate)),
		downsampler: dsp.NewComplexDownsampler(float64(inRate), AudioRate, antiAlias),
		filterI:     dsp.NewFIRFilter(coefs),
		filterQ:     dsp.NewFIRFilter(coefs),
		demod:       dsp.NewFMDemodulator(AudioRate, m.MaxDeviation),
	}
}

func (d *nbfm) Demodulate(I, Q []float32, freqOffset float64) Demodulated {
	d.shifter.InPlace(I, Q, -freqOffset)
	ci, cq := d.downsampler.Downsample(I, Q)
	d.filterI.InPlace(ci)
	d.filterQ.InPlace(cq)
	out := make([]float32, len(ci))
	d.demod.Demodulate(ci, cq, out)
	right := append([]float32(nil), out...)
	return Demodulated{Left: out, Right: right, SignalLevel: d.demod.RelSignalLevel()}
}

func (d *nbfm) SetMode(m Mode) error {
	if m.Scheme != SchemeNBFM {
		return ErrSchemeChange
	}
	if err := m.Validate(); err != nil {
		return err
	}
	if m.MaxDeviation != d.mode.MaxDeviation {
		coefs := dsp.LowPassKernel(AudioRate, m.MaxDeviation*nbfmCutoffRatio, nbfmChannelTaps)
		d.filterI.SetCoefficients(coefs)
		d.filterQ.SetCoefficients(coefs)
		d.demod.SetMaxDeviation(AudioRate, m.MaxDeviation)
	}
	d.mode = m
	return nil
}

func (d *nbfm) Mode() Mode { return d.mode }
