package demod

import "github.com/jtarrio/radiorx/dsp"

const (
	wbfmInterRate   = 336000
	wbfmMaxDev      = 75000
	wbfmPilotFreq   = 19000
	wbfmAudioCutoff = 10000
	wbfmDeemphTc    = 50
)

func deemphTc(m Mode) float64 {
	if m.Deemphasis > 0 {
		return m.Deemphasis
	}
	return wbfmDeemphTc
}

// wbfm demodulates broadcast FM. The signal is brought down to an
// intermediate rate wide enough for the 19 kHz pilot and 38 kHz stereo
// subcarrier, demodulated there, and only then resampled to audio rate.
type wbfm struct {
	mode        Mode
	shifter     *dsp.FrequencyShifter
	downsampler *dsp.ComplexDownsampler
	demod       *dsp.FMDemodulator
	monoDown    *dsp.Downsampler
	stereoDown  *dsp.Downsampler
	separator   *dsp.StereoSeparator
	leftDeemph  *dsp.Deemphasizer
	rightDeemph *dsp.Deemphasizer
}

func newWBFM(inRate int, m Mode) *wbfm {
	interRate := float64(inRate)
	if interRate > wbfmInterRate {
		interRate = wbfmInterRate
	}
	channelCoefs := dsp.LowPassKernel(float64(inRate), wbfmMaxDev*0.8, 51)
	audioCoefs := dsp.LowPassKernel(interRate, wbfmAudioCutoff, 41)
	return &wbfm{
		mode:        m,
		shifter:     dsp.NewFrequencyShifter(float64(inRate)),
		downsampler: dsp.NewComplexDownsampler(float64(inRate), interRate, channelCoefs),
		demod:       dsp.NewFMDemodulator(interRate, wbfmMaxDev),
		monoDown:    dsp.NewDownsampler(interRate, AudioRate, audioCoefs),
		stereoDown:  dsp.NewDownsampler(interRate, AudioRate, audioCoefs),
		separator:   dsp.NewStereoSeparator(interRate, wbfmPilotFreq),
		leftDeemph:  dsp.NewDeemphasizer(AudioRate, deemphTc(m)),
		rightDeemph: dsp.NewDeemphasizer(AudioRate, deemphTc(m)),
	}
}

func (d *wbfm) Demodulate(I, Q []float32, freqOffset float64) Demodulated {
	d.shifter.InPlace(I, Q, -freqOffset)
	ci, cq := d.downsampler.Downsample(I, Q)
	demodulated := make([]float32, len(ci))
	d.demod.Demodulate(ci, cq, demodulated)
	left := d.monoDown.Downsample(demodulated)
	right := append([]float32(nil), left...)
	out := Demodulated{Left: left, Right: right, SignalLevel: d.demod.RelSignalLevel()}
	if d.mode.Stereo {
		stereo := d.separator.Separate(demodulated)
		if stereo.Found {
			out.StereoDetected = true
			diff := d.stereoDown.Downsample(stereo.Diff)
			for i := range diff {
				left[i] += diff[i]
				right[i] -= diff[i]
			}
		}
	}
	d.leftDeemph.InPlace(left)
	d.rightDeemph.InPlace(right)
	return out
}

func (d *wbfm) SetMode(m Mode) error {
	if m.Scheme != SchemeWBFM {
		return ErrSchemeChange
	}
	if err := m.Validate(); err != nil {
		return err
	}
	if deemphTc(m) != deemphTc(d.mode) {
		d.leftDeemph.SetTimeConstant(AudioRate, deemphTc(m))
		d.rightDeemph.SetTimeConstant(AudioRate, deemphTc(m))
	}
	d.mode = m
	return nil
}

func (d *wbfm) Mode() Mode { return d.mode }
