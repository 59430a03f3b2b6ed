package radio

import (
	"math"

	"github.com/charmbracelet/log"
)

const ppmSampleRate = 2048000
const ppmBuckets = 8192
const ppmBucketMHz = ppmSampleRate / ppmBuckets / 1.0e6
const ppmCenterMHz = 162.0
const ppmFFTs = 100

// FindPPM estimates the dongle's frequency error by measuring how far the
// strongest NOAA weather carrier lands from its assigned channel.
func FindPPM(sdr SDR) (float64, error) {
	b := HzBand{Center: ppmCenterMHz * 1e6, Width: ppmSampleRate}
	if err := sdr.SetBand(b); err != nil {
		return 0, err
	}
	ppmFB := FreqBand{Center: ppmCenterMHz, Width: float64(ppmSampleRate) / 1e6}
	sp := NewSpectralPower(ppmFB, ppmBuckets, ppmFFTs)
	if err := sp.Measure(sdr.Reader().Batch64(ppmBuckets, ppmFFTs)); err != nil {
		return 0, err
	}
	topAvg, topFreq := 0.0, 0.0
	for i, v := range sp.Average()[ppmBuckets/2+2:] {
		if v > topAvg {
			topAvg = v
			topFreq = ppmCenterMHz + float64(i+2)*ppmBucketMHz
		}
	}
	targetFreq, df := 0.0, 999999.0
	noaa := []float64{162.4, 162.425, 162.450, 162.475,
		162.500, 162.525, 162.550}
	for _, f := range noaa {
		if diff := math.Abs(topFreq - f); diff < df {
			targetFreq, df = f, diff
		}
	}
	return 1e6 * df / targetFreq, nil
}

// Calibrate measures the frequency error and applies a correction until the
// residual falls under a couple ppm.
func Calibrate(s SDR) error {
	for {
		ppm, err := FindPPM(s)
		if err != nil {
			return err
		}
		log.Info("measured frequency error", "ppm", ppm)
		if ppm < 1.0 {
			break
		}
		if err := s.SetFreqCorrection(uint32(ppm)); err != nil {
			return err
		}
		ppm, err = FindPPM(s)
		if err != nil {
			return err
		}
		log.Info("corrected frequency error", "ppm", ppm)
		if ppm < 2.0 {
			break
		} else if err := s.SetFreqCorrection(0); err != nil {
			return err
		}
	}
	return nil
}
