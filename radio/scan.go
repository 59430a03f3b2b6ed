package radio

import (
	"errors"

	"github.com/charmbracelet/log"
)

type ScanConfig struct {
	CenterMHz   float64
	MinWidthMHz float64
}

var ErrBadSampleRate = errors.New("bad sample rate")

var scanSampleRate = 2048000
var scanWindowSamples = 32768

// Scan tunes sdr to a wide band around CenterMHz and lists active sub-bands.
func Scan(sdr SDR, cfg ScanConfig) ([]FreqBand, error) {
	hzb := HzBand{Center: uint64(cfg.CenterMHz * 1e6), Width: uint64(scanSampleRate)}
	if err := sdr.SetBand(hzb); err != nil {
		return nil, err
	}
	return ScanIQReader(sdr.Reader(), cfg.MinWidthMHz*1e6)
}

// ScanIQReader finds bands standing above the noise floor in iqr's stream,
// dropping dongle spurs.
func ScanIQReader(iqr *MixerIQReader, minWidthHz float64) (ret []FreqBand, err error) {
	if iqr.Width != uint64(scanSampleRate) {
		return nil, ErrBadSampleRate
	}
	sp := NewSpectralPower(iqr.ToMHz(), scanWindowSamples, 50)
	if err = sp.Measure(iqr.Batch64(scanWindowSamples, 50)); err != nil {
		return nil, err
	}
	spurs := sp.Spurs()
	for _, fb := range sp.Bands() {
		if fb.Width <= minWidthHz/1e6 {
			continue
		}
		hasSpur := false
		for _, spur := range spurs {
			if spur.Overlaps(fb) {
				hasSpur = true
				log.Debug("skipping spur", "centerMHz", spur.Center, "spurs", len(spurs))
				break
			}
		}
		if !hasSpur {
			ret = append(ret, fb)
		}
	}
	return ret, nil
}
