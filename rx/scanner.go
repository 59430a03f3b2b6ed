package rx

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"

	"github.com/jtarrio/radiorx/demod"
	"github.com/jtarrio/radiorx/dsp"
	"github.com/jtarrio/radiorx/radio"
)

var ErrNoStation = errors.New("no station found")

// Channels near the band edge sit in the anti-alias rolloff; only offsets
// within this fraction of half the bandwidth are demodulated in place.
const seekUsableBand = 0.8

const (
	seekSettleBlocks  = 1
	seekMeasureBlocks = 2
	seekBlockSeconds  = 0.05
)

// SeekConfig tells a Scanner where and what to hunt for.
type SeekConfig struct {
	StartHz uint64
	StepHz  uint64
	MinHz   uint64
	MaxHz   uint64
	// Down steps toward MinHz instead of MaxHz.
	Down bool
	Mode demod.Mode
	// Squelch is the signal level a channel must reach.
	Squelch float32
}

// Scanner hunts for active stations by demodulating candidate channels and
// comparing their signal level against a squelch threshold. Candidates
// inside the currently captured band are checked by frequency offset alone;
// the tuner retunes only when the hunt walks out of the band.
type Scanner struct {
	sdr    radio.SDR
	rate   int
	logger *log.Logger
}

func NewScanner(sdr radio.SDR, sampleRate int, logger *log.Logger) *Scanner {
	if logger == nil {
		logger = log.Default()
	}
	return &Scanner{sdr: sdr, rate: sampleRate, logger: logger}
}

// Seek returns the first channel at or past StartHz whose signal level
// reaches the squelch, wrapping at the range edges. It fails with
// ErrNoStation once every channel in [MinHz, MaxHz] has been tried.
func (s *Scanner) Seek(ctx context.Context, cfg SeekConfig) (uint64, float32, error) {
	if err := cfg.Mode.Validate(); err != nil {
		return 0, 0, err
	}
	steps := int((cfg.MaxHz-cfg.MinHz)/cfg.StepHz) + 1
	freq := cfg.StartHz
	for i := 0; i < steps; i++ {
		freq = s.step(freq, cfg)
		level, err := s.measure(ctx, freq, cfg.Mode)
		if err != nil {
			return 0, 0, err
		}
		s.logger.Debug("seek probe", "hz", freq, "level", level)
		if level >= cfg.Squelch {
			return freq, level, nil
		}
	}
	return 0, 0, ErrNoStation
}

func (s *Scanner) step(freq uint64, cfg SeekConfig) uint64 {
	if cfg.Down {
		if freq < cfg.MinHz+cfg.StepHz {
			return cfg.MaxHz
		}
		return freq - cfg.StepHz
	}
	if freq+cfg.StepHz > cfg.MaxHz {
		return cfg.MinHz
	}
	return freq + cfg.StepHz
}

func (s *Scanner) measure(ctx context.Context, freq uint64, m demod.Mode) (float32, error) {
	band := s.sdr.Info().HzBand()
	margin := uint64(float64(band.Width) / 2 * seekUsableBand)
	if band.Width == 0 || freq < band.Center-margin || freq > band.Center+margin {
		band = radio.HzBand{Center: freq, Width: uint64(s.rate)}
		if err := s.sdr.SetBand(band); err != nil {
			return 0, err
		}
	}
	offset := float64(freq) - float64(band.Center)

	dem, err := demod.New(s.rate, m)
	if err != nil {
		return 0, err
	}
	blockSamples := int(float64(s.rate) * seekBlockSeconds)
	stream := s.sdr.Reader().BatchStream64(ctx, blockSamples, seekSettleBlocks+seekMeasureBlocks)
	I := make([]float32, blockSamples)
	Q := make([]float32, blockSamples)
	level, measured, n := float32(0), 0, 0
	for samps := range stream {
		dsp.SplitIQ(samps, I[:len(samps)], Q[:len(samps)])
		out := dem.Demodulate(I[:len(samps)], Q[:len(samps)], offset)
		if n++; n > seekSettleBlocks {
			level += out.SignalLevel
			measured++
		}
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if measured == 0 {
		return 0, nil
	}
	return level / float32(measured), nil
}
