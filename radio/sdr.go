package radio

import (
	"context"
	"errors"
)

var ErrRateOutOfRange = errors.New("sample rate out of range")
var ErrFrequencyOutOfRange = errors.New("frequency out of range")

type SDR interface {
	SetBand(b HzBand) error
	// SetGain sets a fixed tuner gain in tenths of dB.
	SetGain(tenthDb uint32) error
	// SetAutoGain returns gain control to the tuner.
	SetAutoGain() error
	SetFreqCorrection(ppm uint32) error
	Info() SDRHWInfo
	Close() error
	Reader() *MixerIQReader
}

type SDRFormat struct {
	BitDepth   uint   `json:"bit_depth"`
	CenterHz   uint64 `json:"center_hz"`
	SampleRate uint32 `json:"sample_rate"`
}

type SDRHWInfo struct {
	Id    string `json:"id"`
	Tuner string `json:"tuner,omitempty"`

	MinHz         uint64 `json:"min_hz"`
	MaxHz         uint64 `json:"max_hz"`
	MinSampleRate uint32 `json:"min_sample_rate"`
	MaxSampleRate uint32 `json:"max_sample_rate"`

	SDRFormat
}

// HzBand is the band the hardware is currently tuned to.
func (i SDRHWInfo) HzBand() HzBand {
	return HzBand{Center: i.CenterHz, Width: uint64(i.SampleRate)}
}

func NewSDR(ctx context.Context) (SDR, error) { return newRTLSDR(ctx, "0") }

func NewSDRWithSerial(ctx context.Context, ser string) (SDR, error) { return newRTLSDR(ctx, ser) }

func SDRList(ctx context.Context) ([]SDRHWInfo, error) {
	return rtlSDRList(ctx)
}
