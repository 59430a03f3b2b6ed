// Package demod turns baseband I/Q sample blocks into stereo audio.
package demod

import (
	"errors"
	"fmt"
)

// AudioRate is the sample rate of all demodulated audio.
const AudioRate = 48000

type Scheme string

const (
	SchemeWBFM Scheme = "WBFM"
	SchemeNBFM Scheme = "NBFM"
	SchemeAM   Scheme = "AM"
	SchemeUSB  Scheme = "USB"
	SchemeLSB  Scheme = "LSB"
	SchemeCW   Scheme = "CW"
)

var (
	ErrUnknownScheme = errors.New("unknown demodulation scheme")
	ErrBadMode       = errors.New("bad mode parameter")
	ErrSchemeChange  = errors.New("scheme change needs a new demodulator")
)

// Mode selects a demodulation scheme and its tuning parameters. Only the
// fields of the active scheme are meaningful.
type Mode struct {
	Scheme Scheme
	// Stereo enables pilot tone decoding. WBFM only.
	Stereo bool
	// MaxDeviation is the peak deviation in Hz. NBFM only.
	MaxDeviation float64
	// Bandwidth is the channel width in Hz. AM, USB, LSB, and CW.
	Bandwidth float64
	// Deemphasis is the de-emphasis time constant in microseconds, for
	// regions that broadcast with 75 us pre-emphasis. Zero selects 50.
	// WBFM only.
	Deemphasis float64
}

func WBFM(stereo bool) Mode          { return Mode{Scheme: SchemeWBFM, Stereo: stereo} }
func NBFM(maxDeviation float64) Mode { return Mode{Scheme: SchemeNBFM, MaxDeviation: maxDeviation} }
func AM(bandwidth float64) Mode      { return Mode{Scheme: SchemeAM, Bandwidth: bandwidth} }
func USB(bandwidth float64) Mode     { return Mode{Scheme: SchemeUSB, Bandwidth: bandwidth} }
func LSB(bandwidth float64) Mode     { return Mode{Scheme: SchemeLSB, Bandwidth: bandwidth} }
func CW(bandwidth float64) Mode      { return Mode{Scheme: SchemeCW, Bandwidth: bandwidth} }

// DefaultMode returns a scheme's customary parameters.
func DefaultMode(s Scheme) (Mode, error) {
	switch s {
	case SchemeWBFM:
		return WBFM(true), nil
	case SchemeNBFM:
		return NBFM(2500), nil
	case SchemeAM:
		return AM(10000), nil
	case SchemeUSB:
		return USB(2800), nil
	case SchemeLSB:
		return LSB(2800), nil
	case SchemeCW:
		return CW(50), nil
	}
	return Mode{}, fmt.Errorf("%w: %q", ErrUnknownScheme, string(s))
}

func (m Mode) Validate() error {
	switch m.Scheme {
	case SchemeWBFM:
		if m.Deemphasis < 0 {
			return fmt.Errorf("%w: de-emphasis %v us", ErrBadMode, m.Deemphasis)
		}
		return nil
	case SchemeNBFM:
		if m.MaxDeviation <= 0 {
			return fmt.Errorf("%w: max deviation %v Hz", ErrBadMode, m.MaxDeviation)
		}
		return nil
	case SchemeAM, SchemeUSB, SchemeLSB, SchemeCW:
		if m.Bandwidth <= 0 {
			return fmt.Errorf("%w: bandwidth %v Hz", ErrBadMode, m.Bandwidth)
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownScheme, string(m.Scheme))
}

// Demodulated is one block of audio recovered from one block of samples.
// Left and Right always have equal length.
type Demodulated struct {
	Left           []float32
	Right          []float32
	StereoDetected bool
	// SignalLevel estimates signal quality in [0, 1].
	SignalLevel float32
}

// A Demodulator converts I/Q blocks at its input rate into audio at
// AudioRate. Implementations keep filter state between calls, so blocks
// come out seamless regardless of how the stream is split. Demodulate may
// modify the input slices.
type Demodulator interface {
	Demodulate(I, Q []float32, freqOffset float64) Demodulated
	// SetMode adjusts parameters within the current scheme, rebuilding
	// only the affected filters. Changing Scheme returns ErrSchemeChange.
	SetMode(m Mode) error
	Mode() Mode
}

// New builds a demodulator for samples arriving at inRate.
func New(inRate int, m Mode) (Demodulator, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	switch m.Scheme {
	case SchemeWBFM:
		return newWBFM(inRate, m), nil
	case SchemeNBFM:
		return newNBFM(inRate, m), nil
	case SchemeAM:
		return newAM(inRate, m), nil
	case SchemeUSB, SchemeLSB:
		return newSSB(inRate, m), nil
	case SchemeCW:
		return newCW(inRate, m), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, string(m.Scheme))
}
