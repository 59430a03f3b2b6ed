package rx

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/jtarrio/radiorx/demod"
	"github.com/jtarrio/radiorx/radio"
)

// stationReader feeds u8 I/Q with background noise everywhere and one
// FM station that appears at baseband whenever the tuned band covers it.
type stationReader struct {
	rate      float64
	center    float64
	stationHz float64
	toneHz    float64
	deviation float64
	amplitude float64
	noise     float32
	rnd       *rand.Rand
	n         int
	phase     float64
}

func (g *stationReader) Read(p []byte) (int, error) {
	pairs := len(p) / 2
	for i := 0; i < pairs; i++ {
		at := float64(g.n) / g.rate
		var vi, vq float32
		if delta := g.stationHz - g.center; math.Abs(delta) < g.rate*0.45 {
			g.phase += 2 * math.Pi * g.deviation * math.Sin(2*math.Pi*g.toneHz*at) / g.rate
			total := g.phase + 2*math.Pi*delta*at
			vi = float32(g.amplitude * math.Cos(total))
			vq = float32(g.amplitude * math.Sin(total))
		}
		vi += g.noise * (g.rnd.Float32() - 0.5)
		vq += g.noise * (g.rnd.Float32() - 0.5)
		p[2*i] = testU8(float64(vi))
		p[2*i+1] = testU8(float64(vq))
		g.n++
	}
	return pairs * 2, nil
}

type fakeSDR struct {
	info    radio.SDRHWInfo
	gen     *stationReader
	retunes int
}

func (f *fakeSDR) SetBand(b radio.HzBand) error {
	f.info.CenterHz = b.Center
	f.info.SampleRate = uint32(b.Width)
	f.gen.center = float64(b.Center)
	f.retunes++
	return nil
}

func (f *fakeSDR) SetGain(uint32) error { return nil }

func (f *fakeSDR) SetAutoGain() error { return nil }

func (f *fakeSDR) SetFreqCorrection(uint32) error { return nil }

func (f *fakeSDR) Info() radio.SDRHWInfo { return f.info }

func (f *fakeSDR) Close() error { return nil }

func (f *fakeSDR) Reader() *radio.MixerIQReader {
	return radio.NewMixerIQReader(f.gen, f.info.HzBand())
}

func newStationSDR(rate, stationHz float64) *fakeSDR {
	return &fakeSDR{gen: &stationReader{
		rate:      rate,
		stationHz: stationHz,
		toneHz:    400,
		deviation: 2000,
		amplitude: 0.9,
		noise:     0.15,
		rnd:       rand.New(rand.NewSource(3)),
	}}
}

func TestSeekFindsStation(t *testing.T) {
	sdr := newStationSDR(48000, 88.4e6)
	sc := NewScanner(sdr, 48000, nil)
	freq, level, err := sc.Seek(context.Background(), SeekConfig{
		StartHz: 89e6,
		StepHz:  100e3,
		MinHz:   88e6,
		MaxHz:   89e6,
		Mode:    demod.NBFM(2500),
		Squelch: 0.5,
	})
	if err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if freq != 88400000 {
		t.Errorf("found %d Hz, want 88400000", freq)
	}
	if level < 0.5 {
		t.Errorf("level %v below squelch", level)
	}
	// Starting above the range wraps to MinHz, then walks up.
	if sdr.retunes != 5 {
		t.Errorf("tuner retuned %d times, want 5", sdr.retunes)
	}
}

func TestSeekUsesOffsetsInsideBand(t *testing.T) {
	sdr := newStationSDR(480000, 88.1e6)
	sc := NewScanner(sdr, 480000, nil)
	freq, _, err := sc.Seek(context.Background(), SeekConfig{
		StartHz: 88.2e6,
		StepHz:  50e3,
		MinHz:   88e6,
		MaxHz:   88.2e6,
		Mode:    demod.NBFM(2500),
		Squelch: 0.5,
	})
	if err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if freq != 88100000 {
		t.Errorf("found %d Hz, want 88100000", freq)
	}
	// All probes after the first fit inside the captured band.
	if sdr.retunes != 1 {
		t.Errorf("tuner retuned %d times, want 1", sdr.retunes)
	}
}

func TestSeekNoStation(t *testing.T) {
	sdr := newStationSDR(48000, 0)
	sc := NewScanner(sdr, 48000, nil)
	_, _, err := sc.Seek(context.Background(), SeekConfig{
		StartHz: 89e6,
		StepHz:  100e3,
		MinHz:   88e6,
		MaxHz:   89e6,
		Mode:    demod.NBFM(2500),
		Squelch: 0.5,
	})
	if !errors.Is(err, ErrNoStation) {
		t.Fatalf("got %v, want ErrNoStation", err)
	}
	if sdr.retunes != 11 {
		t.Errorf("tuner retuned %d times, want 11", sdr.retunes)
	}
}

func TestSeekValidatesMode(t *testing.T) {
	sc := NewScanner(newStationSDR(48000, 0), 48000, nil)
	_, _, err := sc.Seek(context.Background(), SeekConfig{
		StartHz: 89e6,
		StepHz:  100e3,
		MinHz:   88e6,
		MaxHz:   89e6,
		Mode:    demod.NBFM(0),
		Squelch: 0.5,
	})
	if !errors.Is(err, demod.ErrBadMode) {
		t.Fatalf("got %v, want ErrBadMode", err)
	}
}
