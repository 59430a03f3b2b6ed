package rx

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/jtarrio/radiorx/demod"
)

type captureReceiver struct {
	I, Q   []float32
	firsts []float32
	offset float64
	calls  int
}

func (c *captureReceiver) ReceiveSamples(I, Q []float32, off float64) {
	c.I = append(c.I, I...)
	c.Q = append(c.Q, Q...)
	if len(I) > 0 {
		c.firsts = append(c.firsts, I[0])
	}
	c.offset = off
	c.calls++
}

type captureSink struct {
	left, right []float32
	pushes      int
}

func (s *captureSink) Push(left, right []float32) {
	s.left = append(s.left, left...)
	s.right = append(s.right, right...)
	s.pushes++
}

func testU8(v float64) byte {
	x := math.Round((v + 0.995) * 128)
	if x < 0 {
		x = 0
	} else if x > 255 {
		x = 255
	}
	return byte(x)
}

// amBlock synthesizes pairs samples of a 1 kHz AM carrier as raw u8 bytes.
func amBlock(pairs int) []byte {
	raw := make([]byte, 2*pairs)
	for i := 0; i < pairs; i++ {
		at := float64(i) / 1024000
		v := 0.5 * (1 + 0.15*math.Cos(2*math.Pi*1000*at))
		raw[2*i] = testU8(v)
		raw[2*i+1] = testU8(0)
	}
	return raw
}

func silentBlock(pairs int) []byte {
	raw := make([]byte, 2*pairs)
	for i := range raw {
		raw[i] = testU8(0)
	}
	return raw
}

func TestPipelineProcess(t *testing.T) {
	p, err := NewPipeline(1024000, Settings{Mode: demod.AM(10000), FreqOffset: 1000, Volume: 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	rec := &captureReceiver{}
	snk := &captureSink{}
	p.AddReceiver(rec)
	p.SetSink(snk)

	block := amBlock(5120)
	if err := p.Process(block); err != nil {
		t.Fatal(err)
	}
	if rec.calls != 1 {
		t.Fatalf("receiver called %d times, want 1", rec.calls)
	}
	if rec.offset != 1000 {
		t.Errorf("receiver offset %v, want 1000", rec.offset)
	}
	if len(rec.I) != 5120 || len(rec.Q) != 5120 {
		t.Fatalf("receiver saw %d/%d samples, want 5120", len(rec.I), len(rec.Q))
	}
	// The chain must see the raw conversion, not the shifted samples the
	// demodulator works on.
	for i := 0; i < 16; i++ {
		want := float32(block[2*i])/128 - 0.995
		if rec.I[i] != want {
			t.Fatalf("receiver sample %d is %v, want %v", i, rec.I[i], want)
		}
	}
	if snk.pushes != 1 {
		t.Fatalf("sink pushed %d times, want 1", snk.pushes)
	}
	if len(snk.left) != 240 || len(snk.right) != 240 {
		t.Fatalf("sink got %d/%d samples, want 240", len(snk.left), len(snk.right))
	}
}

func TestPipelineSquelch(t *testing.T) {
	p, err := NewPipeline(1024000, Settings{Mode: demod.AM(10000), Squelch: 1.1, Volume: 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	snk := &captureSink{}
	p.SetSink(snk)
	var statuses []Status
	p.Notify(func(st Status) { statuses = append(statuses, st) })

	if err := p.Process(amBlock(5120)); err != nil {
		t.Fatal(err)
	}
	for i, v := range snk.left {
		if v != 0 {
			t.Fatalf("squelched audio sample %d is %v, want 0", i, v)
		}
	}
	if len(statuses) != 1 || !statuses[0].Squelched {
		t.Fatalf("after first block: statuses %+v, want one squelched", statuses)
	}

	// No transition, no callback.
	if err := p.Process(amBlock(5120)); err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 1 {
		t.Fatalf("steady state produced %d callbacks, want 1", len(statuses))
	}

	s := p.Settings()
	s.Squelch = 0
	if err := p.Update(s); err != nil {
		t.Fatal(err)
	}
	if err := p.Process(amBlock(5120)); err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 2 || statuses[1].Squelched {
		t.Fatalf("after unsquelch: statuses %+v, want second unsquelched", statuses)
	}
}

func TestPipelineVolume(t *testing.T) {
	block := amBlock(10240)
	outs := make([]*captureSink, 2)
	for i, vol := range []float32{1, 0.5} {
		p, err := NewPipeline(1024000, Settings{Mode: demod.AM(10000), Volume: vol}, nil)
		if err != nil {
			t.Fatal(err)
		}
		outs[i] = &captureSink{}
		p.SetSink(outs[i])
		if err := p.Process(append([]byte(nil), block...)); err != nil {
			t.Fatal(err)
		}
	}
	if len(outs[0].left) == 0 {
		t.Fatal("no audio")
	}
	for i := range outs[0].left {
		if want := 0.5 * outs[0].left[i]; outs[1].left[i] != want {
			t.Fatalf("volume 0.5 sample %d is %v, want %v", i, outs[1].left[i], want)
		}
	}
}

func TestPipelineDropsOldest(t *testing.T) {
	p, err := NewPipeline(1024000, Settings{Mode: demod.AM(10000), Volume: 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	rec := &captureReceiver{}
	snk := &captureSink{}
	p.AddReceiver(rec)
	p.SetSink(snk)

	for i := 0; i < 20; i++ {
		block := silentBlock(1024)
		block[0] = byte(100 + i)
		p.Submit(block)
	}
	if got := p.Dropped(); got != 12 {
		t.Fatalf("dropped %d blocks, want 12", got)
	}
	p.Close()
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if snk.pushes != 8 {
		t.Fatalf("sink pushed %d times, want 8", snk.pushes)
	}
	// The oldest blocks go first, so the newest eight survive.
	if len(rec.firsts) != 8 {
		t.Fatalf("receiver saw %d blocks, want 8", len(rec.firsts))
	}
	for k, got := range rec.firsts {
		want := float32(100+12+k)/128 - 0.995
		if got != want {
			t.Fatalf("surviving block %d starts with %v, want %v", k, got, want)
		}
	}
}

func TestPipelineRunCanceled(t *testing.T) {
	p, err := NewPipeline(1024000, Settings{Mode: demod.AM(10000), Volume: 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- p.Run(ctx) }()
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}
}

func TestPipelineUpdate(t *testing.T) {
	p, err := NewPipeline(1024000, Settings{Mode: demod.AM(10000), Volume: 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	var statuses []Status
	p.Notify(func(st Status) { statuses = append(statuses, st) })

	s := p.Settings()
	s.Mode = demod.NBFM(0)
	if err := p.Update(s); !errors.Is(err, demod.ErrBadMode) {
		t.Fatalf("Update with bad mode: got %v, want ErrBadMode", err)
	}
	if got := p.Settings().Mode.Scheme; got != demod.SchemeAM {
		t.Fatalf("failed update changed scheme to %v", got)
	}

	s.Mode = demod.NBFM(2500)
	if err := p.Update(s); err != nil {
		t.Fatal(err)
	}
	if err := p.Process(silentBlock(2048)); err != nil {
		t.Fatal(err)
	}
	if got := p.Settings().Mode.Scheme; got != demod.SchemeNBFM {
		t.Fatalf("scheme is %v, want NBFM", got)
	}
	if len(statuses) == 0 || statuses[len(statuses)-1].Mode.Scheme != demod.SchemeNBFM {
		t.Fatalf("no mode change reported: %+v", statuses)
	}
}

func TestMultiSink(t *testing.T) {
	a, b := &captureSink{}, &captureSink{}
	MultiSink{a, b}.Push([]float32{1, 2}, []float32{3, 4})
	if a.pushes != 1 || b.pushes != 1 {
		t.Fatalf("pushes %d/%d, want 1/1", a.pushes, b.pushes)
	}
	if len(a.left) != 2 || b.right[1] != 4 {
		t.Fatal("sinks did not receive the frame")
	}
}
