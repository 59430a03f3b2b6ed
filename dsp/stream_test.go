package dsp

import (
	"context"
	"math"
	"testing"
)

func sourceBlocks(blocks ...[]complex64) chan []complex64 {
	src := make(chan []complex64, len(blocks))
	for _, b := range blocks {
		src <- b
	}
	close(src)
	return src
}

func complexToneBlock(n int, freq, sampleRate float64) []complex64 {
	I, Q := complexTone(n, freq, sampleRate)
	return JoinIQ(I, Q)
}

func TestShiftStreamMovesToneToDC(t *testing.T) {
	const rate = 48000
	src := sourceBlocks(complexToneBlock(2048, 2000, rate))
	var sumI, sumQ, n float64
	for blk := range ShiftStream(context.Background(), -2000, rate, src) {
		for _, v := range blk {
			sumI += float64(real(v))
			sumQ += float64(imag(v))
			n++
		}
	}
	if n != 2048 {
		t.Fatalf("got %v samples, want 2048", n)
	}
	mag := math.Hypot(sumI/n, sumQ/n)
	if mag < 0.95 {
		t.Errorf("shifted tone is not coherent at DC: mean vector %v", mag)
	}
}

func TestLowpassStreamDecimates(t *testing.T) {
	const rate = 48000
	dc := make([]complex64, 1000)
	for i := range dc {
		dc[i] = 1
	}
	blocks := [][]complex64{dc, dc, dc, dc}
	src := sourceBlocks(blocks...)
	var got [][]complex64
	for blk := range LowpassStream(context.Background(), 6000, rate, 4, src) {
		got = append(got, blk)
	}
	if len(got) != 4 {
		t.Fatalf("got %d blocks, want 4", len(got))
	}
	for i, blk := range got {
		if len(blk) != 250 {
			t.Errorf("block %d has %d samples, want 250", i, len(blk))
		}
	}
	last := got[3]
	for i, v := range last {
		if math.Abs(float64(real(v))-1) > 0.02 || math.Abs(float64(imag(v))) > 0.02 {
			t.Fatalf("settled DC sample %d is %v, want 1+0i", i, v)
		}
	}
}

func TestLowpassStreamRejectsBadDecimation(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("decimation 0 did not panic")
		}
	}()
	LowpassStream(context.Background(), 6000, 48000, 0, nil)
}

func TestFMDemodStreamConstantTone(t *testing.T) {
	const rate = 48000
	src := sourceBlocks(
		complexToneBlock(512, 12000, rate),
	)
	var out []float32
	for blk := range FMDemodStream(context.Background(), rate, 24000, src) {
		out = append(out, blk...)
	}
	if len(out) != 512 {
		t.Fatalf("got %d samples, want 512", len(out))
	}
	for i, v := range out[1:] {
		if math.Abs(float64(v)-0.5) > 0.01 {
			t.Fatalf("sample %d is %v, want 0.5", i+1, v)
		}
	}
}

func TestResampleStreamHalvesLength(t *testing.T) {
	blocks := [][]float32{
		make([]float32, 512),
		make([]float32, 512),
		make([]float32, 100),
	}
	src := make(chan []float32, len(blocks))
	for _, b := range blocks {
		src <- b
	}
	close(src)
	want := []int{256, 256, 50}
	i := 0
	for blk := range ResampleStream(context.Background(), 48000, 24000, src) {
		if len(blk) != want[i] {
			t.Errorf("block %d has %d samples, want %d", i, len(blk), want[i])
		}
		i++
	}
	if i != len(want) {
		t.Fatalf("got %d blocks, want %d", i, len(want))
	}
}

func TestStreamChainClosesThrough(t *testing.T) {
	const rate = 48000
	ctx := context.Background()
	src := sourceBlocks(complexToneBlock(4096, 2000, rate))
	shifted := ShiftStream(ctx, -2000, rate, src)
	filtered := LowpassStream(ctx, 5000, rate, 2, shifted)
	audio := FMDemodStream(ctx, rate/2, 12000, filtered)
	resampled := ResampleStream(ctx, rate/2, rate/4, audio)
	total := 0
	for blk := range resampled {
		total += len(blk)
	}
	if total != 1024 {
		t.Fatalf("chain produced %d samples, want 1024", total)
	}
}
