package audio

import "testing"

func TestFramePoolReusesFrames(t *testing.T) {
	p := NewFramePool(16)
	f := p.Get()
	if len(f) != 16 {
		t.Fatalf("frame length %d, want 16", len(f))
	}
	f[0] = 42
	p.Put(f)
	g := p.Get()
	if &g[0] != &f[0] {
		t.Error("returned frame was not reused")
	}
	if h := p.Get(); &h[0] == &f[0] {
		t.Error("empty pool handed out the same frame twice")
	}
}

func TestFramePoolDropsUndersized(t *testing.T) {
	p := NewFramePool(16)
	p.Put(make([]float32, 8))
	if f := p.Get(); len(f) != 16 {
		t.Fatalf("frame length %d, want 16", len(f))
	}
}

func TestFramePoolTruncatesOversized(t *testing.T) {
	p := NewFramePool(16)
	p.Put(make([]float32, 32))
	if f := p.Get(); len(f) != 16 {
		t.Fatalf("frame length %d, want 16", len(f))
	}
}
