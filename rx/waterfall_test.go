package rx

import (
	"image/jpeg"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteWaterfallFile(t *testing.T) {
	const bins = 64
	const rows = 4
	dir := t.TempDir()
	infn := filepath.Join(dir, "capture.iq8")
	outfn := filepath.Join(dir, "capture.jpg")

	// A tone exactly on bin 8, so one column carries all the power.
	raw := make([]byte, 0, rows*bins*2)
	for i := 0; i < rows*bins; i++ {
		ph := 2 * math.Pi * float64(bins/8) * float64(i) / float64(bins)
		raw = append(raw, testU8(0.9*math.Cos(ph)), testU8(0.9*math.Sin(ph)))
	}
	if err := os.WriteFile(infn, raw, 0644); err != nil {
		t.Fatal(err)
	}

	if err := WriteWaterfallFile(infn, outfn, bins); err != nil {
		t.Fatalf("WriteWaterfallFile: %v", err)
	}
	f, err := os.Open(outfn)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := jpeg.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != bins || b.Dy() != rows {
		t.Fatalf("image is %dx%d, want %dx%d", b.Dx(), b.Dy(), bins, rows)
	}
	// Lowest frequency renders leftmost, so bin 8 sits right of center.
	for y := 0; y < rows; y++ {
		_, hot, _, _ := img.At(bins/2+bins/8, y).RGBA()
		_, cold, _, _ := img.At(bins/8, y).RGBA()
		if hot>>8 < 200 {
			t.Errorf("row %d: tone column green %d, want bright", y, hot>>8)
		}
		if cold>>8 > 120 {
			t.Errorf("row %d: empty column green %d, want dark", y, cold>>8)
		}
	}
}
