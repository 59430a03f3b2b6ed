package rx

import (
	"image"
	"image/color"
	"image/jpeg"
	"math/cmplx"
	"os"

	"github.com/mjibson/go-dsp/fft"

	"github.com/jtarrio/radiorx/radio"
)

// black, green, yellow, white
var colorScale = []color.NRGBA{
	{0, 0, 0, 255},
	{0, 255, 0, 255},
	{255, 255, 0, 255},
	{255, 255, 255, 255},
}

func interpolate(t float64, a, b uint8) uint8 { return uint8(float64(a)*(1-t) + float64(b)*t) }

func powerColor(v float64) color.NRGBA {
	idx := float64(len(colorScale)-1) * v
	if idx >= float64(len(colorScale)-1) {
		return colorScale[len(colorScale)-1]
	}
	t := idx - float64(int(idx))
	prev, next := colorScale[int(idx)], colorScale[int(idx)+1]
	return color.NRGBA{
		interpolate(t, prev.R, next.R),
		interpolate(t, prev.G, next.G),
		interpolate(t, prev.B, next.B),
		255,
	}
}

// WriteWaterfallFile renders an I/Q recording into a waterfall JPEG, one FFT
// row per bins samples, lowest frequency on the left.
func WriteWaterfallFile(infn, outfn string, bins int) error {
	iqr, closer, err := radio.OpenIQR(infn, radio.HzBand{})
	if err != nil {
		return err
	}
	defer closer()

	buf := make([]complex128, bins)
	var rows [][]float64
	for samps := range iqr.Batch64(bins, 0) {
		for i, v := range samps {
			buf[i] = complex(float64(real(v)), float64(imag(v)))
		}
		row := make([]float64, bins)
		for i, v := range fft.FFT(buf) {
			row[i] = cmplx.Abs(v)
		}
		rows = append(rows, row)
	}

	r := image.Rectangle{Min: image.Point{0, 0}, Max: image.Point{bins, len(rows)}}
	img := image.NewNRGBA(r)
	for y, row := range rows {
		min, max := row[0], row[0]
		for _, v := range row {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		// scale to [0, 1)
		scale := 1.0 / ((max - min) + 0.001)
		// Order so lowest and highest frequencies are at the beginning
		// and end, respectively.
		ordered := append(row[bins/2:], row[:bins/2]...)
		for x, v := range ordered {
			val := scale * (v - min)
			img.SetNRGBA(x, y, powerColor(val*val))
		}
	}

	outf, err := os.OpenFile(outfn, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	defer outf.Close()
	return jpeg.Encode(outf, img, nil)
}
