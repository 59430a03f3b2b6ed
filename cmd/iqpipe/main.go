package main

import (
	"context"
	"encoding/binary"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jtarrio/radiorx/dsp"
	"github.com/jtarrio/radiorx/radio"
	"github.com/jtarrio/radiorx/rx"
)

var (
	flagBand    radio.HzBand
	deviationHz uint
	shiftHz     int
	cutoffHz    uint
	decimate    int
	imageWidth  int
	pcmHz       uint
)

var rootCmd = &cobra.Command{
	Use:   "iqpipe",
	Short: "A tool to pipe around IQ sample streams.",
}

func addFlagBand(cmd *cobra.Command) {
	cmd.Flags().Uint64VarP(&flagBand.Center, "center-hz", "c", 0, "Center frequency in Hz")
	cmd.Flags().Uint64VarP(&flagBand.Width, "sample-rate", "s", 2048000, "Sample rate in Hz")
}

func init() {
	shiftCmd := &cobra.Command{
		Use:   "shift [flags] input.iq8 output.iq8",
		Short: "Shift a frequency to baseband",
		Run:   func(cmd *cobra.Command, args []string) { shiftFile(args[0], args[1]) },
	}
	shiftCmd.Flags().IntVarP(&shiftHz, "frequency-shift", "S", 0, "Frequency to shift down in Hz")
	addFlagBand(shiftCmd)
	rootCmd.AddCommand(shiftCmd)

	lowpassCmd := &cobra.Command{
		Use:   "lpf [flags] input.iq8 output.iq8",
		Short: "Lowpass filter",
		Run:   func(cmd *cobra.Command, args []string) { lowpassFile(args[0], args[1]) },
	}
	lowpassCmd.Flags().UintVarP(&cutoffHz, "cutoff", "c", 0, "Cutoff frequency in Hz")
	lowpassCmd.Flags().IntVarP(&decimate, "decimate", "d", 1, "Keep every nth sample")
	addFlagBand(lowpassCmd)
	rootCmd.AddCommand(lowpassCmd)

	spectrogramCmd := &cobra.Command{
		Use:   "spectrogram [flags] input.iq8 output.jpg",
		Short: "Write spectrogram jpg",
		Run:   func(cmd *cobra.Command, args []string) { spectrogram(args[0], args[1]) },
	}
	spectrogramCmd.Flags().IntVarP(&imageWidth, "image-width", "w", 1024, "Width of FFT")
	addFlagBand(spectrogramCmd)
	rootCmd.AddCommand(spectrogramCmd)

	demodCmd := &cobra.Command{
		Use:   "fmdemod iqfile pcmfile",
		Short: "FM demodulate an iq8 file to PCM",
		Run:   func(cmd *cobra.Command, args []string) { demod(args[0], args[1]) },
	}
	demodCmd.Flags().UintVarP(&deviationHz, "deviation", "d", 0, "Maximum signal deviation in Hz")
	demodCmd.Flags().UintVarP(&pcmHz, "pcm-rate", "p", 0, "PCM sampling rate in Hz")
	addFlagBand(demodCmd)
	rootCmd.AddCommand(demodCmd)
}

func openOutput(outf string) (io.Writer, func()) {
	if outf == "-" {
		return os.Stdout, func() {}
	}
	fout, err := os.OpenFile(outf, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		panic(err)
	}
	return fout, func() { fout.Close() }
}

func mustOpenInput(inf string) (*radio.MixerIQReader, func()) {
	r, c, err := radio.OpenIQR(inf, flagBand)
	if err != nil {
		panic(err)
	}
	return r, c
}

func mustOpenOutput(outf string, hzb radio.HzBand) (*radio.IQWriter, func()) {
	w, c, err := radio.OpenIQW(outf, hzb)
	if err != nil {
		panic(err)
	}
	return w, c
}

func demod(inf, outf string) {
	if flagBand.Width == 0 || deviationHz == 0 || pcmHz == 0 {
		panic("need sample-rate, deviation, and pcm-rate")
	}
	iqr, rcloser := mustOpenInput(inf)
	defer rcloser()

	writer, wcloser := openOutput(outf)
	defer wcloser()

	ctx := context.Background()
	demodc := dsp.FMDemodStream(ctx, int(iqr.Width), float64(deviationHz), iqr.Batch64(int(iqr.Width), 0))
	resampc := dsp.ResampleStream(ctx, int(iqr.Width), int(pcmHz), demodc)
	for rsamps := range resampc {
		outsamps := make([]int16, len(rsamps))
		for i, v := range rsamps {
			if v > 1 {
				v = 1
			} else if v < -1 {
				v = -1
			}
			outsamps[i] = int16(v * 0x7fff)
		}
		if err := binary.Write(writer, binary.LittleEndian, outsamps); err != nil {
			panic(err)
		}
	}
}

func spectrogram(inf, outf string) {
	if err := rx.WriteWaterfallFile(inf, outf, imageWidth); err != nil {
		panic(err)
	}
}

func shiftFile(inf, outf string) {
	iqr, rcloser := mustOpenInput(inf)
	defer rcloser()

	outHzb := iqr.HzBand
	if outHzb.Center != 0 {
		outHzb.Center = uint64(int64(outHzb.Center) - int64(shiftHz))
	}
	iqw, wcloser := mustOpenOutput(outf, outHzb)
	defer wcloser()

	inc := iqr.Batch64(int(iqr.Width), 0)
	for outSamps := range dsp.ShiftStream(context.Background(), float64(shiftHz), int(iqr.Width), inc) {
		iqw.Write64(outSamps)
	}
}

func lowpassFile(inf, outf string) {
	iqr, rcloser := mustOpenInput(inf)
	defer rcloser()

	outHzb := iqr.HzBand
	outHzb.Width /= uint64(decimate)
	iqw, wcloser := mustOpenOutput(outf, outHzb)
	defer wcloser()

	inc := iqr.Batch64(int(iqr.Width), 0)
	lpfc := dsp.LowpassStream(context.Background(), float64(cutoffHz), int(iqr.Width), decimate, inc)
	for outSamps := range lpfc {
		iqw.Write64(outSamps)
	}
}

func main() {
	rootCmd.Execute()
}
