package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jtarrio/radiorx/audio"
	"github.com/jtarrio/radiorx/demod"
	"github.com/jtarrio/radiorx/radio"
	"github.com/jtarrio/radiorx/rx"
)

var rootCmd = &cobra.Command{
	Use:   "radiorx",
	Short: "An SDR receiver for FM, AM, SSB, and CW.",
}

var (
	flagFreqHz   uint64
	flagRateHz   uint64
	flagCenterHz uint64
	flagMode     string
	flagMono     bool
	flagDevHz    float64
	flagBwHz     float64
	flagDeemphUs float64
	flagOffsetHz int64
	flagSquelch  float32
	flagVolume   float32
	flagGainDb   float32
	flagSerial   string
	flagRecord   string
	flagNoAudio  bool
	flagConfig   string
	flagVerbose  bool

	flagCenterMHz   float64
	flagMinWidthKHz float64

	flagFromHz uint64
	flagToHz   uint64
	flagStepHz uint64
	flagDown   bool

	flagImageWidth int
)

// listenBlockSamples is the SDR read granularity; 64ms at 1.024Msps.
const listenBlockSamples = 65536

// playBlocksPerSecond paces file playback at wall-clock rate.
const playBlocksPerSecond = 10

func addModeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&flagMode, "mode", "m", "WBFM", "Demodulation: WBFM, NBFM, AM, USB, LSB, CW")
	cmd.Flags().BoolVarP(&flagMono, "mono", "", false, "Disable WBFM stereo decoding")
	cmd.Flags().Float64VarP(&flagDevHz, "deviation", "", 0, "NBFM maximum deviation in Hz")
	cmd.Flags().Float64VarP(&flagBwHz, "bandwidth", "b", 0, "AM/SSB/CW channel bandwidth in Hz")
	cmd.Flags().Float64VarP(&flagDeemphUs, "deemphasis", "", 0, "WBFM de-emphasis in microseconds (default 50; 75 in the Americas and South Korea)")
}

func addRxFlags(cmd *cobra.Command) {
	addModeFlags(cmd)
	cmd.Flags().Int64VarP(&flagOffsetHz, "offset", "o", 0, "Station offset from capture center in Hz")
	cmd.Flags().Float32VarP(&flagSquelch, "squelch", "q", 0, "Mute audio below this signal level [0, 1]")
	cmd.Flags().Float32VarP(&flagVolume, "volume", "v", 1, "Audio gain")
	cmd.Flags().StringVarP(&flagRecord, "record", "w", "", "Also record audio to a wav file")
	cmd.Flags().BoolVarP(&flagNoAudio, "no-audio", "", false, "Do not open the sound device")
	cmd.Flags().StringVarP(&flagConfig, "config", "", "", "Settings file (default ~/.config/radiorx.yaml)")
	cmd.Flags().BoolVarP(&flagVerbose, "verbose", "", false, "Log per-channel probe detail")
}

func addSDRFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&flagSerial, "serial", "", "0", "SDR serial number")
	cmd.Flags().Float32VarP(&flagGainDb, "gain", "g", -1, "Tuner gain in dB, or -1 for auto gain")
	cmd.Flags().Uint64VarP(&flagRateHz, "sample-rate", "s", 1024000, "Capture sample rate in Hz")
}

func init() {
	listenCmd := &cobra.Command{
		Use:   "listen [flags]",
		Short: "Tune the SDR and play a station",
		Run:   func(cmd *cobra.Command, args []string) { listen(cmd) },
	}
	listenCmd.Flags().Uint64VarP(&flagFreqHz, "frequency", "f", 0, "Station frequency in Hz")
	addSDRFlags(listenCmd)
	addRxFlags(listenCmd)
	rootCmd.AddCommand(listenCmd)

	playCmd := &cobra.Command{
		Use:   "play [flags] input.iq8",
		Short: "Demodulate a capture file",
		Args:  cobra.ExactArgs(1),
		Run:   func(cmd *cobra.Command, args []string) { play(cmd, args[0]) },
	}
	playCmd.Flags().Uint64VarP(&flagCenterHz, "center-hz", "c", 0, "Capture center frequency in Hz")
	playCmd.Flags().Uint64VarP(&flagRateHz, "sample-rate", "s", 1024000, "Capture sample rate in Hz")
	addRxFlags(playCmd)
	rootCmd.AddCommand(playCmd)

	seekCmd := &cobra.Command{
		Use:   "seek [flags]",
		Short: "Step across a range until a station opens the squelch",
		Run:   func(cmd *cobra.Command, args []string) { seek(cmd) },
	}
	seekCmd.Flags().Uint64VarP(&flagFromHz, "from", "", 88100000, "Range start in Hz")
	seekCmd.Flags().Uint64VarP(&flagToHz, "to", "", 107900000, "Range end in Hz")
	seekCmd.Flags().Uint64VarP(&flagStepHz, "step", "", 200000, "Channel spacing in Hz")
	seekCmd.Flags().BoolVarP(&flagDown, "down", "", false, "Step toward the range start")
	seekCmd.Flags().Float32VarP(&flagSquelch, "squelch", "q", 0.5, "Signal level that stops the seek [0, 1]")
	seekCmd.Flags().BoolVarP(&flagVerbose, "verbose", "", false, "Log per-channel probe detail")
	addModeFlags(seekCmd)
	addSDRFlags(seekCmd)
	rootCmd.AddCommand(seekCmd)

	scanCmd := &cobra.Command{
		Use:   "scan [flags]",
		Short: "List active bands around a center frequency",
		Run:   func(cmd *cobra.Command, args []string) { scan() },
	}
	scanCmd.Flags().Float64VarP(&flagCenterMHz, "center-mhz", "c", 98.0, "Center frequency in MHz")
	scanCmd.Flags().Float64VarP(&flagMinWidthKHz, "min-width-khz", "", 5, "Ignore bands narrower than this")
	scanCmd.Flags().StringVarP(&flagSerial, "serial", "", "0", "SDR serial number")
	rootCmd.AddCommand(scanCmd)

	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "List connected SDRs",
		Run:   func(cmd *cobra.Command, args []string) { devices() },
	}
	rootCmd.AddCommand(devicesCmd)

	calibrateCmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Measure and correct tuner frequency error",
		Run:   func(cmd *cobra.Command, args []string) { calibrate() },
	}
	calibrateCmd.Flags().StringVarP(&flagSerial, "serial", "", "0", "SDR serial number")
	rootCmd.AddCommand(calibrateCmd)

	spectrogramCmd := &cobra.Command{
		Use:   "spectrogram [flags] input.iq8 output.jpg",
		Short: "Write a waterfall image of a capture file",
		Args:  cobra.ExactArgs(2),
		Run:   func(cmd *cobra.Command, args []string) { spectrogram(args[0], args[1]) },
	}
	spectrogramCmd.Flags().IntVarP(&flagImageWidth, "image-width", "", 1024, "Width of FFT")
	rootCmd.AddCommand(spectrogramCmd)
}

func newLogger() *log.Logger {
	opts := log.Options{ReportTimestamp: true}
	if flagVerbose {
		opts.Level = log.DebugLevel
	}
	return log.NewWithOptions(os.Stderr, opts)
}

// settingsFile holds listen/play defaults; flags given on the command line
// win over file values.
type settingsFile struct {
	Serial   string   `yaml:"serial"`
	Mode     string   `yaml:"mode"`
	GainDb   *float32 `yaml:"gain_db"`
	Squelch  *float32 `yaml:"squelch"`
	Volume   *float32 `yaml:"volume"`
	OffsetHz *int64   `yaml:"offset_hz"`
	RateHz   *uint64  `yaml:"sample_rate"`
	DeemphUs *float64 `yaml:"deemphasis_us"`
}

func applySettings(cmd *cobra.Command, logger *log.Logger) {
	path := flagConfig
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return
		}
		path = filepath.Join(home, ".config", "radiorx.yaml")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if flagConfig != "" {
			logger.Fatal("could not read settings", "path", path, "err", err)
		}
		return
	}
	var sf settingsFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		logger.Fatal("bad settings file", "path", path, "err", err)
	}
	set := func(name string) bool { return cmd.Flags().Changed(name) }
	if sf.Serial != "" && !set("serial") {
		flagSerial = sf.Serial
	}
	if sf.Mode != "" && !set("mode") {
		flagMode = sf.Mode
	}
	if sf.GainDb != nil && !set("gain") {
		flagGainDb = *sf.GainDb
	}
	if sf.Squelch != nil && !set("squelch") {
		flagSquelch = *sf.Squelch
	}
	if sf.Volume != nil && !set("volume") {
		flagVolume = *sf.Volume
	}
	if sf.OffsetHz != nil && !set("offset") {
		flagOffsetHz = *sf.OffsetHz
	}
	if sf.RateHz != nil && !set("sample-rate") {
		flagRateHz = *sf.RateHz
	}
	if sf.DeemphUs != nil && !set("deemphasis") {
		flagDeemphUs = *sf.DeemphUs
	}
	logger.Debug("applied settings", "path", path)
}

func mustMode(cmd *cobra.Command, logger *log.Logger) demod.Mode {
	m, err := demod.DefaultMode(demod.Scheme(strings.ToUpper(flagMode)))
	if err != nil {
		logger.Fatal("bad mode", "mode", flagMode, "err", err)
	}
	m.Stereo = m.Stereo && !flagMono
	if cmd.Flags().Changed("deviation") {
		m.MaxDeviation = flagDevHz
	}
	if cmd.Flags().Changed("bandwidth") {
		m.Bandwidth = flagBwHz
	}
	m.Deemphasis = flagDeemphUs
	if err := m.Validate(); err != nil {
		logger.Fatal("bad mode", "mode", flagMode, "err", err)
	}
	return m
}

func setGain(sdr radio.SDR) error {
	if flagGainDb < 0 {
		return sdr.SetAutoGain()
	}
	return sdr.SetGain(uint32(flagGainDb * 10))
}

// buildSink assembles the audio outputs and returns a cleanup func.
func buildSink(logger *log.Logger) (rx.Sink, *audio.Player, func()) {
	var sinks rx.MultiSink
	var player *audio.Player
	closers := []func(){}
	if !flagNoAudio {
		p, err := audio.NewPlayer(demod.AudioRate, demod.AudioRate/2)
		if err != nil {
			logger.Fatal("could not open sound device", "err", err)
		}
		player = p
		sinks = append(sinks, p)
		closers = append(closers, func() { p.Close() })
	}
	if flagRecord != "" {
		rec, err := rx.NewRecorder(flagRecord)
		if err != nil {
			logger.Fatal("could not open recording", "path", flagRecord, "err", err)
		}
		sinks = append(sinks, rec)
		closers = append(closers, func() {
			if err := rec.Close(); err != nil {
				logger.Error("recording close failed", "err", err)
			}
			logger.Info("recorded", "path", flagRecord, "samples", rec.Samples())
		})
	}
	return sinks, player, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
}

func listen(cmd *cobra.Command) {
	logger := newLogger()
	applySettings(cmd, logger)
	m := mustMode(cmd, logger)
	if flagFreqHz == 0 {
		logger.Fatal("need a station frequency")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	sdr, err := radio.NewSDRWithSerial(ctx, flagSerial)
	if err != nil {
		logger.Fatal("could not open SDR", "err", err)
	}
	defer sdr.Close()
	if err := setGain(sdr); err != nil {
		logger.Fatal("could not set gain", "err", err)
	}
	center := uint64(int64(flagFreqHz) - flagOffsetHz)
	if err := sdr.SetBand(radio.HzBand{Center: center, Width: flagRateHz}); err != nil {
		logger.Fatal("could not tune", "hz", center, "err", err)
	}

	p, err := rx.NewPipeline(int(flagRateHz), rx.Settings{
		Mode:       m,
		FreqOffset: float64(flagOffsetHz),
		Squelch:    flagSquelch,
		Volume:     flagVolume,
	}, logger)
	if err != nil {
		logger.Fatal("could not build pipeline", "err", err)
	}
	sink, _, cleanup := buildSink(logger)
	defer cleanup()
	p.SetSink(sink)
	counter := rx.NewCounter()
	p.AddReceiver(counter)
	p.Notify(func(st rx.Status) {
		logger.Info("signal", "level", st.SignalLevel, "stereo", st.StereoDetected, "squelched", st.Squelched)
	})

	logger.Info("listening", "hz", flagFreqHz, "scheme", m.Scheme, "rate", flagRateHz)
	go func() {
		defer p.Close()
		for block := range sdr.Reader().BatchStreamBytes(ctx, listenBlockSamples, 0) {
			p.Submit(block)
		}
	}()
	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("pipeline failed", "err", err)
	}
	logger.Info("stopped", "blocks", counter.Blocks(), "sps", int(counter.Rate()), "dropped", p.Dropped())
}

func play(cmd *cobra.Command, inf string) {
	logger := newLogger()
	applySettings(cmd, logger)
	m := mustMode(cmd, logger)

	iqr, closer, err := radio.OpenIQR(inf, radio.HzBand{Center: flagCenterHz, Width: flagRateHz})
	if err != nil {
		logger.Fatal("could not open input", "path", inf, "err", err)
	}
	defer closer()
	rate := int(iqr.Width)

	p, err := rx.NewPipeline(rate, rx.Settings{
		Mode:       m,
		FreqOffset: float64(flagOffsetHz),
		Squelch:    flagSquelch,
		Volume:     flagVolume,
	}, logger)
	if err != nil {
		logger.Fatal("could not build pipeline", "err", err)
	}
	sink, player, cleanup := buildSink(logger)
	defer cleanup()
	p.SetSink(sink)
	p.Notify(func(st rx.Status) {
		logger.Info("signal", "level", st.SignalLevel, "stereo", st.StereoDetected, "squelched", st.Squelched)
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Pace the file at wall-clock rate when audible; full speed otherwise.
	blockSamples := rate / playBlocksPerSecond
	var tick *time.Ticker
	if player != nil {
		tick = time.NewTicker(time.Second / playBlocksPerSecond)
		defer tick.Stop()
	}
	for block := range iqr.BatchStreamBytes(ctx, blockSamples, 0) {
		if tick != nil {
			select {
			case <-tick.C:
			case <-ctx.Done():
				return
			}
		}
		if err := p.Process(block); err != nil {
			logger.Fatal("pipeline failed", "err", err)
		}
	}
	for player != nil && player.Buffered() > 0 && ctx.Err() == nil {
		time.Sleep(50 * time.Millisecond)
	}
}

func seek(cmd *cobra.Command) {
	logger := newLogger()
	m := mustMode(cmd, logger)
	if flagFromHz >= flagToHz || flagStepHz == 0 {
		logger.Fatal("need an ascending range and a step")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	sdr, err := radio.NewSDRWithSerial(ctx, flagSerial)
	if err != nil {
		logger.Fatal("could not open SDR", "err", err)
	}
	defer sdr.Close()
	if err := setGain(sdr); err != nil {
		logger.Fatal("could not set gain", "err", err)
	}

	// Stepping starts by advancing, so begin one step outside the range.
	start := flagToHz
	if flagDown {
		start = flagFromHz
	}
	hz, level, err := rx.NewScanner(sdr, int(flagRateHz), logger).Seek(ctx, rx.SeekConfig{
		StartHz: start,
		StepHz:  flagStepHz,
		MinHz:   flagFromHz,
		MaxHz:   flagToHz,
		Down:    flagDown,
		Mode:    m,
		Squelch: flagSquelch,
	})
	if err != nil {
		logger.Fatal("seek failed", "err", err)
	}
	fmt.Printf("%.4f MHz\tlevel %.2f\n", float64(hz)/1e6, level)
}

func scan() {
	logger := newLogger()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	sdr, err := radio.NewSDRWithSerial(ctx, flagSerial)
	if err != nil {
		logger.Fatal("could not open SDR", "err", err)
	}
	defer sdr.Close()

	bands, err := radio.Scan(sdr, radio.ScanConfig{
		CenterMHz:   flagCenterMHz,
		MinWidthMHz: flagMinWidthKHz / 1e3,
	})
	if err != nil {
		logger.Fatal("scan failed", "err", err)
	}
	for _, b := range bands {
		fmt.Printf("%.4f MHz\t%.1f kHz\n", b.Center, b.BandwidthKHz())
	}
}

func devices() {
	infos, err := radio.SDRList(context.Background())
	if err != nil {
		log.Fatal("could not list SDRs", "err", err)
	}
	for _, info := range infos {
		fmt.Printf("%s\t%s\n", info.Id, info.Tuner)
	}
}

func calibrate() {
	logger := newLogger()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	sdr, err := radio.NewSDRWithSerial(ctx, flagSerial)
	if err != nil {
		logger.Fatal("could not open SDR", "err", err)
	}
	defer sdr.Close()
	if err := radio.Calibrate(sdr); err != nil {
		logger.Fatal("calibration failed", "err", err)
	}
}

func spectrogram(inf, outf string) {
	if err := rx.WriteWaterfallFile(inf, outf, flagImageWidth); err != nil {
		panic(err)
	}
}

func main() {
	rootCmd.Execute()
}
