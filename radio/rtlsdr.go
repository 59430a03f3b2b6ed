package radio

import (
	"bufio"
	"context"
	"io"
	"net"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/kr/pty"
)

var minFreqHz = uint32(25000000)
var maxFreqHz = uint32(1750000000)
var minRate = uint32(225000)
var maxRate = uint32(3200000)

const rtlTCPAddr = "127.0.0.1:12345"

type rtlSDR struct {
	sdr  *RTLTCPSDR
	cmd  *exec.Cmd
	fpty *os.File
	// device serial number or device index
	serialNumber string

	lastCenter     uint32
	lastSampleRate uint32
	lastPPM        uint32

	iqr *MixerIQReader
	mu  sync.RWMutex
}

func newRTLSDR(ctx context.Context, ser string) (*rtlSDR, error) {
	cmd := exec.CommandContext(ctx, "rtl_tcp",
		"-a", "127.0.0.1", "-p", "12345", "-d", ser, "-s", "1024000")
	fpty, err := pty.Start(cmd)
	if err != nil {
		return nil, err
	}
	go logPty(fpty)
	// rtl_tcp takes a moment to bind; the connect loop retries on top of this.
	select {
	case <-time.After(2 * time.Second):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &rtlSDR{fpty: fpty, cmd: cmd, serialNumber: ser}, nil
}

func logPty(fpty *os.File) {
	scanner := bufio.NewScanner(fpty)
	for scanner.Scan() {
		log.Debug("rtl_tcp", "output", scanner.Text())
	}
}

func (s *rtlSDR) SetFreqCorrection(ppm uint32) error {
	if err := s.initSDR(); err != nil {
		return err
	}
	s.lastPPM = ppm
	return s.sdr.SetFreqCorrection(ppm)
}

func (s *rtlSDR) SetGain(tenthDb uint32) error {
	if err := s.initSDR(); err != nil {
		return err
	}
	if err := s.sdr.SetGainMode(false); err != nil {
		return err
	}
	return s.sdr.SetGain(tenthDb)
}

func (s *rtlSDR) SetAutoGain() error {
	if err := s.initSDR(); err != nil {
		return err
	}
	return s.sdr.SetGainMode(true)
}

func (s *rtlSDR) SetBand(b HzBand) error {
	if b.Center < uint64(minFreqHz) || b.Center > uint64(maxFreqHz) {
		return ErrFrequencyOutOfRange
	}
	if !isValidRate(uint32(b.Width)) {
		return ErrRateOutOfRange
	}
	if err := s.initSDR(); err != nil {
		return err
	}
	if err := s.SetCenterFreq(uint32(b.Center)); err != nil {
		return err
	}
	if err := s.SetSampleRate(uint32(b.Width)); err != nil {
		return err
	}
	// Reset connection so following reads get the new tuned band.
	return s.resetConn()
}

func (s *rtlSDR) Info() SDRHWInfo {
	tuner := ""
	if s.sdr != nil {
		tuner = s.sdr.TunerName()
	}
	return SDRHWInfo{
		Id:    s.serialNumber,
		Tuner: tuner,
		SDRFormat: SDRFormat{
			BitDepth:   8,
			CenterHz:   uint64(s.lastCenter),
			SampleRate: s.lastSampleRate,
		},
		MinHz:         uint64(minFreqHz),
		MaxHz:         uint64(maxFreqHz),
		MinSampleRate: minRate,
		MaxSampleRate: maxRate,
	}
}

func (s *rtlSDR) Close() error {
	s.stop()
	s.fpty.Close()
	return s.cmd.Wait()
}

func (s *rtlSDR) band() HzBand {
	return HzBand{uint64(s.lastCenter), uint64(s.lastSampleRate)}
}

type eofReader struct{}

func (e *eofReader) Read(p []byte) (int, error) { return 0, io.EOF }

func (s *rtlSDR) Reader() *MixerIQReader {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sdr == nil {
		return NewMixerIQReader(&eofReader{}, s.band())
	} else if s.iqr == nil {
		s.iqr = NewMixerIQReader(s.sdr, s.band())
	}
	return s.iqr
}

func (s *rtlSDR) stop() error {
	if s.sdr == nil {
		return nil
	}
	err := s.sdr.TCPConn.Close()
	s.sdr, s.iqr = nil, nil
	return err
}

func (s *rtlSDR) resetConn() (err error) {
	s.stop()
	s.sdr, err = connect(context.TODO())
	return err
}

func isValidRate(rate uint32) bool {
	return !((rate <= 225000) || (rate > 3200000) ||
		((rate > 300000) && (rate <= 900000)))
}

func (s *rtlSDR) SetSampleRate(rate uint32) (err error) {
	if !isValidRate(rate) {
		return ErrRateOutOfRange
	}
	if s.lastSampleRate == rate {
		return nil
	}
	if err := s.initSDR(); err != nil {
		return err
	}
	if err := s.sdr.SetSampleRate(rate); err != nil {
		return err
	}
	s.lastSampleRate = rate
	return nil
}

func (s *rtlSDR) SetCenterFreq(cent uint32) error {
	if err := s.initSDR(); err != nil {
		return err
	}
	return s.setCenterFreq(cent)
}

func (s *rtlSDR) setCenterFreq(cent uint32) error {
	if cent < minFreqHz || cent > maxFreqHz {
		return ErrFrequencyOutOfRange
	}
	if s.lastCenter != cent {
		if err := s.sdr.SetCenterFreq(cent); err != nil {
			return err
		}
		s.lastCenter = cent
	}
	return nil
}

func connect(ctx context.Context) (*RTLTCPSDR, error) {
	addr, err := net.ResolveTCPAddr("tcp4", rtlTCPAddr)
	if err != nil {
		return nil, err
	}
	for i := 0; i < 10; i++ {
		sdr := &RTLTCPSDR{}
		if err = sdr.Connect(addr); err == nil {
			return sdr, nil
		}
		log.Debug("rtl_tcp not accepting yet", "err", err)
		time.Sleep(100 * time.Millisecond)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, err
}

func (s *rtlSDR) initSDR() (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sdr == nil {
		err = s.resetConn()
	}
	return err
}

// rtlSDRList enumerates dongles by scraping rtl_test's device listing.
func rtlSDRList(ctx context.Context) (infos []SDRHWInfo, err error) {
	cctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	cmd := exec.CommandContext(cctx, "rtl_test")
	fpty, err := pty.Start(cmd)
	if err != nil {
		return nil, err
	}
	defer func() {
		cancel()
		fpty.Close()
		cmd.Wait()
	}()
	scanner := bufio.NewScanner(fpty)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "Using device") {
			break
		}
		// Devices list like "0:  Realtek, RTL2838UHIDIR, SN: 00000001".
		sn := strings.Index(line, "SN: ")
		if sn < 0 {
			continue
		}
		infos = append(infos, SDRHWInfo{
			Id:            strings.TrimSpace(line[sn+len("SN: "):]),
			MinHz:         uint64(minFreqHz),
			MaxHz:         uint64(maxFreqHz),
			MinSampleRate: minRate,
			MaxSampleRate: maxRate,
			SDRFormat:     SDRFormat{BitDepth: 8},
		})
	}
	return infos, nil
}
