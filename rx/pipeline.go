package rx

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/jtarrio/radiorx/audio"
	"github.com/jtarrio/radiorx/demod"
	"github.com/jtarrio/radiorx/radio"
)

// pipelineQueueDepth bounds blocks waiting for the processing loop. When the
// producer runs ahead, the oldest queued block is dropped.
const pipelineQueueDepth = 8

// Settings is the control surface read once per block. Snapshots are swapped
// whole so a block never sees a half-updated configuration.
type Settings struct {
	Mode       demod.Mode
	FreqOffset float64
	Squelch    float32
	Volume     float32
}

// Status is what observers see after a block is processed.
type Status struct {
	Mode           demod.Mode
	StereoDetected bool
	SignalLevel    float32
	Squelched      bool
}

// Pipeline owns a demodulator and a receiver chain, processing submitted
// sample blocks one at a time on its Run goroutine.
type Pipeline struct {
	inRate   int
	settings atomic.Pointer[Settings]
	blockc   chan []byte
	dropped  atomic.Uint64
	logger   *log.Logger

	// owned by Run
	dem  demod.Demodulator
	pool *audio.FramePool
	last Status

	mu        sync.Mutex
	chain     Chain
	sink      Sink
	observers []func(Status)
}

func NewPipeline(inRate int, s Settings, logger *log.Logger) (*Pipeline, error) {
	dem, err := demod.New(inRate, s.Mode)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	p := &Pipeline{
		inRate: inRate,
		blockc: make(chan []byte, pipelineQueueDepth),
		logger: logger,
		dem:    dem,
	}
	p.settings.Store(&s)
	return p, nil
}

// AddReceiver appends r to the broadcast chain. The demodulator always runs
// after the chain, so chained receivers see unmodified samples.
func (p *Pipeline) AddReceiver(r SampleReceiver) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chain = append(p.chain, r)
}

// SetSink directs demodulated audio to s.
func (p *Pipeline) SetSink(s Sink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sink = s
}

// Notify registers an observer called when stereo lock, squelch state, or
// the mode changes.
func (p *Pipeline) Notify(fn func(Status)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, fn)
}

// Update swaps in new settings for the next block.
func (p *Pipeline) Update(s Settings) error {
	if err := s.Mode.Validate(); err != nil {
		return err
	}
	p.settings.Store(&s)
	return nil
}

func (p *Pipeline) Settings() Settings { return *p.settings.Load() }

// Dropped counts blocks discarded because processing fell behind.
func (p *Pipeline) Dropped() uint64 { return p.dropped.Load() }

// Submit queues one raw u8 I/Q block, dropping the oldest queued block if
// the pipeline is behind. The caller must not reuse block afterwards.
func (p *Pipeline) Submit(block []byte) {
	for {
		select {
		case p.blockc <- block:
			return
		default:
		}
		select {
		case <-p.blockc:
			p.dropped.Add(1)
		default:
		}
	}
}

// Close stops Run after the queue drains. Submit must not be called again.
func (p *Pipeline) Close() { close(p.blockc) }

// Run processes blocks until ctx ends or Close drains the queue.
func (p *Pipeline) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case block, ok := <-p.blockc:
			if !ok {
				return nil
			}
			if err := p.Process(block); err != nil {
				return err
			}
		}
	}
}

// Process demodulates one raw u8 I/Q block synchronously. File-driven
// callers use it directly instead of Submit/Run, keeping every block.
// It must not be called concurrently with Run.
func (p *Pipeline) Process(block []byte) error {
	s := p.settings.Load()
	if err := p.reconcile(s.Mode); err != nil {
		return err
	}
	n := len(block) / 2
	if p.pool == nil || p.pool.FrameSize() < n {
		p.pool = audio.NewFramePool(n)
	}
	fi, fq := p.pool.Get(), p.pool.Get()
	defer p.pool.Put(fi)
	defer p.pool.Put(fq)
	I, Q := fi[:n], fq[:n]
	radio.ConvertU8(block, I, Q)

	p.mu.Lock()
	chain, sink := p.chain, p.sink
	p.mu.Unlock()
	chain.ReceiveSamples(I, Q, s.FreqOffset)
	// The demodulator mutates its input, so it runs after the chain.
	out := p.dem.Demodulate(I, Q, s.FreqOffset)

	squelched := out.SignalLevel < s.Squelch
	if squelched {
		zero(out.Left)
		zero(out.Right)
	} else if s.Volume != 1 {
		scale(out.Left, s.Volume)
		scale(out.Right, s.Volume)
	}
	if sink != nil {
		sink.Push(out.Left, out.Right)
	}

	st := Status{
		Mode:           s.Mode,
		StereoDetected: out.StereoDetected,
		SignalLevel:    out.SignalLevel,
		Squelched:      squelched,
	}
	if st.StereoDetected != p.last.StereoDetected ||
		st.Squelched != p.last.Squelched || st.Mode != p.last.Mode {
		p.report(st)
	}
	p.last = st
	return nil
}

// reconcile applies a mode change: in-scheme updates go through SetMode to
// keep filter state, scheme changes build a fresh demodulator.
func (p *Pipeline) reconcile(m demod.Mode) error {
	cur := p.dem.Mode()
	if m == cur {
		return nil
	}
	if m.Scheme == cur.Scheme {
		if err := p.dem.SetMode(m); err != nil {
			return err
		}
	} else {
		dem, err := demod.New(p.inRate, m)
		if err != nil {
			return err
		}
		p.dem = dem
	}
	p.logger.Info("mode changed", "scheme", m.Scheme, "was", cur.Scheme)
	return nil
}

func (p *Pipeline) report(st Status) {
	p.mu.Lock()
	observers := p.observers
	p.mu.Unlock()
	for _, fn := range observers {
		fn(st)
	}
}

func zero(v []float32) {
	for i := range v {
		v[i] = 0
	}
}

func scale(v []float32, by float32) {
	for i := range v {
		v[i] *= by
	}
}
