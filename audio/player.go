package audio

import (
	"github.com/ebitengine/oto/v3"
)

// Player plays interleaved stereo float32 through the system sound device.
// The device pulls from a Ring, so a stalled demodulator plays silence
// instead of blocking the device.
type Player struct {
	player *oto.Player
	ring   *Ring
}

// NewPlayer opens the sound device at sampleRate with bufferFrames of
// slack between the demodulator and the device.
func NewPlayer(sampleRate, bufferFrames int) (*Player, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	}
	otoCtx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-readyChan
	ring := NewRing(bufferFrames)
	player := otoCtx.NewPlayer(ring)
	player.Play()
	return &Player{player: player, ring: ring}, nil
}

// Push queues one stereo block for playback.
func (p *Player) Push(left, right []float32) {
	p.ring.Write(left, right)
}

// Buffered counts samples queued and not yet pulled by the device.
func (p *Player) Buffered() int { return p.ring.Buffered() }

// Underruns counts silence samples played while the ring was empty.
func (p *Player) Underruns() uint64 { return p.ring.Underruns() }

func (p *Player) Close() error {
	return p.player.Close()
}
