// Package portaudio plays the notify beep through the default audio output.
package portaudio

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"

	"github.com/GriffinCanCode/confirmscout/internal/notify"
)

const framesPerBuffer = 512

// Player plays a sine tone on the default output device. Beeps that arrive
// while one is playing are dropped.
type Player struct {
	samples []float32
	playing atomic.Bool
	wg      sync.WaitGroup
}

// NewPlayer initializes the audio host.
func NewPlayer() (*Player, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	return &Player{samples: notify.Tone(notify.DefaultFrequency, notify.DefaultDuration, notify.SampleRate)}, nil
}

// New returns a Player when enabled, falling back to notify.Nop when the audio
// host cannot be initialized.
func New(enabled bool) notify.Beeper {
	if !enabled {
		return notify.Nop{}
	}
	p, err := NewPlayer()
	if err != nil {
		slog.Warn("audio unavailable, beep disabled", "error", err)
		return notify.Nop{}
	}
	return p
}

// Beep implements notify.Beeper.
func (p *Player) Beep() {
	if !p.playing.CompareAndSwap(false, true) {
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.playing.Store(false)
		if err := p.play(); err != nil {
			slog.Debug("beep failed", "error", err)
		}
	}()
}

func (p *Player) play() error {
	buf := make([]float32, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(0, 1, notify.SampleRate, len(buf), buf)
	if err != nil {
		return err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return err
	}
	defer stream.Stop()

	for off := 0; off < len(p.samples); off += len(buf) {
		n := copy(buf, p.samples[off:])
		clear(buf[n:])
		if err := stream.Write(); err != nil {
			return err
		}
	}
	return nil
}

// Close waits for a playing beep and releases the audio host.
func (p *Player) Close() error {
	p.wg.Wait()
	return portaudio.Terminate()
}
