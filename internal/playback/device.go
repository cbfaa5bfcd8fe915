package playback

import (
	"fmt"
	"io"
	"time"

	"github.com/ebitengine/oto/v3"
)

// OpenDevice opens the default audio output through oto: mono, signed
// 16-bit little-endian, pulling from r at the device's own cadence.
func OpenDevice(r io.Reader, sampleRate int) (Device, error) {
	options := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   80 * time.Millisecond,
	}

	ctx, ready, err := oto.NewContext(options)
	if err != nil {
		return nil, fmt.Errorf("open audio context: %w", err)
	}

	// The context has no Close in oto v3; it is released with the process.
	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("audio context initialization timeout")
	}

	return &otoDevice{player: ctx.NewPlayer(r)}, nil
}

type otoDevice struct {
	player *oto.Player
}

func (d *otoDevice) Play() {
	if !d.player.IsPlaying() {
		d.player.Play()
	}
}

func (d *otoDevice) Pause() {
	d.player.Pause()
}

func (d *otoDevice) Close() error {
	return d.player.Close()
}
