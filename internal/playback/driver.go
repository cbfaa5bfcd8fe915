// Package playback drives the real-time audio consumer. The device pulls
// fixed-size sample buffers at its own cadence; the driver feeds it from the
// frame queue without ever blocking the device thread, degrading to silence
// when the producer falls behind.
package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/rolentle/toolchest/internal/frame"
)

// ErrDevice marks audio device open or stream failures. Fatal for the
// session.
var ErrDevice = errors.New("audio device failure")

// State is the driver lifecycle position.
type State int32

const (
	StateFilling State = iota
	StateStreaming
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateFilling:
		return "filling"
	case StateStreaming:
		return "streaming"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Device is the playback endpoint. The production implementation wraps an
// oto player; tests substitute a fake.
type Device interface {
	Play()
	Pause()
	Close() error
}

// DeviceOpener opens a device that pulls PCM16LE bytes from r at the given
// sample rate.
type DeviceOpener func(r io.Reader, sampleRate int) (Device, error)

// Config controls buffering behavior.
type Config struct {
	SampleRate int
	BlockSize  int
	// InitialDelay is the cushion-building wait before the first samples
	// are served from real data.
	InitialDelay time.Duration
	// RebufferDelay is the recurring pause used to rebuild cushion after
	// chronic underruns.
	RebufferDelay time.Duration
	// UnderrunThreshold is the consecutive-underrun count that triggers a
	// re-buffering pause. Zero disables the policy.
	UnderrunThreshold int
}

// Driver consumes the frame queue on behalf of the audio device.
//
// Lifecycle: Filling (build initial cushion) -> Streaming (serve callbacks,
// silence-fill on empty) -> Draining (producer done, empty the queue) ->
// Stopped (device released).
type Driver struct {
	cfg   Config
	queue *frame.Queue
	open  DeviceOpener
	log   *slog.Logger

	state     atomic.Int32
	underruns atomic.Int64
	rebuffers atomic.Int64

	reader *queueReader
}

// NewDriver creates a driver for the given queue. A nil opener selects the
// oto-backed device.
func NewDriver(cfg Config, q *frame.Queue, open DeviceOpener, log *slog.Logger) *Driver {
	if open == nil {
		open = OpenDevice
	}
	if log == nil {
		log = slog.Default()
	}

	d := &Driver{cfg: cfg, queue: q, open: open, log: log}
	d.reader = &queueReader{driver: d}

	return d
}

// State reports the current lifecycle state.
func (d *Driver) State() State {
	return State(d.state.Load())
}

// Underruns reports the cumulative count of callbacks served entirely with
// silence while the producer was still running.
func (d *Driver) Underruns() int64 {
	return d.underruns.Load()
}

// Rebuffers reports how many re-buffering pauses the chronic underrun
// policy triggered.
func (d *Driver) Rebuffers() int64 {
	return d.rebuffers.Load()
}

// Run opens the device and consumes the queue until it is drained or ctx is
// canceled. The device is released on every exit path.
func (d *Driver) Run(ctx context.Context) error {
	d.state.Store(int32(StateFilling))
	d.waitInitialFill(ctx)

	device, err := d.open(d.reader, d.cfg.SampleRate)
	if err != nil {
		d.state.Store(int32(StateStopped))
		return fmt.Errorf("%w: %v", ErrDevice, err)
	}

	defer func() {
		_ = device.Close()
		d.state.Store(int32(StateStopped))
	}()

	d.state.Store(int32(StateStreaming))
	device.Play()
	d.log.Debug("playback started", "queued_blocks", d.queue.Len())

	tick := time.NewTicker(d.blockInterval())
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			d.state.Store(int32(StateDraining))
			return ctx.Err()
		case <-tick.C:
		}

		if d.queue.Done() {
			if d.State() == StateStreaming {
				d.state.Store(int32(StateDraining))
			}
			if d.reader.drained.Load() {
				d.log.Info("playback complete",
					"underruns", d.Underruns(),
					"rebuffers", d.Rebuffers(),
					"queue_high_water", d.queue.HighWater())
				return nil
			}
			continue
		}

		if d.cfg.UnderrunThreshold > 0 &&
			d.reader.consecutive.Load() >= int64(d.cfg.UnderrunThreshold) {
			d.rebuffer(ctx, device)
		}
	}
}

// waitInitialFill holds consumption for the configured initial delay so the
// queue can accumulate a cushion. Returns early on cancellation or when the
// producer already finished.
func (d *Driver) waitInitialFill(ctx context.Context) {
	if d.cfg.InitialDelay <= 0 {
		return
	}

	deadline := time.NewTimer(d.cfg.InitialDelay)
	defer deadline.Stop()

	poll := time.NewTicker(10 * time.Millisecond)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			return
		case <-poll.C:
			if d.queue.Done() {
				return
			}
		}
	}
}

// rebuffer pauses the device for the recurring delay to let the producer
// rebuild cushion after chronic underruns.
func (d *Driver) rebuffer(ctx context.Context, device Device) {
	d.rebuffers.Add(1)
	d.log.Warn("chronic underrun, re-buffering",
		"underruns", d.Underruns(),
		"delay", d.cfg.RebufferDelay)

	device.Pause()
	select {
	case <-ctx.Done():
	case <-time.After(d.cfg.RebufferDelay):
	}
	d.reader.consecutive.Store(0)
	device.Play()
}

func (d *Driver) blockInterval() time.Duration {
	if d.cfg.SampleRate <= 0 || d.cfg.BlockSize <= 0 {
		return 80 * time.Millisecond
	}

	return time.Duration(d.cfg.BlockSize) * time.Second / time.Duration(d.cfg.SampleRate)
}
