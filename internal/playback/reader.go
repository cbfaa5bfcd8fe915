package playback

import (
	"encoding/binary"
	"io"
	"math"
	"sync/atomic"

	"github.com/rolentle/toolchest/internal/audio"
)

// queueReader adapts the frame queue to the byte stream the device pulls
// from. Each Read call is one device callback: it must return without
// waiting on the producer and must fill the requested buffer completely,
// padding with silence when the queue cannot supply enough samples.
//
// Read runs on the device's own mixer thread; everything it touches is
// either owned by it (the partial-block carry) or atomic/lock-bounded (the
// queue, the counters).
type queueReader struct {
	driver *Driver

	// partial carries the remainder of a popped block that did not fit in
	// the previous callback buffer. Only the device thread touches it.
	partial []float32

	consecutive atomic.Int64
	drained     atomic.Bool
}

func (r *queueReader) Read(p []byte) (int, error) {
	n := len(p) &^ 1 // whole int16 samples only
	if n == 0 {
		return 0, nil
	}

	want := n / 2
	got := 0

	for got < want {
		if len(r.partial) == 0 {
			block, ok := r.driver.queue.TryPop()
			if !ok {
				break
			}
			r.partial = block
		}

		taken := copy16(p[got*2:n], r.partial)
		r.partial = r.partial[taken:]
		got += taken
	}

	// Pad the remainder of this callback with silence.
	for i := got * 2; i < n; i++ {
		p[i] = 0
	}

	switch {
	case got > 0:
		r.consecutive.Store(0)
	case r.driver.queue.Done():
		r.drained.Store(true)
		return n, io.EOF
	default:
		// Producer has not kept up: a whole callback of silence.
		r.driver.underruns.Add(1)
		r.consecutive.Add(1)
	}

	return n, nil
}

// copy16 encodes samples as little-endian int16 into dst, returning how
// many samples fit.
func copy16(dst []byte, samples []float32) int {
	n := min(len(dst)/2, len(samples))
	for i := range n {
		v := int16(math.Round(float64(audio.Clamp(samples[i])) * 32767))
		binary.LittleEndian.PutUint16(dst[i*2:], uint16(v))
	}

	return n
}
