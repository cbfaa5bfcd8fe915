package audio

import (
	"bytes"
	"fmt"

	"github.com/cwbudde/wav"
	goaudio "github.com/go-audio/audio"
)

// EncodeWAV encodes float32 PCM samples as a complete WAV byte slice in the
// 24000 Hz mono 16-bit output format. Use StreamWriter when the sample
// count is not known up front.
func EncodeWAV(samples []float32) ([]byte, error) {
	// wav.NewEncoder patches length fields on Close and therefore needs an
	// io.WriteSeeker; seekBuffer provides one over a plain byte buffer.
	sw := &seekBuffer{buf: &bytes.Buffer{}}

	enc := wav.NewEncoder(sw, ExpectedSampleRate, ExpectedBitDepth, ExpectedChannels, 1) // 1 = PCM

	pcm := &goaudio.Float32Buffer{
		Data:           samples,
		Format:         &goaudio.Format{SampleRate: ExpectedSampleRate, NumChannels: ExpectedChannels},
		SourceBitDepth: ExpectedBitDepth,
	}

	if err := enc.Write(pcm); err != nil {
		return nil, fmt.Errorf("writing PCM: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("closing encoder: %w", err)
	}

	return sw.buf.Bytes(), nil
}

// seekBuffer satisfies io.WriteSeeker over an in-memory buffer.
type seekBuffer struct {
	buf *bytes.Buffer
	pos int
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	if s.pos == s.buf.Len() {
		n, err := s.buf.Write(p)
		s.pos += n
		return n, err
	}

	// Seeked back into existing content: overwrite, growing if the write
	// runs past the end.
	data := s.buf.Bytes()
	n := copy(data[s.pos:], p)
	if n < len(p) {
		data = append(data, p[n:]...)
		s.buf.Reset()
		s.buf.Write(data)
		n = len(p)
	}
	s.pos += n

	return n, nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var pos int
	switch whence {
	case 0: // io.SeekStart
		pos = int(offset)
	case 1: // io.SeekCurrent
		pos = s.pos + int(offset)
	case 2: // io.SeekEnd
		pos = s.buf.Len() + int(offset)
	}
	if pos < 0 {
		return 0, fmt.Errorf("seek before start")
	}
	s.pos = pos

	return int64(pos), nil
}
