package frame_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rolentle/toolchest/internal/frame"
)

// stubCodec returns a fixed block, or an error, for every frame.
type stubCodec struct {
	block []float32
	err   error
	calls int
}

func (c *stubCodec) DecodeStep(_ context.Context, _ []int64) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.block, nil
}

func TestDecoder_Decode(t *testing.T) {
	ctx := context.Background()

	t.Run("valid frame", func(t *testing.T) {
		codec := &stubCodec{block: []float32{0.1, -0.2, 0.3}}
		d := frame.NewDecoder(codec)

		pcm, decoded, err := d.Decode(ctx, frame.RawFrame{1, 2, 3, 4})
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if !decoded {
			t.Fatal("valid frame must decode")
		}
		if len(pcm) != 3 {
			t.Fatalf("got %d samples, want 3", len(pcm))
		}
	})

	t.Run("all sentinel channels skipped", func(t *testing.T) {
		codec := &stubCodec{block: []float32{0}}
		d := frame.NewDecoder(codec)

		pcm, decoded, err := d.Decode(ctx, frame.RawFrame{-1, -1, -1})
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if decoded {
			t.Fatal("frame with every channel invalid must be skipped")
		}
		if pcm != nil {
			t.Errorf("skipped frame must yield no samples, got %v", pcm)
		}
		if codec.calls != 0 {
			t.Errorf("codec invoked %d times for a skipped frame, want 0", codec.calls)
		}
	})

	t.Run("mixed sentinel channels error", func(t *testing.T) {
		codec := &stubCodec{block: []float32{0}}
		d := frame.NewDecoder(codec)

		_, _, err := d.Decode(ctx, frame.RawFrame{5, -1, 7})
		if err == nil {
			t.Fatal("frame with a partial sentinel must fail")
		}
		if codec.calls != 0 {
			t.Errorf("codec invoked %d times for an invalid frame, want 0", codec.calls)
		}
	})

	t.Run("empty frame error", func(t *testing.T) {
		d := frame.NewDecoder(&stubCodec{})
		if _, _, err := d.Decode(ctx, frame.RawFrame{}); err == nil {
			t.Fatal("empty frame must fail")
		}
	})

	t.Run("codec error propagates", func(t *testing.T) {
		want := errors.New("inference failed")
		d := frame.NewDecoder(&stubCodec{err: want})

		_, _, err := d.Decode(ctx, frame.RawFrame{1, 2})
		if !errors.Is(err, want) {
			t.Fatalf("Decode error = %v, want wrapped %v", err, want)
		}
	})

	t.Run("samples clamped to unit range", func(t *testing.T) {
		codec := &stubCodec{block: []float32{2.5, -3.0, 0.5}}
		d := frame.NewDecoder(codec)

		pcm, _, err := d.Decode(ctx, frame.RawFrame{1})
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		for i, s := range pcm {
			if s < -1 || s > 1 {
				t.Errorf("sample %d = %v outside [-1, 1]", i, s)
			}
		}
		if pcm[0] != 1 || pcm[1] != -1 || pcm[2] != 0.5 {
			t.Errorf("clamped samples = %v, want [1 -1 0.5]", pcm)
		}
	})
}

func TestRawFrame_Valid(t *testing.T) {
	cases := []struct {
		name  string
		f     frame.RawFrame
		valid bool
	}{
		{"all positive", frame.RawFrame{1, 2, 3}, true},
		{"zero tokens", frame.RawFrame{0, 0}, true},
		{"all sentinel", frame.RawFrame{-1, -1}, false},
		{"empty", frame.RawFrame{}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.f.Valid(); got != tc.valid {
				t.Errorf("Valid() = %v, want %v", got, tc.valid)
			}
		})
	}
}
