package testutil_test

import (
	"os"
	"testing"

	"github.com/rolentle/toolchest/internal/audio"
	"github.com/rolentle/toolchest/internal/testutil"
)

func TestRequirePocketTTS_SkipsWhenAbsent(t *testing.T) {
	// Temporarily point the binary lookup at something that cannot exist.
	orig := os.Getenv("TOOLCHEST_TOOLS_CLI_PATH")
	t.Setenv("TOOLCHEST_TOOLS_CLI_PATH", "/nonexistent/pocket-tts-binary")
	defer func() {
		if orig == "" {
			os.Unsetenv("TOOLCHEST_TOOLS_CLI_PATH")
		}
	}()

	skipped := false
	fakeT := &skipTracker{TB: t, onSkip: func() { skipped = true }}
	testutil.RequirePocketTTS(fakeT)
	if !skipped {
		t.Error("expected RequirePocketTTS to skip when binary is absent")
	}
}

func TestRequireONNXRuntime_SkipsWhenAbsent(t *testing.T) {
	// Ensure env vars point nowhere.
	t.Setenv("ORT_LIBRARY_PATH", "/nonexistent/libonnxruntime.so")

	skipped := false
	fakeT := &skipTracker{TB: t, onSkip: func() { skipped = true }}
	testutil.RequireONNXRuntime(fakeT)
	if !skipped {
		t.Error("expected RequireONNXRuntime to skip when library is absent")
	}
}

func TestRequireAudioDevice_SkipsByDefault(t *testing.T) {
	t.Setenv("TOOLCHEST_TEST_AUDIO", "")

	skipped := false
	fakeT := &skipTracker{TB: t, onSkip: func() { skipped = true }}
	testutil.RequireAudioDevice(fakeT)
	if !skipped {
		t.Error("expected RequireAudioDevice to skip without TOOLCHEST_TEST_AUDIO")
	}
}

func TestAssertValidWAV_AcceptsEncoderOutput(t *testing.T) {
	samples := make([]float32, audio.ExpectedSampleRate/2) // 500 ms of silence
	data, err := audio.EncodeWAV(samples)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}

	testutil.AssertValidWAV(t, data)
	testutil.AssertWAVDurationApprox(t, data, 0.45, 0.55)
}

// skipTracker is a minimal testing.TB implementation that intercepts Skip calls.
type skipTracker struct {
	testing.TB
	onSkip func()
}

func (s *skipTracker) Helper() {}

func (s *skipTracker) Skip(_ ...any) {
	s.onSkip()
}

func (s *skipTracker) Skipf(_ string, _ ...any) {
	s.onSkip()
	// Do NOT call s.TB.Skip, that would actually skip the outer test.
}
