// Package testutil provides shared skip helpers and WAV assertions for
// integration tests.
//
// Each skip helper calls t.Skip with a clear human-readable reason when the
// named prerequisite is absent, so integration tests remain runnable in
// partial environments without failing noisily.
//
// Typical usage:
//
//	func TestMyIntegration(t *testing.T) {
//	    testutil.RequireONNXRuntime(t)
//	    testutil.RequireAudioDevice(t)
//	    ...
//	}
package testutil

import (
	"context"
	"net/http"
	"os"
	"os/exec"
	"testing"
	"time"
)

// RequirePocketTTS skips the test if the pocket-tts binary is not found in
// PATH or the path given by the TOOLCHEST_TOOLS_CLI_PATH environment variable.
func RequirePocketTTS(tb testing.TB) {
	tb.Helper()

	exe := os.Getenv("TOOLCHEST_TOOLS_CLI_PATH")
	if exe == "" {
		exe = "pocket-tts"
	}

	_, err := exec.LookPath(exe)
	if err != nil {
		tb.Skipf("pocket-tts binary not available (%q not in PATH); set TOOLCHEST_TOOLS_CLI_PATH to override", exe)
	}
}

// RequireONNXRuntime skips the test if no ONNX Runtime shared library can be
// located. It checks (in order): the ORT_LIBRARY_PATH env var, then the
// TOOLCHEST_ORT_LIB env var, then common system library paths.
func RequireONNXRuntime(tb testing.TB) {
	tb.Helper()

	for _, env := range []string{"ORT_LIBRARY_PATH", "TOOLCHEST_ORT_LIB"} {
		if p := os.Getenv(env); p != "" {
			_, err := os.Stat(p)
			if err == nil {
				return // found
			}

			tb.Skipf("ONNX Runtime library not found at %s=%q", env, p)
		}
	}
	// Fall back to common system locations.
	candidates := []string{
		"/usr/lib/libonnxruntime.so",
		"/usr/local/lib/libonnxruntime.so",
		"/usr/lib/x86_64-linux-gnu/libonnxruntime.so",
	}
	for _, p := range candidates {
		_, err := os.Stat(p)
		if err == nil {
			return // found
		}
	}

	tb.Skip("ONNX Runtime shared library not found; set ORT_LIBRARY_PATH or TOOLCHEST_ORT_LIB")
}

// RequireAudioDevice skips the test unless TOOLCHEST_TEST_AUDIO is set.
// Opening a real output device fails on headless CI, so device-level tests
// are opt-in.
func RequireAudioDevice(tb testing.TB) {
	tb.Helper()

	if os.Getenv("TOOLCHEST_TEST_AUDIO") == "" {
		tb.Skip("audio device tests disabled; set TOOLCHEST_TEST_AUDIO=1 to enable")
	}
}

// RequireOllama skips the test if no Ollama server answers at endpoint
// within a short timeout.
func RequireOllama(tb testing.TB, endpoint string) {
	tb.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		tb.Skipf("invalid Ollama endpoint %q: %v", endpoint, err)
		return
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		tb.Skipf("Ollama server not reachable at %q: %v", endpoint, err)
		return
	}
	_ = resp.Body.Close()
}

// RequireNetwork skips the test unless TOOLCHEST_TEST_NETWORK is set. Tests
// that download checkpoints from Hugging Face are opt-in.
func RequireNetwork(tb testing.TB) {
	tb.Helper()

	if os.Getenv("TOOLCHEST_TEST_NETWORK") == "" {
		tb.Skip("network tests disabled; set TOOLCHEST_TEST_NETWORK=1 to enable")
	}
}
