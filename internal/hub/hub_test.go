package hub_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/rolentle/toolchest/internal/hub"
)

func newHubServer(t *testing.T, files map[string]string) (*httptest.Server, *atomic.Int64) {
	t.Helper()

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		content, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(content))
	}))
	t.Cleanup(srv.Close)

	return srv, &hits
}

func TestClient_Get(t *testing.T) {
	srv, hits := newHubServer(t, map[string]string{
		"/acme/tts-model/resolve/main/config.json": `{"ok":true}`,
	})

	c := &hub.Client{BaseURL: srv.URL, CacheDir: t.TempDir()}
	ctx := context.Background()

	path, err := c.Get(ctx, "acme/tts-model", "config.json")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Errorf("cached content = %q", data)
	}

	// Second fetch is served from the cache.
	if _, err := c.Get(ctx, "acme/tts-model", "config.json"); err != nil {
		t.Fatalf("cached Get: %v", err)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("server hit %d times, want 1 (cache miss only)", got)
	}
}

func TestClient_GetVerified(t *testing.T) {
	const content = "model weights"
	sum := sha256.Sum256([]byte(content))
	goodSHA := hex.EncodeToString(sum[:])

	srv, _ := newHubServer(t, map[string]string{
		"/acme/tts-model/resolve/main/model.onnx": content,
	})

	t.Run("matching checksum", func(t *testing.T) {
		c := &hub.Client{BaseURL: srv.URL, CacheDir: t.TempDir()}
		if _, err := c.GetVerified(context.Background(), "acme/tts-model", "model.onnx", goodSHA); err != nil {
			t.Fatalf("GetVerified: %v", err)
		}
	})

	t.Run("checksum mismatch removes file", func(t *testing.T) {
		c := &hub.Client{BaseURL: srv.URL, CacheDir: t.TempDir()}
		path, err := c.GetVerified(context.Background(), "acme/tts-model", "model.onnx", "deadbeef")
		if err == nil {
			t.Fatal("GetVerified with wrong checksum must fail")
		}
		if path != "" {
			if _, statErr := os.Stat(path); statErr == nil {
				t.Error("corrupt download left in cache")
			}
		}
	})

	t.Run("stale cached file is refetched", func(t *testing.T) {
		cacheDir := t.TempDir()
		c := &hub.Client{BaseURL: srv.URL, CacheDir: cacheDir}
		ctx := context.Background()

		path, err := c.Get(ctx, "acme/tts-model", "model.onnx")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if err := os.WriteFile(path, []byte("truncated"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}

		path, err = c.GetVerified(ctx, "acme/tts-model", "model.onnx", goodSHA)
		if err != nil {
			t.Fatalf("GetVerified after corruption: %v", err)
		}
		data, _ := os.ReadFile(path)
		if string(data) != content {
			t.Errorf("refetched content = %q, want %q", data, content)
		}
	})
}

func TestClient_GetErrors(t *testing.T) {
	srv, _ := newHubServer(t, nil)
	c := &hub.Client{BaseURL: srv.URL, CacheDir: t.TempDir()}
	ctx := context.Background()

	if _, err := c.Get(ctx, "", "file"); err == nil {
		t.Error("empty repo must fail")
	}
	if _, err := c.Get(ctx, "repo", ""); err == nil {
		t.Error("empty filename must fail")
	}
	if _, err := c.Get(ctx, "acme/missing", "nope.bin"); err == nil {
		t.Error("404 from the hub must fail")
	}
}

func TestClient_GatedRepo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte("gated content"))
	}))
	defer srv.Close()

	ctx := context.Background()

	c := &hub.Client{BaseURL: srv.URL, CacheDir: t.TempDir()}
	if _, err := c.Get(ctx, "acme/gated", "file.bin"); err == nil {
		t.Fatal("unauthenticated fetch of a gated repo must fail")
	}

	c.Token = "secret"
	if _, err := c.Get(ctx, "acme/gated", "file.bin"); err != nil {
		t.Fatalf("authenticated fetch: %v", err)
	}
}
