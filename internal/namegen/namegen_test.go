package namegen_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rolentle/toolchest/internal/namegen"
)

func TestSanitize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "hello world", "hello_world"},
		{"uppercase", "Hello World", "hello_world"},
		{"hyphens", "climate-change-report", "climate_change_report"},
		{"punctuation stripped", "what's up, doc?!", "whats_up_doc"},
		{"collapse underscores", "a  -  b", "a_b"},
		{"trim underscores", "__edges__", "edges"},
		{"empty", "!!!", ""},
		{"length capped", strings.Repeat("a", 80), strings.Repeat("a", 50)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := namegen.Sanitize(tc.in); got != tc.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestFromContent_Ollama(t *testing.T) {
	var gotPath string
	var gotReq map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(map[string]any{
			"response": "Solar Panel Installation Guide",
			"done":     true,
		})
	}))
	defer srv.Close()

	g := &namegen.Generator{Endpoint: srv.URL, Model: "gemma2:latest"}
	name := g.FromContent(context.Background(), "how to install solar panels", "ignored title")

	if name != "solar_panel_installation_guide.wav" {
		t.Errorf("FromContent = %q, want solar_panel_installation_guide.wav", name)
	}
	if gotPath != "/api/generate" {
		t.Errorf("request path = %q, want /api/generate", gotPath)
	}
	if gotReq["model"] != "gemma2:latest" {
		t.Errorf("request model = %v, want gemma2:latest", gotReq["model"])
	}
	if gotReq["stream"] != false {
		t.Errorf("request stream = %v, want false", gotReq["stream"])
	}
}

func TestFromContent_TruncatesPromptOnRuneBoundary(t *testing.T) {
	var gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		gotPrompt, _ = req["prompt"].(string)
		json.NewEncoder(w).Encode(map[string]any{"response": "world news", "done": true})
	}))
	defer srv.Close()

	// 400 three-byte runes: the 1000-byte cap lands mid-rune.
	text := strings.Repeat("界", 400)

	g := &namegen.Generator{Endpoint: srv.URL, Model: "gemma2:latest"}
	name := g.FromContent(context.Background(), text, "")

	if name != "world_news.wav" {
		t.Errorf("FromContent = %q, want world_news.wav", name)
	}
	if !utf8.ValidString(gotPrompt) {
		t.Error("prompt sent to ollama is not valid UTF-8")
	}
	if strings.ContainsRune(gotPrompt, utf8.RuneError) {
		t.Error("prompt contains a replacement character from a split rune")
	}
}

func TestFromContent_FallbackToTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := &namegen.Generator{Endpoint: srv.URL, Model: "gemma2:latest"}
	name := g.FromContent(context.Background(), "body text here", "Breaking News: Markets Rally")

	if name != "breaking_news_markets_rally.wav" {
		t.Errorf("FromContent = %q, want title-derived slug", name)
	}
}

func TestFromContent_FallbackToFirstWords(t *testing.T) {
	g := &namegen.Generator{} // no endpoint, ollama skipped
	name := g.FromContent(context.Background(), "the quick brown fox jumps over the lazy dog", "")

	if name != "the_quick_brown_fox_jumps.wav" {
		t.Errorf("FromContent = %q, want first-words slug", name)
	}
}

func TestFromContent_TimestampLastResort(t *testing.T) {
	g := &namegen.Generator{}
	name := g.FromContent(context.Background(), "???", "!!!")

	if !strings.HasPrefix(name, "tts_") || !strings.HasSuffix(name, ".wav") {
		t.Errorf("FromContent = %q, want tts_<timestamp>.wav", name)
	}
}
