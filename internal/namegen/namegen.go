// Package namegen produces descriptive WAV filenames from synthesized
// content, asking a local Ollama model first and falling back to a
// deterministic slug when it is unavailable.
package namegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MaxFilenameLength bounds the generated stem (extension excluded).
	MaxFilenameLength = 50
	// maxPromptText bounds how much content is sent to the model.
	maxPromptText = 1000
	// fallbackWords is how many leading words the offline slug keeps.
	fallbackWords = 5
)

const promptTemplate = `Generate a short, descriptive filename (3-5 words) for an audio file containing the following text.
The filename should capture the main topic or theme.
Use only lowercase letters, numbers, and underscores.
Do not include file extensions or special characters.

Text: %s

Filename:`

// Generator names output files after their content.
type Generator struct {
	Endpoint string
	Model    string
	Timeout  time.Duration
	Log      *slog.Logger

	// HTTPClient defaults to a client with Timeout.
	HTTPClient *http.Client
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// FromContent returns a "<slug>.wav" filename for the given text. Ollama
// failures are logged and absorbed: the caller always gets a usable name.
func (g *Generator) FromContent(ctx context.Context, text, title string) string {
	log := g.Log
	if log == nil {
		log = slog.Default()
	}

	if name, err := g.fromOllama(ctx, text); err == nil {
		return name + ".wav"
	} else {
		log.Warn("filename generation via ollama failed, using fallback", "error", err)
	}

	if slug := Sanitize(title); slug != "" {
		return slug + ".wav"
	}
	if slug := firstWordsSlug(text); slug != "" {
		return slug + ".wav"
	}

	return "tts_" + time.Now().Format("20060102_150405") + ".wav"
}

func (g *Generator) fromOllama(ctx context.Context, text string) (string, error) {
	if g.Endpoint == "" {
		return "", fmt.Errorf("no ollama endpoint configured")
	}

	if len(text) > maxPromptText {
		// Back up to a rune boundary so the cut never splits a UTF-8 sequence.
		cut := maxPromptText
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	payload := generateRequest{
		Model:  g.Model,
		Prompt: fmt.Sprintf(promptTemplate, text),
		Stream: false,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	timeout := g.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, strings.TrimSuffix(g.Endpoint, "/")+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	client := g.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("ollama returned status %s", resp.Status)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}

	slug := Sanitize(out.Response)
	if slug == "" {
		return "", fmt.Errorf("ollama produced no usable filename from %q", out.Response)
	}

	return slug, nil
}

var invalidChars = regexp.MustCompile(`[^a-z0-9_]+`)

// Sanitize reduces arbitrary model output to a filesystem-safe slug:
// lowercase letters, digits and underscores, trimmed to MaxFilenameLength.
func Sanitize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = invalidChars.ReplaceAllString(s, "")
	s = strings.Trim(s, "_")

	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}

	if len(s) > MaxFilenameLength {
		s = strings.Trim(s[:MaxFilenameLength], "_")
	}

	return s
}

func firstWordsSlug(text string) string {
	words := strings.Fields(text)
	if len(words) > fallbackWords {
		words = words[:fallbackWords]
	}

	return Sanitize(strings.Join(words, "_"))
}
