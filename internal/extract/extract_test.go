package extract_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rolentle/toolchest/internal/extract"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <title>  The Article  </title>
  <style>p { color: red }</style>
</head>
<body>
  <h1>Main   Heading</h1>
  <p>First paragraph with <b>bold</b> text.</p>
  <script>console.log("never read aloud")</script>
  <ul>
    <li>Item one</li>
    <li>Item two</li>
  </ul>
  <div>Loose div text is ignored.</div>
  <p></p>
</body>
</html>`

func TestReadPage(t *testing.T) {
	page, err := extract.ReadPage(strings.NewReader(samplePage))
	if err != nil {
		t.Fatalf("ReadPage: %v", err)
	}

	if page.Title != "The Article" {
		t.Errorf("Title = %q, want %q", page.Title, "The Article")
	}

	want := []string{
		"Main Heading",
		"First paragraph with bold text.",
		"Item one",
		"Item two",
	}
	got := strings.Split(page.Text, "\n")
	if len(got) != len(want) {
		t.Fatalf("extracted %d lines, want %d:\n%s", len(got), len(want), page.Text)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}

	if strings.Contains(page.Text, "console.log") {
		t.Error("script content leaked into extracted text")
	}
	if strings.Contains(page.Text, "Loose div") {
		t.Error("non-readable element leaked into extracted text")
	}
}

func TestFromURL(t *testing.T) {
	const ua = "test-agent/1.0"

	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	ex := &extract.Extractor{UserAgent: ua}
	page, err := ex.FromURL(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FromURL: %v", err)
	}

	if gotUA != ua {
		t.Errorf("request User-Agent = %q, want %q", gotUA, ua)
	}
	if page.Title != "The Article" {
		t.Errorf("Title = %q, want %q", page.Title, "The Article")
	}
}

func TestFromURL_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	ex := &extract.Extractor{}
	if _, err := ex.FromURL(context.Background(), srv.URL); err == nil {
		t.Error("404 response must fail extraction")
	}
}
