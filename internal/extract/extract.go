// Package extract fetches web pages and pulls out the readable text so it
// can be fed to synthesis: paragraphs, headings, and list items, with
// scripts and styles stripped.
package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Page is the extraction result: the document title (when present) and the
// readable body text, one extracted element per line.
type Page struct {
	Title string
	Text  string
}

// Extractor fetches URLs with a fixed User-Agent and timeout.
type Extractor struct {
	UserAgent  string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// textElements are the tags whose text content is read aloud.
var textElements = map[string]bool{
	"p": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "li": true,
}

// skipElements are subtrees that never contribute text.
var skipElements = map[string]bool{
	"script": true, "style": true,
}

// FromURL fetches the URL and extracts its readable text.
func (e *Extractor) FromURL(ctx context.Context, url string) (Page, error) {
	client := e.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: e.Timeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Page{}, fmt.Errorf("extract: build request: %w", err)
	}
	if e.UserAgent != "" {
		req.Header.Set("User-Agent", e.UserAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("extract: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("extract: fetch %s: unexpected status %s", url, resp.Status)
	}

	page, err := ReadPage(resp.Body)
	if err != nil {
		return Page{}, fmt.Errorf("extract: parse %s: %w", url, err)
	}

	return page, nil
}

// ReadPage parses HTML from r and extracts title and readable text.
func ReadPage(r io.Reader) (Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Page{}, err
	}

	var page Page
	var parts []string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skipElements[n.Data] {
				return
			}
			if n.Data == "title" && page.Title == "" {
				page.Title = strings.TrimSpace(nodeText(n))
				return
			}
			if textElements[n.Data] {
				if t := strings.TrimSpace(nodeText(n)); t != "" {
					parts = append(parts, t)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	page.Text = strings.Join(parts, "\n")

	return page, nil
}

// nodeText collects the text content of a subtree, skipping script/style.
func nodeText(n *html.Node) string {
	var sb strings.Builder

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode && skipElements[n.Data] {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	return strings.Join(strings.Fields(sb.String()), " ")
}
