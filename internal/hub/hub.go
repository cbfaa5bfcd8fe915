// Package hub retrieves model and voice assets from Hugging Face style
// repositories, caching them on disk so a session only pays the download
// cost once.
package hub

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// DefaultBaseURL is the Hugging Face resolve endpoint.
const DefaultBaseURL = "https://huggingface.co"

// Client fetches single files from a repo revision into a local cache.
type Client struct {
	// BaseURL overrides the hub endpoint (tests point it at a local server).
	BaseURL string
	// CacheDir holds downloaded files, keyed by repo and filename. Empty
	// selects <user cache dir>/toolchest/hub.
	CacheDir string
	// Token is an optional access token for gated repos.
	Token string
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// Get returns a local path for filename within repo, downloading it on
// first use. Repos are always resolved at the "main" revision.
func (c *Client) Get(ctx context.Context, repo, filename string) (string, error) {
	return c.GetVerified(ctx, repo, filename, "")
}

// GetVerified behaves like Get and additionally checks the file against a
// hex SHA-256 checksum when one is given. A cached file that fails the
// check is re-downloaded once.
func (c *Client) GetVerified(ctx context.Context, repo, filename, sha256Hex string) (string, error) {
	if repo == "" {
		return "", fmt.Errorf("hub: repo is required")
	}
	if filename == "" {
		return "", fmt.Errorf("hub: filename is required")
	}

	cacheDir, err := c.cacheDir()
	if err != nil {
		return "", err
	}

	localPath := filepath.Join(cacheDir, sanitizeRepo(repo), filepath.FromSlash(filename))

	if ok, err := existingMatches(localPath, sha256Hex); err != nil {
		return "", err
	} else if ok {
		return localPath, nil
	}

	if err := c.download(ctx, repo, filename, localPath); err != nil {
		return "", err
	}

	if sha256Hex != "" {
		actual, err := fileSHA256(localPath)
		if err != nil {
			return "", err
		}
		if !strings.EqualFold(actual, sha256Hex) {
			_ = os.Remove(localPath)
			return "", fmt.Errorf("hub: checksum mismatch for %s/%s: expected %s got %s", repo, filename, sha256Hex, actual)
		}
	}

	return localPath, nil
}

func (c *Client) download(ctx context.Context, repo, filename, localPath string) error {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}

	url := fmt.Sprintf("%s/%s/resolve/main/%s", strings.TrimSuffix(base, "/"), repo, filename)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("hub: build request: %w", err)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("hub: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("hub: access denied for %s (gated repo? set an access token)", repo)
	default:
		return fmt.Errorf("hub: fetch %s: unexpected status %s", url, resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("hub: create cache dir: %w", err)
	}

	// Download to a temp file and rename so a partial fetch never poses as
	// a cached asset.
	tmp, err := os.CreateTemp(filepath.Dir(localPath), ".download-*")
	if err != nil {
		return fmt.Errorf("hub: create temp file: %w", err)
	}

	_, err = io.Copy(tmp, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("hub: download %s: %w", filename, err)
	}

	if err := os.Rename(tmp.Name(), localPath); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("hub: finalize %s: %w", filename, err)
	}

	return nil
}

func (c *Client) cacheDir() (string, error) {
	if c.CacheDir != "" {
		return c.CacheDir, nil
	}

	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("hub: resolve cache dir: %w", err)
	}

	return filepath.Join(base, "toolchest", "hub"), nil
}

func existingMatches(path, sha256Hex string) (bool, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("hub: stat %s: %w", path, err)
	}
	if fi.IsDir() {
		return false, fmt.Errorf("hub: %s is a directory", path)
	}

	if sha256Hex == "" {
		return true, nil
	}

	actual, err := fileSHA256(path)
	if err != nil {
		return false, err
	}

	return strings.EqualFold(actual, sha256Hex), nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hub: open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hub: hash %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func sanitizeRepo(repo string) string {
	return strings.ReplaceAll(repo, "/", "--")
}
