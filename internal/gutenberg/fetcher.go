package gutenberg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"storyquiz-service/internal/config"
	"storyquiz-service/internal/models"
)

// Story ids carry a 2-letter archive prefix followed by the archive's numeric
// id. Only the GB (Project Gutenberg) archive is wired; OL is a recognized
// prefix reserved for a future fetcher.
var storyIDPattern = regexp.MustCompile(`^(GB|OL)\d+$`)

const (
	metadataTimeout = 5 * time.Second
	contentTimeout  = 10 * time.Second
)

// Fetcher reads story metadata and plain text from a Gutendex-style archive
// API. It performs no caching; quiz-level caching happens in the store.
type Fetcher struct {
	metaClient *http.Client
	bodyClient *http.Client
	baseURL    string
}

func NewFetcher(cfg *config.Config) *Fetcher {
	return &Fetcher{
		metaClient: &http.Client{Timeout: metadataTimeout},
		bodyClient: &http.Client{Timeout: contentTimeout},
		baseURL:    strings.TrimSuffix(cfg.ArchiveBaseURL, "/"),
	}
}

type bookMetadata struct {
	Title   string            `json:"title"`
	Formats map[string]string `json:"formats"`
}

// FetchStory resolves a story id to its title and full plain text.
func (f *Fetcher) FetchStory(ctx context.Context, storyID string) (string, string, error) {
	if !storyIDPattern.MatchString(storyID) {
		return "", "", fmt.Errorf("%w: %q", models.ErrInvalidIdentifier, storyID)
	}
	if !strings.HasPrefix(storyID, "GB") {
		return "", "", fmt.Errorf("%w: archive %q is not supported", models.ErrInvalidIdentifier, storyID[:2])
	}

	meta, err := f.fetchMetadata(ctx, strings.TrimPrefix(storyID, "GB"))
	if err != nil {
		return "", "", err
	}

	textURL := selectPlainTextURL(meta.Formats)
	if textURL == "" {
		return "", "", fmt.Errorf("%w: no plain-text format for %s", models.ErrNotFound, storyID)
	}

	text, err := f.fetchText(ctx, textURL)
	if err != nil {
		return "", "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", "", fmt.Errorf("%w: story %s has empty content", models.ErrNotFound, storyID)
	}

	return meta.Title, text, nil
}

func (f *Fetcher) fetchMetadata(ctx context.Context, bookID string) (*bookMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/books/"+bookID, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.metaClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: archive metadata lookup", models.ErrUpstreamTimeout)
		}
		return nil, fmt.Errorf("%w: archive metadata lookup failed", models.ErrNotFound)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: archive returned status %d", models.ErrNotFound, resp.StatusCode)
	}

	var meta bookMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("%w: unreadable archive metadata", models.ErrNotFound)
	}
	return &meta, nil
}

func (f *Fetcher) fetchText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := f.bodyClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("%w: story content download", models.ErrUpstreamTimeout)
		}
		return "", fmt.Errorf("%w: story content download failed", models.ErrNotFound)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: content returned status %d", models.ErrNotFound, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("%w: story content download", models.ErrUpstreamTimeout)
		}
		return "", err
	}
	return string(body), nil
}

// selectPlainTextURL prefers UTF-8 plain text, falling back to any other
// plain-text variant the archive offers. Zipped variants are skipped.
func selectPlainTextURL(formats map[string]string) string {
	if url, ok := formats["text/plain; charset=utf-8"]; ok && !strings.HasSuffix(url, ".zip") {
		return url
	}
	for mime, url := range formats {
		if strings.HasPrefix(mime, "text/plain") && !strings.HasSuffix(url, ".zip") {
			return url
		}
	}
	return ""
}

func isTimeout(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
