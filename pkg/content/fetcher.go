package content

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-pkgz/lgr"
	"github.com/markusmobius/go-trafilatura"

	"github.com/umputun/eventscope/pkg/config"
)

// Page is the readable part of a fetched web page
type Page struct {
	Title string
	Body  string
}

// Fetcher retrieves event pages and extracts their readable content with
// trafilatura. Body size is capped so downstream prompts stay bounded.
type Fetcher struct {
	cfg    config.FetchConfig
	client *http.Client
}

// NewFetcher creates a page fetcher from fetch config
func NewFetcher(cfg config.FetchConfig) *Fetcher {
	return &Fetcher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Fetch retrieves urlStr and extracts title and main text. Event pages are
// often listing pages rather than articles, so the trafilatura fallback
// extraction is enabled.
func (f *Fetcher) Fetch(ctx context.Context, urlStr string) (Page, error) {
	if !strings.HasPrefix(urlStr, "http://") && !strings.HasPrefix(urlStr, "https://") {
		urlStr = "https://" + urlStr
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return Page{}, fmt.Errorf("parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return Page{}, fmt.Errorf("invalid URL: %s", urlStr)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, http.NoBody)
	if err != nil {
		return Page{}, fmt.Errorf("create request: %w", err)
	}
	f.setHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("fetch URL %s: %w", urlStr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("unexpected status code %d for URL %s", resp.StatusCode, urlStr)
	}

	opts := trafilatura.Options{
		EnableFallback:  true,
		ExcludeComments: true,
		ExcludeTables:   false,
		IncludeImages:   false,
		IncludeLinks:    false,
		Deduplicate:     true,
		OriginalURL:     parsedURL,
	}

	result, err := trafilatura.Extract(resp.Body, opts)
	if err != nil {
		return Page{}, fmt.Errorf("extract content from %s: %w", urlStr, err)
	}
	if result == nil || strings.TrimSpace(result.ContentText) == "" {
		return Page{}, fmt.Errorf("no text content extracted from %s", urlStr)
	}

	page := Page{
		Title: strings.TrimSpace(result.Metadata.Title),
		Body:  strings.TrimSpace(result.ContentText),
	}
	if f.cfg.MaxBodySize > 0 && len(page.Body) > f.cfg.MaxBodySize {
		page.Body = page.Body[:f.cfg.MaxBodySize]
	}

	lgr.Printf("[DEBUG] fetched %s, title=%q, body %d chars", urlStr, page.Title, len(page.Body))
	return page, nil
}

// acceptLanguages are common browser Accept-Language values, picked at random
// per request so repeated fetches don't look scripted
var acceptLanguages = []string{
	"en-US,en;q=0.9",
	"en-GB,en;q=0.9",
	"en-US,en;q=0.9,es;q=0.8",
	"en-US,en;q=0.9,fr;q=0.8",
	"en-US,en;q=0.9,de;q=0.8",
}

func (f *Fetcher) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", acceptLanguages[rand.Intn(len(acceptLanguages))]) //nolint:gosec // non-cryptographic randomness is fine for header variation
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}
