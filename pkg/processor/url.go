package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/eventscope/pkg/content"
	"github.com/umputun/eventscope/pkg/extract"
)

// PageFetcher retrieves a web page's readable content; satisfied by
// content.Fetcher
type PageFetcher interface {
	Fetch(ctx context.Context, urlStr string) (content.Page, error)
}

// URL processes web-link inputs: fetch the page, extract the event with the
// LLM, regex fallback on extraction failure. A failed fetch is fatal since
// there is nothing to parse.
type URL struct {
	fetcher PageFetcher
	parser  Parser
}

// NewURL creates a URL processor
func NewURL(fetcher PageFetcher, parser Parser) *URL {
	return &URL{fetcher: fetcher, parser: parser}
}

// Process fetches the page and extracts an event candidate from it
func (p *URL) Process(ctx context.Context, req Request) (Result, error) {
	started := time.Now()
	urlStr := req.Classified.RawInput

	page, err := p.fetcher.Fetch(ctx, urlStr)
	if err != nil {
		return Result{Status: StatusFailed, Elapsed: time.Since(started)},
			fmt.Errorf("fetch page: %w", err)
	}

	var result Result
	candidate, err := p.parser.Parse(ctx, extract.Request{
		Kind:      extract.KindPage,
		Text:      page.Body,
		PageTitle: page.Title,
	})
	method := MethodLLM
	if err != nil {
		lgr.Printf("[WARN] llm extraction failed for %s, falling back to regex: %v", urlStr, err)
		candidate = extract.FallbackFromPage(page.Body, page.Title)
		method = MethodFallback
	}

	candidate.Source = req.Source
	candidate.UserID = req.UserID
	candidate.InputType = req.Classified.Type
	candidate.RawInput = urlStr

	if candidate.IsEmpty() {
		result.Status = StatusFailed
		result.Elapsed = time.Since(started)
		return result, fmt.Errorf("no event data extracted from %s", urlStr)
	}

	finalize(&result, candidate, method, started)
	return result, nil
}
