package extract

import (
	"regexp"
	"strings"

	"github.com/araddon/dateparse"

	"github.com/umputun/eventscope/pkg/classify"
	"github.com/umputun/eventscope/pkg/domain"
)

// fallback confidence levels; regex extraction is always low-trust
const (
	fallbackConfidence     = 0.3
	pageFallbackConfidence = 0.2
)

// site-name suffixes like " - Venue Name" or " | Site" on page titles
var reTitleSuffix = regexp.MustCompile(`\s*[-|•].*$`)

// FallbackFromText is the regex-based field guesser used when LLM extraction
// fails: first sentence as title, first date/time token as date, a context
// window around a location indicator as location, the raw text as description
func FallbackFromText(text string) domain.EventCandidate {
	candidate := domain.EventCandidate{
		Description:       text,
		ParsingConfidence: fallbackConfidence,
	}

	if token := classify.FirstDateToken(text); token != "" {
		candidate.Date = normalizeToken(token)
	}

	if start, end, ok := classify.FirstLocationMatch(text); ok {
		lo := start - 20
		if lo < 0 {
			lo = 0
		}
		hi := end + 20
		if hi > len(text) {
			hi = len(text)
		}
		candidate.Location = strings.TrimSpace(text[lo:hi])
	}

	if sentences := strings.SplitN(text, ".", 2); len(sentences) > 0 {
		title := strings.TrimSpace(sentences[0])
		if len(title) > 100 {
			title = title[:100]
		}
		candidate.Title = title
	}

	return candidate
}

// FallbackFromPage guesses event fields from a fetched page when LLM
// extraction fails; the page title doubles as the event title with any
// site-name suffix stripped
func FallbackFromPage(body, pageTitle string) domain.EventCandidate {
	candidate := domain.EventCandidate{ParsingConfidence: pageFallbackConfidence}

	if pageTitle != "" && !strings.EqualFold(pageTitle, "untitled") {
		title := strings.TrimSpace(reTitleSuffix.ReplaceAllString(pageTitle, ""))
		if len(title) > 100 {
			title = title[:100]
		}
		candidate.Title = title
	}

	if token := classify.FirstDateToken(body); token != "" {
		candidate.Date = normalizeToken(token)
	}

	clean := strings.Join(strings.Fields(body), " ")
	if len(clean) > 200 {
		clean = clean[:200]
	}
	candidate.Description = clean

	return candidate
}

// normalizeToken tries to coerce a matched date token into the canonical
// "YYYY-MM-DD HH:MM" shape; tokens dateparse cannot handle (like "tomorrow")
// pass through unchanged
func normalizeToken(token string) string {
	t, err := dateparse.ParseAny(token)
	if err != nil {
		return token
	}
	return t.Format("2006-01-02 15:04")
}
