package processor

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/eventscope/pkg/content"
	"github.com/umputun/eventscope/pkg/domain"
	"github.com/umputun/eventscope/pkg/extract"
)

func TestURL_Process(t *testing.T) {
	fetcher := &fetcherMock{
		fetchFunc: func(_ context.Context, urlStr string) (content.Page, error) {
			assert.Equal(t, "https://example.com/events/jazz", urlStr)
			return content.Page{Title: "Jazz Night | Example Venue", Body: "Jazz night on July 3rd at 8pm"}, nil
		},
	}
	parser := &parserMock{
		parseFunc: func(_ context.Context, req extract.Request) (domain.EventCandidate, error) {
			assert.Equal(t, extract.KindPage, req.Kind)
			assert.Equal(t, "Jazz Night | Example Venue", req.PageTitle)
			return domain.EventCandidate{Title: "Jazz Night", Date: "2025-07-03 20:00", ParsingConfidence: 0.9}, nil
		},
	}

	p := NewURL(fetcher, parser)
	result, err := p.Process(t.Context(), Request{
		Classified: domain.ClassifiedInput{RawInput: "https://example.com/events/jazz", Type: domain.InputURL},
		Source:     "telegram",
		UserID:     "u1",
	})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, MethodLLM, result.Method)
	assert.Equal(t, "Jazz Night", result.Candidate.Title)
	assert.Equal(t, domain.InputURL, result.Candidate.InputType)
	assert.Equal(t, "https://example.com/events/jazz", result.Candidate.RawInput)
}

func TestURL_Process_FetchFailureIsFatal(t *testing.T) {
	fetcher := &fetcherMock{
		fetchFunc: func(_ context.Context, _ string) (content.Page, error) {
			return content.Page{}, fmt.Errorf("connection refused")
		},
	}
	parser := &parserMock{parseFunc: func(_ context.Context, _ extract.Request) (domain.EventCandidate, error) {
		t.Fatal("parser should not be called when fetch fails")
		return domain.EventCandidate{}, nil
	}}

	p := NewURL(fetcher, parser)
	result, err := p.Process(t.Context(), Request{
		Classified: domain.ClassifiedInput{RawInput: "https://down.example.com", Type: domain.InputURL},
	})
	require.Error(t, err)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Contains(t, err.Error(), "fetch page")
}

func TestURL_Process_FallbackOnLLMFailure(t *testing.T) {
	fetcher := &fetcherMock{
		fetchFunc: func(_ context.Context, _ string) (content.Page, error) {
			return content.Page{Title: "Street Fair - City Events", Body: "fair on 07/12/2025 downtown"}, nil
		},
	}
	parser := &parserMock{
		parseFunc: func(_ context.Context, _ extract.Request) (domain.EventCandidate, error) {
			return domain.EventCandidate{}, fmt.Errorf("llm down")
		},
	}

	p := NewURL(fetcher, parser)
	result, err := p.Process(t.Context(), Request{
		Classified: domain.ClassifiedInput{RawInput: "https://example.com/fair", Type: domain.InputURL},
	})
	require.NoError(t, err)

	assert.Equal(t, MethodFallback, result.Method)
	assert.Equal(t, "Street Fair", result.Candidate.Title, "site suffix stripped by page fallback")
	assert.InDelta(t, 0.2, result.Candidate.ParsingConfidence, 0.001)
}
