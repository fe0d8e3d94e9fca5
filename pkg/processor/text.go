package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/eventscope/pkg/extract"
)

// Text processes plain text and email inputs. LLM extraction failures degrade
// to regex extraction rather than failing the run.
type Text struct {
	parser Parser
}

// NewText creates a text processor
func NewText(parser Parser) *Text {
	return &Text{parser: parser}
}

// Process extracts an event candidate from raw text
func (p *Text) Process(ctx context.Context, req Request) (Result, error) {
	started := time.Now()
	text := req.Classified.RawInput
	if text == "" {
		return Result{Status: StatusFailed}, fmt.Errorf("empty text input")
	}

	var result Result
	candidate, err := p.parser.Parse(ctx, extract.Request{Kind: extract.KindText, Text: text})
	method := MethodLLM
	if err != nil {
		lgr.Printf("[WARN] llm extraction failed, falling back to regex: %v", err)
		candidate = extract.FallbackFromText(text)
		method = MethodFallback
	}

	candidate.Source = req.Source
	candidate.UserID = req.UserID
	candidate.InputType = req.Classified.Type
	candidate.RawInput = text

	if candidate.IsEmpty() {
		result.Status = StatusFailed
		result.Elapsed = time.Since(started)
		return result, fmt.Errorf("no event data extracted from text")
	}

	finalize(&result, candidate, method, started)
	return result, nil
}
