package extract

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/sashabaranov/go-openai"

	"github.com/umputun/eventscope/pkg/config"
	"github.com/umputun/eventscope/pkg/domain"
)

// Kind selects the prompt variant for extraction
type Kind string

// extraction prompt variants
const (
	KindText Kind = "text" // free text typed by the user
	KindOCR  Kind = "ocr"  // text recovered from an image, may carry OCR errors
	KindPage Kind = "page" // webpage title and body
)

// Request describes one extraction call
type Request struct {
	Kind      Kind
	Text      string
	PageTitle string // page variant only
}

// Extractor turns unstructured text into an event candidate using an
// OpenAI-compatible model. It also serves as the tier-3 classification
// capability for the classifier.
type Extractor struct {
	client *openai.Client
	cfg    config.LLMConfig
	loc    *time.Location
	now    func() time.Time
}

// New creates an extractor from LLM config
func New(cfg config.LLMConfig) *Extractor {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = cfg.Endpoint
	}
	if cfg.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		lgr.Printf("[WARN] invalid timezone %q, using UTC: %v", cfg.Timezone, err)
		loc = time.UTC
	}

	return &Extractor{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
		loc:    loc,
		now:    time.Now,
	}
}

// Parse runs one extraction call and returns the parsed candidate.
// The model response is parsed tolerantly; an unparseable response is an
// error, callers fall back to regex extraction.
func (e *Extractor) Parse(ctx context.Context, req Request) (domain.EventCandidate, error) {
	if strings.TrimSpace(req.Text) == "" {
		return domain.EventCandidate{}, fmt.Errorf("no text to parse")
	}

	prompt := e.buildPrompt(req)

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.cfg.Model,
		Temperature: float32(e.cfg.Temperature),
		MaxTokens:   e.cfg.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return domain.EventCandidate{}, fmt.Errorf("llm request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.EventCandidate{}, fmt.Errorf("no response from llm")
	}

	candidate, err := parseCandidate(resp.Choices[0].Message.Content)
	if err != nil {
		return domain.EventCandidate{}, fmt.Errorf("parse llm response: %w", err)
	}

	lgr.Printf("[DEBUG] extracted candidate: title=%q date=%q confidence=%.2f",
		candidate.Title, candidate.Date, candidate.ParsingConfidence)
	return candidate, nil
}

// ClassifyInput asks the model to type ambiguous input; implements the
// classifier's tier-3 capability
func (e *Extractor) ClassifyInput(ctx context.Context, rawInput string) (domain.InputType, error) {
	prompt := fmt.Sprintf(`Classify the following input as exactly one of: url, text, image, email.
Reply with the single classification word only, nothing else.

Input:
%s`, rawInput)

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.cfg.Model,
		Temperature: 0,
		MaxTokens:   10,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return domain.InputUnknown, fmt.Errorf("llm classification failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.InputUnknown, fmt.Errorf("no response from llm")
	}

	answer := strings.ToLower(strings.TrimSpace(resp.Choices[0].Message.Content))
	switch {
	case strings.Contains(answer, "url"):
		return domain.InputURL, nil
	case strings.Contains(answer, "email"):
		return domain.InputEmail, nil
	case strings.Contains(answer, "image"):
		return domain.InputImage, nil
	case strings.Contains(answer, "text"):
		return domain.InputText, nil
	}
	return domain.InputText, nil // unrecognized answers default to text
}
