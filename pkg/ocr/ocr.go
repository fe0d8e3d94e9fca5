package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/eventscope/pkg/config"
)

// Result is one OCR pass over an image. Confidence is the engine's average
// word confidence on a 0-100 scale.
type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	WordCount  int     `json:"word_count"`
}

// Engine runs OCR over raw image bytes
type Engine interface {
	Run(ctx context.Context, image []byte) (Result, error)
}

// HTTPEngine talks to an OCR sidecar service (tesseract behind a small HTTP
// shim). The image is posted as-is, the response carries text and confidence.
type HTTPEngine struct {
	cfg    config.OCRConfig
	client *http.Client
}

// NewHTTPEngine creates an engine from OCR config
func NewHTTPEngine(cfg config.OCRConfig) *HTTPEngine {
	return &HTTPEngine{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Run posts image bytes to the OCR service and returns the cleaned result
func (e *HTTPEngine) Run(ctx context.Context, image []byte) (Result, error) {
	if len(image) == 0 {
		return Result{}, fmt.Errorf("empty image")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.Endpoint, bytes.NewReader(image))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := e.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("ocr request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("unexpected ocr status code %d", resp.StatusCode)
	}

	var raw struct {
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return Result{}, fmt.Errorf("decode ocr response: %w", err)
	}

	cleaned := CleanText(raw.Text)
	result := Result{
		Text:       cleaned,
		Confidence: raw.Confidence,
		WordCount:  len(strings.Fields(cleaned)),
	}
	lgr.Printf("[DEBUG] ocr extracted %d words, confidence %.1f", result.WordCount, result.Confidence)
	return result, nil
}

// common digit-for-letter confusions, applied only between letters
var charFixes = map[byte]byte{
	'|': 'I',
	'0': 'O',
	'5': 'S',
	'1': 'I',
	'8': 'B',
}

var reNoiseChar = regexp.MustCompile(`\b[^\w\s]\b`)

// CleanText normalizes whitespace and fixes digit-for-letter OCR confusions
// when the character sits between letters
func CleanText(text string) string {
	if text == "" {
		return ""
	}

	s := []byte(strings.Join(strings.Fields(text), " "))
	for i := 1; i < len(s)-1; i++ {
		fix, ok := charFixes[s[i]]
		if !ok {
			continue
		}
		if isLetter(s[i-1]) && isLetter(s[i+1]) {
			s[i] = fix
		}
	}

	cleaned := reNoiseChar.ReplaceAllString(string(s), "")
	return strings.TrimSpace(strings.Join(strings.Fields(cleaned), " "))
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
