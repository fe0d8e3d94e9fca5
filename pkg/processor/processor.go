package processor

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/umputun/eventscope/pkg/domain"
	"github.com/umputun/eventscope/pkg/extract"
	"github.com/umputun/eventscope/pkg/ocr"
)

// processing status values
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// parsing method values recorded in results
const (
	MethodLLM            = "llm"
	MethodFallback       = "fallback_regex"
	MethodPoorQuality    = "failed_poor_quality"
	MethodNoText         = "failed_no_text"
	MethodFailed         = "failed"
	MethodLowConfidence  = "ocr_low_confidence"
	MethodOCRUnavailable = "failed_ocr_unavailable"
)

// Request is one classified input handed to a processor
type Request struct {
	Classified domain.ClassifiedInput
	Source     string
	UserID     string
	ChatID     int64
}

// Result is the outcome of one processor run. OCR fields are set only for
// image inputs.
type Result struct {
	Candidate       domain.EventCandidate
	ValidationScore float64
	Method          string
	Status          string
	Elapsed         time.Duration

	OCR           *ocr.Result
	OCRValidation *ocr.Validation

	// set when the input can't be handled automatically and the user has to
	// supply details or a better image
	RequiresUserInput bool
	UserMessage       string
}

// Processor extracts an event candidate from one kind of classified input
type Processor interface {
	Process(ctx context.Context, req Request) (Result, error)
}

// Parser runs LLM extraction; satisfied by extract.Extractor
type Parser interface {
	Parse(ctx context.Context, req extract.Request) (domain.EventCandidate, error)
}

// validateCandidate scores field completeness on a 0-1 scale: the fraction of
// the four fields present, with small bonuses for fields that look substantive
func validateCandidate(c domain.EventCandidate) float64 {
	fields := []string{c.Title, c.Date, c.Location, c.Description}
	present := 0
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			present++
		}
	}
	score := float64(present) / float64(len(fields))

	if len(c.Title) > 5 && !isAllUpper(c.Title) {
		score += 0.1
	}
	if strings.ContainsFunc(c.Date, unicode.IsDigit) {
		score += 0.1
	}
	if len(c.Location) > 3 {
		score += 0.1
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// isAllUpper reports whether s has letters and all of them are uppercase
func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

// finalize fills the common result fields from the extracted candidate
func finalize(result *Result, candidate domain.EventCandidate, method string, started time.Time) {
	result.Candidate = candidate
	result.Method = method
	result.ValidationScore = validateCandidate(candidate)
	result.Status = StatusCompleted
	result.Elapsed = time.Since(started)
}
