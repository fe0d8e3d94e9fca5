package ocr

import (
	"fmt"
	"regexp"
	"strings"
)

// quality recommendation values
const (
	RecommendProceed      = "proceed"
	RecommendManualReview = "manual_review"
	RecommendPoorQuality  = "image_quality_poor"
	RecommendNoText       = "no_text_detected"
	RecommendError        = "error"
)

// Validation is the quality verdict for one OCR result
type Validation struct {
	IsReliable     bool
	Confidence     float64
	Recommendation string
	Reason         string
}

// Validate decides whether an OCR result is trustworthy enough for automatic
// extraction. Reliability requires the configured confidence, at least three
// words, and text that looks like language rather than noise.
func Validate(result Result, minConfidence float64) Validation {
	readable := hasReadablePatterns(result.Text)
	reliable := result.Confidence >= minConfidence && result.WordCount >= 3 && readable

	recommendation := RecommendManualReview
	switch {
	case reliable:
		recommendation = RecommendProceed
	case result.Confidence < 30:
		recommendation = RecommendPoorQuality
	case result.WordCount < 2:
		recommendation = RecommendNoText
	}

	pattern := "fail"
	if readable {
		pattern = "pass"
	}

	return Validation{
		IsReliable:     reliable,
		Confidence:     result.Confidence,
		Recommendation: recommendation,
		Reason: fmt.Sprintf("Confidence: %.1f%%, Words: %d, Pattern check: %s",
			result.Confidence, result.WordCount, pattern),
	}
}

// vocabulary a flyer or announcement is likely to contain
var readableKeywords = []string{
	// event words
	"event", "show", "concert", "festival", "workshop", "class", "meeting",
	"party", "celebration", "conference", "seminar", "exhibition", "fair",
	"market", "sale", "performance", "theater", "dance", "music", "art",
	"food", "drink", "dinner", "lunch", "breakfast", "brunch",
	// time and date words
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
	"january", "february", "march", "april", "may", "june", "july", "august",
	"september", "october", "november", "december", "today", "tomorrow",
	"tonight", "morning", "afternoon", "evening", "night", "am", "pm",
	"time", "date", "when", "where", "what", "who",
	// location words
	"at", "in", "on", "near", "downtown", "center", "hall", "room", "building",
	"street", "avenue", "road", "drive", "venue", "location", "address",
	"park", "plaza", "square", "auditorium", "stadium", "arena",
}

var (
	reVowel     = regexp.MustCompile(`[aeiou]`)
	reConsonant = regexp.MustCompile(`[bcdfghjklmnpqrstvwxyz]`)
	reDigit     = regexp.MustCompile(`\d`)
)

// hasReadablePatterns reports whether text looks like language: either a known
// keyword, or a vowel/consonant/space mix, or digits with spaces (dates,
// times, addresses)
func hasReadablePatterns(text string) bool {
	if len(text) < 3 {
		return false
	}

	lower := strings.ToLower(text)
	for _, kw := range readableKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}

	hasSpaces := strings.Contains(text, " ")
	if reVowel.MatchString(lower) && reConsonant.MatchString(lower) && hasSpaces {
		return true
	}
	return reDigit.MatchString(text) && hasSpaces
}
