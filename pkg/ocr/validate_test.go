package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name           string
		result         Result
		wantReliable   bool
		recommendation string
	}{
		{
			name:           "good flyer text",
			result:         Result{Text: "Jazz Concert Saturday June 21 at City Park", Confidence: 88, WordCount: 8},
			wantReliable:   true,
			recommendation: RecommendProceed,
		},
		{
			name:           "confidence below threshold",
			result:         Result{Text: "Jazz Concert Saturday June 21", Confidence: 55, WordCount: 5},
			wantReliable:   false,
			recommendation: RecommendManualReview,
		},
		{
			name:           "very low confidence",
			result:         Result{Text: "x", Confidence: 12, WordCount: 1},
			wantReliable:   false,
			recommendation: RecommendPoorQuality,
		},
		{
			name:           "barely any words",
			result:         Result{Text: "hm", Confidence: 75, WordCount: 1},
			wantReliable:   false,
			recommendation: RecommendNoText,
		},
		{
			name:           "garbled text",
			result:         Result{Text: "xzq#wv!!pqr", Confidence: 90, WordCount: 3},
			wantReliable:   false,
			recommendation: RecommendManualReview,
		},
		{
			name:           "too few words despite quality",
			result:         Result{Text: "Big Festival", Confidence: 95, WordCount: 2},
			wantReliable:   false,
			recommendation: RecommendManualReview,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Validate(tt.result, 70)
			assert.Equal(t, tt.wantReliable, v.IsReliable)
			assert.Equal(t, tt.recommendation, v.Recommendation)
			assert.NotEmpty(t, v.Reason)
		})
	}
}

func TestHasReadablePatterns(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"event keyword", "BIG FESTIVAL 2025", true},
		{"digits with spaces", "21 06 2025 19 00", true},
		{"plain english", "come see the thing", true},
		{"too short", "ab", false},
		{"garbled no vowels", "xzq#wv!!", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hasReadablePatterns(tt.text))
		})
	}
}
