package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/umputun/eventscope/pkg/domain"
)

// llmEvent mirrors the JSON shape the extraction prompts request. The model
// occasionally substitutes alternate key names, emits nulls, or quotes the
// word "null"; nullable strings absorb all of those.
type llmEvent struct {
	Title          nullString  `json:"event_title"`
	Date           nullString  `json:"event_date"`
	Location       nullString  `json:"event_location"`
	Description    nullString  `json:"event_description"`
	Confidence     json.Number `json:"parsing_confidence"`
	AltTitle       nullString  `json:"title"`
	AltDate        nullString  `json:"date"`
	AltLocation    nullString  `json:"location"`
	AltDescription nullString  `json:"description"`
	AltConfidence  json.Number `json:"confidence"`
	OCRCorrections []string    `json:"ocr_corrections"`
}

// nullString decodes JSON strings, nulls, and the literal string "null"
// into a plain string
type nullString string

// UnmarshalJSON implements tolerant decoding for nullString
func (n *nullString) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*n = ""
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if strings.EqualFold(strings.TrimSpace(v), "null") {
		v = ""
	}
	*n = nullString(v)
	return nil
}

// trailing commas before a closing bracket are invalid JSON but common in
// model output
var reTrailingComma = regexp.MustCompile(`,\s*([}\]])`)

// parseCandidate parses a model response into an event candidate, tolerating
// markdown fencing, non-JSON preamble, trailing commas, and null-shaped values
func parseCandidate(content string) (domain.EventCandidate, error) {
	jsonStr, err := extractJSON(content)
	if err != nil {
		return domain.EventCandidate{}, err
	}

	jsonStr = reTrailingComma.ReplaceAllString(jsonStr, "$1")

	var ev llmEvent
	if err := json.Unmarshal([]byte(jsonStr), &ev); err != nil {
		return domain.EventCandidate{}, fmt.Errorf("decode json: %w", err)
	}

	candidate := domain.EventCandidate{
		Title:       firstNonEmpty(string(ev.Title), string(ev.AltTitle)),
		Date:        firstNonEmpty(string(ev.Date), string(ev.AltDate)),
		Location:    firstNonEmpty(string(ev.Location), string(ev.AltLocation)),
		Description: firstNonEmpty(string(ev.Description), string(ev.AltDescription)),
	}

	conf := ev.Confidence
	if conf == "" {
		conf = ev.AltConfidence
	}
	if conf != "" {
		if f, ferr := conf.Float64(); ferr == nil {
			candidate.ParsingConfidence = clamp01(f)
		}
	}
	if candidate.ParsingConfidence == 0 && !candidate.IsEmpty() {
		candidate.ParsingConfidence = 0.5 // model omitted the score, assume middling
	}

	return candidate, nil
}

// extractJSON pulls the JSON object out of a response that may carry markdown
// fences or conversational preamble
func extractJSON(content string) (string, error) {
	s := content

	// strip ```json ... ``` fencing
	if idx := strings.Index(s, "```"); idx != -1 {
		s = s[idx+3:]
		s = strings.TrimPrefix(s, "json")
		if end := strings.Index(s, "```"); end != -1 {
			s = s[:end]
		}
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || start >= end {
		return "", fmt.Errorf("no json object found in response")
	}
	return s[start : end+1], nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
