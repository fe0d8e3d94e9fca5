package domain

import "strings"

// InputType identifies how raw input should be interpreted
type InputType string

// known input types
const (
	InputText    InputType = "text"
	InputURL     InputType = "url"
	InputImage   InputType = "image"
	InputEmail   InputType = "email"
	InputUnknown InputType = "unknown"
	InputError   InputType = "error"
)

// ClassificationMethod identifies which classifier tier produced the result
type ClassificationMethod string

// classification methods, one per tier plus the tier-1 default path
const (
	MethodTier1Regex   ClassificationMethod = "tier1_regex"
	MethodTier1Default ClassificationMethod = "tier1_default"
	MethodTier2ML      ClassificationMethod = "tier2_ml"
	MethodTier3LLM     ClassificationMethod = "tier3_llm"
)

// ClassifiedInput is the result of input classification, created once per
// pipeline invocation and immutable thereafter
type ClassifiedInput struct {
	RawInput   string
	Type       InputType
	Confidence float64
	Method     ClassificationMethod
	Reasoning  string

	// image-specific payload, set by the transport when the input is a photo
	ImageFileID string
	ImageData   []byte
}

// EventCandidate is an extracted but not yet persisted event. Date may hold a
// single timestamp or a comma-joined list of timestamps; the expander splits
// the latter into linked sessions.
type EventCandidate struct {
	Title             string  `json:"event_title"`
	Date              string  `json:"event_date"`
	Location          string  `json:"event_location"`
	Description       string  `json:"event_description"`
	ParsingConfidence float64 `json:"parsing_confidence"`

	Source    string    `json:"source,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	InputType InputType `json:"input_type,omitempty"`
	RawInput  string    `json:"raw_input,omitempty"`
}

// IsEmpty reports whether the candidate carries no extracted information.
// An all-empty candidate is a parse failure, not a valid zero-information event.
func (c EventCandidate) IsEmpty() bool {
	return c.Title == "" && c.Date == "" && c.Location == "" && c.Description == ""
}

// HasMultipleDates reports whether the date field is a comma-joined list
func (c EventCandidate) HasMultipleDates() bool {
	return strings.Contains(c.Date, ",")
}

// DateTokens splits the date field on commas and trims each token,
// dropping empty entries
func (c EventCandidate) DateTokens() []string {
	if c.Date == "" {
		return nil
	}
	parts := strings.Split(c.Date, ",")
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// SetField updates one of the user-editable fields by name, returns false
// for unrecognized field names
func (c *EventCandidate) SetField(field, value string) bool {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case "title":
		c.Title = value
	case "date":
		c.Date = value
	case "location":
		c.Location = value
	case "description":
		c.Description = value
	default:
		return false
	}
	return true
}

// Session is one calendar entry produced by multi-date expansion
type Session struct {
	Number int    // 1-indexed, dense
	Total  int    // equals len(sessions) for every member of an expansion
	Title  string // "{title} (Session i of N)" for series members
	Date   string // single normalized timestamp
}

// Expansion is the result of multi-date expansion: one session for a single
// date, N linked sessions sharing a series ID otherwise
type Expansion struct {
	SeriesID     string // empty for single-session expansions
	DisplayTitle string // "{title} (Series of N)" for series, original title otherwise
	Sessions     []Session
}

// IsSeries reports whether the expansion produced linked sessions
func (e Expansion) IsSeries() bool { return e.SeriesID != "" }
